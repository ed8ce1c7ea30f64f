package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

const scheduleDefinitionColumns = `id, name, project_type, schedule_template, start_date, end_date, created_at, updated_at`

// ScheduleDefinitionRepository persists student projects and their weekly templates.
type ScheduleDefinitionRepository struct {
	db *sqlx.DB
}

// NewScheduleDefinitionRepository constructs repository.
func NewScheduleDefinitionRepository(db *sqlx.DB) *ScheduleDefinitionRepository {
	return &ScheduleDefinitionRepository{db: db}
}

// Create inserts a schedule definition.
func (r *ScheduleDefinitionRepository) Create(ctx context.Context, def *models.ScheduleDefinition) error {
	if def == nil {
		return fmt.Errorf("schedule definition payload is nil")
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if def.ProjectType == "" {
		def.ProjectType = models.ProjectTypeStudent
	}
	if def.ScheduleTemplate == nil {
		def.ScheduleTemplate = models.ScheduleTemplate{}
	}
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	const query = `
INSERT INTO schedule_definitions (id, name, project_type, schedule_template, start_date, end_date, created_at, updated_at)
VALUES (:id, :name, :project_type, :schedule_template, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, def); err != nil {
		return fmt.Errorf("insert schedule definition: %w", err)
	}
	return nil
}

// FindByID loads a definition by its identifier.
func (r *ScheduleDefinitionRepository) FindByID(ctx context.Context, id string) (*models.ScheduleDefinition, error) {
	query := r.db.Rebind(`SELECT ` + scheduleDefinitionColumns + ` FROM schedule_definitions WHERE id = ?`)
	var def models.ScheduleDefinition
	if err := r.db.GetContext(ctx, &def, query, id); err != nil {
		return nil, err
	}
	return &def, nil
}

// ListStudents returns every lesson-producing definition ordered by name.
func (r *ScheduleDefinitionRepository) ListStudents(ctx context.Context) ([]models.ScheduleDefinition, error) {
	query := r.db.Rebind(`SELECT ` + scheduleDefinitionColumns + ` FROM schedule_definitions WHERE project_type = ? ORDER BY name ASC`)
	var defs []models.ScheduleDefinition
	if err := r.db.SelectContext(ctx, &defs, query, models.ProjectTypeStudent); err != nil {
		return nil, fmt.Errorf("list schedule definitions: %w", err)
	}
	return defs, nil
}

// UpdateTemplate replaces the weekly template and validity range.
func (r *ScheduleDefinitionRepository) UpdateTemplate(ctx context.Context, def *models.ScheduleDefinition) error {
	if def == nil {
		return fmt.Errorf("schedule definition payload is nil")
	}
	def.UpdatedAt = time.Now().UTC()
	query := r.db.Rebind(`UPDATE schedule_definitions SET schedule_template = ?, start_date = ?, end_date = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, def.ScheduleTemplate, def.StartDate.UTC(), def.EndDate, def.UpdatedAt, def.ID)
	if err != nil {
		return fmt.Errorf("update schedule template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule template rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
