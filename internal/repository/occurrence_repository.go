package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

const occurrenceColumns = `id, project_id, title, start_time, duration, status, is_auto_generated, is_makeup, is_cancelled, is_modified,
slot_key, occurrence_date, replaces_occurrence_id, homework_assignments, homework_checks, checks_version, created_at, updated_at`

// OccurrenceRepository persists lesson occurrences.
type OccurrenceRepository struct {
	db *sqlx.DB
}

// NewOccurrenceRepository constructs repository.
func NewOccurrenceRepository(db *sqlx.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

// Create inserts an occurrence. It returns false when an occurrence with the same
// generation key already exists, leaving the stored row untouched.
func (r *OccurrenceRepository) Create(ctx context.Context, occ *models.Occurrence) (bool, error) {
	if occ == nil {
		return false, fmt.Errorf("occurrence payload is nil")
	}
	if occ.ProjectID == "" {
		return false, fmt.Errorf("project_id is required")
	}
	if occ.ID == "" {
		occ.ID = uuid.NewString()
	}
	if occ.Status == "" {
		occ.Status = models.OccurrenceStatusScheduled
	}
	if occ.Duration <= 0 {
		occ.Duration = models.DefaultLessonDuration
	}
	if occ.HomeworkAssignments == nil {
		occ.HomeworkAssignments = models.HomeworkAssignments{}
	}
	if occ.HomeworkChecks == nil {
		occ.HomeworkChecks = models.HomeworkChecks{}
	}
	now := time.Now().UTC()
	if occ.CreatedAt.IsZero() {
		occ.CreatedAt = now
	}
	occ.UpdatedAt = now

	const query = `
INSERT INTO occurrences (id, project_id, title, start_time, duration, status, is_auto_generated, is_makeup, is_cancelled, is_modified,
    slot_key, occurrence_date, replaces_occurrence_id, homework_assignments, homework_checks, checks_version, created_at, updated_at)
VALUES (:id, :project_id, :title, :start_time, :duration, :status, :is_auto_generated, :is_makeup, :is_cancelled, :is_modified,
    :slot_key, :occurrence_date, :replaces_occurrence_id, :homework_assignments, :homework_checks, :checks_version, :created_at, :updated_at)
ON CONFLICT DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, occ)
	if err != nil {
		return false, fmt.Errorf("insert occurrence: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("occurrence rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindByID loads an occurrence by its identifier.
func (r *OccurrenceRepository) FindByID(ctx context.Context, id string) (*models.Occurrence, error) {
	query := r.db.Rebind(`SELECT ` + occurrenceColumns + ` FROM occurrences WHERE id = ?`)
	var occ models.Occurrence
	if err := r.db.GetContext(ctx, &occ, query, id); err != nil {
		return nil, err
	}
	return &occ, nil
}

// Query lists occurrences matching the filter ordered by start time.
func (r *OccurrenceRepository) Query(ctx context.Context, filter models.OccurrenceFilter) ([]models.Occurrence, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.After != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, filter.After.UTC())
	}
	if filter.Before != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, filter.Before.UTC())
	}
	if filter.IsCancelled != nil {
		conditions = append(conditions, "is_cancelled = ?")
		args = append(args, *filter.IsCancelled)
	}
	if filter.IsAutoGenerated != nil {
		conditions = append(conditions, "is_auto_generated = ?")
		args = append(args, *filter.IsAutoGenerated)
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, "occurrence_date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, "occurrence_date < ?")
		args = append(args, filter.DateTo)
	}

	var builder strings.Builder
	builder.WriteString(`SELECT ` + occurrenceColumns + ` FROM occurrences`)
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY start_time ASC, created_at ASC")

	var items []models.Occurrence
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(builder.String()), args...); err != nil {
		return nil, fmt.Errorf("query occurrences: %w", err)
	}
	return items, nil
}

// FindPrevious returns the nearest earlier lesson of the project that can emit carry-over:
// not cancelled, and either auto-generated or a makeup. Returns nil when none exists.
func (r *OccurrenceRepository) FindPrevious(ctx context.Context, projectID string, before time.Time) (*models.Occurrence, error) {
	query := r.db.Rebind(`SELECT ` + occurrenceColumns + ` FROM occurrences
WHERE project_id = ? AND start_time < ? AND is_cancelled = ? AND (is_auto_generated = ? OR is_makeup = ?)
ORDER BY start_time DESC LIMIT 1`)
	return r.findOne(ctx, query, projectID, before.UTC(), false, true, true)
}

// FindNext returns the nearest later non-cancelled lesson of the project. Returns nil when none exists.
func (r *OccurrenceRepository) FindNext(ctx context.Context, projectID string, after time.Time) (*models.Occurrence, error) {
	query := r.db.Rebind(`SELECT ` + occurrenceColumns + ` FROM occurrences
WHERE project_id = ? AND start_time > ? AND is_cancelled = ?
ORDER BY start_time ASC LIMIT 1`)
	return r.findOne(ctx, query, projectID, after.UTC(), false)
}

func (r *OccurrenceRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Occurrence, error) {
	var occ models.Occurrence
	if err := r.db.GetContext(ctx, &occ, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find neighbour occurrence: %w", err)
	}
	return &occ, nil
}

// UpdateSchedule moves an occurrence. markModified protects it from template reconciliation.
func (r *OccurrenceRepository) UpdateSchedule(ctx context.Context, id string, start time.Time, duration int, markModified bool) error {
	query := r.db.Rebind(`UPDATE occurrences SET start_time = ?, duration = ?, is_modified = (is_modified OR ?), updated_at = ?
WHERE id = ? AND is_cancelled = ?`)
	return r.execOne(ctx, "update occurrence schedule", query, start.UTC(), duration, markModified, time.Now().UTC(), id, false)
}

// UpdateChecks replaces the homework check list if it is still at expectedVersion and bumps
// the version. sql.ErrNoRows means the row is gone or another write got there first.
func (r *OccurrenceRepository) UpdateChecks(ctx context.Context, id string, checks models.HomeworkChecks, expectedVersion int) error {
	if checks == nil {
		checks = models.HomeworkChecks{}
	}
	query := r.db.Rebind(`UPDATE occurrences SET homework_checks = ?, checks_version = checks_version + 1, updated_at = ?
WHERE id = ? AND checks_version = ?`)
	return r.execOne(ctx, "update occurrence checks", query, checks, time.Now().UTC(), id, expectedVersion)
}

// UpdateAssignments replaces the homework assigned at a lesson.
func (r *OccurrenceRepository) UpdateAssignments(ctx context.Context, id string, assignments models.HomeworkAssignments) error {
	if assignments == nil {
		assignments = models.HomeworkAssignments{}
	}
	query := r.db.Rebind(`UPDATE occurrences SET homework_assignments = ?, updated_at = ? WHERE id = ? AND is_cancelled = ?`)
	return r.execOne(ctx, "update occurrence assignments", query, assignments, time.Now().UTC(), id, false)
}

// MarkCancelled moves the lesson to its terminal state and clears its assignments in one statement.
func (r *OccurrenceRepository) MarkCancelled(ctx context.Context, id string) error {
	query := r.db.Rebind(`UPDATE occurrences SET is_cancelled = ?, status = ?, homework_assignments = ?, updated_at = ? WHERE id = ?`)
	return r.execOne(ctx, "cancel occurrence", query, true, models.OccurrenceStatusCancelled, models.HomeworkAssignments{}, time.Now().UTC(), id)
}

// Delete removes an occurrence.
func (r *OccurrenceRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM occurrences WHERE id = ?`)
	return r.execOne(ctx, "delete occurrence", query, id)
}

func (r *OccurrenceRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
