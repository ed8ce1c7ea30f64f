package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

// CreateScheduleRequest creates a student project with its weekly template.
type CreateScheduleRequest struct {
	Name      string                `json:"name" validate:"required,max=200"`
	Template  []models.TemplateSlot `json:"schedule_template" validate:"dive"`
	StartDate string                `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   *string               `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateTemplateRequest replaces a project's weekly template and validity range.
type UpdateTemplateRequest struct {
	Template  []models.TemplateSlot `json:"schedule_template" validate:"dive"`
	StartDate string                `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   *string               `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type scheduleSyncer interface {
	SyncProjectSchedule(ctx context.Context, def *models.ScheduleDefinition) (SyncResult, error)
}

type syncEnqueuer interface {
	EnqueueSync(definitionID string) error
}

// ScheduleService manages schedule definitions and keeps their lessons in step with the template.
type ScheduleService struct {
	definitions scheduleDefinitionStore
	syncer      scheduleSyncer
	queue       syncEnqueuer
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScheduleService instantiates ScheduleService. When queue is nil reconciliation runs inline.
func NewScheduleService(definitions scheduleDefinitionStore, syncer scheduleSyncer, queue syncEnqueuer, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{definitions: definitions, syncer: syncer, queue: queue, validator: validate, logger: logger}
}

// Create stores a definition and schedules generation of its first weeks.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.ScheduleDefinition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	start, end, err := parseValidity(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	def := &models.ScheduleDefinition{
		Name:             req.Name,
		ProjectType:      models.ProjectTypeStudent,
		ScheduleTemplate: models.ScheduleTemplate(req.Template).Keyed(nil),
		StartDate:        start,
		EndDate:          end,
	}
	if err := s.definitions.Create(ctx, def); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.scheduleSync(ctx, def)
	return def, nil
}

// List returns every student schedule.
func (s *ScheduleService) List(ctx context.Context) ([]models.ScheduleDefinition, error) {
	defs, err := s.definitions.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	if defs == nil {
		defs = []models.ScheduleDefinition{}
	}
	return defs, nil
}

// Get returns one schedule definition.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleDefinition, error) {
	def, err := s.definitions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return def, nil
}

// UpdateTemplate stores a new template and reconciles future lessons against it.
func (s *ScheduleService) UpdateTemplate(ctx context.Context, id string, req UpdateTemplateRequest) (*models.ScheduleDefinition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	start, end, err := parseValidity(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	def, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	def.ScheduleTemplate = models.ScheduleTemplate(req.Template).Keyed(def.ScheduleTemplate)
	def.StartDate = start
	def.EndDate = end
	if err := s.definitions.UpdateTemplate(ctx, def); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	s.scheduleSync(ctx, def)
	return def, nil
}

// SyncByID reconciles one definition immediately. It backs the sync job handler.
func (s *ScheduleService) SyncByID(ctx context.Context, id string) (SyncResult, error) {
	def, err := s.Get(ctx, id)
	if err != nil {
		return SyncResult{}, err
	}
	return s.syncer.SyncProjectSchedule(ctx, def)
}

func (s *ScheduleService) scheduleSync(ctx context.Context, def *models.ScheduleDefinition) {
	if s.queue != nil {
		err := s.queue.EnqueueSync(def.ID)
		if err == nil {
			return
		}
		s.logger.Warn("sync enqueue failed, reconciling inline", zap.String("schedule_id", def.ID), zap.Error(err))
	}
	if s.syncer == nil {
		return
	}
	if _, err := s.syncer.SyncProjectSchedule(ctx, def); err != nil {
		s.logger.Error("schedule reconciliation failed", zap.String("schedule_id", def.ID), zap.Error(err))
	}
}

func parseValidity(startDate string, endDate *string) (time.Time, *time.Time, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "start_date must use YYYY-MM-DD")
	}
	if endDate == nil || *endDate == "" {
		return start, nil, nil
	}
	end, err := time.Parse(dateLayout, *endDate)
	if err != nil {
		return time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "end_date must use YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("end_date %s is before start_date %s", *endDate, startDate))
	}
	return start, &end, nil
}
