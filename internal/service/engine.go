package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type definitionLister interface {
	ListStudents(ctx context.Context) ([]models.ScheduleDefinition, error)
}

// LessonEngine groups the lesson lifecycle components behind one entry point for the
// HTTP server and the CLI.
type LessonEngine struct {
	definitions  definitionLister
	generator    *ScheduleGeneratorService
	homework     *HomeworkService
	cancellation *CancellationService
	logger       *zap.Logger
}

// NewLessonEngine assembles the engine from its components.
func NewLessonEngine(definitions definitionLister, generator *ScheduleGeneratorService, homework *HomeworkService, cancellation *CancellationService, logger *zap.Logger) *LessonEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonEngine{
		definitions:  definitions,
		generator:    generator,
		homework:     homework,
		cancellation: cancellation,
		logger:       logger,
	}
}

// EnsureScheduleInRange fills [from, to) for the given definitions.
func (e *LessonEngine) EnsureScheduleInRange(ctx context.Context, defs []models.ScheduleDefinition, from, to time.Time) (GenerationResult, error) {
	return e.generator.EnsureScheduleInRange(ctx, defs, from, to)
}

// EnsureAllInRange fills [from, to) for every student schedule. It is the generation
// trigger's run function.
func (e *LessonEngine) EnsureAllInRange(ctx context.Context, from, to time.Time) error {
	_, err := e.GenerateAll(ctx, from, to)
	return err
}

// GenerateAll is EnsureAllInRange with the run summary.
func (e *LessonEngine) GenerateAll(ctx context.Context, from, to time.Time) (GenerationResult, error) {
	defs, err := e.definitions.ListStudents(ctx)
	if err != nil {
		return GenerationResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return e.generator.EnsureScheduleInRange(ctx, defs, from, to)
}

// Lookahead is the generation margin past a visible window.
func (e *LessonEngine) Lookahead() time.Duration {
	return e.generator.Lookahead()
}

// SyncProjectSchedule reconciles a definition's future lessons with its template.
func (e *LessonEngine) SyncProjectSchedule(ctx context.Context, def *models.ScheduleDefinition) (SyncResult, error) {
	return e.generator.SyncProjectSchedule(ctx, def)
}

// OnOccurrenceLoaded runs homework carry-over for a freshly loaded lesson.
func (e *LessonEngine) OnOccurrenceLoaded(ctx context.Context, occ *models.Occurrence) (*models.Occurrence, error) {
	return e.homework.OnOccurrenceLoaded(ctx, occ)
}

// CancelLesson starts or performs a cancellation.
func (e *LessonEngine) CancelLesson(ctx context.Context, occurrenceID string, mode CancelMode) (*CancellationResult, error) {
	return e.cancellation.CancelLesson(ctx, occurrenceID, mode)
}

// PlaceMakeup completes a makeup-first cancellation.
func (e *LessonEngine) PlaceMakeup(ctx context.Context, token string, start time.Time) (*CancellationResult, error) {
	return e.cancellation.PlaceMakeup(ctx, token, start)
}

// AbandonMakeup discards a pending makeup placement.
func (e *LessonEngine) AbandonMakeup(ctx context.Context, token string) error {
	return e.cancellation.AbandonMakeup(ctx, token)
}

// LayoutDay computes column positions for one day's lessons.
func (e *LessonEngine) LayoutDay(occurrences []models.Occurrence) map[string]models.LayoutPosition {
	return LayoutDay(occurrences)
}
