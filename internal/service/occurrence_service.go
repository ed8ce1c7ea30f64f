package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type carryOver interface {
	OnOccurrenceLoaded(ctx context.Context, occ *models.Occurrence) (*models.Occurrence, error)
}

// CheckToggle flips one homework check identified by textbook and chapter.
type CheckToggle struct {
	TextbookID string
	Chapter    string
	Completed  bool
}

// OccurrenceService exposes single-lesson reads and edits.
type OccurrenceService struct {
	occurrences occurrenceStore
	homework    carryOver
	dispatcher  *commandDispatcher
	checks      checkWriter
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
}

// NewOccurrenceService constructs the service.
func NewOccurrenceService(occurrences occurrenceStore, homework carryOver, cache *CacheService, logger *zap.Logger) *OccurrenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := newCommandDispatcher(occurrences, logger)
	return &OccurrenceService{
		occurrences: occurrences,
		homework:    homework,
		dispatcher:  dispatcher,
		checks:      checkWriter{reader: occurrences, dispatcher: dispatcher},
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

// Get loads a lesson and pulls the previous lesson's homework onto it. A carry-over failure
// is logged and the lesson is returned as stored.
func (s *OccurrenceService) Get(ctx context.Context, id string) (*models.Occurrence, error) {
	occ, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.homework == nil {
		return occ, nil
	}
	updated, err := s.homework.OnOccurrenceLoaded(ctx, occ)
	if err != nil {
		s.logger.Error("homework carry-over failed", zap.String("occurrence_id", id), zap.Error(err))
		return occ, nil
	}
	return updated, nil
}

// Reschedule moves a lesson by hand. The lesson is flagged as modified so template edits
// no longer move it.
func (s *OccurrenceService) Reschedule(ctx context.Context, id string, start time.Time, duration int) (*models.Occurrence, error) {
	occ, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		duration = occ.EffectiveDuration()
	}
	startUTC := start.UTC()
	if err := s.apply(ctx, RescheduleCommand{OccurrenceID: id, StartTime: startUTC, Duration: duration, MarkModified: true}); err != nil {
		return nil, err
	}
	occ.StartTime = &startUTC
	occ.Duration = duration
	occ.IsModified = true
	return occ, nil
}

// SetAssignments replaces the homework assigned at a lesson.
func (s *OccurrenceService) SetAssignments(ctx context.Context, id string, assignments models.HomeworkAssignments) (*models.Occurrence, error) {
	occ, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = models.HomeworkAssignments{}
	}
	if err := s.apply(ctx, AssignHomeworkCommand{OccurrenceID: id, Assignments: assignments}); err != nil {
		return nil, err
	}
	occ.HomeworkAssignments = assignments
	return occ, nil
}

// SetCheckCompletion marks a homework check done or open again.
func (s *OccurrenceService) SetCheckCompletion(ctx context.Context, id string, toggle CheckToggle) (*models.Occurrence, error) {
	occ, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}
	key := models.HomeworkKey{TextbookID: toggle.TextbookID, Chapter: toggle.Chapter}
	completedAt := s.now().UTC()
	updated, written, err := s.checks.write(ctx, occ, completeCheckCommand, func(current models.HomeworkChecks) (models.HomeworkChecks, bool, error) {
		checks := make(models.HomeworkChecks, len(current))
		copy(checks, current)
		found := false
		for i := range checks {
			if checks[i].Key() != key {
				continue
			}
			found = true
			checks[i].IsCompleted = toggle.Completed
			if toggle.Completed {
				at := completedAt
				checks[i].CompletedAt = &at
			} else {
				checks[i].CompletedAt = nil
			}
		}
		if !found {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "homework check not found")
		}
		return checks, true, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		var typed *appErrors.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	if written {
		_ = s.cache.Invalidate(ctx, agendaCachePattern)
	}
	return updated, nil
}

func (s *OccurrenceService) apply(ctx context.Context, cmd OccurrenceCommand) error {
	if err := s.dispatcher.Dispatch(ctx, cmd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The row was cancelled between load and write.
			return appErrors.ErrOccurrenceCancelled
		}
		var typed *appErrors.Error
		if errors.As(err, &typed) {
			return typed
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	_ = s.cache.Invalidate(ctx, agendaCachePattern)
	return nil
}

func (s *OccurrenceService) loadActive(ctx context.Context, id string) (*models.Occurrence, error) {
	occ, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if occ.Cancelled() {
		return nil, appErrors.ErrOccurrenceCancelled
	}
	return occ, nil
}

func (s *OccurrenceService) load(ctx context.Context, id string) (*models.Occurrence, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "occurrence id is required")
	}
	occ, err := s.occurrences.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return occ, nil
}
