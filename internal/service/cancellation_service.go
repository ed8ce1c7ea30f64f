package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

// CancelMode selects how a cancelled lesson's homework is disposed of.
type CancelMode string

const (
	CancelModeMakeupFirst CancelMode = "makeup-first"
	CancelModeForwardNext CancelMode = "forward-next"
)

// CancellationResult reports the outcome of a cancellation step.
type CancellationResult struct {
	Mode         CancelMode         `json:"mode"`
	Cancelled    *models.Occurrence `json:"cancelled,omitempty"`
	Target       *models.Occurrence `json:"target,omitempty"`
	PendingToken string             `json:"pending_token,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
}

type definitionReader interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleDefinition, error)
}

// CancellationConfig tunes the makeup placement window.
type CancellationConfig struct {
	PendingTTL time.Duration
	Now        func() time.Time
}

// CancellationService runs the cancel/makeup workflow. A cancelled lesson never reopens.
type CancellationService struct {
	occurrences occurrenceStore
	definitions definitionReader
	dispatcher  *commandDispatcher
	checks      checkWriter
	pending     *pendingCancelStore
	pendingTTL  time.Duration
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewCancellationService wires the workflow.
func NewCancellationService(
	occurrences occurrenceStore,
	definitions definitionReader,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg CancellationConfig,
) *CancellationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	dispatcher := newCommandDispatcher(occurrences, logger)
	return &CancellationService{
		occurrences: occurrences,
		definitions: definitions,
		dispatcher:  dispatcher,
		checks:      checkWriter{reader: occurrences, dispatcher: dispatcher},
		pending:     newPendingCancelStore(cfg.PendingTTL, cfg.Now),
		pendingTTL:  cfg.PendingTTL,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		now:         cfg.Now,
	}
}

// CancelLesson starts cancelling the lesson. In makeup-first mode nothing is written yet: a
// pending context is returned and the lesson is only cancelled once PlaceMakeup succeeds.
// In forward-next mode homework moves to the next lesson and the lesson is cancelled at once.
func (s *CancellationService) CancelLesson(ctx context.Context, occurrenceID string, mode CancelMode) (*CancellationResult, error) {
	occ, err := s.load(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if occ.Cancelled() {
		return nil, appErrors.ErrOccurrenceCancelled
	}
	switch mode {
	case CancelModeMakeupFirst:
		return s.beginMakeup(occ), nil
	case CancelModeForwardNext:
		return s.forwardToNext(ctx, occ)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown cancel mode %q", mode))
	}
}

func (s *CancellationService) beginMakeup(occ *models.Occurrence) *CancellationResult {
	item, ok := s.pending.FindByOccurrence(occ.ID)
	if !ok {
		assignments := make(models.HomeworkAssignments, len(occ.HomeworkAssignments))
		copy(assignments, occ.HomeworkAssignments)
		item = pendingCancel{
			Token:        uuid.NewString(),
			OccurrenceID: occ.ID,
			ProjectID:    occ.ProjectID,
			Assignments:  assignments,
			CreatedAt:    s.now(),
		}
		s.pending.Save(item)
		s.logger.Info("makeup placement started", zap.String("occurrence_id", occ.ID), zap.String("project_id", occ.ProjectID))
	}
	expires := item.CreatedAt.Add(s.pendingTTL)
	return &CancellationResult{
		Mode:         CancelModeMakeupFirst,
		Cancelled:    occ,
		PendingToken: item.Token,
		ExpiresAt:    &expires,
	}
}

// PlaceMakeup finishes a makeup-first cancellation at the chosen start time. If an earlier
// attempt already created the makeup lesson, that lesson is reused.
func (s *CancellationService) PlaceMakeup(ctx context.Context, token string, start time.Time) (*CancellationResult, error) {
	if start.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "makeup start time is required")
	}
	item, ok := s.pending.Get(token)
	if !ok {
		return nil, appErrors.ErrPendingCancelNotFound
	}
	original, err := s.load(ctx, item.OccurrenceID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			s.pending.Delete(token)
		}
		return nil, err
	}
	if original.Cancelled() {
		s.pending.Delete(token)
		return nil, appErrors.ErrOccurrenceCancelled
	}

	makeup, err := s.ensureMakeup(ctx, item, original, start)
	if err != nil {
		return nil, err
	}
	s.pending.AttachMakeup(token, makeup.ID)

	note := models.CarriedFromCancellationNote
	makeup, added, err := s.mergeChecks(ctx, makeup, item.Assignments.Flatten(&note))
	if err != nil {
		return nil, s.partialFailure(err, original.ID, "attach homework to makeup")
	}

	if err := s.dispatcher.Dispatch(ctx, CancelWithMakeupCommand{OccurrenceID: original.ID, MakeupID: makeup.ID}); err != nil {
		return nil, s.partialFailure(err, original.ID, "cancel original lesson")
	}
	s.pending.Delete(token)

	s.metrics.RecordCancellation(string(CancelModeMakeupFirst))
	s.metrics.AddChecksCarried(added)
	_ = s.cache.Invalidate(ctx, agendaCachePattern)
	s.logger.Info("lesson cancelled with makeup",
		zap.String("occurrence_id", original.ID),
		zap.String("makeup_id", makeup.ID),
		zap.Int("checks_carried", added),
	)

	cancelled := markedCancelled(original)
	return &CancellationResult{Mode: CancelModeMakeupFirst, Cancelled: cancelled, Target: makeup}, nil
}

// AbandonMakeup discards a pending makeup placement. The original lesson is left unmodified.
// A makeup lesson created by an earlier, partially failed PlaceMakeup is deleted so it does not
// linger as an orphan; the pending context is kept if that delete fails so the call can be retried.
func (s *CancellationService) AbandonMakeup(ctx context.Context, token string) error {
	item, ok := s.pending.Get(token)
	if !ok {
		return appErrors.ErrPendingCancelNotFound
	}
	if item.MakeupID != "" {
		if err := s.occurrences.Delete(ctx, item.MakeupID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove makeup lesson")
		}
		_ = s.cache.Invalidate(ctx, agendaCachePattern)
	}
	if !s.pending.Delete(token) {
		return appErrors.ErrPendingCancelNotFound
	}
	s.logger.Info("makeup placement abandoned",
		zap.String("token", token),
		zap.String("occurrence_id", item.OccurrenceID),
		zap.String("makeup_id", item.MakeupID),
	)
	return nil
}

func (s *CancellationService) ensureMakeup(ctx context.Context, item pendingCancel, original *models.Occurrence, start time.Time) (*models.Occurrence, error) {
	if item.MakeupID != "" {
		existing, err := s.occurrences.FindByID(ctx, item.MakeupID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load makeup lesson")
		}
	}

	duration := models.DefaultLessonDuration
	if s.definitions != nil {
		def, err := s.definitions.FindByID(ctx, item.ProjectID)
		switch {
		case err == nil:
			duration = def.MakeupDuration()
		case errors.Is(err, sql.ErrNoRows):
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule definition")
		}
	}

	startUTC := start.UTC()
	replaces := original.ID
	makeup := &models.Occurrence{
		ProjectID:            item.ProjectID,
		Title:                original.Title,
		StartTime:            &startUTC,
		Duration:             duration,
		Status:               models.OccurrenceStatusScheduled,
		IsMakeup:             true,
		ReplacesOccurrenceID: &replaces,
	}
	if _, err := s.occurrences.Create(ctx, makeup); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create makeup lesson")
	}
	s.metrics.AddOccurrencesCreated(1)
	return makeup, nil
}

func (s *CancellationService) forwardToNext(ctx context.Context, occ *models.Occurrence) (*CancellationResult, error) {
	if occ.StartTime == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson has no start time")
	}
	next, err := s.occurrences.FindNext(ctx, occ.ProjectID, *occ.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load next lesson")
	}
	if next == nil || next.ID == occ.ID {
		return nil, appErrors.ErrNoNextOccurrence
	}

	note := models.CarriedFromCancellationNote
	next, added, err := s.mergeChecks(ctx, next, occ.HomeworkAssignments.Flatten(&note))
	if err != nil {
		return nil, s.partialFailure(err, occ.ID, "forward homework")
	}
	if err := s.dispatcher.Dispatch(ctx, CancelForwardCommand{OccurrenceID: occ.ID, NextOccurrenceID: next.ID}); err != nil {
		return nil, s.partialFailure(err, occ.ID, "cancel lesson")
	}

	s.metrics.RecordCancellation(string(CancelModeForwardNext))
	s.metrics.AddChecksCarried(added)
	_ = s.cache.Invalidate(ctx, agendaCachePattern)
	s.logger.Info("lesson cancelled, homework forwarded",
		zap.String("occurrence_id", occ.ID),
		zap.String("next_id", next.ID),
		zap.Int("checks_carried", added),
	)
	return &CancellationResult{Mode: CancelModeForwardNext, Cancelled: markedCancelled(occ), Target: next}, nil
}

// mergeChecks appends the unseen carried checks to target. Retrying after a partial failure
// adds nothing twice because already present pairs are skipped.
func (s *CancellationService) mergeChecks(ctx context.Context, target *models.Occurrence, carried models.HomeworkChecks) (*models.Occurrence, int, error) {
	added := 0
	updated, _, err := s.checks.write(ctx, target, carryOverCommand, func(current models.HomeworkChecks) (models.HomeworkChecks, bool, error) {
		var merged models.HomeworkChecks
		merged, added = current.Merge(carried)
		return merged, added > 0, nil
	})
	if err != nil {
		return target, 0, err
	}
	return updated, added, nil
}

func (s *CancellationService) load(ctx context.Context, id string) (*models.Occurrence, error) {
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

func (s *CancellationService) partialFailure(err error, occurrenceID, step string) error {
	s.logger.Error("cancellation step failed", zap.String("occurrence_id", occurrenceID), zap.String("step", step), zap.Error(err))
	if appErrors.Is(err, appErrors.ErrDuplicateCheck) || appErrors.Is(err, appErrors.ErrValidation) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrCancellationFailed.Code, appErrors.ErrCancellationFailed.Status, appErrors.ErrCancellationFailed.Message)
}

func markedCancelled(occ *models.Occurrence) *models.Occurrence {
	cancelled := *occ
	cancelled.IsCancelled = true
	cancelled.Status = models.OccurrenceStatusCancelled
	cancelled.HomeworkAssignments = models.HomeworkAssignments{}
	return &cancelled
}
