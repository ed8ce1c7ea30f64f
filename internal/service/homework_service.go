package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

// HomeworkService carries homework assigned at one lesson onto the next one as checks.
type HomeworkService struct {
	occurrences occurrenceStore
	checks      checkWriter
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewHomeworkService constructs the carry-over service.
func NewHomeworkService(occurrences occurrenceStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *HomeworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomeworkService{
		occurrences: occurrences,
		checks:      checkWriter{reader: occurrences, dispatcher: newCommandDispatcher(occurrences, logger)},
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// OnOccurrenceLoaded pulls the previous lesson's assignments into occ's checks. It only ever
// appends unseen (textbook, chapter) pairs, leaves the previous lesson untouched and is a no-op
// when nothing new qualifies. Cancelled and unscheduled lessons are returned as-is.
func (s *HomeworkService) OnOccurrenceLoaded(ctx context.Context, occ *models.Occurrence) (*models.Occurrence, error) {
	if occ == nil || occ.StartTime == nil || occ.Cancelled() {
		return occ, nil
	}
	prev, err := s.occurrences.FindPrevious(ctx, occ.ProjectID, *occ.StartTime)
	if err != nil {
		return occ, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load previous lesson")
	}
	if prev == nil || prev.ID == occ.ID || len(prev.HomeworkAssignments) == 0 {
		return occ, nil
	}

	incoming := prev.HomeworkAssignments.Flatten(nil)
	added := 0
	updated, written, err := s.checks.write(ctx, occ, carryOverCommand, func(current models.HomeworkChecks) (models.HomeworkChecks, bool, error) {
		var merged models.HomeworkChecks
		merged, added = current.Merge(incoming)
		return merged, added > 0, nil
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrDuplicateCheck) || appErrors.Is(err, appErrors.ErrConflict) {
			return occ, err
		}
		return occ, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to carry homework over")
	}
	if !written {
		return updated, nil
	}
	s.metrics.AddChecksCarried(added)
	_ = s.cache.Invalidate(ctx, agendaCachePattern)
	s.logger.Debug("homework carried over",
		zap.String("occurrence_id", occ.ID),
		zap.String("previous_id", prev.ID),
		zap.Int("added", added),
	)

	return updated, nil
}
