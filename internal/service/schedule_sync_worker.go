package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/jobs"
)

const scheduleSyncJobType = "schedule_sync"

type scheduleSyncRunner interface {
	SyncByID(ctx context.Context, id string) (SyncResult, error)
}

// ScheduleSyncWorker reconciles schedules in the background after template edits.
// Repeated edits of one schedule collapse into a single pending job.
type ScheduleSyncWorker struct {
	queue  *jobs.Queue
	runner scheduleSyncRunner
	logger *zap.Logger
}

// NewScheduleSyncWorker builds the worker and its queue. The runner can be attached later
// with Bind, which lets the schedule service and the worker reference each other.
func NewScheduleSyncWorker(cfg jobs.QueueConfig, logger *zap.Logger) *ScheduleSyncWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &ScheduleSyncWorker{logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	w.queue = jobs.NewQueue("schedule-sync", w.Handle, cfg)
	return w
}

// Bind sets the reconciliation runner. It must be called before Start.
func (w *ScheduleSyncWorker) Bind(runner scheduleSyncRunner) {
	w.runner = runner
}

// Start launches the queue workers.
func (w *ScheduleSyncWorker) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop drains the workers.
func (w *ScheduleSyncWorker) Stop() {
	w.queue.Stop()
}

// EnqueueSync schedules reconciliation of a definition. A sync already waiting for the same
// definition absorbs the request.
func (w *ScheduleSyncWorker) EnqueueSync(definitionID string) error {
	err := w.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Key:     definitionID,
		Type:    scheduleSyncJobType,
		Payload: definitionID,
	})
	if errors.Is(err, jobs.ErrDuplicate) {
		return nil
	}
	return err
}

// Handle processes one sync job.
func (w *ScheduleSyncWorker) Handle(ctx context.Context, job jobs.Job) error {
	if w.runner == nil {
		return errors.New("schedule sync worker has no runner")
	}
	id, ok := job.Payload.(string)
	if !ok || id == "" {
		w.logger.Warn("dropping malformed sync job", zap.String("job_id", job.ID))
		return nil
	}
	result, err := w.runner.SyncByID(ctx, id)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			w.logger.Info("schedule removed before sync", zap.String("schedule_id", id))
			return nil
		}
		return err
	}
	w.logger.Debug("schedule sync finished",
		zap.String("schedule_id", id),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("created", result.Created.Created),
	)
	return nil
}
