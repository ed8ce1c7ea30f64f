package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

// OccurrenceCommand is a validated mutation of a single occurrence record.
type OccurrenceCommand interface {
	Name() string
	Validate() error
	apply(ctx context.Context, store occurrenceWriter) error
}

// RescheduleCommand moves a lesson. Template reconciliation issues it with MarkModified=false;
// user moves set it so later template edits leave the lesson alone.
type RescheduleCommand struct {
	OccurrenceID string
	StartTime    time.Time
	Duration     int
	MarkModified bool
}

func (c RescheduleCommand) Name() string { return "reschedule" }

func (c RescheduleCommand) Validate() error {
	if c.OccurrenceID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "occurrence id is required")
	}
	if c.StartTime.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "start time is required")
	}
	if c.Duration <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "duration must be positive")
	}
	return nil
}

func (c RescheduleCommand) apply(ctx context.Context, store occurrenceWriter) error {
	return store.UpdateSchedule(ctx, c.OccurrenceID, c.StartTime, c.Duration, c.MarkModified)
}

// CarryOverCommand persists a merged homework check list read at ExpectedVersion.
type CarryOverCommand struct {
	OccurrenceID    string
	Checks          models.HomeworkChecks
	ExpectedVersion int
}

func (c CarryOverCommand) Name() string { return "carry_over" }

func (c CarryOverCommand) Validate() error {
	if c.OccurrenceID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "occurrence id is required")
	}
	return validateChecks(c.Checks)
}

func (c CarryOverCommand) apply(ctx context.Context, store occurrenceWriter) error {
	return store.UpdateChecks(ctx, c.OccurrenceID, c.Checks, c.ExpectedVersion)
}

// CompleteCheckCommand persists a check list after a completion toggle.
type CompleteCheckCommand struct {
	OccurrenceID    string
	Checks          models.HomeworkChecks
	ExpectedVersion int
}

func (c CompleteCheckCommand) Name() string { return "complete_check" }

func (c CompleteCheckCommand) Validate() error {
	if c.OccurrenceID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "occurrence id is required")
	}
	return validateChecks(c.Checks)
}

func (c CompleteCheckCommand) apply(ctx context.Context, store occurrenceWriter) error {
	return store.UpdateChecks(ctx, c.OccurrenceID, c.Checks, c.ExpectedVersion)
}

// AssignHomeworkCommand records the work due at the following lesson.
type AssignHomeworkCommand struct {
	OccurrenceID string
	Assignments  models.HomeworkAssignments
}

func (c AssignHomeworkCommand) Name() string { return "assign_homework" }

func (c AssignHomeworkCommand) Validate() error {
	if c.OccurrenceID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "occurrence id is required")
	}
	for _, assignment := range c.Assignments {
		if assignment.TextbookID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "textbook_id is required for every assignment")
		}
		if len(assignment.Chapters) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("assignment for %s has no chapters", assignment.TextbookID))
		}
	}
	return nil
}

func (c AssignHomeworkCommand) apply(ctx context.Context, store occurrenceWriter) error {
	return store.UpdateAssignments(ctx, c.OccurrenceID, c.Assignments)
}

// CancelWithMakeupCommand cancels a lesson whose homework moved to a makeup lesson.
type CancelWithMakeupCommand struct {
	OccurrenceID string
	MakeupID     string
}

func (c CancelWithMakeupCommand) Name() string { return "cancel_with_makeup" }

func (c CancelWithMakeupCommand) Validate() error {
	if c.OccurrenceID == "" || c.MakeupID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "occurrence id and makeup id are required")
	}
	if c.OccurrenceID == c.MakeupID {
		return appErrors.Clone(appErrors.ErrValidation, "a lesson cannot be its own makeup")
	}
	return nil
}

// apply always clears assignments: MarkCancelled writes status, flag and assignments together.
func (c CancelWithMakeupCommand) apply(ctx context.Context, store occurrenceWriter) error {
	return store.MarkCancelled(ctx, c.OccurrenceID)
}

// CancelForwardCommand cancels a lesson whose homework moved to the next lesson.
type CancelForwardCommand struct {
	OccurrenceID     string
	NextOccurrenceID string
}

func (c CancelForwardCommand) Name() string { return "cancel_forward" }

func (c CancelForwardCommand) Validate() error {
	if c.OccurrenceID == "" || c.NextOccurrenceID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "occurrence id and next occurrence id are required")
	}
	if c.OccurrenceID == c.NextOccurrenceID {
		return appErrors.Clone(appErrors.ErrValidation, "homework cannot be forwarded to the cancelled lesson itself")
	}
	return nil
}

func (c CancelForwardCommand) apply(ctx context.Context, store occurrenceWriter) error {
	return store.MarkCancelled(ctx, c.OccurrenceID)
}

func validateChecks(checks models.HomeworkChecks) error {
	for _, check := range checks {
		if check.TextbookID == "" || check.Chapter == "" {
			return appErrors.Clone(appErrors.ErrValidation, "homework checks need textbook_id and chapter")
		}
	}
	if checks.HasDuplicates() {
		return appErrors.ErrDuplicateCheck
	}
	return nil
}

// commandDispatcher validates commands before they reach persistence.
type commandDispatcher struct {
	store  occurrenceWriter
	logger *zap.Logger
}

func newCommandDispatcher(store occurrenceWriter, logger *zap.Logger) *commandDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &commandDispatcher{store: store, logger: logger}
}

// Dispatch validates and applies cmd. Persistence failures are returned unwrapped
// so callers can decide how to surface them.
func (d *commandDispatcher) Dispatch(ctx context.Context, cmd OccurrenceCommand) error {
	if err := cmd.Validate(); err != nil {
		d.logger.Warn("rejected occurrence command", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	if err := cmd.apply(ctx, d.store); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	return nil
}
