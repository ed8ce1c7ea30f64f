package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

// maxCheckWriteAttempts bounds the re-read and re-apply loop for check list writes.
const maxCheckWriteAttempts = 3

// checkEdit derives the next check list from the stored one. changed=false skips the write.
type checkEdit func(current models.HomeworkChecks) (next models.HomeworkChecks, changed bool, err error)

// checkCommand builds the command that stores checks read at version.
type checkCommand func(id string, checks models.HomeworkChecks, version int) OccurrenceCommand

func carryOverCommand(id string, checks models.HomeworkChecks, version int) OccurrenceCommand {
	return CarryOverCommand{OccurrenceID: id, Checks: checks, ExpectedVersion: version}
}

func completeCheckCommand(id string, checks models.HomeworkChecks, version int) OccurrenceCommand {
	return CompleteCheckCommand{OccurrenceID: id, Checks: checks, ExpectedVersion: version}
}

// checkWriter stores check lists under the checks_version guard. When another writer got there
// first the lesson is re-read and the edit applied again to the fresh list, so concurrent
// carry-overs and toggles are merged instead of overwriting each other.
type checkWriter struct {
	reader     occurrenceReader
	dispatcher *commandDispatcher
}

// write returns the lesson as stored and whether a write happened. A lesson that disappears
// mid-way yields sql.ErrNoRows; running out of attempts yields ErrConflict.
func (w checkWriter) write(ctx context.Context, occ *models.Occurrence, build checkCommand, edit checkEdit) (*models.Occurrence, bool, error) {
	current := *occ
	for attempt := 1; ; attempt++ {
		next, changed, err := edit(current.HomeworkChecks)
		if err != nil || !changed {
			return &current, false, err
		}
		err = w.dispatcher.Dispatch(ctx, build(current.ID, next, current.ChecksVersion))
		if err == nil {
			current.HomeworkChecks = next
			current.ChecksVersion++
			return &current, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return &current, false, err
		}
		if attempt == maxCheckWriteAttempts {
			return &current, false, appErrors.Clone(appErrors.ErrConflict, "homework checks changed concurrently, retry")
		}
		fresh, err := w.reader.FindByID(ctx, current.ID)
		if err != nil {
			return &current, false, err
		}
		w.dispatcher.logger.Debug("check list changed underneath, re-applying",
			zap.String("occurrence_id", current.ID),
			zap.Int("attempt", attempt),
		)
		current = *fresh
	}
}
