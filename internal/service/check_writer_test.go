package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

func TestSetCheckCompletionKeepsConcurrentCarryOver(t *testing.T) {
	store, service := newOccurrenceFixture()
	ctx := context.Background()
	occ := store.put(models.Occurrence{
		ProjectID: "project-1", StartTime: at("2024-01-08T10:00:00Z"),
		HomeworkChecks: models.HomeworkChecks{{TextbookID: "T1", Chapter: "1"}},
	})
	store.beforeChecksWrite = func(id string) {
		carried := models.HomeworkChecks{{TextbookID: "T1", Chapter: "1"}, {TextbookID: "T2", Chapter: "4"}}
		require.NoError(t, store.UpdateChecks(ctx, id, carried, 0))
	}

	updated, err := service.SetCheckCompletion(ctx, occ.ID, CheckToggle{TextbookID: "T1", Chapter: "1", Completed: true})
	require.NoError(t, err)
	require.Len(t, updated.HomeworkChecks, 2)

	stored := store.get(occ.ID)
	require.Len(t, stored.HomeworkChecks, 2)
	assert.True(t, stored.HomeworkChecks[0].IsCompleted)
	assert.Equal(t, models.HomeworkKey{TextbookID: "T2", Chapter: "4"}, stored.HomeworkChecks[1].Key())
	assert.Equal(t, 2, stored.ChecksVersion)
}

func TestOnOccurrenceLoadedKeepsConcurrentToggle(t *testing.T) {
	store := newMemoryOccurrences()
	ctx := context.Background()
	store.put(models.Occurrence{
		ProjectID: "project-1", StartTime: at("2024-01-01T10:00:00Z"), IsAutoGenerated: true,
		HomeworkAssignments: models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"3"}}},
	})
	current := store.put(models.Occurrence{
		ProjectID: "project-1", StartTime: at("2024-01-08T10:00:00Z"), IsAutoGenerated: true,
		HomeworkChecks: models.HomeworkChecks{{TextbookID: "T1", Chapter: "1"}},
	})
	store.beforeChecksWrite = func(id string) {
		done := models.HomeworkChecks{{TextbookID: "T1", Chapter: "1", IsCompleted: true}}
		require.NoError(t, store.UpdateChecks(ctx, id, done, 0))
	}

	updated, err := NewHomeworkService(store, nil, nil, zap.NewNop()).OnOccurrenceLoaded(ctx, current)
	require.NoError(t, err)
	require.Len(t, updated.HomeworkChecks, 2)

	stored := store.get(current.ID)
	require.Len(t, stored.HomeworkChecks, 2)
	assert.True(t, stored.HomeworkChecks[0].IsCompleted, "the toggle that landed first survives the carry-over")
	assert.Equal(t, "3", stored.HomeworkChecks[1].Chapter)
}

func TestSetCheckCompletionOnDeletedLesson(t *testing.T) {
	store, service := newOccurrenceFixture()
	ctx := context.Background()
	occ := store.put(models.Occurrence{
		ProjectID: "project-1", StartTime: at("2024-01-08T10:00:00Z"),
		HomeworkChecks: models.HomeworkChecks{{TextbookID: "T1", Chapter: "1"}},
	})
	store.beforeChecksWrite = func(id string) {
		require.NoError(t, store.Delete(ctx, id))
	}

	_, err := service.SetCheckCompletion(ctx, occ.ID, CheckToggle{TextbookID: "T1", Chapter: "1", Completed: true})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

type alwaysStaleChecks struct {
	*memoryOccurrences
	attempts int
}

func (a *alwaysStaleChecks) UpdateChecks(ctx context.Context, id string, checks models.HomeworkChecks, expectedVersion int) error {
	a.attempts++
	return sql.ErrNoRows
}

func TestCheckWriterGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := &alwaysStaleChecks{memoryOccurrences: newMemoryOccurrences()}
	occ := store.put(models.Occurrence{ProjectID: "project-1", StartTime: at("2024-01-08T10:00:00Z")})
	writer := checkWriter{reader: store, dispatcher: newCommandDispatcher(store, zap.NewNop())}

	_, written, err := writer.write(context.Background(), occ, carryOverCommand, func(current models.HomeworkChecks) (models.HomeworkChecks, bool, error) {
		merged, added := current.Merge(models.HomeworkChecks{{TextbookID: "T1", Chapter: "1"}})
		return merged, added > 0, nil
	})
	assert.False(t, written)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, maxCheckWriteAttempts, store.attempts)
}
