package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type cancellationFixture struct {
	store   *memoryOccurrences
	defs    *memoryDefinitions
	metrics *MetricsService
	clock   time.Time
	service *CancellationService
}

func newCancellationFixture(t *testing.T) *cancellationFixture {
	t.Helper()
	f := &cancellationFixture{
		store: newMemoryOccurrences(),
		defs: newMemoryDefinitions(models.ScheduleDefinition{
			ID:               "project-1",
			Name:             "Piano",
			ProjectType:      models.ProjectTypeStudent,
			ScheduleTemplate: models.ScheduleTemplate{{Day: int(time.Monday), Time: "10:00", Duration: 45}},
		}),
		metrics: NewMetricsService(),
		clock:   *at("2024-01-01T08:00:00Z"),
	}
	f.service = NewCancellationService(f.store, f.defs, nil, f.metrics, zap.NewNop(), CancellationConfig{
		PendingTTL: 10 * time.Minute,
		Now:        func() time.Time { return f.clock },
	})
	return f
}

func (f *cancellationFixture) lesson(start string, assignments models.HomeworkAssignments, checks models.HomeworkChecks) *models.Occurrence {
	return f.store.put(models.Occurrence{
		ProjectID:           "project-1",
		Title:               "Piano",
		StartTime:           at(start),
		IsAutoGenerated:     true,
		HomeworkAssignments: assignments,
		HomeworkChecks:      checks,
	})
}

func TestCancelLessonMakeupFirstDefersCancellation(t *testing.T) {
	f := newCancellationFixture(t)
	original := f.lesson("2024-01-01T10:00:00Z", models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"3", "4"}}}, nil)

	result, err := f.service.CancelLesson(context.Background(), original.ID, CancelModeMakeupFirst)
	require.NoError(t, err)
	assert.NotEmpty(t, result.PendingToken)
	require.NotNil(t, result.ExpiresAt)
	assert.Equal(t, f.clock.Add(10*time.Minute), *result.ExpiresAt)

	stored := f.store.get(original.ID)
	assert.False(t, stored.IsCancelled, "original must stay active until the makeup is placed")
	assert.Len(t, stored.HomeworkAssignments, 1)

	repeat, err := f.service.CancelLesson(context.Background(), original.ID, CancelModeMakeupFirst)
	require.NoError(t, err)
	assert.Equal(t, result.PendingToken, repeat.PendingToken)
}

func TestPlaceMakeupMovesHomeworkAndCancelsOriginal(t *testing.T) {
	f := newCancellationFixture(t)
	original := f.lesson("2024-01-01T10:00:00Z", models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"3", "4"}}}, nil)
	pending, err := f.service.CancelLesson(context.Background(), original.ID, CancelModeMakeupFirst)
	require.NoError(t, err)

	result, err := f.service.PlaceMakeup(context.Background(), pending.PendingToken, *at("2024-01-03T15:00:00Z"))
	require.NoError(t, err)

	makeup := result.Target
	require.NotNil(t, makeup)
	assert.True(t, makeup.IsMakeup)
	assert.False(t, makeup.IsAutoGenerated)
	assert.Equal(t, 45, makeup.Duration)
	assert.Equal(t, "Piano", makeup.Title)
	require.NotNil(t, makeup.ReplacesOccurrenceID)
	assert.Equal(t, original.ID, *makeup.ReplacesOccurrenceID)

	stored := f.store.get(makeup.ID)
	require.Len(t, stored.HomeworkChecks, 2)
	assert.Equal(t, models.HomeworkKey{TextbookID: "T1", Chapter: "3"}, stored.HomeworkChecks[0].Key())
	assert.Equal(t, models.HomeworkKey{TextbookID: "T1", Chapter: "4"}, stored.HomeworkChecks[1].Key())
	for _, check := range stored.HomeworkChecks {
		assert.False(t, check.IsCompleted)
		require.NotNil(t, check.Note)
		assert.Equal(t, models.CarriedFromCancellationNote, *check.Note)
	}

	cancelled := f.store.get(original.ID)
	assert.True(t, cancelled.IsCancelled)
	assert.Equal(t, models.OccurrenceStatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.HomeworkAssignments)
	assert.True(t, result.Cancelled.IsCancelled)

	snapshot := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.Cancellations)
	assert.Equal(t, uint64(2), snapshot.ChecksCarried)
	assert.Equal(t, uint64(1), snapshot.OccurrencesCreated)

	_, err = f.service.PlaceMakeup(context.Background(), pending.PendingToken, *at("2024-01-03T15:00:00Z"))
	assert.True(t, appErrors.Is(err, appErrors.ErrPendingCancelNotFound))
}

func TestPlaceMakeupRetryReusesCreatedMakeup(t *testing.T) {
	f := newCancellationFixture(t)
	original := f.lesson("2024-01-01T10:00:00Z", models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"3"}}}, nil)
	pending, err := f.service.CancelLesson(context.Background(), original.ID, CancelModeMakeupFirst)
	require.NoError(t, err)

	f.store.failOn["MarkCancelled"] = errors.New("connection reset")
	_, err = f.service.PlaceMakeup(context.Background(), pending.PendingToken, *at("2024-01-03T15:00:00Z"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCancellationFailed))
	assert.False(t, f.store.get(original.ID).IsCancelled)

	delete(f.store.failOn, "MarkCancelled")
	result, err := f.service.PlaceMakeup(context.Background(), pending.PendingToken, *at("2024-01-03T15:00:00Z"))
	require.NoError(t, err)

	makeups := 0
	for _, occ := range f.store.all() {
		if occ.IsMakeup {
			makeups++
			assert.Equal(t, result.Target.ID, occ.ID)
			assert.Len(t, occ.HomeworkChecks, 1)
		}
	}
	assert.Equal(t, 1, makeups)
	assert.True(t, f.store.get(original.ID).IsCancelled)
}

func TestAbandonMakeupLeavesOriginalUntouched(t *testing.T) {
	f := newCancellationFixture(t)
	original := f.lesson("2024-01-01T10:00:00Z", models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"3"}}}, nil)
	pending, err := f.service.CancelLesson(context.Background(), original.ID, CancelModeMakeupFirst)
	require.NoError(t, err)

	require.NoError(t, f.service.AbandonMakeup(context.Background(), pending.PendingToken))
	assert.Equal(t, *original, f.store.get(original.ID))
	assert.Len(t, f.store.all(), 1)

	assert.True(t, appErrors.Is(f.service.AbandonMakeup(context.Background(), pending.PendingToken), appErrors.ErrPendingCancelNotFound))
	_, err = f.service.PlaceMakeup(context.Background(), pending.PendingToken, *at("2024-01-03T15:00:00Z"))
	assert.True(t, appErrors.Is(err, appErrors.ErrPendingCancelNotFound))
}

func TestAbandonMakeupRemovesMakeupFromFailedPlacement(t *testing.T) {
	f := newCancellationFixture(t)
	ctx := context.Background()
	original := f.lesson("2024-01-01T10:00:00Z", models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"3"}}}, nil)
	pending, err := f.service.CancelLesson(ctx, original.ID, CancelModeMakeupFirst)
	require.NoError(t, err)

	f.store.failOn["MarkCancelled"] = errors.New("connection reset")
	_, err = f.service.PlaceMakeup(ctx, pending.PendingToken, *at("2024-01-03T15:00:00Z"))
	require.Error(t, err)
	delete(f.store.failOn, "MarkCancelled")
	require.Len(t, f.store.all(), 2, "the makeup was created before the failing step")

	require.NoError(t, f.service.AbandonMakeup(ctx, pending.PendingToken))
	lessons := f.store.all()
	require.Len(t, lessons, 1)
	assert.Equal(t, original.ID, lessons[0].ID)
	assert.False(t, lessons[0].IsCancelled)
	assert.Len(t, lessons[0].HomeworkAssignments, 1)
}

func TestAbandonMakeupKeepsPendingContextWhenDeleteFails(t *testing.T) {
	f := newCancellationFixture(t)
	ctx := context.Background()
	original := f.lesson("2024-01-01T10:00:00Z", nil, nil)
	pending, err := f.service.CancelLesson(ctx, original.ID, CancelModeMakeupFirst)
	require.NoError(t, err)

	f.store.failOn["MarkCancelled"] = errors.New("connection reset")
	_, err = f.service.PlaceMakeup(ctx, pending.PendingToken, *at("2024-01-03T15:00:00Z"))
	require.Error(t, err)
	delete(f.store.failOn, "MarkCancelled")

	f.store.failOn["Delete"] = errors.New("connection reset")
	err = f.service.AbandonMakeup(ctx, pending.PendingToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	delete(f.store.failOn, "Delete")

	require.NoError(t, f.service.AbandonMakeup(ctx, pending.PendingToken))
	assert.Len(t, f.store.all(), 1)
}

func TestPlaceMakeupAfterExpiryIsAbandoned(t *testing.T) {
	f := newCancellationFixture(t)
	original := f.lesson("2024-01-01T10:00:00Z", nil, nil)
	pending, err := f.service.CancelLesson(context.Background(), original.ID, CancelModeMakeupFirst)
	require.NoError(t, err)

	f.clock = f.clock.Add(11 * time.Minute)
	_, err = f.service.PlaceMakeup(context.Background(), pending.PendingToken, *at("2024-01-03T15:00:00Z"))
	assert.True(t, appErrors.Is(err, appErrors.ErrPendingCancelNotFound))
	assert.False(t, f.store.get(original.ID).IsCancelled)
}

func TestPlaceMakeupRequiresStartTime(t *testing.T) {
	f := newCancellationFixture(t)
	_, err := f.service.PlaceMakeup(context.Background(), "token", time.Time{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCancelLessonForwardNextMergesIntoNextLesson(t *testing.T) {
	f := newCancellationFixture(t)
	cancelled := f.lesson("2024-01-01T10:00:00Z", models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"1", "5"}}}, nil)
	next := f.lesson("2024-01-08T10:00:00Z", nil, models.HomeworkChecks{{TextbookID: "T1", Chapter: "1"}})

	result, err := f.service.CancelLesson(context.Background(), cancelled.ID, CancelModeForwardNext)
	require.NoError(t, err)
	assert.Equal(t, CancelModeForwardNext, result.Mode)
	assert.Equal(t, next.ID, result.Target.ID)

	checks := f.store.get(next.ID).HomeworkChecks
	require.Len(t, checks, 2)
	assert.Equal(t, models.HomeworkKey{TextbookID: "T1", Chapter: "1"}, checks[0].Key())
	assert.Nil(t, checks[0].Note, "existing check is kept as-is")
	assert.Equal(t, models.HomeworkKey{TextbookID: "T1", Chapter: "5"}, checks[1].Key())
	require.NotNil(t, checks[1].Note)

	stored := f.store.get(cancelled.ID)
	assert.True(t, stored.IsCancelled)
	assert.Empty(t, stored.HomeworkAssignments)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().ChecksCarried)
}

func TestCancelLessonForwardNextRetryAddsNoDuplicateChecks(t *testing.T) {
	f := newCancellationFixture(t)
	ctx := context.Background()
	cancelled := f.lesson("2024-01-01T10:00:00Z", models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"1", "5"}}}, nil)
	next := f.lesson("2024-01-08T10:00:00Z", nil, models.HomeworkChecks{{TextbookID: "T1", Chapter: "1"}})

	f.store.failOn["MarkCancelled"] = errors.New("connection reset")
	_, err := f.service.CancelLesson(ctx, cancelled.ID, CancelModeForwardNext)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCancellationFailed))
	assert.False(t, f.store.get(cancelled.ID).IsCancelled)
	assert.Len(t, f.store.get(next.ID).HomeworkChecks, 2, "homework was forwarded before the failing step")

	delete(f.store.failOn, "MarkCancelled")
	result, err := f.service.CancelLesson(ctx, cancelled.ID, CancelModeForwardNext)
	require.NoError(t, err)
	assert.Equal(t, next.ID, result.Target.ID)

	checks := f.store.get(next.ID).HomeworkChecks
	require.Len(t, checks, 2)
	assert.False(t, checks.HasDuplicates())
	assert.True(t, f.store.get(cancelled.ID).IsCancelled)
	assert.Equal(t, 1, f.store.get(next.ID).ChecksVersion, "the retry found nothing new to write")
}

func TestCancelLessonForwardNextSkipsCancelledLessons(t *testing.T) {
	f := newCancellationFixture(t)
	first := f.lesson("2024-01-01T10:00:00Z", models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"2"}}}, nil)
	skipped := f.store.put(models.Occurrence{
		ProjectID: "project-1", StartTime: at("2024-01-08T10:00:00Z"), IsAutoGenerated: true,
		IsCancelled: true, Status: models.OccurrenceStatusCancelled,
	})
	target := f.lesson("2024-01-15T10:00:00Z", nil, nil)

	result, err := f.service.CancelLesson(context.Background(), first.ID, CancelModeForwardNext)
	require.NoError(t, err)
	assert.Equal(t, target.ID, result.Target.ID)
	assert.Empty(t, f.store.get(skipped.ID).HomeworkChecks)
	assert.Len(t, f.store.get(target.ID).HomeworkChecks, 1)
}

func TestCancelLessonForwardNextWithoutNextLessonAborts(t *testing.T) {
	f := newCancellationFixture(t)
	last := f.lesson("2024-01-01T10:00:00Z", models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"1"}}}, nil)

	_, err := f.service.CancelLesson(context.Background(), last.ID, CancelModeForwardNext)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoNextOccurrence))

	stored := f.store.get(last.ID)
	assert.False(t, stored.IsCancelled)
	assert.Len(t, stored.HomeworkAssignments, 1)
}

func TestCancelLessonRejectsTerminalLesson(t *testing.T) {
	f := newCancellationFixture(t)
	occ := f.store.put(models.Occurrence{
		ProjectID: "project-1", StartTime: at("2024-01-01T10:00:00Z"), IsCancelled: true, Status: models.OccurrenceStatusCancelled,
	})
	f.lesson("2024-01-08T10:00:00Z", nil, nil)

	for _, mode := range []CancelMode{CancelModeMakeupFirst, CancelModeForwardNext} {
		_, err := f.service.CancelLesson(context.Background(), occ.ID, mode)
		assert.True(t, appErrors.Is(err, appErrors.ErrOccurrenceCancelled), string(mode))
	}
}

func TestCancelLessonValidatesInput(t *testing.T) {
	f := newCancellationFixture(t)
	occ := f.lesson("2024-01-01T10:00:00Z", nil, nil)

	_, err := f.service.CancelLesson(context.Background(), "missing", CancelModeForwardNext)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = f.service.CancelLesson(context.Background(), occ.ID, CancelMode("sideways"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
