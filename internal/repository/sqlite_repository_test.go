package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
	"github.com/noah-isme/lesson-planner-api/pkg/database"
)

func newSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "lessons.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func TestSQLiteOccurrenceLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	defs := NewScheduleDefinitionRepository(db)
	occurrences := NewOccurrenceRepository(db)

	def := &models.ScheduleDefinition{
		Name:             "Piano",
		ScheduleTemplate: models.ScheduleTemplate{{Day: 1, Time: "10:00"}},
		StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, defs.Create(ctx, def))

	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 7)
	slot := 0
	mk := func(start time.Time) *models.Occurrence {
		day := start.Format("2006-01-02")
		s := start
		return &models.Occurrence{ProjectID: def.ID, Title: def.Name, StartTime: &s, IsAutoGenerated: true, SlotKey: &slot, OccurrenceDate: &day}
	}

	a := mk(first)
	created, err := occurrences.Create(ctx, a)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = occurrences.Create(ctx, mk(first))
	require.NoError(t, err)
	assert.False(t, created, "same generation key must not insert twice")

	b := mk(second)
	_, err = occurrences.Create(ctx, b)
	require.NoError(t, err)

	require.NoError(t, occurrences.UpdateAssignments(ctx, a.ID, models.HomeworkAssignments{{TextbookID: "T1", Chapters: []string{"1"}}}))

	prev, err := occurrences.FindPrevious(ctx, def.ID, second)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, a.ID, prev.ID)
	assert.Len(t, prev.HomeworkAssignments, 1)

	next, err := occurrences.FindNext(ctx, def.ID, first)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, b.ID, next.ID)

	require.NoError(t, occurrences.MarkCancelled(ctx, a.ID))
	require.NoError(t, occurrences.MarkCancelled(ctx, a.ID), "cancelling twice is idempotent")
	prev, err = occurrences.FindPrevious(ctx, def.ID, second)
	require.NoError(t, err)
	assert.Nil(t, prev)

	cancelled, err := occurrences.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	assert.Empty(t, cancelled.HomeworkAssignments)
	assert.ErrorIs(t, occurrences.UpdateSchedule(ctx, a.ID, second, 40, true), sql.ErrNoRows)

	active := false
	window, err := occurrences.Query(ctx, models.OccurrenceFilter{ProjectID: def.ID, IsCancelled: &active})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, b.ID, window[0].ID)

	checks := models.HomeworkChecks{{TextbookID: "T1", Chapter: "1"}}
	require.NoError(t, occurrences.UpdateChecks(ctx, b.ID, checks, 0))
	assert.ErrorIs(t, occurrences.UpdateChecks(ctx, b.ID, nil, 0), sql.ErrNoRows, "a stale version must not overwrite")
	stored, err := occurrences.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ChecksVersion)
	require.Len(t, stored.HomeworkChecks, 1)
}
