package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

func newDefinitionRepoMock(t *testing.T) (*ScheduleDefinitionRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewScheduleDefinitionRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestScheduleDefinitionRepositoryCreate(t *testing.T) {
	repo, mock, cleanup := newDefinitionRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO schedule_definitions").
		WithArgs(sqlmock.AnyArg(), "Piano", "student", `[{"day":1,"time":"10:00","duration":0}]`, sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	def := &models.ScheduleDefinition{
		Name:             "Piano",
		ScheduleTemplate: models.ScheduleTemplate{{Day: 1, Time: "10:00"}},
		StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), def))
	assert.NotEmpty(t, def.ID)
	assert.Equal(t, models.ProjectTypeStudent, def.ProjectType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleDefinitionRepositoryListStudents(t *testing.T) {
	repo, mock, cleanup := newDefinitionRepoMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "project_type", "schedule_template", "start_date", "end_date", "created_at", "updated_at"}).
		AddRow("def-1", "Piano", "student", `[{"day":1,"time":"10:00","duration":45}]`, now, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_definitions WHERE project_type = ? ORDER BY name ASC")).
		WithArgs("student").
		WillReturnRows(rows)

	defs, err := repo.ListStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 1)
	require.Len(t, defs[0].ScheduleTemplate, 1)
	assert.Equal(t, 45, defs[0].ScheduleTemplate[0].Duration)
	assert.Nil(t, defs[0].EndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleDefinitionRepositoryUpdateTemplateMissing(t *testing.T) {
	repo, mock, cleanup := newDefinitionRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_definitions SET schedule_template = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTemplate(context.Background(), &models.ScheduleDefinition{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
