package service

import (
	"context"
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

type occurrenceReader interface {
	FindByID(ctx context.Context, id string) (*models.Occurrence, error)
	Query(ctx context.Context, filter models.OccurrenceFilter) ([]models.Occurrence, error)
	FindPrevious(ctx context.Context, projectID string, before time.Time) (*models.Occurrence, error)
	FindNext(ctx context.Context, projectID string, after time.Time) (*models.Occurrence, error)
}

type occurrenceWriter interface {
	Create(ctx context.Context, occ *models.Occurrence) (bool, error)
	UpdateSchedule(ctx context.Context, id string, start time.Time, duration int, markModified bool) error
	UpdateChecks(ctx context.Context, id string, checks models.HomeworkChecks, expectedVersion int) error
	UpdateAssignments(ctx context.Context, id string, assignments models.HomeworkAssignments) error
	MarkCancelled(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type occurrenceStore interface {
	occurrenceReader
	occurrenceWriter
}

type scheduleDefinitionStore interface {
	Create(ctx context.Context, def *models.ScheduleDefinition) error
	FindByID(ctx context.Context, id string) (*models.ScheduleDefinition, error)
	ListStudents(ctx context.Context) ([]models.ScheduleDefinition, error)
	UpdateTemplate(ctx context.Context, def *models.ScheduleDefinition) error
}

const (
	dateLayout         = "2006-01-02"
	agendaCachePattern = "agenda:*"
)

func agendaCacheKey(date string) string {
	return "agenda:" + date
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// calendarDate reads a date-only value stored at UTC midnight as local midnight of the same date.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, loc)
}

func boolPtr(v bool) *bool {
	return &v
}
