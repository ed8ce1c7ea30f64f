package service

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

type agendaStub struct {
	agenda *models.DayAgenda
	err    error
}

func (s agendaStub) DayAgenda(ctx context.Context, date string) (*models.DayAgenda, error) {
	return s.agenda, s.err
}

func sampleAgenda() *models.DayAgenda {
	return &models.DayAgenda{
		Date:     "2024-01-01",
		Timezone: "UTC",
		Items: []models.AgendaItem{
			{Occurrence: models.Occurrence{
				ID: "occ-1", Title: "Piano", StartTime: at("2024-01-01T10:00:00Z"), Duration: 45,
				Status: models.OccurrenceStatusScheduled, IsAutoGenerated: true,
				HomeworkChecks: models.HomeworkChecks{
					{TextbookID: "T1", TextbookName: "Scales", Chapter: "1", IsCompleted: true},
					{TextbookID: "T2", Chapter: "4"},
				},
				HomeworkAssignments: models.HomeworkAssignments{{TextbookID: "T1", TextbookName: "Scales", Chapters: []string{"2", "3"}}},
			}},
			{Occurrence: models.Occurrence{
				ID: "occ-2", Title: "Violin", StartTime: at("2024-01-01T14:00:00Z"), Status: models.OccurrenceStatusScheduled, IsMakeup: true,
			}},
		},
	}
}

func TestExportServiceDayAgendaCSV(t *testing.T) {
	service := NewExportService(agendaStub{agenda: sampleAgenda()}, nil, nil, zap.NewNop())

	file, err := service.DayAgenda(context.Background(), "2024-01-01", "")
	require.NoError(t, err)
	assert.Equal(t, "agenda-2024-01-01.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(strings.NewReader(string(file.Data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Start", "End", "Lesson", "Status", "Kind", "Homework due", "Homework set"}, records[0])
	assert.Equal(t, []string{"10:00", "10:45", "Piano", "scheduled", "regular", "[x] Scales 1; [ ] T2 4", "Scales 2, 3"}, records[1])
	assert.Equal(t, "14:40", records[2][1])
	assert.Equal(t, "makeup", records[2][4])
}

func TestExportServiceDayAgendaPDF(t *testing.T) {
	service := NewExportService(agendaStub{agenda: sampleAgenda()}, nil, nil, nil)

	file, err := service.DayAgenda(context.Background(), "2024-01-01", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "agenda-2024-01-01.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	service := NewExportService(agendaStub{agenda: sampleAgenda()}, nil, nil, nil)
	_, err := service.DayAgenda(context.Background(), "2024-01-01", "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServicePropagatesAgendaErrors(t *testing.T) {
	service := NewExportService(agendaStub{err: appErrors.Clone(appErrors.ErrValidation, "dates must use YYYY-MM-DD")}, nil, nil, nil)
	_, err := service.DayAgenda(context.Background(), "bad", "csv")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
