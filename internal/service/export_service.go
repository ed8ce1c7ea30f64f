package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/export"
)

type agendaSource interface {
	DayAgenda(ctx context.Context, date string) (*models.DayAgenda, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportedFile is a rendered document ready to be served or written.
type ExportedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders day agendas as CSV or PDF.
type ExportService struct {
	agenda agendaSource
	csv    tableRenderer
	pdf    tableRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(agenda agendaSource, csv, pdf tableRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{agenda: agenda, csv: csv, pdf: pdf, logger: logger}
}

// DayAgenda renders one day in the requested format.
func (s *ExportService) DayAgenda(ctx context.Context, date, format string) (*ExportedFile, error) {
	f, err := export.ParseFormat(strings.ToLower(format))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	agenda, err := s.agenda.DayAgenda(ctx, date)
	if err != nil {
		return nil, err
	}
	table := agendaTable(agenda)

	var data []byte
	switch f {
	case export.FormatPDF:
		data, err = s.pdf.Render(table)
	default:
		data, err = s.csv.Render(table)
	}
	if err != nil {
		s.logger.Error("agenda export failed", zap.String("date", date), zap.String("format", string(f)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render agenda")
	}
	return &ExportedFile{
		Filename:    fmt.Sprintf("agenda-%s.%s", date, f),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

func agendaTable(agenda *models.DayAgenda) export.Table {
	loc, err := time.LoadLocation(agenda.Timezone)
	if err != nil {
		loc = time.UTC
	}
	table := export.Table{
		Title:    "Lessons " + agenda.Date,
		Subtitle: "Times in " + loc.String(),
		Columns: []export.Column{
			{Header: "Start", Weight: 1},
			{Header: "End", Weight: 1},
			{Header: "Lesson", Weight: 3},
			{Header: "Status", Weight: 1.2},
			{Header: "Kind", Weight: 1},
			{Header: "Homework due", Weight: 4},
			{Header: "Homework set", Weight: 4},
		},
	}
	for _, item := range agenda.Items {
		occ := item.Occurrence
		start, end := "", ""
		if occ.StartTime != nil {
			start = occ.StartTime.In(loc).Format("15:04")
			end = occ.EndTime().In(loc).Format("15:04")
		}
		table.Rows = append(table.Rows, []string{
			start,
			end,
			occ.Title,
			string(occ.Status),
			lessonKind(&occ),
			describeChecks(occ.HomeworkChecks),
			describeAssignments(occ.HomeworkAssignments),
		})
	}
	return table
}

func lessonKind(occ *models.Occurrence) string {
	switch {
	case occ.IsMakeup:
		return "makeup"
	case occ.IsAutoGenerated:
		return "regular"
	default:
		return "manual"
	}
}

func describeChecks(checks models.HomeworkChecks) string {
	parts := make([]string, 0, len(checks))
	for _, check := range checks {
		mark := "[ ]"
		if check.IsCompleted {
			mark = "[x]"
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", mark, textbookLabel(check.TextbookName, check.TextbookID), check.Chapter))
	}
	return strings.Join(parts, "; ")
}

func describeAssignments(assignments models.HomeworkAssignments) string {
	parts := make([]string, 0, len(assignments))
	for _, a := range assignments {
		parts = append(parts, fmt.Sprintf("%s %s", textbookLabel(a.TextbookName, a.TextbookID), strings.Join(a.Chapters, ", ")))
	}
	return strings.Join(parts, "; ")
}

func textbookLabel(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
