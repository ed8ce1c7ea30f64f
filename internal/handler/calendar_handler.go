package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type calendarReader interface {
	Window(ctx context.Context, fromDate, toDate string) (*models.CalendarWindow, error)
	DayAgenda(ctx context.Context, date string) (*models.DayAgenda, error)
}

type agendaExporter interface {
	DayAgenda(ctx context.Context, date, format string) (*service.ExportedFile, error)
}

// CalendarHandler serves calendar navigation endpoints.
type CalendarHandler struct {
	calendar calendarReader
	exporter agendaExporter
	validate *validator.Validate
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(calendar calendarReader, exporter agendaExporter, validate *validator.Validate) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, exporter: exporter, validate: orDefaultValidator(validate)}
}

// Window godoc
// @Summary List lessons in a date range
// @Description Lessons missing from the range (plus a lookahead margin) are generated in the background; meta.generating reports whether a run was scheduled.
// @Tags Calendar
// @Produce json
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Window(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar query"))
		return
	}
	if err := h.validate.Struct(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "from and to must be YYYY-MM-DD dates"))
		return
	}
	window, err := h.calendar.Window(c.Request.Context(), query.From, query.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window.Occurrences, map[string]interface{}{
		"from":       window.From,
		"to":         window.To,
		"generating": window.Generating,
	})
}

// Day godoc
// @Summary Day agenda with layout
// @Description Lessons of one day with the width and left offset used to render overlapping lessons side by side.
// @Tags Calendar
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/days/{date} [get]
func (h *CalendarHandler) Day(c *gin.Context) {
	agenda, err := h.calendar.DayAgenda(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, agenda)
}

// Export godoc
// @Summary Export a day agenda
// @Tags Calendar
// @Produce text/csv
// @Produce application/pdf
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /calendar/days/{date}/export [get]
func (h *CalendarHandler) Export(c *gin.Context) {
	file, err := h.exporter.DayAgenda(c.Request.Context(), c.Param("date"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
