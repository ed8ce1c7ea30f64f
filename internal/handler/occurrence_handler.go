package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type occurrenceEditor interface {
	Get(ctx context.Context, id string) (*models.Occurrence, error)
	Reschedule(ctx context.Context, id string, start time.Time, duration int) (*models.Occurrence, error)
	SetAssignments(ctx context.Context, id string, assignments models.HomeworkAssignments) (*models.Occurrence, error)
	SetCheckCompletion(ctx context.Context, id string, toggle service.CheckToggle) (*models.Occurrence, error)
}

// OccurrenceHandler exposes single-lesson endpoints.
type OccurrenceHandler struct {
	service  occurrenceEditor
	validate *validator.Validate
}

// NewOccurrenceHandler constructs the handler.
func NewOccurrenceHandler(svc occurrenceEditor, validate *validator.Validate) *OccurrenceHandler {
	return &OccurrenceHandler{service: svc, validate: orDefaultValidator(validate)}
}

// Get godoc
// @Summary Open a lesson
// @Description Loading a lesson carries the previous lesson's homework onto it as checks.
// @Tags Lessons
// @Produce json
// @Param id path string true "Occurrence ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /occurrences/{id} [get]
func (h *OccurrenceHandler) Get(c *gin.Context) {
	occ, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, occ)
}

// Reschedule godoc
// @Summary Move a lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body dto.RescheduleOccurrenceRequest true "New start"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /occurrences/{id}/schedule [patch]
func (h *OccurrenceHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleOccurrenceRequest
	if !bindJSON(c, h.validate, &req, "invalid reschedule payload") {
		return
	}
	occ, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req.StartTime, req.Duration)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, occ)
}

// SetAssignments godoc
// @Summary Set homework for the next lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body dto.SetAssignmentsRequest true "Assignments"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /occurrences/{id}/assignments [put]
func (h *OccurrenceHandler) SetAssignments(c *gin.Context) {
	var req dto.SetAssignmentsRequest
	if !bindJSON(c, h.validate, &req, "invalid assignments payload") {
		return
	}
	occ, err := h.service.SetAssignments(c.Request.Context(), c.Param("id"), models.HomeworkAssignments(req.Assignments))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, occ)
}

// ToggleCheck godoc
// @Summary Mark a homework check done or open
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body dto.ToggleCheckRequest true "Check"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /occurrences/{id}/checks [patch]
func (h *OccurrenceHandler) ToggleCheck(c *gin.Context) {
	var req dto.ToggleCheckRequest
	if !bindJSON(c, h.validate, &req, "invalid check payload") {
		return
	}
	occ, err := h.service.SetCheckCompletion(c.Request.Context(), c.Param("id"), service.CheckToggle{
		TextbookID: req.TextbookID,
		Chapter:    req.Chapter,
		Completed:  *req.Completed,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, occ)
}
