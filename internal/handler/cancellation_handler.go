package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type lessonCanceller interface {
	CancelLesson(ctx context.Context, occurrenceID string, mode service.CancelMode) (*service.CancellationResult, error)
	PlaceMakeup(ctx context.Context, token string, start time.Time) (*service.CancellationResult, error)
	AbandonMakeup(ctx context.Context, token string) error
}

// CancellationHandler exposes the cancel and makeup endpoints.
type CancellationHandler struct {
	service  lessonCanceller
	validate *validator.Validate
}

// NewCancellationHandler constructs the handler.
func NewCancellationHandler(svc lessonCanceller, validate *validator.Validate) *CancellationHandler {
	return &CancellationHandler{service: svc, validate: orDefaultValidator(validate)}
}

// Cancel godoc
// @Summary Cancel a lesson
// @Description forward-next moves homework to the next lesson and cancels immediately. makeup-first returns a pending token; the lesson is cancelled once a makeup slot is placed with it.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body dto.CancelOccurrenceRequest true "Cancel mode"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /occurrences/{id}/cancel [post]
func (h *CancellationHandler) Cancel(c *gin.Context) {
	var req dto.CancelOccurrenceRequest
	if !bindJSON(c, h.validate, &req, "invalid cancel payload") {
		return
	}
	result, err := h.service.CancelLesson(c.Request.Context(), c.Param("id"), service.CancelMode(req.Mode))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.PendingToken != "" {
		response.Accepted(c, result)
		return
	}
	response.OK(c, result)
}

// PlaceMakeup godoc
// @Summary Place the makeup lesson for a pending cancellation
// @Description Safe to retry after a failure: a makeup created by an earlier attempt is reused.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param token path string true "Pending cancellation token"
// @Param payload body dto.PlaceMakeupRequest true "Makeup start"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /makeups/{token} [post]
func (h *CancellationHandler) PlaceMakeup(c *gin.Context) {
	var req dto.PlaceMakeupRequest
	if !bindJSON(c, h.validate, &req, "invalid makeup payload") {
		return
	}
	result, err := h.service.PlaceMakeup(c.Request.Context(), c.Param("token"), req.StartTime)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// AbandonMakeup godoc
// @Summary Abandon a pending cancellation
// @Description The lesson stays scheduled with its homework untouched.
// @Tags Lessons
// @Param token path string true "Pending cancellation token"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /makeups/{token} [delete]
func (h *CancellationHandler) AbandonMakeup(c *gin.Context) {
	if err := h.service.AbandonMakeup(c.Request.Context(), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
