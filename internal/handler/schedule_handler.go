package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type scheduleManager interface {
	Create(ctx context.Context, req service.CreateScheduleRequest) (*models.ScheduleDefinition, error)
	List(ctx context.Context) ([]models.ScheduleDefinition, error)
	Get(ctx context.Context, id string) (*models.ScheduleDefinition, error)
	UpdateTemplate(ctx context.Context, id string, req service.UpdateTemplateRequest) (*models.ScheduleDefinition, error)
}

// ScheduleHandler manages schedule definition endpoints.
type ScheduleHandler struct {
	service  scheduleManager
	validate *validator.Validate
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleManager, validate *validator.Validate) *ScheduleHandler {
	return &ScheduleHandler{service: svc, validate: orDefaultValidator(validate)}
}

// Create godoc
// @Summary Create a student schedule
// @Description Stores the weekly template and starts generating its lessons in the background.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleRequest
	if !bindJSON(c, h.validate, &req, "invalid schedule payload") {
		return
	}
	def, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, def)
}

// List godoc
// @Summary List student schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	defs, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defs, map[string]interface{}{"total": len(defs)})
}

// Get godoc
// @Summary Get schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	def, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, def)
}

// UpdateTemplate godoc
// @Summary Replace a schedule's weekly template
// @Description Future generated lessons are moved, removed or added to match. Lessons moved by hand are left alone.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.UpdateTemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id}/template [put]
func (h *ScheduleHandler) UpdateTemplate(c *gin.Context) {
	var req service.UpdateTemplateRequest
	if !bindJSON(c, h.validate, &req, "invalid template payload") {
		return
	}
	def, err := h.service.UpdateTemplate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, def)
}
