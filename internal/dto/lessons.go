package dto

import (
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

// CalendarQuery selects an inclusive range of calendar dates.
type CalendarQuery struct {
	From string `form:"from" validate:"required,datetime=2006-01-02"`
	To   string `form:"to" validate:"required,datetime=2006-01-02"`
}

// RescheduleOccurrenceRequest moves a lesson by hand.
type RescheduleOccurrenceRequest struct {
	StartTime time.Time `json:"startTime" validate:"required"`
	Duration  int       `json:"duration" validate:"omitempty,min=1,max=720"`
}

// SetAssignmentsRequest replaces the homework set at a lesson.
type SetAssignmentsRequest struct {
	Assignments []models.HomeworkAssignment `json:"assignments" validate:"dive"`
}

// ToggleCheckRequest marks one homework check done or open.
type ToggleCheckRequest struct {
	TextbookID string `json:"textbookId" validate:"required"`
	Chapter    string `json:"chapter" validate:"required"`
	Completed  *bool  `json:"completed" validate:"required"`
}

// CancelOccurrenceRequest selects how homework is handled on cancellation.
type CancelOccurrenceRequest struct {
	Mode string `json:"mode" validate:"required,oneof=makeup-first forward-next"`
}

// PlaceMakeupRequest picks the makeup slot for a pending cancellation.
type PlaceMakeupRequest struct {
	StartTime time.Time `json:"startTime" validate:"required"`
}
