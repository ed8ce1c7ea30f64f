package models

import "time"

// OccurrenceStatus enumerates lesson lifecycle states.
type OccurrenceStatus string

const (
	OccurrenceStatusScheduled OccurrenceStatus = "scheduled"
	OccurrenceStatusCompleted OccurrenceStatus = "completed"
	OccurrenceStatusCancelled OccurrenceStatus = "cancelled"
	OccurrenceStatusInbox     OccurrenceStatus = "inbox"
	OccurrenceStatusWaiting   OccurrenceStatus = "waiting"
)

// DefaultLessonDuration is used when neither the template nor the record specify one.
const DefaultLessonDuration = 40

// Occurrence is one concrete lesson on the calendar.
type Occurrence struct {
	ID                   string              `db:"id" json:"id"`
	ProjectID            string              `db:"project_id" json:"project_id"`
	Title                string              `db:"title" json:"title"`
	StartTime            *time.Time          `db:"start_time" json:"start_time,omitempty"`
	Duration             int                 `db:"duration" json:"duration"`
	Status               OccurrenceStatus    `db:"status" json:"status"`
	IsAutoGenerated      bool                `db:"is_auto_generated" json:"is_auto_generated"`
	IsMakeup             bool                `db:"is_makeup" json:"is_makeup"`
	IsCancelled          bool                `db:"is_cancelled" json:"is_cancelled"`
	IsModified           bool                `db:"is_modified" json:"is_modified"`
	SlotKey              *int                `db:"slot_key" json:"slot_key,omitempty"`
	OccurrenceDate       *string             `db:"occurrence_date" json:"occurrence_date,omitempty"`
	ReplacesOccurrenceID *string             `db:"replaces_occurrence_id" json:"replaces_occurrence_id,omitempty"`
	HomeworkAssignments  HomeworkAssignments `db:"homework_assignments" json:"homework_assignments"`
	HomeworkChecks       HomeworkChecks      `db:"homework_checks" json:"homework_checks"`
	ChecksVersion        int                 `db:"checks_version" json:"checks_version"`
	CreatedAt            time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time           `db:"updated_at" json:"updated_at"`
}

// Cancelled reports whether the lesson reached its terminal state.
func (o *Occurrence) Cancelled() bool {
	return o.IsCancelled || o.Status == OccurrenceStatusCancelled
}

// EffectiveDuration returns the duration in minutes with the default applied.
func (o *Occurrence) EffectiveDuration() int {
	if o.Duration <= 0 {
		return DefaultLessonDuration
	}
	return o.Duration
}

// EndTime returns start plus duration; zero when the start is unknown.
func (o *Occurrence) EndTime() time.Time {
	if o.StartTime == nil {
		return time.Time{}
	}
	return o.StartTime.Add(time.Duration(o.EffectiveDuration()) * time.Minute)
}

// OccurrenceFilter narrows occurrence queries. Nil fields are ignored.
type OccurrenceFilter struct {
	ProjectID       string
	After           *time.Time
	Before          *time.Time
	IsCancelled     *bool
	IsAutoGenerated *bool
	DateFrom        string
	DateTo          string
}

// LayoutPosition places an occurrence horizontally inside a calendar day column.
type LayoutPosition struct {
	WidthPercent      float64 `json:"width_percent"`
	LeftOffsetPercent float64 `json:"left_offset_percent"`
}
