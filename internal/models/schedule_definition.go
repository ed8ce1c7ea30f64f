package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ProjectTypeStudent marks schedule definitions that produce lessons.
const ProjectTypeStudent = "student"

// TemplateSlot is one weekly recurrence: weekday (0 = Sunday), local HH:MM and duration in minutes.
// Key identifies the slot across template edits; 0 means not yet assigned.
type TemplateSlot struct {
	Key      int    `json:"key,omitempty" validate:"min=0"`
	Day      int    `json:"day" validate:"min=0,max=6"`
	Time     string `json:"time" validate:"required,datetime=15:04"`
	Duration int    `json:"duration" validate:"omitempty,min=1,max=720"`
}

// Clock parses Time into hour and minute.
func (s TemplateSlot) Clock() (int, int, error) {
	parsed, err := time.Parse("15:04", s.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid slot time %q: %w", s.Time, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// EffectiveDuration applies the default lesson length.
func (s TemplateSlot) EffectiveDuration() int {
	if s.Duration <= 0 {
		return DefaultLessonDuration
	}
	return s.Duration
}

func (s TemplateSlot) sameClock(other TemplateSlot) bool {
	h1, m1, err1 := s.Clock()
	h2, m2, err2 := other.Clock()
	if err1 != nil || err2 != nil {
		return s.Time == other.Time
	}
	return h1 == h2 && m1 == m2
}

// ScheduleTemplate is stored as a JSON document.
type ScheduleTemplate []TemplateSlot

// Keyed returns a copy in which every slot has a unique positive Key. Explicit keys are kept.
// An unkeyed slot inherits the key of an unclaimed previous slot with the same day and time,
// then of one on the same day. Remaining slots get fresh keys above every key seen.
func (t ScheduleTemplate) Keyed(previous ScheduleTemplate) ScheduleTemplate {
	if t == nil {
		return nil
	}
	var prev ScheduleTemplate
	if len(previous) > 0 {
		prev = previous.Keyed(nil)
	}
	out := make(ScheduleTemplate, len(t))
	copy(out, t)

	used := make(map[int]bool, len(out))
	highest := 0
	for _, slot := range prev {
		if slot.Key > highest {
			highest = slot.Key
		}
	}
	for i := range out {
		key := out[i].Key
		if key <= 0 || used[key] {
			out[i].Key = 0
			continue
		}
		used[key] = true
		if key > highest {
			highest = key
		}
	}

	inherit := func(match func(next, old TemplateSlot) bool) {
		for i := range out {
			if out[i].Key != 0 {
				continue
			}
			for _, old := range prev {
				if !used[old.Key] && match(out[i], old) {
					out[i].Key = old.Key
					used[old.Key] = true
					break
				}
			}
		}
	}
	inherit(func(next, old TemplateSlot) bool { return next.Day == old.Day && next.sameClock(old) })
	inherit(func(next, old TemplateSlot) bool { return next.Day == old.Day })

	for i := range out {
		if out[i].Key == 0 {
			highest++
			out[i].Key = highest
		}
	}
	return out
}

// ForDay returns the slots recurring on the weekday.
func (t ScheduleTemplate) ForDay(day time.Weekday) []TemplateSlot {
	var slots []TemplateSlot
	for _, slot := range t {
		if slot.Day == int(day) {
			slots = append(slots, slot)
		}
	}
	return slots
}

// Value implements driver.Valuer.
func (t ScheduleTemplate) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (t *ScheduleTemplate) Scan(src interface{}) error {
	return scanJSON(src, t)
}

// ScheduleDefinition is a student project with its weekly template and validity range.
type ScheduleDefinition struct {
	ID               string           `db:"id" json:"id"`
	Name             string           `db:"name" json:"name"`
	ProjectType      string           `db:"project_type" json:"project_type"`
	ScheduleTemplate ScheduleTemplate `db:"schedule_template" json:"schedule_template"`
	StartDate        time.Time        `db:"start_date" json:"start_date"`
	EndDate          *time.Time       `db:"end_date" json:"end_date,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// MakeupDuration is the duration used for manually placed makeup lessons.
func (d *ScheduleDefinition) MakeupDuration() int {
	if d == nil || len(d.ScheduleTemplate) == 0 {
		return DefaultLessonDuration
	}
	return d.ScheduleTemplate[0].EffectiveDuration()
}
