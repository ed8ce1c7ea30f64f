package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CarriedFromCancellationNote marks checks transferred from a cancelled lesson.
const CarriedFromCancellationNote = "carried from cancelled lesson"

// HomeworkAssignment is work assigned at one lesson and due at the next.
type HomeworkAssignment struct {
	TextbookID   string   `json:"textbook_id" validate:"required"`
	TextbookName string   `json:"textbook_name"`
	Chapters     []string `json:"chapters" validate:"required,min=1,dive,required"`
}

// HomeworkCheck is a trackable item for work due at a lesson.
type HomeworkCheck struct {
	TextbookID   string     `json:"textbook_id"`
	TextbookName string     `json:"textbook_name"`
	Chapter      string     `json:"chapter"`
	IsCompleted  bool       `json:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Note         *string    `json:"note,omitempty"`
}

// Key identifies a check for deduplication.
func (c HomeworkCheck) Key() HomeworkKey {
	return HomeworkKey{TextbookID: c.TextbookID, Chapter: c.Chapter}
}

// HomeworkKey is the (textbook_id, chapter) pair that must be unique per lesson.
type HomeworkKey struct {
	TextbookID string
	Chapter    string
}

// HomeworkAssignments is stored as a JSON document.
type HomeworkAssignments []HomeworkAssignment

// Value implements driver.Valuer.
func (a HomeworkAssignments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (a *HomeworkAssignments) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// Flatten expands assignments into one open check per chapter.
func (a HomeworkAssignments) Flatten(note *string) HomeworkChecks {
	var checks HomeworkChecks
	for _, assignment := range a {
		for _, chapter := range assignment.Chapters {
			check := HomeworkCheck{
				TextbookID:   assignment.TextbookID,
				TextbookName: assignment.TextbookName,
				Chapter:      chapter,
			}
			if note != nil {
				n := *note
				check.Note = &n
			}
			checks = append(checks, check)
		}
	}
	return checks
}

// HomeworkChecks is stored as a JSON document.
type HomeworkChecks []HomeworkCheck

// Value implements driver.Valuer.
func (c HomeworkChecks) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (c *HomeworkChecks) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// Merge appends candidates whose key is not present yet. Existing checks are kept as-is,
// and the returned count is the number of appended items.
func (c HomeworkChecks) Merge(candidates HomeworkChecks) (HomeworkChecks, int) {
	seen := make(map[HomeworkKey]struct{}, len(c)+len(candidates))
	merged := make(HomeworkChecks, 0, len(c)+len(candidates))
	for _, check := range c {
		seen[check.Key()] = struct{}{}
		merged = append(merged, check)
	}
	added := 0
	for _, candidate := range candidates {
		if _, ok := seen[candidate.Key()]; ok {
			continue
		}
		seen[candidate.Key()] = struct{}{}
		merged = append(merged, candidate)
		added++
	}
	return merged, added
}

// HasDuplicates reports whether two checks share a key.
func (c HomeworkChecks) HasDuplicates() bool {
	seen := make(map[HomeworkKey]struct{}, len(c))
	for _, check := range c {
		if _, ok := seen[check.Key()]; ok {
			return true
		}
		seen[check.Key()] = struct{}{}
	}
	return false
}

func scanJSON(src interface{}, dest interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
