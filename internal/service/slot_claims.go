package service

import (
	"sort"
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

// slotClaims pairs the generated lessons of one calendar date with that weekday's slots.
type slotClaims struct {
	bySlot    map[int]*models.Occurrence
	unmatched []*models.Occurrence
}

func (c slotClaims) taken(key int) bool {
	_, ok := c.bySlot[key]
	return ok
}

// claimSlots matches lessons to slots by key, then by local start time, then to any free
// slot. Lessons the sync may not touch claim before the rest in every pass, so a cancelled or
// user-moved lesson always keeps its date's slot occupied.
func claimSlots(slots []models.TemplateSlot, lessons []*models.Occurrence, now time.Time, loc *time.Location) slotClaims {
	ordered := make([]*models.Occurrence, len(lessons))
	copy(ordered, lessons)
	sort.SliceStable(ordered, func(i, j int) bool {
		fi, fj := !reconcilable(ordered[i], now), !reconcilable(ordered[j], now)
		if fi != fj {
			return fi
		}
		return lessonBefore(ordered[i], ordered[j])
	})

	claims := slotClaims{bySlot: make(map[int]*models.Occurrence, len(slots))}
	matched := make(map[string]bool, len(ordered))
	passes := []func(slot models.TemplateSlot, occ *models.Occurrence) bool{
		func(slot models.TemplateSlot, occ *models.Occurrence) bool {
			return occ.SlotKey != nil && *occ.SlotKey == slot.Key
		},
		func(slot models.TemplateSlot, occ *models.Occurrence) bool {
			if occ.StartTime == nil {
				return false
			}
			hour, minute, err := slot.Clock()
			local := occ.StartTime.In(loc)
			return err == nil && local.Hour() == hour && local.Minute() == minute
		},
		func(models.TemplateSlot, *models.Occurrence) bool { return true },
	}
	for _, match := range passes {
		for _, occ := range ordered {
			if matched[occ.ID] {
				continue
			}
			for _, slot := range slots {
				if claims.taken(slot.Key) || !match(slot, occ) {
					continue
				}
				claims.bySlot[slot.Key] = occ
				matched[occ.ID] = true
				break
			}
		}
	}
	for _, occ := range ordered {
		if !matched[occ.ID] {
			claims.unmatched = append(claims.unmatched, occ)
		}
	}
	return claims
}

func lessonBefore(a, b *models.Occurrence) bool {
	switch {
	case a.StartTime == nil || b.StartTime == nil:
		return a.ID < b.ID
	case a.StartTime.Equal(*b.StartTime):
		return a.ID < b.ID
	default:
		return a.StartTime.Before(*b.StartTime)
	}
}

// lessonsByDate groups generated lessons by their occurrence date.
func lessonsByDate(lessons []models.Occurrence) map[string][]*models.Occurrence {
	grouped := make(map[string][]*models.Occurrence)
	for i := range lessons {
		occ := &lessons[i]
		if occ.OccurrenceDate == nil {
			continue
		}
		grouped[*occ.OccurrenceDate] = append(grouped[*occ.OccurrenceDate], occ)
	}
	return grouped
}
