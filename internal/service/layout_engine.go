package service

import (
	"sort"
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

type layoutItem struct {
	id    string
	start time.Time
	end   time.Time
}

func (i layoutItem) overlaps(other layoutItem) bool {
	return i.start.Before(other.end) && other.start.Before(i.end)
}

// LayoutDay assigns each occurrence of one calendar day a horizontal position so that
// lessons sharing time render side by side. Occurrences without a start time are skipped.
// The result is keyed by occurrence id.
func LayoutDay(occurrences []models.Occurrence) map[string]models.LayoutPosition {
	items := make([]layoutItem, 0, len(occurrences))
	for i := range occurrences {
		occ := &occurrences[i]
		if occ.StartTime == nil {
			continue
		}
		items = append(items, layoutItem{id: occ.ID, start: *occ.StartTime, end: occ.EndTime()})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].start.Before(items[j].start)
	})

	positions := make(map[string]models.LayoutPosition, len(items))
	for _, cluster := range clusterByOverlap(items) {
		columns := packColumns(cluster)
		width := 100 / float64(len(columns))
		for col, members := range columns {
			for _, item := range members {
				positions[item.id] = models.LayoutPosition{
					WidthPercent:      width,
					LeftOffsetPercent: float64(col) * width,
				}
			}
		}
	}
	return positions
}

// clusterByOverlap groups start-sorted items into maximal chains connected by overlap.
func clusterByOverlap(items []layoutItem) [][]layoutItem {
	var (
		clusters [][]layoutItem
		current  []layoutItem
		end      time.Time
	)
	for _, item := range items {
		if len(current) > 0 && item.start.Before(end) {
			current = append(current, item)
			if item.end.After(end) {
				end = item.end
			}
			continue
		}
		if len(current) > 0 {
			clusters = append(clusters, current)
		}
		current = []layoutItem{item}
		end = item.end
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	return clusters
}

// packColumns places every item into the leftmost column without a time collision.
func packColumns(cluster []layoutItem) [][]layoutItem {
	var columns [][]layoutItem
	for _, item := range cluster {
		placed := false
		for col := range columns {
			if fitsColumn(columns[col], item) {
				columns[col] = append(columns[col], item)
				placed = true
				break
			}
		}
		if !placed {
			columns = append(columns, []layoutItem{item})
		}
	}
	return columns
}

func fitsColumn(column []layoutItem, item layoutItem) bool {
	for _, member := range column {
		if member.overlaps(item) {
			return false
		}
	}
	return true
}
