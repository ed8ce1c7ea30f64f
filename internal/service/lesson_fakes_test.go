package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

// memoryOccurrences mirrors OccurrenceRepository semantics in memory, including the
// generation-key conflict and the non-cancelled guards on writes.
type memoryOccurrences struct {
	mu      sync.Mutex
	items   map[string]*models.Occurrence
	seq     int
	failOn  map[string]error
	creates int
	// createLimit makes Create fail once this many rows were inserted; 0 disables it.
	createLimit int
	// beforeChecksWrite runs once ahead of the next UpdateChecks, outside the lock, so a
	// test can land a competing write between a read and the guarded write.
	beforeChecksWrite func(id string)
	checkWrites       int
}

func newMemoryOccurrences() *memoryOccurrences {
	return &memoryOccurrences{items: map[string]*models.Occurrence{}, failOn: map[string]error{}}
}

func (m *memoryOccurrences) put(occ models.Occurrence) *models.Occurrence {
	m.mu.Lock()
	defer m.mu.Unlock()
	if occ.ID == "" {
		m.seq++
		occ.ID = fmt.Sprintf("occ-%d", m.seq)
	}
	if occ.Status == "" {
		occ.Status = models.OccurrenceStatusScheduled
	}
	if occ.Duration == 0 {
		occ.Duration = models.DefaultLessonDuration
	}
	stored := occ
	m.items[occ.ID] = &stored
	return &occ
}

func (m *memoryOccurrences) get(id string) models.Occurrence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.items[id]
}

func (m *memoryOccurrences) all() []models.Occurrence {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Occurrence, 0, len(m.items))
	for _, occ := range m.items {
		out = append(out, *occ)
	}
	sortOccurrences(out)
	return out
}

func sortOccurrences(items []models.Occurrence) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].StartTime, items[j].StartTime
		switch {
		case a == nil && b == nil:
			return items[i].ID < items[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return items[i].ID < items[j].ID
		default:
			return a.Before(*b)
		}
	})
}

func (m *memoryOccurrences) Create(ctx context.Context, occ *models.Occurrence) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["Create"]; err != nil {
		return false, err
	}
	if m.createLimit > 0 && m.creates >= m.createLimit {
		return false, fmt.Errorf("insert occurrence: connection reset")
	}
	if occ.SlotKey != nil && occ.OccurrenceDate != nil {
		for _, existing := range m.items {
			if existing.ProjectID == occ.ProjectID && existing.SlotKey != nil && existing.OccurrenceDate != nil &&
				*existing.SlotKey == *occ.SlotKey && *existing.OccurrenceDate == *occ.OccurrenceDate {
				return false, nil
			}
		}
	}
	if occ.ID == "" {
		m.seq++
		occ.ID = fmt.Sprintf("occ-%d", m.seq)
	}
	if occ.Status == "" {
		occ.Status = models.OccurrenceStatusScheduled
	}
	if occ.HomeworkChecks == nil {
		occ.HomeworkChecks = models.HomeworkChecks{}
	}
	if occ.HomeworkAssignments == nil {
		occ.HomeworkAssignments = models.HomeworkAssignments{}
	}
	cp := *occ
	m.items[cp.ID] = &cp
	m.creates++
	return true, nil
}

func (m *memoryOccurrences) FindByID(ctx context.Context, id string) (*models.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	occ, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *occ
	return &cp, nil
}

func (m *memoryOccurrences) Query(ctx context.Context, filter models.OccurrenceFilter) ([]models.Occurrence, error) {
	if err := m.failOn["Query"]; err != nil {
		return nil, err
	}
	var out []models.Occurrence
	for _, occ := range m.all() {
		if filter.ProjectID != "" && occ.ProjectID != filter.ProjectID {
			continue
		}
		if filter.After != nil && (occ.StartTime == nil || occ.StartTime.Before(*filter.After)) {
			continue
		}
		if filter.Before != nil && (occ.StartTime == nil || !occ.StartTime.Before(*filter.Before)) {
			continue
		}
		if filter.IsCancelled != nil && occ.IsCancelled != *filter.IsCancelled {
			continue
		}
		if filter.IsAutoGenerated != nil && occ.IsAutoGenerated != *filter.IsAutoGenerated {
			continue
		}
		if filter.DateFrom != "" && (occ.OccurrenceDate == nil || *occ.OccurrenceDate < filter.DateFrom) {
			continue
		}
		if filter.DateTo != "" && (occ.OccurrenceDate == nil || *occ.OccurrenceDate >= filter.DateTo) {
			continue
		}
		out = append(out, occ)
	}
	return out, nil
}

func (m *memoryOccurrences) FindPrevious(ctx context.Context, projectID string, before time.Time) (*models.Occurrence, error) {
	var found *models.Occurrence
	for _, occ := range m.all() {
		occ := occ
		if occ.ProjectID != projectID || occ.StartTime == nil || !occ.StartTime.Before(before) {
			continue
		}
		if occ.IsCancelled || !(occ.IsAutoGenerated || occ.IsMakeup) {
			continue
		}
		found = &occ
	}
	return found, nil
}

func (m *memoryOccurrences) FindNext(ctx context.Context, projectID string, after time.Time) (*models.Occurrence, error) {
	for _, occ := range m.all() {
		occ := occ
		if occ.ProjectID != projectID || occ.StartTime == nil || !occ.StartTime.After(after) || occ.IsCancelled {
			continue
		}
		return &occ, nil
	}
	return nil, nil
}

func (m *memoryOccurrences) update(op, id string, requireActive bool, fn func(*models.Occurrence)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[op]; err != nil {
		return err
	}
	occ, ok := m.items[id]
	if !ok || (requireActive && occ.IsCancelled) {
		return sql.ErrNoRows
	}
	fn(occ)
	return nil
}

func (m *memoryOccurrences) UpdateSchedule(ctx context.Context, id string, start time.Time, duration int, markModified bool) error {
	return m.update("UpdateSchedule", id, true, func(occ *models.Occurrence) {
		s := start
		occ.StartTime = &s
		occ.Duration = duration
		occ.IsModified = occ.IsModified || markModified
	})
}

func (m *memoryOccurrences) UpdateChecks(ctx context.Context, id string, checks models.HomeworkChecks, expectedVersion int) error {
	m.mu.Lock()
	hook := m.beforeChecksWrite
	m.beforeChecksWrite = nil
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["UpdateChecks"]; err != nil {
		return err
	}
	occ, ok := m.items[id]
	if !ok || occ.ChecksVersion != expectedVersion {
		return sql.ErrNoRows
	}
	occ.HomeworkChecks = append(models.HomeworkChecks{}, checks...)
	occ.ChecksVersion++
	m.checkWrites++
	return nil
}

func (m *memoryOccurrences) UpdateAssignments(ctx context.Context, id string, assignments models.HomeworkAssignments) error {
	return m.update("UpdateAssignments", id, true, func(occ *models.Occurrence) {
		occ.HomeworkAssignments = append(models.HomeworkAssignments{}, assignments...)
	})
}

func (m *memoryOccurrences) MarkCancelled(ctx context.Context, id string) error {
	return m.update("MarkCancelled", id, false, func(occ *models.Occurrence) {
		occ.IsCancelled = true
		occ.Status = models.OccurrenceStatusCancelled
		occ.HomeworkAssignments = models.HomeworkAssignments{}
	})
}

func (m *memoryOccurrences) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["Delete"]; err != nil {
		return err
	}
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type memoryDefinitions struct {
	items   map[string]*models.ScheduleDefinition
	created int
	updated int
}

func newMemoryDefinitions(defs ...models.ScheduleDefinition) *memoryDefinitions {
	m := &memoryDefinitions{items: map[string]*models.ScheduleDefinition{}}
	for i := range defs {
		def := defs[i]
		m.items[def.ID] = &def
	}
	return m
}

func (m *memoryDefinitions) Create(ctx context.Context, def *models.ScheduleDefinition) error {
	if def.ID == "" {
		def.ID = fmt.Sprintf("def-%d", len(m.items)+1)
	}
	cp := *def
	m.items[def.ID] = &cp
	m.created++
	return nil
}

func (m *memoryDefinitions) FindByID(ctx context.Context, id string) (*models.ScheduleDefinition, error) {
	def, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *def
	return &cp, nil
}

func (m *memoryDefinitions) ListStudents(ctx context.Context) ([]models.ScheduleDefinition, error) {
	out := make([]models.ScheduleDefinition, 0, len(m.items))
	for _, def := range m.items {
		if def.ProjectType == models.ProjectTypeStudent || def.ProjectType == "" {
			out = append(out, *def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryDefinitions) UpdateTemplate(ctx context.Context, def *models.ScheduleDefinition) error {
	if _, ok := m.items[def.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *def
	m.items[def.ID] = &cp
	m.updated++
	return nil
}

func at(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func date(value string) time.Time {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedClock(value string) func() time.Time {
	t := *at(value)
	return func() time.Time { return t }
}
