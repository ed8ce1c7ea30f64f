package service

import (
	"sync"
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

// pendingCancel is the context held while the user picks a makeup slot.
type pendingCancel struct {
	Token        string
	OccurrenceID string
	ProjectID    string
	Assignments  models.HomeworkAssignments
	MakeupID     string
	CreatedAt    time.Time
}

type pendingCancelStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]pendingCancel
}

func newPendingCancelStore(ttl time.Duration, now func() time.Time) *pendingCancelStore {
	if now == nil {
		now = time.Now
	}
	return &pendingCancelStore{
		ttl:   ttl,
		now:   now,
		items: make(map[string]pendingCancel),
	}
}

func (s *pendingCancelStore) Save(item pendingCancel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.items[item.Token] = item
}

// Get returns a live context. Expired contexts count as abandoned and are dropped.
func (s *pendingCancelStore) Get(token string) (pendingCancel, bool) {
	s.mu.RLock()
	item, ok := s.items[token]
	s.mu.RUnlock()
	if !ok {
		return pendingCancel{}, false
	}
	if s.now().Sub(item.CreatedAt) > s.ttl {
		s.Delete(token)
		return pendingCancel{}, false
	}
	return item, true
}

// FindByOccurrence returns the live context for an occurrence, if any.
func (s *pendingCancelStore) FindByOccurrence(occurrenceID string) (pendingCancel, bool) {
	s.mu.RLock()
	var token string
	for _, item := range s.items {
		if item.OccurrenceID == occurrenceID {
			token = item.Token
			break
		}
	}
	s.mu.RUnlock()
	if token == "" {
		return pendingCancel{}, false
	}
	return s.Get(token)
}

func (s *pendingCancelStore) AttachMakeup(token, makeupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[token]; ok {
		item.MakeupID = makeupID
		s.items[token] = item
	}
}

func (s *pendingCancelStore) Delete(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[token]
	delete(s.items, token)
	return ok
}

func (s *pendingCancelStore) purgeLocked() {
	now := s.now()
	for token, item := range s.items {
		if now.Sub(item.CreatedAt) > s.ttl {
			delete(s.items, token)
		}
	}
}
