package memory

import (
	"context"
	"sync"
	"time"

	id "condo/pkg/domain"
	audit "condo/pkg/platform/audit"
	"condo/pkg/platform/tx"
)

// InMemoryStore keeps audit events and their outbox entries in process.
// Appends made inside a memory transaction are discarded on rollback.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    []audit.Event
	entries   []audit.OutboxEntry
	published map[string]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{published: make(map[string]time.Time)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.entries = nil
	s.published = make(map[string]time.Time)
}

func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	entry, err := audit.NewOutboxEntry(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() { s.remove(entry.ID) })
	return nil
}

func (s *InMemoryStore) remove(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == entryID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.events = append(s.events[:i], s.events[i+1:]...)
			return
		}
	}
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListAll returns every event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

// ListByAction returns events with the given action in append order.
func (s *InMemoryStore) ListByAction(_ context.Context, action audit.AuditEvent) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Action == string(action) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) FetchPending(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.OutboxEntry
	for _, e := range s.entries {
		if _, done := s.published[e.ID]; done {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entryID := range ids {
		s.published[entryID] = at
	}
	return nil
}
