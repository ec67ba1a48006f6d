package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"condo/internal/catalog/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

// InMemory keeps every reference table in process. Fee statuses are seeded
// like the SQL schema does.
type InMemory struct {
	mu      sync.RWMutex
	entries map[models.Kind]map[id.CatalogID]*models.Entry
}

func NewInMemory() *InMemory {
	s := &InMemory{entries: make(map[models.Kind]map[id.CatalogID]*models.Entry)}
	for _, k := range models.Kinds {
		s.entries[k] = make(map[id.CatalogID]*models.Entry)
	}
	for _, name := range []string{models.StatusPending, models.StatusPaid, models.StatusOverdue} {
		e := &models.Entry{ID: id.CatalogID(uuid.New()), Name: name}
		s.entries[models.FeeStatuses][e.ID] = e
	}
	return s
}

func clone(e *models.Entry) *models.Entry {
	c := *e
	if e.DefaultAmount != nil {
		v := *e.DefaultAmount
		c.DefaultAmount = &v
	}
	return &c
}

func (s *InMemory) table(kind models.Kind) (map[id.CatalogID]*models.Entry, error) {
	t, ok := s.entries[kind]
	if !ok {
		_, err := kind.Table()
		return nil, err
	}
	return t, nil
}

func (s *InMemory) List(_ context.Context, kind models.Kind) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Entry, 0, len(t))
	for _, e := range t {
		out = append(out, clone(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) Get(_ context.Context, kind models.Kind, entryID id.CatalogID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	e, ok := t[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

func (s *InMemory) FindByName(_ context.Context, kind models.Kind, name string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	for _, e := range t {
		if e.Name == name {
			return clone(e), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) nameTaken(t map[id.CatalogID]*models.Entry, name string, except id.CatalogID) bool {
	for _, e := range t {
		if e.ID != except && strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

func (s *InMemory) Create(ctx context.Context, kind models.Kind, entry *models.Entry) error {
	s.mu.Lock()
	t, err := s.table(kind)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.nameTaken(t, entry.Name, entry.ID) {
		s.mu.Unlock()
		return sentinel.ErrDuplicate
	}
	t[entry.ID] = clone(entry)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		delete(t, entry.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) Update(ctx context.Context, kind models.Kind, entry *models.Entry) error {
	s.mu.Lock()
	t, err := s.table(kind)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	prev, ok := t[entry.ID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	if s.nameTaken(t, entry.Name, entry.ID) {
		s.mu.Unlock()
		return sentinel.ErrDuplicate
	}
	t[entry.ID] = clone(entry)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		t[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) Delete(ctx context.Context, kind models.Kind, entryID id.CatalogID) error {
	s.mu.Lock()
	t, err := s.table(kind)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	prev, ok := t[entryID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(t, entryID)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		t[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}
