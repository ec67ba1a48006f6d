package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"condo/internal/property/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

// InMemory is the unit store used without Postgres. Row locks are provided
// by the memory transaction runner through tx.WithLockKey.
type InMemory struct {
	mu    sync.RWMutex
	units map[id.UnitID]*models.Unit
}

func NewInMemory() *InMemory {
	return &InMemory{units: make(map[id.UnitID]*models.Unit)}
}

func clone(u *models.Unit) *models.Unit {
	c := *u
	if u.CategoryID != nil {
		v := *u.CategoryID
		c.CategoryID = &v
	}
	if u.OwnerIdentityID != nil {
		v := *u.OwnerIdentityID
		c.OwnerIdentityID = &v
	}
	return &c
}

func (s *InMemory) codeTaken(code string, except id.UnitID) bool {
	for _, u := range s.units {
		if u.ID != except && strings.EqualFold(u.Code, code) {
			return true
		}
	}
	return false
}

func (s *InMemory) Create(ctx context.Context, unit *models.Unit) error {
	s.mu.Lock()
	if s.codeTaken(unit.Code, unit.ID) {
		s.mu.Unlock()
		return sentinel.ErrDuplicate
	}
	s.units[unit.ID] = clone(unit)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		delete(s.units, unit.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, unitID id.UnitID) (*models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[unitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(u), nil
}

// LockForUpdate only checks existence; serialization comes from the runner.
func (s *InMemory) LockForUpdate(ctx context.Context, unitID id.UnitID) error {
	_, err := s.FindByID(ctx, unitID)
	return err
}

func (s *InMemory) List(_ context.Context) ([]*models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, unit *models.Unit) error {
	s.mu.Lock()
	prev, ok := s.units[unit.ID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	if s.codeTaken(unit.Code, unit.ID) {
		s.mu.Unlock()
		return sentinel.ErrDuplicate
	}
	s.units[unit.ID] = clone(unit)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.units[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) Delete(ctx context.Context, unitID id.UnitID) error {
	s.mu.Lock()
	prev, ok := s.units[unitID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.units, unitID)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.units[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

// ClearCategory detaches every unit from a removed category.
func (s *InMemory) ClearCategory(ctx context.Context, categoryID id.CatalogID) error {
	return s.rewrite(ctx, func(u *models.Unit) bool {
		if u.CategoryID == nil || *u.CategoryID != categoryID {
			return false
		}
		u.CategoryID = nil
		return true
	})
}

// ClearOwner detaches every unit from a removed identity.
func (s *InMemory) ClearOwner(ctx context.Context, userID id.UserID) error {
	return s.rewrite(ctx, func(u *models.Unit) bool {
		if u.OwnerIdentityID == nil || *u.OwnerIdentityID != userID {
			return false
		}
		u.OwnerIdentityID = nil
		return true
	})
}

func (s *InMemory) rewrite(ctx context.Context, change func(*models.Unit) bool) error {
	s.mu.Lock()
	var prev []*models.Unit
	for unitID, u := range s.units {
		next := clone(u)
		if change(next) {
			prev = append(prev, u)
			s.units[unitID] = next
		}
	}
	s.mu.Unlock()

	if len(prev) > 0 {
		tx.AddUndo(ctx, func() {
			s.mu.Lock()
			for _, u := range prev {
				s.units[u.ID] = u
			}
			s.mu.Unlock()
		})
	}
	return nil
}
