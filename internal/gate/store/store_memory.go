package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"condo/internal/gate/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

type InMemory struct {
	mu       sync.RWMutex
	vehicles map[id.VehicleID]*models.Vehicle
	visitors map[id.VisitorID]*models.Visitor
}

func NewInMemory() *InMemory {
	return &InMemory{
		vehicles: make(map[id.VehicleID]*models.Vehicle),
		visitors: make(map[id.VisitorID]*models.Visitor),
	}
}

func cloneVehicle(v *models.Vehicle) *models.Vehicle {
	c := *v
	return &c
}

func cloneVisitor(v *models.Visitor) *models.Visitor {
	c := *v
	if v.ExitedAt != nil {
		t := *v.ExitedAt
		c.ExitedAt = &t
	}
	if v.AuthorizedBy != nil {
		r := *v.AuthorizedBy
		c.AuthorizedBy = &r
	}
	return &c
}

func (s *InMemory) plateTaken(plate string, except id.VehicleID) bool {
	for _, v := range s.vehicles {
		if v.ID != except && v.Plate == plate {
			return true
		}
	}
	return false
}

func (s *InMemory) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	s.mu.Lock()
	if s.plateTaken(v.Plate, v.ID) {
		s.mu.Unlock()
		return sentinel.ErrDuplicate
	}
	s.vehicles[v.ID] = cloneVehicle(v)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		delete(s.vehicles, v.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) FindVehicle(_ context.Context, vehicleID id.VehicleID) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[vehicleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneVehicle(v), nil
}

func (s *InMemory) ListVehicles(_ context.Context, filter models.VehicleFilter) ([]*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Vehicle, 0)
	for _, v := range s.vehicles {
		if filter.ResidencyID != nil && v.ResidencyID != *filter.ResidencyID {
			continue
		}
		if !filter.Scope.Allows(&v.ResidencyID) {
			continue
		}
		out = append(out, cloneVehicle(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plate < out[j].Plate })
	return out, nil
}

func (s *InMemory) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	s.mu.Lock()
	prev, ok := s.vehicles[v.ID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	if s.plateTaken(v.Plate, v.ID) {
		s.mu.Unlock()
		return sentinel.ErrDuplicate
	}
	s.vehicles[v.ID] = cloneVehicle(v)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.vehicles[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) DeleteVehicle(ctx context.Context, vehicleID id.VehicleID) error {
	s.mu.Lock()
	prev, ok := s.vehicles[vehicleID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.vehicles, vehicleID)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.vehicles[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

// DeleteVehiclesByResidencies removes the vehicles of removed residencies.
func (s *InMemory) DeleteVehiclesByResidencies(ctx context.Context, residencyIDs []id.ResidencyID) error {
	s.mu.Lock()
	var removed []*models.Vehicle
	for vehicleID, v := range s.vehicles {
		if slices.Contains(residencyIDs, v.ResidencyID) {
			removed = append(removed, v)
			delete(s.vehicles, vehicleID)
		}
	}
	s.mu.Unlock()

	if len(removed) > 0 {
		tx.AddUndo(ctx, func() {
			s.mu.Lock()
			for _, v := range removed {
				s.vehicles[v.ID] = v
			}
			s.mu.Unlock()
		})
	}
	return nil
}

func (s *InMemory) CreateVisitor(ctx context.Context, v *models.Visitor) error {
	s.mu.Lock()
	s.visitors[v.ID] = cloneVisitor(v)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		delete(s.visitors, v.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) FindVisitor(_ context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visitors[visitorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneVisitor(v), nil
}

// ListVisitors returns the newest entries first.
func (s *InMemory) ListVisitors(_ context.Context, filter models.VisitorFilter) ([]*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Visitor, 0)
	for _, v := range s.visitors {
		if filter.InsideOnly && !v.Inside() {
			continue
		}
		if !filter.Scope.Allows(v.AuthorizedBy) {
			continue
		}
		out = append(out, cloneVisitor(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnteredAt.After(out[j].EnteredAt) })
	return out, nil
}

func (s *InMemory) UpdateVisitor(ctx context.Context, v *models.Visitor) error {
	s.mu.Lock()
	prev, ok := s.visitors[v.ID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	s.visitors[v.ID] = cloneVisitor(v)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.visitors[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) DeleteVisitor(ctx context.Context, visitorID id.VisitorID) error {
	s.mu.Lock()
	prev, ok := s.visitors[visitorID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.visitors, visitorID)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.visitors[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

// DetachVisitors clears authorized_by on entries of removed residencies.
func (s *InMemory) DetachVisitors(ctx context.Context, residencyIDs []id.ResidencyID) error {
	s.mu.Lock()
	var prev []*models.Visitor
	for visitorID, v := range s.visitors {
		if v.AuthorizedBy != nil && slices.Contains(residencyIDs, *v.AuthorizedBy) {
			prev = append(prev, v)
			next := cloneVisitor(v)
			next.AuthorizedBy = nil
			s.visitors[visitorID] = next
		}
	}
	s.mu.Unlock()

	if len(prev) > 0 {
		tx.AddUndo(ctx, func() {
			s.mu.Lock()
			for _, v := range prev {
				s.visitors[v.ID] = v
			}
			s.mu.Unlock()
		})
	}
	return nil
}
