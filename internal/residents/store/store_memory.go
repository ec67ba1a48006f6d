package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"condo/internal/residents/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

// InMemory keeps persons and residencies behind one lock so the
// one-principal-per-unit rule is checked and applied atomically.
type InMemory struct {
	mu          sync.RWMutex
	persons     map[id.PersonID]*models.Person
	residencies map[id.ResidencyID]*models.Residency
}

func NewInMemory() *InMemory {
	return &InMemory{
		persons:     make(map[id.PersonID]*models.Person),
		residencies: make(map[id.ResidencyID]*models.Residency),
	}
}

func clonePerson(p *models.Person) *models.Person {
	c := *p
	if p.IdentityID != nil {
		v := *p.IdentityID
		c.IdentityID = &v
	}
	return &c
}

func cloneResidency(r *models.Residency) *models.Residency {
	c := *r
	return &c
}

func duplicate(constraint string) error {
	return fmt.Errorf("%w: %s", sentinel.ErrDuplicate, constraint)
}

func (s *InMemory) personConflict(p *models.Person) error {
	for _, other := range s.persons {
		if other.ID == p.ID {
			continue
		}
		switch {
		case other.Code == p.Code:
			return duplicate(models.ConstraintPersonCode)
		case strings.EqualFold(other.Email, p.Email):
			return duplicate(models.ConstraintPersonEmail)
		case p.IdentityID != nil && other.IdentityID != nil && *other.IdentityID == *p.IdentityID:
			return duplicate(models.ConstraintPersonIdentity)
		}
	}
	return nil
}

func (s *InMemory) CreatePerson(ctx context.Context, p *models.Person) error {
	s.mu.Lock()
	if err := s.personConflict(p); err != nil {
		s.mu.Unlock()
		return err
	}
	s.persons[p.ID] = clonePerson(p)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		delete(s.persons, p.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) FindPerson(_ context.Context, personID id.PersonID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePerson(p), nil
}

func (s *InMemory) FindPersonByIdentity(_ context.Context, userID id.UserID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if p.IdentityID != nil && *p.IdentityID == userID {
			return clonePerson(p), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) EmailTaken(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if strings.EqualFold(p.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) CodeTaken(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if p.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) ListPersons(_ context.Context) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, clonePerson(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (s *InMemory) UpdatePerson(ctx context.Context, p *models.Person) error {
	s.mu.Lock()
	prev, ok := s.persons[p.ID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	if err := s.personConflict(p); err != nil {
		s.mu.Unlock()
		return err
	}
	s.persons[p.ID] = clonePerson(p)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.persons[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

// DeletePerson removes the person and its residencies.
func (s *InMemory) DeletePerson(ctx context.Context, personID id.PersonID) error {
	s.mu.Lock()
	prev, ok := s.persons[personID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.persons, personID)
	removed := s.removeResidencies(func(r *models.Residency) bool { return r.PersonID == personID })
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.persons[prev.ID] = prev
		for _, r := range removed {
			s.residencies[r.ID] = r
		}
		s.mu.Unlock()
	})
	return nil
}

// UnlinkIdentity detaches the person linked to userID from it.
func (s *InMemory) UnlinkIdentity(ctx context.Context, userID id.UserID) error {
	s.mu.Lock()
	var prev *models.Person
	for personID, p := range s.persons {
		if p.IdentityID != nil && *p.IdentityID == userID {
			prev = p
			next := clonePerson(p)
			next.IdentityID = nil
			s.persons[personID] = next
			break
		}
	}
	s.mu.Unlock()
	if prev == nil {
		return sentinel.ErrNotFound
	}

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.persons[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) principalOf(unitID id.UnitID, except id.ResidencyID) *models.Residency {
	for _, r := range s.residencies {
		if r.ID != except && r.UnitID == unitID && r.IsPrincipal {
			return r
		}
	}
	return nil
}

func (s *InMemory) CreateResidency(ctx context.Context, r *models.Residency) error {
	s.mu.Lock()
	if _, ok := s.persons[r.PersonID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: residencies_person_id_fkey", sentinel.ErrReferenced)
	}
	if r.IsPrincipal && s.principalOf(r.UnitID, r.ID) != nil {
		s.mu.Unlock()
		return sentinel.ErrConflict
	}
	s.residencies[r.ID] = cloneResidency(r)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		delete(s.residencies, r.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) FindResidency(_ context.Context, residencyID id.ResidencyID) (*models.Residency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.residencies[residencyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneResidency(r), nil
}

// FindPrincipal returns the principal residency of unitID.
func (s *InMemory) FindPrincipal(_ context.Context, unitID id.UnitID) (*models.Residency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.principalOf(unitID, id.ResidencyID{}); r != nil {
		return cloneResidency(r), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListResidencies(_ context.Context, filter models.ResidencyFilter) ([]*models.Residency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Residency, 0)
	for _, r := range s.residencies {
		if filter.Matches(r) {
			out = append(out, cloneResidency(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) UpdateResidency(ctx context.Context, r *models.Residency) error {
	s.mu.Lock()
	prev, ok := s.residencies[r.ID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	if _, ok := s.persons[r.PersonID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: residencies_person_id_fkey", sentinel.ErrReferenced)
	}
	if r.IsPrincipal && s.principalOf(r.UnitID, r.ID) != nil {
		s.mu.Unlock()
		return sentinel.ErrConflict
	}
	s.residencies[r.ID] = cloneResidency(r)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.residencies[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) DeleteResidency(ctx context.Context, residencyID id.ResidencyID) error {
	s.mu.Lock()
	prev, ok := s.residencies[residencyID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.residencies, residencyID)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.residencies[prev.ID] = prev
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemory) DeleteResidenciesByUnit(ctx context.Context, unitID id.UnitID) error {
	s.mu.Lock()
	removed := s.removeResidencies(func(r *models.Residency) bool { return r.UnitID == unitID })
	s.mu.Unlock()

	if len(removed) > 0 {
		tx.AddUndo(ctx, func() {
			s.mu.Lock()
			for _, r := range removed {
				s.residencies[r.ID] = r
			}
			s.mu.Unlock()
		})
	}
	return nil
}

// removeResidencies must be called with mu held.
func (s *InMemory) removeResidencies(match func(*models.Residency) bool) []*models.Residency {
	var removed []*models.Residency
	for residencyID, r := range s.residencies {
		if match(r) {
			removed = append(removed, r)
			delete(s.residencies, residencyID)
		}
	}
	return removed
}
