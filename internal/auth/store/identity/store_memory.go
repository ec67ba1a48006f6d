package identity

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"condo/internal/auth/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

// InMemoryIdentityStore keeps identities in process. Writes made inside a
// memory transaction register undo steps so a failed transaction leaves no
// trace.
type InMemoryIdentityStore struct {
	mu         sync.RWMutex
	identities map[id.UserID]*models.Identity
}

func New() *InMemoryIdentityStore {
	return &InMemoryIdentityStore{identities: make(map[id.UserID]*models.Identity)}
}

func clone(i *models.Identity) *models.Identity {
	c := *i
	c.Roles = slices.Clone(i.Roles)
	c.PasswordHash = slices.Clone(i.PasswordHash)
	if i.LastLoginAt != nil {
		t := *i.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

func (s *InMemoryIdentityStore) Create(ctx context.Context, identity *models.Identity) error {
	s.mu.Lock()
	for _, existing := range s.identities {
		if strings.EqualFold(existing.Username, identity.Username) || strings.EqualFold(existing.Email, identity.Email) {
			s.mu.Unlock()
			return sentinel.ErrDuplicate
		}
	}
	s.identities[identity.ID] = clone(identity)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		delete(s.identities, identity.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemoryIdentityStore) FindByID(_ context.Context, userID id.UserID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.identities[userID]; ok {
		return clone(i), nil
	}
	return nil, sentinel.ErrNotFound
}

// FindByUsername matches case-insensitively.
func (s *InMemoryIdentityStore) FindByUsername(_ context.Context, username string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.identities {
		if strings.EqualFold(i.Username, username) {
			return clone(i), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryIdentityStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.identities {
		if strings.EqualFold(i.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryIdentityStore) EmailTaken(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.identities {
		if strings.EqualFold(i.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// List returns identities newest first.
func (s *InMemoryIdentityStore) List(_ context.Context) ([]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Identity, 0, len(s.identities))
	for _, i := range s.identities {
		out = append(out, clone(i))
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].Username < out[b].Username
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

// SetRoles replaces the identity's roles.
func (s *InMemoryIdentityStore) SetRoles(ctx context.Context, userID id.UserID, roles []id.RoleName) error {
	s.mu.Lock()
	i, ok := s.identities[userID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	previous := i.Roles
	i.Roles = normalizeRoles(roles)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		if cur, ok := s.identities[userID]; ok {
			cur.Roles = previous
		}
		s.mu.Unlock()
	})
	return nil
}

// AddRole grants role if the identity does not hold it yet.
func (s *InMemoryIdentityStore) AddRole(ctx context.Context, userID id.UserID, role id.RoleName) error {
	s.mu.RLock()
	i, ok := s.identities[userID]
	var current []id.RoleName
	if ok {
		current = slices.Clone(i.Roles)
	}
	s.mu.RUnlock()
	if !ok {
		return sentinel.ErrNotFound
	}
	if slices.Contains(current, role) {
		return nil
	}
	return s.SetRoles(ctx, userID, append(current, role))
}

// SetActive enables or disables login for the identity.
func (s *InMemoryIdentityStore) SetActive(ctx context.Context, userID id.UserID, active bool) error {
	s.mu.Lock()
	i, ok := s.identities[userID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	previous := i.Active
	i.Active = active
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		if cur, ok := s.identities[userID]; ok {
			cur.Active = previous
		}
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemoryIdentityStore) TouchLogin(_ context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.identities[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	i.LastLoginAt = &at
	return nil
}

func (s *InMemoryIdentityStore) Delete(ctx context.Context, userID id.UserID) error {
	s.mu.Lock()
	i, ok := s.identities[userID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	delete(s.identities, userID)
	s.mu.Unlock()

	tx.AddUndo(ctx, func() {
		s.mu.Lock()
		s.identities[userID] = i
		s.mu.Unlock()
	})
	return nil
}

func normalizeRoles(roles []id.RoleName) []id.RoleName {
	out := slices.Clone(roles)
	slices.Sort(out)
	return slices.Compact(out)
}
