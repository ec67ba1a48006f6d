package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"condo/internal/roles"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
)

var defaultDescriptions = map[id.RoleName]string{
	id.RoleResident: "Registered resident of a unit",
	id.RoleAdmin:    "Building administration staff",
}

// InMemory is a role store seeded with the known roles.
type InMemory struct {
	mu    sync.RWMutex
	roles map[id.RoleName]*roles.Role
}

func NewInMemory() *InMemory {
	s := &InMemory{roles: make(map[id.RoleName]*roles.Role)}
	for _, name := range id.KnownRoles {
		s.roles[name] = &roles.Role{
			ID:          id.RoleID(uuid.New()),
			Name:        name,
			Description: defaultDescriptions[name],
		}
	}
	return s
}

func (s *InMemory) List(_ context.Context) ([]*roles.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*roles.Role, 0, len(s.roles))
	for _, r := range s.roles {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) FindByName(_ context.Context, name id.RoleName) (*roles.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *r
	return &c, nil
}

// Ensure inserts role unless one with the same name exists.
func (s *InMemory) Ensure(_ context.Context, role *roles.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.Name]; ok {
		return nil
	}
	c := *role
	s.roles[role.Name] = &c
	return nil
}

// Remove deletes a role by name. Used to exercise startup validation.
func (s *InMemory) Remove(name id.RoleName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, name)
}
