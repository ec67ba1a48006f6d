// Package roles holds the fixed set of groups an identity can belong to.
// Role rows live in storage so they can carry descriptions, but the names the
// application depends on are an enumeration resolved once at startup.
package roles

import (
	"context"
	"fmt"
	"sort"

	id "condo/pkg/domain"
)

// Role is a named permission bucket.
type Role struct {
	ID          id.RoleID   `json:"id"`
	Name        id.RoleName `json:"name"`
	Description string      `json:"description"`
}

// Lister returns every stored role.
type Lister interface {
	List(ctx context.Context) ([]*Role, error)
}

// Registry maps the known role names to their stored IDs.
type Registry struct {
	byName map[id.RoleName]*Role
	byID   map[id.RoleID]*Role
}

// Load resolves every known role and fails if one is missing, so a
// misconfigured database is caught before the first registration.
func Load(ctx context.Context, store Lister) (*Registry, error) {
	all, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	r := &Registry{
		byName: make(map[id.RoleName]*Role, len(all)),
		byID:   make(map[id.RoleID]*Role, len(all)),
	}
	for _, role := range all {
		r.byName[role.Name] = role
		r.byID[role.ID] = role
	}
	for _, name := range id.KnownRoles {
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("required role %q is not defined", name)
		}
	}
	return r, nil
}

// ID returns the stored ID of a known role. Load guarantees presence.
func (r *Registry) ID(name id.RoleName) id.RoleID {
	if role, ok := r.byName[name]; ok {
		return role.ID
	}
	return id.RoleID{}
}

// Lookup returns the role with the given name, if defined.
func (r *Registry) Lookup(name id.RoleName) (*Role, bool) {
	role, ok := r.byName[name]
	return role, ok
}

// ByID returns the role with the given ID, if defined.
func (r *Registry) ByID(roleID id.RoleID) (*Role, bool) {
	role, ok := r.byID[roleID]
	return role, ok
}

// Exists reports whether name is a defined role.
func (r *Registry) Exists(name id.RoleName) bool {
	_, ok := r.byName[name]
	return ok
}

// All returns the defined roles sorted by name.
func (r *Registry) All() []*Role {
	out := make([]*Role, 0, len(r.byName))
	for _, role := range r.byName {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
