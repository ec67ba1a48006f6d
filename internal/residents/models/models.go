// Package models defines person profiles and their residencies.
package models

import (
	"strings"
	"time"

	id "condo/pkg/domain"
)

// Person is the profile of someone living in or managing the condominium.
// It is linked to at most one login identity.
type Person struct {
	ID         id.PersonID `json:"id"`
	Code       string      `json:"code"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Email      string      `json:"email"`
	Gender     string      `json:"gender"`
	Phone      string      `json:"phone"`
	RoleID     id.RoleID   `json:"role_id"`
	IdentityID *id.UserID  `json:"identity_id"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (p *Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Residency says that a person lives in a unit. At most one residency per
// unit is principal.
type Residency struct {
	ID          id.ResidencyID `json:"id"`
	PersonID    id.PersonID    `json:"person_id"`
	UnitID      id.UnitID      `json:"unit_id"`
	IsPrincipal bool           `json:"is_principal"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ResidencyFilter narrows residency listings. Zero fields match everything.
type ResidencyFilter struct {
	UnitID   *id.UnitID
	PersonID *id.PersonID
}

func (f ResidencyFilter) Matches(r *Residency) bool {
	if f.UnitID != nil && r.UnitID != *f.UnitID {
		return false
	}
	if f.PersonID != nil && r.PersonID != *f.PersonID {
		return false
	}
	return true
}

// Unique constraints reported with sentinel.ErrDuplicate. The names match
// the Postgres schema so both stores report the same facts.
const (
	ConstraintPersonCode     = "persons_code_key"
	ConstraintPersonEmail    = "persons_email_key"
	ConstraintPersonIdentity = "persons_identity_id_key"
)
