// Package models defines vehicles registered to residencies and the visitor
// log kept at the gate.
package models

import (
	"strings"
	"time"

	id "condo/pkg/domain"
)

type Vehicle struct {
	ID          id.VehicleID   `json:"id"`
	Plate       string         `json:"plate"`
	Brand       string         `json:"brand"`
	Model       string         `json:"model"`
	Color       string         `json:"color"`
	ResidencyID id.ResidencyID `json:"residency_id"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NormalizePlate trims and upper-cases a plate so lookups ignore case.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// Visitor is one entry in the gate log. EnteredAt is stamped when the entry
// is recorded; ExitedAt stays nil while the visitor is inside.
type Visitor struct {
	ID           id.VisitorID    `json:"id"`
	FullName     string          `json:"full_name"`
	DocumentID   string          `json:"document_id"`
	EnteredAt    time.Time       `json:"entered_at"`
	ExitedAt     *time.Time      `json:"exited_at"`
	AuthorizedBy *id.ResidencyID `json:"authorized_by"`
}

func (v *Visitor) Inside() bool { return v.ExitedAt == nil }

// Scope limits listings to records tied to a set of residencies. The zero
// value is unrestricted.
type Scope struct {
	Restricted   bool
	ResidencyIDs []id.ResidencyID
}

func (s Scope) Allows(residencyID *id.ResidencyID) bool {
	if !s.Restricted {
		return true
	}
	if residencyID == nil {
		return false
	}
	for _, r := range s.ResidencyIDs {
		if r == *residencyID {
			return true
		}
	}
	return false
}

// VehicleFilter narrows vehicle listings.
type VehicleFilter struct {
	Scope       Scope
	ResidencyID *id.ResidencyID
}

// VisitorFilter narrows visitor listings.
type VisitorFilter struct {
	Scope      Scope
	InsideOnly bool
}
