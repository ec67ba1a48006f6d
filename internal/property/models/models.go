// Package models defines condominium units.
package models

import (
	"time"

	id "condo/pkg/domain"
)

// Unit is an apartment, house or commercial space in the condominium.
type Unit struct {
	ID              id.UnitID     `json:"id"`
	Code            string        `json:"code"`
	AreaM2          float64       `json:"area_m2"`
	Rooms           int           `json:"rooms"`
	CategoryID      *id.CatalogID `json:"category_id"`
	Description     string        `json:"description"`
	OwnerIdentityID *id.UserID    `json:"owner_identity_id"`
	CreatedAt       time.Time     `json:"created_at"`
}

// LockKey names the unit for in-process transaction serialization.
func LockKey(unitID id.UnitID) string {
	return "unit:" + unitID.String()
}
