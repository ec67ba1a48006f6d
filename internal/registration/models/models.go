// Package models holds the result of a self-service registration.
package models

import id "condo/pkg/domain"

// Registration summarizes the records created for a new resident.
type Registration struct {
	ID          id.UserID      `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	PersonID    id.PersonID    `json:"person_id"`
	ResidencyID id.ResidencyID `json:"residency_id"`
	UnitID      id.UnitID      `json:"unit_id"`
	IsPrincipal bool           `json:"is_principal"`
	Roles       []id.RoleName  `json:"roles"`
}
