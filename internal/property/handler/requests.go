package handler

import (
	"strings"

	"condo/internal/property/service"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
)

type CreateUnitRequest struct {
	Code            string        `json:"code" validate:"required,max=20"`
	AreaM2          float64       `json:"area_m2" validate:"gte=0"`
	Rooms           int           `json:"rooms" validate:"gte=0"`
	CategoryID      *id.CatalogID `json:"category_id"`
	Description     string        `json:"description" validate:"max=1000"`
	OwnerIdentityID *id.UserID    `json:"owner_identity_id"`
}

func (r *CreateUnitRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateUnitRequest) toInput() service.Input {
	return service.Input{
		Code:            r.Code,
		AreaM2:          r.AreaM2,
		Rooms:           r.Rooms,
		CategoryID:      r.CategoryID,
		Description:     r.Description,
		OwnerIdentityID: r.OwnerIdentityID,
	}
}

// UpdateUnitRequest is a partial update. Sending null for category_id or
// owner_identity_id clears the reference.
type UpdateUnitRequest struct {
	Code            *string                         `json:"code" validate:"omitempty,max=20"`
	AreaM2          *float64                        `json:"area_m2" validate:"omitempty,gte=0"`
	Rooms           *int                            `json:"rooms" validate:"omitempty,gte=0"`
	CategoryID      httputil.Optional[id.CatalogID] `json:"category_id"`
	Description     *string                         `json:"description" validate:"omitempty,max=1000"`
	OwnerIdentityID httputil.Optional[id.UserID]    `json:"owner_identity_id"`
}

func (r *UpdateUnitRequest) Normalize() {
	if r.Code != nil {
		v := strings.TrimSpace(*r.Code)
		r.Code = &v
	}
	if r.Description != nil {
		v := strings.TrimSpace(*r.Description)
		r.Description = &v
	}
}

func (r *UpdateUnitRequest) toPatch() service.Patch {
	return service.Patch{
		Code:            r.Code,
		AreaM2:          r.AreaM2,
		Rooms:           r.Rooms,
		CategoryID:      r.CategoryID.Value,
		ClearCategory:   r.CategoryID.Null(),
		Description:     r.Description,
		OwnerIdentityID: r.OwnerIdentityID.Value,
		ClearOwner:      r.OwnerIdentityID.Null(),
	}
}
