package handler

import (
	"strings"

	"condo/internal/gate/service"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
)

type CreateVehicleRequest struct {
	Plate       string          `json:"plate" validate:"required,max=10"`
	Brand       string          `json:"brand" validate:"max=50"`
	Model       string          `json:"model" validate:"max=50"`
	Color       string          `json:"color" validate:"max=30"`
	ResidencyID *id.ResidencyID `json:"residency_id" validate:"required"`
}

func (r *CreateVehicleRequest) Normalize() {
	r.Plate = strings.TrimSpace(r.Plate)
	r.Brand = strings.TrimSpace(r.Brand)
	r.Model = strings.TrimSpace(r.Model)
	r.Color = strings.TrimSpace(r.Color)
}

func (r *CreateVehicleRequest) toInput() service.VehicleInput {
	return service.VehicleInput{
		Plate:       r.Plate,
		Brand:       r.Brand,
		Model:       r.Model,
		Color:       r.Color,
		ResidencyID: *r.ResidencyID,
	}
}

type UpdateVehicleRequest struct {
	Plate       *string         `json:"plate" validate:"omitempty,min=1,max=10"`
	Brand       *string         `json:"brand" validate:"omitempty,max=50"`
	Model       *string         `json:"model" validate:"omitempty,max=50"`
	Color       *string         `json:"color" validate:"omitempty,max=30"`
	ResidencyID *id.ResidencyID `json:"residency_id"`
}

func (r *UpdateVehicleRequest) Normalize() {
	for _, f := range []**string{&r.Plate, &r.Brand, &r.Model, &r.Color} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
}

func (r *UpdateVehicleRequest) toPatch() service.VehiclePatch {
	return service.VehiclePatch{
		Plate:       r.Plate,
		Brand:       r.Brand,
		Model:       r.Model,
		Color:       r.Color,
		ResidencyID: r.ResidencyID,
	}
}

type CreateVisitorRequest struct {
	FullName     string          `json:"full_name" validate:"required,max=150"`
	DocumentID   string          `json:"document_id" validate:"max=30"`
	AuthorizedBy *id.ResidencyID `json:"authorized_by"`
}

func (r *CreateVisitorRequest) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.DocumentID = strings.TrimSpace(r.DocumentID)
}

func (r *CreateVisitorRequest) toInput() service.VisitorInput {
	return service.VisitorInput{
		FullName:     r.FullName,
		DocumentID:   r.DocumentID,
		AuthorizedBy: r.AuthorizedBy,
	}
}

// UpdateVisitorRequest is a partial update. A null authorized_by clears it.
type UpdateVisitorRequest struct {
	FullName     *string                           `json:"full_name" validate:"omitempty,min=1,max=150"`
	DocumentID   *string                           `json:"document_id" validate:"omitempty,max=30"`
	AuthorizedBy httputil.Optional[id.ResidencyID] `json:"authorized_by"`
}

func (r *UpdateVisitorRequest) Normalize() {
	for _, f := range []**string{&r.FullName, &r.DocumentID} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
}

func (r *UpdateVisitorRequest) toPatch() service.VisitorPatch {
	return service.VisitorPatch{
		FullName:        r.FullName,
		DocumentID:      r.DocumentID,
		AuthorizedBy:    r.AuthorizedBy.Value,
		ClearAuthorizer: r.AuthorizedBy.Null(),
	}
}
