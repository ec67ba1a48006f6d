package handler

import (
	"strings"

	"condo/internal/residents/service"
	id "condo/pkg/domain"
)

type CreatePersonRequest struct {
	Code      string  `json:"code" validate:"required,max=20"`
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Gender    string  `json:"gender" validate:"max=20"`
	Phone     string  `json:"phone" validate:"max=20"`
	Role      *string `json:"role" validate:"omitempty,max=150"`
}

func (r *CreatePersonRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.Gender = strings.TrimSpace(r.Gender)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *CreatePersonRequest) toInput() service.PersonInput {
	in := service.PersonInput{
		Code:      r.Code,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Gender:    r.Gender,
		Phone:     r.Phone,
	}
	if r.Role != nil {
		role := id.RoleName(strings.TrimSpace(*r.Role))
		in.Role = &role
	}
	return in
}

type UpdatePersonRequest struct {
	Code      *string `json:"code" validate:"omitempty,min=1,max=20"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	Gender    *string `json:"gender" validate:"omitempty,max=20"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Role      *string `json:"role" validate:"omitempty,max=150"`
}

func (r *UpdatePersonRequest) Normalize() {
	for _, f := range []**string{&r.Code, &r.FirstName, &r.LastName, &r.Email, &r.Gender, &r.Phone, &r.Role} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
}

func (r *UpdatePersonRequest) toPatch() service.PersonPatch {
	p := service.PersonPatch{
		Code:      r.Code,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Gender:    r.Gender,
		Phone:     r.Phone,
	}
	if r.Role != nil {
		role := id.RoleName(*r.Role)
		p.Role = &role
	}
	return p
}

type CreateResidencyRequest struct {
	PersonID    *id.PersonID `json:"person_id" validate:"required"`
	UnitID      *id.UnitID   `json:"unit_id" validate:"required"`
	IsPrincipal bool         `json:"is_principal"`
}

func (r *CreateResidencyRequest) toInput() service.ResidencyInput {
	return service.ResidencyInput{PersonID: *r.PersonID, UnitID: *r.UnitID, IsPrincipal: r.IsPrincipal}
}

type UpdateResidencyRequest struct {
	PersonID    *id.PersonID `json:"person_id"`
	UnitID      *id.UnitID   `json:"unit_id"`
	IsPrincipal *bool        `json:"is_principal"`
}

func (r *UpdateResidencyRequest) toPatch() service.ResidencyPatch {
	return service.ResidencyPatch{PersonID: r.PersonID, UnitID: r.UnitID, IsPrincipal: r.IsPrincipal}
}
