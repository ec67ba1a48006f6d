package handler

import (
	"strings"

	"condo/internal/registration/service"
	id "condo/pkg/domain"
)

// RegisterRequest is the self-service sign-up payload. Username is optional
// and defaults to the email.
type RegisterRequest struct {
	Username  string     `json:"username" validate:"max=150"`
	Email     string     `json:"email" validate:"required,email,max=254"`
	Password  string     `json:"password" validate:"required,max=128"`
	Code      string     `json:"code" validate:"required,max=20"`
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"required,max=100"`
	Gender    string     `json:"gender" validate:"max=20"`
	Phone     string     `json:"phone" validate:"max=20"`
	UnitID    *id.UnitID `json:"unit_id" validate:"required"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.Code = strings.TrimSpace(r.Code)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Gender = strings.TrimSpace(r.Gender)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *RegisterRequest) toInput() service.Input {
	return service.Input{
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.Password,
		Code:      r.Code,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Gender:    r.Gender,
		Phone:     r.Phone,
		UnitID:    *r.UnitID,
	}
}
