package handler

import (
	"strings"

	"condo/internal/auth/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

func (r *RefreshRequest) Normalize() {
	r.Refresh = strings.TrimSpace(r.Refresh)
}

// UpdateUserRequest is a partial update; absent fields are left unchanged.
type UpdateUserRequest struct {
	Groups   *[]string `json:"groups"`
	IsActive *bool     `json:"is_active"`
}

func (r *UpdateUserRequest) Normalize() {
	if r.Groups == nil {
		return
	}
	groups := make([]string, 0, len(*r.Groups))
	for _, g := range *r.Groups {
		groups = append(groups, strings.TrimSpace(g))
	}
	r.Groups = &groups
}

func (r *UpdateUserRequest) Validate() error {
	if r.Groups == nil && r.IsActive == nil {
		return dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	if r.Groups != nil {
		for _, g := range *r.Groups {
			if g == "" {
				return dErrors.Validation(map[string][]string{"groups": {"Group names may not be blank."}})
			}
		}
	}
	return nil
}

func (r *UpdateUserRequest) toUpdate() service.UserUpdate {
	upd := service.UserUpdate{Active: r.IsActive}
	if r.Groups != nil {
		groups := make([]id.RoleName, len(*r.Groups))
		for i, g := range *r.Groups {
			groups[i] = id.RoleName(g)
		}
		upd.Groups = &groups
	}
	return upd
}
