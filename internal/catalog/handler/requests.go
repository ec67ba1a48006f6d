package handler

import (
	"strings"

	"condo/internal/catalog/service"
)

type EntryRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description" validate:"max=500"`
	DefaultAmount *int64 `json:"default_amount" validate:"omitempty,gte=0"`
}

func (r *EntryRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *EntryRequest) toInput() service.Input {
	return service.Input{Name: r.Name, Description: r.Description, DefaultAmount: r.DefaultAmount}
}

type PatchEntryRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=100"`
	Description   *string `json:"description" validate:"omitempty,max=500"`
	DefaultAmount *int64  `json:"default_amount" validate:"omitempty,gte=0"`
}

func (r *PatchEntryRequest) Normalize() {
	if r.Name != nil {
		v := strings.TrimSpace(*r.Name)
		r.Name = &v
	}
	if r.Description != nil {
		v := strings.TrimSpace(*r.Description)
		r.Description = &v
	}
}

func (r *PatchEntryRequest) toPatch() service.Patch {
	return service.Patch{Name: r.Name, Description: r.Description, DefaultAmount: r.DefaultAmount}
}
