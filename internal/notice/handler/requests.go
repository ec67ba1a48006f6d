package handler

import (
	"strings"
	"time"

	"condo/internal/notice/service"
	id "condo/pkg/domain"
	"condo/pkg/platform/httputil"
)

type CreateNoticeRequest struct {
	Title          string       `json:"title" validate:"required,max=200"`
	Body           string       `json:"body" validate:"required"`
	PublishedAt    *time.Time   `json:"published_at"`
	ValidUntil     *time.Time   `json:"valid_until"`
	AuthorPersonID *id.PersonID `json:"author_person_id"`
	Active         *bool        `json:"active"`
}

func (r *CreateNoticeRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
}

func (r *CreateNoticeRequest) toInput() service.Input {
	return service.Input{
		Title:          r.Title,
		Body:           r.Body,
		PublishedAt:    r.PublishedAt,
		ValidUntil:     r.ValidUntil,
		AuthorPersonID: r.AuthorPersonID,
		Active:         r.Active,
	}
}

// UpdateNoticeRequest is a partial update. A null valid_until or
// author_person_id clears it.
type UpdateNoticeRequest struct {
	Title          *string                        `json:"title" validate:"omitempty,min=1,max=200"`
	Body           *string                        `json:"body" validate:"omitempty,min=1"`
	PublishedAt    *time.Time                     `json:"published_at"`
	ValidUntil     httputil.Optional[time.Time]   `json:"valid_until"`
	AuthorPersonID httputil.Optional[id.PersonID] `json:"author_person_id"`
	Active         *bool                          `json:"active"`
}

func (r *UpdateNoticeRequest) Normalize() {
	for _, f := range []**string{&r.Title, &r.Body} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
}

func (r *UpdateNoticeRequest) toPatch() service.Patch {
	return service.Patch{
		Title:           r.Title,
		Body:            r.Body,
		PublishedAt:     r.PublishedAt,
		ValidUntil:      r.ValidUntil.Value,
		ClearValidUntil: r.ValidUntil.Null(),
		AuthorPersonID:  r.AuthorPersonID.Value,
		ClearAuthor:     r.AuthorPersonID.Null(),
		Active:          r.Active,
	}
}
