// Package models defines notices posted on the community board.
package models

import (
	"time"

	id "condo/pkg/domain"
)

type Notice struct {
	ID             id.NoticeID  `json:"id"`
	Title          string       `json:"title"`
	Body           string       `json:"body"`
	PublishedAt    time.Time    `json:"published_at"`
	ValidUntil     *time.Time   `json:"valid_until"`
	AuthorPersonID *id.PersonID `json:"author_person_id"`
	Active         bool         `json:"active"`
}

// Current reports whether the notice is shown to residents at now: it is
// active, already published and not past its validity.
func (n *Notice) Current(now time.Time) bool {
	if !n.Active || n.PublishedAt.After(now) {
		return false
	}
	return n.ValidUntil == nil || now.Before(*n.ValidUntil)
}

// Filter narrows listings. With CurrentOnly only notices current at Now
// are returned.
type Filter struct {
	CurrentOnly bool
	Now         time.Time
}

func (f Filter) Matches(n *Notice) bool {
	return !f.CurrentOnly || n.Current(f.Now)
}
