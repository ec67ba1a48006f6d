// Package models holds the authentication identity and the token DTOs.
package models

import (
	"slices"
	"time"

	id "condo/pkg/domain"
)

// Identity is a login account. Person profiles link to it one-to-one.
type Identity struct {
	ID           id.UserID
	Username     string
	Email        string
	PasswordHash []byte
	Active       bool
	Roles        []id.RoleName
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

func (i *Identity) HasRole(role id.RoleName) bool {
	return slices.Contains(i.Roles, role)
}

// PersonSummary is the profile slice the auth module exposes for the caller.
type PersonSummary struct {
	ID        id.PersonID `json:"id"`
	Code      string      `json:"code"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
}

// TokenPair is issued on login.
type TokenPair struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// AccessToken is issued on refresh.
type AccessToken struct {
	Access    string `json:"access"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// IdentityView is the JSON shape of an identity in API responses.
type IdentityView struct {
	ID          id.UserID      `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	Active      bool           `json:"is_active"`
	Groups      []id.RoleName  `json:"groups"`
	DateJoined  time.Time      `json:"date_joined"`
	LastLoginAt *time.Time     `json:"last_login,omitempty"`
	Person      *PersonSummary `json:"person,omitempty"`
}

// View renders i without its password hash.
func (i *Identity) View(person *PersonSummary) IdentityView {
	groups := i.Roles
	if groups == nil {
		groups = []id.RoleName{}
	}
	return IdentityView{
		ID:          i.ID,
		Username:    i.Username,
		Email:       i.Email,
		Active:      i.Active,
		Groups:      groups,
		DateJoined:  i.CreatedAt,
		LastLoginAt: i.LastLoginAt,
		Person:      person,
	}
}
