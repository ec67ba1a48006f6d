package testutil

import (
	"net/http"

	"github.com/google/uuid"

	id "condo/pkg/domain"
	"condo/pkg/requestcontext"
)

// WithPrincipal attaches an authenticated caller to the request context.
// This simulates what the auth middleware would do for a valid bearer token.
func WithPrincipal(req *http.Request, p requestcontext.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}

// AsAdmin attaches a fresh administrator principal.
func AsAdmin(req *http.Request) *http.Request {
	return WithPrincipal(req, requestcontext.Principal{
		UserID:   id.UserID(uuid.New()),
		Username: "admin@condo.test",
		Roles:    []id.RoleName{id.RoleAdmin},
	})
}

// AsResident attaches a resident principal linked to personID.
func AsResident(req *http.Request, personID id.PersonID) *http.Request {
	return WithPrincipal(req, requestcontext.Principal{
		UserID:   id.UserID(uuid.New()),
		PersonID: &personID,
		Username: "resident@condo.test",
		Roles:    []id.RoleName{id.RoleResident},
	})
}
