package service

import (
	"context"
	"errors"

	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
	"condo/pkg/requestcontext"
)

// ResolvePrincipal loads the current roles and person link of a token
// subject. Deleted or disabled identities are unauthorized even while their
// tokens are unexpired.
func (s *Service) ResolvePrincipal(ctx context.Context, userID string) (requestcontext.Principal, error) {
	uid, err := id.ParseUserID(userID)
	if err != nil {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	identity, err := s.identities.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "user not found")
		}
		return requestcontext.Principal{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if !identity.Active {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "user inactive")
	}

	principal := requestcontext.Principal{
		UserID:   identity.ID,
		Username: identity.Username,
		Roles:    identity.Roles,
	}
	person, err := s.personOf(ctx, uid)
	if err != nil {
		return requestcontext.Principal{}, err
	}
	if person != nil {
		pid := person.ID
		principal.PersonID = &pid
	}
	return principal, nil
}
