package api

import (
	"context"
	"errors"

	authmodels "condo/internal/auth/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
)

type personLinks interface {
	FindByIdentity(ctx context.Context, userID id.UserID) (*authmodels.PersonSummary, error)
	UnlinkIdentity(ctx context.Context, userID id.UserID) error
}

type ownerRelease interface {
	ReleaseOwner(ctx context.Context, userID id.UserID) error
}

type identityDeleter interface {
	Delete(ctx context.Context, userID id.UserID) error
}

// personDirectory lets the auth module read and detach person profiles.
// Detaching an identity also clears the units it owned.
type personDirectory struct {
	persons personLinks
	units   ownerRelease
}

func (d personDirectory) FindByIdentity(ctx context.Context, userID id.UserID) (*authmodels.PersonSummary, error) {
	return d.persons.FindByIdentity(ctx, userID)
}

func (d personDirectory) UnlinkIdentity(ctx context.Context, userID id.UserID) error {
	if err := d.units.ReleaseOwner(ctx, userID); err != nil {
		return err
	}
	return d.persons.UnlinkIdentity(ctx, userID)
}

// identityRemover deletes the login of a removed person.
type identityRemover struct {
	identities identityDeleter
	units      ownerRelease
}

func (r identityRemover) RemoveIdentity(ctx context.Context, userID id.UserID) error {
	if err := r.units.ReleaseOwner(ctx, userID); err != nil {
		return err
	}
	if err := r.identities.Delete(ctx, userID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	return nil
}
