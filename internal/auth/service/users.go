package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"condo/internal/auth/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/sentinel"
	"condo/pkg/requestcontext"
)

// Me returns the caller's identity, person summary and groups.
func (s *Service) Me(ctx context.Context) (*models.IdentityView, error) {
	principal, ok := requestcontext.PrincipalFrom(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return s.GetUser(ctx, principal.UserID)
}

func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.IdentityView, error) {
	identity, err := s.identities.FindByID(ctx, userID)
	if err != nil {
		return nil, translateIdentityErr(err)
	}
	person, err := s.personOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := identity.View(person)
	return &view, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.IdentityView, error) {
	identities, err := s.identities.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	out := make([]models.IdentityView, 0, len(identities))
	for _, identity := range identities {
		out = append(out, identity.View(nil))
	}
	return out, nil
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Groups *[]id.RoleName
	Active *bool
}

// UpdateUser replaces the identity's groups and/or active flag. Every group
// must exist; nothing is written otherwise.
func (s *Service) UpdateUser(ctx context.Context, userID id.UserID, upd UserUpdate) (*models.IdentityView, error) {
	if upd.Groups != nil {
		fields := dErrors.FieldErrors{}
		for _, g := range *upd.Groups {
			if !s.roles.Exists(g) {
				fields.Add("groups", fmt.Sprintf("Group '%s' does not exist.", g))
			}
		}
		if !fields.Empty() {
			return nil, fields.Err()
		}
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		identity, err := s.identities.FindByID(ctx, userID)
		if err != nil {
			return translateIdentityErr(err)
		}
		if upd.Active != nil && *upd.Active != identity.Active {
			if err := s.identities.SetActive(ctx, userID, *upd.Active); err != nil {
				return translateIdentityErr(err)
			}
		}
		if upd.Groups == nil {
			return nil
		}
		groups := slices.Clone(*upd.Groups)
		slices.Sort(groups)
		groups = slices.Compact(groups)
		if slices.Equal(groups, sortedRoles(identity.Roles)) {
			return nil
		}
		if err := s.identities.SetRoles(ctx, userID, groups); err != nil {
			return translateIdentityErr(err)
		}
		return s.emit(ctx, audit.EventIdentityRolesChanged, audit.Event{
			UserID:  userID,
			Subject: identity.Username,
			Reason:  fmt.Sprintf("%v -> %v", identity.Roles, groups),
		})
	})
	if err != nil {
		return nil, asDomainErr(err, "failed to update user")
	}
	return s.GetUser(ctx, userID)
}

// DeleteUser removes an identity. A linked person profile stays and loses
// its login.
func (s *Service) DeleteUser(ctx context.Context, userID id.UserID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "user ID required")
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Capture the identity before deletion to enrich the audit event.
		identity, err := s.identities.FindByID(ctx, userID)
		if err != nil {
			return translateIdentityErr(err)
		}
		if err := s.persons.UnlinkIdentity(ctx, userID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unlink person profile")
		}
		if err := s.identities.Delete(ctx, userID); err != nil {
			return translateIdentityErr(err)
		}
		return s.emit(ctx, audit.EventIdentityDeleted, audit.Event{
			UserID:  userID,
			Subject: identity.Username,
			Email:   identity.Email,
		})
	})
	return asDomainErr(err, "failed to delete user")
}

func (s *Service) personOf(ctx context.Context, userID id.UserID) (*models.PersonSummary, error) {
	person, err := s.persons.FindByIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load person profile")
	}
	return person, nil
}

func sortedRoles(roles []id.RoleName) []id.RoleName {
	out := slices.Clone(roles)
	slices.Sort(out)
	return out
}

func translateIdentityErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
}

// asDomainErr passes coded errors through and wraps anything else as internal.
func asDomainErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var derr *dErrors.Error
	if errors.As(err, &derr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
