package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	authmodels "condo/internal/auth/models"
	"condo/internal/residents/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/sentinel"
	"condo/pkg/requestcontext"
)

// PersonInput carries the writable profile fields. A nil Role means Resident.
type PersonInput struct {
	Code       string
	FirstName  string
	LastName   string
	Email      string
	Gender     string
	Phone      string
	Role       *id.RoleName
	IdentityID *id.UserID
}

// PersonPatch is a partial update; nil fields are left unchanged.
type PersonPatch struct {
	Code      *string
	FirstName *string
	LastName  *string
	Email     *string
	Gender    *string
	Phone     *string
	Role      *id.RoleName
}

func (s *Service) ListPersons(ctx context.Context) ([]*models.Person, error) {
	persons, err := s.store.ListPersons(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list residents")
	}
	return persons, nil
}

func (s *Service) GetPerson(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	p, err := s.store.FindPerson(ctx, personID)
	if err != nil {
		return nil, translatePersonErr(err)
	}
	return p, nil
}

// EmailTaken reports whether a profile already uses email, ignoring case.
func (s *Service) EmailTaken(ctx context.Context, email string) (bool, error) {
	taken, err := s.store.EmailTaken(ctx, email)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "residents store failure")
	}
	return taken, nil
}

// CodeTaken reports whether a profile already uses code.
func (s *Service) CodeTaken(ctx context.Context, code string) (bool, error) {
	taken, err := s.store.CodeTaken(ctx, code)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "residents store failure")
	}
	return taken, nil
}

func (s *Service) CreatePerson(ctx context.Context, in PersonInput) (*models.Person, error) {
	var person *models.Person
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.createPerson(ctx, in)
		person = p
		return err
	})
	if err != nil {
		return nil, translatePersonErr(err)
	}
	s.logger.InfoContext(ctx, "resident created", "person_id", person.ID.String(), "code", person.Code)
	return person, nil
}

func (s *Service) createPerson(ctx context.Context, in PersonInput) (*models.Person, error) {
	role := id.RoleResident
	if in.Role != nil {
		role = *in.Role
	}
	if !s.roles.Exists(role) {
		return nil, dErrors.Validation(map[string][]string{
			"role": {fmt.Sprintf("Group '%s' does not exist.", role)},
		})
	}
	p := &models.Person{
		ID:         id.PersonID(uuid.New()),
		Code:       in.Code,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		Gender:     in.Gender,
		Phone:      in.Phone,
		RoleID:     s.roles.ID(role),
		IdentityID: in.IdentityID,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.CreatePerson(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePerson(ctx context.Context, personID id.PersonID, patch PersonPatch) (*models.Person, error) {
	var updated *models.Person
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.FindPerson(ctx, personID)
		if err != nil {
			return err
		}
		if patch.Role != nil {
			if !s.roles.Exists(*patch.Role) {
				return dErrors.Validation(map[string][]string{
					"role": {fmt.Sprintf("Group '%s' does not exist.", *patch.Role)},
				})
			}
			p.RoleID = s.roles.ID(*patch.Role)
		}
		setIf(&p.Code, patch.Code)
		setIf(&p.FirstName, patch.FirstName)
		setIf(&p.LastName, patch.LastName)
		setIf(&p.Email, patch.Email)
		setIf(&p.Gender, patch.Gender)
		setIf(&p.Phone, patch.Phone)
		if err := s.store.UpdatePerson(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, translatePersonErr(err)
	}
	return updated, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// DeletePerson removes the person, its residencies with their vehicles, and
// its login identity. Visitors it authorized stay without an authorizer.
func (s *Service) DeletePerson(ctx context.Context, personID id.PersonID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.FindPerson(ctx, personID)
		if err != nil {
			return translatePersonErr(err)
		}
		residencies, err := s.store.ListResidencies(ctx, models.ResidencyFilter{PersonID: &personID})
		if err != nil {
			return err
		}
		residencyIDs := make([]id.ResidencyID, 0, len(residencies))
		for _, r := range residencies {
			residencyIDs = append(residencyIDs, r.ID)
		}
		if err := s.releaseResidencies(ctx, residencyIDs); err != nil {
			return err
		}
		for _, d := range s.personDeps {
			if err := d.ReleasePerson(ctx, personID); err != nil {
				return err
			}
		}
		if err := s.store.DeletePerson(ctx, personID); err != nil {
			return translatePersonErr(err)
		}

		event := audit.Event{
			Subject: p.FullName(),
			Email:   p.Email,
			Reason:  fmt.Sprintf("%d residencies removed", len(residencyIDs)),
		}
		if p.IdentityID != nil && s.identities != nil {
			if err := s.identities.RemoveIdentity(ctx, *p.IdentityID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return err
			}
			event.UserID = *p.IdentityID
		}
		return s.emit(ctx, audit.EventPersonDeleted, event)
	})
	if err != nil {
		return asDomainErr(err, "failed to delete resident")
	}
	if s.metrics != nil {
		s.metrics.PersonsDeleted.Inc()
	}
	s.logger.InfoContext(ctx, "resident deleted", "person_id", personID.String())
	return nil
}

// FindByIdentity returns the profile summary linked to userID, or
// sentinel.ErrNotFound when the identity has none.
func (s *Service) FindByIdentity(ctx context.Context, userID id.UserID) (*authmodels.PersonSummary, error) {
	p, err := s.store.FindPersonByIdentity(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &authmodels.PersonSummary{
		ID:        p.ID,
		Code:      p.Code,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
	}, nil
}

// UnlinkIdentity detaches the profile linked to userID from it. It returns
// sentinel.ErrNotFound when there is none.
func (s *Service) UnlinkIdentity(ctx context.Context, userID id.UserID) error {
	return s.store.UnlinkIdentity(ctx, userID)
}
