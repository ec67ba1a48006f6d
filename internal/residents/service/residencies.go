package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	propertymodels "condo/internal/property/models"
	"condo/internal/residents/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
	"condo/pkg/requestcontext"
)

// Conflict sources for metrics.
const (
	SourceAdmin        = "admin"
	SourceRegistration = "registration"
)

// ResidencyInput is an administrative residency write. IsPrincipal is
// honoured as given; a unit that already has a principal rejects true.
type ResidencyInput struct {
	PersonID    id.PersonID
	UnitID      id.UnitID
	IsPrincipal bool
}

// ResidencyPatch is a partial update; nil fields are left unchanged.
type ResidencyPatch struct {
	PersonID    *id.PersonID
	UnitID      *id.UnitID
	IsPrincipal *bool
}

func (s *Service) ListResidencies(ctx context.Context, filter models.ResidencyFilter) ([]*models.Residency, error) {
	out, err := s.store.ListResidencies(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list residencies")
	}
	return out, nil
}

func (s *Service) GetResidency(ctx context.Context, residencyID id.ResidencyID) (*models.Residency, error) {
	r, err := s.store.FindResidency(ctx, residencyID)
	if err != nil {
		return nil, translateResidencyErr(err)
	}
	return r, nil
}

// ResidencyIDsOf lists the residencies held by personID.
func (s *Service) ResidencyIDsOf(ctx context.Context, personID id.PersonID) ([]id.ResidencyID, error) {
	residencies, err := s.store.ListResidencies(ctx, models.ResidencyFilter{PersonID: &personID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list residencies")
	}
	out := make([]id.ResidencyID, 0, len(residencies))
	for _, r := range residencies {
		out = append(out, r.ID)
	}
	return out, nil
}

// CreateResidency is the administrative write. It never demotes an existing
// principal: asking for a second one is a conflict naming the first.
func (s *Service) CreateResidency(ctx context.Context, in ResidencyInput) (*models.Residency, error) {
	r := &models.Residency{
		ID:          id.ResidencyID(uuid.New()),
		PersonID:    in.PersonID,
		UnitID:      in.UnitID,
		IsPrincipal: in.IsPrincipal,
		CreatedAt:   requestcontext.Now(ctx),
	}
	err := s.tx.RunInTx(tx.WithLockKey(ctx, propertymodels.LockKey(in.UnitID)), func(ctx context.Context) error {
		if err := s.checkResidencyRefs(ctx, r); err != nil {
			return err
		}
		return s.writeResidency(ctx, r, s.store.CreateResidency)
	})
	if err != nil {
		s.RecordConflict(ctx, err, in.UnitID, SourceAdmin)
		return nil, translateResidencyErr(err)
	}
	s.residencyCreated(r)
	return r, nil
}

func (s *Service) UpdateResidency(ctx context.Context, residencyID id.ResidencyID, patch ResidencyPatch) (*models.Residency, error) {
	current, err := s.store.FindResidency(ctx, residencyID)
	if err != nil {
		return nil, translateResidencyErr(err)
	}
	unitID := current.UnitID
	if patch.UnitID != nil {
		unitID = *patch.UnitID
	}

	var updated *models.Residency
	err = s.tx.RunInTx(tx.WithLockKey(ctx, propertymodels.LockKey(unitID)), func(ctx context.Context) error {
		r, err := s.store.FindResidency(ctx, residencyID)
		if err != nil {
			return err
		}
		if patch.PersonID != nil {
			r.PersonID = *patch.PersonID
		}
		if patch.UnitID != nil {
			r.UnitID = *patch.UnitID
		}
		if patch.IsPrincipal != nil {
			r.IsPrincipal = *patch.IsPrincipal
		}
		if err := s.checkResidencyRefs(ctx, r); err != nil {
			return err
		}
		if err := s.writeResidency(ctx, r, s.store.UpdateResidency); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		s.RecordConflict(ctx, err, unitID, SourceAdmin)
		return nil, translateResidencyErr(err)
	}
	return updated, nil
}

// DeleteResidency removes the residency and its vehicles, and detaches the
// visitors it authorized.
func (s *Service) DeleteResidency(ctx context.Context, residencyID id.ResidencyID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindResidency(ctx, residencyID); err != nil {
			return err
		}
		if err := s.releaseResidencies(ctx, []id.ResidencyID{residencyID}); err != nil {
			return err
		}
		return s.store.DeleteResidency(ctx, residencyID)
	})
	if err != nil {
		return translateResidencyErr(err)
	}
	return nil
}

// DeleteByUnit removes every residency of a unit that is being deleted. It
// runs inside the caller's transaction.
func (s *Service) DeleteByUnit(ctx context.Context, unitID id.UnitID) error {
	residencies, err := s.store.ListResidencies(ctx, models.ResidencyFilter{UnitID: &unitID})
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
	return s.store.DeleteResidenciesByUnit(ctx, unitID)
}

// EnrollInput describes a self-registered resident.
type EnrollInput struct {
	Code       string
	FirstName  string
	LastName   string
	Email      string
	Gender     string
	Phone      string
	IdentityID id.UserID
	UnitID     id.UnitID
}

// Enroll creates the resident profile and its residency inside the caller's
// transaction, which must already hold the unit lock. The residency is
// principal exactly when the unit has none yet. A conflict is returned
// unrecorded; the caller reports it through RecordConflict after rollback.
func (s *Service) Enroll(ctx context.Context, in EnrollInput) (*models.Person, *models.Residency, error) {
	role := id.RoleResident
	identityID := in.IdentityID
	person, err := s.createPerson(ctx, PersonInput{
		Code:       in.Code,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		Gender:     in.Gender,
		Phone:      in.Phone,
		Role:       &role,
		IdentityID: &identityID,
	})
	if err != nil {
		return nil, nil, translatePersonErr(err)
	}

	isPrincipal := false
	if _, err := s.store.FindPrincipal(ctx, in.UnitID); errors.Is(err, sentinel.ErrNotFound) {
		isPrincipal = true
	} else if err != nil {
		return nil, nil, translateResidencyErr(err)
	}
	residency := &models.Residency{
		ID:          id.ResidencyID(uuid.New()),
		PersonID:    person.ID,
		UnitID:      in.UnitID,
		IsPrincipal: isPrincipal,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.writeResidency(ctx, residency, s.store.CreateResidency); err != nil {
		return nil, nil, translateResidencyErr(err)
	}
	s.residencyCreated(residency)
	return person, residency, nil
}

// writeResidency applies write and turns a lost principal race into a
// conflict naming the current principal.
func (s *Service) writeResidency(ctx context.Context, r *models.Residency, write func(context.Context, *models.Residency) error) error {
	if r.IsPrincipal {
		existing, err := s.store.FindPrincipal(ctx, r.UnitID)
		switch {
		case err == nil && existing.ID != r.ID:
			return s.principalConflict(ctx, existing)
		case err != nil && !errors.Is(err, sentinel.ErrNotFound):
			return err
		}
	}
	err := write(ctx, r)
	if errors.Is(err, sentinel.ErrConflict) {
		existing, findErr := s.store.FindPrincipal(ctx, r.UnitID)
		if findErr != nil {
			return dErrors.Conflict("unit already has a principal resident", map[string][]string{
				"is_principal": {MessagePrincipalTaken},
			})
		}
		return s.principalConflict(ctx, existing)
	}
	return err
}

func (s *Service) principalConflict(ctx context.Context, existing *models.Residency) error {
	fields := map[string][]string{
		"is_principal":             {MessagePrincipalTaken},
		"conflicting_residency_id": {existing.ID.String()},
	}
	if p, err := s.store.FindPerson(ctx, existing.PersonID); err == nil {
		fields["conflicting_person_email"] = []string{p.Email}
	}
	return dErrors.Conflict("unit already has a principal resident", fields)
}

func (s *Service) checkResidencyRefs(ctx context.Context, r *models.Residency) error {
	fields := dErrors.FieldErrors{}
	if err := s.units.Lock(ctx, r.UnitID); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		fields.Add("unit_id", invalidPK(r.UnitID))
	}
	if _, err := s.store.FindPerson(ctx, r.PersonID); err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		fields.Add("person_id", invalidPK(r.PersonID))
	}
	return fields.Err()
}

// RecordConflict counts and audits a rejected principal write. Callers run it
// after their transaction rolled back so the audit record survives.
func (s *Service) RecordConflict(ctx context.Context, err error, unitID id.UnitID, source string) {
	if !dErrors.HasCode(err, dErrors.CodeConflict) {
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementPrincipalConflict(source)
	}
	var reason string
	if held := dErrors.Fields(err)["conflicting_residency_id"]; len(held) > 0 {
		reason = fmt.Sprintf("held by residency %s", held[0])
	}
	s.logger.InfoContext(ctx, "principal residency conflict",
		"unit_id", unitID.String(),
		"source", source,
		"reason", reason,
	)
	s.emitBestEffort(ctx, audit.EventResidencyPrincipalConflict, audit.Event{
		Subject: unitID.String(),
		Reason:  reason,
	})
}

func (s *Service) residencyCreated(r *models.Residency) {
	if s.metrics != nil {
		s.metrics.IncrementResidencyCreated(r.IsPrincipal)
	}
}
