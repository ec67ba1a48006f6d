// Package service manages condominium units and removes everything that
// belongs to a unit when it is deleted.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	authmodels "condo/internal/auth/models"
	catalogmodels "condo/internal/catalog/models"
	"condo/internal/property/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
	"condo/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, unit *models.Unit) error
	FindByID(ctx context.Context, unitID id.UnitID) (*models.Unit, error)
	LockForUpdate(ctx context.Context, unitID id.UnitID) error
	List(ctx context.Context) ([]*models.Unit, error)
	Update(ctx context.Context, unit *models.Unit) error
	Delete(ctx context.Context, unitID id.UnitID) error
	ClearCategory(ctx context.Context, categoryID id.CatalogID) error
	ClearOwner(ctx context.Context, userID id.UserID) error
}

// Catalog checks that a referenced category exists.
type Catalog interface {
	Exists(ctx context.Context, kind catalogmodels.Kind, entryID id.CatalogID) (bool, error)
}

// Identities resolves owner identities.
type Identities interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.Identity, error)
}

// UnitDependent owns records that are removed together with a unit.
type UnitDependent interface {
	DeleteByUnit(ctx context.Context, unitID id.UnitID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	tx             tx.Runner
	catalog        Catalog
	identities     Identities
	dependents     []UnitDependent
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCatalog(c Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

func WithIdentities(i Identities) Option {
	return func(s *Service) { s.identities = i }
}

// WithDependents registers modules whose records go away with a unit. They
// run in order inside the deleting transaction.
func WithDependents(deps ...UnitDependent) Option {
	return func(s *Service) { s.dependents = append(s.dependents, deps...) }
}

// AddDependents is WithDependents for modules built after the service.
func (s *Service) AddDependents(deps ...UnitDependent) error {
	for _, d := range deps {
		if d == nil {
			return errors.New("unit dependent is nil")
		}
	}
	s.dependents = append(s.dependents, deps...)
	return nil
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func New(store Store, runner tx.Runner, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("unit store is required")
	}
	if runner == nil {
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{store: store, tx: runner, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Input carries the writable unit fields.
type Input struct {
	Code            string
	AreaM2          float64
	Rooms           int
	CategoryID      *id.CatalogID
	Description     string
	OwnerIdentityID *id.UserID
}

// Patch is a partial update. The Clear flags null an optional reference.
type Patch struct {
	Code            *string
	AreaM2          *float64
	Rooms           *int
	CategoryID      *id.CatalogID
	ClearCategory   bool
	Description     *string
	OwnerIdentityID *id.UserID
	ClearOwner      bool
}

func (s *Service) List(ctx context.Context) ([]*models.Unit, error) {
	units, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list units")
	}
	return units, nil
}

func (s *Service) Get(ctx context.Context, unitID id.UnitID) (*models.Unit, error) {
	unit, err := s.store.FindByID(ctx, unitID)
	if err != nil {
		return nil, translate(err)
	}
	return unit, nil
}

// Lock takes the unit's row lock for the surrounding transaction. A missing
// unit is reported as not found.
func (s *Service) Lock(ctx context.Context, unitID id.UnitID) error {
	if err := s.store.LockForUpdate(ctx, unitID); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Unit, error) {
	unit := &models.Unit{
		ID:              id.UnitID(uuid.New()),
		Code:            in.Code,
		AreaM2:          in.AreaM2,
		Rooms:           in.Rooms,
		CategoryID:      in.CategoryID,
		Description:     in.Description,
		OwnerIdentityID: in.OwnerIdentityID,
		CreatedAt:       requestcontext.Now(ctx),
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, unit); err != nil {
			return err
		}
		return s.store.Create(ctx, unit)
	})
	if err != nil {
		return nil, translate(err)
	}
	s.logger.InfoContext(ctx, "unit created", "unit_id", unit.ID.String(), "code", unit.Code)
	return unit, nil
}

func (s *Service) Update(ctx context.Context, unitID id.UnitID, p Patch) (*models.Unit, error) {
	var updated *models.Unit
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		unit, err := s.store.FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		p.apply(unit)
		if err := s.checkReferences(ctx, unit); err != nil {
			return err
		}
		if err := s.store.Update(ctx, unit); err != nil {
			return err
		}
		updated = unit
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

func (p Patch) apply(u *models.Unit) {
	if p.Code != nil {
		u.Code = *p.Code
	}
	if p.AreaM2 != nil {
		u.AreaM2 = *p.AreaM2
	}
	if p.Rooms != nil {
		u.Rooms = *p.Rooms
	}
	if p.Description != nil {
		u.Description = *p.Description
	}
	switch {
	case p.ClearCategory:
		u.CategoryID = nil
	case p.CategoryID != nil:
		u.CategoryID = p.CategoryID
	}
	switch {
	case p.ClearOwner:
		u.OwnerIdentityID = nil
	case p.OwnerIdentityID != nil:
		u.OwnerIdentityID = p.OwnerIdentityID
	}
}

// Delete removes the unit together with its residencies and fees.
func (s *Service) Delete(ctx context.Context, unitID id.UnitID) error {
	err := s.tx.RunInTx(tx.WithLockKey(ctx, models.LockKey(unitID)), func(ctx context.Context) error {
		unit, err := s.store.FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		for _, d := range s.dependents {
			if err := d.DeleteByUnit(ctx, unitID); err != nil {
				return err
			}
		}
		if err := s.store.Delete(ctx, unitID); err != nil {
			return err
		}
		return s.emit(ctx, audit.Event{
			Action:  string(audit.EventUnitDeleted),
			Subject: unit.Code,
		})
	})
	if err != nil {
		return translate(err)
	}
	s.logger.InfoContext(ctx, "unit deleted", "unit_id", unitID.String())
	return nil
}

// CatalogInUse never blocks: units drop a removed category.
func (s *Service) CatalogInUse(context.Context, catalogmodels.Kind, id.CatalogID) (bool, error) {
	return false, nil
}

func (s *Service) ReleaseCatalog(ctx context.Context, kind catalogmodels.Kind, entryID id.CatalogID) error {
	if kind != catalogmodels.UnitCategories {
		return nil
	}
	return s.store.ClearCategory(ctx, entryID)
}

// ReleaseOwner detaches units owned by a removed identity.
func (s *Service) ReleaseOwner(ctx context.Context, userID id.UserID) error {
	return s.store.ClearOwner(ctx, userID)
}

func (s *Service) checkReferences(ctx context.Context, u *models.Unit) error {
	fields := dErrors.FieldErrors{}
	if u.Code == "" {
		fields.Add("code", "This field may not be blank.")
	}
	if u.AreaM2 < 0 {
		fields.Add("area_m2", "Ensure this value is greater than or equal to 0.")
	}
	if u.Rooms < 0 {
		fields.Add("rooms", "Ensure this value is greater than or equal to 0.")
	}
	if u.CategoryID != nil && s.catalog != nil {
		ok, err := s.catalog.Exists(ctx, catalogmodels.UnitCategories, *u.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			fields.Add("category_id", invalidPK(u.CategoryID.String()))
		}
	}
	if u.OwnerIdentityID != nil && s.identities != nil {
		_, err := s.identities.FindByID(ctx, *u.OwnerIdentityID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			fields.Add("owner_identity_id", invalidPK(u.OwnerIdentityID.String()))
		case err != nil:
			return err
		}
	}
	return fields.Err()
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, event)
}

func invalidPK(v string) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", v)
}

func translate(err error) error {
	var derr *dErrors.Error
	switch {
	case errors.As(err, &derr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "unit not found")
	case errors.Is(err, sentinel.ErrDuplicate):
		return dErrors.Validation(map[string][]string{"code": {"Unit with this code already exists."}})
	case errors.Is(err, sentinel.ErrReferenced):
		return dErrors.New(dErrors.CodeValidation, "unit references a missing record")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "unit store failure")
	}
}
