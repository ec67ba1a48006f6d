// Package service manages resident vehicles and the visitor log. Non-admin
// callers only see records tied to their own residencies.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"condo/internal/access"
	"condo/internal/gate/models"
	resmodels "condo/internal/residents/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
	"condo/pkg/requestcontext"
)

type Store interface {
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	FindVehicle(ctx context.Context, vehicleID id.VehicleID) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, filter models.VehicleFilter) ([]*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error
	DeleteVehicle(ctx context.Context, vehicleID id.VehicleID) error
	DeleteVehiclesByResidencies(ctx context.Context, residencyIDs []id.ResidencyID) error

	CreateVisitor(ctx context.Context, v *models.Visitor) error
	FindVisitor(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error)
	ListVisitors(ctx context.Context, filter models.VisitorFilter) ([]*models.Visitor, error)
	UpdateVisitor(ctx context.Context, v *models.Visitor) error
	DeleteVisitor(ctx context.Context, visitorID id.VisitorID) error
	DetachVisitors(ctx context.Context, residencyIDs []id.ResidencyID) error
}

// Residencies resolves residencies and the residencies a person holds.
type Residencies interface {
	GetResidency(ctx context.Context, residencyID id.ResidencyID) (*resmodels.Residency, error)
	ResidencyIDsOf(ctx context.Context, personID id.PersonID) ([]id.ResidencyID, error)
}

// Scoper decides whether the caller's reads are narrowed to owned records.
type Scoper interface {
	OwnerScoped(ctx context.Context, res access.Resource) bool
}

type Service struct {
	store       Store
	residencies Residencies
	scoper      Scoper
	tx          tx.Runner
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, residencies Residencies, scoper Scoper, runner tx.Runner, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("gate store is required")
	case residencies == nil:
		return nil, errors.New("residency directory is required")
	case scoper == nil:
		return nil, errors.New("access scoper is required")
	case runner == nil:
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		store:       store,
		residencies: residencies,
		scoper:      scoper,
		tx:          runner,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// scope returns the owner restriction for res. A caller without a person
// profile owns nothing.
func (s *Service) scope(ctx context.Context, res access.Resource) (models.Scope, error) {
	if !s.scoper.OwnerScoped(ctx, res) {
		return models.Scope{}, nil
	}
	principal, ok := requestcontext.PrincipalFrom(ctx)
	if !ok || principal.PersonID == nil {
		return models.Scope{Restricted: true}, nil
	}
	ids, err := s.residencies.ResidencyIDsOf(ctx, *principal.PersonID)
	if err != nil {
		return models.Scope{}, err
	}
	return models.Scope{Restricted: true, ResidencyIDs: ids}, nil
}

// ReleaseResidencies deletes the vehicles of removed residencies and clears
// them as authorizer of logged visitors. It runs in the caller's transaction.
func (s *Service) ReleaseResidencies(ctx context.Context, residencyIDs []id.ResidencyID) error {
	if err := s.store.DeleteVehiclesByResidencies(ctx, residencyIDs); err != nil {
		return err
	}
	return s.store.DetachVisitors(ctx, residencyIDs)
}

func (s *Service) checkResidency(ctx context.Context, fields dErrors.FieldErrors, field string, residencyID id.ResidencyID) error {
	_, err := s.residencies.GetResidency(ctx, residencyID)
	switch {
	case err == nil:
		return nil
	case dErrors.HasCode(err, dErrors.CodeNotFound), errors.Is(err, sentinel.ErrNotFound):
		fields.Add(field, fmt.Sprintf("Invalid pk %q - object does not exist.", residencyID.String()))
		return nil
	default:
		return err
	}
}

func newVehicleID() id.VehicleID { return id.VehicleID(uuid.New()) }
func newVisitorID() id.VisitorID { return id.VisitorID(uuid.New()) }

func translate(err error, what string) error {
	var derr *dErrors.Error
	switch {
	case errors.As(err, &derr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrDuplicate):
		return dErrors.Validation(map[string][]string{"plate": {"Vehicle with this plate already exists."}})
	case errors.Is(err, sentinel.ErrReferenced):
		return dErrors.New(dErrors.CodeValidation, what+" references a missing residency")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "gate store failure")
	}
}
