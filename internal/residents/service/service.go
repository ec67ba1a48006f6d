// Package service manages person profiles and residencies and guards the
// rule that a unit has at most one principal residency.
package service

import (
	"context"
	"errors"
	"log/slog"

	"condo/internal/residents/metrics"
	"condo/internal/residents/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/tx"
)

type Store interface {
	CreatePerson(ctx context.Context, p *models.Person) error
	FindPerson(ctx context.Context, personID id.PersonID) (*models.Person, error)
	FindPersonByIdentity(ctx context.Context, userID id.UserID) (*models.Person, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	CodeTaken(ctx context.Context, code string) (bool, error)
	ListPersons(ctx context.Context) ([]*models.Person, error)
	UpdatePerson(ctx context.Context, p *models.Person) error
	DeletePerson(ctx context.Context, personID id.PersonID) error
	UnlinkIdentity(ctx context.Context, userID id.UserID) error

	CreateResidency(ctx context.Context, r *models.Residency) error
	FindResidency(ctx context.Context, residencyID id.ResidencyID) (*models.Residency, error)
	FindPrincipal(ctx context.Context, unitID id.UnitID) (*models.Residency, error)
	ListResidencies(ctx context.Context, filter models.ResidencyFilter) ([]*models.Residency, error)
	UpdateResidency(ctx context.Context, r *models.Residency) error
	DeleteResidency(ctx context.Context, residencyID id.ResidencyID) error
	DeleteResidenciesByUnit(ctx context.Context, unitID id.UnitID) error
}

// Units takes the row lock of a unit for the surrounding transaction and
// reports a missing unit with a not-found domain error.
type Units interface {
	Lock(ctx context.Context, unitID id.UnitID) error
}

// Roles resolves group names.
type Roles interface {
	ID(name id.RoleName) id.RoleID
	Exists(name id.RoleName) bool
}

// IdentityRemover deletes the login of a removed person.
type IdentityRemover interface {
	RemoveIdentity(ctx context.Context, userID id.UserID) error
}

// ResidencyDependent owns records hanging off residencies: vehicles go
// with the residency, visitors lose their authorizer.
type ResidencyDependent interface {
	ReleaseResidencies(ctx context.Context, residencyIDs []id.ResidencyID) error
}

// PersonDependent drops references to a person being deleted.
type PersonDependent interface {
	ReleasePerson(ctx context.Context, personID id.PersonID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	units          Units
	roles          Roles
	tx             tx.Runner
	identities     IdentityRemover
	dependents     []ResidencyDependent
	personDeps     []PersonDependent
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithIdentityRemover(r IdentityRemover) Option {
	return func(s *Service) { s.identities = r }
}

func WithDependents(deps ...ResidencyDependent) Option {
	return func(s *Service) { s.dependents = append(s.dependents, deps...) }
}

// AddDependents registers dependents that need the service to be built
// first. Call it during wiring, before serving requests.
func (s *Service) AddDependents(deps ...ResidencyDependent) error {
	for _, d := range deps {
		if d == nil {
			return errors.New("residency dependent is nil")
		}
	}
	s.dependents = append(s.dependents, deps...)
	return nil
}

// AddPersonDependents registers modules that reference persons directly.
func (s *Service) AddPersonDependents(deps ...PersonDependent) error {
	for _, d := range deps {
		if d == nil {
			return errors.New("person dependent is nil")
		}
	}
	s.personDeps = append(s.personDeps, deps...)
	return nil
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, units Units, roles Roles, runner tx.Runner, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("residents store is required")
	case units == nil:
		return nil, errors.New("unit locker is required")
	case roles == nil:
		return nil, errors.New("role catalog is required")
	case runner == nil:
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		store:  store,
		units:  units,
		roles:  roles,
		tx:     runner,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, base audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	base.Action = string(event)
	return s.auditPublisher.Emit(ctx, base)
}

func (s *Service) emitBestEffort(ctx context.Context, event audit.AuditEvent, base audit.Event) {
	if err := s.emit(ctx, event, base); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event",
			"event", string(event),
			"error", err,
		)
	}
}

func (s *Service) releaseResidencies(ctx context.Context, residencyIDs []id.ResidencyID) error {
	if len(residencyIDs) == 0 {
		return nil
	}
	for _, d := range s.dependents {
		if err := d.ReleaseResidencies(ctx, residencyIDs); err != nil {
			return err
		}
	}
	return nil
}
