// Package service implements self-service resident registration: a login
// identity, its person profile and a residency in one unit, created together
// or not at all.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	authmodels "condo/internal/auth/models"
	propertymodels "condo/internal/property/models"
	"condo/internal/registration/metrics"
	"condo/internal/registration/models"
	residentmodels "condo/internal/residents/models"
	residentsvc "condo/internal/residents/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
	"condo/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Identities,Residents,Units,Hasher,AuditPublisher

var tracer = otel.Tracer("condo/internal/registration")

type Identities interface {
	Create(ctx context.Context, identity *authmodels.Identity) error
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	AddRole(ctx context.Context, userID id.UserID, role id.RoleName) error
}

// Residents creates the profile and residency inside the registration
// transaction and records principal conflicts after it rolled back.
type Residents interface {
	EmailTaken(ctx context.Context, email string) (bool, error)
	CodeTaken(ctx context.Context, code string) (bool, error)
	Enroll(ctx context.Context, in residentsvc.EnrollInput) (*residentmodels.Person, *residentmodels.Residency, error)
	RecordConflict(ctx context.Context, err error, unitID id.UnitID, source string)
}

// Units reports missing units with a not-found domain error.
type Units interface {
	Get(ctx context.Context, unitID id.UnitID) (*propertymodels.Unit, error)
	Lock(ctx context.Context, unitID id.UnitID) error
}

type Hasher interface {
	Hash(pw string) ([]byte, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Input is a validated registration request. An empty Username means the
// email is the login name.
type Input struct {
	Username  string
	Email     string
	Password  string
	Code      string
	FirstName string
	LastName  string
	Gender    string
	Phone     string
	UnitID    id.UnitID
}

type Service struct {
	identities     Identities
	residents      Residents
	units          Units
	hasher         Hasher
	tx             tx.Runner
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(identities Identities, residents Residents, units Units, hasher Hasher, runner tx.Runner, opts ...Option) (*Service, error) {
	switch {
	case identities == nil:
		return nil, errors.New("identity store is required")
	case residents == nil:
		return nil, errors.New("residents service is required")
	case units == nil:
		return nil, errors.New("unit service is required")
	case hasher == nil:
		return nil, errors.New("password hasher is required")
	case runner == nil:
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		identities: identities,
		residents:  residents,
		units:      units,
		hasher:     hasher,
		tx:         runner,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates the identity, profile and residency for in. The residency
// is principal exactly when the unit had none. Validation failures report
// every offending field at once; an unknown unit is not found.
func (s *Service) Register(ctx context.Context, in Input) (*models.Registration, error) {
	ctx, span := tracer.Start(ctx, "registration.Register")
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveRegistration(time.Now())
	}

	in = normalize(in)
	span.SetAttributes(attribute.String("unit_id", in.UnitID.String()))

	if err := s.validate(ctx, in); err != nil {
		s.failed(ctx, outcomeOf(err), err)
		return nil, err
	}
	if _, err := s.units.Get(ctx, in.UnitID); err != nil {
		s.failed(ctx, outcomeOf(err), err)
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	var out *models.Registration
	txCtx := tx.WithLockKey(ctx, propertymodels.LockKey(in.UnitID))
	err = s.tx.RunInTx(txCtx, func(ctx context.Context) error {
		var err error
		out, err = s.create(ctx, in, hash)
		return err
	})
	if err != nil {
		s.residents.RecordConflict(ctx, err, in.UnitID, residentsvc.SourceRegistration)
		if !isClientErr(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "registration failed")
		}
		s.failed(ctx, outcomeOf(err), err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("user_id", out.ID.String()),
		attribute.Bool("is_principal", out.IsPrincipal),
	)
	if s.metrics != nil {
		s.metrics.IncrementRegistration("success")
	}
	s.logger.InfoContext(ctx, "resident registered",
		"user_id", out.ID.String(),
		"unit_id", out.UnitID.String(),
		"is_principal", out.IsPrincipal,
		"request_id", requestcontext.RequestID(ctx),
	)
	return out, nil
}

// create runs inside the transaction holding the unit lock.
func (s *Service) create(ctx context.Context, in Input, hash []byte) (*models.Registration, error) {
	if err := s.units.Lock(ctx, in.UnitID); err != nil {
		return nil, err
	}

	identity := &authmodels.Identity{
		ID:           id.UserID(uuid.New()),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.Validation(map[string][]string{"username": {msgUsernameTaken}})
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create identity")
	}

	person, residency, err := s.residents.Enroll(ctx, residentsvc.EnrollInput{
		Code:       in.Code,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		Gender:     in.Gender,
		Phone:      in.Phone,
		IdentityID: identity.ID,
		UnitID:     in.UnitID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.identities.AddRole(ctx, identity.ID, id.RoleResident); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign resident role")
	}

	if s.auditPublisher != nil {
		if err := s.auditPublisher.Emit(ctx, audit.Event{
			Action:  string(audit.EventIdentityRegistered),
			UserID:  identity.ID,
			Subject: identity.Username,
			Email:   identity.Email,
		}); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
	}

	return &models.Registration{
		ID:          identity.ID,
		Username:    identity.Username,
		Email:       identity.Email,
		PersonID:    person.ID,
		ResidencyID: residency.ID,
		UnitID:      residency.UnitID,
		IsPrincipal: residency.IsPrincipal,
		Roles:       []id.RoleName{id.RoleResident},
	}, nil
}

func (s *Service) failed(ctx context.Context, outcome string, err error) {
	if s.metrics != nil {
		s.metrics.IncrementRegistration(outcome)
	}
	if isClientErr(err) {
		s.logger.InfoContext(ctx, "registration rejected",
			"outcome", outcome,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	s.logger.ErrorContext(ctx, "registration failed",
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func normalize(in Input) Input {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		in.Username = in.Email
	}
	in.Code = strings.TrimSpace(in.Code)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	return in
}

func outcomeOf(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeConflict:
		return "principal_conflict"
	case dErrors.CodeValidation:
		return "invalid"
	case dErrors.CodeNotFound:
		return "unknown_unit"
	default:
		return "error"
	}
}

func isClientErr(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeNotFound, dErrors.CodeConflict:
		return true
	}
	return false
}
