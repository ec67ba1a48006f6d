// Package service manages the reference tables behind unit categories, fee
// types, fee statuses and payment types.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"condo/internal/catalog/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

type Store interface {
	List(ctx context.Context, kind models.Kind) ([]*models.Entry, error)
	Get(ctx context.Context, kind models.Kind, entryID id.CatalogID) (*models.Entry, error)
	FindByName(ctx context.Context, kind models.Kind, name string) (*models.Entry, error)
	Create(ctx context.Context, kind models.Kind, entry *models.Entry) error
	Update(ctx context.Context, kind models.Kind, entry *models.Entry) error
	Delete(ctx context.Context, kind models.Kind, entryID id.CatalogID) error
}

// Dependent is a module whose records point at catalog entries. Postgres
// enforces the same rules with foreign keys; the calls give the in-memory
// stores identical behaviour.
type Dependent interface {
	// CatalogInUse reports references that forbid removing the entry.
	CatalogInUse(ctx context.Context, kind models.Kind, entryID id.CatalogID) (bool, error)
	// ReleaseCatalog clears nullable references before the entry is removed.
	ReleaseCatalog(ctx context.Context, kind models.Kind, entryID id.CatalogID) error
}

type Service struct {
	store  Store
	tx     tx.Runner
	deps   []Dependent
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithDependents(deps ...Dependent) Option {
	return func(s *Service) { s.deps = append(s.deps, deps...) }
}

// AddDependents registers catalog users built after the service.
func (s *Service) AddDependents(deps ...Dependent) error {
	for _, d := range deps {
		if d == nil {
			return errors.New("catalog dependent is nil")
		}
	}
	s.deps = append(s.deps, deps...)
	return nil
}

func New(store Store, runner tx.Runner, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	if runner == nil {
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{store: store, tx: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Input carries the writable fields of an entry.
type Input struct {
	Name          string
	Description   string
	DefaultAmount *int64
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Name          *string
	Description   *string
	DefaultAmount *int64
}

func (s *Service) List(ctx context.Context, kind models.Kind) ([]*models.Entry, error) {
	entries, err := s.store.List(ctx, kind)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to list %s", kind))
	}
	return entries, nil
}

func (s *Service) Get(ctx context.Context, kind models.Kind, entryID id.CatalogID) (*models.Entry, error) {
	entry, err := s.store.Get(ctx, kind, entryID)
	if err != nil {
		return nil, translate(kind, err)
	}
	return entry, nil
}

// FindByName resolves a seeded entry such as the "paid" fee status.
func (s *Service) FindByName(ctx context.Context, kind models.Kind, name string) (*models.Entry, error) {
	entry, err := s.store.FindByName(ctx, kind, name)
	if err != nil {
		return nil, translate(kind, err)
	}
	return entry, nil
}

// Exists reports whether entryID names an entry of kind.
func (s *Service) Exists(ctx context.Context, kind models.Kind, entryID id.CatalogID) (bool, error) {
	_, err := s.store.Get(ctx, kind, entryID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "catalog store failure")
	}
	return true, nil
}

func (s *Service) Create(ctx context.Context, kind models.Kind, in Input) (*models.Entry, error) {
	entry := &models.Entry{
		ID:          id.CatalogID(uuid.New()),
		Name:        in.Name,
		Description: in.Description,
	}
	if kind.HasDefaultAmount() {
		entry.DefaultAmount = in.DefaultAmount
	}
	if err := validate(kind, entry); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.Create(ctx, kind, entry)
	})
	if err != nil {
		return nil, translate(kind, err)
	}
	s.logger.InfoContext(ctx, "catalog entry created", "kind", kind.String(), "id", entry.ID.String(), "name", entry.Name)
	return entry, nil
}

func (s *Service) Update(ctx context.Context, kind models.Kind, entryID id.CatalogID, p Patch) (*models.Entry, error) {
	var updated *models.Entry
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		entry, err := s.store.Get(ctx, kind, entryID)
		if err != nil {
			return err
		}
		if p.Name != nil {
			entry.Name = *p.Name
		}
		if p.Description != nil {
			entry.Description = *p.Description
		}
		if p.DefaultAmount != nil && kind.HasDefaultAmount() {
			entry.DefaultAmount = p.DefaultAmount
		}
		if err := validate(kind, entry); err != nil {
			return err
		}
		if err := s.store.Update(ctx, kind, entry); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, translate(kind, err)
	}
	return updated, nil
}

// Delete removes an entry unless records still depend on it.
func (s *Service) Delete(ctx context.Context, kind models.Kind, entryID id.CatalogID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Get(ctx, kind, entryID); err != nil {
			return err
		}
		for _, d := range s.deps {
			inUse, err := d.CatalogInUse(ctx, kind, entryID)
			if err != nil {
				return err
			}
			if inUse {
				return sentinel.ErrReferenced
			}
		}
		for _, d := range s.deps {
			if err := d.ReleaseCatalog(ctx, kind, entryID); err != nil {
				return err
			}
		}
		return s.store.Delete(ctx, kind, entryID)
	})
	if err != nil {
		return translate(kind, err)
	}
	s.logger.InfoContext(ctx, "catalog entry deleted", "kind", kind.String(), "id", entryID.String())
	return nil
}

func validate(kind models.Kind, e *models.Entry) error {
	fields := dErrors.FieldErrors{}
	switch {
	case e.Name == "":
		fields.Add("name", "This field may not be blank.")
	case len(e.Name) > 100:
		fields.Add("name", "Ensure this field has no more than 100 characters.")
	}
	if kind.HasDefaultAmount() && e.DefaultAmount != nil && *e.DefaultAmount < 0 {
		fields.Add("default_amount", "Ensure this value is greater than or equal to 0.")
	}
	return fields.Err()
}

func translate(kind models.Kind, err error) error {
	var derr *dErrors.Error
	switch {
	case errors.As(err, &derr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%s not found", kind.Label()))
	case errors.Is(err, sentinel.ErrDuplicate):
		return dErrors.Validation(map[string][]string{
			"name": {fmt.Sprintf("%s with this name already exists.", kind.Label())},
		})
	case errors.Is(err, sentinel.ErrReferenced):
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("%s is referenced by existing records", kind.Label()))
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "catalog store failure")
	}
}
