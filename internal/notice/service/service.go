// Package service manages the notice board. Residents and anonymous
// visitors only see current notices.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"condo/internal/notice/models"
	resmodels "condo/internal/residents/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
	"condo/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, n *models.Notice) error
	FindByID(ctx context.Context, noticeID id.NoticeID) (*models.Notice, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Notice, error)
	Update(ctx context.Context, n *models.Notice) error
	Delete(ctx context.Context, noticeID id.NoticeID) error
	ClearAuthor(ctx context.Context, personID id.PersonID) error
}

type Persons interface {
	GetPerson(ctx context.Context, personID id.PersonID) (*resmodels.Person, error)
}

type Service struct {
	store   Store
	persons Persons
	tx      tx.Runner
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, persons Persons, runner tx.Runner, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("notice store is required")
	case persons == nil:
		return nil, errors.New("person directory is required")
	case runner == nil:
		return nil, errors.New("transaction runner is required")
	}
	s := &Service{
		store:   store,
		persons: persons,
		tx:      runner,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Input creates a notice. PublishedAt defaults to now, Active to true and
// the author to the caller's own person profile.
type Input struct {
	Title          string
	Body           string
	PublishedAt    *time.Time
	ValidUntil     *time.Time
	AuthorPersonID *id.PersonID
	Active         *bool
}

// Patch is a partial update. The Clear flags null the optional fields.
type Patch struct {
	Title           *string
	Body            *string
	PublishedAt     *time.Time
	ValidUntil      *time.Time
	ClearValidUntil bool
	AuthorPersonID  *id.PersonID
	ClearAuthor     bool
	Active          *bool
}

// List returns every notice when all is set, otherwise only current ones.
func (s *Service) List(ctx context.Context, all bool) ([]*models.Notice, error) {
	notices, err := s.store.List(ctx, models.Filter{CurrentOnly: !all, Now: requestcontext.Now(ctx)})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notices")
	}
	return notices, nil
}

// Get hides notices that are not current unless all is set.
func (s *Service) Get(ctx context.Context, noticeID id.NoticeID, all bool) (*models.Notice, error) {
	n, err := s.store.FindByID(ctx, noticeID)
	if err != nil {
		return nil, translate(err)
	}
	if !all && !n.Current(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeNotFound, "notice not found")
	}
	return n, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Notice, error) {
	n := &models.Notice{
		ID:             id.NoticeID(uuid.New()),
		Title:          in.Title,
		Body:           in.Body,
		PublishedAt:    requestcontext.Now(ctx),
		ValidUntil:     in.ValidUntil,
		AuthorPersonID: in.AuthorPersonID,
		Active:         true,
	}
	if in.PublishedAt != nil {
		n.PublishedAt = *in.PublishedAt
	}
	if in.Active != nil {
		n.Active = *in.Active
	}
	if n.AuthorPersonID == nil {
		if p, ok := requestcontext.PrincipalFrom(ctx); ok && p.PersonID != nil {
			author := *p.PersonID
			n.AuthorPersonID = &author
		}
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.validate(ctx, n); err != nil {
			return err
		}
		return s.store.Create(ctx, n)
	})
	if err != nil {
		return nil, translate(err)
	}
	s.logger.InfoContext(ctx, "notice published", "notice_id", n.ID.String(), "title", n.Title)
	return n, nil
}

func (s *Service) Update(ctx context.Context, noticeID id.NoticeID, p Patch) (*models.Notice, error) {
	var updated *models.Notice
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.store.FindByID(ctx, noticeID)
		if err != nil {
			return err
		}
		if p.Title != nil {
			n.Title = *p.Title
		}
		if p.Body != nil {
			n.Body = *p.Body
		}
		if p.PublishedAt != nil {
			n.PublishedAt = *p.PublishedAt
		}
		switch {
		case p.ClearValidUntil:
			n.ValidUntil = nil
		case p.ValidUntil != nil:
			n.ValidUntil = p.ValidUntil
		}
		switch {
		case p.ClearAuthor:
			n.AuthorPersonID = nil
		case p.AuthorPersonID != nil:
			n.AuthorPersonID = p.AuthorPersonID
		}
		if p.Active != nil {
			n.Active = *p.Active
		}
		if err := s.validate(ctx, n); err != nil {
			return err
		}
		if err := s.store.Update(ctx, n); err != nil {
			return err
		}
		updated = n
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, noticeID id.NoticeID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, noticeID)
	})
	if err != nil {
		return translate(err)
	}
	s.logger.InfoContext(ctx, "notice deleted", "notice_id", noticeID.String())
	return nil
}

// ReleasePerson keeps the notices of a deleted person without an author.
// It runs in the caller's transaction.
func (s *Service) ReleasePerson(ctx context.Context, personID id.PersonID) error {
	return s.store.ClearAuthor(ctx, personID)
}

func (s *Service) validate(ctx context.Context, n *models.Notice) error {
	fields := dErrors.FieldErrors{}
	if n.Title == "" {
		fields.Add("title", "This field may not be blank.")
	}
	if n.Body == "" {
		fields.Add("body", "This field may not be blank.")
	}
	if n.ValidUntil != nil && !n.ValidUntil.After(n.PublishedAt) {
		fields.Add("valid_until", "Must be later than published_at.")
	}
	if n.AuthorPersonID != nil {
		_, err := s.persons.GetPerson(ctx, *n.AuthorPersonID)
		switch {
		case err == nil:
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			fields.Add("author_person_id", fmt.Sprintf("Invalid pk %q - object does not exist.", n.AuthorPersonID.String()))
		default:
			return err
		}
	}
	return fields.Err()
}

func translate(err error) error {
	var derr *dErrors.Error
	switch {
	case errors.As(err, &derr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "notice not found")
	case errors.Is(err, sentinel.ErrReferenced):
		return dErrors.WithField(dErrors.New(dErrors.CodeValidation, "notice author does not exist"),
			"author_person_id", "Object does not exist.")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "notice store failure")
	}
}
