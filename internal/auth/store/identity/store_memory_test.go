package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"condo/internal/auth/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

type InMemoryIdentityStoreSuite struct {
	suite.Suite
	store *InMemoryIdentityStore
	ctx   context.Context
}

func (s *InMemoryIdentityStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func TestInMemoryIdentityStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryIdentityStoreSuite))
}

func newIdentity(username string) *models.Identity {
	return &models.Identity{
		ID:           id.UserID(uuid.New()),
		Username:     username,
		Email:        username,
		PasswordHash: []byte("hash"),
		Active:       true,
		CreatedAt:    time.Now(),
	}
}

// TestLookupBehavior tests identity retrieval by ID and username.
func (s *InMemoryIdentityStoreSuite) TestLookupBehavior() {
	identity := newIdentity("Jane.Doe@example.com")
	s.Require().NoError(s.store.Create(s.ctx, identity))

	s.Run("returns identity by ID", func() {
		found, err := s.store.FindByID(s.ctx, identity.ID)
		s.Require().NoError(err)
		s.Equal(identity.Username, found.Username)
	})

	s.Run("matches username case-insensitively", func() {
		found, err := s.store.FindByUsername(s.ctx, "jane.doe@EXAMPLE.com")
		s.Require().NoError(err)
		s.Equal(identity.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown username", func() {
		_, err := s.store.FindByUsername(s.ctx, "missing@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("reports taken usernames and emails", func() {
		taken, err := s.store.UsernameTaken(s.ctx, "JANE.DOE@example.com")
		s.Require().NoError(err)
		s.True(taken)
		taken, err = s.store.EmailTaken(s.ctx, "other@example.com")
		s.Require().NoError(err)
		s.False(taken)
	})
}

// TestUniqueness verifies username and email are unique regardless of case.
func (s *InMemoryIdentityStoreSuite) TestUniqueness() {
	s.Require().NoError(s.store.Create(s.ctx, newIdentity("a@x.com")))
	err := s.store.Create(s.ctx, newIdentity("A@X.COM"))
	s.ErrorIs(err, sentinel.ErrDuplicate)
}

func (s *InMemoryIdentityStoreSuite) TestRoles() {
	identity := newIdentity("roles@example.com")
	s.Require().NoError(s.store.Create(s.ctx, identity))

	s.Require().NoError(s.store.AddRole(s.ctx, identity.ID, id.RoleResident))
	s.Require().NoError(s.store.AddRole(s.ctx, identity.ID, id.RoleResident))
	found, err := s.store.FindByID(s.ctx, identity.ID)
	s.Require().NoError(err)
	s.Equal([]id.RoleName{id.RoleResident}, found.Roles)

	s.Require().NoError(s.store.SetRoles(s.ctx, identity.ID, []id.RoleName{id.RoleResident, id.RoleAdmin, id.RoleAdmin}))
	found, err = s.store.FindByID(s.ctx, identity.ID)
	s.Require().NoError(err)
	s.Equal([]id.RoleName{id.RoleAdmin, id.RoleResident}, found.Roles)

	s.ErrorIs(s.store.SetRoles(s.ctx, id.UserID(uuid.New()), nil), sentinel.ErrNotFound)
}

// TestRollback verifies writes inside a failed memory transaction are undone.
func (s *InMemoryIdentityStoreSuite) TestRollback() {
	runner := tx.NewMemoryRunner(time.Second)
	existing := newIdentity("keep@example.com")
	s.Require().NoError(s.store.Create(s.ctx, existing))

	created := newIdentity("rolled.back@example.com")
	boom := errors.New("boom")
	err := runner.RunInTx(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.Create(ctx, created))
		s.Require().NoError(s.store.AddRole(ctx, existing.ID, id.RoleAdmin))
		s.Require().NoError(s.store.Delete(ctx, existing.ID))
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.FindByID(s.ctx, created.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.FindByID(s.ctx, existing.ID)
	s.Require().NoError(err)
	s.Empty(found.Roles)
}

func (s *InMemoryIdentityStoreSuite) TestDelete() {
	identity := newIdentity("delete.me@example.com")
	s.Require().NoError(s.store.Create(s.ctx, identity))
	s.Require().NoError(s.store.Delete(s.ctx, identity.ID))

	_, err := s.store.FindByID(s.ctx, identity.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, identity.ID), sentinel.ErrNotFound)
}
