package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"condo/internal/catalog/models"
	"condo/internal/catalog/store"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/tx"
)

type stubUsage struct {
	inUse    map[id.CatalogID]bool
	released []id.CatalogID
}

func (u *stubUsage) CatalogInUse(_ context.Context, _ models.Kind, entryID id.CatalogID) (bool, error) {
	return u.inUse[entryID], nil
}

func (u *stubUsage) ReleaseCatalog(_ context.Context, _ models.Kind, entryID id.CatalogID) error {
	u.released = append(u.released, entryID)
	return nil
}

type CatalogServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemory
	usage   *stubUsage
	service *Service
}

func TestCatalogServiceSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceSuite))
}

func (s *CatalogServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.usage = &stubUsage{inUse: map[id.CatalogID]bool{}}
	svc, err := New(s.store, tx.NewMemoryRunner(time.Second), WithDependents(s.usage))
	s.Require().NoError(err)
	s.service = svc
}

func (s *CatalogServiceSuite) TestNewRequiresDependencies() {
	_, err := New(nil, tx.NewMemoryRunner(time.Second))
	s.Require().Error(err)
	_, err = New(s.store, nil)
	s.Require().Error(err)
}

func (s *CatalogServiceSuite) TestCreateAndGet() {
	amount := int64(15000)
	created, err := s.service.Create(s.ctx, models.FeeTypes, Input{Name: "Maintenance", DefaultAmount: &amount})
	s.Require().NoError(err)

	got, err := s.service.Get(s.ctx, models.FeeTypes, created.ID)
	s.Require().NoError(err)
	s.Equal("Maintenance", got.Name)
	s.Require().NotNil(got.DefaultAmount)
	s.Equal(amount, *got.DefaultAmount)
}

func (s *CatalogServiceSuite) TestDefaultAmountOnlyOnFeeTypes() {
	amount := int64(100)
	created, err := s.service.Create(s.ctx, models.PaymentTypes, Input{Name: "Cash", DefaultAmount: &amount})
	s.Require().NoError(err)
	s.Nil(created.DefaultAmount)
}

func (s *CatalogServiceSuite) TestDuplicateNameIsFieldError() {
	_, err := s.service.Create(s.ctx, models.UnitCategories, Input{Name: "Apartment"})
	s.Require().NoError(err)

	_, err = s.service.Create(s.ctx, models.UnitCategories, Input{Name: "apartment"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal([]string{"Unit category with this name already exists."}, dErrors.Fields(err)["name"])
}

func (s *CatalogServiceSuite) TestBlankNameRejected() {
	_, err := s.service.Create(s.ctx, models.UnitCategories, Input{Name: ""})
	s.Require().Error(err)
	s.Contains(dErrors.Fields(err), "name")
}

func (s *CatalogServiceSuite) TestSeededFeeStatuses() {
	for _, name := range []string{models.StatusPending, models.StatusPaid, models.StatusOverdue} {
		entry, err := s.service.FindByName(s.ctx, models.FeeStatuses, name)
		s.Require().NoError(err, name)
		s.Equal(name, entry.Name)
	}
}

func (s *CatalogServiceSuite) TestUpdate() {
	created, err := s.service.Create(s.ctx, models.PaymentTypes, Input{Name: "Cash"})
	s.Require().NoError(err)

	name := "Bank transfer"
	updated, err := s.service.Update(s.ctx, models.PaymentTypes, created.ID, Patch{Name: &name})
	s.Require().NoError(err)
	s.Equal(name, updated.Name)

	s.Run("missing entry", func() {
		_, err := s.service.Update(s.ctx, models.PaymentTypes, id.CatalogID{1}, Patch{Name: &name})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CatalogServiceSuite) TestDeleteReferencedEntryConflicts() {
	created, err := s.service.Create(s.ctx, models.FeeTypes, Input{Name: "Water"})
	s.Require().NoError(err)
	s.usage.inUse[created.ID] = true

	err = s.service.Delete(s.ctx, models.FeeTypes, created.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Empty(s.usage.released)

	exists, err := s.service.Exists(s.ctx, models.FeeTypes, created.ID)
	s.Require().NoError(err)
	s.True(exists)

	delete(s.usage.inUse, created.ID)
	s.Require().NoError(s.service.Delete(s.ctx, models.FeeTypes, created.ID))
	s.Equal([]id.CatalogID{created.ID}, s.usage.released)
	exists, err = s.service.Exists(s.ctx, models.FeeTypes, created.ID)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *CatalogServiceSuite) TestDeleteMissingEntry() {
	err := s.service.Delete(s.ctx, models.UnitCategories, id.CatalogID{2})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
