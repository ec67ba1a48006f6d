package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	catalogmodels "condo/internal/catalog/models"
	catalogservice "condo/internal/catalog/service"
	catalogstore "condo/internal/catalog/store"
	"condo/internal/property/models"
	"condo/internal/property/store"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/audit/publisher"
	auditmemory "condo/pkg/platform/audit/store/memory"
	"condo/pkg/platform/tx"
)

type recordingDependent struct {
	deleted []id.UnitID
	err     error
}

func (d *recordingDependent) DeleteByUnit(_ context.Context, unitID id.UnitID) error {
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, unitID)
	return nil
}

type UnitServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemory
	catalog   *catalogservice.Service
	dependent *recordingDependent
	audit     *auditmemory.InMemoryStore
	service   *Service
}

func TestUnitServiceSuite(t *testing.T) {
	suite.Run(t, new(UnitServiceSuite))
}

func (s *UnitServiceSuite) SetupTest() {
	s.ctx = context.Background()
	runner := tx.NewMemoryRunner(time.Second)
	s.store = store.NewInMemory()
	s.dependent = &recordingDependent{}
	s.audit = auditmemory.NewInMemoryStore()

	svc, err := New(s.store, runner,
		WithDependents(s.dependent),
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
	)
	s.Require().NoError(err)
	s.service = svc

	catalog, err := catalogservice.New(catalogstore.NewInMemory(), runner, catalogservice.WithDependents(svc))
	s.Require().NoError(err)
	s.catalog = catalog
	WithCatalog(catalog)(svc)
}

func (s *UnitServiceSuite) TestCreateAndGet() {
	unit, err := s.service.Create(s.ctx, Input{Code: "A-101", AreaM2: 72.5, Rooms: 3})
	s.Require().NoError(err)
	s.False(unit.CreatedAt.IsZero())

	got, err := s.service.Get(s.ctx, unit.ID)
	s.Require().NoError(err)
	s.Equal("A-101", got.Code)
	s.InDelta(72.5, got.AreaM2, 0.001)
}

func (s *UnitServiceSuite) TestDuplicateCode() {
	_, err := s.service.Create(s.ctx, Input{Code: "A-101"})
	s.Require().NoError(err)

	_, err = s.service.Create(s.ctx, Input{Code: "a-101"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal([]string{"Unit with this code already exists."}, dErrors.Fields(err)["code"])
}

func (s *UnitServiceSuite) TestUnknownCategoryRejected() {
	missing := id.CatalogID(uuid.New())
	_, err := s.service.Create(s.ctx, Input{Code: "B-1", CategoryID: &missing})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(dErrors.Fields(err), "category_id")

	units, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(units)
}

func (s *UnitServiceSuite) TestCategoryRemovalDetachesUnits() {
	category, err := s.catalog.Create(s.ctx, catalogmodels.UnitCategories, catalogservice.Input{Name: "Penthouse"})
	s.Require().NoError(err)
	unit, err := s.service.Create(s.ctx, Input{Code: "P-1", CategoryID: &category.ID})
	s.Require().NoError(err)
	s.Require().NotNil(unit.CategoryID)

	s.Require().NoError(s.catalog.Delete(s.ctx, catalogmodels.UnitCategories, category.ID))

	got, err := s.service.Get(s.ctx, unit.ID)
	s.Require().NoError(err)
	s.Nil(got.CategoryID)
}

func (s *UnitServiceSuite) TestPatch() {
	unit, err := s.service.Create(s.ctx, Input{Code: "C-1", Rooms: 2})
	s.Require().NoError(err)

	rooms := 4
	updated, err := s.service.Update(s.ctx, unit.ID, Patch{Rooms: &rooms})
	s.Require().NoError(err)
	s.Equal(4, updated.Rooms)
	s.Equal("C-1", updated.Code)

	s.Run("negative rooms rolled back", func() {
		bad := -1
		_, err := s.service.Update(s.ctx, unit.ID, Patch{Rooms: &bad})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		got, err := s.service.Get(s.ctx, unit.ID)
		s.Require().NoError(err)
		s.Equal(4, got.Rooms)
	})
}

func (s *UnitServiceSuite) TestDeleteCascadesToDependents() {
	unit, err := s.service.Create(s.ctx, Input{Code: "D-1"})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, unit.ID))
	s.Equal([]id.UnitID{unit.ID}, s.dependent.deleted)

	_, err = s.service.Get(s.ctx, unit.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	events, err := s.audit.ListByAction(s.ctx, audit.EventUnitDeleted)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("D-1", events[0].Subject)
}

func (s *UnitServiceSuite) TestDeleteRollsBackWhenDependentFails() {
	unit, err := s.service.Create(s.ctx, Input{Code: "E-1"})
	s.Require().NoError(err)
	s.dependent.err = errors.New("fees unavailable")

	err = s.service.Delete(s.ctx, unit.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = s.service.Get(s.ctx, unit.ID)
	s.Require().NoError(err)
}

func (s *UnitServiceSuite) TestLock() {
	err := s.service.Lock(s.ctx, id.UnitID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	unit, err := s.service.Create(s.ctx, Input{Code: "F-1"})
	s.Require().NoError(err)
	s.Require().NoError(s.service.Lock(s.ctx, unit.ID))
	s.Equal("unit:"+unit.ID.String(), models.LockKey(unit.ID))
}
