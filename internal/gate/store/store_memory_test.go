package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"condo/internal/gate/models"
	id "condo/pkg/domain"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

type InMemoryGateStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
}

func TestInMemoryGateStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryGateStoreSuite))
}

func (s *InMemoryGateStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *InMemoryGateStoreSuite) vehicle(plate string, residencyID id.ResidencyID) *models.Vehicle {
	v := &models.Vehicle{
		ID:          id.VehicleID(uuid.New()),
		Plate:       plate,
		ResidencyID: residencyID,
		CreatedAt:   time.Now(),
	}
	s.Require().NoError(s.store.CreateVehicle(s.ctx, v))
	return v
}

func (s *InMemoryGateStoreSuite) visitor(name string, authorizedBy *id.ResidencyID, entered time.Time) *models.Visitor {
	v := &models.Visitor{
		ID:           id.VisitorID(uuid.New()),
		FullName:     name,
		EnteredAt:    entered,
		AuthorizedBy: authorizedBy,
	}
	s.Require().NoError(s.store.CreateVisitor(s.ctx, v))
	return v
}

func (s *InMemoryGateStoreSuite) TestPlateIsUnique() {
	residencyID := id.ResidencyID(uuid.New())
	first := s.vehicle("ABC123", residencyID)

	err := s.store.CreateVehicle(s.ctx, &models.Vehicle{ID: id.VehicleID(uuid.New()), Plate: "ABC123", ResidencyID: residencyID})
	s.ErrorIs(err, sentinel.ErrDuplicate)

	first.Color = "red"
	s.NoError(s.store.UpdateVehicle(s.ctx, first), "a vehicle keeps its own plate")
}

func (s *InMemoryGateStoreSuite) TestListVehiclesHonoursScope() {
	mine := id.ResidencyID(uuid.New())
	other := id.ResidencyID(uuid.New())
	s.vehicle("AAA111", mine)
	s.vehicle("BBB222", other)

	all, err := s.store.ListVehicles(s.ctx, models.VehicleFilter{})
	s.Require().NoError(err)
	s.Len(all, 2)

	scoped, err := s.store.ListVehicles(s.ctx, models.VehicleFilter{Scope: models.Scope{Restricted: true, ResidencyIDs: []id.ResidencyID{mine}}})
	s.Require().NoError(err)
	s.Require().Len(scoped, 1)
	s.Equal("AAA111", scoped[0].Plate)

	none, err := s.store.ListVehicles(s.ctx, models.VehicleFilter{Scope: models.Scope{Restricted: true}})
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *InMemoryGateStoreSuite) TestListVisitorsNewestFirst() {
	now := time.Now()
	s.visitor("early", nil, now.Add(-time.Hour))
	late := s.visitor("late", nil, now)
	exitedAt := now
	late.ExitedAt = &exitedAt
	s.Require().NoError(s.store.UpdateVisitor(s.ctx, late))

	all, err := s.store.ListVisitors(s.ctx, models.VisitorFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("late", all[0].FullName)

	inside, err := s.store.ListVisitors(s.ctx, models.VisitorFilter{InsideOnly: true})
	s.Require().NoError(err)
	s.Require().Len(inside, 1)
	s.Equal("early", inside[0].FullName)
}

func (s *InMemoryGateStoreSuite) TestReleaseResidenciesRollsBack() {
	residencyID := id.ResidencyID(uuid.New())
	s.vehicle("AAA111", residencyID)
	v := s.visitor("guest", &residencyID, time.Now())

	runner := tx.NewMemoryRunner(time.Second)
	err := runner.RunInTx(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.DeleteVehiclesByResidencies(ctx, []id.ResidencyID{residencyID}))
		s.Require().NoError(s.store.DetachVisitors(ctx, []id.ResidencyID{residencyID}))
		return sentinel.ErrUnavailable
	})
	s.ErrorIs(err, sentinel.ErrUnavailable)

	vehicles, err := s.store.ListVehicles(s.ctx, models.VehicleFilter{})
	s.Require().NoError(err)
	s.Len(vehicles, 1)
	got, err := s.store.FindVisitor(s.ctx, v.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.AuthorizedBy)

	s.Require().NoError(s.store.DeleteVehiclesByResidencies(s.ctx, []id.ResidencyID{residencyID}))
	s.Require().NoError(s.store.DetachVisitors(s.ctx, []id.ResidencyID{residencyID}))
	vehicles, err = s.store.ListVehicles(s.ctx, models.VehicleFilter{})
	s.Require().NoError(err)
	s.Empty(vehicles)
	got, err = s.store.FindVisitor(s.ctx, v.ID)
	s.Require().NoError(err)
	s.Nil(got.AuthorizedBy)
}
