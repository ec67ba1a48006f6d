package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"condo/internal/auth/password"
	identitystore "condo/internal/auth/store/identity"
	propertyservice "condo/internal/property/service"
	propertystore "condo/internal/property/store"
	"condo/internal/registration/metrics"
	"condo/internal/registration/service/mocks"
	residentmodels "condo/internal/residents/models"
	residentsvc "condo/internal/residents/service"
	residentstore "condo/internal/residents/store"
	"condo/internal/roles"
	rolestore "condo/internal/roles/store"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/audit/publisher"
	auditmemory "condo/pkg/platform/audit/store/memory"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

const strongPassword = "Tr0pical-Harbor-91"

type RegistrationServiceSuite struct {
	suite.Suite
	ctx        context.Context
	runner     *tx.MemoryRunner
	identities *identitystore.InMemoryIdentityStore
	residents  *residentsvc.Service
	units      *propertyservice.Service
	hasher     *password.Hasher
	audit      *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
	service    *Service
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.runner = tx.NewMemoryRunner(5 * time.Second)

	units, err := propertyservice.New(propertystore.NewInMemory(), s.runner)
	s.Require().NoError(err)
	s.units = units

	registry, err := roles.Load(s.ctx, rolestore.NewInMemory())
	s.Require().NoError(err)

	s.audit = auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(s.audit)

	residents, err := residentsvc.New(residentstore.NewInMemory(), units, registry, s.runner,
		residentsvc.WithAuditPublisher(pub))
	s.Require().NoError(err)
	s.residents = residents

	s.identities = identitystore.New()
	s.hasher = password.NewHasher(bcrypt.MinCost)
	s.metrics = metrics.New(prometheus.NewRegistry())

	svc, err := New(s.identities, residents, units, s.hasher, s.runner,
		WithAuditPublisher(pub),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *RegistrationServiceSuite) unit(code string) id.UnitID {
	u, err := s.units.Create(s.ctx, propertyservice.Input{Code: code})
	s.Require().NoError(err)
	return u.ID
}

func input(email, code string, unitID id.UnitID) Input {
	return Input{
		Email:     email,
		Password:  strongPassword,
		Code:      code,
		FirstName: "Ana",
		LastName:  "Diaz",
		Gender:    "F",
		Phone:     "555-0100",
		UnitID:    unitID,
	}
}

func (s *RegistrationServiceSuite) principals(unitID id.UnitID) []*residentmodels.Residency {
	all, err := s.residents.ListResidencies(s.ctx, residentmodels.ResidencyFilter{UnitID: &unitID})
	s.Require().NoError(err)
	var out []*residentmodels.Residency
	for _, r := range all {
		if r.IsPrincipal {
			out = append(out, r)
		}
	}
	return out
}

func (s *RegistrationServiceSuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.residents, s.units, s.hasher, s.runner)
	s.EqualError(err, "identity store is required")
	_, err = New(s.identities, s.residents, s.units, s.hasher, nil)
	s.EqualError(err, "transaction runner is required")
}

func (s *RegistrationServiceSuite) TestFirstRegistrationIsPrincipal() {
	unitID := s.unit("U1")

	var first *Input
	s.Run("a@x.com becomes principal resident", func() {
		in := input("a@x.com", "R-001", unitID)
		first = &in
		out, err := s.service.Register(s.ctx, in)
		s.Require().NoError(err)
		s.True(out.IsPrincipal)
		s.Equal("a@x.com", out.Username, "email is the login name by default")
		s.Equal([]id.RoleName{id.RoleResident}, out.Roles)

		identity, err := s.identities.FindByID(s.ctx, out.ID)
		s.Require().NoError(err)
		s.True(identity.HasRole(id.RoleResident))
		s.NoError(s.hasher.Compare(identity.PasswordHash, strongPassword))
		s.NotEqual([]byte(strongPassword), identity.PasswordHash)

		summary, err := s.residents.FindByIdentity(s.ctx, out.ID)
		s.Require().NoError(err)
		s.Equal(out.PersonID, summary.ID)
	})

	s.Run("b@x.com is not", func() {
		out, err := s.service.Register(s.ctx, input("b@x.com", "R-002", unitID))
		s.Require().NoError(err)
		s.False(out.IsPrincipal)
	})

	s.Run("admin cannot promote b and the error names a", func() {
		a, err := s.identities.FindByUsername(s.ctx, first.Email)
		s.Require().NoError(err)
		aSummary, err := s.residents.FindByIdentity(s.ctx, a.ID)
		s.Require().NoError(err)
		aPrincipal := s.principals(unitID)
		s.Require().Len(aPrincipal, 1)
		s.Equal(aSummary.ID, aPrincipal[0].PersonID)

		b, err := s.identities.FindByUsername(s.ctx, "b@x.com")
		s.Require().NoError(err)
		bSummary, err := s.residents.FindByIdentity(s.ctx, b.ID)
		s.Require().NoError(err)
		bResidencies, err := s.residents.ListResidencies(s.ctx, residentmodels.ResidencyFilter{PersonID: &bSummary.ID})
		s.Require().NoError(err)
		s.Require().Len(bResidencies, 1)

		promote := true
		_, err = s.residents.UpdateResidency(s.ctx, bResidencies[0].ID, residentsvc.ResidencyPatch{IsPrincipal: &promote})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		fields := dErrors.Fields(err)
		s.Equal([]string{aPrincipal[0].ID.String()}, fields["conflicting_residency_id"])
		s.Equal([]string{"a@x.com"}, fields["conflicting_person_email"])

		after := s.principals(unitID)
		s.Require().Len(after, 1)
		s.Equal(aPrincipal[0].ID, after[0].ID)
	})

	s.Equal(float64(2), testutil.ToFloat64(s.metrics.Registrations.WithLabelValues("success")))
	events, err := s.audit.ListByAction(s.ctx, audit.EventIdentityRegistered)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *RegistrationServiceSuite) TestExplicitUsername() {
	unitID := s.unit("U2")
	in := input("carla@x.com", "R-010", unitID)
	in.Username = "  carla  "

	out, err := s.service.Register(s.ctx, in)
	s.Require().NoError(err)
	s.Equal("carla", out.Username)
	s.Equal("carla@x.com", out.Email)
}

func (s *RegistrationServiceSuite) TestValidation() {
	unitID := s.unit("U3")
	_, err := s.service.Register(s.ctx, input("taken@x.com", "R-100", unitID))
	s.Require().NoError(err)

	s.Run("weak password reports every rule", func() {
		in := input("new@x.com", "R-101", unitID)
		in.Password = "1234567"
		_, err := s.service.Register(s.ctx, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ElementsMatch([]string{
			"This password is too short. It must contain at least 8 characters.",
			"This password is too common.",
			"This password is entirely numeric.",
		}, dErrors.Fields(err)["password"])
	})

	s.Run("password similar to the email", func() {
		in := input("harborlights@x.com", "R-102", unitID)
		in.Username = "captain"
		in.Password = "harborlights"
		_, err := s.service.Register(s.ctx, in)
		s.Require().Error(err)
		s.Contains(dErrors.Fields(err)["password"], "The password is too similar to the email address.")
	})

	s.Run("duplicates are reported together with password errors", func() {
		in := input("TAKEN@x.com", "R-100", unitID)
		in.Password = "short"
		_, err := s.service.Register(s.ctx, in)
		s.Require().Error(err)
		fields := dErrors.Fields(err)
		s.Contains(fields, "password")
		s.Equal([]string{msgUsernameTaken}, fields["username"])
		s.Equal([]string{msgEmailTaken}, fields["email"])
		s.Equal([]string{msgCodeTaken}, fields["code"])
	})

	s.Run("unknown unit is not found", func() {
		_, err := s.service.Register(s.ctx, input("nobody@x.com", "R-103", id.UnitID(uuid.New())))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, findErr := s.identities.FindByUsername(s.ctx, "nobody@x.com")
		s.ErrorIs(findErr, sentinel.ErrNotFound)
	})

	s.Equal(float64(3), testutil.ToFloat64(s.metrics.Registrations.WithLabelValues("invalid")))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Registrations.WithLabelValues("unknown_unit")))
}

func (s *RegistrationServiceSuite) TestConcurrentRegistrationsYieldOnePrincipal() {
	unitID := s.unit("U4")
	const workers = 8

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		principals int
		failures   []error
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.service.Register(s.ctx, input(fmt.Sprintf("r%d@x.com", i), fmt.Sprintf("C-%02d", i), unitID))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			if out.IsPrincipal {
				principals++
			}
		}()
	}
	wg.Wait()

	for _, err := range failures {
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), "only principal conflicts may fail: %v", err)
	}
	s.Equal(1, principals)
	s.Len(s.principals(unitID), 1)
}

func (s *RegistrationServiceSuite) TestFailedAuditRollsBackEverything() {
	ctrl := gomock.NewController(s.T())
	failing := mocks.NewMockAuditPublisher(ctrl)
	failing.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errAuditDown)

	svc, err := New(s.identities, s.residents, s.units, s.hasher, s.runner, WithAuditPublisher(failing))
	s.Require().NoError(err)

	unitID := s.unit("U5")
	_, err = svc.Register(s.ctx, input("rollback@x.com", "R-500", unitID))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = s.identities.FindByUsername(s.ctx, "rollback@x.com")
	s.ErrorIs(err, sentinel.ErrNotFound, "no orphaned identity")
	taken, err := s.residents.EmailTaken(s.ctx, "rollback@x.com")
	s.Require().NoError(err)
	s.False(taken, "no orphaned profile")
	s.Empty(s.principals(unitID))

	out, err := s.service.Register(s.ctx, input("rollback@x.com", "R-500", unitID))
	s.Require().NoError(err)
	s.True(out.IsPrincipal, "the rolled back attempt did not take the principal slot")
}

var errAuditDown = fmt.Errorf("audit store unavailable")
