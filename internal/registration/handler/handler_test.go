package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"condo/internal/registration/handler/mocks"
	"condo/internal/registration/models"
	"condo/internal/registration/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/testutil"
)

type RegistrationHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerSuite))
}

func (s *RegistrationHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(s.service, logger).RegisterPublic(r)
	s.router = r
}

func (s *RegistrationHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func body(unitID id.UnitID) map[string]any {
	return map[string]any{
		"email":      " a@x.com ",
		"password":   "Tr0pical-Harbor-91",
		"code":       "R-001",
		"first_name": "Ana",
		"last_name":  "Diaz",
		"gender":     "F",
		"phone":      "555-0100",
		"unit_id":    unitID.String(),
	}
}

func (s *RegistrationHandlerSuite) TestRegister() {
	unitID := id.UnitID(uuid.New())

	s.Run("created returns the summary", func() {
		userID := id.UserID(uuid.New())
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in service.Input) (*models.Registration, error) {
				s.Equal("a@x.com", in.Email)
				s.Empty(in.Username)
				s.Equal(unitID, in.UnitID)
				return &models.Registration{
					ID:          userID,
					Username:    "a@x.com",
					Email:       "a@x.com",
					PersonID:    id.PersonID(uuid.New()),
					ResidencyID: id.ResidencyID(uuid.New()),
					UnitID:      unitID,
					IsPrincipal: true,
					Roles:       []id.RoleName{id.RoleResident},
				}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", body(unitID))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		out := testutil.UnmarshalResponse[models.Registration](s.T(), rr)
		s.Equal(userID, out.ID)
		s.True(out.IsPrincipal)
		s.Equal([]id.RoleName{id.RoleResident}, out.Roles)
		testutil.AssertJSONHasKey(s.T(), rr, "residency_id")
		testutil.AssertJSONHasKey(s.T(), rr, "person_id")
	})

	s.Run("missing fields are reported by name", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", map[string]any{"email": "not-an-email"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		fields := testutil.ErrorFields(s.T(), rr)
		s.Equal([]string{"Enter a valid email address."}, fields["email"])
		s.Equal([]string{"This field is required."}, fields["password"])
		s.Equal([]string{"This field is required."}, fields["unit_id"])
	})

	s.Run("password rules are field errors", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Validation(map[string][]string{"password": {"This password is too common."}}))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", body(unitID))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		s.Equal([]string{"This password is too common."}, testutil.ErrorFields(s.T(), rr)["password"])
	})

	s.Run("unknown unit is 404", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "unit not found"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", body(unitID))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("principal conflict is 409 naming the residency", func() {
		held := uuid.NewString()
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Conflict("unit already has a principal resident", map[string][]string{
				"conflicting_residency_id": {held},
			}))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", body(unitID))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
		s.Equal([]string{held}, testutil.ErrorFields(s.T(), rr)["conflicting_residency_id"])
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/register", "{")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}
