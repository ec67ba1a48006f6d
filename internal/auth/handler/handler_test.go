package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"condo/internal/access"
	"condo/internal/auth/handler/mocks"
	"condo/internal/auth/models"
	"condo/internal/auth/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/testutil"
)

type AuthHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(s.service, access.NewGuard(access.DefaultPolicy(), logger, nil), logger)
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.Register(r)
	s.router = r
}

func (s *AuthHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AuthHandlerSuite) TestLogin() {
	s.Run("returns token pair", func() {
		s.service.EXPECT().Login(gomock.Any(), "a@x.com", "secret-pass").
			Return(&models.TokenPair{Access: "acc", Refresh: "ref", TokenType: "Bearer", ExpiresIn: 1800}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/login",
			map[string]string{"username": " a@x.com ", "password": "secret-pass"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "access", "acc")
		testutil.AssertJSONContains(s.T(), rr, "refresh", "ref")
	})

	s.Run("invalid credentials is a bare 400", func() {
		s.service.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidCredentials, "No active account found with the given credentials"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/login",
			map[string]string{"username": "a@x.com", "password": "nope"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_credentials")
		s.JSONEq(`{"error":"invalid_credentials"}`, rr.Body.String())
	})

	s.Run("missing fields are field errors", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/login", map[string]string{})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		fields := testutil.ErrorFields(s.T(), rr)
		s.Contains(fields, "username")
		s.Contains(fields, "password")
	})
}

func (s *AuthHandlerSuite) TestRefreshAndLogout() {
	s.service.EXPECT().Refresh(gomock.Any(), "ref").
		Return(&models.AccessToken{Access: "acc2", TokenType: "Bearer", ExpiresIn: 1800}, nil)
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/token/refresh",
		map[string]string{"refresh": "ref"}))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "access", "acc2")

	s.service.EXPECT().Refresh(gomock.Any(), "revoked").
		Return(nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked"))
	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/token/refresh",
		map[string]string{"refresh": "revoked"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	s.service.EXPECT().Logout(gomock.Any(), "ref").Return(nil)
	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/logout",
		map[string]string{"refresh": "ref"}))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
}

func (s *AuthHandlerSuite) TestMe() {
	s.Run("anonymous caller is denied before the service is called", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/users/me"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("resident sees own profile and groups", func() {
		s.service.EXPECT().Me(gomock.Any()).Return(&models.IdentityView{
			Username: "a@x.com",
			Groups:   []id.RoleName{id.RoleResident},
		}, nil)
		req := testutil.AsResident(testutil.NewRequest(s.T(), http.MethodGet, "/users/me"), id.PersonID(uuid.New()))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "groups", []any{"Resident"})
	})
}

func (s *AuthHandlerSuite) TestUserAdministration() {
	userID := id.UserID(uuid.New())

	s.Run("resident cannot list users", func() {
		req := testutil.AsResident(testutil.NewRequest(s.T(), http.MethodGet, "/users"), id.PersonID(uuid.New()))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("admin patches groups", func() {
		s.service.EXPECT().UpdateUser(gomock.Any(), userID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.UserID, upd service.UserUpdate) (*models.IdentityView, error) {
				s.Require().NotNil(upd.Groups)
				s.Equal([]id.RoleName{id.RoleAdmin}, *upd.Groups)
				s.Nil(upd.Active)
				return &models.IdentityView{ID: userID, Groups: *upd.Groups}, nil
			})
		req := testutil.AsAdmin(testutil.NewJSONRequest(s.T(), http.MethodPatch, "/users/"+userID.String(),
			map[string]any{"groups": []string{" Admin "}}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("empty patch is rejected", func() {
		req := testutil.AsAdmin(testutil.NewJSONRequest(s.T(), http.MethodPatch, "/users/"+userID.String(),
			map[string]any{}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("admin deletes user", func() {
		s.service.EXPECT().DeleteUser(gomock.Any(), userID).Return(nil)
		req := testutil.AsAdmin(testutil.NewRequest(s.T(), http.MethodDelete, "/users/"+userID.String()))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("malformed id is a bad request", func() {
		req := testutil.AsAdmin(testutil.NewRequest(s.T(), http.MethodGet, "/users/not-a-uuid"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}
