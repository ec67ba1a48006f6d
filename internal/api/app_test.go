package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	authmodels "condo/internal/auth/models"
	propertymodels "condo/internal/property/models"
	propertysvc "condo/internal/property/service"
	registrationmodels "condo/internal/registration/models"
	residentmodels "condo/internal/residents/models"
	id "condo/pkg/domain"
	"condo/pkg/testutil"
)

const strongPassword = "Tr0pical-Harbor-91"

type AppSuite struct {
	suite.Suite
	backend Backend
	app     *App
	ip      int
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func testConfig() Config {
	return Config{
		JWTSigningKey:      "test-signing-key",
		Issuer:             "condo-test",
		AccessTokenTTL:     5 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		BcryptCost:         bcrypt.MinCost,
		RateLimitPerMinute: 1000,
	}
}

func (s *AppSuite) SetupTest() {
	s.backend = MemoryBackend(time.Second)
	app, err := New(context.Background(), s.backend, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.app = app
}

func (s *AppSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.app.Handler, req)
}

func (s *AppSuite) register(email, code string, unitID id.UnitID) *httptest.ResponseRecorder {
	return s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/register", map[string]any{
		"email":      email,
		"password":   strongPassword,
		"code":       code,
		"first_name": "Test",
		"last_name":  "Resident",
		"unit_id":    unitID.String(),
	}))
}

func (s *AppSuite) login(username, password string) *httptest.ResponseRecorder {
	return s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/login", map[string]any{
		"username": username,
		"password": password,
	}))
}

// adminToken registers a resident, promotes it to Admin and logs in.
func (s *AppSuite) adminToken(unitID id.UnitID) string {
	rr := s.register("admin@condo.test", "ADM-1", unitID)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	reg := testutil.UnmarshalResponse[registrationmodels.Registration](s.T(), rr)
	s.Require().NoError(s.backend.Identities.SetRoles(context.Background(), reg.ID, []id.RoleName{id.RoleAdmin}))

	rr = s.login("admin@condo.test", strongPassword)
	testutil.AssertStatusOK(s.T(), rr)
	return testutil.UnmarshalResponse[authmodels.TokenPair](s.T(), rr).Access
}

func (s *AppSuite) seedUnit(code string) id.UnitID {
	unit, err := s.app.Units.Create(context.Background(), propertysvc.Input{Code: code})
	s.Require().NoError(err)
	return unit.ID
}

func (s *AppSuite) TestHealthAndMetrics() {
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "status", "ok")

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), "condo_http_requests_total")
}

func (s *AppSuite) TestHealthReportsFailingDependency() {
	app, err := New(context.Background(), MemoryBackend(time.Second), testConfig(), nil,
		WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
	)
	s.Require().NoError(err)

	rr := testutil.DoRequest(app.Handler, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
	testutil.AssertJSONContains(s.T(), rr, "status", "degraded")
}

func (s *AppSuite) TestPublicAndProtectedEndpoints() {
	s.seedUnit("A-101")

	s.Run("units and notices are public", func() {
		testutil.AssertStatusOK(s.T(), s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/units")))
		testutil.AssertStatusOK(s.T(), s.do(testutil.NewRequest(s.T(), http.MethodGet, "/api/notices")))
	})

	s.Run("anonymous callers are forbidden elsewhere", func() {
		for _, path := range []string{"/api/residents", "/api/residencies", "/api/fees", "/api/groups", "/api/users/me", "/api/vehicles"} {
			rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, path))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
		}
	})

	s.Run("anonymous writes to public resources are forbidden", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/units", map[string]any{"code": "B-1"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("invalid bearer token is rejected", func() {
		req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/api/units"), "not-a-token")
		testutil.AssertStatus(s.T(), s.do(req), http.StatusUnauthorized)
	})
}

func (s *AppSuite) TestResidentSeesOwnProfileButNotAdminResources() {
	unitID := s.seedUnit("A-101")
	testutil.AssertStatus(s.T(), s.register("a@x.com", "R-1", unitID), http.StatusCreated)

	rr := s.login("a@x.com", strongPassword)
	testutil.AssertStatusOK(s.T(), rr)
	token := testutil.UnmarshalResponse[authmodels.TokenPair](s.T(), rr).Access

	rr = s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/api/users/me"), token))
	testutil.AssertStatusOK(s.T(), rr)
	me := testutil.UnmarshalResponse[authmodels.IdentityView](s.T(), rr)
	s.Equal("a@x.com", me.Username)
	s.Equal([]id.RoleName{id.RoleResident}, me.Groups)
	s.Require().NotNil(me.Person)
	s.Equal("R-1", me.Person.Code)

	rr = s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/api/residents"), token))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")

	rr = s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/api/unit-categories"), token))
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *AppSuite) TestLoginFailuresAreIndistinguishable() {
	unitID := s.seedUnit("A-101")
	testutil.AssertStatus(s.T(), s.register("a@x.com", "R-1", unitID), http.StatusCreated)

	unknown := s.login("nobody@x.com", strongPassword)
	wrong := s.login("a@x.com", "Wrong-Password-1")

	testutil.AssertStatusAndError(s.T(), unknown, http.StatusBadRequest, "invalid_credentials")
	testutil.AssertStatusAndError(s.T(), wrong, http.StatusBadRequest, "invalid_credentials")
	s.JSONEq(unknown.Body.String(), wrong.Body.String())
}

// TestPrincipalScenario walks the first-resident-wins flow and the rejected
// administrative promotion end to end.
func (s *AppSuite) TestPrincipalScenario() {
	admin := s.adminToken(s.seedUnit("OFFICE"))

	rr := s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/units", map[string]any{
		"code": "A-101", "area_m2": 72.5, "rooms": 3,
	}), admin))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	unitID := testutil.UnmarshalResponse[propertymodels.Unit](s.T(), rr).ID

	rr = s.register("a@x.com", "R-1", unitID)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	a := testutil.UnmarshalResponse[registrationmodels.Registration](s.T(), rr)
	s.True(a.IsPrincipal)

	rr = s.register("b@x.com", "R-2", unitID)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	b := testutil.UnmarshalResponse[registrationmodels.Registration](s.T(), rr)
	s.False(b.IsPrincipal)

	rr = s.do(testutil.WithBearer(testutil.NewJSONRequest(s.T(), http.MethodPatch,
		"/api/residencies/"+b.ResidencyID.String(), map[string]any{"is_principal": true}), admin))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	fields := testutil.ErrorFields(s.T(), rr)
	s.Equal([]string{a.ResidencyID.String()}, fields["conflicting_residency_id"])
	s.Equal([]string{"a@x.com"}, fields["conflicting_person_email"])

	rr = s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet,
		"/api/residencies/"+a.ResidencyID.String()), admin))
	testutil.AssertStatusOK(s.T(), rr)
	s.True(testutil.UnmarshalResponse[residentmodels.Residency](s.T(), rr).IsPrincipal)
}

func (s *AppSuite) TestDeletingPersonRemovesLogin() {
	admin := s.adminToken(s.seedUnit("OFFICE"))
	unitID := s.seedUnit("A-101")

	rr := s.register("a@x.com", "R-1", unitID)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	a := testutil.UnmarshalResponse[registrationmodels.Registration](s.T(), rr)

	rr = s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodDelete, "/api/residents/"+a.PersonID.String()), admin))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	testutil.AssertStatusAndError(s.T(), s.login("a@x.com", strongPassword), http.StatusBadRequest, "invalid_credentials")

	rr = s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/api/residencies/"+a.ResidencyID.String()), admin))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")

	// The unit is free again, so the next registration becomes principal.
	rr = s.register("c@x.com", "R-3", unitID)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	s.True(testutil.UnmarshalResponse[registrationmodels.Registration](s.T(), rr).IsPrincipal)
}

func (s *AppSuite) TestRegistrationIsRateLimitedPerIP() {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	cfg.RateLimitExempt = []netip.Prefix{netip.MustParsePrefix("10.20.0.0/16")}
	app, err := New(context.Background(), MemoryBackend(time.Second), cfg, nil)
	s.Require().NoError(err)

	send := func(ip string) *httptest.ResponseRecorder {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/register", map[string]any{"email": "x"})
		req.Header.Set("X-Forwarded-For", ip)
		return testutil.DoRequest(app.Handler, req)
	}

	testutil.AssertStatus(s.T(), send("203.0.113.7"), http.StatusBadRequest)
	rr := send("203.0.113.7")
	testutil.AssertStatus(s.T(), rr, http.StatusTooManyRequests)
	s.NotEmpty(rr.Header().Get("Retry-After"))

	testutil.AssertStatus(s.T(), send("198.51.100.9"), http.StatusBadRequest)

	for range 3 {
		testutil.AssertStatus(s.T(), send("10.20.0.5"), http.StatusBadRequest)
	}
}

func (s *AppSuite) TestNewRequiresSigningKey() {
	cfg := testConfig()
	cfg.JWTSigningKey = ""
	_, err := New(context.Background(), MemoryBackend(time.Second), cfg, nil)
	s.Require().Error(err)
}
