package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"condo/internal/access"
	propertyservice "condo/internal/property/service"
	propertystore "condo/internal/property/store"
	"condo/internal/residents/models"
	"condo/internal/residents/service"
	"condo/internal/residents/store"
	"condo/internal/roles"
	rolestore "condo/internal/roles/store"
	id "condo/pkg/domain"
	"condo/pkg/platform/tx"
	"condo/pkg/testutil"
)

type fixture struct {
	router http.Handler
	units  *propertyservice.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := tx.NewMemoryRunner(time.Second)

	units, err := propertyservice.New(propertystore.NewInMemory(), runner)
	require.NoError(t, err)
	registry, err := roles.Load(ctx, rolestore.NewInMemory())
	require.NoError(t, err)
	svc, err := service.New(store.NewInMemory(), units, registry, runner, service.WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, access.NewGuard(access.DefaultPolicy(), logger, nil), logger).Register(r)
	return fixture{router: r, units: units}
}

func (f fixture) createPerson(t *testing.T, code, email string) *models.Person {
	t.Helper()
	req := testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/residents", map[string]any{
		"code": code, "first_name": "Ana", "last_name": "Diaz", "email": email,
	}))
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[models.Person](t, rr)
}

func TestResidentsAreAdminOnly(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/residents", "/residencies"} {
		t.Run(path, func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, path))
			testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

			req := testutil.AsResident(testutil.NewRequest(t, http.MethodGet, path), id.PersonID(uuid.New()))
			rr = testutil.DoRequest(f.router, req)
			testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
		})
	}
}

func TestCreatePersonValidation(t *testing.T) {
	f := newFixture(t)
	req := testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/residents", map[string]any{
		"code": "P1", "first_name": "Ana", "last_name": "Diaz", "email": "not-an-email",
	}))
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	require.Equal(t, []string{"Enter a valid email address."}, testutil.ErrorFields(t, rr)["email"])
}

func TestSecondPrincipalIsConflict(t *testing.T) {
	f := newFixture(t)
	unit, err := f.units.Create(context.Background(), propertyservice.Input{Code: "A-1"})
	require.NoError(t, err)
	a := f.createPerson(t, "PA", "a@x.com")
	b := f.createPerson(t, "PB", "b@x.com")

	req := testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/residencies", map[string]any{
		"person_id": a.ID.String(), "unit_id": unit.ID.String(), "is_principal": true,
	}))
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	first := testutil.UnmarshalResponse[models.Residency](t, rr)

	req = testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/residencies", map[string]any{
		"person_id": b.ID.String(), "unit_id": unit.ID.String(), "is_principal": true,
	}))
	rr = testutil.DoRequest(f.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	fields := testutil.ErrorFields(t, rr)
	require.Equal(t, []string{first.ID.String()}, fields["conflicting_residency_id"])
	require.Equal(t, []string{"a@x.com"}, fields["conflicting_person_email"])

	t.Run("listing by unit shows only the principal", func(t *testing.T) {
		req := testutil.AsAdmin(testutil.NewRequest(t, http.MethodGet, "/residencies?unit_id="+unit.ID.String()))
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)
		residencies := *testutil.UnmarshalResponse[[]models.Residency](t, rr)
		require.Len(t, residencies, 1)
		require.True(t, residencies[0].IsPrincipal)
	})
}

func TestDeletePersonEndpoint(t *testing.T) {
	f := newFixture(t)
	p := f.createPerson(t, "PA", "a@x.com")
	path := "/residents/" + p.ID.String()

	rr := testutil.DoRequest(f.router, testutil.AsAdmin(testutil.NewRequest(t, http.MethodDelete, path)))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(f.router, testutil.AsAdmin(testutil.NewRequest(t, http.MethodGet, path)))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
