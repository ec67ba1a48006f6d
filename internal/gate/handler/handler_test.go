package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"condo/internal/access"
	"condo/internal/gate/models"
	"condo/internal/gate/service"
	"condo/internal/gate/store"
	propertyservice "condo/internal/property/service"
	propertystore "condo/internal/property/store"
	resmodels "condo/internal/residents/models"
	residentservice "condo/internal/residents/service"
	residentstore "condo/internal/residents/store"
	"condo/internal/roles"
	rolestore "condo/internal/roles/store"
	"condo/pkg/platform/tx"
	"condo/pkg/testutil"
)

type fixture struct {
	router    http.Handler
	units     *propertyservice.Service
	residents *residentservice.Service
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
	residents, err := residentservice.New(residentstore.NewInMemory(), units, registry, runner)
	require.NoError(t, err)

	policy := access.DefaultPolicy()
	svc, err := service.New(store.NewInMemory(), residents, policy, runner, service.WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, access.NewGuard(policy, logger, nil), logger).Register(r)
	return fixture{router: r, units: units, residents: residents}
}

func (f fixture) resident(t *testing.T, code, email string) *resmodels.Residency {
	t.Helper()
	ctx := context.Background()
	u, err := f.units.Create(ctx, propertyservice.Input{Code: "U-" + code})
	require.NoError(t, err)
	p, err := f.residents.CreatePerson(ctx, residentservice.PersonInput{Code: code, FirstName: "Ana", LastName: code, Email: email})
	require.NoError(t, err)
	r, err := f.residents.CreateResidency(ctx, residentservice.ResidencyInput{PersonID: p.ID, UnitID: u.ID, IsPrincipal: true})
	require.NoError(t, err)
	return r
}

func (f fixture) createVehicle(t *testing.T, plate string, r *resmodels.Residency) *models.Vehicle {
	t.Helper()
	req := testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/vehicles", map[string]any{
		"plate": plate, "brand": "Fiat", "residency_id": r.ID.String(),
	}))
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[models.Vehicle](t, rr)
}

func TestGateRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/vehicles", "/visitors"} {
		t.Run(path, func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, path))
			testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
		})
	}
}

func TestResidentCannotWrite(t *testing.T) {
	f := newFixture(t)
	r := f.resident(t, "P1", "a@x.com")
	req := testutil.AsResident(testutil.NewJSONRequest(t, http.MethodPost, "/vehicles", map[string]any{
		"plate": "AAA111", "residency_id": r.ID.String(),
	}), r.PersonID)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
}

func TestResidentSeesOwnVehicles(t *testing.T) {
	f := newFixture(t)
	mine := f.resident(t, "P1", "a@x.com")
	other := f.resident(t, "P2", "b@x.com")
	own := f.createVehicle(t, "aaa111", mine)
	foreign := f.createVehicle(t, "BBB222", other)
	require.Equal(t, "AAA111", own.Plate)

	rr := testutil.DoRequest(f.router, testutil.AsResident(testutil.NewRequest(t, http.MethodGet, "/vehicles"), mine.PersonID))
	testutil.AssertStatusOK(t, rr)
	vehicles := testutil.UnmarshalResponse[[]models.Vehicle](t, rr)
	require.Len(t, *vehicles, 1)
	require.Equal(t, own.ID, (*vehicles)[0].ID)

	rr = testutil.DoRequest(f.router, testutil.AsResident(testutil.NewRequest(t, http.MethodGet, "/vehicles/"+foreign.ID.String()), mine.PersonID))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	t.Run("admin filters by residency", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.AsAdmin(testutil.NewRequest(t, http.MethodGet, "/vehicles?residency_id="+other.ID.String())))
		testutil.AssertStatusOK(t, rr)
		vehicles := testutil.UnmarshalResponse[[]models.Vehicle](t, rr)
		require.Len(t, *vehicles, 1)
		require.Equal(t, foreign.ID, (*vehicles)[0].ID)
	})
}

func TestDuplicatePlate(t *testing.T) {
	f := newFixture(t)
	r := f.resident(t, "P1", "a@x.com")
	f.createVehicle(t, "AAA111", r)

	req := testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/vehicles", map[string]any{
		"plate": "aaa111", "residency_id": r.ID.String(),
	}))
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	require.Equal(t, []string{"Vehicle with this plate already exists."}, testutil.ErrorFields(t, rr)["plate"])
}

func TestVisitorEntryAndExit(t *testing.T) {
	f := newFixture(t)
	r := f.resident(t, "P1", "a@x.com")

	req := testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/visitors", map[string]any{
		"full_name": "Guest", "document_id": "123", "authorized_by": r.ID.String(),
	}))
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	visitor := testutil.UnmarshalResponse[models.Visitor](t, rr)
	require.Nil(t, visitor.ExitedAt)

	rr = testutil.DoRequest(f.router, testutil.AsAdmin(testutil.NewRequest(t, http.MethodGet, "/visitors?inside=true")))
	testutil.AssertStatusOK(t, rr)
	require.Len(t, *testutil.UnmarshalResponse[[]models.Visitor](t, rr), 1)

	rr = testutil.DoRequest(f.router, testutil.AsAdmin(testutil.NewRequest(t, http.MethodPost, "/visitors/"+visitor.ID.String()+"/exit")))
	testutil.AssertStatusOK(t, rr)
	require.NotNil(t, testutil.UnmarshalResponse[models.Visitor](t, rr).ExitedAt)

	rr = testutil.DoRequest(f.router, testutil.AsAdmin(testutil.NewRequest(t, http.MethodPost, "/visitors/"+visitor.ID.String()+"/exit")))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(f.router, testutil.AsAdmin(testutil.NewRequest(t, http.MethodGet, "/visitors?inside=true")))
	testutil.AssertStatusOK(t, rr)
	require.Empty(t, *testutil.UnmarshalResponse[[]models.Visitor](t, rr))

	t.Run("resident sees visitors they authorized", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.AsResident(testutil.NewRequest(t, http.MethodGet, "/visitors"), r.PersonID))
		testutil.AssertStatusOK(t, rr)
		require.Len(t, *testutil.UnmarshalResponse[[]models.Visitor](t, rr), 1)
	})

	t.Run("bad inside flag", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.AsAdmin(testutil.NewRequest(t, http.MethodGet, "/visitors?inside=maybe")))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}
