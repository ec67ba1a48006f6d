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
	"condo/internal/notice/models"
	"condo/internal/notice/service"
	"condo/internal/notice/store"
	propertyservice "condo/internal/property/service"
	propertystore "condo/internal/property/store"
	residentservice "condo/internal/residents/service"
	residentstore "condo/internal/residents/store"
	"condo/internal/roles"
	rolestore "condo/internal/roles/store"
	id "condo/pkg/domain"
	"condo/pkg/platform/tx"
	"condo/pkg/testutil"
)

func newRouter(t *testing.T) http.Handler {
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
	svc, err := service.New(store.NewInMemory(), residents, runner, service.WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, access.NewGuard(access.DefaultPolicy(), logger, nil), logger).Register(r)
	return r
}

func TestNoticesArePublicButAdminWritten(t *testing.T) {
	router := newRouter(t)

	req := testutil.AsResident(testutil.NewJSONRequest(t, http.MethodPost, "/notices", map[string]any{
		"title": "Pool", "body": "Open",
	}), id.PersonID(uuid.New()))
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

	rr = testutil.DoRequest(router, testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/notices", map[string]any{
		"title": "Pool", "body": "Open",
	})))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	rr = testutil.DoRequest(router, testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/notices", map[string]any{
		"title": "Draft", "body": "Hidden", "active": false,
	})))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	draft := testutil.UnmarshalResponse[models.Notice](t, rr)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/notices"))
	testutil.AssertStatusOK(t, rr)
	require.Len(t, *testutil.UnmarshalResponse[[]models.Notice](t, rr), 1)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/notices/"+draft.ID.String()))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(router, testutil.AsAdmin(testutil.NewRequest(t, http.MethodGet, "/notices")))
	testutil.AssertStatusOK(t, rr)
	require.Len(t, *testutil.UnmarshalResponse[[]models.Notice](t, rr), 2)
}

func TestCreateNoticeValidation(t *testing.T) {
	router := newRouter(t)
	rr := testutil.DoRequest(router, testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/notices", map[string]any{
		"title": "  ",
	})))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	fields := testutil.ErrorFields(t, rr)
	require.Equal(t, []string{"This field is required."}, fields["title"])
	require.Equal(t, []string{"This field is required."}, fields["body"])
}
