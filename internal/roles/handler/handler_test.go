package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"condo/internal/access"
	"condo/internal/roles"
	"condo/internal/roles/store"
	id "condo/pkg/domain"
	"condo/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *roles.Registry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := roles.Load(context.Background(), store.NewInMemory())
	require.NoError(t, err)

	r := chi.NewRouter()
	New(reg, access.NewGuard(access.DefaultPolicy(), logger, nil), logger).Register(r)
	return r, reg
}

func TestGroupsRequireAdmin(t *testing.T) {
	router, _ := newRouter(t)

	t.Run("anonymous caller is denied", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/groups", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("resident is denied", func(t *testing.T) {
		req := testutil.AsResident(testutil.NewJSONRequest(t, http.MethodGet, "/groups", nil), id.PersonID(uuid.New()))
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("admin lists groups", func(t *testing.T) {
		req := testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodGet, "/groups", nil))
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		groups := *testutil.UnmarshalResponse[[]roles.Role](t, rr)
		require.Len(t, groups, 2)
		require.Equal(t, id.RoleAdmin, groups[0].Name)
	})
}

func TestGetGroup(t *testing.T) {
	router, reg := newRouter(t)
	resident, _ := reg.Lookup(id.RoleResident)

	req := testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodGet, "/groups/"+resident.ID.String(), nil))
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "name", "Resident")

	req = testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodGet, "/groups/"+uuid.NewString(), nil))
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
