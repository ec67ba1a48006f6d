//go:build integration

package registration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"condo/internal/api"
	propertysvc "condo/internal/property/service"
	registrationsvc "condo/internal/registration/service"
	residentmodels "condo/internal/residents/models"
	residentsvc "condo/internal/residents/service"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/testutil"
	"condo/pkg/testutil/containers"
)

const password = "Tr0pical-Harbor-91"

func newApp(t *testing.T) *api.App {
	t.Helper()
	pg := containers.GetManager().GetPostgres(t)
	require.NoError(t, pg.TruncateDomainTables(context.Background()))

	app, err := api.New(context.Background(), api.PostgresBackend(pg.DB, 5*time.Second), api.Config{
		JWTSigningKey:     "integration-signing-key",
		AccessTokenTTL:    5 * time.Minute,
		RefreshTokenTTL:   time.Hour,
		BcryptCost:        bcrypt.MinCost,
		RateLimitDisabled: true,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return app
}

func input(n int, unitID id.UnitID) registrationsvc.Input {
	return registrationsvc.Input{
		Email:     fmt.Sprintf("resident%d@example.com", n),
		Password:  password,
		Code:      fmt.Sprintf("R-%d", n),
		FirstName: "Resident",
		LastName:  fmt.Sprintf("Number%d", n),
		UnitID:    unitID,
	}
}

func principalsOf(t *testing.T, app *api.App, unitID id.UnitID) []*residentmodels.Residency {
	t.Helper()
	residencies, err := app.Residents.ListResidencies(context.Background(), residentmodels.ResidencyFilter{UnitID: &unitID})
	require.NoError(t, err)
	var out []*residentmodels.Residency
	for _, r := range residencies {
		if r.IsPrincipal {
			out = append(out, r)
		}
	}
	return out
}

func TestPrincipalResidencyOnPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	testutil.Given(t, "a unit with no residents", func(t *testing.T) {
		app := newApp(t)
		unit, err := app.Units.Create(ctx, propertysvc.Input{Code: "PG-1"})
		require.NoError(t, err)

		testutil.When(t, "two residents register one after the other", func(t *testing.T) {
			first, err := app.Registration.Register(ctx, input(1, unit.ID))
			require.NoError(t, err)
			second, err := app.Registration.Register(ctx, input(2, unit.ID))
			require.NoError(t, err)

			testutil.Then(t, "only the first is principal", func(t *testing.T) {
				assert.True(t, first.IsPrincipal)
				assert.False(t, second.IsPrincipal)
				principals := principalsOf(t, app, unit.ID)
				require.Len(t, principals, 1)
				assert.Equal(t, first.ResidencyID, principals[0].ID)
			})
		})

		testutil.When(t, "an administrator promotes the second residency", func(t *testing.T) {
			residencies, err := app.Residents.ListResidencies(ctx, residentmodels.ResidencyFilter{UnitID: &unit.ID})
			require.NoError(t, err)
			var target *residentmodels.Residency
			for _, r := range residencies {
				if !r.IsPrincipal {
					target = r
				}
			}
			require.NotNil(t, target)
			principal := true
			_, err = app.Residents.UpdateResidency(ctx, target.ID, residentsvc.ResidencyPatch{IsPrincipal: &principal})

			testutil.Then(t, "it is rejected and the principal is unchanged", func(t *testing.T) {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
				assert.Contains(t, dErrors.Fields(err), "conflicting_residency_id")
				assert.Len(t, principalsOf(t, app, unit.ID), 1)
			})
			testutil.And(t, "the target residency stays secondary", func(t *testing.T) {
				got, err := app.Residents.GetResidency(ctx, target.ID)
				require.NoError(t, err)
				assert.False(t, got.IsPrincipal)
			})
		})
	})

	testutil.Given(t, "a fresh unit", func(t *testing.T) {
		app := newApp(t)
		unit, err := app.Units.Create(ctx, propertysvc.Input{Code: "PG-2"})
		require.NoError(t, err)

		testutil.When(t, "many residents register concurrently", func(t *testing.T) {
			const n = 8
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = app.Registration.Register(ctx, input(100+i, unit.ID))
				}(i)
			}
			wg.Wait()

			testutil.Then(t, "exactly one principal exists", func(t *testing.T) {
				for _, err := range errs {
					if err != nil {
						assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "unexpected error: %v", err)
					}
				}
				assert.Len(t, principalsOf(t, app, unit.ID), 1)
			})
		})
	})
}
