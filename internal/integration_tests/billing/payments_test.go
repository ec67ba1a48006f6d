//go:build integration

package billing

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"condo/internal/api"
	"condo/internal/billing/models"
	billingsvc "condo/internal/billing/service"
	catalogmodels "condo/internal/catalog/models"
	catalogsvc "condo/internal/catalog/service"
	propertysvc "condo/internal/property/service"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/testutil"
	"condo/pkg/testutil/containers"
)

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

func TestConcurrentPaymentsOnPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	testutil.Given(t, "a pending fee of 5000", func(t *testing.T) {
		app := newApp(t)
		unit, err := app.Units.Create(ctx, propertysvc.Input{Code: "PG-FEE-1"})
		require.NoError(t, err)
		feeType, err := app.Catalog.Create(ctx, catalogmodels.FeeTypes, catalogsvc.Input{Name: "Maintenance " + uuid.NewString()[:8]})
		require.NoError(t, err)
		fee, err := app.Billing.CreateFee(ctx, billingsvc.FeeInput{
			UnitID:    unit.ID,
			FeeTypeID: feeType.ID,
			DueDate:   models.NewDate(time.Now().AddDate(0, 1, 0)),
			Items:     []billingsvc.ItemInput{{Description: "Water", Amount: 5000}},
		})
		require.NoError(t, err)

		testutil.When(t, "several payments try to settle it in full at once", func(t *testing.T) {
			const n = 6
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := range n {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = app.Billing.CreatePayment(ctx, billingsvc.PaymentInput{
						Amount:       5000,
						Applications: []billingsvc.ApplicationInput{{FeeID: fee.ID, Amount: 5000}},
					})
				}(i)
			}
			wg.Wait()

			testutil.Then(t, "exactly one is recorded", func(t *testing.T) {
				succeeded := 0
				for _, err := range errs {
					if err == nil {
						succeeded++
						continue
					}
					assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "unexpected error: %v", err)
				}
				assert.Equal(t, 1, succeeded)
			})
			testutil.And(t, "the fee is settled without over-application", func(t *testing.T) {
				got, err := app.Billing.GetFee(ctx, fee.ID)
				require.NoError(t, err)
				assert.EqualValues(t, 5000, got.Applied)
				assert.True(t, got.Paid)
			})
		})
	})
}
