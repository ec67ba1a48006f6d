package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "condo/pkg/domain"
	audit "condo/pkg/platform/audit"
	"condo/pkg/platform/tx"
)

func TestInMemoryStore_OutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	userID := id.UserID(uuid.New())

	require.NoError(t, store.Append(ctx, audit.Event{UserID: userID, Action: string(audit.EventIdentityRegistered), Timestamp: time.Now()}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: string(audit.EventLoginFailed), Timestamp: time.Now()}))

	pending, err := store.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, audit.CategoryCompliance, pending[0].Category)
	assert.Equal(t, userID.String(), pending[0].Key)
	assert.Equal(t, audit.CategorySecurity, pending[1].Category)

	require.NoError(t, store.MarkPublished(ctx, []string{pending[0].ID}, time.Now()))
	pending, err = store.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, string(audit.EventLoginFailed), pending[0].EventType)

	events, err := store.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestInMemoryStore_DiscardedOnRollback(t *testing.T) {
	store := NewInMemoryStore()
	runner := tx.NewMemoryRunner(0)

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, store.Append(ctx, audit.Event{Action: string(audit.EventIdentityRegistered)}))
		return errors.New("residency insert failed")
	})
	require.Error(t, err)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	pending, err := store.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
