package publisher

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
	"condo/pkg/platform/audit/store/memory"
	"condo/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("disk full") }

func TestPublisher_Emit(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	userID := id.UserID(uuid.New())
	adminID := id.UserID(uuid.New())
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithClientMetadata(ctx, "192.0.2.1", "test")
	ctx = requestcontext.WithPrincipal(ctx, requestcontext.Principal{UserID: adminID, Roles: []id.RoleName{id.RoleAdmin}})

	err := pub.Emit(ctx, audit.Event{UserID: userID, Action: string(audit.EventPersonDeleted)})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, now, got.Timestamp)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "192.0.2.1", got.IP)
	assert.Equal(t, adminID.String(), got.ActorID)
	assert.Equal(t, audit.CategoryCompliance, got.Category)
}

func TestPublisher_SelfActionHasNoActor(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	userID := id.UserID(uuid.New())
	ctx := requestcontext.WithPrincipal(context.Background(), requestcontext.Principal{UserID: userID})

	require.NoError(t, pub.Emit(ctx, audit.Event{UserID: userID, Action: string(audit.EventLoggedOut)}))

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].ActorID)
}

func TestPublisher_FailClosed(t *testing.T) {
	pub := NewPublisher(failingStore{})
	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventIdentityRegistered)})
	require.Error(t, err)
}

func TestPublisher_RequiresAction(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())
	require.Error(t, pub.Emit(context.Background(), audit.Event{}))
}
