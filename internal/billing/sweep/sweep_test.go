package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condo/internal/billing/models"
)

type fakeMarker struct {
	mu    sync.Mutex
	calls []models.Date
	err   error
}

func (f *fakeMarker) MarkOverdue(_ context.Context, today models.Date) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, today)
	return 2, f.err
}

func (f *fakeMarker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New(&fakeMarker{}, "every tuesday", discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every tuesday")
}

func TestRunOnceUsesClockDay(t *testing.T) {
	marker := &fakeMarker{}
	at := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	s, err := New(marker, DefaultSchedule, discard(), WithClock(func() time.Time { return at }))
	require.NoError(t, err)

	moved, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	require.Len(t, marker.calls, 1)
	assert.Equal(t, "2026-03-14", marker.calls[0].String())
}

func TestRunOnceReportsFailure(t *testing.T) {
	marker := &fakeMarker{err: errors.New("store down")}
	s, err := New(marker, DefaultSchedule, discard())
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.EqualError(t, err, "store down")
}

func TestRunFiresOnScheduleAndStops(t *testing.T) {
	marker := &fakeMarker{}
	s, err := New(marker, "@every 1s", discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return marker.count() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
