package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"condo/pkg/requestcontext"
)

func TestWithClockPinsRequestTime(t *testing.T) {
	local := time.FixedZone("UTC-3", -3*60*60)
	fixed := time.Date(2026, 3, 14, 6, 30, 0, 123456789, local)

	var first, second time.Time
	h := WithClock(func() time.Time { return fixed })(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		second = requestcontext.Now(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, first, second)
	assert.Equal(t, time.UTC, first.Location())
	assert.Equal(t, time.Date(2026, 3, 14, 9, 30, 0, 123456000, time.UTC), first)
}
