// Package requesttime pins one "now" per request so created_at columns,
// audit rows and token expiries written by that request agree.
package requesttime

import (
	"net/http"
	"time"

	"condo/pkg/requestcontext"
)

// Middleware stamps requests with the wall clock.
var Middleware = WithClock(time.Now)

// WithClock returns middleware stamping requests with now(). The instant is
// stored in UTC at microsecond precision, which is what Postgres keeps, so a
// row read back compares equal to the value the request wrote.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := now().UTC().Truncate(time.Microsecond)
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), t)))
		})
	}
}
