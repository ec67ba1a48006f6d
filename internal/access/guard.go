package access

import (
	"log/slog"
	"net/http"

	"condo/pkg/platform/httputil"
	"condo/pkg/requestcontext"
)

// DenialRecorder counts rejected requests.
type DenialRecorder interface {
	IncrementAccessDenied(resource, action string)
}

// Guard enforces a Policy on HTTP routes.
type Guard struct {
	policy  *Policy
	logger  *slog.Logger
	metrics DenialRecorder
}

func NewGuard(policy *Policy, logger *slog.Logger, metrics DenialRecorder) *Guard {
	return &Guard{policy: policy, logger: logger, metrics: metrics}
}

func (g *Guard) Policy() *Policy { return g.policy }

// Require rejects the request with 403 unless the caller may perform act on
// res. It runs before the handler, so denied requests never reach a store.
func (g *Guard) Require(res Resource, act Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if err := g.policy.Authorize(ctx, res, act); err != nil {
				g.logger.InfoContext(ctx, "access denied",
					"resource", string(res),
					"action", string(act),
					"caller_tier", TierOf(ctx).String(),
					"user_id", requestcontext.UserID(ctx).String(),
					"request_id", requestcontext.RequestID(ctx),
				)
				if g.metrics != nil {
					g.metrics.IncrementAccessDenied(string(res), string(act))
				}
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
