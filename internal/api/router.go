package api

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	authhandler "condo/internal/auth/handler"
	platformmetrics "condo/internal/platform/metrics"
	rlmiddleware "condo/internal/ratelimit/middleware"
	rlmodels "condo/internal/ratelimit/models"
	registrationhandler "condo/internal/registration/handler"
	"condo/pkg/platform/httputil"
	"condo/pkg/platform/middleware/metadata"
	request "condo/pkg/platform/middleware/request"
	"condo/pkg/platform/middleware/requesttime"
)

// module is a handler that mounts guarded routes.
type module interface {
	Register(r chi.Router)
}

type routerDeps struct {
	logger       *slog.Logger
	cors         []string
	gatherer     prometheus.Gatherer
	metrics      *platformmetrics.Metrics
	limiter      *rlmiddleware.Middleware
	authenticate func(http.Handler) http.Handler
	checks       map[string]HealthCheck
	auth         *authhandler.Handler
	registration *registrationhandler.Handler
	modules      []module
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(request.Recovery(d.logger))
	r.Use(request.Logger(d.logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(d.metrics.LatencyMiddleware)
	r.Use(corsHandler(d.cors))

	r.Get("/healthz", healthHandler(d.checks))
	r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.limiter.RateLimit(rlmodels.ClassRegister))
			d.registration.RegisterPublic(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(d.limiter.RateLimit(rlmodels.ClassLogin))
			d.auth.RegisterPublic(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(d.authenticate)
			d.auth.Register(r)
			for _, m := range d.modules {
				m.Register(r)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})
	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler answers 200 while every dependency responds, 503 otherwise.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
