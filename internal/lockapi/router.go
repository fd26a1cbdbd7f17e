package lockapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/condlock/condlock/internal/logger"
	"github.com/condlock/condlock/pkg/lockcoordinator"
	"github.com/condlock/condlock/pkg/lockstore"
)

// NewRouter builds the condlockd HTTP router.
//
// Routes:
//   - GET  /health        - liveness probe, unauthenticated
//   - GET  /health/ready   - readiness probe, unauthenticated
//   - GET  /metrics        - Prometheus scrape endpoint, unauthenticated
//   - POST /v1/locks/{group}/{id}  - acquire (runs the state machine)
//   - GET  /v1/locks/{group}/{id}  - peek at the persisted record
//   - DELETE /v1/locks/{group}/{id} - release a lock this instance holds
//   - POST /v1/locks/release-all    - release every lock this instance holds
//
// jwtSigningKey, if non-empty, gates every /v1/locks/* route behind bearer
// auth; empty disables authentication entirely (see jwtAuth).
func NewRouter(coordinator *lockcoordinator.Coordinator, backend lockstore.Backend, jwtSigningKey string, registry prometheus.Registerer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	health := newHealthHandler()
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	if registry != nil {
		gatherer, ok := registry.(prometheus.Gatherer)
		if !ok {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	locks := newLockHandler(coordinator, backend)
	auth := newTokenAuthenticator(jwtSigningKey)

	r.Route("/v1/locks", func(r chi.Router) {
		r.Use(jwtAuth(auth))
		r.Post("/release-all", locks.ReleaseAll)
		r.Route("/{group}/{id}", func(r chi.Router) {
			r.Post("/", locks.Acquire)
			r.Get("/", locks.Peek)
			r.Delete("/", locks.Release)
		})
	})

	return r
}

// requestLogger mirrors the structured request/response logging the rest
// of this module uses, keyed by chi's request ID rather than a lock
// group/id (there may be none, or several, per request).
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
