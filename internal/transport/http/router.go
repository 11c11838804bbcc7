// Package httptransport assembles the service's HTTP surface: the shared
// middleware chain, the custom-domain API, the operator group and the
// operational endpoints. Handlers own their routes; this package only
// composes them.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/middleware"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/httputil"
)

// readyCheckTimeout bounds each dependency probe on /readyz.
const readyCheckTimeout = 5 * time.Second

// DomainRoutes registers the tenant-facing and operator endpoint groups.
type DomainRoutes interface {
	Register(chi.Router)
	RegisterAdmin(chi.Router)
}

// ReadyCheck probes one dependency for readiness.
type ReadyCheck func(ctx context.Context) error

// Config carries everything the router composes.
type Config struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration

	Domains DomainRoutes

	// AdminGate wraps the operator endpoints. Without one the admin group
	// is not mounted at all.
	AdminGate func(http.Handler) http.Handler

	// Debounce is the storefront hook: every inbound Host header flows
	// through it so traffic to a verified domain refreshes its checks.
	Debounce func(http.Handler) http.Handler

	// LatencyObserver receives per-route handler durations.
	LatencyObserver func(route string, d time.Duration)

	// ReadyChecks gate /readyz, keyed by dependency name.
	ReadyChecks map[string]ReadyCheck
}

// New builds the service router.
func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(cfg.LatencyObserver))
	if cfg.Debounce != nil {
		r.Use(cfg.Debounce)
	}

	cfg.Domains.Register(r)
	if cfg.AdminGate != nil {
		r.Group(func(r chi.Router) {
			r.Use(cfg.AdminGate)
			cfg.Domains.RegisterAdmin(r)
		})
	}

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(cfg.ReadyChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

type healthzResponse struct {
	Status string `json:"status"`
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, healthzResponse{Status: "ok"})
}

type readyzResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleReadyz runs every dependency probe and reports per-check outcomes.
// Any failure flips the endpoint to 503 so the load balancer drains the
// instance while it keeps serving in-flight work.
func handleReadyz(checks map[string]ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		resp := readyzResponse{Status: "ready", Checks: results}
		if status != http.StatusOK {
			resp.Status = "unavailable"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
