// Package httptransport assembles the HTTP surface: routing, middleware
// ordering, health, and metrics. Business logic stays in the handler and
// service packages.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	donationhandler "hemobank/internal/donation/handler"
	inventoryhandler "hemobank/internal/inventory/handler"
	"hemobank/internal/platform/metrics"
	"hemobank/internal/platform/middleware"
	"hemobank/pkg/platform/httputil"
)

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs. Optional fields may be nil.
type Deps struct {
	Donations      *donationhandler.Handler
	Inventory      *inventoryhandler.Handler
	Validator      middleware.JWTValidator
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	RequestTimeout time.Duration
	Health         []HealthChecker
}

// NewRouter wires the full route tree. Donor routes require any valid token,
// admin routes require the admin role, inventory reads are open to both.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}
	r.Use(middleware.ContentTypeJSON)
	if deps.Metrics != nil {
		r.Use(middleware.LatencyMiddleware(deps.Metrics))
	}

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		deps.Donations.Register(r)
		deps.Inventory.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(deps.Validator, deps.Logger))
		deps.Donations.RegisterAdmin(r)
		deps.Inventory.RegisterAdmin(r)
	})

	return r
}

func healthHandler(checks []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.Health(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
