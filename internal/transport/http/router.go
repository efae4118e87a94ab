// Package http wires the public surface: registration, profile reads,
// verification token and status endpoints, and the provider webhook.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vouch/internal/platform/metrics"
	"vouch/internal/platform/middleware"
	"vouch/internal/ratelimit"
)

// Deps carries everything the router mounts.
type Deps struct {
	Registrants  *RegistrantHandler
	Verification *VerificationHandler
	Limiter      *ratelimit.Limiter
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
	Health       func(r *http.Request) error
}

var (
	registerRule = ratelimit.Rule{Name: "register", Limit: 10, Window: time.Minute}
	webhookRule  = ratelimit.Rule{Name: "webhook", Limit: 120, Window: time.Minute}
)

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if d.Health != nil {
			if err := d.Health(req); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Message: "unhealthy"})
				return
			}
		}
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.With(d.Limiter.Middleware(registerRule)).Post("/register", d.Registrants.Register)
		r.Put("/verification-status", d.Registrants.UpdateStatus)
		r.Get("/{id}", d.Registrants.Get)
	})

	r.Route("/verification", func(r chi.Router) {
		r.Get("/token/{userId}", d.Verification.Token)
		r.Get("/status/{userId}", d.Verification.Status)
		r.With(middleware.ContentTypeJSON, d.Limiter.Middleware(webhookRule)).
			Post("/webhook", d.Verification.Webhook)
	})

	return r
}
