// Package http assembles the service's HTTP surface: authenticated API
// routes, unauthenticated provider webhooks, and operational endpoints.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphandler "vouchsafe/internal/application/handler"
	"vouchsafe/internal/guardian"
	"vouchsafe/internal/jwtauth"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/platform/middleware"
	"vouchsafe/internal/voucher"
	"vouchsafe/internal/webhooks/docuseal"
	"vouchsafe/internal/webhooks/twilio"
)

// RouterConfig carries everything the router mounts.
type RouterConfig struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator jwtauth.Validator

	Applications *apphandler.Handler
	Vouchers     *voucher.Handler
	Guardians    *guardian.Handler
	DocuSeal     *docuseal.Handler
	Twilio       *twilio.Handler

	Health func() error
}

// NewRouter builds the chi router with the shared middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Provider webhooks authenticate with their own signatures, not bearer
	// tokens.
	r.Route("/webhooks", func(r chi.Router) {
		r.With(middleware.Latency(cfg.Metrics, "webhooks/docuseal")).
			Method(http.MethodPost, "/docuseal/medical_certification", cfg.DocuSeal)
		r.With(middleware.Latency(cfg.Metrics, "webhooks/twilio")).
			Method(http.MethodPost, "/twilio/fax_status", cfg.Twilio)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(cfg.Validator))
		r.With(middleware.Latency(cfg.Metrics, "applications")).
			Mount("/applications", cfg.Applications.Routes())
		r.With(middleware.Latency(cfg.Metrics, "vouchers")).
			Mount("/vouchers", cfg.Vouchers.Routes())
		r.With(middleware.Latency(cfg.Metrics, "guardians")).
			Mount("/guardians", cfg.Guardians.Routes())
	})

	return r
}
