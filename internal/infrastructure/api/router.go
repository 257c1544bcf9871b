package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"marketplace-integration-layer/internal/application"
	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/infrastructure/metrics"
	"marketplace-integration-layer/internal/infrastructure/middleware"
	"marketplace-integration-layer/internal/ports"
)

// RouterConfig wires the HTTP surface
type RouterConfig struct {
	Service        *application.IntegrationService
	ProviderSecret string
	Replay         ports.ReplayGuard
	ReplayTTL      time.Duration
	MaxSkew        time.Duration
	AllowedOrigins []string
	SwaggerFile    string
	Logger         zerolog.Logger
}

// NewRouter builds the service router with both integration variants mounted
func NewRouter(cfg RouterConfig) http.Handler {
	metrics.RegisterDefault()

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeadersMiddleware(cfg.AllowedOrigins))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if cfg.SwaggerFile != "" {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, cfg.SwaggerFile)
		})
	}

	opts := middleware.GateOptions{
		Replay:    cfg.Replay,
		ReplayTTL: cfg.ReplayTTL,
		MaxSkew:   cfg.MaxSkew,
		Fallback:  SignatureMismatchView(),
		Logger:    cfg.Logger,
	}
	identity := middleware.IdentityResolutionFromClaim(cfg.Service, cfg.Logger)
	activation := middleware.ActivationSignatureCheck(cfg.ProviderSecret, opts)

	for _, variant := range []domain.IntegrationVariant{domain.VariantShop, domain.VariantFull} {
		handler := NewIntegrationHandler(cfg.Service, variant, cfg.Logger)
		r.Mount(variant.RoutePrefix(), handler.Routes(RouteAuth{
			Activation: activation,
			Action:     middleware.ActionSignatureCheck(variant, cfg.Service, opts),
			Identity:   identity,
		}))
	}

	return r
}
