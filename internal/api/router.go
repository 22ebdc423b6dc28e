// Package api assembles the HTTP router for the MME service.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/drfirst/go-mme/internal/api/handlers"
	"github.com/drfirst/go-mme/internal/api/middleware"
	"github.com/drfirst/go-mme/internal/domain/mme"
	"github.com/drfirst/go-mme/internal/observability/metrics"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Options configures the router
type Options struct {
	ServiceName string
	Table       *mme.Table
	Metrics     *metrics.Metrics
	Logger      *zap.Logger

	// MeterProvider receives the OpenTelemetry instruments; nil uses the global provider
	MeterProvider metric.MeterProvider
	// Limiter throttles every route except /health, /ready and /metrics; nil disables it
	Limiter *rate.Limiter
}

// NewRouter builds the service router
func NewRouter(opts Options) (http.Handler, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "mme-api"
	}
	if opts.Table == nil {
		opts.Table = mme.DefaultTable()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	mmeHandler, err := handlers.NewMMEHandler(opts.Table, opts.Metrics, opts.MeterProvider, opts.Logger)
	if err != nil {
		return nil, err
	}
	pageHandler, err := handlers.NewPageHandler(opts.Table, opts.Logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(opts.Logger))
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(middleware.Tracing(opts.ServiceName))

	// Probes and scraping (not rate limited)
	r.Get("/health", healthHandler(opts.ServiceName))
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if opts.Table.Len() == 0 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", opts.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(middleware.RateLimit(opts.Limiter))
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/opioids", mmeHandler.ListOpioids)
			r.Mount("/mme", mmeHandler.Routes())
		})

		// Unversioned paths used by the web pages and older clients
		r.Post("/calculate", mmeHandler.LegacyCalculate)
		r.Post("/convert", mmeHandler.Convert)

		pageHandler.Register(r)
	})

	return r, nil
}

func healthHandler(service string) http.HandlerFunc {
	body, _ := json.Marshal(map[string]string{
		"status":  "healthy",
		"service": service,
		"version": Version,
	})
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}
