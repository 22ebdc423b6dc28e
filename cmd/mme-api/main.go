// Package main provides the MME API service entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/drfirst/go-mme/internal/api"
	"github.com/drfirst/go-mme/internal/config"
	"github.com/drfirst/go-mme/internal/domain/mme"
	"github.com/drfirst/go-mme/internal/observability/logging"
	"github.com/drfirst/go-mme/internal/observability/metrics"
	"github.com/drfirst/go-mme/internal/observability/tracing"
)

const serviceName = "mme-api"

func main() {
	configFile := flag.String("config", "", "path to a config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	// Initialize tracing
	traceCfg := tracing.DefaultConfig(serviceName)
	traceCfg.ServiceVersion = api.Version
	traceCfg.Environment = cfg.Environment
	traceCfg.OTLPEndpoint = cfg.Tracing.Endpoint
	traceCfg.SampleRate = cfg.Tracing.SampleRate
	tp, err := tracing.Init(context.Background(), traceCfg)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	if cfg.TracingEnabled() {
		logger.Info("tracing initialized",
			zap.Bool("exporting", tp.Exporting()),
			zap.String("endpoint", cfg.Tracing.Endpoint))
	}
	if cfg.IsProduction() && cfg.Log.Format == "console" {
		logger.Warn("console log format in production")
	}

	// Load conversion table
	table := mme.DefaultTable()
	if cfg.Table.File != "" {
		table, err = mme.LoadTableFile(cfg.Table.File, table)
		if err != nil {
			logger.Fatal("failed to load conversion table", zap.Error(err))
		}
	}
	logger.Info("conversion table loaded",
		zap.Int("opioids", table.Len()),
		zap.String("extension_file", cfg.Table.File))

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	res, err := tracing.NewResource(traceCfg)
	if err != nil {
		logger.Fatal("failed to build telemetry resource", zap.Error(err))
	}
	mp, err := metrics.NewMeterProvider(reg, res)
	if err != nil {
		logger.Fatal("failed to initialize meter provider", zap.Error(err))
	}
	otel.SetMeterProvider(mp)

	handler, err := api.NewRouter(api.Options{
		ServiceName:   serviceName,
		Table:         table,
		Metrics:       m,
		Logger:        logger,
		MeterProvider: mp,
		Limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
	})
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	// Start server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
		if err := mp.Shutdown(ctx); err != nil {
			logger.Error("meter provider shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting MME API",
		zap.String("addr", cfg.Addr()),
		zap.String("environment", cfg.Environment))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}

	<-done
	logger.Info("server stopped")
}
