package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tvamit/aya-helthcare-demo/cmd/mainconfig"
	"github.com/tvamit/aya-helthcare-demo/internal/app/bootstrap"
	appconfig "github.com/tvamit/aya-helthcare-demo/internal/config"
	"github.com/tvamit/aya-helthcare-demo/internal/observability/metrics"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting hospital assistant API",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"session_backend", cfg.SessionBackend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsHandler, assistantMetrics := setupMetrics()
	app, err := bootstrap.Build(ctx, cfg, bootstrap.Deps{
		Logger:         logger,
		AWS:            loadAWS(ctx, cfg, logger),
		Metrics:        assistantMetrics,
		MetricsHandler: metricsHandler,
	})
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	app.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers the assistant collectors plus the Go runtime and
// process collectors on a private registry.
func setupMetrics() (http.Handler, *metrics.AssistantMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), metrics.NewAssistantMetrics(reg)
}

// loadAWS returns nil when the SDK config cannot be loaded; AWS-backed
// integrations are then skipped or rejected by bootstrap.
func loadAWS(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *aws.Config {
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("AWS config unavailable", "error", err)
		return nil
	}
	return &awsCfg
}
