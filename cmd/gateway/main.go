// cmd/gateway/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manufacturing-platform/telemetry-gateway/internal/api"
	"github.com/manufacturing-platform/telemetry-gateway/internal/config"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
	"github.com/manufacturing-platform/telemetry-gateway/internal/runtime"
	"github.com/manufacturing-platform/telemetry-gateway/internal/telemetry"
)

func main() {
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	flag.Parse()

	bootstrapLogger := telemetry.NewLogger("telemetry-gateway", "bootstrap")

	cfg, err := config.Load(*configPath, bootstrapLogger)
	if err != nil {
		bootstrapLogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := telemetry.NewLogger("telemetry-gateway", cfg.Environment)

	deps := buildDependencies(cfg, logger)
	rt := runtime.Build(cfg, logger, deps)

	go rt.Hub.Run()

	dataRouter := api.SetupDataRouter(rt)
	alertSinkRouter := api.SetupAlertSinkRouter(rt)

	dataServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.DataPort),
		Handler: dataRouter,
	}
	alertServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.AlertPort),
		Handler: alertSinkRouter,
	}

	go func() {
		logger.Info("starting data ingestion server", slog.Int("port", cfg.Server.DataPort))
		if err := dataServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("data server stopped", slog.String("error", err.Error()))
		}
	}()

	go func() {
		logger.Info("starting alert sink server", slog.Int("port", cfg.Server.AlertPort))
		if err := alertServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("alert sink server stopped", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = dataServer.Shutdown(shutdownCtx)
	_ = alertServer.Shutdown(shutdownCtx)
	if err := rt.Close(); err != nil {
		logger.Warn("error during runtime shutdown", slog.String("error", err.Error()))
	}

	logger.Info("servers gracefully stopped")
}

// buildDependencies constructs the live clients a production process
// needs (connection pools, cache client, object-store client). Tests
// build runtime.Dependencies directly with fakes instead of calling
// this.
func buildDependencies(cfg *config.Config, logger *slog.Logger) runtime.Dependencies {
	ctx := context.Background()

	hotPool, err := pgxpool.New(ctx, cfg.SharedConnectionString)
	if err != nil {
		logger.Warn("failed to connect hot pool, continuing degraded", slog.String("error", err.Error()))
	}
	warmPool, err := pgxpool.New(ctx, cfg.WarmStore.DSN())
	if err != nil {
		logger.Warn("failed to connect warm pool, continuing degraded", slog.String("error", err.Error()))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Tenant.RedisAddr})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		logger.Warn("failed to load AWS config, continuing degraded", slog.String("error", err.Error()))
	}
	s3Client := s3.NewFromConfig(awsCfg)

	return runtime.Dependencies{
		HotPool:     hotPool,
		WarmPool:    warmPool,
		RedisClient: redisClient,
		S3Client:    s3Client,
		Tenants:     []model.TenantContext{},
	}
}
