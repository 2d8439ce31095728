// Package runtime centralizes the constructed dependencies that the
// teacher's main.go builds as one-off locals and package-level globals
// (storage.NewMemoryStore(), websocket.NewHub(), anomaly.NewDetector(cfg),
// alerting.NewAlerter(hub)) into one Runtime value, per REDESIGN FLAGS
// ("Pattern: global mutable caches and pools"). internal/ingest and
// internal/query take a *Runtime instead of reading package globals.
package runtime

import (
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manufacturing-platform/telemetry-gateway/internal/alerting"
	"github.com/manufacturing-platform/telemetry-gateway/internal/anomaly"
	"github.com/manufacturing-platform/telemetry-gateway/internal/config"
	"github.com/manufacturing-platform/telemetry-gateway/internal/dataplane"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
	"github.com/manufacturing-platform/telemetry-gateway/internal/storage"
	"github.com/manufacturing-platform/telemetry-gateway/internal/stream"
	"github.com/manufacturing-platform/telemetry-gateway/internal/telemetry"
	"github.com/manufacturing-platform/telemetry-gateway/internal/tenant"
	"github.com/manufacturing-platform/telemetry-gateway/internal/websocket"
)

// Runtime holds every process-wide constructed dependency.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics

	Resolver *tenant.Resolver
	Selector *dataplane.Selector

	Detector   *anomaly.Detector
	Dispatcher *alerting.Dispatcher
	Publisher  *stream.Publisher

	Hot   *storage.HotStore
	Warm  *storage.WarmStore
	Cold  *storage.ColdStore
	Cache *storage.RecentCache
	Fanout *storage.Fanout

	Hub *websocket.Hub
}

// Dependencies groups the externally-provided clients a Build call
// needs (everything that reaches out to an actual network service).
// Tests pass a seeded tenant roster and leave the clients nil instead of
// reaching a live Postgres/Redis/S3; the Kafka publisher is always built
// from Config.StreamBrokers.
type Dependencies struct {
	HotPool    *pgxpool.Pool
	WarmPool   *pgxpool.Pool
	RedisClient *redis.Client
	S3Client   *s3.Client
	Tenants    []model.TenantContext
}

// Build wires one Runtime from configuration and live clients.
func Build(cfg *config.Config, logger *slog.Logger, deps Dependencies) *Runtime {
	metrics := telemetry.NewMetrics()

	directory := tenant.NewStaticDirectory(deps.Tenants)
	cache := tenant.NewCache(deps.RedisClient, directory, cfg.CacheTTL(), logger)
	policy := tenant.NewAccessPolicy()
	resolver := tenant.NewResolver(cache, policy, cfg.Tenant.PlatformDomain)

	selector := dataplane.NewSelector(deps.HotPool, deps.WarmPool, cfg.SharedObjectBucket, metrics)

	detector := anomaly.NewDetector(cfg.Anomaly)
	publisher := stream.NewPublisher(cfg.StreamBrokers, logger)
	hub := websocket.NewHub(logger)
	dispatcher := alerting.NewDispatcher(publisher, metrics, logger)

	hot := storage.NewHotStore()
	warm := storage.NewWarmStore()
	cold := storage.NewColdStore(deps.S3Client)
	recentCache := storage.NewRecentCache()
	fanout := storage.NewFanout(hot, warm, cold, recentCache, metrics, logger)

	return &Runtime{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Resolver:   resolver,
		Selector:   selector,
		Detector:   detector,
		Dispatcher: dispatcher,
		Publisher:  publisher,
		Hot:        hot,
		Warm:       warm,
		Cold:       cold,
		Cache:      recentCache,
		Fanout:     fanout,
		Hub:        hub,
	}
}

// Sinks builds the notification sink set for one tenant's configured
// channels, per spec.md §4.4.
func (rt *Runtime) Sinks(t *model.TenantContext) []alerting.Sink {
	sinks := []alerting.Sink{alerting.NewWebsocketSink(rt.Hub)}
	if len(t.Alert.WebhookURLs) > 0 {
		sinks = append(sinks, alerting.NewWebhookSink(t.Alert.WebhookURLs))
	}
	return sinks
}

// Close releases process-wide resources (stream writers; connection
// pools are owned by the caller that built Dependencies).
func (rt *Runtime) Close() error {
	return rt.Publisher.Close()
}
