package dataplane

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

// UsageMetrics is the "opaque input" spec.md §4.2/§9 requires for the
// dedicated-hot-store promotion decision. spec.md §9's Open Question
// ("implementers must designate a concrete metrics backend ... before
// the promotion logic is testable") is resolved here: this repo reads
// internal/telemetry.Metrics, whose usage counters sit beside its
// Prometheus gauges. Only the SLA-violation count is fed by the gateway
// itself (the ingestion handler records each breach); daily volume and
// queries/sec change only through Metrics.RecordDailyVolumeGB and
// RecordAvgQueriesPerSec, which nothing in the gateway calls.
type UsageMetrics interface {
	DailyVolumeGB(tenantID string) float64
	AvgQueriesPerSec(tenantID string) float64
	RecentSLAViolations(tenantID string) int
}

const (
	promoteVolumeGBThreshold    = 100.0
	promoteQPSThreshold         = 50.0
	promoteSLAViolationThreshold = 5
)

// shouldPromote implements the four-way OR from spec.md §4.2: daily
// volume, average QPS, recent SLA violations, or enterprise tier.
func shouldPromote(t *model.TenantContext, usage UsageMetrics) bool {
	if t.Tier == model.TierEnterprise {
		return true
	}
	if usage == nil {
		return false
	}
	if usage.DailyVolumeGB(t.TenantID) > promoteVolumeGBThreshold {
		return true
	}
	if usage.AvgQueriesPerSec(t.TenantID) > promoteQPSThreshold {
		return true
	}
	if usage.RecentSLAViolations(t.TenantID) > promoteSLAViolationThreshold {
		return true
	}
	return false
}

// Selector resolves a TenantContext into a DataPlane. It owns the
// process-wide shared pools and the map of dedicated hot pools keyed by
// tenant_id, per spec.md §5 ("Process-wide state").
type Selector struct {
	sharedHotPool  *pgxpool.Pool
	sharedWarmPool *pgxpool.Pool
	sharedBucket   string
	usage          UsageMetrics

	mu             sync.Mutex
	dedicatedPools map[string]*pgxpool.Pool
	connectFn      func(ctx context.Context, connString string) (*pgxpool.Pool, error)
}

// NewSelector builds a Selector over the process-wide shared pools.
func NewSelector(sharedHotPool, sharedWarmPool *pgxpool.Pool, sharedBucket string, usage UsageMetrics) *Selector {
	return &Selector{
		sharedHotPool:  sharedHotPool,
		sharedWarmPool: sharedWarmPool,
		sharedBucket:   sharedBucket,
		usage:          usage,
		dedicatedPools: make(map[string]*pgxpool.Pool),
		connectFn:      pgxpool.New,
	}
}

// Select returns the DataPlane for t.
func (s *Selector) Select(ctx context.Context, t *model.TenantContext) (*DataPlane, error) {
	hotPool, err := s.hotPoolFor(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("select hot pool: %w", err)
	}

	dp := &DataPlane{
		HotPool:  hotPool,
		WarmPool: NewSharedPool(s.sharedWarmPool, t.TenantID),
		Streams: StreamTopics{
			SensorData:     sensorTopic(t.TenantID),
			Alerts:         alertTopic(t.TenantID),
			PriorityAlerts: priorityAlertsTopic,
		},
		Sinks: AlertSinks{
			NotificationTopics: t.Alert.NotificationTopics,
			WebhookURLs:        t.Alert.WebhookURLs,
		},
	}

	if t.DeploymentMode == model.DeploymentShared {
		dp.Streams.Shared = sharedTopic
		dp.ObjectStore = ObjectTarget{Bucket: s.sharedBucket, Prefix: fmt.Sprintf("tenants/%s/", t.TenantID)}
	} else {
		bucket := t.Object.DedicatedBucket
		if bucket == "" {
			bucket = s.sharedBucket
		}
		dp.ObjectStore = ObjectTarget{Bucket: bucket, Prefix: ""}
	}

	return dp, nil
}

func (s *Selector) hotPoolFor(ctx context.Context, t *model.TenantContext) (*SessionScopedPool, error) {
	if t.DeploymentMode != model.DeploymentIsolated {
		return NewSharedPool(s.sharedHotPool, t.TenantID), nil
	}
	if !shouldPromote(t, s.usage) {
		return NewSharedPool(s.sharedHotPool, t.TenantID), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.dedicatedPools[t.TenantID]; ok {
		return NewDedicatedPool(p), nil
	}
	if t.Data.ConnectionString == "" {
		return nil, fmt.Errorf("tenant %s is isolated-mode-promoted but has no dedicated connection string", t.TenantID)
	}
	p, err := s.connectFn(ctx, t.Data.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("connect dedicated pool: %w", err)
	}
	s.dedicatedPools[t.TenantID] = p
	return NewDedicatedPool(p), nil
}
