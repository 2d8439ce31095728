package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the process-wide observability sink. Construction mirrors
// ayub-kk-go-service2's promauto-built counters/gauges: one registry,
// built once, passed around rather than read off package globals.
type Metrics struct {
	AnomaliesTotal    *prometheus.CounterVec
	SeverityScore     *prometheus.GaugeVec
	MetricValue       *prometheus.GaugeVec
	AlertChannelTotal *prometheus.CounterVec
	TenantUsageTotal  *prometheus.CounterVec
	FanoutTierTotal   *prometheus.CounterVec
	HTTPLatency       *prometheus.HistogramVec

	// Usage gauges feeding the Data-Plane Selector's dedicated-hot-store
	// promotion decision (spec.md §9 Open Question: this repo designates
	// Prometheus as the concrete metrics backend for that otherwise-opaque
	// input).
	TenantDailyVolumeGB     *prometheus.GaugeVec
	TenantAvgQueriesPerSec  *prometheus.GaugeVec
	TenantSLAViolationTotal *prometheus.CounterVec

	usageMu  sync.RWMutex
	usage    map[string]*tenantUsage
}

type tenantUsage struct {
	dailyVolumeGB    float64
	avgQueriesPerSec float64
	slaViolations    int
}

var (
	metricsOnce    sync.Once
	processMetrics *Metrics
)

// NewMetrics returns the process-wide Metrics: the first call registers
// every gauge/counter against the default registry, later calls return
// that same value instead of registering duplicates.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() { processMetrics = newMetrics() })
	return processMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		AnomaliesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "anomalies_total",
			Help: "Anomalies detected, by tenant/equipment/kind/severity.",
		}, []string{"tenant", "equipment", "kind", "severity"}),
		SeverityScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "anomaly_severity_score",
			Help: "Most recent anomaly severity rank, by tenant/equipment.",
		}, []string{"tenant", "equipment"}),
		MetricValue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "anomaly_metric_value",
			Help: "Observed value at time of anomaly, by tenant/equipment/threshold.",
		}, []string{"tenant", "equipment", "threshold"}),
		AlertChannelTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alert_channel_dispatch_total",
			Help: "Alert dispatch attempts, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		TenantUsageTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tenant_usage_total",
			Help: "Requests serviced, by tenant.",
		}, []string{"tenant"}),
		FanoutTierTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_fanout_tier_total",
			Help: "Storage fan-out attempts, by tier and outcome.",
		}, []string{"tier", "outcome"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Ingestion request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		TenantDailyVolumeGB: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tenant_daily_data_volume_gb",
			Help: "Rolling daily data volume per tenant, in GB.",
		}, []string{"tenant"}),
		TenantAvgQueriesPerSec: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tenant_avg_queries_per_second",
			Help: "Rolling average queries/sec per tenant.",
		}, []string{"tenant"}),
		TenantSLAViolationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tenant_sla_violation_total",
			Help: "SLA violations recorded per tenant.",
		}, []string{"tenant"}),
		usage: make(map[string]*tenantUsage),
	}
}

// RecordDailyVolumeGB updates the rolling daily-volume gauge for a
// tenant, feeding both Prometheus and the Data-Plane Selector's
// promotion check.
func (m *Metrics) RecordDailyVolumeGB(tenantID string, gb float64) {
	m.TenantDailyVolumeGB.WithLabelValues(tenantID).Set(gb)
	m.usageMu.Lock()
	defer m.usageMu.Unlock()
	m.tenantUsageLocked(tenantID).dailyVolumeGB = gb
}

// RecordAvgQueriesPerSec updates the rolling QPS gauge for a tenant.
func (m *Metrics) RecordAvgQueriesPerSec(tenantID string, qps float64) {
	m.TenantAvgQueriesPerSec.WithLabelValues(tenantID).Set(qps)
	m.usageMu.Lock()
	defer m.usageMu.Unlock()
	m.tenantUsageLocked(tenantID).avgQueriesPerSec = qps
}

// RecordSLAViolation increments the SLA-violation counter for a tenant.
func (m *Metrics) RecordSLAViolation(tenantID string) {
	m.TenantSLAViolationTotal.WithLabelValues(tenantID).Inc()
	m.usageMu.Lock()
	defer m.usageMu.Unlock()
	m.tenantUsageLocked(tenantID).slaViolations++
}

func (m *Metrics) tenantUsageLocked(tenantID string) *tenantUsage {
	u, ok := m.usage[tenantID]
	if !ok {
		u = &tenantUsage{}
		m.usage[tenantID] = u
	}
	return u
}

// DailyVolumeGB implements dataplane.UsageMetrics.
func (m *Metrics) DailyVolumeGB(tenantID string) float64 {
	m.usageMu.RLock()
	defer m.usageMu.RUnlock()
	if u, ok := m.usage[tenantID]; ok {
		return u.dailyVolumeGB
	}
	return 0
}

// AvgQueriesPerSec implements dataplane.UsageMetrics.
func (m *Metrics) AvgQueriesPerSec(tenantID string) float64 {
	m.usageMu.RLock()
	defer m.usageMu.RUnlock()
	if u, ok := m.usage[tenantID]; ok {
		return u.avgQueriesPerSec
	}
	return 0
}

// RecentSLAViolations implements dataplane.UsageMetrics.
func (m *Metrics) RecentSLAViolations(tenantID string) int {
	m.usageMu.RLock()
	defer m.usageMu.RUnlock()
	if u, ok := m.usage[tenantID]; ok {
		return u.slaViolations
	}
	return 0
}
