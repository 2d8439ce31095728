package dataplane

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

type fakeUsage struct {
	dailyVolumeGB    float64
	avgQueriesPerSec float64
	slaViolations    int
}

func (f fakeUsage) DailyVolumeGB(string) float64    { return f.dailyVolumeGB }
func (f fakeUsage) AvgQueriesPerSec(string) float64 { return f.avgQueriesPerSec }
func (f fakeUsage) RecentSLAViolations(string) int  { return f.slaViolations }

func TestShouldPromote_EnterpriseTierAlwaysPromotes(t *testing.T) {
	tenant := &model.TenantContext{TenantID: "acme", Tier: model.TierEnterprise}

	assert.True(t, shouldPromote(tenant, nil))
}

func TestShouldPromote_UsageThresholds(t *testing.T) {
	tests := []struct {
		name  string
		usage UsageMetrics
		want  bool
	}{
		{"below every threshold", fakeUsage{dailyVolumeGB: 10, avgQueriesPerSec: 5, slaViolations: 0}, false},
		{"daily volume exceeds threshold", fakeUsage{dailyVolumeGB: 150}, true},
		{"qps exceeds threshold", fakeUsage{avgQueriesPerSec: 60}, true},
		{"sla violations exceed threshold", fakeUsage{slaViolations: 6}, true},
		{"nil usage never promotes a basic tenant", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant := &model.TenantContext{TenantID: "acme", Tier: model.TierBasic}
			assert.Equal(t, tt.want, shouldPromote(tenant, tt.usage))
		})
	}
}

func TestSelector_Select_SharedModeUsesTenantPrefixedTopics(t *testing.T) {
	s := NewSelector(nil, nil, "shared-bucket", fakeUsage{})

	tenant := &model.TenantContext{TenantID: "acme", DeploymentMode: model.DeploymentShared}

	dp, err := s.Select(context.Background(), tenant)

	require.NoError(t, err)
	assert.Equal(t, "sensor-data-acme", dp.Streams.SensorData)
	assert.Equal(t, "alerts-acme", dp.Streams.Alerts)
	assert.Equal(t, sharedTopic, dp.Streams.Shared)
	assert.Equal(t, "shared-bucket", dp.ObjectStore.Bucket)
	assert.Equal(t, "tenants/acme/", dp.ObjectStore.Prefix)
}

func TestSelector_Select_IsolatedModeNotPromotedUsesSharedPool(t *testing.T) {
	s := NewSelector(nil, nil, "shared-bucket", fakeUsage{})

	tenant := &model.TenantContext{TenantID: "acme", Tier: model.TierBasic, DeploymentMode: model.DeploymentIsolated}

	dp, err := s.Select(context.Background(), tenant)

	require.NoError(t, err)
	assert.True(t, dp.HotPool.Shared())
	assert.Empty(t, dp.ObjectStore.Prefix)
	assert.Equal(t, "shared-bucket", dp.ObjectStore.Bucket)
}

func TestSelector_Select_IsolatedPromotedWithoutConnectionStringFails(t *testing.T) {
	s := NewSelector(nil, nil, "shared-bucket", fakeUsage{})

	tenant := &model.TenantContext{TenantID: "acme", Tier: model.TierEnterprise, DeploymentMode: model.DeploymentIsolated}

	_, err := s.Select(context.Background(), tenant)

	assert.Error(t, err)
}

func TestSelector_Select_IsolatedPromotedReusesDedicatedPool(t *testing.T) {
	s := NewSelector(nil, nil, "shared-bucket", fakeUsage{})
	calls := 0
	s.connectFn = func(ctx context.Context, connString string) (*pgxpool.Pool, error) {
		calls++
		return &pgxpool.Pool{}, nil
	}

	tenant := &model.TenantContext{
		TenantID:       "acme",
		Tier:           model.TierEnterprise,
		DeploymentMode: model.DeploymentIsolated,
		Data:           model.DataConfig{ConnectionString: "postgres://dedicated"},
	}

	_, err := s.Select(context.Background(), tenant)
	require.NoError(t, err)
	_, err = s.Select(context.Background(), tenant)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}
