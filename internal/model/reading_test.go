package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMissingFields(t *testing.T) {
	assert.Equal(t, []string{"equipment_id", "timestamp"}, SensorReading{}.MissingFields())
	assert.Equal(t, []string{"timestamp"}, SensorReading{EquipmentID: "eq-1"}.MissingFields())
	assert.Empty(t, SensorReading{EquipmentID: "eq-1", Timestamp: time.Now()}.MissingFields())
}

func TestEnrich_StampsSourceAndAnomalyFlag(t *testing.T) {
	r := SensorReading{EquipmentID: "eq-1", Timestamp: time.Now()}
	now := time.Now()

	r.Enrich(now, nil)
	assert.Equal(t, SourceHTTPIngest, r.Source)
	assert.False(t, r.HasAnomalies)

	r.Enrich(now, []Anomaly{{Kind: KindCriticalTemperature}})
	assert.True(t, r.HasAnomalies)
	assert.Len(t, r.Anomalies, 1)
}

func TestTenantContext_IsRegionRestricted(t *testing.T) {
	assert.True(t, TenantContext{ComplianceTags: []string{"region-restricted"}}.IsRegionRestricted())
	assert.False(t, TenantContext{ComplianceTags: []string{"gdpr"}}.IsRegionRestricted())
	assert.False(t, TenantContext{}.IsRegionRestricted())
}
