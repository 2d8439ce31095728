package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manufacturing-platform/telemetry-gateway/internal/config"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

func testConfig() config.AnomalyConfig {
	return config.AnomalyConfig{
		Temperature: config.ThresholdBand{NormalMin: 0, NormalMax: 150, High: 150, Critical: 180},
		Vibration:   config.ThresholdBand{NormalMin: 0, NormalMax: 2, High: 2, Critical: 5},
		Pressure:    config.ThresholdBand{NormalMin: 50, NormalMax: 500, High: 500, Critical: 800},
	}
}

func ptr(v float64) *float64 { return &v }

func TestDetect_ScenariosFromSpec(t *testing.T) {
	d := NewDetector(testConfig())
	now := time.Now()

	tests := []struct {
		name          string
		reading       model.SensorReading
		wantKinds     []model.AnomalyKind
		wantSeverity  model.Severity
	}{
		{
			name:         "critical temperature",
			reading:      model.SensorReading{EquipmentID: "eq-1", Timestamp: now, Temperature: ptr(195)},
			wantKinds:    []model.AnomalyKind{model.KindCriticalTemperature},
			wantSeverity: model.SeverityCritical,
		},
		{
			name:         "high temperature",
			reading:      model.SensorReading{EquipmentID: "eq-1", Timestamp: now, Temperature: ptr(165)},
			wantKinds:    []model.AnomalyKind{model.KindHighTemperature},
			wantSeverity: model.SeverityHigh,
		},
		{
			name:      "all within normal band",
			reading:   model.SensorReading{EquipmentID: "eq-1", Timestamp: now, Temperature: ptr(75), Vibration: ptr(1.2), Pressure: ptr(250)},
			wantKinds: nil,
		},
		{
			name:         "low temperature is medium severity",
			reading:      model.SensorReading{EquipmentID: "eq-1", Timestamp: now, Temperature: ptr(-15)},
			wantKinds:    []model.AnomalyKind{model.KindHighTemperature},
			wantSeverity: model.SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(context.Background(), &tt.reading, priorStatus{})
			if tt.wantKinds == nil {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, len(tt.wantKinds))
			for i, k := range tt.wantKinds {
				assert.Equal(t, k, got[i].Kind)
				assert.Equal(t, tt.wantSeverity, got[i].Severity)
			}
		})
	}
}

func TestDetect_MultipleCriticalMetrics(t *testing.T) {
	d := NewDetector(testConfig())
	r := model.SensorReading{
		EquipmentID: "eq-1",
		Timestamp:   time.Now(),
		Temperature: ptr(205),
		Vibration:   ptr(8.2),
		Pressure:    ptr(1150),
	}

	got := d.Detect(context.Background(), &r, priorStatus{})

	require.Len(t, got, 3)
	for _, a := range got {
		assert.Equal(t, model.SeverityCritical, a.Severity)
	}
}

func TestDetect_EquipmentOffline(t *testing.T) {
	cfg := testConfig()
	cfg.OfflineAfterSeconds = 60
	d := NewDetector(cfg)

	now := time.Now()
	r := model.SensorReading{EquipmentID: "eq-1", Timestamp: now}
	prior := PriorStatus(now.Add(-2*time.Minute), true)

	got := d.Detect(context.Background(), &r, prior)

	require.Len(t, got, 1)
	assert.Equal(t, model.KindEquipmentOffline, got[0].Kind)
	assert.Equal(t, model.SeverityHigh, got[0].Severity)
}

func TestDetect_NoOfflineWithoutPrior(t *testing.T) {
	cfg := testConfig()
	cfg.OfflineAfterSeconds = 60
	d := NewDetector(cfg)

	r := model.SensorReading{EquipmentID: "eq-1", Timestamp: time.Now()}
	got := d.Detect(context.Background(), &r, priorStatus{})

	assert.Empty(t, got)
}

func TestDetect_PowerSpike(t *testing.T) {
	cfg := testConfig()
	cfg.PowerSpikeRatio = 1.5
	d := NewDetector(cfg)

	r := model.SensorReading{
		EquipmentID:      "eq-1",
		Timestamp:        time.Now(),
		PowerConsumption: ptr(200),
		CustomMetrics:    map[string]interface{}{"power_baseline": 100.0},
	}

	got := d.Detect(context.Background(), &r, priorStatus{})

	require.Len(t, got, 1)
	assert.Equal(t, model.KindPowerSpike, got[0].Kind)
}

func TestDetect_NilMetricsSkipped(t *testing.T) {
	d := NewDetector(testConfig())
	r := model.SensorReading{EquipmentID: "eq-1", Timestamp: time.Now()}

	got := d.Detect(context.Background(), &r, priorStatus{})

	assert.Empty(t, got)
}

// TestSeverity_AtLeast checks the total order the dispatcher's
// severity filter relies on (spec.md §4.7 step 6: dispatch only >= high).
func TestSeverity_AtLeast(t *testing.T) {
	assert.True(t, model.SeverityCritical.AtLeast(model.SeverityHigh))
	assert.True(t, model.SeverityHigh.AtLeast(model.SeverityHigh))
	assert.False(t, model.SeverityMedium.AtLeast(model.SeverityHigh))
	assert.False(t, model.SeverityLow.AtLeast(model.SeverityMedium))
}
