package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

func reading(temp, vib, pressure float64) *model.SensorReading {
	return &model.SensorReading{
		EquipmentID: "eq-1",
		Timestamp:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Temperature: &temp,
		Vibration:   &vib,
		Pressure:    &pressure,
	}
}

func TestContentHash_DeterministicForIdenticalReadings(t *testing.T) {
	r1 := reading(90, 1.5, 300)
	r2 := reading(90, 1.5, 300)

	assert.Equal(t, contentHash(r1), contentHash(r2))
}

func TestContentHash_DiffersOnValueChange(t *testing.T) {
	r1 := reading(90, 1.5, 300)
	r2 := reading(91, 1.5, 300)

	assert.NotEqual(t, contentHash(r1), contentHash(r2))
}

func TestContentHash_HandlesNilMetrics(t *testing.T) {
	r := &model.SensorReading{EquipmentID: "eq-1", Timestamp: time.Now()}

	assert.NotPanics(t, func() { contentHash(r) })
}
