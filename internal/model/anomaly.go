package model

import "time"

// AnomalyKind is the closed set of anomaly classifications the detector
// can emit.
type AnomalyKind string

const (
	KindCriticalTemperature AnomalyKind = "critical-temperature"
	KindHighTemperature     AnomalyKind = "high-temperature"
	KindHighVibration       AnomalyKind = "high-vibration"
	KindCriticalVibration   AnomalyKind = "critical-vibration"
	KindAbnormalPressure    AnomalyKind = "abnormal-pressure"
	KindCriticalPressure    AnomalyKind = "critical-pressure"
	KindPowerSpike          AnomalyKind = "power-spike"
	KindEquipmentOffline    AnomalyKind = "equipment-offline"
)

// Severity has a total order: low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is ranked at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// Anomaly is a band-violation record derived from a single reading.
type Anomaly struct {
	Kind        AnomalyKind `json:"kind"`
	EquipmentID string      `json:"equipment_id"`
	TenantID    string      `json:"tenant_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Value       float64     `json:"value"`
	Threshold   float64     `json:"threshold"`
	Severity    Severity    `json:"severity"`
	Message     string      `json:"message"`
}
