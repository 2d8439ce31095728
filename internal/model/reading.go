// Package model holds the data types shared across the ingestion pipeline:
// readings, anomalies, alerts and the tenant routing record. It replaces the
// teacher's internal/data package (UniversalDataPoint's free-form metric bag)
// with the typed SensorReading the spec requires, carrying the same
// "enrichment added on ingest" idea forward.
package model

import "time"

// SensorReading is one telemetry sample from one piece of equipment.
type SensorReading struct {
	EquipmentID string    `json:"equipment_id" validate:"required"`
	Timestamp   time.Time `json:"timestamp" validate:"required"`

	Temperature      *float64 `json:"temperature,omitempty" validate:"omitempty,gte=-273,lte=1000"`
	Vibration        *float64 `json:"vibration,omitempty" validate:"omitempty,gte=0,lte=100"`
	Pressure         *float64 `json:"pressure,omitempty" validate:"omitempty,gte=0,lte=10000"`
	PowerConsumption *float64 `json:"power_consumption,omitempty" validate:"omitempty,gte=0"`

	FacilityID    string                 `json:"facility_id,omitempty"`
	LineID        string                 `json:"line_id,omitempty"`
	CustomMetrics map[string]interface{} `json:"custom_metrics,omitempty"`

	// Enrichment, set by the ingestion orchestrator.
	IngestionTimestamp time.Time `json:"ingestion_timestamp,omitempty"`
	Source             string    `json:"source,omitempty"`
	HasAnomalies       bool      `json:"has_anomalies"`
	Anomalies          []Anomaly `json:"anomalies,omitempty"`
}

// SourceHTTPIngest is the fixed literal source tag for the HTTP ingest path.
const SourceHTTPIngest = "http-ingest"

// MissingFields reports which of the two required identity fields are
// absent, for the orchestrator's 400 "details" array.
func (r SensorReading) MissingFields() []string {
	var missing []string
	if r.EquipmentID == "" {
		missing = append(missing, "equipment_id")
	}
	if r.Timestamp.IsZero() {
		missing = append(missing, "timestamp")
	}
	return missing
}

// Enrich stamps ingestion metadata and attaches detected anomalies.
func (r *SensorReading) Enrich(ingestedAt time.Time, anomalies []Anomaly) {
	r.IngestionTimestamp = ingestedAt
	r.Source = SourceHTTPIngest
	if len(anomalies) > 0 {
		r.HasAnomalies = true
		r.Anomalies = anomalies
	}
}
