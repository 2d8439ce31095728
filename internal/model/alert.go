package model

import "time"

// Alert is a notification artifact produced from an anomaly of severity
// >= high. The ingestion path never mutates it after creation.
type Alert struct {
	AlertID             string      `json:"alert_id"`
	EquipmentID         string      `json:"equipment_id"`
	TenantID            string      `json:"tenant_id"`
	Kind                AnomalyKind `json:"kind"`
	Severity            Severity    `json:"severity"`
	Message             string      `json:"message"`
	Timestamp           time.Time   `json:"timestamp"`
	Acknowledged        bool        `json:"acknowledged"`
	Resolved            bool        `json:"resolved"`
	ProcessingLatencyMs int64       `json:"processing_latency_ms"`
}

// WireMessage is the JSON shape published to the alert topics (§6).
type WireMessage struct {
	AlertID             string      `json:"alert_id"`
	EquipmentID         string      `json:"equipment_id"`
	Kind                AnomalyKind `json:"kind"`
	Severity            Severity    `json:"severity"`
	Message             string      `json:"message"`
	Timestamp           time.Time   `json:"timestamp"`
	ProcessingLatencyMs int64       `json:"processing_latency_ms"`
	PublishedAtEpochMs  int64       `json:"published_at"`
}

// ToWireMessage converts an Alert to its bus representation.
func (a Alert) ToWireMessage(publishedAt time.Time) WireMessage {
	return WireMessage{
		AlertID:             a.AlertID,
		EquipmentID:         a.EquipmentID,
		Kind:                a.Kind,
		Severity:            a.Severity,
		Message:             a.Message,
		Timestamp:           a.Timestamp,
		ProcessingLatencyMs: a.ProcessingLatencyMs,
		PublishedAtEpochMs:  publishedAt.UnixMilli(),
	}
}

// RecommendedActions is the static kind -> actions map the notification
// body's "recommended-action block" is derived from.
var RecommendedActions = map[AnomalyKind][]string{
	KindCriticalTemperature: {"Initiate emergency shutdown", "Dispatch on-call technician", "Check cooling system"},
	KindHighTemperature:     {"Inspect cooling system", "Reduce load if possible"},
	KindHighVibration:       {"Schedule bearing inspection", "Check mounting bolts"},
	KindCriticalVibration:   {"Stop equipment immediately", "Dispatch maintenance team"},
	KindAbnormalPressure:    {"Inspect pressure relief valve", "Check for blockages"},
	KindCriticalPressure:    {"Initiate emergency shutdown", "Evacuate nearby personnel"},
	KindPowerSpike:          {"Check electrical connections", "Inspect motor load"},
	KindEquipmentOffline:    {"Verify network connectivity", "Dispatch field technician"},
}
