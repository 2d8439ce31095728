// Package storage generalizes the teacher's MemoryStore (a 100-entry
// ring buffer, internal/storage/memory.go in Traxin77-Iot-gateway) into
// the three-tier persistence hierarchy of spec.md §4.5. The ring buffer
// itself survives, adapted, as the Query Surface's recent-reading cache
// (cache.go).
package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spaolacci/murmur3"

	"github.com/manufacturing-platform/telemetry-gateway/internal/dataplane"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

// HotStore upserts raw readings into sensor_data_raw.
type HotStore struct {
	initOnce sync.Once
}

// NewHotStore builds a HotStore. Hypertable/retention initialization
// happens lazily, once per process, on the first Put call.
func NewHotStore() *HotStore {
	return &HotStore{}
}

func (h *HotStore) ensureSchema(ctx context.Context, pool *dataplane.SessionScopedPool) {
	h.initOnce.Do(func() {
		_ = pool.WithTx(ctx, func(tx pgx.Tx) error {
			_, _ = tx.Exec(ctx, `SELECT create_hypertable('sensor_data_raw', 'time', if_not_exists => TRUE)`)
			_, _ = tx.Exec(ctx, `SELECT add_retention_policy('sensor_data_raw', INTERVAL '90 days', if_not_exists => TRUE)`)
			return nil
		})
	})
}

// Put upserts one reading, keyed by (time, equipment_id), with a
// murmur3 content hash over the measurement fields for idempotent
// retry: a reading resubmitted with identical values is a no-op update
// rather than a duplicate row. tenantID is stamped on every row so a
// shared-mode deployment can satisfy row-level-security policy on the
// table (spec.md §8: "every hot- and warm-tier row ... carries the
// tenant_id of the resolving context").
func (h *HotStore) Put(ctx context.Context, pool *dataplane.SessionScopedPool, tenantID string, r *model.SensorReading) error {
	h.ensureSchema(ctx, pool)

	hash := contentHash(r)

	return pool.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO sensor_data_raw
				(time, equipment_id, tenant_id, temperature, vibration, pressure, power_consumption, facility_id, line_id, data_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (time, equipment_id) DO UPDATE SET
				temperature = EXCLUDED.temperature,
				vibration = EXCLUDED.vibration,
				pressure = EXCLUDED.pressure,
				power_consumption = EXCLUDED.power_consumption,
				data_hash = EXCLUDED.data_hash
			WHERE sensor_data_raw.data_hash IS DISTINCT FROM EXCLUDED.data_hash`,
			r.Timestamp, r.EquipmentID, tenantID, r.Temperature, r.Vibration, r.Pressure, r.PowerConsumption,
			r.FacilityID, r.LineID, hash)
		if err != nil {
			return fmt.Errorf("upsert sensor_data_raw: %w", err)
		}
		return nil
	})
}

// HotReading is one row read back from sensor_data_raw for the Query
// Surface's recent-sensor-data operation.
type HotReading struct {
	Time             time.Time
	EquipmentID      string
	Temperature      *float64
	Vibration        *float64
	Pressure         *float64
	PowerConsumption *float64
	FacilityID       string
	LineID           string
}

// RecentByEquipment returns one equipment's rows since a cutoff time,
// newest first, capped at limit — spec.md §4.8's "recent sensor data
// for an equipment over the last N hours from the hot tier (cap 1000
// rows, descending time)". Run through pool.WithTx so a shared-mode
// pool has current_tenant_id set before the query executes, enforcing
// row-level-security instead of trusting equipment_id alone.
func (h *HotStore) RecentByEquipment(ctx context.Context, pool *dataplane.SessionScopedPool, equipmentID string, since time.Time, limit int) ([]HotReading, error) {
	var rows []HotReading
	err := pool.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Query(ctx, `
			SELECT time, equipment_id, temperature, vibration, pressure, power_consumption, facility_id, line_id
			FROM sensor_data_raw
			WHERE equipment_id = $1 AND time >= $2
			ORDER BY time DESC
			LIMIT $3`, equipmentID, since, limit)
		if err != nil {
			return fmt.Errorf("query sensor_data_raw: %w", err)
		}
		defer result.Close()
		for result.Next() {
			var row HotReading
			if err := result.Scan(&row.Time, &row.EquipmentID, &row.Temperature, &row.Vibration,
				&row.Pressure, &row.PowerConsumption, &row.FacilityID, &row.LineID); err != nil {
				return fmt.Errorf("scan sensor_data_raw row: %w", err)
			}
			rows = append(rows, row)
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func contentHash(r *model.SensorReading) uint64 {
	buf := make([]byte, 0, 64)
	buf = append(buf, r.EquipmentID...)
	buf = appendTimeBytes(buf, r.Timestamp.UnixNano())
	buf = appendFloatBytes(buf, r.Temperature)
	buf = appendFloatBytes(buf, r.Vibration)
	buf = appendFloatBytes(buf, r.Pressure)
	return murmur3.Sum64(buf)
}

func appendTimeBytes(buf []byte, nanos int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(nanos))
	return append(buf, b...)
}

func appendFloatBytes(buf []byte, v *float64) []byte {
	if v == nil {
		return append(buf, 0)
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(*v))
	return append(buf, b...)
}
