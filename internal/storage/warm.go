package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/manufacturing-platform/telemetry-gateway/internal/dataplane"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

// EquipmentStatus is the warm-tier row: one per equipment, overwritten
// on every reading, per the schema in spec.md §6. Grounded on
// ringgieg-alert-spooler's and procodus-demo-app's gorm model style
// (tagged struct, one table).
type EquipmentStatus struct {
	EquipmentID        string `gorm:"primaryKey"`
	TenantID           string
	LastSeen           time.Time
	CurrentTemperature *float64
	CurrentVibration   *float64
	CurrentPressure    *float64
	Status             string
	FacilityID         string
	LineID             string
	UpdatedAt          time.Time
}

// TableName pins the table name rather than letting gorm pluralize it.
func (EquipmentStatus) TableName() string { return "equipment_status" }

const (
	statusNormal   = "normal"
	statusAnomaly  = "anomaly"
)

// WarmStore upserts current-status rows via gorm.
type WarmStore struct{}

// NewWarmStore builds a WarmStore.
func NewWarmStore() *WarmStore {
	return &WarmStore{}
}

func openGorm(pool *dataplane.SessionScopedPool) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool.Pool())}), &gorm.Config{})
}

// tenantScopeStatement reports the SET LOCAL statement a shared-tier
// pool needs run before any query, or apply=false for a dedicated pool
// that is already exclusive to one tenant and needs none. Factored out
// as a pure function so the RLS-scoping decision itself is unit
// testable without a live database.
func tenantScopeStatement(pool *dataplane.SessionScopedPool) (stmt string, tenantID string, apply bool) {
	if !pool.Shared() {
		return "", "", false
	}
	return "SET LOCAL app.current_tenant_id = ?", pool.TenantID(), true
}

// withSessionScopedGorm opens a gorm transaction over pool and, for a
// shared-tier pool, sets app.current_tenant_id before fn runs — inside
// the same transaction, so the setting cannot leak onto the connection
// after it is released back to the pool. This is warm.go's equivalent
// of dataplane.SessionScopedPool.WithTx, needed because gorm's query
// builder requires a *gorm.DB rather than a raw pgx.Tx (spec.md §4.2:
// the warm pool handle always carries RLS session state in shared
// mode).
func withSessionScopedGorm(ctx context.Context, pool *dataplane.SessionScopedPool, fn func(tx *gorm.DB) error) error {
	db, err := openGorm(pool)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if stmt, tenantID, apply := tenantScopeStatement(pool); apply {
			if err := tx.Exec(stmt, tenantID).Error; err != nil {
				return fmt.Errorf("set current_tenant_id: %w", err)
			}
		}
		return fn(tx)
	})
}

// PriorLastSeen returns the equipment's last-seen timestamp before this
// call, for the anomaly detector's equipment-offline check.
func (w *WarmStore) PriorLastSeen(ctx context.Context, pool *dataplane.SessionScopedPool, equipmentID string) (time.Time, bool, error) {
	var row EquipmentStatus
	found := false
	err := withSessionScopedGorm(ctx, pool, func(tx *gorm.DB) error {
		result := tx.Where("equipment_id = ?", equipmentID).First(&row)
		if result.Error != nil {
			if result.Error == gorm.ErrRecordNotFound {
				return nil
			}
			return result.Error
		}
		found = true
		return nil
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return row.LastSeen, found, nil
}

// Get returns the current-status row for one equipment.
func (w *WarmStore) Get(ctx context.Context, pool *dataplane.SessionScopedPool, equipmentID string) (EquipmentStatus, bool, error) {
	var row EquipmentStatus
	found := false
	err := withSessionScopedGorm(ctx, pool, func(tx *gorm.DB) error {
		result := tx.Where("equipment_id = ?", equipmentID).First(&row)
		if result.Error != nil {
			if result.Error == gorm.ErrRecordNotFound {
				return nil
			}
			return result.Error
		}
		found = true
		return nil
	})
	if err != nil {
		return EquipmentStatus{}, false, err
	}
	return row, found, nil
}

// statusForReading derives the warm-tier status column from a reading.
func statusForReading(r *model.SensorReading) string {
	if r.HasAnomalies {
		return statusAnomaly
	}
	return statusNormal
}

// Upsert writes the current-status row for one equipment, stamped with
// the resolving tenant_id (spec.md §8 invariant).
func (w *WarmStore) Upsert(ctx context.Context, pool *dataplane.SessionScopedPool, tenantID string, r *model.SensorReading) error {
	row := EquipmentStatus{
		EquipmentID:        r.EquipmentID,
		TenantID:           tenantID,
		LastSeen:           r.Timestamp,
		CurrentTemperature: r.Temperature,
		CurrentVibration:   r.Vibration,
		CurrentPressure:    r.Pressure,
		Status:             statusForReading(r),
		FacilityID:         r.FacilityID,
		LineID:             r.LineID,
		UpdatedAt:          time.Now(),
	}
	return withSessionScopedGorm(ctx, pool, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "equipment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tenant_id", "last_seen", "current_temperature", "current_vibration",
				"current_pressure", "status", "facility_id", "line_id", "updated_at",
			}),
		}).Create(&row).Error
	})
}

// List returns every equipment's current-status row, for the
// GET /equipment listing operation (spec.md §6).
func (w *WarmStore) List(ctx context.Context, pool *dataplane.SessionScopedPool, limit int) ([]EquipmentStatus, error) {
	var rows []EquipmentStatus
	err := withSessionScopedGorm(ctx, pool, func(tx *gorm.DB) error {
		return tx.Order("last_seen desc").Limit(limit).Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
