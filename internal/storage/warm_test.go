package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/manufacturing-platform/telemetry-gateway/internal/dataplane"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

func TestTenantScopeStatement_SharedPoolAppliesSetLocal(t *testing.T) {
	pool := dataplane.NewSharedPool(nil, "acme")

	stmt, tenantID, apply := tenantScopeStatement(pool)

	assert.True(t, apply)
	assert.Equal(t, "acme", tenantID)
	assert.Contains(t, stmt, "SET LOCAL app.current_tenant_id")
}

func TestTenantScopeStatement_DedicatedPoolSkipsSetLocal(t *testing.T) {
	pool := dataplane.NewDedicatedPool(nil)

	stmt, tenantID, apply := tenantScopeStatement(pool)

	assert.False(t, apply)
	assert.Empty(t, stmt)
	assert.Empty(t, tenantID)
}

func TestStatusForReading(t *testing.T) {
	assert.Equal(t, statusNormal, statusForReading(&model.SensorReading{}))
	assert.Equal(t, statusAnomaly, statusForReading(&model.SensorReading{HasAnomalies: true}))
}
