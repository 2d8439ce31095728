package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatePartitionedPath_MatchesSpecScenarioOne(t *testing.T) {
	// spec scenario 1: normal reading, cold key prefix
	// "FAC_CHICAGO_01/PUMP_001/2025/11/23/10/" (relative to the
	// tenant's object_store_target prefix).
	at := time.Date(2025, 11, 23, 10, 30, 0, 0, time.UTC)

	path := datePartitionedPath("FAC_CHICAGO_01", "PUMP_001", at)

	assert.Equal(t, "FAC_CHICAGO_01/PUMP_001/2025/11/23/10", path)
}

func TestDatePartitionedPath_PadsSingleDigitFields(t *testing.T) {
	at := time.Date(2026, 1, 5, 3, 0, 0, 0, time.UTC)

	path := datePartitionedPath("FAC_A", "EQ_1", at)

	assert.Equal(t, "FAC_A/EQ_1/2026/01/05/03", path)
}

func TestErrorFilename_IsEquipmentIDDashEpochMillis(t *testing.T) {
	failedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	filename := errorFilename("eq-2", failedAt)

	assert.Equal(t, "eq-2-1767225600000.json", filename)
}
