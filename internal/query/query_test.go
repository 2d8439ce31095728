package query

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRange_DefaultsToThirtyDays(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/equipment/eq-1/metrics", nil)

	start, end := parseRange(r)

	assert.WithinDuration(t, time.Now(), end, time.Second)
	assert.WithinDuration(t, end.AddDate(0, 0, -defaultLookbackDays), start, time.Second)
}

func TestParseRange_HonorsExplicitBounds(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/equipment/eq-1/metrics?start_time=2026-01-01T00:00:00Z&end_time=2026-01-15T00:00:00Z", nil)

	start, end := parseRange(r)

	assert.Equal(t, "2026-01-01T00:00:00Z", start.Format(time.RFC3339))
	assert.Equal(t, "2026-01-15T00:00:00Z", end.Format(time.RFC3339))
}

func TestParseRange_IgnoresMalformedBounds(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/equipment/eq-1/metrics?start_time=not-a-date", nil)

	start, end := parseRange(r)

	assert.WithinDuration(t, end.AddDate(0, 0, -defaultLookbackDays), start, time.Second)
}
