package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheTTL_DefaultsWhenUnset(t *testing.T) {
	c := Config{}
	assert.Equal(t, 300*time.Second, c.CacheTTL())
}

func TestCacheTTL_HonorsConfiguredValue(t *testing.T) {
	c := Config{Tenant: TenantDirectoryConfig{CacheTTLSeconds: 60}}
	assert.Equal(t, 60*time.Second, c.CacheTTL())
}

func TestRequireTLS(t *testing.T) {
	assert.True(t, Config{Environment: "production"}.RequireTLS())
	assert.True(t, Config{Environment: "staging"}.RequireTLS())
	assert.False(t, Config{Environment: "development"}.RequireTLS())
	assert.False(t, Config{Environment: ""}.RequireTLS())
}

func TestStoreConfig_DSN(t *testing.T) {
	s := StoreConfig{Host: "db.internal", Port: 5432, DB: "warm", User: "svc", Password: "secret"}

	assert.Equal(t, "host=db.internal port=5432 dbname=warm user=svc password=secret sslmode=disable", s.DSN())
}
