// Package config loads process configuration the way the teacher's
// internal/config package does (viper, SetConfigName/AddConfigPath/
// AutomaticEnv, defaults on a missing file) generalized to the full
// environment surface of spec.md §6 plus the anomaly threshold bands
// and tenant-directory settings the expanded spec needs.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ThresholdBand is one metric's normal/high/critical configuration.
// Mirrors the teacher's Rule (Min/Max) but adds the high/critical split
// spec.md §4.3 requires.
type ThresholdBand struct {
	NormalMin float64 `mapstructure:"normal_min"`
	NormalMax float64 `mapstructure:"normal_max"`
	High      float64 `mapstructure:"high"`
	Critical  float64 `mapstructure:"critical"`
}

// AnomalyConfig holds every metric's threshold band plus the two
// supplemented-kind parameters (power-spike, equipment-offline).
type AnomalyConfig struct {
	Temperature         ThresholdBand `mapstructure:"temperature"`
	Vibration           ThresholdBand `mapstructure:"vibration"`
	Pressure            ThresholdBand `mapstructure:"pressure"`
	PowerSpikeRatio     float64       `mapstructure:"power_spike_ratio"`
	OfflineAfterSeconds int           `mapstructure:"offline_after_seconds"`
}

// StoreConfig is connectivity for one relational tier (hot or warm).
type StoreConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       string `mapstructure:"db"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN renders a libpq-style connection string.
func (s StoreConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		s.Host, s.Port, s.DB, s.User, s.Password)
}

// ServerConfig is the HTTP listener configuration. The teacher's
// two-server split (data ingestion vs UI/websocket) is kept: the UI
// port now serves the websocket alert sink instead of the dashboard.
type ServerConfig struct {
	DataPort int `mapstructure:"data_port"`
	AlertPort int `mapstructure:"alert_port"`
}

// TenantDirectoryConfig configures the tenant cache and subdomain
// resolution. Per-tenant rate limits come from each tenant's
// model.FeatureConfig.APIRateLimit, not from here.
type TenantDirectoryConfig struct {
	CacheTTLSeconds   int    `mapstructure:"cache_ttl_seconds"`
	RedisAddr         string `mapstructure:"redis_addr"`
	PlatformDomain    string `mapstructure:"platform_domain"`
}

// Config is the full process configuration, per spec.md §6's enumerated
// environment surface.
type Config struct {
	Region string `mapstructure:"region"`

	Server  ServerConfig  `mapstructure:"server"`
	Anomaly AnomalyConfig `mapstructure:"anomaly"`
	Tenant  TenantDirectoryConfig `mapstructure:"tenant"`

	HotStore  StoreConfig `mapstructure:"hot_store"`
	WarmStore StoreConfig `mapstructure:"warm_store"`

	SharedObjectBucket     string `mapstructure:"shared_object_bucket"`
	SharedConnectionString string `mapstructure:"shared_connection_string"`

	StreamBrokers                 []string `mapstructure:"stream_brokers"`
	PriorityAlertTopicIdentifier string   `mapstructure:"priority_alert_topic_identifier"`
	DashboardURL                  string   `mapstructure:"dashboard_url"`
	Environment                   string   `mapstructure:"environment"`
}

// RequireTLS reports whether the environment is production or staging.
// The stream publisher does not read it: its Kafka writers are built
// without TLS in every environment.
func (c Config) RequireTLS() bool {
	return c.Environment == "production" || c.Environment == "staging"
}

// CacheTTL returns the tenant cache entry lifetime.
func (c Config) CacheTTL() time.Duration {
	if c.Tenant.CacheTTLSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Tenant.CacheTTLSeconds) * time.Second
}

// Load reads configuration from a directory of config.yaml (if present),
// a local .env (if present), and the environment, returning a
// constructed Config instead of writing to a package-level variable —
// callers build one Runtime per Config rather than reading globals
// (REDESIGN FLAGS: "Pattern: global mutable caches and pools").
func Load(path string, logger *slog.Logger) (*Config, error) {
	_ = godotenv.Load(".env") // optional local override; absence is not an error

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("config file not found, using defaults and environment", slog.String("error", err.Error()))
		setDefaults()
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	logger.Info("configuration loaded", slog.String("region", cfg.Region), slog.String("environment", cfg.Environment))
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.data_port", 8080)
	viper.SetDefault("server.alert_port", 8081)

	viper.SetDefault("anomaly.temperature.normal_min", 0.0)
	viper.SetDefault("anomaly.temperature.normal_max", 150.0)
	viper.SetDefault("anomaly.temperature.high", 150.0)
	viper.SetDefault("anomaly.temperature.critical", 180.0)

	viper.SetDefault("anomaly.vibration.normal_min", 0.0)
	viper.SetDefault("anomaly.vibration.normal_max", 2.0)
	viper.SetDefault("anomaly.vibration.high", 2.0)
	viper.SetDefault("anomaly.vibration.critical", 5.0)

	viper.SetDefault("anomaly.pressure.normal_min", 50.0)
	viper.SetDefault("anomaly.pressure.normal_max", 500.0)
	viper.SetDefault("anomaly.pressure.high", 500.0)
	viper.SetDefault("anomaly.pressure.critical", 800.0)

	viper.SetDefault("anomaly.power_spike_ratio", 1.5)
	viper.SetDefault("anomaly.offline_after_seconds", 3600)

	viper.SetDefault("tenant.cache_ttl_seconds", 300)
	viper.SetDefault("tenant.redis_addr", "localhost:6379")
	viper.SetDefault("tenant.platform_domain", "platform")

	viper.SetDefault("environment", "development")
}
