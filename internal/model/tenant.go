package model

import "time"

// DeploymentMode controls whether a tenant's data plane is dedicated or
// pooled with other tenants.
type DeploymentMode string

const (
	DeploymentIsolated DeploymentMode = "isolated"
	DeploymentShared   DeploymentMode = "shared"
	DeploymentMixed    DeploymentMode = "mixed"
)

// Tier is the tenant's subscription level.
type Tier string

const (
	TierBasic        Tier = "basic"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// DataConfig is the tenant's hot/warm store configuration.
type DataConfig struct {
	ConnectionString   string `json:"connection_string,omitempty"`
	RowLevelSecurity   bool   `json:"row_level_security"`
	MaxPoolConnections int    `json:"max_pool_connections"`
}

// ObjectConfig is the tenant's cold-tier object store configuration.
type ObjectConfig struct {
	DedicatedBucket   string `json:"dedicated_bucket,omitempty"`
	EncryptionKeyRef  string `json:"encryption_key_ref,omitempty"`
	RetentionPolicy   string `json:"retention_policy,omitempty"`
}

// EscalationRule maps a severity to a delay and the channels to notify.
type EscalationRule struct {
	Severity   Severity `json:"severity"`
	DelayMins  int      `json:"delay_minutes"`
	Channels   []string `json:"channels"`
}

// AlertConfig is the tenant's notification routing configuration.
type AlertConfig struct {
	NotificationTopics []string         `json:"notification_topics"`
	WebhookURLs        []string         `json:"webhook_urls"`
	EscalationRules    []EscalationRule `json:"escalation_rules"`
}

// FeatureConfig gates tenant-tier features and usage limits.
type FeatureConfig struct {
	AdvancedAnalytics  bool `json:"advanced_analytics"`
	CustomDashboards   bool `json:"custom_dashboards"`
	APIRateLimit       int  `json:"api_rate_limit"` // requests/hour
	MaxConcurrentUsers int  `json:"max_concurrent_users"`
}

// TenantContext is the routing and policy record resolved for one request.
type TenantContext struct {
	TenantID       string         `json:"tenant_id"`
	DisplayName    string         `json:"display_name"`
	DeploymentMode DeploymentMode `json:"deployment_mode"`
	DataRegion     string         `json:"data_region"`
	Tier           Tier           `json:"tier"`
	ComplianceTags []string       `json:"compliance_tags"`
	MaxEquipment   int            `json:"max_equipment"`
	RetentionDays  int            `json:"retention_days"`
	CreatedAt      time.Time      `json:"created_at"`

	Data    DataConfig    `json:"data"`
	Object  ObjectConfig  `json:"object"`
	Alert   AlertConfig   `json:"alert"`
	Feature FeatureConfig `json:"feature"`
}

// IsRegionRestricted reports whether the tenant carries a
// "region-restricted" compliance tag.
func (t TenantContext) IsRegionRestricted() bool {
	for _, tag := range t.ComplianceTags {
		if tag == "region-restricted" {
			return true
		}
	}
	return false
}
