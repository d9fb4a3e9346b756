package Models

import (
	"gorm.io/gorm"
)

// Tenant represents a company using the platform. Every other record
// belongs to exactly one tenant and queries must always filter on it.
type Tenant struct {
	gorm.Model
	Name     string `json:"name"`
	Timezone string `json:"timezone"` // IANA name, e.g. "Europe/Paris"
	IsActive bool   `json:"is_active" gorm:"default:true"`

	Settings *TenantSettings `json:"settings,omitempty"`
}

// TenantSettings holds the per-tenant tunables used by the detection and
// compliance jobs. Zero values mean "use the built-in default".
type TenantSettings struct {
	gorm.Model
	TenantID uint `json:"tenant_id" gorm:"uniqueIndex"`

	// Missing-checkout detection
	DetectionWindowHours int `json:"detection_window_hours"` // default 12
	NightCutoffHour      int `json:"night_cutoff_hour"`      // default 12 (noon next day)

	// Compliance thresholds (hours)
	WeeklyHoursWarning  float64 `json:"weekly_hours_warning"`
	WeeklyHoursCritical float64 `json:"weekly_hours_critical"`
	RestHoursWarning    float64 `json:"rest_hours_warning"`
	RestHoursCritical   float64 `json:"rest_hours_critical"`

	// Consecutive night shifts
	NightRunWarning  int `json:"night_run_warning"`
	NightRunCritical int `json:"night_run_critical"`

	// Slack channel for critical compliance findings, empty disables posting
	SlackChannelID string `json:"slack_channel_id"`
}

// GetSettings returns the tenant's settings row, or a zero-value row when
// none was ever saved so callers always get defaults applied downstream.
func GetSettings(db *gorm.DB, tenantID uint) TenantSettings {
	var settings TenantSettings
	if err := db.Where("tenant_id = ?", tenantID).First(&settings).Error; err != nil {
		return TenantSettings{TenantID: tenantID}
	}
	return settings
}
