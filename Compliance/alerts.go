package Compliance

import (
	"time"

	"Tempus/Models"
)

type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rule identifiers carried on alerts
const (
	RuleWeeklyHours = "WEEKLY_HOURS"
	RuleRestPeriod  = "REST_PERIOD"
	RuleNightShifts = "CONSECUTIVE_NIGHT_SHIFTS"
	RuleMinStaffing = "MINIMUM_STAFFING"
)

// Alert is an ephemeral finding, produced fresh on every evaluation and
// never persisted. Details carries the numeric basis so callers can
// re-derive the justification.
type Alert struct {
	Rule       string                 `json:"rule"`
	Severity   Severity               `json:"severity"`
	Message    string                 `json:"message"`
	EmployeeID *uint                  `json:"employee_id,omitempty"`
	Date       *time.Time             `json:"date,omitempty"`
	Details    map[string]interface{} `json:"details"`
}

// Thresholds are the labor-rule limits for one tenant, defaults per the
// local regulation with optional per-tenant overrides.
type Thresholds struct {
	WeeklyHoursWarning  float64
	WeeklyHoursCritical float64
	RestHoursWarning    float64
	RestHoursCritical   float64
	NightRunWarning     int
	NightRunCritical    int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		WeeklyHoursWarning:  44,
		WeeklyHoursCritical: 48,
		RestHoursWarning:    11,
		RestHoursCritical:   9,
		NightRunWarning:     3,
		NightRunCritical:    5,
	}
}

func ThresholdsFromSettings(settings Models.TenantSettings) Thresholds {
	th := DefaultThresholds()
	if settings.WeeklyHoursWarning > 0 {
		th.WeeklyHoursWarning = settings.WeeklyHoursWarning
	}
	if settings.WeeklyHoursCritical > 0 {
		th.WeeklyHoursCritical = settings.WeeklyHoursCritical
	}
	if settings.RestHoursWarning > 0 {
		th.RestHoursWarning = settings.RestHoursWarning
	}
	if settings.RestHoursCritical > 0 {
		th.RestHoursCritical = settings.RestHoursCritical
	}
	if settings.NightRunWarning > 0 {
		th.NightRunWarning = settings.NightRunWarning
	}
	if settings.NightRunCritical > 0 {
		th.NightRunCritical = settings.NightRunCritical
	}
	return th
}
