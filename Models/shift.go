package Models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ShiftTemplate is a reusable work pattern. Start and end are wall-clock
// times of day ("HH:MM"), no date attached; an end at or before the start
// means the shift runs past midnight.
type ShiftTemplate struct {
	gorm.Model
	TenantID     uint   `json:"tenant_id" gorm:"index"`
	Name         string `json:"name"`
	StartTime    string `json:"start_time"` // "08:00"
	EndTime      string `json:"end_time"`   // "17:00"
	BreakMinutes int    `json:"break_minutes"`
	IsNightShift bool   `json:"is_night_shift"`
}

// Assignment publication status
const (
	AssignmentDraft     = "DRAFT"
	AssignmentPublished = "PUBLISHED"
)

// ScheduleAssignment binds an employee to a ShiftTemplate on one calendar
// date. Date is stored as UTC midnight of the tenant-local day. Several
// assignments may exist for the same employee/date (swaps, double booking);
// the window resolver disambiguates.
type ScheduleAssignment struct {
	gorm.Model
	TenantID   uint      `json:"tenant_id" gorm:"index"`
	EmployeeID uint      `json:"employee_id" gorm:"index"`
	ShiftID    uint      `json:"shift_id"`
	SiteID     *uint     `json:"site_id"`
	Date       time.Time `json:"date" gorm:"index"`
	Status     string    `json:"status" gorm:"default:DRAFT"`

	// Optional per-assignment overrides of the template times ("HH:MM")
	StartOverride string `json:"start_override"`
	EndOverride   string `json:"end_override"`

	Employee *Employee      `json:"employee,omitempty"`
	Shift    *ShiftTemplate `json:"shift,omitempty" gorm:"foreignKey:ShiftID"`
}

// EffectiveStart returns the assignment's start time taking the override
// into account.
func (a *ScheduleAssignment) EffectiveStart() string {
	if a.StartOverride != "" {
		return a.StartOverride
	}
	if a.Shift != nil {
		return a.Shift.StartTime
	}
	return ""
}

func (a *ScheduleAssignment) EffectiveEnd() string {
	if a.EndOverride != "" {
		return a.EndOverride
	}
	if a.Shift != nil {
		return a.Shift.EndTime
	}
	return ""
}

// ParseMinutesOfDay converts "HH:MM" into minutes since local midnight.
func ParseMinutesOfDay(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("time of day %q out of range", value)
	}
	return hours*60 + minutes, nil
}

// DayKey normalizes an instant to the UTC-midnight key of its calendar day
// in the given location. Assignment dates are stored with the same key so
// lookups are plain equality.
func DayKey(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
