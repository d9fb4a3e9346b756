package Models

import (
	"time"

	"gorm.io/gorm"
)

type Site struct {
	gorm.Model
	TenantID uint   `json:"tenant_id" gorm:"index"`
	Name     string `json:"name"`
	Address  string `json:"address"`
}

// Department groups employees under a manager. The manager chain is how
// the notifier finds who to email about an employee's anomaly.
type Department struct {
	gorm.Model
	TenantID  uint      `json:"tenant_id" gorm:"index"`
	Name      string    `json:"name"`
	ManagerID *uint     `json:"manager_id"`
	Manager   *Employee `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
}

type Employee struct {
	gorm.Model
	TenantID     uint   `json:"tenant_id" gorm:"index"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	DepartmentID *uint  `json:"department_id"`
	SiteID       *uint  `json:"site_id"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`

	// Fallback pattern when no assignment is published for a day
	DefaultShiftID *uint `json:"default_shift_id"`

	Department   *Department    `json:"department,omitempty"`
	Site         *Site          `json:"site,omitempty"`
	DefaultShift *ShiftTemplate `json:"default_shift,omitempty" gorm:"foreignKey:DefaultShiftID"`
}

func (e *Employee) FullName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	return e.FirstName + " " + e.LastName
}

// Device is a punch terminal. LastSyncAt is maintained by the ingestion
// side; the classifier reads it as an offline proxy.
type Device struct {
	gorm.Model
	TenantID   uint       `json:"tenant_id" gorm:"index"`
	Name       string     `json:"name"`
	SiteID     *uint      `json:"site_id"`
	SerialNo   string     `json:"serial_no"`
	LastSyncAt *time.Time `json:"last_sync_at"`
}
