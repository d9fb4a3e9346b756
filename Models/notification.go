package Models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationLog proves a manager was emailed about one anomaly. The
// unique index on (tenant_id, clock_event_id) is the storage backstop;
// the notifier also checks for an existing row before sending because the
// send itself is the side effect being deduplicated.
type NotificationLog struct {
	gorm.Model
	TenantID     uint      `json:"tenant_id" gorm:"uniqueIndex:idx_notification_tenant_event"`
	ClockEventID uint      `json:"clock_event_id" gorm:"uniqueIndex:idx_notification_tenant_event"`
	EmployeeID   uint      `json:"employee_id" gorm:"index"`
	SessionDate  time.Time `json:"session_date"`
	Recipient    string    `json:"recipient"`
	Subject      string    `json:"subject"`
	Reference    string    `json:"reference" gorm:"size:36"`
	SentAt       time.Time `json:"sent_at"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if n.Reference == "" {
		n.Reference = uuid.NewString()
	}
	return nil
}

// NotificationTemplate is a tenant-editable mail template. Bodies use
// plain {{placeholder}} substitution, nothing executable.
type NotificationTemplate struct {
	gorm.Model
	TenantID uint   `json:"tenant_id" gorm:"index"`
	Code     string `json:"code" gorm:"index"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// GetActiveTemplate fetches the active template for a code, tenant-scoped.
func GetActiveTemplate(db *gorm.DB, tenantID uint, code string) (*NotificationTemplate, error) {
	var template NotificationTemplate
	err := db.Where("tenant_id = ? AND code = ? AND is_active = ?", tenantID, code, true).
		Order("id DESC").First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}
