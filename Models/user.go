package Models

import (
	"gorm.io/gorm"
)

// User is an API account for the admin dashboard. Permission levels:
// 1 viewer, 2 supervisor, 3 admin.
type User struct {
	gorm.Model
	Name       string `json:"name"`
	Email      string `json:"email" gorm:"uniqueIndex"`
	Password   []byte `json:"-"`
	Permission int    `json:"permission"`
	TenantID   *uint  `json:"tenant_id"`
}
