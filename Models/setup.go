package Models

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the database and runs migrations. MySQL is used when
// DB_HOST is configured, otherwise a local sqlite file so the service
// runs out of the box in development.
func Connect() {
	var connection *gorm.DB
	var err error

	if host := os.Getenv("DB_HOST"); host != "" {
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			host,
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
		connection, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	} else {
		connection, err = gorm.Open(sqlite.Open("database.db"), &gorm.Config{})
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	DB = connection
	if err := Migrate(DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

// Migrate runs AutoMigrate in dependency order. Also used by tests
// against an in-memory database.
func Migrate(db *gorm.DB) error {
	// 1. Base reference data with no foreign keys
	if err := db.AutoMigrate(
		&Tenant{},
		&TenantSettings{},
		&User{},
		&Site{},
		&ShiftTemplate{},
	); err != nil {
		return err
	}

	// 2. Directory data depending on the above
	if err := db.AutoMigrate(
		&Department{},
		&Employee{},
		&Device{},
	); err != nil {
		return err
	}

	// 3. Operational records
	return db.AutoMigrate(
		&ScheduleAssignment{},
		&ClockEvent{},
		&NotificationLog{},
		&NotificationTemplate{},
	)
}

// ActiveTenants lists tenants the batch jobs should process.
func ActiveTenants(db *gorm.DB) ([]Tenant, error) {
	var tenants []Tenant
	if err := db.Where("is_active = ?", true).Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}
