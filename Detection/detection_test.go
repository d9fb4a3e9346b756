package Detection

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Tempus/Models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := Models.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func createTenant(t *testing.T, db *gorm.DB, timezone string) *Models.Tenant {
	t.Helper()
	tenant := Models.Tenant{Name: "Acme", Timezone: timezone, IsActive: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("creating tenant: %v", err)
	}
	return &tenant
}

func createEmployee(t *testing.T, db *gorm.DB, tenantID uint, first, last string) *Models.Employee {
	t.Helper()
	employee := Models.Employee{TenantID: tenantID, FirstName: first, LastName: last, IsActive: true}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("creating employee: %v", err)
	}
	return &employee
}

func createPublishedShift(t *testing.T, db *gorm.DB, tenantID, employeeID uint, day time.Time, start, end string, night bool) {
	t.Helper()
	shift := Models.ShiftTemplate{
		TenantID:     tenantID,
		Name:         start + "-" + end,
		StartTime:    start,
		EndTime:      end,
		IsNightShift: night,
	}
	if err := db.Create(&shift).Error; err != nil {
		t.Fatalf("creating shift: %v", err)
	}
	assignment := Models.ScheduleAssignment{
		TenantID:   tenantID,
		EmployeeID: employeeID,
		ShiftID:    shift.ID,
		Date:       day,
		Status:     Models.AssignmentPublished,
	}
	if err := db.Create(&assignment).Error; err != nil {
		t.Fatalf("creating assignment: %v", err)
	}
}

func createEvent(t *testing.T, db *gorm.DB, tenantID, employeeID uint, kind Models.ClockEventKind, at time.Time) *Models.ClockEvent {
	t.Helper()
	event := Models.ClockEvent{
		TenantID:   tenantID,
		EmployeeID: employeeID,
		Kind:       kind,
		Timestamp:  at,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("creating clock event: %v", err)
	}
	return &event
}

func reload(t *testing.T, db *gorm.DB, event *Models.ClockEvent) *Models.ClockEvent {
	t.Helper()
	var fresh Models.ClockEvent
	if err := db.First(&fresh, event.ID).Error; err != nil {
		t.Fatalf("reloading event %d: %v", event.ID, err)
	}
	return &fresh
}
