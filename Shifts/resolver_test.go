package Shifts

import (
	"fmt"
	"testing"
	"time"

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

func createShift(t *testing.T, db *gorm.DB, tenantID uint, name, start, end string, night bool) *Models.ShiftTemplate {
	t.Helper()
	shift := Models.ShiftTemplate{
		TenantID:     tenantID,
		Name:         name,
		StartTime:    start,
		EndTime:      end,
		IsNightShift: night,
	}
	if err := db.Create(&shift).Error; err != nil {
		t.Fatalf("creating shift template: %v", err)
	}
	return &shift
}

func createAssignment(t *testing.T, db *gorm.DB, employeeID uint, shift *Models.ShiftTemplate, day time.Time, status string) *Models.ScheduleAssignment {
	t.Helper()
	assignment := Models.ScheduleAssignment{
		TenantID:   shift.TenantID,
		EmployeeID: employeeID,
		ShiftID:    shift.ID,
		Date:       day,
		Status:     status,
	}
	if err := db.Create(&assignment).Error; err != nil {
		t.Fatalf("creating assignment: %v", err)
	}
	return &assignment
}

func TestResolveWindowSingleAssignment(t *testing.T) {
	db := newTestDB(t)
	employee := Models.Employee{TenantID: 1, FirstName: "Nora", LastName: "Diaz"}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("creating employee: %v", err)
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shift := createShift(t, db, 1, "Day", "08:00", "17:00", false)
	createAssignment(t, db, employee.ID, shift, day, Models.AssignmentPublished)

	window, err := ResolveWindow(db, time.UTC, employee.ID, day, nil)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if window == nil {
		t.Fatal("expected a window, got nil")
	}
	if window.StartMinutes != 8*60 || window.EndMinutes != 17*60 {
		t.Errorf("got window %d-%d, want 480-1020", window.StartMinutes, window.EndMinutes)
	}
	if window.IsNight {
		t.Error("day shift resolved as night shift")
	}
}

func TestResolveWindowDisambiguation(t *testing.T) {
	db := newTestDB(t)
	employee := Models.Employee{TenantID: 1, FirstName: "Omar", LastName: "Sy"}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("creating employee: %v", err)
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	early := createShift(t, db, 1, "Early", "06:00", "14:00", false)
	late := createShift(t, db, 1, "Late", "14:00", "22:00", false)
	createAssignment(t, db, employee.ID, early, day, Models.AssignmentPublished)
	createAssignment(t, db, employee.ID, late, day, Models.AssignmentPublished)

	cases := []struct {
		name      string
		punch     time.Time
		wantStart int
	}{
		{"punch near early start", time.Date(2026, 3, 2, 6, 10, 0, 0, time.UTC), 6 * 60},
		{"punch near late start", time.Date(2026, 3, 2, 13, 50, 0, 0, time.UTC), 14 * 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			window, err := ResolveWindow(db, time.UTC, employee.ID, day, &tc.punch)
			if err != nil {
				t.Fatalf("ResolveWindow: %v", err)
			}
			if window.StartMinutes != tc.wantStart {
				t.Errorf("got start %d, want %d", window.StartMinutes, tc.wantStart)
			}
		})
	}
}

func TestResolveWindowFallsBackToDefaultShift(t *testing.T) {
	db := newTestDB(t)
	night := createShift(t, db, 1, "Night", "22:00", "06:00", true)
	employee := Models.Employee{TenantID: 1, FirstName: "Lena", LastName: "Krause", DefaultShiftID: &night.ID}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("creating employee: %v", err)
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	window, err := ResolveWindow(db, time.UTC, employee.ID, day, nil)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if window == nil {
		t.Fatal("expected default-shift window, got nil")
	}
	if !window.IsNight || window.StartMinutes != 22*60 {
		t.Errorf("got window %+v, want night shift starting 1320", window)
	}
}

func TestResolveWindowNoScheduleNoDefault(t *testing.T) {
	db := newTestDB(t)
	employee := Models.Employee{TenantID: 1, FirstName: "Ben", LastName: "Okafor"}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("creating employee: %v", err)
	}

	window, err := ResolveWindow(db, time.UTC, employee.ID, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if window != nil {
		t.Errorf("expected nil window, got %+v", window)
	}
}

func TestResolveWindowIgnoresDraftAssignments(t *testing.T) {
	db := newTestDB(t)
	employee := Models.Employee{TenantID: 1, FirstName: "Ana", LastName: "Petrov"}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("creating employee: %v", err)
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shift := createShift(t, db, 1, "Day", "08:00", "17:00", false)
	createAssignment(t, db, employee.ID, shift, day, Models.AssignmentDraft)

	window, err := ResolveWindow(db, time.UTC, employee.ID, day, nil)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if window != nil {
		t.Errorf("draft assignment should not resolve, got %+v", window)
	}
}

func TestResolveWindowHonorsOverrides(t *testing.T) {
	db := newTestDB(t)
	employee := Models.Employee{TenantID: 1, FirstName: "Kim", LastName: "Lee"}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("creating employee: %v", err)
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shift := createShift(t, db, 1, "Day", "08:00", "17:00", false)
	assignment := createAssignment(t, db, employee.ID, shift, day, Models.AssignmentPublished)
	assignment.StartOverride = "09:30"
	assignment.EndOverride = "18:30"
	if err := db.Save(assignment).Error; err != nil {
		t.Fatalf("saving overrides: %v", err)
	}

	window, err := ResolveWindow(db, time.UTC, employee.ID, day, nil)
	if err != nil {
		t.Fatalf("ResolveWindow: %v", err)
	}
	if window.StartMinutes != 9*60+30 || window.EndMinutes != 18*60+30 {
		t.Errorf("got window %d-%d, want 570-1110", window.StartMinutes, window.EndMinutes)
	}
}

func TestTenantLocationFallsBackToUTC(t *testing.T) {
	if loc := TenantLocation("Not/AZone"); loc != time.UTC {
		t.Errorf("got %v, want UTC", loc)
	}
	if loc := TenantLocation(""); loc != time.UTC {
		t.Errorf("got %v, want UTC for empty name", loc)
	}
}

func TestLocalMinutesOfDayUsesOffsetAtInstant(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 06:10 UTC in winter is 07:10 in Paris (+01), in summer 08:10 (+02)
	winter := time.Date(2026, 1, 15, 6, 10, 0, 0, time.UTC)
	summer := time.Date(2026, 7, 15, 6, 10, 0, 0, time.UTC)
	if got := LocalMinutesOfDay(winter, loc); got != 7*60+10 {
		t.Errorf("winter: got %d, want %d", got, 7*60+10)
	}
	if got := LocalMinutesOfDay(summer, loc); got != 8*60+10 {
		t.Errorf("summer: got %d, want %d", got, 8*60+10)
	}
}
