package Detection

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"Tempus/Models"
)

type fakeMailer struct {
	sent []fakeMail
	err  error
}

type fakeMail struct {
	to      string
	subject string
	body    string
}

func (m *fakeMailer) Send(to, subject, htmlBody string, _ map[string]string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, fakeMail{to: to, subject: subject, body: htmlBody})
	return nil
}

// setupManagedEmployee wires employee -> department -> manager so the
// notifier has someone to email.
func setupManagedEmployee(t *testing.T, db *gorm.DB, tenantID uint, managerEmail string) *Models.Employee {
	t.Helper()
	manager := Models.Employee{TenantID: tenantID, FirstName: "Mona", LastName: "Grant", Email: managerEmail}
	if err := db.Create(&manager).Error; err != nil {
		t.Fatalf("creating manager: %v", err)
	}
	department := Models.Department{TenantID: tenantID, Name: "Operations", ManagerID: &manager.ID}
	if err := db.Create(&department).Error; err != nil {
		t.Fatalf("creating department: %v", err)
	}
	employee := Models.Employee{
		TenantID:     tenantID,
		FirstName:    "Eva",
		LastName:     "Ngo",
		DepartmentID: &department.ID,
	}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("creating employee: %v", err)
	}
	return &employee
}

func newNotifier(db *gorm.DB, mailer Mailer, now time.Time) *AnomalyNotifier {
	notifier := NewAnomalyNotifier(db, quietLogger(), mailer)
	notifier.Now = func() time.Time { return now }
	notifier.Classifier.Now = notifier.Now
	return notifier
}

func createTechnicalAnomaly(t *testing.T, db *gorm.DB, tenantID, employeeID uint, at time.Time) *Models.ClockEvent {
	t.Helper()
	detectedAt := at
	event := Models.ClockEvent{
		TenantID:          tenantID,
		EmployeeID:        employeeID,
		Kind:              Models.EventIn,
		Timestamp:         at,
		HasAnomaly:        true,
		AnomalyKind:       Models.AnomalyTechnical,
		AnomalyStatus:     Models.AnomalyOpen,
		AnomalyDetectedAt: &detectedAt,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("creating anomaly: %v", err)
	}
	return &event
}

func TestNotifyAtMostOnce(t *testing.T) {
	db := newTestDB(t)
	tenant := createTenant(t, db, "UTC")
	employee := setupManagedEmployee(t, db, tenant.ID, "mona@example.com")
	event := createTechnicalAnomaly(t, db, tenant.ID, employee.ID, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))

	mailer := &fakeMailer{}
	notifier := newNotifier(db, mailer, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	for run := 0; run < 2; run++ {
		if err := notifier.Run(); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want exactly 1", len(mailer.sent))
	}
	if mailer.sent[0].to != "mona@example.com" {
		t.Errorf("sent to %q, want manager address", mailer.sent[0].to)
	}

	var logs int64
	if err := db.Model(&Models.NotificationLog{}).Count(&logs).Error; err != nil {
		t.Fatalf("counting logs: %v", err)
	}
	if logs != 1 {
		t.Errorf("%d notification log rows, want 1", logs)
	}

	fresh := reload(t, db, event)
	if fresh.NotifiedAt == nil {
		t.Fatal("notified_at not stamped")
	}
	if !fresh.NotifiedAt.Equal(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("notified_at = %v, want the run time", fresh.NotifiedAt)
	}
}

func TestSendFailureRetriedNextRun(t *testing.T) {
	db := newTestDB(t)
	tenant := createTenant(t, db, "UTC")
	employee := setupManagedEmployee(t, db, tenant.ID, "mona@example.com")
	event := createTechnicalAnomaly(t, db, tenant.ID, employee.ID, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))

	mailer := &fakeMailer{err: errors.New("dial tcp: i/o timeout")}
	notifier := newNotifier(db, mailer, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	if err := notifier.Run(); err != nil {
		t.Fatalf("failing run: %v", err)
	}
	if fresh := reload(t, db, event); fresh.NotifiedAt != nil {
		t.Fatal("notified_at stamped despite send failure")
	}
	var logs int64
	db.Model(&Models.NotificationLog{}).Count(&logs)
	if logs != 0 {
		t.Fatalf("%d log rows after failed send, want 0", logs)
	}

	// SMTP recovers before the next hourly run
	mailer.err = nil
	if err := notifier.Run(); err != nil {
		t.Fatalf("recovery run: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails after recovery, want 1", len(mailer.sent))
	}
	if fresh := reload(t, db, event); fresh.NotifiedAt == nil {
		t.Error("notified_at not stamped after successful retry")
	}
}

func TestNoManagerSkipsQuietly(t *testing.T) {
	db := newTestDB(t)
	tenant := createTenant(t, db, "UTC")
	employee := createEmployee(t, db, tenant.ID, "Eva", "Ngo")
	createTechnicalAnomaly(t, db, tenant.ID, employee.ID, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))

	mailer := &fakeMailer{}
	notifier := newNotifier(db, mailer, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if err := notifier.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("sent %d mails for an employee with no manager, want 0", len(mailer.sent))
	}
}

func TestNonTechnicalAnomalyNotMailed(t *testing.T) {
	db := newTestDB(t)
	tenant := createTenant(t, db, "UTC")
	employee := setupManagedEmployee(t, db, tenant.ID, "mona@example.com")
	detectedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	event := Models.ClockEvent{
		TenantID:          tenant.ID,
		EmployeeID:        employee.ID,
		Kind:              Models.EventIn,
		Timestamp:         detectedAt,
		HasAnomaly:        true,
		AnomalyKind:       Models.AnomalyMissingOut,
		AnomalyStatus:     Models.AnomalyOpen,
		AnomalyDetectedAt: &detectedAt,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("creating anomaly: %v", err)
	}

	mailer := &fakeMailer{}
	notifier := newNotifier(db, mailer, detectedAt.Add(time.Hour))
	if err := notifier.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("sent %d mails for a non-technical anomaly, want 0", len(mailer.sent))
	}
	if fresh := reload(t, db, &event); fresh.NotifiedAt != nil {
		t.Error("notified_at stamped for a non-technical anomaly")
	}
}

func TestTenantTemplateSubstitution(t *testing.T) {
	db := newTestDB(t)
	tenant := createTenant(t, db, "UTC")
	employee := setupManagedEmployee(t, db, tenant.ID, "mona@example.com")
	createTechnicalAnomaly(t, db, tenant.ID, employee.ID, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))

	template := Models.NotificationTemplate{
		TenantID: tenant.ID,
		Code:     TemplateCodeTechnicalAnomaly,
		Subject:  "[{{severity}}] Check on {{employee_name}}",
		Body:     "Dear {{manager_name}}, device {{device_name}} misbehaved on {{session_date}}.",
		IsActive: true,
	}
	if err := db.Create(&template).Error; err != nil {
		t.Fatalf("creating template: %v", err)
	}

	mailer := &fakeMailer{}
	notifier := newNotifier(db, mailer, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if err := notifier.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}
	if got, want := mailer.sent[0].subject, "[WARNING] Check on Eva Ngo"; got != want {
		t.Errorf("subject = %q, want %q", got, want)
	}
	if got, want := mailer.sent[0].body, "Dear Mona Grant, device unknown misbehaved on 2026-03-02."; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}
