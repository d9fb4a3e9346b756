package Detection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Tempus/Models"
	"Tempus/Shifts"
)

// Mailer is the outbound mail collaborator. Send failures never
// propagate as job failures; they are logged and the anomaly stays
// eligible for the next run.
type Mailer interface {
	Send(to, subject, htmlBody string, metadata map[string]string) error
}

// AnomalyNotifier inspects open anomalies, classifies them, and emails
// the employee's manager about technical ones exactly once. Designed to
// run hourly.
type AnomalyNotifier struct {
	DB         *gorm.DB
	Logger     *logrus.Logger
	Mailer     Mailer
	Classifier *Classifier
	Now        func() time.Time
}

func NewAnomalyNotifier(db *gorm.DB, logger *logrus.Logger, mailer Mailer) *AnomalyNotifier {
	return &AnomalyNotifier{
		DB:         db,
		Logger:     logger,
		Mailer:     mailer,
		Classifier: NewClassifier(db, logger),
		Now:        time.Now,
	}
}

func (n *AnomalyNotifier) Run() error {
	tenants, err := Models.ActiveTenants(n.DB)
	if err != nil {
		return fmt.Errorf("listing tenants: %w", err)
	}

	for i := range tenants {
		if err := n.runTenant(&tenants[i]); err != nil {
			n.Logger.WithFields(logrus.Fields{
				"job":    "anomaly_notifier",
				"tenant": tenants[i].ID,
			}).Error(err.Error())
		}
	}
	return nil
}

func (n *AnomalyNotifier) runTenant(tenant *Models.Tenant) error {
	loc := Shifts.TenantLocation(tenant.Timezone)

	var events []Models.ClockEvent
	err := n.DB.Preload("Employee").Preload("Device").
		Where("tenant_id = ? AND has_anomaly = ? AND anomaly_status IN ? AND notified_at IS NULL",
			tenant.ID, true, []Models.AnomalyStatus{Models.AnomalyOpen, Models.AnomalyInvestigating}).
		Order("id").
		Find(&events).Error
	if err != nil {
		return fmt.Errorf("fetching open anomalies: %w", err)
	}

	for i := range events {
		if err := n.processAnomaly(tenant, loc, &events[i]); err != nil {
			n.Logger.WithFields(logrus.Fields{
				"job":    "anomaly_notifier",
				"tenant": tenant.ID,
				"event":  events[i].ID,
			}).Error(err.Error())
		}
	}
	return nil
}

func (n *AnomalyNotifier) processAnomaly(tenant *Models.Tenant, loc *time.Location, event *Models.ClockEvent) error {
	// Re-check right before doing anything: the send is the side effect
	// being deduplicated, the unique index is only the backstop.
	var existing int64
	err := n.DB.Model(&Models.NotificationLog{}).
		Where("tenant_id = ? AND clock_event_id = ?", tenant.ID, event.ID).
		Count(&existing).Error
	if err != nil {
		return fmt.Errorf("checking notification log: %w", err)
	}
	if existing > 0 {
		return nil
	}

	classification := n.Classifier.Classify(event)
	if !classification.Technical {
		return nil
	}

	manager, err := n.resolveManager(event.EmployeeID)
	if err != nil {
		return err
	}
	if manager == nil || manager.Email == "" {
		n.Logger.WithFields(logrus.Fields{
			"job":      "anomaly_notifier",
			"tenant":   tenant.ID,
			"employee": event.EmployeeID,
		}).Warn("no manager with a contact address, skipping notification")
		return nil
	}

	employeeName := "employee " + strconv.Itoa(int(event.EmployeeID))
	if event.Employee != nil {
		employeeName = event.Employee.FullName()
	}
	deviceName := "unknown"
	if event.Device != nil {
		deviceName = event.Device.Name
	}
	detectedAt := event.Timestamp
	if event.AnomalyDetectedAt != nil {
		detectedAt = *event.AnomalyDetectedAt
	}

	values := map[string]string{
		"manager_name":  manager.FullName(),
		"employee_name": employeeName,
		"session_date":  event.Timestamp.In(loc).Format("2006-01-02"),
		"detected_at":   detectedAt.In(loc).Format("2006-01-02 15:04"),
		"reason":        classification.Reason,
		"device_name":   deviceName,
		"severity":      classification.Severity,
	}

	subject, body := defaultSubject, defaultBody
	template, err := Models.GetActiveTemplate(n.DB, tenant.ID, TemplateCodeTechnicalAnomaly)
	if err == nil {
		subject, body = template.Subject, template.Body
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("fetching template: %w", err)
	}
	subject = Render(subject, values)
	body = Render(body, values)

	metadata := map[string]string{
		"tenant_id": strconv.Itoa(int(tenant.ID)),
		"event_id":  strconv.Itoa(int(event.ID)),
		"kind":      string(event.AnomalyKind),
	}
	if err := n.Mailer.Send(manager.Email, subject, body, metadata); err != nil {
		// Not stamping notified_at keeps the anomaly eligible next run
		n.Logger.WithFields(logrus.Fields{
			"job":    "anomaly_notifier",
			"tenant": tenant.ID,
			"event":  event.ID,
			"cause":  classifyDispatchError(err),
		}).Error(err.Error())
		return nil
	}

	now := n.Now().UTC()
	logRow := Models.NotificationLog{
		TenantID:     tenant.ID,
		ClockEventID: event.ID,
		EmployeeID:   event.EmployeeID,
		SessionDate:  Models.DayKey(event.Timestamp, loc),
		Recipient:    manager.Email,
		Subject:      subject,
		SentAt:       now,
	}
	if err := n.DB.Create(&logRow).Error; err != nil {
		return fmt.Errorf("recording notification log: %w", err)
	}

	return n.DB.Model(&Models.ClockEvent{}).
		Where("id = ? AND notified_at IS NULL", event.ID).
		Update("notified_at", now).Error
}

// resolveManager walks employee -> department -> manager. A nil result
// means nobody to notify.
func (n *AnomalyNotifier) resolveManager(employeeID uint) (*Models.Employee, error) {
	var employee Models.Employee
	if err := n.DB.Preload("Department").First(&employee, employeeID).Error; err != nil {
		return nil, fmt.Errorf("fetching employee %d: %w", employeeID, err)
	}
	if employee.Department == nil || employee.Department.ManagerID == nil {
		return nil, nil
	}

	var manager Models.Employee
	if err := n.DB.First(&manager, *employee.Department.ManagerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching manager %d: %w", *employee.Department.ManagerID, err)
	}
	return &manager, nil
}

// classifyDispatchError buckets a mail failure for the logs.
func classifyDispatchError(err error) string {
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "auth"):
		return "authentication_failure"
	case strings.Contains(message, "timeout") || strings.Contains(message, "deadline"):
		return "timeout"
	case strings.Contains(message, "recipient") || strings.Contains(message, "550"):
		return "recipient_rejected"
	default:
		return "unknown"
	}
}
