package Models

import (
	"time"

	"gorm.io/gorm"
)

type ClockEventKind string

const (
	EventIn           ClockEventKind = "IN"
	EventOut          ClockEventKind = "OUT"
	EventBreakStart   ClockEventKind = "BREAK_START"
	EventBreakEnd     ClockEventKind = "BREAK_END"
	EventMissionStart ClockEventKind = "MISSION_START"
	EventMissionEnd   ClockEventKind = "MISSION_END"
)

type AnomalyKind string

const (
	AnomalyMissingOut AnomalyKind = "MISSING_OUT"
	AnomalyDoubleIn   AnomalyKind = "DOUBLE_IN"
	AnomalyDoubleOut  AnomalyKind = "DOUBLE_OUT"
	AnomalyMissingIn  AnomalyKind = "MISSING_IN"
	AnomalyTechnical  AnomalyKind = "TECHNICAL"
	AnomalyOther      AnomalyKind = "OTHER"
)

// ParseAnomalyKind maps a stored value onto the closed kind set. Legacy
// rows can carry free-text kinds; those come back as OTHER.
func ParseAnomalyKind(value string) AnomalyKind {
	switch AnomalyKind(value) {
	case AnomalyMissingOut, AnomalyDoubleIn, AnomalyDoubleOut, AnomalyMissingIn, AnomalyTechnical:
		return AnomalyKind(value)
	default:
		return AnomalyOther
	}
}

type AnomalyStatus string

const (
	AnomalyOpen          AnomalyStatus = "OPEN"
	AnomalyInvestigating AnomalyStatus = "INVESTIGATING"
	AnomalyResolved      AnomalyStatus = "RESOLVED"
	AnomalyDismissed     AnomalyStatus = "DISMISSED"
)

// ClockEvent is one punch. It is written by ingestion and only ever
// mutated here to set the anomaly fields; rows are never deleted.
type ClockEvent struct {
	gorm.Model
	TenantID   uint           `json:"tenant_id" gorm:"index"`
	EmployeeID uint           `json:"employee_id" gorm:"index"`
	Kind       ClockEventKind `json:"kind" gorm:"index"`
	Timestamp  time.Time      `json:"timestamp" gorm:"index"` // UTC instant
	DeviceID   *uint          `json:"device_id"`

	HasAnomaly        bool          `json:"has_anomaly"`
	AnomalyKind       AnomalyKind   `json:"anomaly_kind"`
	AnomalyStatus     AnomalyStatus `json:"anomaly_status"`
	AnomalyNote       string        `json:"anomaly_note"`
	AnomalyDetectedAt *time.Time    `json:"anomaly_detected_at"`

	// Set exactly once by the notifier, never cleared
	NotifiedAt *time.Time `json:"notified_at"`

	// Manual correction audit, written outside this service
	CorrectedBy *uint      `json:"corrected_by"`
	CorrectedAt *time.Time `json:"corrected_at"`

	Employee *Employee `json:"employee,omitempty"`
	Device   *Device   `json:"device,omitempty"`
}
