package Detection

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Tempus/Models"
)

const (
	// A device that has not synchronized for this long is treated as
	// offline, which makes its anomalies technical rather than personal.
	deviceOfflineAfter = time.Hour

	// Window and count for the "site-wide outage" heuristic: this many
	// other anomalies on the same device around the same time point at
	// infrastructure, not individual behavior.
	clusterWindow    = 30 * time.Minute
	clusterThreshold = 3
)

// Notification severities carried into mail templates.
const (
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Classification is the outcome of inspecting one anomaly. Severity is
// only meaningful when Technical is set: a single-device fault is a
// warning, a cluster pointing at a site-wide outage is critical.
type Classification struct {
	Technical bool
	Reason    string
	Severity  string
}

// Classifier decides whether an anomaly is attributable to a technical
// failure. Any single matching condition is sufficient.
type Classifier struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Now    func() time.Time
}

func NewClassifier(db *gorm.DB, logger *logrus.Logger) *Classifier {
	return &Classifier{DB: db, Logger: logger, Now: time.Now}
}

// Classify inspects the anomaly's kind, its device's sync state, and the
// anomalies around it on the same device.
func (c *Classifier) Classify(event *Models.ClockEvent) Classification {
	if Models.ParseAnomalyKind(string(event.AnomalyKind)) == Models.AnomalyTechnical {
		return Classification{
			Technical: true,
			Reason:    "Anomaly was flagged as technical at detection time",
			Severity:  SeverityWarning,
		}
	}

	if event.DeviceID == nil {
		return Classification{}
	}

	var device Models.Device
	err := c.DB.First(&device, *event.DeviceID).Error
	switch {
	case err == nil:
		if device.LastSyncAt == nil {
			return Classification{
				Technical: true,
				Reason:    fmt.Sprintf("Device %s has never synchronized", device.Name),
				Severity:  SeverityWarning,
			}
		}
		if silence := c.Now().Sub(*device.LastSyncAt); silence > deviceOfflineAfter {
			return Classification{
				Technical: true,
				Reason:    fmt.Sprintf("Device %s has not synchronized for %.0f minutes", device.Name, silence.Minutes()),
				Severity:  SeverityWarning,
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Device row gone; the cluster check below still applies
	default:
		c.Logger.WithFields(logrus.Fields{
			"module": "classifier",
			"tenant": event.TenantID,
			"event":  event.ID,
			"device": *event.DeviceID,
		}).Error(err.Error())
	}

	var neighbours int64
	windowStart := event.Timestamp.Add(-clusterWindow)
	windowEnd := event.Timestamp.Add(clusterWindow)
	err = c.DB.Model(&Models.ClockEvent{}).
		Where("tenant_id = ? AND device_id = ? AND id != ? AND has_anomaly = ? AND timestamp BETWEEN ? AND ?",
			event.TenantID, *event.DeviceID, event.ID, true, windowStart, windowEnd).
		Count(&neighbours).Error
	if err != nil {
		c.Logger.WithFields(logrus.Fields{
			"module": "classifier",
			"tenant": event.TenantID,
			"event":  event.ID,
			"device": *event.DeviceID,
		}).Error(err.Error())
		return Classification{}
	}
	if neighbours >= clusterThreshold {
		return Classification{
			Technical: true,
			Reason:    fmt.Sprintf("%d other anomalies on the same device within 30 minutes", neighbours),
			Severity:  SeverityCritical,
		}
	}

	return Classification{}
}
