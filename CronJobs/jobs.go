package CronJobs

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"Tempus/Compliance"
	"Tempus/Detection"
	"Tempus/Models"
	"Tempus/Slack"
)

// Default cron schedules (cron with seconds field). Detection runs once
// daily over the trailing day, the notifier hourly, the compliance scan
// Monday mornings over the past week.
const (
	DefaultDetectionSchedule  = "0 0 2 * * *"
	DefaultNotifierSchedule   = "0 0 * * * *"
	DefaultComplianceSchedule = "0 30 6 * * 1"
)

// AttendanceJobs owns the periodic batch work: the missing-checkout
// detection, the anomaly notifier, and the weekly compliance scan. Each
// job carries a run-in-progress flag; an overlapping trigger logs and
// returns without running, so a slow run is never stacked.
type AttendanceJobs struct {
	cronScheduler *cron.Cron
	detector      *Detection.MissingCheckoutDetector
	notifier      *Detection.AnomalyNotifier
	compliance    *Compliance.Engine
	slackPoster   *Slack.CompliancePoster
	logger        *logrus.Logger

	runImmediately bool

	detectionRunning  atomic.Bool
	notifierRunning   atomic.Bool
	complianceRunning atomic.Bool

	detectionJobID cron.EntryID
	notifierJobID  cron.EntryID
}

// NewAttendanceJobs creates the job runner. slackPoster may be nil.
func NewAttendanceJobs(
	detector *Detection.MissingCheckoutDetector,
	notifier *Detection.AnomalyNotifier,
	compliance *Compliance.Engine,
	slackPoster *Slack.CompliancePoster,
	logger *logrus.Logger,
	runImmediately bool,
) *AttendanceJobs {
	return &AttendanceJobs{
		cronScheduler:  cron.New(cron.WithSeconds()),
		detector:       detector,
		notifier:       notifier,
		compliance:     compliance,
		slackPoster:    slackPoster,
		logger:         logger,
		runImmediately: runImmediately,
	}
}

// Start registers the scheduled tasks and starts the scheduler.
func (j *AttendanceJobs) Start() error {
	var err error
	j.detectionJobID, err = j.cronScheduler.AddFunc(scheduleFromEnv("DETECTION_SCHEDULE", DefaultDetectionSchedule), j.RunDetectionNow)
	if err != nil {
		return fmt.Errorf("error scheduling detection job: %w", err)
	}

	j.notifierJobID, err = j.cronScheduler.AddFunc(scheduleFromEnv("NOTIFIER_SCHEDULE", DefaultNotifierSchedule), j.RunNotifierNow)
	if err != nil {
		return fmt.Errorf("error scheduling notifier job: %w", err)
	}

	if _, err = j.cronScheduler.AddFunc(scheduleFromEnv("COMPLIANCE_SCHEDULE", DefaultComplianceSchedule), j.RunComplianceScanNow); err != nil {
		return fmt.Errorf("error scheduling compliance scan: %w", err)
	}

	j.cronScheduler.Start()
	j.logger.WithField("module", "cronjobs").Info("attendance job scheduler started")

	if j.runImmediately {
		j.RunDetectionNow()
		j.RunNotifierNow()
	}
	return nil
}

// Stop terminates the scheduler.
func (j *AttendanceJobs) Stop() {
	if j.cronScheduler != nil {
		j.cronScheduler.Stop()
		j.logger.WithField("module", "cronjobs").Info("attendance job scheduler stopped")
	}
}

// UpdateDetectionSchedule changes the detection job's schedule.
// Format: "0 0 2 * * *" = at 02:00:00 every day
func (j *AttendanceJobs) UpdateDetectionSchedule(schedule string) error {
	j.cronScheduler.Remove(j.detectionJobID)

	var err error
	j.detectionJobID, err = j.cronScheduler.AddFunc(schedule, j.RunDetectionNow)
	if err != nil {
		return fmt.Errorf("error updating detection schedule: %w", err)
	}
	j.logger.WithField("module", "cronjobs").Infof("detection schedule updated to %s", schedule)
	return nil
}

// RunDetectionNow executes one missing-checkout detection pass.
func (j *AttendanceJobs) RunDetectionNow() {
	if !j.detectionRunning.CompareAndSwap(false, true) {
		j.logger.WithField("job", "missing_checkout").Warn("previous run still in progress, skipping")
		return
	}
	defer j.detectionRunning.Store(false)

	started := time.Now()
	j.logger.WithField("job", "missing_checkout").Info("run started")
	if err := j.detector.Run(); err != nil {
		j.logger.WithField("job", "missing_checkout").Error(err.Error())
		return
	}
	j.logger.WithFields(logrus.Fields{
		"job":      "missing_checkout",
		"duration": time.Since(started).String(),
	}).Info("run finished")
}

// RunNotifierNow executes one anomaly notification pass.
func (j *AttendanceJobs) RunNotifierNow() {
	if !j.notifierRunning.CompareAndSwap(false, true) {
		j.logger.WithField("job", "anomaly_notifier").Warn("previous run still in progress, skipping")
		return
	}
	defer j.notifierRunning.Store(false)

	started := time.Now()
	j.logger.WithField("job", "anomaly_notifier").Info("run started")
	if err := j.notifier.Run(); err != nil {
		j.logger.WithField("job", "anomaly_notifier").Error(err.Error())
		return
	}
	j.logger.WithFields(logrus.Fields{
		"job":      "anomaly_notifier",
		"duration": time.Since(started).String(),
	}).Info("run finished")
}

// RunComplianceScanNow evaluates the trailing week for every active
// tenant and posts critical findings to Slack.
func (j *AttendanceJobs) RunComplianceScanNow() {
	if !j.complianceRunning.CompareAndSwap(false, true) {
		j.logger.WithField("job", "compliance_scan").Warn("previous run still in progress, skipping")
		return
	}
	defer j.complianceRunning.Store(false)

	tenants, err := Models.ActiveTenants(j.compliance.DB)
	if err != nil {
		j.logger.WithField("job", "compliance_scan").Error(err.Error())
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -7)
	for i := range tenants {
		tenant := &tenants[i]
		alerts, err := j.compliance.Evaluate(tenant.ID, from, to)
		if err != nil {
			j.logger.WithFields(logrus.Fields{
				"job":    "compliance_scan",
				"tenant": tenant.ID,
			}).Error(err.Error())
			continue
		}
		j.logger.WithFields(logrus.Fields{
			"job":    "compliance_scan",
			"tenant": tenant.ID,
			"alerts": len(alerts),
		}).Info("scan finished")

		if j.slackPoster == nil {
			continue
		}
		settings := Models.GetSettings(j.compliance.DB, tenant.ID)
		if err := j.slackPoster.PostCriticalAlerts(tenant, settings.SlackChannelID, alerts); err != nil {
			j.logger.WithFields(logrus.Fields{
				"job":    "compliance_scan",
				"tenant": tenant.ID,
			}).Warn(err.Error())
		}
	}
}

func scheduleFromEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
