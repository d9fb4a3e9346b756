package Detection

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Tempus/Models"
	"Tempus/Shifts"
)

// MissingCheckoutDetector scans recent IN events that never got a
// matching OUT and flags them once their detection window has elapsed.
// Designed to run once daily; re-running over the same window is safe
// because an event already carrying an anomaly is never touched again.
//
// LookbackHours is the interval between runs the scan must bridge, not
// the total scan range: each tenant's range additionally covers the
// longest detection window its config allows, so an event whose window
// closes between two runs is still in range on the later one.
type MissingCheckoutDetector struct {
	DB            *gorm.DB
	Logger        *logrus.Logger
	LookbackHours int
	Now           func() time.Time
}

func NewMissingCheckoutDetector(db *gorm.DB, logger *logrus.Logger) *MissingCheckoutDetector {
	return &MissingCheckoutDetector{
		DB:            db,
		Logger:        logger,
		LookbackHours: 24,
		Now:           time.Now,
	}
}

// Run processes every active tenant. A tenant failing does not stop the
// others; only the initial tenant listing is fatal to the run.
func (d *MissingCheckoutDetector) Run() error {
	now := d.Now().UTC()

	tenants, err := Models.ActiveTenants(d.DB)
	if err != nil {
		return fmt.Errorf("listing tenants: %w", err)
	}

	for i := range tenants {
		if err := d.runTenant(&tenants[i], now); err != nil {
			d.Logger.WithFields(logrus.Fields{
				"job":    "missing_checkout",
				"tenant": tenants[i].ID,
			}).Error(err.Error())
		}
	}
	return nil
}

func (d *MissingCheckoutDetector) runTenant(tenant *Models.Tenant, now time.Time) error {
	loc := Shifts.TenantLocation(tenant.Timezone)
	cfg := ConfigFromSettings(Models.GetSettings(d.DB, tenant.ID))
	since := now.Add(-scanRange(cfg, d.LookbackHours))

	var ins []Models.ClockEvent
	err := d.DB.
		Where("tenant_id = ? AND kind = ? AND timestamp >= ? AND timestamp <= ?",
			tenant.ID, Models.EventIn, since, now).
		Order("employee_id, timestamp").
		Find(&ins).Error
	if err != nil {
		return fmt.Errorf("fetching IN events: %w", err)
	}

	// Duplicates first: a second IN with no OUT between is the more
	// specific finding, and an event only ever carries one anomaly.
	d.detectDuplicateIns(tenant, loc, ins, now)

	for i := range ins {
		if err := d.processEvent(tenant, loc, cfg, &ins[i], now); err != nil {
			d.Logger.WithFields(logrus.Fields{
				"job":      "missing_checkout",
				"tenant":   tenant.ID,
				"event":    ins[i].ID,
				"employee": ins[i].EmployeeID,
			}).Error(err.Error())
		}
	}
	return nil
}

func (d *MissingCheckoutDetector) processEvent(tenant *Models.Tenant, loc *time.Location, cfg Config, event *Models.ClockEvent, now time.Time) error {
	dayKey := Models.DayKey(event.Timestamp, loc)
	window, err := Shifts.ResolveWindow(d.DB, loc, event.EmployeeID, dayKey, &event.Timestamp)
	if err != nil {
		return err
	}

	windowEnd := detectionWindowEnd(loc, cfg, event.Timestamp, window)
	if now.Before(windowEnd) {
		// Too early to call it missing
		return nil
	}

	var outCount int64
	err = d.DB.Model(&Models.ClockEvent{}).
		Where("tenant_id = ? AND employee_id = ? AND kind = ? AND timestamp > ? AND timestamp <= ?",
			tenant.ID, event.EmployeeID, Models.EventOut, event.Timestamp, windowEnd).
		Count(&outCount).Error
	if err != nil {
		return fmt.Errorf("searching OUT events: %w", err)
	}
	if outCount > 0 {
		return nil
	}

	elapsed := now.Sub(event.Timestamp).Hours()
	note := fmt.Sprintf("No checkout recorded %.1f hours after clock-in", elapsed)
	return d.flagEvent(event.ID, Models.AnomalyMissingOut, note, now)
}

// scanRange is how far back one run reaches. A detection window ends at
// most one day past the punch's local day plus the longer of the grace
// period and the night cutoff; adding lookbackHours on top keeps an
// event in range until the first run after its window closes. A day
// shift punched at 08:00 has its window end at 05:00 the next day: the
// 02:00 run that day is too early, and the one a day later must still
// see the event.
func scanRange(cfg Config, lookbackHours int) time.Duration {
	slack := cfg.DetectionWindowHours
	if cfg.NightCutoffHour > slack {
		slack = cfg.NightCutoffHour
	}
	return time.Duration(lookbackHours+24+slack) * time.Hour
}

// detectionWindowEnd computes the instant after which a session with no
// OUT counts as missing. Night shifts get a fixed wall-clock cutoff on
// the next calendar day instead of a rolling grace period, because their
// natural end already crosses midnight.
func detectionWindowEnd(loc *time.Location, cfg Config, punchAt time.Time, window *Shifts.Window) time.Time {
	grace := time.Duration(cfg.DetectionWindowHours) * time.Hour
	if window == nil {
		return punchAt.Add(grace)
	}

	midnight := Shifts.LocalMidnight(punchAt, loc)
	if isNightWindow(window) {
		next := midnight.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), cfg.NightCutoffHour, 0, 0, 0, loc)
	}

	expectedEnd := midnight.Add(time.Duration(window.EndMinutes) * time.Minute)
	return expectedEnd.Add(grace)
}

// isNightWindow treats a window as a night shift when it is flagged as
// one, or when its times make it one regardless of the flag.
func isNightWindow(w *Shifts.Window) bool {
	return w.IsNight || w.StartHour() >= 20 || w.EndHour() <= 8
}

// detectDuplicateIns flags a second IN on the same local day with no OUT
// in between as DOUBLE_IN. Operates on the already-fetched IN events plus
// a targeted OUT existence check per pair.
func (d *MissingCheckoutDetector) detectDuplicateIns(tenant *Models.Tenant, loc *time.Location, ins []Models.ClockEvent, now time.Time) {
	byEmployee := make(map[uint][]*Models.ClockEvent)
	for i := range ins {
		byEmployee[ins[i].EmployeeID] = append(byEmployee[ins[i].EmployeeID], &ins[i])
	}

	for employeeID, events := range byEmployee {
		for i := 1; i < len(events); i++ {
			first, second := events[i-1], events[i]
			if !Models.DayKey(first.Timestamp, loc).Equal(Models.DayKey(second.Timestamp, loc)) {
				continue
			}

			var outs int64
			err := d.DB.Model(&Models.ClockEvent{}).
				Where("tenant_id = ? AND employee_id = ? AND kind = ? AND timestamp > ? AND timestamp < ?",
					tenant.ID, employeeID, Models.EventOut, first.Timestamp, second.Timestamp).
				Count(&outs).Error
			if err != nil {
				d.Logger.WithFields(logrus.Fields{
					"job":      "missing_checkout",
					"tenant":   tenant.ID,
					"employee": employeeID,
				}).Error(err.Error())
				continue
			}
			if outs > 0 {
				continue
			}

			note := fmt.Sprintf("Second clock-in at %s with no checkout after clock-in at %s",
				second.Timestamp.In(loc).Format("15:04"), first.Timestamp.In(loc).Format("15:04"))
			if err := d.flagEvent(second.ID, Models.AnomalyDoubleIn, note, now); err != nil {
				d.Logger.WithFields(logrus.Fields{
					"job":    "missing_checkout",
					"tenant": tenant.ID,
					"event":  second.ID,
				}).Error(err.Error())
			}
		}
	}
}

// flagEvent writes the anomaly fields with a targeted single-row update.
// The fresh re-read tolerates manual corrections made between the scan
// read and this write; an event already flagged is left untouched so an
// anomaly is never overwritten or cleared.
func (d *MissingCheckoutDetector) flagEvent(eventID uint, kind Models.AnomalyKind, note string, now time.Time) error {
	var fresh Models.ClockEvent
	if err := d.DB.First(&fresh, eventID).Error; err != nil {
		return fmt.Errorf("re-reading event %d: %w", eventID, err)
	}
	if fresh.HasAnomaly {
		return nil
	}

	return d.DB.Model(&Models.ClockEvent{}).
		Where("id = ? AND has_anomaly = ?", eventID, false).
		Updates(map[string]interface{}{
			"has_anomaly":         true,
			"anomaly_kind":        kind,
			"anomaly_status":      Models.AnomalyOpen,
			"anomaly_note":        note,
			"anomaly_detected_at": now,
		}).Error
}
