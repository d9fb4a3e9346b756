package Detection

import (
	"Tempus/Models"
)

const (
	// Grace period added after the expected shift end before an IN event
	// with no OUT is considered missing.
	DefaultDetectionWindowHours = 12

	// Wall-clock hour on the following day at which a night shift's
	// detection window closes.
	DefaultNightCutoffHour = 12
)

// Config carries the per-tenant detection tunables. It is materialized
// once per tenant run and passed down so the inner loop never reads
// settings ad hoc.
type Config struct {
	DetectionWindowHours int
	NightCutoffHour      int
}

func ConfigFromSettings(settings Models.TenantSettings) Config {
	cfg := Config{
		DetectionWindowHours: settings.DetectionWindowHours,
		NightCutoffHour:      settings.NightCutoffHour,
	}
	if cfg.DetectionWindowHours <= 0 {
		cfg.DetectionWindowHours = DefaultDetectionWindowHours
	}
	if cfg.NightCutoffHour <= 0 {
		cfg.NightCutoffHour = DefaultNightCutoffHour
	}
	return cfg
}
