package Shifts

import (
	"log"
	"time"
)

// TenantLocation resolves a tenant's IANA timezone name. An empty or
// unparseable value degrades to UTC instead of failing the run; offsets
// taken through the returned *time.Location are relative to the instant
// converted, so comparisons stay correct across DST transitions.
func TenantLocation(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("Unknown timezone %q, falling back to UTC: %v", timezone, err)
		return time.UTC
	}
	return loc
}

// LocalMinutesOfDay converts a UTC instant into minutes since local
// midnight in the given location.
func LocalMinutesOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// LocalMidnight returns the instant of local midnight for the calendar
// day containing t in loc.
func LocalMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
