package Compliance

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Tempus/Models"
)

// Engine evaluates a tenant's schedule over a date range against the
// four labor rules. Stateless and read-only: safe to call on demand and
// to retry without cleanup.
type Engine struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewEngine(db *gorm.DB, logger *logrus.Logger) *Engine {
	return &Engine{DB: db, Logger: logger}
}

// Evaluate returns every alert for the range, all four rules
// concatenated with no precedence between them. An invalid range or a
// repository failure returns an error, never a partial list.
func (e *Engine) Evaluate(tenantID uint, from, to time.Time) ([]Alert, error) {
	fromKey := dateKey(from)
	toKey := dateKey(to)
	if toKey.Before(fromKey) {
		return nil, fmt.Errorf("invalid date range: %s is after %s",
			fromKey.Format("2006-01-02"), toKey.Format("2006-01-02"))
	}

	th := ThresholdsFromSettings(Models.GetSettings(e.DB, tenantID))

	var assignments []Models.ScheduleAssignment
	err := e.DB.Preload("Shift").Preload("Employee").
		Where("tenant_id = ? AND status = ? AND date >= ? AND date <= ?",
			tenantID, Models.AssignmentPublished, fromKey, toKey).
		Order("employee_id, date").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("fetching schedule assignments: %w", err)
	}

	var sites []Models.Site
	if err := e.DB.Where("tenant_id = ?", tenantID).Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("fetching sites: %w", err)
	}

	alerts := []Alert{}
	alerts = append(alerts, e.checkWeeklyHours(assignments, th)...)
	alerts = append(alerts, e.checkRestPeriods(assignments, th)...)
	alerts = append(alerts, e.checkConsecutiveNights(assignments, th)...)
	alerts = append(alerts, e.checkMinimumStaffing(sites, assignments, fromKey, toKey)...)
	return alerts, nil
}

// checkWeeklyHours buckets each assignment's worked hours into ISO weeks
// keyed by their Monday and alerts on the totals.
func (e *Engine) checkWeeklyHours(assignments []Models.ScheduleAssignment, th Thresholds) []Alert {
	type weekKey struct {
		employeeID uint
		monday     time.Time
	}
	// Totals accumulate in whole minutes so exact-boundary weeks are not
	// pushed over a limit by floating-point drift.
	totals := make(map[weekKey]int)
	names := make(map[uint]string)

	for i := range assignments {
		a := &assignments[i]
		minutes, ok := workedMinutes(a)
		if !ok {
			e.Logger.WithFields(logrus.Fields{
				"module":     "compliance",
				"assignment": a.ID,
			}).Warn("unparseable shift times, excluded from weekly totals")
			continue
		}
		key := weekKey{employeeID: a.EmployeeID, monday: mondayOf(a.Date)}
		totals[key] += minutes
		names[a.EmployeeID] = employeeName(a)
	}

	var alerts []Alert
	for key, totalMinutes := range totals {
		total := float64(totalMinutes) / 60.0
		severity := Severity("")
		switch {
		case total > th.WeeklyHoursCritical:
			severity = SeverityCritical
		case total > th.WeeklyHoursWarning:
			severity = SeverityWarning
		default:
			continue
		}
		employeeID := key.employeeID
		weekStart := key.monday
		alerts = append(alerts, Alert{
			Rule:       RuleWeeklyHours,
			Severity:   severity,
			EmployeeID: &employeeID,
			Date:       &weekStart,
			Message: fmt.Sprintf("%s is scheduled %.1fh in the week of %s",
				names[key.employeeID], total, weekStart.Format("2006-01-02")),
			Details: map[string]interface{}{
				"week_start":     weekStart.Format("2006-01-02"),
				"total_hours":    round1(total),
				"warning_limit":  th.WeeklyHoursWarning,
				"critical_limit": th.WeeklyHoursCritical,
			},
		})
	}
	sortAlerts(alerts)
	return alerts
}

// checkRestPeriods measures the gap between the end of one day's work
// and the start of the next day's, per employee, for calendar-adjacent
// days only.
func (e *Engine) checkRestPeriods(assignments []Models.ScheduleAssignment, th Thresholds) []Alert {
	spans := dailySpans(assignments)

	var alerts []Alert
	for employeeID, days := range spans {
		for i := 1; i < len(days); i++ {
			previous, current := days[i-1], days[i]
			if !current.date.Equal(previous.date.AddDate(0, 0, 1)) {
				continue
			}
			gap := current.start.Sub(previous.end).Hours()
			severity := Severity("")
			switch {
			case gap < th.RestHoursCritical:
				severity = SeverityCritical
			case gap < th.RestHoursWarning:
				severity = SeverityWarning
			default:
				continue
			}
			id := employeeID
			date := current.date
			alerts = append(alerts, Alert{
				Rule:       RuleRestPeriod,
				Severity:   severity,
				EmployeeID: &id,
				Date:       &date,
				Message: fmt.Sprintf("%s has only %.1fh of rest before the shift of %s",
					current.name, gap, date.Format("2006-01-02")),
				Details: map[string]interface{}{
					"rest_hours":     round1(gap),
					"warning_limit":  th.RestHoursWarning,
					"critical_limit": th.RestHoursCritical,
					"previous_end":   previous.end.Format("2006-01-02 15:04"),
					"next_start":     current.start.Format("2006-01-02 15:04"),
				},
			})
		}
	}
	sortAlerts(alerts)
	return alerts
}

// checkConsecutiveNights finds each employee's longest run of
// calendar-adjacent night-shift days.
func (e *Engine) checkConsecutiveNights(assignments []Models.ScheduleAssignment, th Thresholds) []Alert {
	nightDays := make(map[uint][]time.Time)
	names := make(map[uint]string)
	seen := make(map[uint]map[time.Time]bool)

	for i := range assignments {
		a := &assignments[i]
		if a.Shift == nil || !a.Shift.IsNightShift {
			continue
		}
		if seen[a.EmployeeID] == nil {
			seen[a.EmployeeID] = make(map[time.Time]bool)
		}
		if seen[a.EmployeeID][a.Date] {
			continue
		}
		seen[a.EmployeeID][a.Date] = true
		nightDays[a.EmployeeID] = append(nightDays[a.EmployeeID], a.Date)
		names[a.EmployeeID] = employeeName(a)
	}

	var alerts []Alert
	for employeeID, days := range nightDays {
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

		longest, runStart := 1, days[0]
		run, currentStart := 1, days[0]
		for i := 1; i < len(days); i++ {
			if days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
				run++
			} else {
				run, currentStart = 1, days[i]
			}
			if run > longest {
				longest, runStart = run, currentStart
			}
		}

		severity := Severity("")
		switch {
		case longest > th.NightRunCritical:
			severity = SeverityCritical
		case longest > th.NightRunWarning:
			severity = SeverityWarning
		default:
			continue
		}
		id := employeeID
		start := runStart
		alerts = append(alerts, Alert{
			Rule:       RuleNightShifts,
			Severity:   severity,
			EmployeeID: &id,
			Date:       &start,
			Message: fmt.Sprintf("%s works %d consecutive night shifts starting %s",
				names[employeeID], longest, start.Format("2006-01-02")),
			Details: map[string]interface{}{
				"consecutive_nights": longest,
				"run_start":          start.Format("2006-01-02"),
				"warning_limit":      th.NightRunWarning,
				"critical_limit":     th.NightRunCritical,
			},
		})
	}
	sortAlerts(alerts)
	return alerts
}

// checkMinimumStaffing raises a warning for every site/day pair in range
// with zero schedule assignments.
func (e *Engine) checkMinimumStaffing(sites []Models.Site, assignments []Models.ScheduleAssignment, fromKey, toKey time.Time) []Alert {
	staffed := make(map[uint]map[time.Time]int)
	for i := range assignments {
		siteID := assignmentSite(&assignments[i])
		if siteID == 0 {
			continue
		}
		if staffed[siteID] == nil {
			staffed[siteID] = make(map[time.Time]int)
		}
		staffed[siteID][assignments[i].Date]++
	}

	var alerts []Alert
	for _, site := range sites {
		for day := fromKey; !day.After(toKey); day = day.AddDate(0, 0, 1) {
			if staffed[site.ID][day] > 0 {
				continue
			}
			date := day
			alerts = append(alerts, Alert{
				Rule:     RuleMinStaffing,
				Severity: SeverityWarning,
				Date:     &date,
				Message: fmt.Sprintf("Site %s has nobody scheduled on %s",
					site.Name, date.Format("2006-01-02")),
				Details: map[string]interface{}{
					"site_id":   site.ID,
					"site_name": site.Name,
					"date":      date.Format("2006-01-02"),
					"scheduled": 0,
				},
			})
		}
	}
	return alerts
}

type daySpan struct {
	date  time.Time
	start time.Time
	end   time.Time
	name  string
}

// dailySpans reduces possibly-overlapping assignments to one worked span
// per employee-day: earliest start to latest end, overnight ends rolled
// into the next day.
func dailySpans(assignments []Models.ScheduleAssignment) map[uint][]daySpan {
	byDay := make(map[uint]map[time.Time]*daySpan)
	for i := range assignments {
		a := &assignments[i]
		startMinutes, err := Models.ParseMinutesOfDay(a.EffectiveStart())
		if err != nil {
			continue
		}
		endMinutes, err := Models.ParseMinutesOfDay(a.EffectiveEnd())
		if err != nil {
			continue
		}
		if endMinutes < startMinutes {
			endMinutes += 24 * 60
		}
		start := a.Date.Add(time.Duration(startMinutes) * time.Minute)
		end := a.Date.Add(time.Duration(endMinutes) * time.Minute)

		if byDay[a.EmployeeID] == nil {
			byDay[a.EmployeeID] = make(map[time.Time]*daySpan)
		}
		span, ok := byDay[a.EmployeeID][a.Date]
		if !ok {
			byDay[a.EmployeeID][a.Date] = &daySpan{date: a.Date, start: start, end: end, name: employeeName(a)}
			continue
		}
		if start.Before(span.start) {
			span.start = start
		}
		if end.After(span.end) {
			span.end = end
		}
	}

	spans := make(map[uint][]daySpan)
	for employeeID, days := range byDay {
		for _, span := range days {
			spans[employeeID] = append(spans[employeeID], *span)
		}
		sort.Slice(spans[employeeID], func(i, j int) bool {
			return spans[employeeID][i].date.Before(spans[employeeID][j].date)
		})
	}
	return spans
}

// workedMinutes computes end - start - break for one assignment, with
// the end rolled +24h when it falls before the start (overnight shift).
func workedMinutes(a *Models.ScheduleAssignment) (int, bool) {
	startMinutes, err := Models.ParseMinutesOfDay(a.EffectiveStart())
	if err != nil {
		return 0, false
	}
	endMinutes, err := Models.ParseMinutesOfDay(a.EffectiveEnd())
	if err != nil {
		return 0, false
	}
	if endMinutes < startMinutes {
		endMinutes += 24 * 60
	}
	worked := endMinutes - startMinutes
	if a.Shift != nil {
		worked -= a.Shift.BreakMinutes
	}
	if worked < 0 {
		worked = 0
	}
	return worked, true
}

// mondayOf returns the Monday of the ISO week containing d, at the same
// clock reading.
func mondayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func dateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func assignmentSite(a *Models.ScheduleAssignment) uint {
	if a.SiteID != nil {
		return *a.SiteID
	}
	if a.Employee != nil && a.Employee.SiteID != nil {
		return *a.Employee.SiteID
	}
	return 0
}

func employeeName(a *Models.ScheduleAssignment) string {
	if a.Employee != nil {
		return a.Employee.FullName()
	}
	return "employee " + strconv.Itoa(int(a.EmployeeID))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// sortAlerts keeps evaluator output deterministic for callers and tests.
func sortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		left, right := alerts[i], alerts[j]
		if left.EmployeeID != nil && right.EmployeeID != nil && *left.EmployeeID != *right.EmployeeID {
			return *left.EmployeeID < *right.EmployeeID
		}
		if left.Date != nil && right.Date != nil {
			return left.Date.Before(*right.Date)
		}
		return false
	})
}
