package Shifts

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"Tempus/Models"
)

// Window is the resolved expected work window for one employee-day,
// expressed as wall-clock minutes of the local day.
type Window struct {
	StartMinutes int
	EndMinutes   int
	BreakMinutes int
	IsNight      bool
}

// StartHour returns the whole start hour of the window.
func (w *Window) StartHour() int { return w.StartMinutes / 60 }

// EndHour returns the whole end hour of the window.
func (w *Window) EndHour() int { return w.EndMinutes / 60 }

// ResolveWindow finds the expected shift window for an employee on the
// calendar day identified by dayKey (see Models.DayKey). When several
// published assignments overlap the same day the one whose local start
// time sits closest to the punch instant wins; punch devices carry no
// shift identifier, so timing is the only signal of intent. A nil result
// with nil error means no schedule and no default template exist.
func ResolveWindow(db *gorm.DB, loc *time.Location, employeeID uint, dayKey time.Time, punchAt *time.Time) (*Window, error) {
	var assignments []Models.ScheduleAssignment
	err := db.Preload("Shift").
		Where("employee_id = ? AND date = ? AND status = ?", employeeID, dayKey, Models.AssignmentPublished).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("fetching assignments for employee %d: %w", employeeID, err)
	}

	if len(assignments) == 0 {
		return defaultWindow(db, employeeID)
	}

	type candidate struct {
		window *Window
	}
	var candidates []candidate
	for i := range assignments {
		w, err := windowFromAssignment(&assignments[i])
		if err != nil {
			// One malformed assignment must not sink the others
			continue
		}
		candidates = append(candidates, candidate{window: w})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no usable assignment for employee %d on %s", employeeID, dayKey.Format("2006-01-02"))
	}

	// Ascending start order doubles as the tie-break
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].window.StartMinutes < candidates[j].window.StartMinutes
	})
	if len(candidates) == 1 || punchAt == nil {
		return candidates[0].window, nil
	}

	punchMinutes := LocalMinutesOfDay(*punchAt, loc)
	best := candidates[0].window
	bestDistance := absInt(punchMinutes - best.StartMinutes)
	for _, c := range candidates[1:] {
		distance := absInt(punchMinutes - c.window.StartMinutes)
		if distance < bestDistance {
			best = c.window
			bestDistance = distance
		}
	}
	return best, nil
}

func defaultWindow(db *gorm.DB, employeeID uint) (*Window, error) {
	var employee Models.Employee
	if err := db.Preload("DefaultShift").First(&employee, employeeID).Error; err != nil {
		return nil, fmt.Errorf("fetching employee %d: %w", employeeID, err)
	}
	if employee.DefaultShift == nil {
		return nil, nil
	}
	return windowFromShift(employee.DefaultShift)
}

func windowFromAssignment(a *Models.ScheduleAssignment) (*Window, error) {
	start, err := Models.ParseMinutesOfDay(a.EffectiveStart())
	if err != nil {
		return nil, err
	}
	end, err := Models.ParseMinutesOfDay(a.EffectiveEnd())
	if err != nil {
		return nil, err
	}
	w := &Window{StartMinutes: start, EndMinutes: end}
	if a.Shift != nil {
		w.BreakMinutes = a.Shift.BreakMinutes
		w.IsNight = a.Shift.IsNightShift
	}
	return w, nil
}

func windowFromShift(s *Models.ShiftTemplate) (*Window, error) {
	start, err := Models.ParseMinutesOfDay(s.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := Models.ParseMinutesOfDay(s.EndTime)
	if err != nil {
		return nil, err
	}
	return &Window{
		StartMinutes: start,
		EndMinutes:   end,
		BreakMinutes: s.BreakMinutes,
		IsNight:      s.IsNightShift,
	}, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
