package models

import "time"

// TimeEntryStatus is the attendance state machine state.
type TimeEntryStatus string

const (
	TimeEntryActive    TimeEntryStatus = "active"
	TimeEntryCompleted TimeEntryStatus = "completed"
	TimeEntryAbsent    TimeEntryStatus = "absent"
)

// TimeEntry records realized attendance. clock_out is null iff status is
// active; when set, clock_in < clock_out. At most one active entry per
// staff member exists at any time.
type TimeEntry struct {
	ID       int64           `db:"id" json:"id"`
	Username string          `db:"username" json:"username"`
	ShiftID  *int64          `db:"shift_id" json:"shift_id,omitempty"`
	ClockIn  time.Time       `db:"clock_in" json:"clock_in"`
	ClockOut *time.Time      `db:"clock_out" json:"clock_out,omitempty"`
	Status   TimeEntryStatus `db:"status" json:"status"`
}

// Hours returns the completed duration in hours, zero while active.
func (e TimeEntry) Hours() float64 {
	if e.ClockOut == nil {
		return 0
	}
	return e.ClockOut.Sub(e.ClockIn).Hours()
}

// AttendanceStats aggregates completed hours over the standard windows.
type AttendanceStats struct {
	Daily    float64 `json:"daily"`
	Weekly   float64 `json:"weekly"`
	Monthly  float64 `json:"monthly"`
	Semester float64 `json:"semester"`
	Absences int     `json:"absences"`
}

// WeekdayHours is one bar of the per-weekday time distribution plot.
type WeekdayHours struct {
	DayOfWeek int     `db:"day_of_week" json:"day_of_week"`
	Hours     float64 `db:"hours" json:"hours"`
}
