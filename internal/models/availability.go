package models

import "github.com/campusworks/roster-api/internal/timeslot"

// Availability is a recurring weekly window (day 0..6, Monday first)
// during which a staff member may be allocated. Multiple rows per day
// are allowed; start < end is enforced at the store.
type Availability struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	DayOfWeek    int    `db:"day_of_week" json:"day_of_week"`
	StartMinutes int    `db:"start_minutes" json:"start_minutes"`
	EndMinutes   int    `db:"end_minutes" json:"end_minutes"`
}

// CoversHour reports whether the window covers hour h on its day:
// start <= h:00 < end.
func (a Availability) CoversHour(hour int) bool {
	return timeslot.Covers(a.StartMinutes, a.EndMinutes, hour)
}

// CoversSpan reports whether the window fully contains a shift span
// given in minutes from midnight.
func (a Availability) CoversSpan(startMinutes, endMinutes int) bool {
	return timeslot.CoversRange(a.StartMinutes, a.EndMinutes, startMinutes, endMinutes)
}
