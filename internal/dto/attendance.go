package dto

// ClockInRequest opens a time entry. ShiftID may be omitted, in which
// case the caller's allocation covering now (within the early window)
// is used.
type ClockInRequest struct {
	ShiftID *int64 `json:"shift_id,omitempty"`
}

// ClockInResponse returns the created entry id.
type ClockInResponse struct {
	TimeEntryID int64  `json:"time_entry_id"`
	ShiftID     *int64 `json:"shift_id,omitempty"`
	ClockIn     string `json:"clock_in"`
}

// ClockOutResponse reports the session and updated ledger.
type ClockOutResponse struct {
	TimeEntryID  int64   `json:"time_entry_id"`
	ClockOut     string  `json:"clock_out"`
	SessionHours float64 `json:"session_hours"`
	HoursWorked  float64 `json:"hours_worked"`
}

// MarkMissedRequest records an absence for an allocated shift.
type MarkMissedRequest struct {
	Username string `json:"username" validate:"required"`
	ShiftID  int64  `json:"shift_id" validate:"required"`
}

// TodayShiftStatus enumerates the snapshot states.
const (
	TodayNone      = "none"
	TodayFuture    = "future"
	TodayActive    = "active"
	TodayCompleted = "completed"
	TodayError     = "error"
)

// TodayShiftResponse is the volunteer's same-day attendance snapshot.
type TodayShiftResponse struct {
	Status    string `json:"status"`
	ShiftID   *int64 `json:"shift_id,omitempty"`
	TimeRange string `json:"time_range,omitempty"`
	StartsNow bool   `json:"starts_now"`
	TimeUntil string `json:"time_until,omitempty"`
}

// ShiftHistoryEntry is one row of the volunteer's attendance history.
type ShiftHistoryEntry struct {
	TimeEntryID int64   `json:"time_entry_id"`
	ShiftID     *int64  `json:"shift_id,omitempty"`
	Date        string  `json:"date"`
	TimeRange   string  `json:"time_range"`
	Hours       float64 `json:"hours"`
	Status      string  `json:"status"`
}
