package dto

// AssignmentRow is one grid cell in a bulk save: a (day, time) slot and
// the staff who should hold it.
type AssignmentRow struct {
	Day   string   `json:"day" validate:"required"`
	Time  string   `json:"time" validate:"required"`
	Staff []string `json:"staff" validate:"required"`
}

// SaveAssignmentsRequest bulk-upserts a grid window atomically.
type SaveAssignmentsRequest struct {
	Kind      string          `json:"kind" validate:"required,oneof=helpdesk lab"`
	StartDate string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	Rows      []AssignmentRow `json:"assignments" validate:"required,min=1,dive"`
}

// AddAllocationRequest inserts one allocation.
type AddAllocationRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=helpdesk lab"`
	Username string `json:"username" validate:"required"`
	ShiftID  int64  `json:"shift_id" validate:"required"`
}

// RemoveAllocationRequest deletes one allocation, addressed either by
// shift id or by (day, time) on the primary schedule.
type RemoveAllocationRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=helpdesk lab"`
	Username string `json:"username" validate:"required"`
	ShiftID  *int64 `json:"shift_id,omitempty"`
	Day      string `json:"day,omitempty"`
	Time     string `json:"time,omitempty"`
}

// ClearScheduleRequest removes shifts and allocations in a window.
type ClearScheduleRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=helpdesk lab"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}
