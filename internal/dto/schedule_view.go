package dto

// GridShift is one cell of the schedule tree.
type GridShift struct {
	ShiftID        int64       `json:"shift_id"`
	Time           string      `json:"time"`
	Hour           int         `json:"hour"`
	Date           string      `json:"date"`
	Assistants     []GridStaff `json:"assistants"`
	AvailableStaff []GridStaff `json:"available_staff,omitempty"`
}

// GridStaff is the staff shape embedded in grid cells.
type GridStaff struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// GridDay groups a date's shifts.
type GridDay struct {
	Day     string      `json:"day"`
	DayCode int         `json:"day_code"`
	Date    string      `json:"date"`
	Shifts  []GridShift `json:"shifts"`
}

// ScheduleGrid is the full viewer tree for one primary schedule.
type ScheduleGrid struct {
	ScheduleID  int64     `json:"schedule_id"`
	DateRange   string    `json:"date_range"`
	IsPublished bool      `json:"is_published"`
	Kind        string    `json:"kind"`
	Days        []GridDay `json:"days"`
}

// VolunteerDashboard is the aggregate snapshot for the volunteer view.
type VolunteerDashboard struct {
	Student   interface{}         `json:"student"`
	NextShift *GridShift          `json:"next_shift,omitempty"`
	MyShifts  []GridShift         `json:"my_shifts"`
	Today     *TodayShiftResponse `json:"today,omitempty"`
	Schedule  *ScheduleGrid       `json:"schedule,omitempty"`
}
