package dto

// CourseDemandOverride replaces the default coverage goal for one course.
type CourseDemandOverride struct {
	CourseCode     string `json:"course_code" validate:"required"`
	TutorsRequired int    `json:"tutors_required" validate:"min=1"`
	Weight         int    `json:"weight" validate:"min=1"`
}

// GenerateOptions tune the assignment problem. Zero values fall back to
// the configured defaults (minimum 2, preferred 2, demand 2/weight 2).
type GenerateOptions struct {
	MinimumStaff        int                    `json:"minimum_staff" validate:"omitempty,min=1"`
	PreferredStaff      int                    `json:"preferred_staff" validate:"omitempty,min=1"`
	MaximumStaff        *int                   `json:"maximum_staff,omitempty" validate:"omitempty,min=1"`
	BreakDuration       int                    `json:"break_duration_minutes,omitempty"`
	MaxConsecutiveHours int                    `json:"max_consecutive_hours,omitempty"`
	CourseDemands       []CourseDemandOverride `json:"course_demands,omitempty" validate:"omitempty,dive"`
}

// GenerateScheduleRequest runs the generator for a pool and date range.
type GenerateScheduleRequest struct {
	Kind      string          `json:"kind" validate:"required,oneof=helpdesk lab"`
	StartDate string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	Options   GenerateOptions `json:"options"`
}

// GenerateDetails reports what the generator wrote.
type GenerateDetails struct {
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	ShiftsCreated      int      `json:"shifts_created"`
	AssignmentsCreated int      `json:"assignments_created"`
	RelaxationsApplied []string `json:"relaxations_applied"`
	SolveMillis        int64    `json:"solve_millis"`
}

// GenerateScheduleResponse is the generator result payload. Solver
// infeasibility and timeouts are reported here with status=error, not
// as transport failures.
type GenerateScheduleResponse struct {
	Status     string           `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	ScheduleID int64            `json:"schedule_id,omitempty"`
	Details    *GenerateDetails `json:"details,omitempty"`
}
