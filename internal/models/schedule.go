package models

import "time"

// The two primary schedules live at fixed ids addressed by kind.
// Keep the convention in one place; nothing else hard-codes the numbers.
const (
	HelpDeskScheduleID int64 = 1
	LabScheduleID      int64 = 2
)

// PrimaryScheduleID resolves the fixed id for a staff pool.
func PrimaryScheduleID(kind StaffKind) int64 {
	if kind == StaffLab {
		return LabScheduleID
	}
	return HelpDeskScheduleID
}

// Schedule is a generated roster over a date range.
type Schedule struct {
	ID          int64     `db:"id" json:"id"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	Kind        StaffKind `db:"kind" json:"kind"`
	GeneratedAt time.Time `db:"generated_at" json:"generated_at"`
	IsPublished bool      `db:"is_published" json:"is_published"`
}

// Shift is one scheduled slot on a specific date, owned by a Schedule
// and cascade-deleted with it. start < end; a shift may cross midnight.
type Shift struct {
	ID         int64     `db:"id" json:"id"`
	ScheduleID int64     `db:"schedule_id" json:"schedule_id"`
	Date       time.Time `db:"date" json:"date"`
	StartTime  time.Time `db:"start_time" json:"start_time"`
	EndTime    time.Time `db:"end_time" json:"end_time"`
}

// StartHour is the shift's starting hour on its date.
func (s Shift) StartHour() int { return s.StartTime.Hour() }

// ShiftCourseDemand describes a per-shift coverage goal: how many
// course-capable tutors the shift wants and the weight of falling short.
type ShiftCourseDemand struct {
	ID             int64  `db:"id" json:"id"`
	ShiftID        int64  `db:"shift_id" json:"shift_id"`
	CourseCode     string `db:"course_code" json:"course_code"`
	TutorsRequired int    `db:"tutors_required" json:"tutors_required"`
	Weight         int    `db:"weight" json:"weight"`
}

// Allocation asserts that a staff member works a shift. At most one row
// exists per (shift, staff); the store enforces this with a unique
// constraint and the writers lock the parent shift row.
type Allocation struct {
	ID         int64  `db:"id" json:"id"`
	ScheduleID int64  `db:"schedule_id" json:"schedule_id"`
	ShiftID    int64  `db:"shift_id" json:"shift_id"`
	Username   string `db:"username" json:"username"`
}

// ShiftWithAllocations is the viewer join row for grid rendering.
type ShiftWithAllocations struct {
	Shift
	Assistants []AssistantSummary `json:"assistants"`
}

// AssistantSummary is the lightweight staff shape embedded in grids.
type AssistantSummary struct {
	Username string `db:"username" json:"username"`
	Name     string `db:"name" json:"name"`
}
