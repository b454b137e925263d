package models

import "time"

// UserKind tags the two account variants sharing the users table header.
type UserKind string

const (
	KindAdmin   UserKind = "admin"
	KindStudent UserKind = "student"
)

// User is the shared account header. Per-kind detail lives in separate
// tables joined by username (students, help_desk_assistants, ...).
type User struct {
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Kind         UserKind  `db:"kind" json:"kind"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Degree levels determine the default hourly rate for help-desk staff.
type Degree string

const (
	DegreeBSc Degree = "BSc"
	DegreeMSc Degree = "MSc"
)

// DefaultHourlyRate maps a degree to its contract rate.
func DefaultHourlyRate(d Degree) float64 {
	if d == DegreeMSc {
		return 35
	}
	return 20
}

// Student is the 1:1 detail record for User(kind=student). Profile extras
// are a typed map of known optional fields, never a dynamic blob.
type Student struct {
	Username string            `db:"username" json:"username"`
	Name     string            `db:"name" json:"name"`
	Degree   Degree            `db:"degree" json:"degree"`
	Profile  map[string]string `db:"-" json:"profile,omitempty"`
}

// HelpDeskAssistant is the help-desk staffing role attached to a Student.
type HelpDeskAssistant struct {
	Username     string  `db:"username" json:"username"`
	HourlyRate   float64 `db:"hourly_rate" json:"hourly_rate"`
	Active       bool    `db:"active" json:"active"`
	HoursWorked  float64 `db:"hours_worked" json:"hours_worked"`
	HoursMinimum int     `db:"hours_minimum" json:"hours_minimum"`
}

// LabAssistant is the lab staffing role. Scheduling treats the two pools
// as disjoint even though a student could in principle hold both.
type LabAssistant struct {
	Username    string `db:"username" json:"username"`
	Active      bool   `db:"active" json:"active"`
	Experienced bool   `db:"experienced" json:"experienced"`
}

// StaffKind selects one of the two assistant pools.
type StaffKind string

const (
	StaffHelpDesk StaffKind = "helpdesk"
	StaffLab      StaffKind = "lab"
)

// Valid reports whether the kind is one of the two pools.
func (k StaffKind) Valid() bool {
	return k == StaffHelpDesk || k == StaffLab
}

// DefaultHoursMinimum is the weekly shift floor applied to new assistants.
const DefaultHoursMinimum = 4
