package models

// Course is long-lived reference data keyed by its catalogue code.
type Course struct {
	Code   string `db:"code" json:"code"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// CourseCapability records that an assistant may tutor a course on any shift.
type CourseCapability struct {
	Username   string `db:"username" json:"username"`
	CourseCode string `db:"course_code" json:"course_code"`
}
