package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents an invigilator record from the staff directory.
// The allocation core reads teachers, it never mutates them.
type Teacher struct {
	ID            string         `db:"id" json:"id"`
	FullName      string         `db:"full_name" json:"full_name"`
	Email         string         `db:"email" json:"email"`
	Role          string         `db:"role" json:"role"`
	Subjects      pq.StringArray `db:"subjects" json:"subjects"`
	AvailableDays pq.StringArray `db:"available_days" json:"available_days"`
	Active        bool           `db:"active" json:"active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// RoleTeacher is the directory role considered for invigilation duties.
const RoleTeacher = "teacher"

// AvailableOn reports whether the weekday name is in the teacher's availability set.
func (t *Teacher) AvailableOn(weekday string) bool {
	for _, day := range t.AvailableDays {
		if day == weekday {
			return true
		}
	}
	return false
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Role     string
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
