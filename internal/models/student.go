package models

import "time"

// Student represents a learner profile. The education level is the sole input
// driving which subjects the student sees; the profile subsystem owns the
// rest of the record.
type Student struct {
	ID             string         `db:"id" json:"id"`
	UserID         string         `db:"user_id" json:"user_id"`
	FullName       string         `db:"full_name" json:"full_name"`
	EducationLevel EducationLevel `db:"education_level" json:"education_level"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
