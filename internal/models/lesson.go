package models

import "time"

// Lesson belongs to exactly one subject and carries its own publication state.
type Lesson struct {
	ID           string       `db:"id" json:"id"`
	SubjectID    string       `db:"subject_id" json:"subject_id"`
	Title        string       `db:"title" json:"title"`
	Content      string       `db:"content" json:"content"`
	ReviewStatus ReviewStatus `db:"review_status" json:"review_status"`
	Active       bool         `db:"active" json:"active"`
	Version      int64        `db:"version" json:"version"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// LessonCounts aggregates per-subject lesson tallies used by the visibility
// filter. Live counts lessons that are both approved and active.
type LessonCounts struct {
	SubjectID string `db:"subject_id"`
	Total     int    `db:"total"`
	Live      int    `db:"live"`
}
