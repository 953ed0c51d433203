package models

import "time"

// Subject represents a course offering in the content catalog. Level carries
// the display label produced by the level mapping, not a student grade code.
type Subject struct {
	ID           string       `db:"id" json:"id"`
	Title        string       `db:"title" json:"title"`
	Category     string       `db:"category" json:"category"`
	Level        string       `db:"level" json:"level"`
	Description  string       `db:"description" json:"description"`
	ReviewStatus ReviewStatus `db:"review_status" json:"review_status"`
	Active       bool         `db:"active" json:"active"`
	Version      int64        `db:"version" json:"version"`
	CreatedBy    string       `db:"created_by" json:"created_by"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// SubjectCategories enumerates the supported catalog categories.
var SubjectCategories = []string{
	"Mathématiques",
	"Français",
	"Sciences",
	"Histoire-Géographie",
	"Langues",
	"Arts",
	"Sport",
	"Informatique",
}

// IsSubjectCategory reports whether the value is a known category.
func IsSubjectCategory(category string) bool {
	for _, c := range SubjectCategories {
		if c == category {
			return true
		}
	}
	return false
}

// SubjectView is the audience-scoped projection returned by catalog queries.
// Progress comes from the external progress collaborator and is passed
// through opaquely, never computed here.
type SubjectView struct {
	Subject
	TotalLessons   int      `json:"total_lessons"`
	VisibleLessons int      `json:"visible_lessons"`
	Progress       *float64 `json:"progress,omitempty"`
}
