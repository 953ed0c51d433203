package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/claudyne/claudyne-content-api/internal/models"
)

// StudentRepository reads and updates learner profiles. Only the education
// level is mutable through this API; the profile subsystem owns the rest.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new repository instance.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "id, user_id, full_name, education_level, created_at, updated_at"

// FindByID returns a student profile by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the student profile owned by the given account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE user_id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// UpdateEducationLevel writes the new level. The write is synchronous; once
// it returns, the next catalog query recomputes against the new level.
func (r *StudentRepository) UpdateEducationLevel(ctx context.Context, id string, level models.EducationLevel) error {
	const query = `UPDATE students SET education_level = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, level, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update education level: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update education level rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("student %s not found", id)
	}
	return nil
}
