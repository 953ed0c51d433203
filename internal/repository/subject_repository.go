package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/claudyne/claudyne-content-api/internal/models"
)

// SubjectRepository handles persistence for catalog subjects. All reads
// return insertion order so visibility results are stable across audiences.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = "id, title, category, level, description, review_status, active, version, created_by, created_at, updated_at"

// List returns every subject regardless of publication state, in insertion order.
func (r *SubjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects ORDER BY created_at ASC, id ASC", subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListByLevel returns subjects tagged with the given level label, in insertion order.
func (r *SubjectRepository) ListByLevel(ctx context.Context, level string) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE level = $1 ORDER BY created_at ASC, id ASC", subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, level); err != nil {
		return nil, fmt.Errorf("list subjects by level: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create persists a new subject. New subjects always start in DRAFT,
// inactive, at version 1.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.ReviewStatus = models.ReviewStatusDraft
	subject.Active = false
	subject.Version = 1
	subject.CreatedAt = now
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, title, category, level, description, review_status, active, version, created_by, created_at, updated_at)
VALUES (:id, :title, :category, :level, :description, :review_status, :active, :version, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// UpdateReviewStatus moves the subject to the next review status when the
// caller's base version still matches. A stale version affects zero rows and
// surfaces as sql.ErrNoRows so the service can report the conflict.
func (r *SubjectRepository) UpdateReviewStatus(ctx context.Context, id string, next models.ReviewStatus, version int64) (int64, error) {
	const query = `UPDATE subjects SET review_status = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4 RETURNING version`
	var newVersion int64
	if err := r.db.GetContext(ctx, &newVersion, query, next, time.Now().UTC(), id, version); err != nil {
		return 0, err
	}
	return newVersion, nil
}

// UpdateActive toggles the activation flag under the same version guard.
// The review status is deliberately left untouched.
func (r *SubjectRepository) UpdateActive(ctx context.Context, id string, active bool, version int64) (int64, error) {
	const query = `UPDATE subjects SET active = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4 RETURNING version`
	var newVersion int64
	if err := r.db.GetContext(ctx, &newVersion, query, active, time.Now().UTC(), id, version); err != nil {
		return 0, err
	}
	return newVersion, nil
}

// Delete removes a subject and cascades to its lessons in one transaction.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete subject: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE subject_id = $1`, id); err != nil {
		return fmt.Errorf("delete subject lessons: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subject rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
