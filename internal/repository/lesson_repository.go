package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/claudyne/claudyne-content-api/internal/models"
)

// LessonRepository handles persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new repository instance.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = "id, subject_id, title, content, review_status, active, version, created_at, updated_at"

// ListBySubject returns a subject's lessons in insertion order.
func (r *LessonRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.Lesson, error) {
	query := fmt.Sprintf("SELECT %s FROM lessons WHERE subject_id = $1 ORDER BY created_at ASC, id ASC", lessonColumns)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, subjectID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// FindByID returns a lesson by id.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf("SELECT %s FROM lessons WHERE id = $1", lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Create persists a new lesson in DRAFT, inactive, at version 1.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lesson.ReviewStatus = models.ReviewStatusDraft
	lesson.Active = false
	lesson.Version = 1
	lesson.CreatedAt = now
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, subject_id, title, content, review_status, active, version, created_at, updated_at)
VALUES (:id, :subject_id, :title, :content, :review_status, :active, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// UpdateReviewStatus applies the version-guarded status write; stale versions
// surface as sql.ErrNoRows.
func (r *LessonRepository) UpdateReviewStatus(ctx context.Context, id string, next models.ReviewStatus, version int64) (int64, error) {
	const query = `UPDATE lessons SET review_status = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4 RETURNING version`
	var newVersion int64
	if err := r.db.GetContext(ctx, &newVersion, query, next, time.Now().UTC(), id, version); err != nil {
		return 0, err
	}
	return newVersion, nil
}

// UpdateActive toggles the activation flag without touching review status.
func (r *LessonRepository) UpdateActive(ctx context.Context, id string, active bool, version int64) (int64, error) {
	const query = `UPDATE lessons SET active = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND version = $4 RETURNING version`
	var newVersion int64
	if err := r.db.GetContext(ctx, &newVersion, query, active, time.Now().UTC(), id, version); err != nil {
		return 0, err
	}
	return newVersion, nil
}

// CountsBySubject aggregates lesson tallies for the given subjects in one
// scan. Live counts lessons that are approved and active, the condition the
// lesson-liveness gate needs.
func (r *LessonRepository) CountsBySubject(ctx context.Context, subjectIDs []string) (map[string]models.LessonCounts, error) {
	counts := make(map[string]models.LessonCounts, len(subjectIDs))
	if len(subjectIDs) == 0 {
		return counts, nil
	}
	const query = `SELECT subject_id,
COUNT(*) AS total,
COUNT(*) FILTER (WHERE review_status = 'APPROVED' AND active) AS live
FROM lessons WHERE subject_id = ANY($1) GROUP BY subject_id`
	var rows []models.LessonCounts
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}
	for _, row := range rows {
		counts[row.SubjectID] = row
	}
	return counts, nil
}
