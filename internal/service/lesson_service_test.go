package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
)

type mockLessonAuthoringRepo struct {
	lessons map[string]*models.Lesson
}

func (m *mockLessonAuthoringRepo) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if l, ok := m.lessons[id]; ok {
		copy := *l
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonAuthoringRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	lesson.ID = "l-new"
	lesson.ReviewStatus = models.ReviewStatusDraft
	lesson.Active = false
	lesson.Version = 1
	copy := *lesson
	m.lessons[lesson.ID] = &copy
	return nil
}

type mockLessonSubjectReader struct {
	subjects map[string]*models.Subject
}

func (m *mockLessonSubjectReader) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func TestLessonCreateStartsInDraft(t *testing.T) {
	repo := &mockLessonAuthoringRepo{lessons: map[string]*models.Lesson{}}
	subjects := &mockLessonSubjectReader{subjects: map[string]*models.Subject{
		"s1": {ID: "s1", Title: "Maths"},
	}}
	audit := &mockAuditLogger{}
	svc := NewLessonService(repo, subjects, audit, nil, nil)

	lesson, err := svc.Create(context.Background(), "s1", CreateLessonRequest{
		Title:   " Les fractions ",
		Content: "...",
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "Les fractions", lesson.Title)
	assert.Equal(t, "s1", lesson.SubjectID)
	assert.Equal(t, models.ReviewStatusDraft, lesson.ReviewStatus)
	assert.False(t, lesson.Active)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionContentCreate, audit.logs[0].Action)
}

func TestLessonCreateUnknownSubject(t *testing.T) {
	repo := &mockLessonAuthoringRepo{lessons: map[string]*models.Lesson{}}
	subjects := &mockLessonSubjectReader{subjects: map[string]*models.Subject{}}
	svc := NewLessonService(repo, subjects, nil, nil, nil)

	_, err := svc.Create(context.Background(), "missing", CreateLessonRequest{
		Title:   "Les fractions",
		Content: "...",
	}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, repo.lessons)
}

func TestLessonCreateValidatesPayload(t *testing.T) {
	svc := NewLessonService(&mockLessonAuthoringRepo{lessons: map[string]*models.Lesson{}},
		&mockLessonSubjectReader{subjects: map[string]*models.Subject{}}, nil, nil, nil)

	_, err := svc.Create(context.Background(), "s1", CreateLessonRequest{Title: "x"}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
