package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/claudyne/claudyne-content-api/internal/dto"
	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
)

type mockPublicationSubjectRepo struct {
	subjects map[string]*models.Subject
}

func (m *mockPublicationSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPublicationSubjectRepo) UpdateReviewStatus(ctx context.Context, id string, next models.ReviewStatus, version int64) (int64, error) {
	s, ok := m.subjects[id]
	if !ok || s.Version != version {
		return 0, sql.ErrNoRows
	}
	s.ReviewStatus = next
	s.Version++
	return s.Version, nil
}

func (m *mockPublicationSubjectRepo) UpdateActive(ctx context.Context, id string, active bool, version int64) (int64, error) {
	s, ok := m.subjects[id]
	if !ok || s.Version != version {
		return 0, sql.ErrNoRows
	}
	s.Active = active
	s.Version++
	return s.Version, nil
}

type mockPublicationLessonRepo struct {
	lessons map[string]*models.Lesson
}

func (m *mockPublicationLessonRepo) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if l, ok := m.lessons[id]; ok {
		copy := *l
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPublicationLessonRepo) UpdateReviewStatus(ctx context.Context, id string, next models.ReviewStatus, version int64) (int64, error) {
	l, ok := m.lessons[id]
	if !ok || l.Version != version {
		return 0, sql.ErrNoRows
	}
	l.ReviewStatus = next
	l.Version++
	return l.Version, nil
}

func (m *mockPublicationLessonRepo) UpdateActive(ctx context.Context, id string, active bool, version int64) (int64, error) {
	l, ok := m.lessons[id]
	if !ok || l.Version != version {
		return 0, sql.ErrNoRows
	}
	l.Active = active
	l.Version++
	return l.Version, nil
}

type mockAuditLogger struct {
	logs []models.AuditLog
}

func (m *mockAuditLogger) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

type mockCacheInvalidator struct {
	patterns []string
}

func (m *mockCacheInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func newPublicationFixture(status models.ReviewStatus, version int64) (*PublicationService, *mockPublicationSubjectRepo, *mockAuditLogger, *mockCacheInvalidator) {
	subjects := &mockPublicationSubjectRepo{subjects: map[string]*models.Subject{
		"s1": {ID: "s1", Title: "Maths", ReviewStatus: status, Version: version},
	}}
	lessons := &mockPublicationLessonRepo{lessons: map[string]*models.Lesson{
		"l1": {ID: "l1", SubjectID: "s1", ReviewStatus: status, Version: version},
	}}
	audit := &mockAuditLogger{}
	cache := &mockCacheInvalidator{}
	svc := NewPublicationService(subjects, lessons, audit, cache, validator.New(), zap.NewNop())
	return svc, subjects, audit, cache
}

func TestTransitionSubmitDraft(t *testing.T) {
	svc, subjects, audit, cache := newPublicationFixture(models.ReviewStatusDraft, 1)

	result, err := svc.Transition(context.Background(), models.ContentTypeSubject, "s1",
		dto.TransitionRequest{Action: "SUBMIT", Version: 1}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, models.ReviewStatusDraft, result.Previous)
	assert.Equal(t, models.ReviewStatusPendingReview, result.Next)
	assert.Equal(t, int64(2), result.Version)
	assert.Equal(t, models.ReviewStatusPendingReview, subjects.subjects["s1"].ReviewStatus)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionContentTransition, audit.logs[0].Action)
	assert.Equal(t, []string{"catalog:*"}, cache.patterns)
}

func TestTransitionIllegalActionLeavesStateUntouched(t *testing.T) {
	svc, subjects, audit, cache := newPublicationFixture(models.ReviewStatusDraft, 1)

	_, err := svc.Transition(context.Background(), models.ContentTypeSubject, "s1",
		dto.TransitionRequest{Action: "APPROVE", Version: 1}, "admin-1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, models.ReviewStatusDraft, subjects.subjects["s1"].ReviewStatus)
	assert.Equal(t, int64(1), subjects.subjects["s1"].Version)
	assert.Empty(t, audit.logs)
	assert.Empty(t, cache.patterns)
}

func TestTransitionStaleVersionConflicts(t *testing.T) {
	svc, subjects, _, _ := newPublicationFixture(models.ReviewStatusPendingReview, 3)

	_, err := svc.Transition(context.Background(), models.ContentTypeSubject, "s1",
		dto.TransitionRequest{Action: "APPROVE", Version: 2}, "admin-1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStaleVersion.Code, appErr.Code)
	assert.Equal(t, models.ReviewStatusPendingReview, subjects.subjects["s1"].ReviewStatus)
}

func TestTransitionConcurrentApproveRejectOneWins(t *testing.T) {
	svc, subjects, _, _ := newPublicationFixture(models.ReviewStatusPendingReview, 1)

	// Both admins read version 1; the first write wins, the second conflicts.
	_, err := svc.Transition(context.Background(), models.ContentTypeSubject, "s1",
		dto.TransitionRequest{Action: "APPROVE", Version: 1}, "admin-1")
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), models.ContentTypeSubject, "s1",
		dto.TransitionRequest{Action: "REJECT", Version: 1}, "admin-2")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStaleVersion.Code, appErr.Code)
	assert.Equal(t, models.ReviewStatusApproved, subjects.subjects["s1"].ReviewStatus)
}

func TestTransitionFullCycle(t *testing.T) {
	svc, subjects, _, _ := newPublicationFixture(models.ReviewStatusDraft, 1)

	version := int64(1)
	for _, step := range []struct {
		action string
		next   models.ReviewStatus
	}{
		{"SUBMIT", models.ReviewStatusPendingReview},
		{"REJECT", models.ReviewStatusRejected},
		{"RESUBMIT", models.ReviewStatusPendingReview},
		{"APPROVE", models.ReviewStatusApproved},
		{"REVISE", models.ReviewStatusDraft},
	} {
		result, err := svc.Transition(context.Background(), models.ContentTypeSubject, "s1",
			dto.TransitionRequest{Action: step.action, Version: version}, "admin-1")
		require.NoError(t, err, "action %s", step.action)
		assert.Equal(t, step.next, result.Next)
		version = result.Version
	}
	assert.Equal(t, models.ReviewStatusDraft, subjects.subjects["s1"].ReviewStatus)
	assert.Equal(t, int64(6), subjects.subjects["s1"].Version)
}

func TestTransitionUnknownActionRejected(t *testing.T) {
	svc, _, _, _ := newPublicationFixture(models.ReviewStatusDraft, 1)

	_, err := svc.Transition(context.Background(), models.ContentTypeSubject, "s1",
		dto.TransitionRequest{Action: "PUBLISH", Version: 1}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTransitionUnknownContentNotFound(t *testing.T) {
	svc, _, _, _ := newPublicationFixture(models.ReviewStatusDraft, 1)

	_, err := svc.Transition(context.Background(), models.ContentTypeSubject, "missing",
		dto.TransitionRequest{Action: "SUBMIT", Version: 1}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTransitionLesson(t *testing.T) {
	svc, _, _, _ := newPublicationFixture(models.ReviewStatusDraft, 1)

	result, err := svc.Transition(context.Background(), models.ContentTypeLesson, "l1",
		dto.TransitionRequest{Action: "SUBMIT", Version: 1}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeLesson, result.ContentType)
	assert.Equal(t, models.ReviewStatusPendingReview, result.Next)
}

func TestSetActivePreservesReviewStatus(t *testing.T) {
	svc, subjects, audit, cache := newPublicationFixture(models.ReviewStatusApproved, 1)

	active := true
	result, err := svc.SetActive(context.Background(), models.ContentTypeSubject, "s1",
		dto.ActivationRequest{Active: &active, Version: 1}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, result.Previous, result.Next)
	assert.Equal(t, models.ReviewStatusApproved, subjects.subjects["s1"].ReviewStatus)
	assert.True(t, subjects.subjects["s1"].Active)
	assert.Equal(t, int64(2), result.Version)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionContentActivate, audit.logs[0].Action)
	assert.NotEmpty(t, cache.patterns)
}

func TestSetActiveStaleVersionConflicts(t *testing.T) {
	svc, _, _, _ := newPublicationFixture(models.ReviewStatusApproved, 5)

	active := false
	_, err := svc.SetActive(context.Background(), models.ContentTypeSubject, "s1",
		dto.ActivationRequest{Active: &active, Version: 4}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStaleVersion.Code, appErr.Code)
}
