package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
)

type mockSubjectAuthoringRepo struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectAuthoringRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectAuthoringRepo) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = "s-new"
	subject.ReviewStatus = models.ReviewStatusDraft
	subject.Active = false
	subject.Version = 1
	copy := *subject
	m.subjects[subject.ID] = &copy
	return nil
}

func (m *mockSubjectAuthoringRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.subjects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.subjects, id)
	return nil
}

func TestSubjectCreateStartsInDraft(t *testing.T) {
	repo := &mockSubjectAuthoringRepo{subjects: map[string]*models.Subject{}}
	audit := &mockAuditLogger{}
	svc := NewSubjectService(repo, audit, nil, nil, nil)

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{
		Title:    "  Physique  ",
		Category: "Sciences",
		Level:    "Tle",
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "Physique", subject.Title)
	assert.Equal(t, models.ReviewStatusDraft, subject.ReviewStatus)
	assert.False(t, subject.Active)
	assert.Equal(t, int64(1), subject.Version)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionContentCreate, audit.logs[0].Action)
}

func TestSubjectCreateRejectsUnknownLevelLabel(t *testing.T) {
	repo := &mockSubjectAuthoringRepo{subjects: map[string]*models.Subject{}}
	svc := NewSubjectService(repo, nil, nil, nil, nil)

	// A grade code is not a level label; the mapping output is required.
	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Title:    "Physique",
		Category: "Sciences",
		Level:    "TERMINALE",
	}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.subjects)
}

func TestSubjectCreateRejectsUnknownCategory(t *testing.T) {
	svc := NewSubjectService(&mockSubjectAuthoringRepo{subjects: map[string]*models.Subject{}}, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Title:    "Physique",
		Category: "Astrologie",
		Level:    "Tle",
	}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSubjectDelete(t *testing.T) {
	repo := &mockSubjectAuthoringRepo{subjects: map[string]*models.Subject{
		"s1": {ID: "s1", Title: "Maths"},
	}}
	audit := &mockAuditLogger{}
	cache := &mockCacheInvalidator{}
	svc := NewSubjectService(repo, audit, cache, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "s1", "admin-1"))
	assert.Empty(t, repo.subjects)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionContentDelete, audit.logs[0].Action)
	assert.Equal(t, []string{"catalog:*"}, cache.patterns)

	err := svc.Delete(context.Background(), "s1", "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	// The failed delete changed nothing, so no further invalidation.
	assert.Len(t, cache.patterns, 1)
}

// mockSubjectStore backs both the catalog read surface and the authoring
// service with the same data set.
type mockSubjectStore struct {
	*mockCatalogSubjectRepo
}

func (m *mockSubjectStore) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = "s-new"
	subject.ReviewStatus = models.ReviewStatusDraft
	subject.Version = 1
	m.subjects = append(m.subjects, *subject)
	return nil
}

func (m *mockSubjectStore) Delete(ctx context.Context, id string) error {
	for i, s := range m.subjects {
		if s.ID == id {
			m.subjects = append(m.subjects[:i], m.subjects[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestSubjectDeleteEvictsCachedPublicCatalog(t *testing.T) {
	subjects, lessons := catalogFixture()
	store := &mockSubjectStore{mockCatalogSubjectRepo: subjects}
	cache := &mockCatalogStore{}

	catalog := NewCatalogService(store, lessons, NewLevelService(nil), zap.NewNop(),
		WithCatalogCache(cache, time.Minute))
	authoring := NewSubjectService(store, nil, cache, nil, nil)

	before, err := catalog.VisibleSubjects(context.Background(), models.AudiencePublic, nil)
	require.NoError(t, err)
	require.Len(t, before, 2)
	require.NotEmpty(t, cache.store)

	require.NoError(t, authoring.Delete(context.Background(), "s-live-tle", "admin-1"))
	assert.Equal(t, []string{"catalog:*"}, cache.deletes)

	after, err := catalog.VisibleSubjects(context.Background(), models.AudiencePublic, nil)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "s-live-mat", after[0].ID)
}
