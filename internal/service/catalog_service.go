package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
)

type catalogSubjectRepository interface {
	List(ctx context.Context) ([]models.Subject, error)
	ListByLevel(ctx context.Context, level string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type catalogLessonRepository interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.Lesson, error)
	CountsBySubject(ctx context.Context, subjectIDs []string) (map[string]models.LessonCounts, error)
}

type levelMapper interface {
	MapToLabel(code models.EducationLevel) (string, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type catalogMetrics interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// ProgressProvider supplies per-subject progress for a student. Progress is
// owned by an external collaborator; values are passed through untouched.
type ProgressProvider interface {
	Progress(ctx context.Context, studentID string, subjectIDs []string) (map[string]float64, error)
}

const publicCatalogCacheKey = "catalog:public"

// CatalogService is the read surface of the content catalog. All three
// audiences go through the same predicate chain; the audience only selects
// which gates apply, so the admin, public and student listings can never
// drift apart.
type CatalogService struct {
	subjects catalogSubjectRepository
	lessons  catalogLessonRepository
	levels   levelMapper
	progress ProgressProvider
	cache    catalogCache
	cacheTTL time.Duration
	metrics  catalogMetrics
	logger   *zap.Logger
}

// CatalogServiceOption configures optional collaborators.
type CatalogServiceOption func(*CatalogService)

// WithProgressProvider attaches the external progress collaborator.
func WithProgressProvider(provider ProgressProvider) CatalogServiceOption {
	return func(s *CatalogService) {
		if provider != nil {
			s.progress = provider
		}
	}
}

// WithCatalogCache enables public-view caching with the given TTL.
func WithCatalogCache(cache catalogCache, ttl time.Duration) CatalogServiceOption {
	return func(s *CatalogService) {
		if cache != nil && ttl > 0 {
			s.cache = cache
			s.cacheTTL = ttl
		}
	}
}

// WithCatalogMetrics records timings for the catalog's database reads.
func WithCatalogMetrics(metrics catalogMetrics) CatalogServiceOption {
	return func(s *CatalogService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// NewCatalogService constructs the catalog read service.
func NewCatalogService(subjects catalogSubjectRepository, lessons catalogLessonRepository, levels levelMapper, logger *zap.Logger, opts ...CatalogServiceOption) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CatalogService{
		subjects: subjects,
		lessons:  lessons,
		levels:   levels,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// VisibleSubjects returns the audience-scoped catalog view in insertion
// order. An empty result is a valid outcome, never an error.
//
// The predicate chain runs in a fixed order: audience gate, activation gate,
// review gate, level gate (students only, via the level mapper), and finally
// the lesson-liveness gate which needs one aggregate scan.
func (s *CatalogService) VisibleSubjects(ctx context.Context, audience models.Audience, student *models.Student) ([]models.SubjectView, error) {
	switch audience {
	case models.AudienceAdmin:
		return s.adminView(ctx)
	case models.AudiencePublic:
		return s.publicView(ctx)
	case models.AudienceStudent:
		return s.studentView(ctx, student)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown audience")
	}
}

func (s *CatalogService) observeQuery(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func (s *CatalogService) listSubjects(ctx context.Context) ([]models.Subject, error) {
	start := time.Now()
	subjects, err := s.subjects.List(ctx)
	s.observeQuery("subjects_list", start)
	return subjects, err
}

func (s *CatalogService) adminView(ctx context.Context) ([]models.SubjectView, error) {
	subjects, err := s.listSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	counts, err := s.lessonCounts(ctx, subjects)
	if err != nil {
		return nil, err
	}

	views := make([]models.SubjectView, 0, len(subjects))
	for _, subject := range subjects {
		views = append(views, s.buildView(subject, counts))
	}
	return views, nil
}

func (s *CatalogService) publicView(ctx context.Context) ([]models.SubjectView, error) {
	if s.cache != nil {
		var cached []models.SubjectView
		err := s.cache.Get(ctx, publicCatalogCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		// A miss is the normal cold path; anything else (corrupt payload,
		// transport failure) must not stay invisible.
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("failed to read public catalog cache", zap.Error(err))
		}
	}

	subjects, err := s.listSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	views, err := s.filterLive(ctx, subjects)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, publicCatalogCacheKey, views, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache public catalog", zap.Error(err))
		}
	}
	return views, nil
}

func (s *CatalogService) studentView(ctx context.Context, student *models.Student) ([]models.SubjectView, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "student profile required")
	}
	label, err := s.levels.MapToLabel(student.EducationLevel)
	if err != nil {
		return nil, err
	}

	// Level gate applied in the query; the remaining gates match PUBLIC.
	// Recomputed on every call so a settings change is observed immediately.
	start := time.Now()
	subjects, err := s.subjects.ListByLevel(ctx, label)
	s.observeQuery("subjects_by_level", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	views, err := s.filterLive(ctx, subjects)
	if err != nil {
		return nil, err
	}

	if s.progress != nil && len(views) > 0 {
		ids := make([]string, len(views))
		for i, view := range views {
			ids[i] = view.ID
		}
		progress, err := s.progress.Progress(ctx, student.ID, ids)
		if err != nil {
			s.logger.Warn("failed to load progress", zap.Error(err))
		} else {
			for i := range views {
				if value, ok := progress[views[i].ID]; ok {
					v := value
					views[i].Progress = &v
				}
			}
		}
	}
	return views, nil
}

// filterLive applies the activation, review and lesson-liveness gates.
func (s *CatalogService) filterLive(ctx context.Context, subjects []models.Subject) ([]models.SubjectView, error) {
	candidates := make([]models.Subject, 0, len(subjects))
	for _, subject := range subjects {
		if !subject.Active {
			continue
		}
		if subject.ReviewStatus != models.ReviewStatusApproved {
			continue
		}
		candidates = append(candidates, subject)
	}

	counts, err := s.lessonCounts(ctx, candidates)
	if err != nil {
		return nil, err
	}

	views := make([]models.SubjectView, 0, len(candidates))
	for _, subject := range candidates {
		if counts[subject.ID].Live == 0 {
			continue
		}
		views = append(views, s.buildView(subject, counts))
	}
	return views, nil
}

func (s *CatalogService) lessonCounts(ctx context.Context, subjects []models.Subject) (map[string]models.LessonCounts, error) {
	if len(subjects) == 0 {
		return map[string]models.LessonCounts{}, nil
	}
	ids := make([]string, len(subjects))
	for i, subject := range subjects {
		ids[i] = subject.ID
	}
	start := time.Now()
	counts, err := s.lessons.CountsBySubject(ctx, ids)
	s.observeQuery("lesson_counts", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lessons")
	}
	return counts, nil
}

func (s *CatalogService) buildView(subject models.Subject, counts map[string]models.LessonCounts) models.SubjectView {
	c := counts[subject.ID]
	return models.SubjectView{
		Subject:        subject,
		TotalLessons:   c.Total,
		VisibleLessons: c.Live,
	}
}

// VisibleLessons returns a subject's lessons scoped to the audience. A
// subject that fails the caller's gates is reported as not found rather than
// leaking its existence.
func (s *CatalogService) VisibleLessons(ctx context.Context, audience models.Audience, subjectID string, student *models.Student) ([]models.Lesson, error) {
	start := time.Now()
	subject, err := s.subjects.FindByID(ctx, subjectID)
	s.observeQuery("subject_by_id", start)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	start = time.Now()
	lessons, err := s.lessons.ListBySubject(ctx, subjectID)
	s.observeQuery("lessons_by_subject", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}

	if audience == models.AudienceAdmin {
		return lessons, nil
	}

	if !subject.Active || subject.ReviewStatus != models.ReviewStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	if audience == models.AudienceStudent {
		if student == nil {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "student profile required")
		}
		label, err := s.levels.MapToLabel(student.EducationLevel)
		if err != nil {
			return nil, err
		}
		if subject.Level != label {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
	}

	visible := make([]models.Lesson, 0, len(lessons))
	for _, lesson := range lessons {
		if lesson.Active && lesson.ReviewStatus == models.ReviewStatusApproved {
			visible = append(visible, lesson)
		}
	}
	if len(visible) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return visible, nil
}
