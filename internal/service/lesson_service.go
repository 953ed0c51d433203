package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
)

type lessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
}

type lessonSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// CreateLessonRequest captures fields for authoring a lesson.
type CreateLessonRequest struct {
	Title   string `json:"title" validate:"required,min=2,max=150"`
	Content string `json:"content" validate:"required"`
}

// LessonService handles lesson authoring. Like subjects, lessons start in
// DRAFT and move only through the publication pipeline.
type LessonService struct {
	repo      lessonRepository
	subjects  lessonSubjectReader
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService creates a new lesson service.
func NewLessonService(repo lessonRepository, subjects lessonSubjectReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, subjects: subjects, audit: audit, validator: validate, logger: logger}
}

// Get returns lesson by identifier.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}

// Create adds a lesson to an existing subject, in DRAFT.
func (s *LessonService) Create(ctx context.Context, subjectID string, req CreateLessonRequest, actorID string) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	lesson := &models.Lesson{
		SubjectID: subjectID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}

	if s.audit != nil {
		log := &models.AuditLog{
			Action:     models.AuditActionContentCreate,
			Resource:   string(models.ContentTypeLesson),
			ResourceID: &lesson.ID,
			IPAddress:  "system",
			UserAgent:  "lesson-service",
		}
		if actorID != "" {
			log.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return lesson, nil
}
