package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
)

type subjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// CreateSubjectRequest captures fields for authoring a subject. The level is
// a subject-level label (the mapping's output), never a student grade code.
type CreateSubjectRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=100"`
	Category    string `json:"category" validate:"required"`
	Level       string `json:"level" validate:"required"`
	Description string `json:"description"`
}

// SubjectService handles subject authoring workflows. Publication state is
// out of its hands: new subjects start in DRAFT and only the publication
// pipeline moves them.
type SubjectService struct {
	repo      subjectRepository
	audit     auditLogger
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, audit auditLogger, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// Get returns subject by identifier.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create adds a new subject in DRAFT. The level must be a label the mapping
// can produce, otherwise no student could ever see the subject.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest, actorID string) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	req.Level = strings.TrimSpace(req.Level)
	if !models.IsSubjectLevelLabel(req.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown subject level %q", req.Level))
	}
	if !models.IsSubjectCategory(req.Category) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", req.Category))
	}

	subject := &models.Subject{
		Title:       strings.TrimSpace(req.Title),
		Category:    req.Category,
		Level:       req.Level,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   actorID,
	}

	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.emitAudit(ctx, actorID, models.AuditActionContentCreate, subject.ID)
	return subject, nil
}

// Delete removes a subject and its lessons. A deleted subject may still sit
// in the cached public catalog, so the catalog keys are invalidated the same
// way the publication pipeline does on its writes.
func (s *SubjectService) Delete(ctx context.Context, id string, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.emitAudit(ctx, actorID, models.AuditActionContentDelete, id)
	s.invalidateCatalog(ctx)
	return nil
}

func (s *SubjectService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}

func (s *SubjectService) emitAudit(ctx context.Context, actorID, action, subjectID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   string(models.ContentTypeSubject),
		ResourceID: &subjectID,
		IPAddress:  "system",
		UserAgent:  "subject-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
