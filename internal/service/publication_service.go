package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/claudyne/claudyne-content-api/internal/dto"
	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
)

type publicationSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	UpdateReviewStatus(ctx context.Context, id string, next models.ReviewStatus, version int64) (int64, error)
	UpdateActive(ctx context.Context, id string, active bool, version int64) (int64, error)
}

type publicationLessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	UpdateReviewStatus(ctx context.Context, id string, next models.ReviewStatus, version int64) (int64, error)
	UpdateActive(ctx context.Context, id string, active bool, version int64) (int64, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// PublicationService is the single mutation entry point for publication
// state. Review status moves only through the transition table; the active
// flag toggles independently. Every write is version-guarded so concurrent
// admin edits cannot silently overwrite each other.
type PublicationService struct {
	subjects  publicationSubjectRepository
	lessons   publicationLessonRepository
	audit     auditLogger
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPublicationService constructs the pipeline service.
func NewPublicationService(subjects publicationSubjectRepository, lessons publicationLessonRepository, audit auditLogger, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *PublicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicationService{
		subjects:  subjects,
		lessons:   lessons,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Transition applies a review action to a subject or lesson. Illegal actions
// fail with INVALID_TRANSITION and leave state untouched; a stale base
// version fails with CONCURRENT_MODIFICATION so the caller can refetch and
// retry. The result reports prior and new state for the caller's own audit.
func (s *PublicationService) Transition(ctx context.Context, contentType models.ContentType, id string, req dto.TransitionRequest, actorID string) (*models.TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	action, ok := models.ParseReviewAction(req.Action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", req.Action))
	}

	current, err := s.currentStatus(ctx, contentType, id)
	if err != nil {
		return nil, err
	}

	next, ok := models.NextReviewStatus(current, action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("action %s is not legal from %s (allowed: %v)", action, current, models.LegalReviewActions(current)))
	}

	newVersion, err := s.applyStatus(ctx, contentType, id, next, req.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStaleVersion, "content was modified concurrently, refetch and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}

	result := &models.TransitionResult{
		ContentType: contentType,
		ContentID:   id,
		Previous:    current,
		Next:        next,
		Version:     newVersion,
	}
	s.emitAudit(ctx, actorID, models.AuditActionContentTransition, contentType, id, current, next)
	s.invalidateCatalog(ctx)
	return result, nil
}

// SetActive toggles the activation flag. Review status and its history are
// untouched, so a deactivated approved item stays approved.
func (s *PublicationService) SetActive(ctx context.Context, contentType models.ContentType, id string, req dto.ActivationRequest, actorID string) (*models.TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activation payload")
	}

	current, err := s.currentStatus(ctx, contentType, id)
	if err != nil {
		return nil, err
	}

	var newVersion int64
	switch contentType {
	case models.ContentTypeSubject:
		newVersion, err = s.subjects.UpdateActive(ctx, id, *req.Active, req.Version)
	case models.ContentTypeLesson:
		newVersion, err = s.lessons.UpdateActive(ctx, id, *req.Active, req.Version)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown content type")
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStaleVersion, "content was modified concurrently, refetch and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activation")
	}

	result := &models.TransitionResult{
		ContentType: contentType,
		ContentID:   id,
		Previous:    current,
		Next:        current,
		Version:     newVersion,
	}
	s.emitAudit(ctx, actorID, models.AuditActionContentActivate, contentType, id, current, current)
	s.invalidateCatalog(ctx)
	return result, nil
}

func (s *PublicationService) currentStatus(ctx context.Context, contentType models.ContentType, id string) (models.ReviewStatus, error) {
	switch contentType {
	case models.ContentTypeSubject:
		subject, err := s.subjects.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.Clone(appErrors.ErrNotFound, "subject not found")
			}
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		return subject.ReviewStatus, nil
	case models.ContentTypeLesson:
		lesson, err := s.lessons.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
			}
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
		}
		return lesson.ReviewStatus, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown content type")
	}
}

func (s *PublicationService) applyStatus(ctx context.Context, contentType models.ContentType, id string, next models.ReviewStatus, version int64) (int64, error) {
	switch contentType {
	case models.ContentTypeSubject:
		return s.subjects.UpdateReviewStatus(ctx, id, next, version)
	case models.ContentTypeLesson:
		return s.lessons.UpdateReviewStatus(ctx, id, next, version)
	default:
		return 0, fmt.Errorf("unknown content type %s", contentType)
	}
}

func (s *PublicationService) emitAudit(ctx context.Context, actorID, action string, contentType models.ContentType, id string, previous, next models.ReviewStatus) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"review_status": string(previous)})
	newValues, _ := json.Marshal(map[string]string{"review_status": string(next)})
	log := &models.AuditLog{
		Action:     action,
		Resource:   string(contentType),
		ResourceID: &id,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "publication-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *PublicationService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
