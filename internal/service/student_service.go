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

type studentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	UpdateEducationLevel(ctx context.Context, id string, level models.EducationLevel) error
}

// StudentService reads profiles and applies education-level settings
// updates. The update is synchronous: once it returns, the next catalog
// query recomputes against the new level.
type StudentService struct {
	repo      studentRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService creates a new student service.
func NewStudentService(repo studentRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// GetByUserID returns the student profile owned by the account.
func (s *StudentService) GetByUserID(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// UpdateSettings applies the education-level settings update after
// validating the code against the enumeration.
func (s *StudentService) UpdateSettings(ctx context.Context, userID string, req dto.UpdateSettingsRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	level, ok := models.ParseEducationLevel(req.Education.EducationLevel)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown education level %q", req.Education.EducationLevel))
	}

	student, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := student.EducationLevel

	if err := s.repo.UpdateEducationLevel(ctx, student.ID, level); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update education level")
	}
	student.EducationLevel = level

	if s.audit != nil {
		oldValues, _ := json.Marshal(map[string]string{"education_level": string(previous)})
		newValues, _ := json.Marshal(map[string]string{"education_level": string(level)})
		log := &models.AuditLog{
			UserID:     &userID,
			Action:     models.AuditActionSettingsUpdate,
			Resource:   "student",
			ResourceID: &student.ID,
			OldValues:  oldValues,
			NewValues:  newValues,
			IPAddress:  "system",
			UserAgent:  "student-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return student, nil
}
