package service

import (
	"go.uber.org/zap"

	"github.com/claudyne/claudyne-content-api/internal/dto"
	"github.com/claudyne/claudyne-content-api/internal/models"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
)

// LevelService is the single source of truth for translating a student's
// education level code into the subject-level label. Every caller, student
// query and admin diagnostic alike, goes through this service so the mapping
// cannot diverge between surfaces.
type LevelService struct {
	logger *zap.Logger
}

// NewLevelService constructs the level mapper.
func NewLevelService(logger *zap.Logger) *LevelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LevelService{logger: logger}
}

// Verify checks mapping exhaustiveness. Called once at startup; a failure is
// process-fatal so an unmapped code can never reach query time.
func (s *LevelService) Verify() error {
	if err := models.VerifyLevelMapping(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnmappedLevel.Code, appErrors.ErrUnmappedLevel.Status, "level mapping verification failed")
	}
	return nil
}

// MapToLabel resolves the subject-level label for a code.
func (s *LevelService) MapToLabel(code models.EducationLevel) (string, error) {
	label, ok := code.Label()
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown education level code")
	}
	return label, nil
}

// Mappings returns every code and label pair in curriculum order for the
// diagnostic endpoint.
func (s *LevelService) Mappings() []dto.MappingEntry {
	entries := make([]dto.MappingEntry, 0, len(models.AllEducationLevels))
	for _, code := range models.AllEducationLevels {
		label, _ := code.Label()
		entries = append(entries, dto.MappingEntry{Code: code, Label: label})
	}
	return entries
}
