package dto

import "github.com/claudyne/claudyne-content-api/internal/models"

// TransitionRequest asks the pipeline to apply a review action against a
// known version of the content item.
type TransitionRequest struct {
	Action  string `json:"action" validate:"required"`
	Version int64  `json:"version" validate:"required,gt=0"`
}

// ActivationRequest toggles the active flag against a known version.
type ActivationRequest struct {
	Active  *bool `json:"active" validate:"required"`
	Version int64 `json:"version" validate:"required,gt=0"`
}

// MappingEntry pairs an education level code with its subject-level label.
type MappingEntry struct {
	Code  models.EducationLevel `json:"code"`
	Label string                `json:"label"`
}
