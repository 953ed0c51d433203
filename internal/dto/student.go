package dto

// EducationSettings carries the education section of a settings update.
type EducationSettings struct {
	EducationLevel string `json:"educationLevel" validate:"required"`
}

// UpdateSettingsRequest mirrors the profile settings payload shape accepted
// from clients: {"education": {"educationLevel": "..."}}.
type UpdateSettingsRequest struct {
	Education EducationSettings `json:"education" validate:"required"`
}
