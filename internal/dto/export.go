package dto

// CreateExportRequest asks for a review-state export of the catalog.
type CreateExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}
