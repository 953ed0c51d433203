package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/claudyne/claudyne-content-api/internal/models"
	"github.com/claudyne/claudyne-content-api/internal/service"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
	"github.com/claudyne/claudyne-content-api/pkg/response"
)

// CatalogHandler serves the audience-scoped catalog read endpoints.
type CatalogHandler struct {
	catalog  *service.CatalogService
	students *service.StudentService
	levels   *service.LevelService
	metrics  *service.MetricsService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(catalog *service.CatalogService, students *service.StudentService, levels *service.LevelService, metrics *service.MetricsService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, students: students, levels: levels, metrics: metrics}
}

// ListSubjects godoc
// @Summary List visible subjects
// @Description Lists the subjects visible to the caller. Admins see every subject, students see their own level, anonymous callers see the public view.
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	audience, student, err := h.resolveAudience(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	views, err := h.catalog.VisibleSubjects(c.Request.Context(), audience, student)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCatalogRequest(string(audience))

	response.JSON(c, http.StatusOK, views, nil)
}

// ListLessons godoc
// @Summary List a subject's visible lessons
// @Description Lists the lessons of a subject visible to the caller. Subjects outside the caller's view respond 404.
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/lessons [get]
func (h *CatalogHandler) ListLessons(c *gin.Context) {
	audience, student, err := h.resolveAudience(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	lessons, err := h.catalog.VisibleLessons(c.Request.Context(), audience, c.Param("id"), student)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lessons, nil)
}

// ListMappings godoc
// @Summary List level mappings
// @Description Lists every education level code and its subject-level label
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mapping [get]
func (h *CatalogHandler) ListMappings(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.levels.Mappings(), nil)
}

// GetMapping godoc
// @Summary Resolve one level mapping
// @Description Resolves the subject-level label for a single education level code
// @Tags Catalog
// @Produce json
// @Param code path string true "Education level code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mapping/{code} [get]
func (h *CatalogHandler) GetMapping(c *gin.Context) {
	code, ok := models.ParseEducationLevel(c.Param("code"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown education level code"))
		return
	}
	label, err := h.levels.MapToLabel(code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"code": code, "label": label}, nil)
}

// resolveAudience derives the caller's audience and, for students, loads the
// profile the level gate needs.
func (h *CatalogHandler) resolveAudience(c *gin.Context) (models.Audience, *models.Student, error) {
	claims := claimsFromContext(c)
	audience := audienceFromClaims(claims)
	if audience != models.AudienceStudent {
		return audience, nil, nil
	}

	student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		return audience, nil, err
	}
	return audience, student, nil
}
