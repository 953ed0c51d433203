package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/claudyne/claudyne-content-api/internal/dto"
	"github.com/claudyne/claudyne-content-api/internal/models"
	"github.com/claudyne/claudyne-content-api/internal/service"
	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
	"github.com/claudyne/claudyne-content-api/pkg/response"
)

// ContentHandler exposes the admin authoring and publication endpoints.
type ContentHandler struct {
	subjects    *service.SubjectService
	lessons     *service.LessonService
	publication *service.PublicationService
	metrics     *service.MetricsService
}

// NewContentHandler creates a new handler.
func NewContentHandler(subjects *service.SubjectService, lessons *service.LessonService, publication *service.PublicationService, metrics *service.MetricsService) *ContentHandler {
	return &ContentHandler{subjects: subjects, lessons: lessons, publication: publication, metrics: metrics}
}

// CreateSubject godoc
// @Summary Create subject
// @Description Creates a new subject in draft state
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /content/subjects [post]
func (h *ContentHandler) CreateSubject(c *gin.Context) {
	var req service.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}

	subject, err := h.subjects.Create(c.Request.Context(), req, h.actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// CreateLesson godoc
// @Summary Create lesson
// @Description Adds a lesson to a subject in draft state
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param payload body service.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/subjects/{id}/lessons [post]
func (h *ContentHandler) CreateLesson(c *gin.Context) {
	var req service.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}

	lesson, err := h.lessons.Create(c.Request.Context(), c.Param("id"), req, h.actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Transition godoc
// @Summary Apply a review action
// @Description Applies a review action (SUBMIT, APPROVE, REJECT, RESUBMIT, REVISE) to a subject or lesson
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Content type" Enums(subject, lesson)
// @Param id path string true "Content ID"
// @Param payload body dto.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /content/{type}/{id}/transition [post]
func (h *ContentHandler) Transition(c *gin.Context) {
	contentType, ok := models.ParseContentType(c.Param("type"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown content type"))
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}

	result, err := h.publication.Transition(c.Request.Context(), contentType, c.Param("id"), req, h.actorID(c))
	if err != nil {
		h.metrics.RecordTransition(req.Action, "rejected")
		response.Error(c, err)
		return
	}
	h.metrics.RecordTransition(req.Action, "applied")

	response.JSON(c, http.StatusOK, result, nil)
}

// SetActive godoc
// @Summary Toggle activation
// @Description Sets the active flag of a subject or lesson without touching its review state
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Content type" Enums(subject, lesson)
// @Param id path string true "Content ID"
// @Param payload body dto.ActivationRequest true "Activation payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /content/{type}/{id}/active [patch]
func (h *ContentHandler) SetActive(c *gin.Context) {
	contentType, ok := models.ParseContentType(c.Param("type"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown content type"))
		return
	}

	var req dto.ActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activation payload"))
		return
	}

	result, err := h.publication.SetActive(c.Request.Context(), contentType, c.Param("id"), req, h.actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// DeleteSubject godoc
// @Summary Delete subject
// @Description Deletes a subject and all of its lessons
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/subjects/{id} [delete]
func (h *ContentHandler) DeleteSubject(c *gin.Context) {
	if err := h.subjects.Delete(c.Request.Context(), c.Param("id"), h.actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *ContentHandler) actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
