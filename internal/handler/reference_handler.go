package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/repository"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

// ReferenceHandler serves classes, halaqahs, subjects and teachers.
type ReferenceHandler struct {
	reference *service.ReferenceService
}

// NewReferenceHandler constructs ReferenceHandler.
func NewReferenceHandler(reference *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{reference: reference}
}

// ListClasses godoc
// @Summary List classes
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ReferenceHandler) ListClasses(c *gin.Context) {
	classes, err := h.reference.ListClasses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// ListHalaqahs godoc
// @Summary List halaqahs
// @Tags Reference
// @Produce json
// @Param teacher_id query string false "Only halaqahs led by this teacher"
// @Success 200 {object} response.Envelope
// @Router /halaqahs [get]
func (h *ReferenceHandler) ListHalaqahs(c *gin.Context) {
	halaqahs, err := h.reference.ListHalaqahs(c.Request.Context(), c.Query("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, halaqahs, nil)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Reference
// @Produce json
// @Param category query string false "TAHFIDZ or ACADEMIC"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *ReferenceHandler) ListSubjects(c *gin.Context) {
	category := models.SubjectCategory(strings.ToUpper(c.Query("category")))
	subjects, err := h.reference.ListSubjects(c.Request.Context(), category)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// ListTeachers godoc
// @Summary List teachers
// @Tags Reference
// @Produce json
// @Param active query bool false "Only active teachers"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *ReferenceHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.reference.ListTeachers(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// SaveClass creates a class on POST and updates it on PUT /classes/{id}.
func (h *ReferenceHandler) SaveClass(c *gin.Context) {
	var req models.ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	class, err := h.reference.SaveClass(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	h.saved(c, class, err)
}

// SaveHalaqah creates or updates a halaqah.
func (h *ReferenceHandler) SaveHalaqah(c *gin.Context) {
	var req models.HalaqahRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	halaqah, err := h.reference.SaveHalaqah(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	h.saved(c, halaqah, err)
}

// SaveSubject creates or updates a subject.
func (h *ReferenceHandler) SaveSubject(c *gin.Context) {
	var req models.SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	subject, err := h.reference.SaveSubject(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	h.saved(c, subject, err)
}

// SaveTeacher creates or updates a teacher.
func (h *ReferenceHandler) SaveTeacher(c *gin.Context) {
	var req models.TeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	teacher, err := h.reference.SaveTeacher(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	h.saved(c, teacher, err)
}

// Delete returns a handler removing one row of kind.
func (h *ReferenceHandler) Delete(kind repository.ReferenceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("id") == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id required"))
			return
		}
		if err := h.reference.Delete(c.Request.Context(), kind, c.Param("id"), actorFromContext(c)); err != nil {
			response.Error(c, err)
			return
		}
		response.NoContent(c)
	}
}

func (h *ReferenceHandler) saved(c *gin.Context, data interface{}, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if c.Param("id") == "" {
		response.Created(c, data)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}
