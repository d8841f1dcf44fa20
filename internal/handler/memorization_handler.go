package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

// MemorizationHandler exposes setoran logs and the memorization report.
type MemorizationHandler struct {
	memorization *service.MemorizationService
}

// NewMemorizationHandler constructs MemorizationHandler.
func NewMemorizationHandler(memorization *service.MemorizationService) *MemorizationHandler {
	return &MemorizationHandler{memorization: memorization}
}

// List godoc
// @Summary List memorization logs
// @Tags Memorization
// @Produce json
// @Param halaqah_id query string false "Halaqah ID"
// @Param class_id query string false "Class ID"
// @Param student_id query string false "Student ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param category query string false "ZIYADAH, MURAJAAH or TASMI"
// @Param q query string false "Search surah or student"
// @Success 200 {object} response.Envelope
// @Router /memorization [get]
func (h *MemorizationHandler) List(c *gin.Context) {
	var filter models.MemorizationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	if !scopeStudent(c, &filter.StudentID) {
		return
	}
	logs, pagination, err := h.memorization.List(c.Request.Context(), filter)
	if err != nil {
		reportError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Get godoc
// @Summary Get memorization log
// @Tags Memorization
// @Produce json
// @Param id path string true "Log ID"
// @Success 200 {object} response.Envelope
// @Router /memorization/{id} [get]
func (h *MemorizationHandler) Get(c *gin.Context) {
	log, err := h.memorization.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowStudent(c, log.StudentID) {
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// Create godoc
// @Summary Record a setoran
// @Tags Memorization
// @Accept json
// @Produce json
// @Param payload body models.MemorizationRequest true "Setoran payload"
// @Success 201 {object} response.Envelope
// @Router /memorization [post]
func (h *MemorizationHandler) Create(c *gin.Context) {
	var req models.MemorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	log, err := h.memorization.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, log)
}

// Update godoc
// @Summary Update a setoran
// @Tags Memorization
// @Accept json
// @Produce json
// @Param id path string true "Log ID"
// @Param payload body models.MemorizationRequest true "Setoran payload"
// @Success 200 {object} response.Envelope
// @Router /memorization/{id} [put]
func (h *MemorizationHandler) Update(c *gin.Context) {
	var req models.MemorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	log, err := h.memorization.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// Delete godoc
// @Summary Delete a setoran
// @Tags Memorization
// @Param id path string true "Log ID"
// @Success 204
// @Router /memorization/{id} [delete]
func (h *MemorizationHandler) Delete(c *gin.Context) {
	if err := h.memorization.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Report godoc
// @Summary Memorization progress per student
// @Description Without from/to or period_id the active month is used.
// @Tags Memorization
// @Produce json
// @Param halaqah_id query string false "Halaqah ID"
// @Param class_id query string false "Class ID"
// @Param period_id query string false "Period ID"
// @Param granularity query string false "WEEK or MONTH"
// @Success 200 {object} response.Envelope
// @Router /memorization/report [get]
func (h *MemorizationHandler) Report(c *gin.Context) {
	var filter models.MemorizationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	if !scopeStudent(c, &filter.StudentID) {
		return
	}
	report, err := h.memorization.Report(c.Request.Context(), filter)
	if err != nil {
		reportError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
