package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

// ViolationHandler exposes the discipline register.
type ViolationHandler struct {
	violations *service.ViolationService
}

// NewViolationHandler constructs ViolationHandler.
func NewViolationHandler(violations *service.ViolationService) *ViolationHandler {
	return &ViolationHandler{violations: violations}
}

func violationFilter(c *gin.Context) (models.ViolationFilter, error) {
	filter := models.ViolationFilter{
		StudentID: c.Query("student_id"),
		Category:  strings.TrimSpace(c.Query("category")),
		Status:    models.ViolationStatus(strings.ToUpper(c.Query("status"))),
	}
	filter.Level, _ = strconv.Atoi(c.Query("level"))
	filter.Page, filter.PageSize = pageParams(c)
	var err error
	filter.From, filter.To, err = dateRangeQuery(c)
	return filter, err
}

// List godoc
// @Summary List violations
// @Tags Violations
// @Produce json
// @Param student_id query string false "Student ID"
// @Param level query int false "Severity 1-4"
// @Param status query string false "OPEN, PROSES or SELESAI"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /violations [get]
func (h *ViolationHandler) List(c *gin.Context) {
	filter, err := violationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	violations, pagination, err := h.violations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violations, pagination)
}

// Get godoc
// @Summary Get violation
// @Tags Violations
// @Produce json
// @Param id path string true "Violation ID"
// @Success 200 {object} response.Envelope
// @Router /violations/{id} [get]
func (h *ViolationHandler) Get(c *gin.Context) {
	violation, err := h.violations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violation, nil)
}

// Create godoc
// @Summary Report a violation
// @Tags Violations
// @Accept json
// @Produce json
// @Param payload body models.ViolationRequest true "Violation payload"
// @Success 201 {object} response.Envelope
// @Router /violations [post]
func (h *ViolationHandler) Create(c *gin.Context) {
	var req models.ViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	violation, err := h.violations.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, violation)
}

// Update godoc
// @Summary Edit a violation
// @Tags Violations
// @Accept json
// @Produce json
// @Param id path string true "Violation ID"
// @Param payload body models.ViolationRequest true "Violation payload"
// @Success 200 {object} response.Envelope
// @Router /violations/{id} [put]
func (h *ViolationHandler) Update(c *gin.Context) {
	var req models.ViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	violation, err := h.violations.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violation, nil)
}

// Advance godoc
// @Summary Move a violation forward in its handling
// @Tags Violations
// @Accept json
// @Produce json
// @Param id path string true "Violation ID"
// @Param payload body models.ViolationStatusRequest true "Next status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /violations/{id}/status [patch]
func (h *ViolationHandler) Advance(c *gin.Context) {
	var req models.ViolationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	violation, err := h.violations.Advance(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violation, nil)
}

// Delete godoc
// @Summary Delete violation
// @Tags Violations
// @Param id path string true "Violation ID"
// @Success 204
// @Router /violations/{id} [delete]
func (h *ViolationHandler) Delete(c *gin.Context) {
	if err := h.violations.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Recap godoc
// @Summary Violation counts per student
// @Tags Violations
// @Produce json
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /violations/recap [get]
func (h *ViolationHandler) Recap(c *gin.Context) {
	filter, err := violationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.violations.Recap(c.Request.Context(), filter)
	if err != nil {
		reportError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
