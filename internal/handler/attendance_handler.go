package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

// AttendanceHandler exposes halaqah attendance.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// RecordBatch godoc
// @Summary Record one session for many students
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.AttendanceBatchRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) RecordBatch(c *gin.Context) {
	var req models.AttendanceBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.attendance.RecordBatch(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	batchSaved(c, result)
}

// List godoc
// @Summary List attendance rows
// @Tags Attendance
// @Produce json
// @Param halaqah_id query string false "Halaqah ID"
// @Param class_id query string false "Class ID"
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	if !scopeStudent(c, &filter.StudentID) {
		return
	}
	records, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		reportError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Delete godoc
// @Summary Delete attendance row
// @Tags Attendance
// @Param id path string true "Attendance ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Recap godoc
// @Summary Attendance recap per student
// @Tags Attendance
// @Produce json
// @Param halaqah_id query string false "Halaqah ID"
// @Param class_id query string false "Class ID"
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /attendance/recap [get]
func (h *AttendanceHandler) Recap(c *gin.Context) {
	var filter models.AttendanceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	if !scopeStudent(c, &filter.StudentID) {
		return
	}
	rows, err := h.attendance.Recap(c.Request.Context(), filter)
	if err != nil {
		reportError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
