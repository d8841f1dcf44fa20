package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

type semesterReportService interface {
	Ranking(ctx context.Context, filter models.SemesterReportFilter) (*models.SemesterReport, error)
	ReportCard(ctx context.Context, periodID, studentID string) (*models.ReportCard, error)
}

// SemesterReportHandler exposes the semester ranking and report cards.
type SemesterReportHandler struct {
	reports semesterReportService
}

// NewSemesterReportHandler constructs SemesterReportHandler.
func NewSemesterReportHandler(reports semesterReportService) *SemesterReportHandler {
	return &SemesterReportHandler{reports: reports}
}

// Ranking godoc
// @Summary Semester ranking of a class or halaqah
// @Tags Reports
// @Produce json
// @Param period_id query string true "Semester period ID"
// @Param class_id query string false "Class ID"
// @Param halaqah_id query string false "Halaqah ID"
// @Description Guardians receive only their children's rows; ranks still count the whole group.
// @Success 200 {object} response.Envelope
// @Router /reports/semester [get]
func (h *SemesterReportHandler) Ranking(c *gin.Context) {
	var filter models.SemesterReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	report, err := h.reports.Ranking(c.Request.Context(), filter)
	if err != nil {
		reportError(c, err)
		return
	}
	if isGuardian(c) {
		scoped := *report
		scoped.Rows = ownRows(c, report.Rows, func(r models.SemesterReportRow) string { return r.StudentID })
		report = &scoped
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ReportCard godoc
// @Summary Student report card
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Param period_id query string true "Semester period ID"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{id} [get]
func (h *SemesterReportHandler) ReportCard(c *gin.Context) {
	periodID := c.Query("period_id")
	if periodID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "period_id required"))
		return
	}
	if !allowStudent(c, c.Param("id")) {
		return
	}
	card, err := h.reports.ReportCard(c.Request.Context(), periodID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}
