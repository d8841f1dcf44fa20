package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

type scoreService interface {
	List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ScoreDetail, error)
	Upsert(ctx context.Context, req models.UpsertScoreRequest, actor string) (*models.ScoreDetail, error)
	SaveBatch(ctx context.Context, req models.BatchScoreRequest, actor string) (*models.BatchResult, error)
	Delete(ctx context.Context, id, actor string) error
	Recap(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecapRow, error)
}

// ScoreHandler exposes score entry and the monthly recap.
type ScoreHandler struct {
	scores scoreService
}

// NewScoreHandler constructs ScoreHandler.
func NewScoreHandler(scores scoreService) *ScoreHandler {
	return &ScoreHandler{scores: scores}
}

// List godoc
// @Summary List scores
// @Tags Scores
// @Produce json
// @Param period_id query string true "Period ID"
// @Param class_id query string false "Class ID"
// @Param halaqah_id query string false "Halaqah ID"
// @Param subject_id query string false "Subject ID"
// @Param exam_type query string false "MONTHLY, MIDTERM, SEMESTER or FINAL"
// @Success 200 {object} response.Envelope
// @Router /scores [get]
func (h *ScoreHandler) List(c *gin.Context) {
	var filter models.ScoreFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	if !scopeStudent(c, &filter.StudentID) {
		return
	}
	scores, pagination, err := h.scores.List(c.Request.Context(), filter)
	if err != nil {
		reportError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, pagination)
}

// Get godoc
// @Summary Get score
// @Tags Scores
// @Produce json
// @Param id path string true "Score ID"
// @Success 200 {object} response.Envelope
// @Router /scores/{id} [get]
func (h *ScoreHandler) Get(c *gin.Context) {
	score, err := h.scores.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowStudent(c, score.StudentID) {
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// Upsert godoc
// @Summary Create or replace one score
// @Tags Scores
// @Accept json
// @Produce json
// @Param payload body models.UpsertScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /scores [put]
func (h *ScoreHandler) Upsert(c *gin.Context) {
	var req models.UpsertScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	score, err := h.scores.Upsert(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// SaveBatch godoc
// @Summary Save a table of scores
// @Description Sequential mode stops at the first failing row and reports PARTIAL_SAVE; atomic mode saves all or nothing.
// @Tags Scores
// @Accept json
// @Produce json
// @Param payload body models.BatchScoreRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /scores/batch [post]
func (h *ScoreHandler) SaveBatch(c *gin.Context) {
	var req models.BatchScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.scores.SaveBatch(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	batchSaved(c, result)
}

// Delete godoc
// @Summary Delete score
// @Tags Scores
// @Param id path string true "Score ID"
// @Success 204
// @Router /scores/{id} [delete]
func (h *ScoreHandler) Delete(c *gin.Context) {
	if err := h.scores.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Recap godoc
// @Summary Score recap per student and subject
// @Description Returns an empty list with a notice until period and class or halaqah are chosen.
// @Tags Scores
// @Produce json
// @Param period_id query string true "Period ID"
// @Param class_id query string false "Class ID"
// @Param halaqah_id query string false "Halaqah ID"
// @Param exam_type query string false "Defaults to MONTHLY"
// @Param student_id query string false "Only this student; guardians are limited to their children"
// @Success 200 {object} response.Envelope
// @Router /scores/recap [get]
func (h *ScoreHandler) Recap(c *gin.Context) {
	var filter models.ScoreFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	if !scopeStudent(c, &filter.StudentID) {
		return
	}
	rows, err := h.scores.Recap(c.Request.Context(), filter)
	if err != nil {
		reportError(c, err)
		return
	}
	rows = ownRows(c, rows, func(r models.ScoreRecapRow) string { return r.StudentID })
	response.JSON(c, http.StatusOK, rows, nil)
}

// batchSaved answers a batch save. A batch that stopped early is still a 200 carrying PARTIAL_SAVE
// in meta so clients can show which row failed.
func batchSaved(c *gin.Context, result *models.BatchResult) {
	if result.FailedIndex == nil {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.JSON(c, appErrors.ErrPartialSave.Status, result, nil, map[string]interface{}{
		"code":    appErrors.ErrPartialSave.Code,
		"message": appErrors.ErrPartialSave.Message,
	})
}
