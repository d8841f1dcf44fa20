package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

type reportViewService interface {
	Apply(ctx context.Context, actor, kind string, bind func(interface{}) error) (interface{}, error)
	Snapshot(actor, kind string) (interface{}, error)
	Close(actor, kind string)
}

// ReportViewHandler serves live report views: the client sends every filter change and always
// gets back the state of its latest selection.
type ReportViewHandler struct {
	views reportViewService
}

// NewReportViewHandler constructs ReportViewHandler.
func NewReportViewHandler(views reportViewService) *ReportViewHandler {
	return &ReportViewHandler{views: views}
}

// Apply godoc
// @Summary Change the filter of a live report view
// @Description The filter is read from the query string using the report's own parameters.
// @Tags Report Views
// @Produce json
// @Param kind path string true "scores, semester-ranking, memorization or attendance"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /report-views/{kind} [put]
func (h *ReportViewHandler) Apply(c *gin.Context) {
	if !staffOnly(c) {
		return
	}
	snapshot, err := h.views.Apply(c.Request.Context(), actorID(c), c.Param("kind"), func(dest interface{}) error {
		return c.ShouldBindQuery(dest)
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Snapshot godoc
// @Summary Current state of a live report view
// @Tags Report Views
// @Produce json
// @Param kind path string true "Report kind"
// @Success 200 {object} response.Envelope
// @Router /report-views/{kind} [get]
func (h *ReportViewHandler) Snapshot(c *gin.Context) {
	if !staffOnly(c) {
		return
	}
	snapshot, err := h.views.Snapshot(actorID(c), c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Close godoc
// @Summary Drop a live report view
// @Tags Report Views
// @Param kind path string true "Report kind"
// @Success 204
// @Router /report-views/{kind} [delete]
func (h *ReportViewHandler) Close(c *gin.Context) {
	h.views.Close(actorID(c), c.Param("kind"))
	response.NoContent(c)
}
