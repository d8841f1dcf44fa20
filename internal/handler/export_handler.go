package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
	"github.com/noah-isme/tahfidz-admin-api/pkg/viewstate"
)

type exportService interface {
	Generate(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error)
	ResolveDownload(token string) (*service.ExportDownload, error)
}

// ExportHandler renders reports to files and serves the signed downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Generate godoc
// @Summary Export a report
// @Description Renders the report as csv, xlsx, pdf or WhatsApp text and returns a signed download link.
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body models.ExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Generate(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	h.generate(c, req)
}

// GenerateFromQuery godoc
// @Summary Export a report using query parameters
// @Description Every query parameter other than kind and format is passed on as a report filter.
// @Tags Exports
// @Produce json
// @Param kind query string true "Report kind"
// @Param format query string true "csv, xlsx, pdf or txt"
// @Success 201 {object} response.Envelope
// @Router /exports [get]
func (h *ExportHandler) GenerateFromQuery(c *gin.Context) {
	req := models.ExportRequest{
		Kind:    models.ExportKind(c.Query("kind")),
		Format:  models.ExportFormat(c.Query("format")),
		Filters: map[string]string{},
	}
	for key, values := range c.Request.URL.Query() {
		if key == "kind" || key == "format" || len(values) == 0 {
			continue
		}
		req.Filters[key] = values[0]
	}
	h.generate(c, req)
}

func (h *ExportHandler) generate(c *gin.Context, req models.ExportRequest) {
	result, err := h.exports.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrFilterNotReady) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, viewstate.DefaultEmptyNotice))
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export via its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck
	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.FileName),
	})
}
