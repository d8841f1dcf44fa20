package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

type broadcastService interface {
	Start(ctx context.Context, req models.BroadcastRequest, actor string) (*models.BroadcastStatus, error)
	Status(ctx context.Context, id string) (*models.BroadcastStatus, error)
	Cancel(ctx context.Context, id, actor string) (*models.BroadcastStatus, error)
}

// BroadcastHandler starts and tracks WhatsApp mass sends to guardians.
type BroadcastHandler struct {
	broadcasts broadcastService
}

// NewBroadcastHandler constructs BroadcastHandler.
func NewBroadcastHandler(broadcasts broadcastService) *BroadcastHandler {
	return &BroadcastHandler{broadcasts: broadcasts}
}

// Start godoc
// @Summary Queue a broadcast to guardians
// @Description Messages go out one at a time on the configured interval. Poll the status endpoint for progress.
// @Tags Broadcasts
// @Accept json
// @Produce json
// @Param payload body models.BroadcastRequest true "Template and recipients"
// @Success 202 {object} response.Envelope
// @Router /broadcasts [post]
func (h *BroadcastHandler) Start(c *gin.Context) {
	var req models.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	status, err := h.broadcasts.Start(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, status, nil)
}

// Status godoc
// @Summary Broadcast progress
// @Tags Broadcasts
// @Produce json
// @Param id path string true "Broadcast ID"
// @Success 200 {object} response.Envelope
// @Router /broadcasts/{id} [get]
func (h *BroadcastHandler) Status(c *gin.Context) {
	status, err := h.broadcasts.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Cancel godoc
// @Summary Stop the remaining sends
// @Tags Broadcasts
// @Produce json
// @Param id path string true "Broadcast ID"
// @Success 200 {object} response.Envelope
// @Router /broadcasts/{id} [delete]
func (h *BroadcastHandler) Cancel(c *gin.Context) {
	status, err := h.broadcasts.Cancel(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
