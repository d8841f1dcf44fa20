package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

// BudgetHandler exposes budget requests, their approval flow and realizations.
type BudgetHandler struct {
	budgets *service.BudgetService
}

// NewBudgetHandler constructs BudgetHandler.
func NewBudgetHandler(budgets *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgets: budgets}
}

func budgetFilter(c *gin.Context) (models.BudgetFilter, error) {
	filter := models.BudgetFilter{
		Status:    models.BudgetStatus(strings.ToUpper(c.Query("status"))),
		Search:    strings.TrimSpace(c.Query("q")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	var err error
	filter.From, filter.To, err = dateRangeQuery(c)
	return filter, err
}

// List godoc
// @Summary List budget requests
// @Tags Budget
// @Produce json
// @Param status query string false "PENDING, DISETUJUI, DITOLAK or SELESAI"
// @Param q query string false "Search program name"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	filter, err := budgetFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	requests, pagination, err := h.budgets.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get budget request
// @Tags Budget
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /budgets/{id} [get]
func (h *BudgetHandler) Get(c *gin.Context) {
	request, err := h.budgets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Create godoc
// @Summary Submit budget request
// @Tags Budget
// @Accept json
// @Produce json
// @Param payload body models.BudgetRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /budgets [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	var payload models.BudgetRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	request, err := h.budgets.Create(c.Request.Context(), payload, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Update godoc
// @Summary Edit a pending budget request
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.BudgetRequestPayload true "Request payload"
// @Success 200 {object} response.Envelope
// @Router /budgets/{id} [put]
func (h *BudgetHandler) Update(c *gin.Context) {
	var payload models.BudgetRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	request, err := h.budgets.Update(c.Request.Context(), c.Param("id"), payload, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Delete godoc
// @Summary Delete a pending budget request
// @Tags Budget
// @Param id path string true "Request ID"
// @Success 204
// @Router /budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	if err := h.budgets.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve a pending request
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.BudgetDecisionRequest false "Approved amount, defaults to the requested amount"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /budgets/{id}/approve [post]
func (h *BudgetHandler) Approve(c *gin.Context) {
	var req models.BudgetDecisionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, invalidPayload(err))
			return
		}
	}
	request, err := h.budgets.Approve(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a pending request
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.BudgetDecisionRequest true "Rejection note"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /budgets/{id}/reject [post]
func (h *BudgetHandler) Reject(c *gin.Context) {
	var req models.BudgetDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	request, err := h.budgets.Reject(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Complete godoc
// @Summary Close an approved request
// @Tags Budget
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /budgets/{id}/complete [post]
func (h *BudgetHandler) Complete(c *gin.Context) {
	request, err := h.budgets.Complete(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// AddRealization godoc
// @Summary Record spending against an approved request
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.RealizationRequest true "Realization payload"
// @Success 201 {object} response.Envelope
// @Router /budgets/{id}/realizations [post]
func (h *BudgetHandler) AddRealization(c *gin.Context) {
	var req models.RealizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	realization, err := h.budgets.AddRealization(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, realization)
}

// ListRealizations godoc
// @Summary List realizations of a request
// @Tags Budget
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /budgets/{id}/realizations [get]
func (h *BudgetHandler) ListRealizations(c *gin.Context) {
	rows, err := h.budgets.ListRealizations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Summary godoc
// @Summary Budget totals per status
// @Tags Budget
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /budgets/summary [get]
func (h *BudgetHandler) Summary(c *gin.Context) {
	filter, err := budgetFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.budgets.Summary(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
