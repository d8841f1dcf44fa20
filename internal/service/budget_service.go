package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/repository"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/export"
)

type budgetRepository interface {
	List(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.BudgetRequest, error)
	Create(ctx context.Context, request *models.BudgetRequest) error
	UpdatePending(ctx context.Context, request *models.BudgetRequest) (bool, error)
	Transition(ctx context.Context, request *models.BudgetRequest, from models.BudgetStatus) (bool, error)
	DeletePending(ctx context.Context, id string) (bool, error)
	Summary(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetSummary, error)
	ListRealizations(ctx context.Context, requestID string) ([]models.FundRealization, error)
	AddRealization(ctx context.Context, realization *models.FundRealization, entry *models.LedgerEntry) error
}

// BudgetService handles budget requests, their approval flow and fund realizations.
type BudgetService struct {
	repo      budgetRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBudgetService constructs the service.
func NewBudgetService(repo budgetRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *BudgetService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &BudgetService{repo: repo, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// List returns budget requests.
func (s *BudgetService) List(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetRequest, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list budget requests")
	}
	return requests, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns one request.
func (s *BudgetService) Get(ctx context.Context, id string) (*models.BudgetRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "budget request")
	}
	return request, nil
}

// Create files a new PENDING request on behalf of actor.
func (s *BudgetService) Create(ctx context.Context, payload models.BudgetRequestPayload, actor string) (*models.BudgetRequest, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, validationError(err)
	}
	request := &models.BudgetRequest{
		ProgramName:     strings.TrimSpace(payload.ProgramName),
		Description:     strings.TrimSpace(payload.Description),
		RequestedAmount: payload.RequestedAmount,
		RequestedBy:     actor,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, writeError(err, "failed to create budget request")
	}
	s.record(ctx, actor, models.AuditActionCreate, request, nil, "pengajuan "+export.FormatCurrency(request.RequestedAmount))
	return request, nil
}

// Update edits a request that is still PENDING.
func (s *BudgetService) Update(ctx context.Context, id string, payload models.BudgetRequestPayload, actor string) (*models.BudgetRequest, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, validationError(err)
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "budget request")
	}
	if request.Status != models.BudgetPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only pending requests can be edited")
	}
	before := *request
	request.ProgramName = strings.TrimSpace(payload.ProgramName)
	request.Description = strings.TrimSpace(payload.Description)
	request.RequestedAmount = payload.RequestedAmount
	updated, err := s.repo.UpdatePending(ctx, request)
	if err != nil {
		return nil, writeError(err, "failed to update budget request")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only pending requests can be edited")
	}
	s.record(ctx, actor, models.AuditActionUpdate, request, &before, "")
	return request, nil
}

// Delete removes a request that is still PENDING.
func (s *BudgetService) Delete(ctx context.Context, id, actor string) error {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "budget request")
	}
	if request.Status != models.BudgetPending {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "only pending requests can be deleted")
	}
	deleted, err := s.repo.DeletePending(ctx, id)
	if err != nil {
		return writeError(err, "failed to delete budget request")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "only pending requests can be deleted")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionDelete,
		EntityType: "budget_request",
		EntityID:   &request.ID,
		EntityName: request.ProgramName,
		Before:     request,
	})
	return nil
}

// Approve moves a PENDING request to DISETUJUI. The approved amount defaults to the requested
// amount and may not exceed it.
func (s *BudgetService) Approve(ctx context.Context, id string, req models.BudgetDecisionRequest, actor string) (*models.BudgetRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	return s.transition(ctx, id, models.BudgetApproved, actor, func(request *models.BudgetRequest) error {
		amount := request.RequestedAmount
		if req.ApprovedAmount != nil {
			amount = *req.ApprovedAmount
		}
		if amount > request.RequestedAmount {
			return appErrors.Clone(appErrors.ErrValidation, "approved amount exceeds the requested amount")
		}
		request.ApprovedAmount = &amount
		request.Note = req.Note
		return nil
	})
}

// Reject moves a PENDING request to DITOLAK. A note is required.
func (s *BudgetService) Reject(ctx context.Context, id string, req models.BudgetDecisionRequest, actor string) (*models.BudgetRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Note == nil || strings.TrimSpace(*req.Note) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a note is required to reject a request")
	}
	return s.transition(ctx, id, models.BudgetRejected, actor, func(request *models.BudgetRequest) error {
		note := strings.TrimSpace(*req.Note)
		request.Note = &note
		request.ApprovedAmount = nil
		return nil
	})
}

// Complete closes an approved request.
func (s *BudgetService) Complete(ctx context.Context, id, actor string) (*models.BudgetRequest, error) {
	return s.transition(ctx, id, models.BudgetCompleted, actor, nil)
}

func (s *BudgetService) transition(ctx context.Context, id string, to models.BudgetStatus, actor string, apply func(*models.BudgetRequest) error) (*models.BudgetRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "budget request")
	}
	from := request.Status
	if !from.CanTransition(to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move a %s request to %s", from, to))
	}
	before := *request
	if apply != nil {
		if err := apply(request); err != nil {
			return nil, err
		}
	}
	request.Status = to
	if to != models.BudgetCompleted {
		now := s.now().UTC()
		request.DecidedAt = &now
		request.ApprovedBy = &actor
	}
	moved, err := s.repo.Transition(ctx, request, from)
	if err != nil {
		return nil, writeError(err, "failed to update budget status")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request status changed, reload and try again")
	}

	action := models.AuditActionApprove
	switch to {
	case models.BudgetRejected:
		action = models.AuditActionReject
	case models.BudgetCompleted:
		action = models.AuditActionComplete
	}
	s.record(ctx, actor, action, request, &before, fmt.Sprintf("%s -> %s", from, to))
	return request, nil
}

// AddRealization records spending against an approved request together with its ledger expense.
func (s *BudgetService) AddRealization(ctx context.Context, requestID string, req models.RealizationRequest, actor string) (*models.FundRealization, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	realization := &models.FundRealization{
		BudgetRequestID: requestID,
		AmountUsed:      req.AmountUsed,
		Purpose:         strings.TrimSpace(req.Purpose),
		SpentAt:         req.SpentAt,
		CreatedBy:       actor,
	}
	entry := &models.LedgerEntry{
		EntryType:   models.LedgerExpense,
		Amount:      req.AmountUsed,
		Description: "Realisasi anggaran: " + realization.Purpose,
		Source:      "fund_realization",
		EntryDate:   req.SpentAt,
	}
	if err := s.repo.AddRealization(ctx, realization, entry); err != nil {
		switch {
		case isNotFound(err):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "budget request not found")
		case errors.Is(err, repository.ErrBudgetNotApproved):
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "realizations can only be added to approved requests")
		case errors.Is(err, repository.ErrBudgetExceeded):
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "realization exceeds the approved amount")
		default:
			return nil, writeError(err, "failed to record realization")
		}
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionCreate,
		EntityType:  "fund_realization",
		EntityID:    &realization.ID,
		EntityName:  realization.Purpose,
		Description: "realisasi " + export.FormatCurrency(realization.AmountUsed),
		After:       realization,
	})
	return realization, nil
}

// ListRealizations returns the realizations of a request.
func (s *BudgetService) ListRealizations(ctx context.Context, requestID string) ([]models.FundRealization, error) {
	if _, err := s.repo.FindByID(ctx, requestID); err != nil {
		return nil, loadError(err, "budget request")
	}
	rows, err := s.repo.ListRealizations(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list realizations")
	}
	if rows == nil {
		rows = []models.FundRealization{}
	}
	return rows, nil
}

// Summary totals requests per status and the amount still unspent.
func (s *BudgetService) Summary(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetSummary, error) {
	rows, err := s.repo.Summary(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize budget")
	}
	for i := range rows {
		rows[i].Remaining = rows[i].Approved - rows[i].Realized
	}
	if rows == nil {
		rows = []models.BudgetSummary{}
	}
	return rows, nil
}

func (s *BudgetService) record(ctx context.Context, actor, action string, request *models.BudgetRequest, before *models.BudgetRequest, description string) {
	entry := models.AuditEntry{
		Actor:       actor,
		Action:      action,
		EntityType:  "budget_request",
		EntityID:    &request.ID,
		EntityName:  request.ProgramName,
		Description: description,
		After:       request,
	}
	if before != nil {
		entry.Before = before
	}
	s.audit.Record(ctx, entry)
}
