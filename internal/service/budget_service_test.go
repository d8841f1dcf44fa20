package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/repository"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type mockBudgetRepo struct {
	requests     map[string]*models.BudgetRequest
	realizations []models.FundRealization
	ledger       []models.LedgerEntry
	raceStatus   models.BudgetStatus
	summary      []models.BudgetSummary
}

func newMockBudgetRepo(requests ...models.BudgetRequest) *mockBudgetRepo {
	m := &mockBudgetRepo{requests: map[string]*models.BudgetRequest{}}
	for i := range requests {
		r := requests[i]
		m.requests[r.ID] = &r
	}
	return m
}

func (m *mockBudgetRepo) List(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetRequest, int, error) {
	var out []models.BudgetRequest
	for _, r := range m.requests {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *mockBudgetRepo) FindByID(ctx context.Context, id string) (*models.BudgetRequest, error) {
	if r, ok := m.requests[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBudgetRepo) Create(ctx context.Context, request *models.BudgetRequest) error {
	request.ID = "req-new"
	request.Status = models.BudgetPending
	cp := *request
	m.requests[request.ID] = &cp
	return nil
}

func (m *mockBudgetRepo) UpdatePending(ctx context.Context, request *models.BudgetRequest) (bool, error) {
	stored := m.requests[request.ID]
	if stored == nil || stored.Status != models.BudgetPending {
		return false, nil
	}
	cp := *request
	m.requests[request.ID] = &cp
	return true, nil
}

func (m *mockBudgetRepo) Transition(ctx context.Context, request *models.BudgetRequest, from models.BudgetStatus) (bool, error) {
	stored := m.requests[request.ID]
	if stored == nil {
		return false, nil
	}
	if m.raceStatus != "" {
		stored.Status = m.raceStatus
	}
	if stored.Status != from {
		return false, nil
	}
	cp := *request
	m.requests[request.ID] = &cp
	return true, nil
}

func (m *mockBudgetRepo) DeletePending(ctx context.Context, id string) (bool, error) {
	if r := m.requests[id]; r != nil && r.Status == models.BudgetPending {
		delete(m.requests, id)
		return true, nil
	}
	return false, nil
}

func (m *mockBudgetRepo) Summary(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetSummary, error) {
	return m.summary, nil
}

func (m *mockBudgetRepo) ListRealizations(ctx context.Context, requestID string) ([]models.FundRealization, error) {
	return m.realizations, nil
}

// AddRealization mirrors the locked check in the SQL repository.
func (m *mockBudgetRepo) AddRealization(ctx context.Context, realization *models.FundRealization, entry *models.LedgerEntry) error {
	request := m.requests[realization.BudgetRequestID]
	if request == nil {
		return sql.ErrNoRows
	}
	if request.Status != models.BudgetApproved {
		return repository.ErrBudgetNotApproved
	}
	var used float64
	for _, r := range m.realizations {
		used += r.AmountUsed
	}
	if used+realization.AmountUsed > *request.ApprovedAmount {
		return repository.ErrBudgetExceeded
	}
	realization.ID = "real-1"
	entry.SourceID = realization.ID
	m.realizations = append(m.realizations, *realization)
	m.ledger = append(m.ledger, *entry)
	return nil
}

func pendingRequest(id string, amount float64) models.BudgetRequest {
	return models.BudgetRequest{ID: id, ProgramName: "Wisuda Tahfidz", RequestedAmount: amount, Status: models.BudgetPending}
}

func TestBudgetStatusTransitions(t *testing.T) {
	assert.True(t, models.BudgetPending.CanTransition(models.BudgetApproved))
	assert.True(t, models.BudgetPending.CanTransition(models.BudgetRejected))
	assert.True(t, models.BudgetApproved.CanTransition(models.BudgetCompleted))
	assert.False(t, models.BudgetPending.CanTransition(models.BudgetCompleted))
	assert.False(t, models.BudgetRejected.CanTransition(models.BudgetApproved))
	assert.False(t, models.BudgetCompleted.CanTransition(models.BudgetPending))
}

func TestBudgetApproveDefaultsToRequestedAmount(t *testing.T) {
	repo := newMockBudgetRepo(pendingRequest("r1", 1250000))
	audit := &recordingAudit{}
	svc := NewBudgetService(repo, audit, nil, nil)

	approved, err := svc.Approve(context.Background(), "r1", models.BudgetDecisionRequest{}, "kepala-1")
	require.NoError(t, err)
	assert.Equal(t, models.BudgetApproved, approved.Status)
	assert.InDelta(t, 1250000, *approved.ApprovedAmount, 1e-9)
	assert.Equal(t, "kepala-1", *approved.ApprovedBy)
	assert.NotNil(t, approved.DecidedAt)
	assert.Equal(t, []string{models.AuditActionApprove}, audit.actions())
}

func TestBudgetApproveRejectsAmountAboveRequest(t *testing.T) {
	repo := newMockBudgetRepo(pendingRequest("r1", 1000))
	svc := NewBudgetService(repo, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "r1", models.BudgetDecisionRequest{ApprovedAmount: f64(1500)}, "k")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, models.BudgetPending, repo.requests["r1"].Status)
}

func TestBudgetRejectNeedsNote(t *testing.T) {
	repo := newMockBudgetRepo(pendingRequest("r1", 1000))
	svc := NewBudgetService(repo, nil, nil, nil)

	_, err := svc.Reject(context.Background(), "r1", models.BudgetDecisionRequest{}, "k")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	note := " dana belum tersedia "
	rejected, err := svc.Reject(context.Background(), "r1", models.BudgetDecisionRequest{Note: &note}, "k")
	require.NoError(t, err)
	assert.Equal(t, models.BudgetRejected, rejected.Status)
	assert.Equal(t, "dana belum tersedia", *rejected.Note)
}

func TestBudgetInvalidTransitions(t *testing.T) {
	rejected := pendingRequest("r1", 1000)
	rejected.Status = models.BudgetRejected
	repo := newMockBudgetRepo(rejected, pendingRequest("r2", 1000))
	svc := NewBudgetService(repo, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "r1", models.BudgetDecisionRequest{}, "k")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	_, err = svc.Complete(context.Background(), "r2", "k")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestBudgetConcurrentDecisionLoses(t *testing.T) {
	repo := newMockBudgetRepo(pendingRequest("r1", 1000))
	repo.raceStatus = models.BudgetRejected
	svc := NewBudgetService(repo, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "r1", models.BudgetDecisionRequest{}, "k")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestBudgetEditOnlyWhilePending(t *testing.T) {
	approved := pendingRequest("r1", 1000)
	approved.Status = models.BudgetApproved
	repo := newMockBudgetRepo(approved)
	svc := NewBudgetService(repo, nil, nil, nil)

	_, err := svc.Update(context.Background(), "r1", models.BudgetRequestPayload{ProgramName: "x", RequestedAmount: 10}, "b")
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.True(t, errors.Is(svc.Delete(context.Background(), "r1", "b"), appErrors.ErrPreconditionFailed))
}

func TestBudgetRealizationWritesLedgerAndGuardsAmount(t *testing.T) {
	approved := pendingRequest("r1", 1000)
	approved.Status = models.BudgetApproved
	approved.ApprovedAmount = f64(800)
	repo := newMockBudgetRepo(approved)
	svc := NewBudgetService(repo, nil, nil, nil)

	spent := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	realization, err := svc.AddRealization(context.Background(), "r1", models.RealizationRequest{AmountUsed: 500, Purpose: "Konsumsi", SpentAt: spent}, "bendahara")
	require.NoError(t, err)
	require.Len(t, repo.ledger, 1)
	assert.Equal(t, realization.ID, repo.ledger[0].SourceID)
	assert.Equal(t, models.LedgerExpense, repo.ledger[0].EntryType)
	assert.InDelta(t, 500, repo.ledger[0].Amount, 1e-9)

	_, err = svc.AddRealization(context.Background(), "r1", models.RealizationRequest{AmountUsed: 400, Purpose: "Sertifikat", SpentAt: spent}, "bendahara")
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Len(t, repo.ledger, 1)
}

func TestBudgetRealizationNeedsApproval(t *testing.T) {
	repo := newMockBudgetRepo(pendingRequest("r1", 1000))
	svc := NewBudgetService(repo, nil, nil, nil)

	_, err := svc.AddRealization(context.Background(), "r1", models.RealizationRequest{AmountUsed: 1, Purpose: "x", SpentAt: time.Now()}, "b")
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	_, err = svc.AddRealization(context.Background(), "missing", models.RealizationRequest{AmountUsed: 1, Purpose: "x", SpentAt: time.Now()}, "b")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestBudgetSummaryRemaining(t *testing.T) {
	repo := newMockBudgetRepo()
	repo.summary = []models.BudgetSummary{{Status: models.BudgetApproved, Count: 2, Requested: 3000, Approved: 2500, Realized: 1000}}
	svc := NewBudgetService(repo, nil, nil, nil)

	rows, err := svc.Summary(context.Background(), models.BudgetFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 1500, rows[0].Remaining, 1e-9)
}
