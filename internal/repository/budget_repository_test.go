package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
)

var budgetRowColumns = []string{"id", "program_name", "description", "requested_amount", "approved_amount", "status", "requested_by", "approved_by", "decided_at", "note", "created_at", "updated_at"}

func approvedBudgetRow(approved float64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(budgetRowColumns).
		AddRow("req-1", "Kitab", "", 1000000.0, approved, models.BudgetApproved, "u1", "u2", now, nil, now, now)
}

func TestBudgetRepositoryAddRealizationWritesLedgerInSameTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBudgetRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM budget_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(approvedBudgetRow(800000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount_used), 0) FROM fund_realizations WHERE budget_request_id = $1")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(500000.0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fund_realizations")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	realization := &models.FundRealization{BudgetRequestID: "req-1", AmountUsed: 300000, Purpose: "Beli kitab", SpentAt: time.Now(), CreatedBy: "u3"}
	entry := &models.LedgerEntry{EntryType: models.LedgerExpense, Amount: 300000, Description: "Beli kitab", Source: "fund_realization", EntryDate: time.Now()}
	require.NoError(t, repo.AddRealization(context.Background(), realization, entry))
	assert.Equal(t, realization.ID, entry.SourceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepositoryAddRealizationRejectsOverspend(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBudgetRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(approvedBudgetRow(800000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount_used), 0)")).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(700000.0))
	mock.ExpectRollback()

	err := repo.AddRealization(context.Background(), &models.FundRealization{BudgetRequestID: "req-1", AmountUsed: 200000}, &models.LedgerEntry{})
	assert.True(t, errors.Is(err, ErrBudgetExceeded))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepositoryAddRealizationRollsBackWhenLedgerFails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBudgetRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(approvedBudgetRow(800000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount_used), 0)")).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(0.0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fund_realizations")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.AddRealization(context.Background(), &models.FundRealization{BudgetRequestID: "req-1", AmountUsed: 100}, &models.LedgerEntry{})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepositoryTransitionGuardsCurrentStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBudgetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $8")).
		WithArgs("req-1", models.BudgetRejected, nil, "u2", sqlmock.AnyArg(), nil, sqlmock.AnyArg(), models.BudgetPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	approver := "u2"
	now := time.Now()
	ok, err := repo.Transition(context.Background(), &models.BudgetRequest{ID: "req-1", Status: models.BudgetRejected, ApprovedBy: &approver, DecidedAt: &now}, models.BudgetPending)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
