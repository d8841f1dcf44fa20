package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
)

var (
	// ErrBudgetNotApproved is returned when spending is recorded against a request that is not DISETUJUI.
	ErrBudgetNotApproved = errors.New("budget request is not approved")
	// ErrBudgetExceeded is returned when realizations would exceed the approved amount.
	ErrBudgetExceeded = errors.New("realization exceeds approved amount")
)

const budgetColumns = "id, program_name, description, requested_amount, approved_amount, status, requested_by, approved_by, decided_at, note, created_at, updated_at"

// BudgetRepository persists budget requests, fund realizations and their ledger entries.
type BudgetRepository struct {
	db *sqlx.DB
}

// NewBudgetRepository constructs a BudgetRepository.
func NewBudgetRepository(db *sqlx.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func budgetWhere(filter models.BudgetFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(program_name) LIKE $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

// List returns budget requests.
func (r *BudgetRepository) List(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetRequest, int, error) {
	where, args := budgetWhere(filter)
	allowedSorts := map[string]bool{"created_at": true, "requested_amount": true, "program_name": true, "status": true}
	sortBy := filter.SortBy
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := sortOrder(filter.SortOrder, "DESC")
	_, size, offset := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM budget_requests WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d", budgetColumns, where, sortBy, order, size, offset)
	var requests []models.BudgetRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list budget requests: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM budget_requests WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count budget requests: %w", err)
	}
	return requests, total, nil
}

// FindByID loads a budget request.
func (r *BudgetRepository) FindByID(ctx context.Context, id string) (*models.BudgetRequest, error) {
	var request models.BudgetRequest
	if err := r.db.GetContext(ctx, &request, "SELECT "+budgetColumns+" FROM budget_requests WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a PENDING request.
func (r *BudgetRepository) Create(ctx context.Context, request *models.BudgetRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	request.Status = models.BudgetPending
	const query = `INSERT INTO budget_requests (id, program_name, description, requested_amount, status, requested_by, created_at, updated_at)
        VALUES (:id, :program_name, :description, :requested_amount, :status, :requested_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create budget request: %w", err)
	}
	return nil
}

// UpdatePending edits a request only while it is still PENDING. It reports false otherwise.
func (r *BudgetRepository) UpdatePending(ctx context.Context, request *models.BudgetRequest) (bool, error) {
	request.UpdatedAt = time.Now().UTC()
	const query = `UPDATE budget_requests SET program_name = :program_name, description = :description, requested_amount = :requested_amount, updated_at = :updated_at WHERE id = :id AND status = 'PENDING'`
	res, err := r.db.NamedExecContext(ctx, query, request)
	if err != nil {
		return false, fmt.Errorf("update budget request: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// Transition moves a request from one status to the next. The WHERE on the current status makes
// concurrent decisions on the same request fail instead of overwriting each other.
func (r *BudgetRepository) Transition(ctx context.Context, request *models.BudgetRequest, from models.BudgetStatus) (bool, error) {
	request.UpdatedAt = time.Now().UTC()
	const query = `UPDATE budget_requests SET status = $2, approved_amount = $3, approved_by = $4, decided_at = $5, note = $6, updated_at = $7 WHERE id = $1 AND status = $8`
	res, err := r.db.ExecContext(ctx, query, request.ID, request.Status, request.ApprovedAmount, request.ApprovedBy, request.DecidedAt, request.Note, request.UpdatedAt, from)
	if err != nil {
		return false, fmt.Errorf("transition budget request: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// DeletePending removes a request only while it is PENDING.
func (r *BudgetRepository) DeletePending(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budget_requests WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return false, fmt.Errorf("delete budget request: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// Summary totals requests per status with the realized amount.
func (r *BudgetRepository) Summary(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetSummary, error) {
	where, args := budgetWhere(filter)
	query := fmt.Sprintf(`SELECT b.status, COUNT(*) AS count, COALESCE(SUM(b.requested_amount), 0) AS requested,
        COALESCE(SUM(b.approved_amount), 0) AS approved, COALESCE(SUM(fr.total), 0) AS realized
        FROM (SELECT * FROM budget_requests WHERE %s) b
        LEFT JOIN (SELECT budget_request_id, SUM(amount_used) AS total FROM fund_realizations GROUP BY budget_request_id) fr ON fr.budget_request_id = b.id
        GROUP BY b.status ORDER BY b.status`, where)
	var rows []models.BudgetSummary
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("summarize budget: %w", err)
	}
	return rows, nil
}

// ListRealizations returns the realizations of one request, oldest first.
func (r *BudgetRepository) ListRealizations(ctx context.Context, requestID string) ([]models.FundRealization, error) {
	const query = `SELECT id, budget_request_id, amount_used, purpose, spent_at, created_by, created_at FROM fund_realizations WHERE budget_request_id = $1 ORDER BY spent_at ASC, created_at ASC`
	var rows []models.FundRealization
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, fmt.Errorf("list realizations: %w", err)
	}
	return rows, nil
}

// AddRealization records spending and its mirrored ledger expense in one transaction.
// The request row is locked so concurrent realizations cannot overshoot the approved amount.
func (r *BudgetRepository) AddRealization(ctx context.Context, realization *models.FundRealization, entry *models.LedgerEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin realization tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var request models.BudgetRequest
	if err = tx.GetContext(ctx, &request, "SELECT "+budgetColumns+" FROM budget_requests WHERE id = $1 FOR UPDATE", realization.BudgetRequestID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock budget request: %w", err)
	}
	if request.Status != models.BudgetApproved {
		err = ErrBudgetNotApproved
		return err
	}
	var realized float64
	if err = tx.GetContext(ctx, &realized, `SELECT COALESCE(SUM(amount_used), 0) FROM fund_realizations WHERE budget_request_id = $1`, request.ID); err != nil {
		return fmt.Errorf("sum realizations: %w", err)
	}
	approved := request.RequestedAmount
	if request.ApprovedAmount != nil {
		approved = *request.ApprovedAmount
	}
	if realized+realization.AmountUsed > approved {
		err = ErrBudgetExceeded
		return err
	}

	now := time.Now().UTC()
	if realization.ID == "" {
		realization.ID = uuid.NewString()
	}
	realization.CreatedAt = now
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO fund_realizations (id, budget_request_id, amount_used, purpose, spent_at, created_by, created_at)
        VALUES (:id, :budget_request_id, :amount_used, :purpose, :spent_at, :created_by, :created_at)`, realization); err != nil {
		return fmt.Errorf("insert realization: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.SourceID = realization.ID
	entry.CreatedAt = now
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO ledger_entries (id, entry_type, amount, description, source, source_id, entry_date, created_at)
        VALUES (:id, :entry_type, :amount, :description, :source, :source_id, :entry_date, :created_at)`, entry); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit realization tx: %w", err)
	}
	return nil
}
