package models

import "time"

// BudgetStatus is the approval state of a budget request.
type BudgetStatus string

const (
	BudgetPending   BudgetStatus = "PENDING"
	BudgetApproved  BudgetStatus = "DISETUJUI"
	BudgetRejected  BudgetStatus = "DITOLAK"
	BudgetCompleted BudgetStatus = "SELESAI"
)

// BudgetTransitions lists the allowed next states.
var BudgetTransitions = map[BudgetStatus][]BudgetStatus{
	BudgetPending:  {BudgetApproved, BudgetRejected},
	BudgetApproved: {BudgetCompleted},
}

// CanTransition reports whether from -> to is allowed.
func (s BudgetStatus) CanTransition(to BudgetStatus) bool {
	for _, next := range BudgetTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// BudgetRequest is a program's request for funds.
type BudgetRequest struct {
	ID              string       `db:"id" json:"id"`
	ProgramName     string       `db:"program_name" json:"program_name"`
	Description     string       `db:"description" json:"description"`
	RequestedAmount float64      `db:"requested_amount" json:"requested_amount"`
	ApprovedAmount  *float64     `db:"approved_amount" json:"approved_amount,omitempty"`
	Status          BudgetStatus `db:"status" json:"status"`
	RequestedBy     string       `db:"requested_by" json:"requested_by"`
	ApprovedBy      *string      `db:"approved_by" json:"approved_by,omitempty"`
	DecidedAt       *time.Time   `db:"decided_at" json:"decided_at,omitempty"`
	Note            *string      `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// BudgetFilter lists budget requests.
type BudgetFilter struct {
	Status    BudgetStatus
	Search    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// BudgetRequestPayload creates or edits a pending request.
type BudgetRequestPayload struct {
	ProgramName     string  `json:"program_name" validate:"required,max=128"`
	Description     string  `json:"description" validate:"max=1000"`
	RequestedAmount float64 `json:"requested_amount" validate:"required,gt=0"`
}

// BudgetDecisionRequest approves or rejects a request.
type BudgetDecisionRequest struct {
	ApprovedAmount *float64 `json:"approved_amount" validate:"omitempty,gt=0"`
	Note           *string  `json:"note" validate:"omitempty,max=500"`
}

// FundRealization records money spent against an approved request.
type FundRealization struct {
	ID              string    `db:"id" json:"id"`
	BudgetRequestID string    `db:"budget_request_id" json:"budget_request_id"`
	AmountUsed      float64   `db:"amount_used" json:"amount_used"`
	Purpose         string    `db:"purpose" json:"purpose"`
	SpentAt         time.Time `db:"spent_at" json:"spent_at"`
	CreatedBy       string    `db:"created_by" json:"created_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// RealizationRequest payload.
type RealizationRequest struct {
	AmountUsed float64   `json:"amount_used" validate:"required,gt=0"`
	Purpose    string    `json:"purpose" validate:"required,max=255"`
	SpentAt    time.Time `json:"spent_at" validate:"required"`
}

// LedgerEntryType classifies a ledger entry.
type LedgerEntryType string

const (
	LedgerExpense LedgerEntryType = "EXPENSE"
	LedgerIncome  LedgerEntryType = "INCOME"
)

// LedgerEntry mirrors cash movements for bookkeeping.
type LedgerEntry struct {
	ID          string          `db:"id" json:"id"`
	EntryType   LedgerEntryType `db:"entry_type" json:"entry_type"`
	Amount      float64         `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description"`
	Source      string          `db:"source" json:"source"`
	SourceID    string          `db:"source_id" json:"source_id"`
	EntryDate   time.Time       `db:"entry_date" json:"entry_date"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// BudgetSummary totals requests per status.
type BudgetSummary struct {
	Status    BudgetStatus `db:"status" json:"status"`
	Count     int          `db:"count" json:"count"`
	Requested float64      `db:"requested" json:"requested"`
	Approved  float64      `db:"approved" json:"approved"`
	Realized  float64      `db:"realized" json:"realized"`
	Remaining float64      `db:"-" json:"remaining"`
}
