package models

import "time"

// ViolationStatus tracks handling progress. Transitions only move forward.
type ViolationStatus string

const (
	ViolationOpen    ViolationStatus = "OPEN"
	ViolationProses  ViolationStatus = "PROSES"
	ViolationSelesai ViolationStatus = "SELESAI"
)

func (s ViolationStatus) rank() int {
	switch s {
	case ViolationOpen:
		return 1
	case ViolationProses:
		return 2
	case ViolationSelesai:
		return 3
	default:
		return 0
	}
}

// CanAdvance reports whether to is strictly after s.
func (s ViolationStatus) CanAdvance(to ViolationStatus) bool {
	return s.rank() > 0 && to.rank() > s.rank()
}

// Violation is a disciplinary record.
type Violation struct {
	ID          string          `db:"id" json:"id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	Date        time.Time       `db:"date" json:"date"`
	Level       int             `db:"level" json:"level"`
	Category    string          `db:"category" json:"category"`
	Description string          `db:"description" json:"description"`
	Status      ViolationStatus `db:"status" json:"status"`
	ReportedBy  string          `db:"reported_by" json:"reported_by"`
	ActionTaken *string         `db:"action_taken" json:"action_taken,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ViolationFilter lists violations.
type ViolationFilter struct {
	StudentID string
	Level     int
	Category  string
	Status    ViolationStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// ViolationRequest creates or edits a violation.
type ViolationRequest struct {
	StudentID   string    `json:"student_id" validate:"required,uuid"`
	Date        time.Time `json:"date" validate:"required"`
	Level       int       `json:"level" validate:"required,min=1,max=4"`
	Category    string    `json:"category" validate:"required,max=64"`
	Description string    `json:"description" validate:"max=1000"`
}

// ViolationStatusRequest advances the status.
type ViolationStatusRequest struct {
	Status      ViolationStatus `json:"status" validate:"required,violation_status"`
	ActionTaken *string         `json:"action_taken" validate:"omitempty,max=500"`
}

// ViolationRecapRow counts violations per level and category.
type ViolationRecapRow struct {
	Level    int    `json:"level"`
	Category string `json:"category"`
	Count    int    `json:"count"`
	Open     int    `json:"open"`
}
