package models

import "time"

// PeriodKind is the bucket size of a period.
type PeriodKind string

const (
	PeriodKindSemester PeriodKind = "SEMESTER"
	PeriodKindMonth    PeriodKind = "MONTH"
	PeriodKindWeek     PeriodKind = "WEEK"
)

// Period is a semester, month or week. At most one period per kind is active.
type Period struct {
	ID        string     `db:"id" json:"id"`
	Label     string     `db:"label" json:"label"`
	Kind      PeriodKind `db:"kind" json:"kind"`
	ParentID  *string    `db:"parent_id" json:"parent_id,omitempty"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   time.Time  `db:"end_date" json:"end_date"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// PeriodFilter defines filters supported by list endpoints.
type PeriodFilter struct {
	Kind      PeriodKind
	IsActive  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// PeriodRequest creates or updates a period.
type PeriodRequest struct {
	Label     string     `json:"label" validate:"required,max=64"`
	Kind      PeriodKind `json:"kind" validate:"required,period_kind"`
	ParentID  *string    `json:"parent_id" validate:"omitempty,uuid"`
	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   time.Time  `json:"end_date" validate:"required,gtefield=StartDate"`
	Activate  bool       `json:"activate"`
}
