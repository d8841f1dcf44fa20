package models

import "time"

// SubjectCategory decides which sub-average a subject contributes to.
type SubjectCategory string

const (
	SubjectCategoryTahfidz  SubjectCategory = "TAHFIDZ"
	SubjectCategoryAcademic SubjectCategory = "ACADEMIC"
)

// Subject is a graded subject.
type Subject struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Category  SubjectCategory `db:"category" json:"category"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// SubjectRequest creates or updates a subject.
type SubjectRequest struct {
	Name     string          `json:"name" validate:"required,max=64"`
	Category SubjectCategory `json:"category" validate:"required,subject_category"`
}
