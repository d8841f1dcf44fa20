package models

import "time"

// ExamType tags a score record.
type ExamType string

const (
	ExamTypeMonthly  ExamType = "MONTHLY"
	ExamTypeMidterm  ExamType = "MIDTERM"
	ExamTypeFinal    ExamType = "FINAL"
	ExamTypeSemester ExamType = "SEMESTER"
)

// BatchMode controls how a batch save behaves on errors.
type BatchMode string

const (
	// BatchModeSequential saves row by row and stops at the first failure. Earlier rows stay saved.
	BatchModeSequential BatchMode = "sequential"
	// BatchModeAtomic saves all rows in one transaction.
	BatchModeAtomic BatchMode = "atomic"
)

// Score is one exam result. Unique per (student_id, period_id, subject_id, exam_type).
type Score struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	PeriodID    string    `db:"period_id" json:"period_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	ExamType    ExamType  `db:"exam_type" json:"exam_type"`
	Hafalan     *float64  `db:"hafalan" json:"hafalan"`
	Tajwid      *float64  `db:"tajwid" json:"tajwid"`
	Kelancaran  *float64  `db:"kelancaran" json:"kelancaran"`
	Average     *float64  `db:"average" json:"average"`
	Note        *string   `db:"note" json:"note,omitempty"`
	EvaluatorID *string   `db:"evaluator_id" json:"evaluator_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ScoreDetail joins names for list views.
type ScoreDetail struct {
	Score
	StudentName     string          `db:"student_name" json:"student_name"`
	NIS             string          `db:"nis" json:"nis"`
	SubjectName     string          `db:"subject_name" json:"subject_name"`
	SubjectCategory SubjectCategory `db:"subject_category" json:"subject_category"`
	Predicate       string          `db:"-" json:"predicate"`
}

// ScoreFilter lists scores. PeriodID plus ClassID or HalaqahID are required by report forms.
type ScoreFilter struct {
	PeriodID  string   `form:"period_id"`
	ClassID   string   `form:"class_id"`
	HalaqahID string   `form:"halaqah_id"`
	SubjectID string   `form:"subject_id"`
	ExamType  ExamType `form:"exam_type"`
	StudentID string   `form:"student_id"`
	Page      int      `form:"page"`
	PageSize  int      `form:"page_size"`
}

// Ready reports whether the report can be fetched.
func (f ScoreFilter) Ready() bool {
	return f.PeriodID != "" && (f.ClassID != "" || f.HalaqahID != "")
}

// Key identifies the selection.
func (f ScoreFilter) Key() string {
	return joinKey(f.PeriodID, f.ClassID, f.HalaqahID, f.SubjectID, string(f.ExamType), f.StudentID)
}

// UpsertScoreRequest saves one score keyed by its natural key.
type UpsertScoreRequest struct {
	StudentID  string   `json:"student_id" validate:"required,uuid"`
	PeriodID   string   `json:"period_id" validate:"required,uuid"`
	SubjectID  string   `json:"subject_id" validate:"required,uuid"`
	ExamType   ExamType `json:"exam_type" validate:"required,exam_type"`
	Hafalan    *float64 `json:"hafalan" validate:"omitempty,score"`
	Tajwid     *float64 `json:"tajwid" validate:"omitempty,score"`
	Kelancaran *float64 `json:"kelancaran" validate:"omitempty,score"`
	Note       *string  `json:"note" validate:"omitempty,max=500"`
}

// BatchScoreRequest saves a whole table of edited rows.
type BatchScoreRequest struct {
	Mode  BatchMode            `json:"mode" validate:"omitempty,oneof=sequential atomic"`
	Items []UpsertScoreRequest `json:"items" validate:"required,min=1,max=500,dive"`
}

// BatchResult reports how far a batch got.
type BatchResult struct {
	Total       int     `json:"total"`
	Saved       int     `json:"saved"`
	FailedIndex *int    `json:"failed_index,omitempty"`
	Error       *string `json:"error,omitempty"`
}

// ScoreRecapRow is one student/subject line of the monthly recap.
type ScoreRecapRow struct {
	StudentID   string   `json:"student_id"`
	StudentName string   `json:"student_name"`
	NIS         string   `json:"nis"`
	SubjectID   string   `json:"subject_id"`
	SubjectName string   `json:"subject_name"`
	Exams       int      `json:"exams"`
	Average     *float64 `json:"average"`
	Predicate   string   `json:"predicate"`
}
