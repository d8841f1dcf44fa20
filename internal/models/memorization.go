package models

import "time"

// MemorizationCategory of a setoran.
type MemorizationCategory string

const (
	MemorizationZiyadah  MemorizationCategory = "ZIYADAH"
	MemorizationMurajaah MemorizationCategory = "MURAJAAH"
	MemorizationTasmi    MemorizationCategory = "TASMI"
)

// MemorizationCategories in display order.
var MemorizationCategories = []MemorizationCategory{MemorizationZiyadah, MemorizationMurajaah, MemorizationTasmi}

// MemorizationStatus is the evaluator's four-level fluency verdict.
type MemorizationStatus string

const (
	MemorizationLancar MemorizationStatus = "LANCAR"
	MemorizationSedang MemorizationStatus = "SEDANG"
	MemorizationKurang MemorizationStatus = "KURANG"
	MemorizationUlang  MemorizationStatus = "ULANG"
)

// MemorizationStatuses in display order.
var MemorizationStatuses = []MemorizationStatus{MemorizationLancar, MemorizationSedang, MemorizationKurang, MemorizationUlang}

// MemorizationLog is one recorded setoran.
type MemorizationLog struct {
	ID          string               `db:"id" json:"id"`
	StudentID   string               `db:"student_id" json:"student_id"`
	LogDate     time.Time            `db:"log_date" json:"log_date"`
	Juz         int                  `db:"juz" json:"juz"`
	SurahFrom   string               `db:"surah_from" json:"surah_from"`
	AyahFrom    int                  `db:"ayah_from" json:"ayah_from"`
	SurahTo     string               `db:"surah_to" json:"surah_to"`
	AyahTo      int                  `db:"ayah_to" json:"ayah_to"`
	Pages       float64              `db:"pages" json:"pages"`
	Category    MemorizationCategory `db:"category" json:"category"`
	Status      MemorizationStatus   `db:"status" json:"status"`
	EvaluatorID *string              `db:"evaluator_id" json:"evaluator_id,omitempty"`
	Note        *string              `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}

// MemorizationLogDetail joins student and evaluator names.
type MemorizationLogDetail struct {
	MemorizationLog
	StudentName   string  `db:"student_name" json:"student_name"`
	HalaqahID     *string `db:"halaqah_id" json:"halaqah_id,omitempty"`
	EvaluatorName *string `db:"evaluator_name" json:"evaluator_name,omitempty"`
}

// MemorizationFilter lists logs or builds the report.
type MemorizationFilter struct {
	HalaqahID   string               `form:"halaqah_id"`
	ClassID     string               `form:"class_id"`
	StudentID   string               `form:"student_id"`
	PeriodID    string               `form:"period_id"`
	From        *time.Time           `form:"from" time_format:"2006-01-02"`
	To          *time.Time           `form:"to" time_format:"2006-01-02"`
	Category    MemorizationCategory `form:"category"`
	Status      MemorizationStatus   `form:"status"`
	Search      string               `form:"q"`
	Granularity string               `form:"granularity"`
	Page        int                  `form:"page"`
	PageSize    int                  `form:"page_size"`
}

// Ready requires a halaqah, class or single student.
func (f MemorizationFilter) Ready() bool {
	return f.HalaqahID != "" || f.ClassID != "" || f.StudentID != ""
}

// Key identifies the selection.
func (f MemorizationFilter) Key() string {
	return joinKey(f.HalaqahID, f.ClassID, f.StudentID, f.PeriodID,
		timeKey(f.From), timeKey(f.To),
		string(f.Category), string(f.Status), f.Search, f.Granularity)
}

// MemorizationRequest creates or updates a log entry.
type MemorizationRequest struct {
	StudentID string               `json:"student_id" validate:"required,uuid"`
	LogDate   time.Time            `json:"log_date" validate:"required"`
	Juz       int                  `json:"juz" validate:"required,min=1,max=30"`
	SurahFrom string               `json:"surah_from" validate:"required,max=64"`
	AyahFrom  int                  `json:"ayah_from" validate:"required,min=1"`
	SurahTo   string               `json:"surah_to" validate:"required,max=64"`
	AyahTo    int                  `json:"ayah_to" validate:"required,min=1"`
	Pages     float64              `json:"pages" validate:"gte=0,lte=604"`
	Category  MemorizationCategory `json:"category" validate:"required,memorization_category"`
	Status    MemorizationStatus   `json:"status" validate:"required,memorization_status"`
	Note      *string              `json:"note" validate:"omitempty,max=500"`
}

// MemorizationBucket tallies one week or month of a student's setoran.
type MemorizationBucket struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Entries int     `json:"entries"`
	Pages   float64 `json:"pages"`
}

// MemorizationReportRow summarises one student over the report range.
type MemorizationReportRow struct {
	StudentID       string                           `json:"student_id"`
	StudentName     string                           `json:"student_name"`
	Entries         int                              `json:"entries"`
	PagesByCategory map[MemorizationCategory]float64 `json:"pages_by_category"`
	CountByStatus   map[MemorizationStatus]int       `json:"count_by_status"`
	TotalPages      float64                          `json:"total_pages"`
	LatestPosition  string                           `json:"latest_position"`
	LatestDate      *time.Time                       `json:"latest_date,omitempty"`
	Buckets         []MemorizationBucket             `json:"buckets"`
}

// MemorizationReport is the report response.
type MemorizationReport struct {
	From        time.Time               `json:"from"`
	To          time.Time               `json:"to"`
	Granularity string                  `json:"granularity"`
	AutoRange   bool                    `json:"auto_range"`
	Rows        []MemorizationReportRow `json:"rows"`
}
