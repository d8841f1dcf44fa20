package models

import "time"

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatText ExportFormat = "txt"
)

// ExportKind names the report being exported.
type ExportKind string

const (
	ExportStudents        ExportKind = "students"
	ExportScores          ExportKind = "scores"
	ExportSemesterRanking ExportKind = "semester-ranking"
	ExportMemorization    ExportKind = "memorization"
	ExportAttendance      ExportKind = "attendance"
	ExportViolations      ExportKind = "violations"
	ExportBudget          ExportKind = "budget"
	ExportRealizations    ExportKind = "realizations"
)

// ExportRequest asks for one report in one format. Filter values come from the query string.
type ExportRequest struct {
	Kind    ExportKind        `json:"kind" validate:"required,export_kind"`
	Format  ExportFormat      `json:"format" validate:"required,oneof=csv xlsx pdf txt"`
	Filters map[string]string `json:"filters"`
}

// ExportResult points at the rendered file. Text and WhatsAppLink are set for txt
// exports so clients can open a share link directly.
type ExportResult struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type"`
	Rows         int       `json:"rows"`
	URL          string    `json:"url"`
	ExpiresAt    time.Time `json:"expires_at"`
	Text         string    `json:"text,omitempty"`
	WhatsAppLink string    `json:"whatsapp_link,omitempty"`
}
