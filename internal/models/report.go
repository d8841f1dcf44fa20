package models

// SemesterReportFilter selects the ranking report.
type SemesterReportFilter struct {
	PeriodID  string `form:"period_id"`
	ClassID   string `form:"class_id"`
	HalaqahID string `form:"halaqah_id"`
}

// Ready requires a semester and a class or halaqah.
func (f SemesterReportFilter) Ready() bool {
	return f.PeriodID != "" && (f.ClassID != "" || f.HalaqahID != "")
}

// Key identifies the selection.
func (f SemesterReportFilter) Key() string {
	return joinKey(f.PeriodID, f.ClassID, f.HalaqahID)
}

// SubjectAverage is one cell of the ranking table.
type SubjectAverage struct {
	SubjectID   string          `json:"subject_id"`
	SubjectName string          `json:"subject_name"`
	Category    SubjectCategory `json:"category"`
	ExamType    ExamType        `json:"exam_type,omitempty"`
	Average     *float64        `json:"average"`
	Predicate   string          `json:"predicate,omitempty"`
}

// SemesterReportRow is one student's line of the ranking. Averages keep full precision;
// rounding happens at presentation.
type SemesterReportRow struct {
	StudentID       string           `json:"student_id"`
	StudentName     string           `json:"student_name"`
	NIS             string           `json:"nis"`
	Subjects        []SubjectAverage `json:"subjects"`
	TahfidzAverage  *float64         `json:"tahfidz_average"`
	AcademicAverage *float64         `json:"academic_average"`
	OverallAverage  float64          `json:"overall_average"`
	Predicate       string           `json:"predicate"`
	Rank            *int             `json:"rank"`
	RankLabel       string           `json:"rank_label"`
}

// SemesterReport is the ranking response.
type SemesterReport struct {
	Period   Period              `json:"period"`
	Subjects []Subject           `json:"subjects"`
	Rows     []SemesterReportRow `json:"rows"`
}

// ReportCard is the individual report for one student.
type ReportCard struct {
	Period       Period                 `json:"period"`
	Student      StudentDetail          `json:"student"`
	Row          SemesterReportRow      `json:"row"`
	ClassSize    int                    `json:"class_size"`
	Memorization *MemorizationReportRow `json:"memorization,omitempty"`
}
