package models

import "time"

// AttendanceSession is the time slot of a halaqah meeting.
type AttendanceSession string

const (
	SessionSubuh   AttendanceSession = "SUBUH"
	SessionPagi    AttendanceSession = "PAGI"
	SessionMaghrib AttendanceSession = "MAGHRIB"
	SessionIsya    AttendanceSession = "ISYA"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceHadir AttendanceStatus = "HADIR"
	AttendanceIzin  AttendanceStatus = "IZIN"
	AttendanceSakit AttendanceStatus = "SAKIT"
	AttendanceAlpa  AttendanceStatus = "ALPA"
)

// Attendance is unique per (student_id, date, session).
type Attendance struct {
	ID        string            `db:"id" json:"id"`
	StudentID string            `db:"student_id" json:"student_id"`
	Date      time.Time         `db:"date" json:"date"`
	Session   AttendanceSession `db:"session" json:"session"`
	Status    AttendanceStatus  `db:"status" json:"status"`
	Note      *string           `db:"note" json:"note,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends the model with student metadata.
type AttendanceRecord struct {
	Attendance
	StudentName string `db:"student_name" json:"student_name"`
}

// AttendanceFilter lists attendance or builds the recap.
type AttendanceFilter struct {
	HalaqahID string            `form:"halaqah_id"`
	ClassID   string            `form:"class_id"`
	StudentID string            `form:"student_id"`
	Session   AttendanceSession `form:"session"`
	From      *time.Time        `form:"from" time_format:"2006-01-02"`
	To        *time.Time        `form:"to" time_format:"2006-01-02"`
}

// Ready requires a group and a date range.
func (f AttendanceFilter) Ready() bool {
	return (f.HalaqahID != "" || f.ClassID != "" || f.StudentID != "") && f.From != nil && f.To != nil
}

// Key identifies the selection.
func (f AttendanceFilter) Key() string {
	return joinKey(f.HalaqahID, f.ClassID, f.StudentID, string(f.Session), timeKey(f.From), timeKey(f.To))
}

// AttendanceEntry is one row of a batch.
type AttendanceEntry struct {
	StudentID string           `json:"student_id" validate:"required,uuid"`
	Status    AttendanceStatus `json:"status" validate:"required,attendance_status"`
	Note      *string          `json:"note" validate:"omitempty,max=255"`
}

// AttendanceBatchRequest records one session for many students.
type AttendanceBatchRequest struct {
	Date    time.Time         `json:"date" validate:"required"`
	Session AttendanceSession `json:"session" validate:"required,attendance_session"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,max=500,dive"`
}

// AttendanceRecapRow counts statuses for one student.
type AttendanceRecapRow struct {
	StudentID      string                   `json:"student_id"`
	StudentName    string                   `json:"student_name"`
	Counts         map[AttendanceStatus]int `json:"counts"`
	Total          int                      `json:"total"`
	PresentPercent float64                  `json:"present_percent"`
}
