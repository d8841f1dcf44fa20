package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/datastore"
)

// AttendanceConflictKey is the natural key attendance rows are upserted on.
var AttendanceConflictKey = []string{"student_id", "date", "session"}

// AttendanceRepository persists halaqah attendance.
type AttendanceRepository struct {
	db    *sqlx.DB
	store *datastore.Store
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db, store: datastore.New(db)}
}

// Upsert records one attendance row keyed by (student_id, date, session).
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	return r.store.Upsert(ctx, "attendances", datastore.Values{
		"id":         record.ID,
		"student_id": record.StudentID,
		"date":       record.Date,
		"session":    record.Session,
		"status":     record.Status,
		"note":       record.Note,
		"created_at": record.CreatedAt,
		"updated_at": record.UpdatedAt,
	}, AttendanceConflictKey, []string{"status", "note", "updated_at"})
}

// List returns attendance rows with student names for the filter's range.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	add := func(expr string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}
	if filter.HalaqahID != "" {
		add("s.halaqah_id = $%d", filter.HalaqahID)
	}
	if filter.ClassID != "" {
		add("s.class_id = $%d", filter.ClassID)
	}
	if filter.StudentID != "" {
		add("a.student_id = $%d", filter.StudentID)
	}
	if filter.Session != "" {
		add("a.session = $%d", filter.Session)
	}
	if filter.From != nil {
		add("a.date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("a.date <= $%d", *filter.To)
	}
	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.date, a.session, a.status, a.note, a.created_at, a.updated_at, s.full_name AS student_name
        FROM attendances a JOIN students s ON s.id = a.student_id WHERE %s ORDER BY a.date ASC, s.full_name ASC`, strings.Join(conditions, " AND "))
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// Delete removes one attendance row.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) (bool, error) {
	affected, err := r.store.DeleteByID(ctx, "attendances", id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
