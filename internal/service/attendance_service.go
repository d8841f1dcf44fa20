package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/aggregate"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

// attendanceCacheScope groups cached attendance recaps, which are not tied to a period.
const attendanceCacheScope = "attendance"

// AttendanceStatuses in recap column order.
var AttendanceStatuses = []models.AttendanceStatus{models.AttendanceHadir, models.AttendanceIzin, models.AttendanceSakit, models.AttendanceAlpa}

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// AttendanceService records halaqah attendance and builds the per-student recap.
type AttendanceService struct {
	repo      attendanceRepository
	students  groupStudentLister
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo attendanceRepository, students groupStudentLister, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &AttendanceService{repo: repo, students: students, audit: audit, cache: cache, validator: validate, logger: logger}
}

// RecordBatch saves one session for many students in order and stops at the first failure.
// Rows saved before the failure are kept.
func (s *AttendanceService) RecordBatch(ctx context.Context, req models.AttendanceBatchRequest, actor string) (*models.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	result := &models.BatchResult{Total: len(req.Entries)}
	for i, entry := range req.Entries {
		record := &models.Attendance{
			StudentID: entry.StudentID,
			Date:      req.Date,
			Session:   req.Session,
			Status:    entry.Status,
			Note:      entry.Note,
		}
		if err := s.repo.Upsert(ctx, record); err != nil {
			index := i
			message := appErrors.FromError(writeError(err, "failed to save attendance")).Message
			result.FailedIndex = &index
			result.Error = &message
			s.logger.Warn("attendance batch stopped", zap.Int("index", i), zap.Int("saved", result.Saved), zap.Error(err))
			break
		}
		result.Saved++
	}
	if result.Saved == 0 {
		return result, nil
	}
	s.cache.InvalidateReports(ctx, attendanceCacheScope)
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionUpsert,
		EntityType:  "attendance",
		EntityName:  fmt.Sprintf("%s %s", req.Date.Format("2006-01-02"), req.Session),
		Description: fmt.Sprintf("%d dari %d absensi disimpan", result.Saved, result.Total),
		After:       req.Entries[:result.Saved],
	})
	return result, nil
}

// List returns the attendance rows of a group over a date range.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	if !filter.Ready() {
		return nil, ErrFilterNotReady
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Delete removes one attendance row.
func (s *AttendanceService) Delete(ctx context.Context, id, actor string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return writeError(err, "failed to delete attendance")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "attendance not found")
	}
	s.cache.InvalidateReports(ctx, attendanceCacheScope)
	s.audit.Record(ctx, models.AuditEntry{Actor: actor, Action: models.AuditActionDelete, EntityType: "attendance", EntityID: &id})
	return nil
}

// Recap counts each student's statuses over the range.
func (s *AttendanceService) Recap(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecapRow, error) {
	if !filter.Ready() {
		return nil, ErrFilterNotReady
	}
	if filter.From.After(*filter.To) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	key := ReportKey("attendance-recap", attendanceCacheScope, filter.Key())
	return cached(ctx, s.cache, key, func(ctx context.Context) ([]models.AttendanceRecapRow, error) {
		var roster []models.StudentDetail
		if filter.StudentID == "" {
			var err error
			roster, err = s.students.ListActiveByGroup(ctx, filter.ClassID, filter.HalaqahID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
			}
		}
		records, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
		}
		return buildAttendanceRecap(roster, records), nil
	})
}

func buildAttendanceRecap(roster []models.StudentDetail, records []models.AttendanceRecord) []models.AttendanceRecapRow {
	order, byStudent := aggregate.GroupBy(records, func(r models.AttendanceRecord) string { return r.StudentID })

	rows := make([]models.AttendanceRecapRow, 0, len(roster)+len(order))
	seen := map[string]bool{}
	for _, student := range roster {
		seen[student.ID] = true
		rows = append(rows, attendanceRow(student.ID, student.FullName, byStudent[student.ID]))
	}
	for _, id := range order {
		if !seen[id] {
			rows = append(rows, attendanceRow(id, byStudent[id][0].StudentName, byStudent[id]))
		}
	}
	return rows
}

func attendanceRow(id, name string, records []models.AttendanceRecord) models.AttendanceRecapRow {
	row := models.AttendanceRecapRow{StudentID: id, StudentName: name, Counts: map[models.AttendanceStatus]int{}, Total: len(records)}
	for _, st := range AttendanceStatuses {
		row.Counts[st] = 0
	}
	for st, n := range aggregate.CountBy(records, func(r models.AttendanceRecord) models.AttendanceStatus { return r.Status }) {
		row.Counts[st] = n
	}
	if row.Total > 0 {
		row.PresentPercent = aggregate.Round1(float64(row.Counts[models.AttendanceHadir]) / float64(row.Total) * 100)
	}
	return row
}
