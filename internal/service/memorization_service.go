package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/aggregate"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type memorizationRepository interface {
	List(ctx context.Context, filter models.MemorizationFilter) ([]models.MemorizationLogDetail, int, error)
	ListForReport(ctx context.Context, filter models.MemorizationFilter) ([]models.MemorizationLogDetail, error)
	FindByID(ctx context.Context, id string) (*models.MemorizationLogDetail, error)
	Create(ctx context.Context, log *models.MemorizationLog) error
	Update(ctx context.Context, log *models.MemorizationLog) error
	Delete(ctx context.Context, id string) error
}

type periodFinder interface {
	FindByID(ctx context.Context, id string) (*models.Period, error)
	FindActive(ctx context.Context, kind models.PeriodKind) (*models.Period, error)
}

// MemorizationService records setoran and builds the hafalan progress report.
type MemorizationService struct {
	repo      memorizationRepository
	periods   periodFinder
	students  groupStudentLister
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMemorizationService constructs the service.
func NewMemorizationService(repo memorizationRepository, periods periodFinder, students groupStudentLister, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *MemorizationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &MemorizationService{repo: repo, periods: periods, students: students, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// List returns log entries, newest first.
func (s *MemorizationService) List(ctx context.Context, filter models.MemorizationFilter) ([]models.MemorizationLogDetail, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memorization logs")
	}
	return logs, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns one entry.
func (s *MemorizationService) Get(ctx context.Context, id string) (*models.MemorizationLogDetail, error) {
	log, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "memorization log")
	}
	return log, nil
}

// Create records a setoran. The actor is stored as the evaluator.
func (s *MemorizationService) Create(ctx context.Context, req models.MemorizationRequest, actor string) (*models.MemorizationLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	log := &models.MemorizationLog{}
	applyMemorizationRequest(log, req)
	if actor != "" {
		log.EvaluatorID = &actor
	}
	if err := s.repo.Create(ctx, log); err != nil {
		return nil, writeError(err, "failed to create memorization log")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionCreate,
		EntityType:  "memorization_log",
		EntityID:    &log.ID,
		Description: positionOf(*log),
		After:       log,
	})
	return log, nil
}

// Update replaces an entry's content.
func (s *MemorizationService) Update(ctx context.Context, id string, req models.MemorizationRequest, actor string) (*models.MemorizationLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "memorization log")
	}
	before := existing.MemorizationLog
	log := existing.MemorizationLog
	applyMemorizationRequest(&log, req)
	if err := s.repo.Update(ctx, &log); err != nil {
		return nil, writeError(err, "failed to update memorization log")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionUpdate,
		EntityType:  "memorization_log",
		EntityID:    &log.ID,
		EntityName:  existing.StudentName,
		Description: positionOf(log),
		Before:      before,
		After:       log,
	})
	return &log, nil
}

// Delete removes an entry.
func (s *MemorizationService) Delete(ctx context.Context, id, actor string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "memorization log")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return writeError(err, "failed to delete memorization log")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionDelete,
		EntityType: "memorization_log",
		EntityID:   &existing.ID,
		EntityName: existing.StudentName,
		Before:     existing,
	})
	return nil
}

// Report summarises setoran per student. Without a date range or period the report covers the
// active MONTH period, or the current calendar month when none is active.
func (s *MemorizationService) Report(ctx context.Context, filter models.MemorizationFilter) (*models.MemorizationReport, error) {
	if !filter.Ready() {
		return nil, ErrFilterNotReady
	}
	granularity := aggregate.Granularity(strings.ToUpper(strings.TrimSpace(filter.Granularity)))
	switch granularity {
	case "":
		granularity = aggregate.GranularityMonth
	case aggregate.GranularityWeek, aggregate.GranularityMonth:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "granularity must be WEEK or MONTH")
	}
	filter.Search = strings.TrimSpace(filter.Search)

	autoRange, err := s.resolveRange(ctx, &filter)
	if err != nil {
		return nil, err
	}
	if filter.From.After(*filter.To) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}

	var roster []models.StudentDetail
	if filter.StudentID == "" {
		roster, err = s.students.ListActiveByGroup(ctx, filter.ClassID, filter.HalaqahID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
		}
	}
	logs, err := s.repo.ListForReport(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load memorization logs")
	}

	return &models.MemorizationReport{
		From:        *filter.From,
		To:          *filter.To,
		Granularity: string(granularity),
		AutoRange:   autoRange,
		Rows:        buildMemorizationReport(roster, logs, granularity),
	}, nil
}

// resolveRange fills From and To and reports whether they were chosen automatically.
func (s *MemorizationService) resolveRange(ctx context.Context, filter *models.MemorizationFilter) (bool, error) {
	if filter.From != nil && filter.To != nil {
		return false, nil
	}
	if filter.PeriodID != "" {
		period, err := s.periods.FindByID(ctx, filter.PeriodID)
		if err != nil {
			return false, loadError(err, "period")
		}
		fillRange(filter, period.StartDate, period.EndDate)
		return false, nil
	}
	period, err := s.periods.FindActive(ctx, models.PeriodKindMonth)
	switch {
	case err == nil:
		fillRange(filter, period.StartDate, period.EndDate)
	case isNotFound(err):
		from, to := aggregate.MonthRange(s.now())
		fillRange(filter, from, to)
	default:
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active month")
	}
	return true, nil
}

func fillRange(filter *models.MemorizationFilter, from, to time.Time) {
	if filter.From == nil {
		filter.From = &from
	}
	if filter.To == nil {
		filter.To = &to
	}
}

// buildMemorizationReport lists roster students first, in roster order, then any other student
// found in logs. logs are expected in date order per student.
func buildMemorizationReport(roster []models.StudentDetail, logs []models.MemorizationLogDetail, granularity aggregate.Granularity) []models.MemorizationReportRow {
	order, byStudent := aggregate.GroupBy(logs, func(l models.MemorizationLogDetail) string { return l.StudentID })

	rows := make([]models.MemorizationReportRow, 0, len(roster)+len(order))
	seen := map[string]bool{}
	for _, student := range roster {
		seen[student.ID] = true
		rows = append(rows, memorizationRow(student.ID, student.FullName, byStudent[student.ID], granularity))
	}
	for _, id := range order {
		if seen[id] {
			continue
		}
		entries := byStudent[id]
		rows = append(rows, memorizationRow(id, entries[0].StudentName, entries, granularity))
	}
	return rows
}

func memorizationRow(id, name string, entries []models.MemorizationLogDetail, granularity aggregate.Granularity) models.MemorizationReportRow {
	row := models.MemorizationReportRow{
		StudentID:       id,
		StudentName:     name,
		Entries:         len(entries),
		PagesByCategory: map[models.MemorizationCategory]float64{},
		CountByStatus:   map[models.MemorizationStatus]int{},
		Buckets:         []models.MemorizationBucket{},
	}
	for _, c := range models.MemorizationCategories {
		row.PagesByCategory[c] = 0
	}
	for _, st := range models.MemorizationStatuses {
		row.CountByStatus[st] = 0
	}
	if len(entries) == 0 {
		row.LatestPosition = "-"
		return row
	}

	for c, pages := range aggregate.SumBy(entries, func(l models.MemorizationLogDetail) models.MemorizationCategory { return l.Category }, pagesOf) {
		row.PagesByCategory[c] = pages
	}
	for st, n := range aggregate.CountBy(entries, func(l models.MemorizationLogDetail) models.MemorizationStatus { return l.Status }) {
		row.CountByStatus[st] = n
	}
	row.TotalPages = aggregate.Sum(entries, pagesOf)

	latest := entries[0]
	for _, e := range entries[1:] {
		if !e.LogDate.Before(latest.LogDate) {
			latest = e
		}
	}
	row.LatestPosition = positionOf(latest.MemorizationLog)
	latestDate := latest.LogDate
	row.LatestDate = &latestDate

	labels := map[string]string{}
	keyOf := func(l models.MemorizationLogDetail) string {
		key, label := aggregate.PeriodBucket(l.LogDate, granularity)
		labels[key] = label
		return key
	}
	keys, buckets := aggregate.GroupBy(entries, keyOf)
	sort.Strings(keys)
	for _, key := range keys {
		row.Buckets = append(row.Buckets, models.MemorizationBucket{
			Key:     key,
			Label:   labels[key],
			Entries: len(buckets[key]),
			Pages:   aggregate.Sum(buckets[key], pagesOf),
		})
	}
	return row
}

func pagesOf(l models.MemorizationLogDetail) float64 {
	return l.Pages
}

func positionOf(log models.MemorizationLog) string {
	return fmt.Sprintf("Juz %d, %s %d - %s %d", log.Juz, log.SurahFrom, log.AyahFrom, log.SurahTo, log.AyahTo)
}

func applyMemorizationRequest(log *models.MemorizationLog, req models.MemorizationRequest) {
	log.StudentID = req.StudentID
	log.LogDate = req.LogDate
	log.Juz = req.Juz
	log.SurahFrom = strings.TrimSpace(req.SurahFrom)
	log.AyahFrom = req.AyahFrom
	log.SurahTo = strings.TrimSpace(req.SurahTo)
	log.AyahTo = req.AyahTo
	log.Pages = req.Pages
	log.Category = req.Category
	log.Status = req.Status
	log.Note = req.Note
}
