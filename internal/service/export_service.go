package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/aggregate"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/export"
)

const exportDateLayout = "2006-01-02"

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type urlSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string) (exportID, relPath string, expiresAt time.Time, err error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

type pdfRenderer interface {
	Render(ctx context.Context, table export.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportSources are the report services an export reads from. Nil sources disable their kinds.
type ExportSources struct {
	Students interface {
		ListActiveByGroup(ctx context.Context, classID, halaqahID string) ([]models.StudentDetail, error)
	}
	Scores interface {
		Recap(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecapRow, error)
	}
	Semester interface {
		Ranking(ctx context.Context, filter models.SemesterReportFilter) (*models.SemesterReport, error)
	}
	Memorization interface {
		Report(ctx context.Context, filter models.MemorizationFilter) (*models.MemorizationReport, error)
	}
	Attendance interface {
		Recap(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecapRow, error)
	}
	Violations interface {
		ListAll(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, error)
	}
	Budget interface {
		List(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetRequest, *models.Pagination, error)
		Get(ctx context.Context, id string) (*models.BudgetRequest, error)
		ListRealizations(ctx context.Context, requestID string) ([]models.FundRealization, error)
	}
}

// ExportConfig drives download URLs and retention.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders report tables to files and hands out signed download links.
type ExportService struct {
	sources   ExportSources
	storage   fileStorage
	signer    urlSigner
	csv       tableRenderer
	xlsx      tableRenderer
	message   *export.MessageRenderer
	pdf       pdfRenderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService wires the export pipeline. A nil pdf renderer falls back to a plain letterhead.
func NewExportService(sources ExportSources, storage fileStorage, signer urlSigner, pdf pdfRenderer, metrics *MetricsService, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(export.Letterhead{}, 0, logger)
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		sources:   sources,
		storage:   storage,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		xlsx:      export.NewXLSXExporter(),
		message:   export.NewMessageRenderer(),
		pdf:       pdf,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate builds the table for req.Kind, renders it and stores the file.
// An empty report returns NOTHING_TO_EXPORT; an incomplete filter returns ErrFilterNotReady.
func (s *ExportService) Generate(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	table, err := s.BuildTable(ctx, req.Kind, req.Filters)
	if err != nil {
		return nil, err
	}
	table.PrintedAt = s.now()
	if err := table.Validate(); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			return nil, appErrors.Clone(appErrors.ErrNothingToExport, "tidak ada data untuk diekspor")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build export")
	}

	result := &models.ExportResult{ID: uuid.NewString(), Rows: len(table.Rows)}
	var payload []byte
	var extension string
	switch req.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(table)
		result.ContentType, extension = s.csv.ContentType(), s.csv.Extension()
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render(table)
		result.ContentType, extension = s.xlsx.ContentType(), s.xlsx.Extension()
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(ctx, table)
		result.ContentType, extension = s.pdf.ContentType(), s.pdf.Extension()
	case models.ExportFormatText:
		result.Text, err = s.message.Text(table)
		payload = []byte(result.Text)
		result.ContentType, extension = s.message.ContentType(), s.message.Extension()
		if phone := req.Filters["phone"]; phone != "" && err == nil {
			result.WhatsAppLink = export.WhatsAppLink(phone, result.Text)
		}
	default:
		err = fmt.Errorf("unsupported format %s", req.Format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	result.FileName = s.buildFilename(req.Kind, extension)
	relPath, err := s.storage.Save(result.ID+"/"+result.FileName, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(result.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	result.URL = fmt.Sprintf("%s/exports/%s", prefix, token)
	result.ExpiresAt = expiresAt

	s.metrics.IncExport(string(req.Kind), string(req.Format))
	s.logger.Info("export generated",
		zap.String("export_id", result.ID),
		zap.String("kind", string(req.Kind)),
		zap.String("format", string(req.Format)),
		zap.Int("rows", result.Rows),
	)
	return result, nil
}

// ExportDownload is an opened export file ready to stream.
type ExportDownload struct {
	File        *os.File
	FileName    string
	ContentType string
	ExpiresAt   time.Time
}

// ResolveDownload validates a download token and opens the file it points at.
func (s *ExportService) ResolveDownload(token string) (*ExportDownload, error) {
	exportID, relPath, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	if !strings.HasPrefix(relPath, exportID+"/") {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	name := path.Base(relPath)
	return &ExportDownload{File: file, FileName: name, ContentType: s.contentType(path.Ext(name)), ExpiresAt: expiresAt}, nil
}

func (s *ExportService) contentType(ext string) string {
	switch strings.TrimPrefix(ext, ".") {
	case s.csv.Extension():
		return s.csv.ContentType()
	case s.xlsx.Extension():
		return s.xlsx.ContentType()
	case s.pdf.Extension():
		return s.pdf.ContentType()
	case s.message.Extension():
		return s.message.ContentType()
	}
	return "application/octet-stream"
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(kind models.ExportKind, extension string) string {
	return fmt.Sprintf("%s_%s.%s", kind, s.now().Format("20060102_150405"), extension)
}

// BuildTable returns the report of the given kind as an export table.
func (s *ExportService) BuildTable(ctx context.Context, kind models.ExportKind, filters map[string]string) (export.Table, error) {
	f := exportFilters(filters)
	switch kind {
	case models.ExportStudents:
		return s.studentTable(ctx, f)
	case models.ExportScores:
		return s.scoreTable(ctx, f)
	case models.ExportSemesterRanking:
		return s.semesterTable(ctx, f)
	case models.ExportMemorization:
		return s.memorizationTable(ctx, f)
	case models.ExportAttendance:
		return s.attendanceTable(ctx, f)
	case models.ExportViolations:
		return s.violationTable(ctx, f)
	case models.ExportBudget:
		return s.budgetTable(ctx, f)
	case models.ExportRealizations:
		return s.realizationTable(ctx, f)
	default:
		return export.Table{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export kind %s", kind))
	}
}

func (s *ExportService) studentTable(ctx context.Context, f exportFilters) (export.Table, error) {
	if s.sources.Students == nil {
		return export.Table{}, errSourceMissing(models.ExportStudents)
	}
	classID, halaqahID := f["class_id"], f["halaqah_id"]
	if classID == "" && halaqahID == "" {
		return export.Table{}, ErrFilterNotReady
	}
	students, err := s.sources.Students.ListActiveByGroup(ctx, classID, halaqahID)
	if err != nil {
		return export.Table{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	table := export.Table{
		Title:   "Daftar Santri",
		Columns: []string{"No", "NIS", "Nama", "L/P", "Kelas", "Halaqah", "Wali", "No. HP Wali"},
	}
	for i, st := range students {
		table.Rows = append(table.Rows, []interface{}{
			i + 1, st.NIS, st.FullName, st.Gender, deref(st.ClassName), deref(st.HalaqahName), st.GuardianName, st.GuardianPhone,
		})
	}
	return table, nil
}

func (s *ExportService) scoreTable(ctx context.Context, f exportFilters) (export.Table, error) {
	if s.sources.Scores == nil {
		return export.Table{}, errSourceMissing(models.ExportScores)
	}
	filter := models.ScoreFilter{
		PeriodID:  f["period_id"],
		ClassID:   f["class_id"],
		HalaqahID: f["halaqah_id"],
		SubjectID: f["subject_id"],
		ExamType:  models.ExamType(strings.ToUpper(f["exam_type"])),
	}
	rows, err := s.sources.Scores.Recap(ctx, filter)
	if err != nil {
		return export.Table{}, err
	}
	examType := filter.ExamType
	if examType == "" {
		examType = models.ExamTypeMonthly
	}
	table := export.Table{
		Title:   "Rekap Nilai",
		Info:    []export.KeyValue{{Key: "Jenis Ujian", Value: string(examType)}},
		Columns: []string{"No", "NIS", "Nama", "Mata Pelajaran", "Jumlah Ujian", "Rata-rata", "Predikat"},
	}
	for i, row := range rows {
		table.Rows = append(table.Rows, []interface{}{
			i + 1, row.NIS, row.StudentName, row.SubjectName, row.Exams, rounded(row.Average), row.Predicate,
		})
	}
	return table, nil
}

func (s *ExportService) semesterTable(ctx context.Context, f exportFilters) (export.Table, error) {
	if s.sources.Semester == nil {
		return export.Table{}, errSourceMissing(models.ExportSemesterRanking)
	}
	report, err := s.sources.Semester.Ranking(ctx, models.SemesterReportFilter{
		PeriodID:  f["period_id"],
		ClassID:   f["class_id"],
		HalaqahID: f["halaqah_id"],
	})
	if err != nil {
		return export.Table{}, err
	}
	columns := []string{"Peringkat", "NIS", "Nama"}
	for _, subject := range report.Subjects {
		columns = append(columns, subject.Name)
	}
	columns = append(columns, "Rata-rata Tahfidz", "Rata-rata Akademik", "Rata-rata", "Predikat")
	table := export.Table{
		Title:   "Peringkat Semester",
		Info:    []export.KeyValue{{Key: "Periode", Value: report.Period.Label}},
		Columns: columns,
	}
	for _, row := range report.Rows {
		cells := []interface{}{row.RankLabel, row.NIS, row.StudentName}
		bySubject := make(map[string]*float64, len(row.Subjects))
		for _, avg := range row.Subjects {
			bySubject[avg.SubjectID] = avg.Average
		}
		for _, subject := range report.Subjects {
			cells = append(cells, rounded(bySubject[subject.ID]))
		}
		cells = append(cells, rounded(row.TahfidzAverage), rounded(row.AcademicAverage), aggregate.Round1(row.OverallAverage), row.Predicate)
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

func (s *ExportService) memorizationTable(ctx context.Context, f exportFilters) (export.Table, error) {
	if s.sources.Memorization == nil {
		return export.Table{}, errSourceMissing(models.ExportMemorization)
	}
	filter := models.MemorizationFilter{
		HalaqahID:   f["halaqah_id"],
		ClassID:     f["class_id"],
		StudentID:   f["student_id"],
		PeriodID:    f["period_id"],
		Category:    models.MemorizationCategory(strings.ToUpper(f["category"])),
		Status:      models.MemorizationStatus(strings.ToUpper(f["status"])),
		Search:      f["q"],
		Granularity: f["granularity"],
	}
	var err error
	if filter.From, filter.To, err = f.dateRange(); err != nil {
		return export.Table{}, err
	}
	report, err := s.sources.Memorization.Report(ctx, filter)
	if err != nil {
		return export.Table{}, err
	}
	columns := []string{"No", "Nama", "Setoran"}
	for _, category := range models.MemorizationCategories {
		columns = append(columns, "Hal. "+string(category))
	}
	columns = append(columns, "Total Halaman", "Posisi Terakhir")
	table := export.Table{
		Title: "Laporan Hafalan",
		Info: []export.KeyValue{
			{Key: "Periode", Value: report.From.Format(exportDateLayout) + " s.d. " + report.To.Format(exportDateLayout)},
		},
		Columns: columns,
		Total:   &export.Total{Label: "Total", Column: len(columns) - 2},
	}
	for i, row := range report.Rows {
		cells := []interface{}{i + 1, row.StudentName, row.Entries}
		for _, category := range models.MemorizationCategories {
			cells = append(cells, row.PagesByCategory[category])
		}
		cells = append(cells, row.TotalPages, row.LatestPosition)
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

func (s *ExportService) attendanceTable(ctx context.Context, f exportFilters) (export.Table, error) {
	if s.sources.Attendance == nil {
		return export.Table{}, errSourceMissing(models.ExportAttendance)
	}
	filter := models.AttendanceFilter{
		HalaqahID: f["halaqah_id"],
		ClassID:   f["class_id"],
		StudentID: f["student_id"],
		Session:   models.AttendanceSession(strings.ToUpper(f["session"])),
	}
	var err error
	if filter.From, filter.To, err = f.dateRange(); err != nil {
		return export.Table{}, err
	}
	rows, err := s.sources.Attendance.Recap(ctx, filter)
	if err != nil {
		return export.Table{}, err
	}
	columns := []string{"No", "Nama"}
	for _, status := range AttendanceStatuses {
		columns = append(columns, string(status))
	}
	columns = append(columns, "Total", "Kehadiran (%)")
	table := export.Table{
		Title: "Rekap Kehadiran",
		Info: []export.KeyValue{
			{Key: "Periode", Value: filter.From.Format(exportDateLayout) + " s.d. " + filter.To.Format(exportDateLayout)},
		},
		Columns: columns,
	}
	for i, row := range rows {
		cells := []interface{}{i + 1, row.StudentName}
		for _, status := range AttendanceStatuses {
			cells = append(cells, row.Counts[status])
		}
		cells = append(cells, row.Total, row.PresentPercent)
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

func (s *ExportService) violationTable(ctx context.Context, f exportFilters) (export.Table, error) {
	if s.sources.Violations == nil {
		return export.Table{}, errSourceMissing(models.ExportViolations)
	}
	filter := models.ViolationFilter{
		StudentID: f["student_id"],
		Category:  f["category"],
		Status:    models.ViolationStatus(strings.ToUpper(f["status"])),
	}
	if level := f["level"]; level != "" {
		n, err := strconv.Atoi(level)
		if err != nil {
			return export.Table{}, appErrors.Clone(appErrors.ErrValidation, "level must be a number")
		}
		filter.Level = n
	}
	var err error
	if filter.From, filter.To, err = f.dateRange(); err != nil {
		return export.Table{}, err
	}
	rows, err := s.sources.Violations.ListAll(ctx, filter)
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{
		Title:   "Data Pelanggaran",
		Columns: []string{"No", "Tanggal", "Tingkat", "Kategori", "Keterangan", "Status", "Tindakan"},
	}
	for i, v := range rows {
		table.Rows = append(table.Rows, []interface{}{
			i + 1, v.Date.Format(exportDateLayout), v.Level, v.Category, v.Description, string(v.Status), deref(v.ActionTaken),
		})
	}
	return table, nil
}

func (s *ExportService) budgetTable(ctx context.Context, f exportFilters) (export.Table, error) {
	if s.sources.Budget == nil {
		return export.Table{}, errSourceMissing(models.ExportBudget)
	}
	filter := models.BudgetFilter{
		Status:   models.BudgetStatus(strings.ToUpper(f["status"])),
		Search:   f["q"],
		PageSize: 100,
	}
	var err error
	if filter.From, filter.To, err = f.dateRange(); err != nil {
		return export.Table{}, err
	}
	var requests []models.BudgetRequest
	for filter.Page = 1; ; filter.Page++ {
		page, pagination, err := s.sources.Budget.List(ctx, filter)
		if err != nil {
			return export.Table{}, err
		}
		requests = append(requests, page...)
		if len(page) == 0 || pagination == nil || len(requests) >= pagination.TotalCount {
			break
		}
	}
	table := export.Table{
		Title:   "Pengajuan Anggaran",
		Columns: []string{"No", "Program", "Diajukan", "Disetujui", "Status", "Tanggal"},
		Total:   &export.Total{Label: "Total", Column: 2},
	}
	for i, r := range requests {
		table.Rows = append(table.Rows, []interface{}{
			i + 1, r.ProgramName, r.RequestedAmount, r.ApprovedAmount, string(r.Status), r.CreatedAt.Format(exportDateLayout),
		})
	}
	return table, nil
}

func (s *ExportService) realizationTable(ctx context.Context, f exportFilters) (export.Table, error) {
	if s.sources.Budget == nil {
		return export.Table{}, errSourceMissing(models.ExportRealizations)
	}
	requestID := f["request_id"]
	if requestID == "" {
		return export.Table{}, ErrFilterNotReady
	}
	request, err := s.sources.Budget.Get(ctx, requestID)
	if err != nil {
		return export.Table{}, err
	}
	rows, err := s.sources.Budget.ListRealizations(ctx, requestID)
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{
		Title:    "Realisasi Anggaran",
		Subtitle: request.ProgramName,
		Columns:  []string{"No", "Tanggal", "Keperluan", "Jumlah"},
		Total:    &export.Total{Label: "Total", Column: 3},
	}
	if request.ApprovedAmount != nil {
		table.Info = append(table.Info, export.KeyValue{Key: "Disetujui", Value: export.FormatCurrency(*request.ApprovedAmount)})
	}
	for i, r := range rows {
		table.Rows = append(table.Rows, []interface{}{i + 1, r.SpentAt.Format(exportDateLayout), r.Purpose, r.AmountUsed})
	}
	return table, nil
}

// exportFilters are the raw query values of an export request.
type exportFilters map[string]string

func (f exportFilters) date(key string) (*time.Time, error) {
	raw := strings.TrimSpace(f[key])
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(exportDateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a date (YYYY-MM-DD)", key))
	}
	return &t, nil
}

// dateRange parses from/to. A missing bound stays nil and the report decides whether it is ready.
func (f exportFilters) dateRange() (*time.Time, *time.Time, error) {
	from, err := f.date("from")
	if err != nil {
		return nil, nil, err
	}
	to, err := f.date("to")
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func errSourceMissing(kind models.ExportKind) error {
	return appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("export %s is not configured", kind))
}

func rounded(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := aggregate.Round1(*v)
	return &r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
