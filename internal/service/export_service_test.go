package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/storage"
)

type stubScoreRecap struct {
	rows  []models.ScoreRecapRow
	calls int
}

func (s *stubScoreRecap) Recap(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecapRow, error) {
	s.calls++
	if !filter.Ready() {
		return nil, ErrFilterNotReady
	}
	return s.rows, nil
}

type stubBudgetExport struct {
	requests     []models.BudgetRequest
	realizations []models.FundRealization
}

func (s stubBudgetExport) List(ctx context.Context, filter models.BudgetFilter) ([]models.BudgetRequest, *models.Pagination, error) {
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(s.requests) {
		return nil, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(s.requests)}, nil
	}
	end := start + filter.PageSize
	if end > len(s.requests) {
		end = len(s.requests)
	}
	return s.requests[start:end], &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(s.requests)}, nil
}

func (s stubBudgetExport) Get(ctx context.Context, id string) (*models.BudgetRequest, error) {
	for i := range s.requests {
		if s.requests[i].ID == id {
			return &s.requests[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "budget request not found")
}

func (s stubBudgetExport) ListRealizations(ctx context.Context, requestID string) ([]models.FundRealization, error) {
	return s.realizations, nil
}

func newExportServiceForTest(t *testing.T, sources ExportSources) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(sources, store, signer, nil, nil, ExportConfig{APIPrefix: "/api/v1/", ResultTTL: time.Hour}, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 6, 20, 9, 30, 0, 0, time.UTC) }
	return svc, store
}

func recapRows() []models.ScoreRecapRow {
	return []models.ScoreRecapRow{
		{StudentID: studentA, StudentName: "Ahmad", NIS: "1001", SubjectName: "Tahfidz", Exams: 3, Average: f64(80), Predicate: "B (Jayyid Jiddan)"},
		{StudentID: studentB, StudentName: "Bilal", NIS: "1002", SubjectName: "Tahfidz", Exams: 3, Average: f64(91.25), Predicate: "A (Mumtaz)"},
	}
}

func scoreExportFilters() map[string]string {
	return map[string]string{"period_id": "p1", "class_id": "c1"}
}

func TestExportServiceGenerateCSVRoundTrip(t *testing.T) {
	svc, _ := newExportServiceForTest(t, ExportSources{Scores: &stubScoreRecap{rows: recapRows()}})

	result, err := svc.Generate(context.Background(), models.ExportRequest{
		Kind:    models.ExportScores,
		Format:  models.ExportFormatCSV,
		Filters: scoreExportFilters(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "scores_20260620_093000.csv", result.FileName)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))

	token := strings.TrimPrefix(result.URL, "/api/v1/exports/")
	download, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, result.FileName, download.FileName)
	assert.Equal(t, "text/csv", download.ContentType)

	records, err := csv.NewReader(download.File).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"No", "NIS", "Nama", "Mata Pelajaran", "Jumlah Ujian", "Rata-rata", "Predikat"}, records[0])
	assert.Equal(t, []string{"1", "1001", "Ahmad", "Tahfidz", "3", "80", "B (Jayyid Jiddan)"}, records[1])
	assert.Equal(t, "91,3", records[2][5])
}

func TestExportServiceXLSXKeepsColumnOrder(t *testing.T) {
	svc, _ := newExportServiceForTest(t, ExportSources{Scores: &stubScoreRecap{rows: recapRows()}})

	result, err := svc.Generate(context.Background(), models.ExportRequest{Kind: models.ExportScores, Format: models.ExportFormatXLSX, Filters: scoreExportFilters()})
	require.NoError(t, err)

	download, err := svc.ResolveDownload(strings.TrimPrefix(result.URL, "/api/v1/exports/"))
	require.NoError(t, err)
	defer download.File.Close()
	data, err := io.ReadAll(download.File)
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(book.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Mata Pelajaran", rows[0][3])
	assert.Equal(t, "Bilal", rows[2][2])
}

func TestExportServiceEmptyReport(t *testing.T) {
	svc, store := newExportServiceForTest(t, ExportSources{Scores: &stubScoreRecap{}})

	_, err := svc.Generate(context.Background(), models.ExportRequest{Kind: models.ExportScores, Format: models.ExportFormatPDF, Filters: scoreExportFilters()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNothingToExport.Code, appErrors.FromError(err).Code)

	removed, err := store.CleanupOlderThan(0)
	require.NoError(t, err)
	assert.Empty(t, removed, "nothing is written for an empty report")
}

func TestExportServiceIncompleteFilter(t *testing.T) {
	scores := &stubScoreRecap{rows: recapRows()}
	svc, _ := newExportServiceForTest(t, ExportSources{Scores: scores})

	_, err := svc.Generate(context.Background(), models.ExportRequest{Kind: models.ExportScores, Format: models.ExportFormatCSV, Filters: map[string]string{"period_id": "p1"}})
	assert.ErrorIs(t, err, ErrFilterNotReady)

	_, err = svc.Generate(context.Background(), models.ExportRequest{Kind: models.ExportStudents, Format: models.ExportFormatCSV})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code, "students source not configured")

	_, err = svc.Generate(context.Background(), models.ExportRequest{Kind: "rapor", Format: models.ExportFormatCSV})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceTextCarriesWhatsAppLink(t *testing.T) {
	spent := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	budget := stubBudgetExport{
		requests: []models.BudgetRequest{{ID: "r1", ProgramName: "Wisuda Tahfidz", RequestedAmount: 2000000, ApprovedAmount: f64(1500000), Status: models.BudgetApproved}},
		realizations: []models.FundRealization{
			{ID: "x1", AmountUsed: 1000000, Purpose: "Konsumsi", SpentAt: spent},
			{ID: "x2", AmountUsed: 250000, Purpose: "Sertifikat", SpentAt: spent},
		},
	}
	svc, _ := newExportServiceForTest(t, ExportSources{Budget: budget})

	result, err := svc.Generate(context.Background(), models.ExportRequest{
		Kind:    models.ExportRealizations,
		Format:  models.ExportFormatText,
		Filters: map[string]string{"request_id": "r1", "phone": "0812-3456-7890"},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "*Realisasi Anggaran*")
	assert.Contains(t, result.Text, "Disetujui: Rp 1.500.000")
	assert.Contains(t, result.Text, "1.250.000")
	assert.True(t, strings.HasPrefix(result.WhatsAppLink, "https://wa.me/6281234567890?text="))
	assert.Equal(t, "txt", filepath.Ext(result.FileName)[1:])
}

func TestExportServiceBudgetReadsEveryPage(t *testing.T) {
	requests := make([]models.BudgetRequest, 0, 130)
	for i := 0; i < 130; i++ {
		requests = append(requests, models.BudgetRequest{ID: "r", ProgramName: "Program", RequestedAmount: 1000, Status: models.BudgetPending})
	}
	svc, _ := newExportServiceForTest(t, ExportSources{Budget: stubBudgetExport{requests: requests}})

	table, err := svc.BuildTable(context.Background(), models.ExportBudget, nil)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 130)
	assert.InDelta(t, 130000, table.TotalValue(), 1e-9)
}

func TestExportServiceCleanup(t *testing.T) {
	svc, _ := newExportServiceForTest(t, ExportSources{Scores: &stubScoreRecap{rows: recapRows()}})
	_, err := svc.Generate(context.Background(), models.ExportRequest{Kind: models.ExportScores, Format: models.ExportFormatCSV, Filters: scoreExportFilters()})
	require.NoError(t, err)

	kept, err := svc.Cleanup(0)
	require.NoError(t, err)
	assert.Empty(t, kept, "fresh files survive the configured TTL")

	removed, err := svc.Cleanup(time.Nanosecond)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
}

func TestExportServiceResolveDownloadRejectsBadTokens(t *testing.T) {
	svc, _ := newExportServiceForTest(t, ExportSources{Scores: &stubScoreRecap{rows: recapRows()}})

	_, err := svc.ResolveDownload("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	result, err := svc.Generate(context.Background(), models.ExportRequest{Kind: models.ExportScores, Format: models.ExportFormatCSV, Filters: scoreExportFilters()})
	require.NoError(t, err)
	token := strings.TrimPrefix(result.URL, "/api/v1/exports/")
	_, err = svc.ResolveDownload(token[:len(token)-2] + "xx")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
