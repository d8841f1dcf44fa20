package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type exportServiceStub struct {
	req      models.ExportRequest
	result   *models.ExportResult
	err      error
	download *service.ExportDownload
}

func (s *exportServiceStub) Generate(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error) {
	s.req = req
	return s.result, s.err
}

func (s *exportServiceStub) ResolveDownload(token string) (*service.ExportDownload, error) {
	if s.download == nil || token != "good" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return s.download, nil
}

func TestExportGenerate(t *testing.T) {
	stub := &exportServiceStub{result: &models.ExportResult{ID: "e1", FileName: "scores.csv", Rows: 2, URL: "/api/v1/exports/tok"}}
	h := NewExportHandler(stub)

	c, w := newGinContext(http.MethodPost, "/exports", []byte(`{"kind":"scores","format":"csv","filters":{"period_id":"p1","class_id":"c1"}}`))
	h.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.ExportScores, stub.req.Kind)
	assert.Equal(t, "c1", stub.req.Filters["class_id"])
	assert.Contains(t, w.Body.String(), `"url":"/api/v1/exports/tok"`)
}

func TestExportGenerateFromQueryPassesFilters(t *testing.T) {
	stub := &exportServiceStub{result: &models.ExportResult{ID: "e1"}}
	h := NewExportHandler(stub)

	c, w := newGinContext(http.MethodGet, "/exports?kind=attendance&format=pdf&halaqah_id=h1&from=2026-04-01&to=2026-04-30", nil)
	h.GenerateFromQuery(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.ExportFormatPDF, stub.req.Format)
	assert.Equal(t, map[string]string{"halaqah_id": "h1", "from": "2026-04-01", "to": "2026-04-30"}, stub.req.Filters)
}

func TestExportGenerateErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "empty report", err: appErrors.ErrNothingToExport, status: http.StatusUnprocessableEntity, code: appErrors.ErrNothingToExport.Code},
		{name: "incomplete filter", err: service.ErrFilterNotReady, status: http.StatusBadRequest, code: appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewExportHandler(&exportServiceStub{err: tc.err})
			c, w := newGinContext(http.MethodPost, "/exports", []byte(`{"kind":"scores","format":"xlsx"}`))
			h.Generate(c)

			require.Equal(t, tc.status, w.Code)
			env := decodeEnvelope(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestExportDownloadStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte("No,Nama\n1,Ahmad\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	h := NewExportHandler(&exportServiceStub{download: &service.ExportDownload{
		File:        file,
		FileName:    "scores.csv",
		ContentType: "text/csv",
		ExpiresAt:   time.Now().Add(time.Hour),
	}})

	c, w := newGinContext(http.MethodGet, "/exports/good", nil)
	c.Params = gin.Params{{Key: "token", Value: "good"}}
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="scores.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "No,Nama\n1,Ahmad\n", w.Body.String())

	c, w = newGinContext(http.MethodGet, "/exports/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
