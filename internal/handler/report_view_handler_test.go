package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	"github.com/noah-isme/tahfidz-admin-api/pkg/viewstate"
)

type viewSnapshot struct {
	Generation uint64           `json:"generation"`
	Status     viewstate.Status `json:"status"`
	Rows       json.RawMessage  `json:"rows"`
	Notice     string           `json:"notice"`
}

func applyView(t *testing.T, h *ReportViewHandler, method, query string) viewSnapshot {
	t.Helper()
	c, w := newGinContext(method, "/report-views/scores"+query, nil)
	c.Params = gin.Params{{Key: "kind", Value: service.ReportViewScores}}
	withClaims(c, models.RoleUstadz)
	if method == http.MethodPut {
		h.Apply(c)
	} else {
		h.Snapshot(c)
	}
	require.Equal(t, http.StatusOK, w.Code)
	var snap viewSnapshot
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &snap))
	return snap
}

func TestReportViewFollowsLatestSelection(t *testing.T) {
	avg := 75.0
	stub := &scoreServiceStub{rows: []models.ScoreRecapRow{{StudentID: "s1", Average: &avg}}}
	views := service.NewReportViewService(service.ReportViewSources{Scores: stub}, time.Minute, nil)
	h := NewReportViewHandler(views)

	snap := applyView(t, h, http.MethodPut, "?period_id=p1")
	assert.Equal(t, viewstate.StatusEmpty, snap.Status)
	assert.Equal(t, viewstate.DefaultEmptyNotice, snap.Notice)

	snap = applyView(t, h, http.MethodPut, "?period_id=p1&class_id=c1")
	assert.Equal(t, viewstate.StatusReady, snap.Status)
	assert.Equal(t, "c1", stub.filter.ClassID)
	assert.Contains(t, string(snap.Rows), `"student_id":"s1"`)

	current := applyView(t, h, http.MethodGet, "")
	assert.Equal(t, snap.Generation, current.Generation)
	assert.Equal(t, viewstate.StatusReady, current.Status)
}

func TestReportViewUnknownKind(t *testing.T) {
	views := service.NewReportViewService(service.ReportViewSources{}, time.Minute, nil)
	h := NewReportViewHandler(views)

	c, w := newGinContext(http.MethodGet, "/report-views/rapor", nil)
	c.Params = gin.Params{{Key: "kind", Value: "rapor"}}
	h.Snapshot(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
