package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type routeTokens map[string]*models.JWTClaims

func (r routeTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := r[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Wrap(errors.New("unknown token"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
}

type semesterReportStub struct {
	report *models.SemesterReport
}

func (s *semesterReportStub) Ranking(ctx context.Context, filter models.SemesterReportFilter) (*models.SemesterReport, error) {
	if !filter.Ready() {
		return nil, service.ErrFilterNotReady
	}
	return s.report, nil
}

func (s *semesterReportStub) ReportCard(ctx context.Context, periodID, studentID string) (*models.ReportCard, error) {
	return &models.ReportCard{Student: models.StudentDetail{Student: models.Student{ID: studentID}}}, nil
}

func buildRouter() *gin.Engine {
	return buildReportRouter(&scoreServiceStub{}, &semesterReportStub{report: &models.SemesterReport{}})
}

func buildReportRouter(scores *scoreServiceStub, semester *semesterReportStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	tokens := routeTokens{
		"admin":     {UserID: "a1", Role: models.RoleAdmin},
		"bendahara": {UserID: "b1", Role: models.RoleBendahara},
		"wali":      {UserID: "w1", Role: models.RoleWali, StudentIDs: []string{"s1"}},
	}
	views := service.NewReportViewService(service.ReportViewSources{Scores: scores}, time.Minute, nil)
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Auth:        NewAuthHandler(),
		Scores:      NewScoreHandler(scores),
		Semester:    NewSemesterReportHandler(semester),
		Exports:     NewExportHandler(&exportServiceStub{}),
		ReportViews: NewReportViewHandler(views),
	}, tokens)
	return router
}

func performRequest(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesEnforcePolicy(t *testing.T) {
	router := buildRouter()

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{name: "no token", method: http.MethodGet, path: "/api/v1/scores/recap?period_id=p1", status: http.StatusUnauthorized},
		{name: "treasurer cannot read scores", method: http.MethodGet, path: "/api/v1/scores/recap?period_id=p1", token: "bendahara", status: http.StatusForbidden},
		{name: "guardian cannot delete scores", method: http.MethodDelete, path: "/api/v1/scores/x1", token: "wali", status: http.StatusForbidden},
		{name: "guardian cannot export", method: http.MethodGet, path: "/api/v1/exports?kind=scores&format=csv", token: "wali", status: http.StatusForbidden},
		{name: "admin reads recap", method: http.MethodGet, path: "/api/v1/scores/recap?period_id=p1", token: "admin", status: http.StatusOK},
		{name: "download needs no bearer token", method: http.MethodGet, path: "/api/v1/exports/tampered", status: http.StatusForbidden},
		{name: "me", method: http.MethodGet, path: "/api/v1/me", token: "wali", status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, tc.method, tc.path, tc.token)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestMeListsCapabilities(t *testing.T) {
	w := performRequest(buildRouter(), http.MethodGet, "/api/v1/me", "bendahara")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"BENDAHARA"`)
	assert.Contains(t, w.Body.String(), `"budgets":["read","create","update","delete"]`)
}

func TestGuardianReportsAreScoped(t *testing.T) {
	first, second := 1, 2
	scores := &scoreServiceStub{rows: []models.ScoreRecapRow{
		{StudentID: "s1", StudentName: "Ahmad"},
		{StudentID: "s2", StudentName: "Someone Else"},
	}}
	semester := &semesterReportStub{report: &models.SemesterReport{Rows: []models.SemesterReportRow{
		{StudentID: "s2", StudentName: "Someone Else", OverallAverage: 91, Rank: &first, RankLabel: "1"},
		{StudentID: "s1", StudentName: "Ahmad", OverallAverage: 84, Rank: &second, RankLabel: "2"},
	}}}
	router := buildReportRouter(scores, semester)

	cases := []struct {
		name     string
		method   string
		path     string
		token    string
		status   int
		contains []string
		hidden   bool
	}{
		{name: "guardian recap", method: http.MethodGet, path: "/api/v1/scores/recap?period_id=p1&class_id=c1", token: "wali", status: http.StatusOK, contains: []string{"Ahmad"}, hidden: true},
		{name: "guardian ranking keeps own rank", method: http.MethodGet, path: "/api/v1/reports/semester?period_id=p1&class_id=c1", token: "wali", status: http.StatusOK, contains: []string{"Ahmad", `"rank":2`}, hidden: true},
		{name: "guardian other child report card", method: http.MethodGet, path: "/api/v1/reports/students/s2?period_id=p1", token: "wali", status: http.StatusForbidden},
		{name: "guardian cannot open live view", method: http.MethodPut, path: "/api/v1/report-views/scores?period_id=p1&class_id=c1", token: "wali", status: http.StatusForbidden},
		{name: "guardian cannot read live view", method: http.MethodGet, path: "/api/v1/report-views/scores", token: "wali", status: http.StatusForbidden},
		{name: "admin ranking sees everyone", method: http.MethodGet, path: "/api/v1/reports/semester?period_id=p1&class_id=c1", token: "admin", status: http.StatusOK, contains: []string{"Ahmad", "Someone Else"}},
		{name: "admin opens live view", method: http.MethodPut, path: "/api/v1/report-views/scores?period_id=p1&class_id=c1", token: "admin", status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, tc.method, tc.path, tc.token)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			for _, want := range tc.contains {
				assert.Contains(t, w.Body.String(), want)
			}
			if tc.hidden {
				assert.NotContains(t, w.Body.String(), "Someone Else")
			}
		})
	}
}
