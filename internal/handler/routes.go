package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/authz"
	"github.com/noah-isme/tahfidz-admin-api/internal/middleware"
	"github.com/noah-isme/tahfidz-admin-api/internal/repository"
)

// Handlers groups every API handler. Nil handlers leave their routes unregistered.
type Handlers struct {
	Auth          *AuthHandler
	Students      *StudentHandler
	Reference     *ReferenceHandler
	Periods       *PeriodHandler
	Scores        *ScoreHandler
	Memorization  *MemorizationHandler
	Semester      *SemesterReportHandler
	Attendance    *AttendanceHandler
	Budgets       *BudgetHandler
	Violations    *ViolationHandler
	Announcements *AnnouncementHandler
	Audit         *AuditHandler
	Exports       *ExportHandler
	Broadcasts    *BroadcastHandler
	ReportViews   *ReportViewHandler
}

// RegisterRoutes mounts the API under api. Export downloads are authorised by their signed token
// and stay outside the JWT group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	if h.Exports != nil {
		api.GET("/exports/:token", h.Exports.Download)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	allow := middleware.Authorize

	if h.Auth != nil {
		secured.GET("/me", h.Auth.Me)
	}

	if s := h.Students; s != nil {
		g := secured.Group("/students")
		g.GET("", allow(authz.ActionRead, authz.ResourceStudents), s.List)
		g.GET("/:id", allow(authz.ActionRead, authz.ResourceStudents), s.Get)
		g.POST("", allow(authz.ActionCreate, authz.ResourceStudents), s.Create)
		g.PUT("/:id", allow(authz.ActionUpdate, authz.ResourceStudents), s.Update)
		g.PATCH("/:id/status", allow(authz.ActionUpdate, authz.ResourceStudents), s.ChangeStatus)
	}

	if r := h.Reference; r != nil {
		read := allow(authz.ActionRead, authz.ResourceReference)
		create := allow(authz.ActionCreate, authz.ResourceReference)
		update := allow(authz.ActionUpdate, authz.ResourceReference)
		remove := allow(authz.ActionDelete, authz.ResourceReference)

		secured.GET("/classes", read, r.ListClasses)
		secured.POST("/classes", create, r.SaveClass)
		secured.PUT("/classes/:id", update, r.SaveClass)
		secured.DELETE("/classes/:id", remove, r.Delete(repository.ReferenceClasses))

		secured.GET("/halaqahs", read, r.ListHalaqahs)
		secured.POST("/halaqahs", create, r.SaveHalaqah)
		secured.PUT("/halaqahs/:id", update, r.SaveHalaqah)
		secured.DELETE("/halaqahs/:id", remove, r.Delete(repository.ReferenceHalaqahs))

		secured.GET("/subjects", read, r.ListSubjects)
		secured.POST("/subjects", create, r.SaveSubject)
		secured.PUT("/subjects/:id", update, r.SaveSubject)
		secured.DELETE("/subjects/:id", remove, r.Delete(repository.ReferenceSubjects))

		secured.GET("/teachers", read, r.ListTeachers)
		secured.POST("/teachers", create, r.SaveTeacher)
		secured.PUT("/teachers/:id", update, r.SaveTeacher)
		secured.DELETE("/teachers/:id", remove, r.Delete(repository.ReferenceTeachers))
	}

	if p := h.Periods; p != nil {
		g := secured.Group("/periods")
		g.GET("", allow(authz.ActionRead, authz.ResourcePeriods), p.List)
		g.GET("/active", allow(authz.ActionRead, authz.ResourcePeriods), p.Active)
		g.GET("/:id", allow(authz.ActionRead, authz.ResourcePeriods), p.Get)
		g.POST("", allow(authz.ActionCreate, authz.ResourcePeriods), p.Create)
		g.PUT("/:id", allow(authz.ActionUpdate, authz.ResourcePeriods), p.Update)
		g.POST("/:id/activate", allow(authz.ActionActivate, authz.ResourcePeriods), p.Activate)
		g.DELETE("/:id", allow(authz.ActionDelete, authz.ResourcePeriods), p.Delete)
	}

	if s := h.Scores; s != nil {
		g := secured.Group("/scores")
		g.GET("", allow(authz.ActionRead, authz.ResourceScores), s.List)
		g.GET("/recap", allow(authz.ActionRead, authz.ResourceReports), s.Recap)
		g.GET("/:id", allow(authz.ActionRead, authz.ResourceScores), s.Get)
		g.PUT("", allow(authz.ActionUpdate, authz.ResourceScores), s.Upsert)
		g.POST("/batch", allow(authz.ActionUpdate, authz.ResourceScores), s.SaveBatch)
		g.DELETE("/:id", allow(authz.ActionDelete, authz.ResourceScores), s.Delete)
	}

	if m := h.Memorization; m != nil {
		g := secured.Group("/memorization")
		g.GET("", allow(authz.ActionRead, authz.ResourceMemorization), m.List)
		g.GET("/report", allow(authz.ActionRead, authz.ResourceReports), m.Report)
		g.GET("/:id", allow(authz.ActionRead, authz.ResourceMemorization), m.Get)
		g.POST("", allow(authz.ActionCreate, authz.ResourceMemorization), m.Create)
		g.PUT("/:id", allow(authz.ActionUpdate, authz.ResourceMemorization), m.Update)
		g.DELETE("/:id", allow(authz.ActionDelete, authz.ResourceMemorization), m.Delete)
	}

	if s := h.Semester; s != nil {
		secured.GET("/reports/semester", allow(authz.ActionRead, authz.ResourceReports), s.Ranking)
		secured.GET("/reports/students/:id", allow(authz.ActionRead, authz.ResourceReports), s.ReportCard)
	}

	if a := h.Attendance; a != nil {
		g := secured.Group("/attendance")
		g.GET("", allow(authz.ActionRead, authz.ResourceAttendance), a.List)
		g.GET("/recap", allow(authz.ActionRead, authz.ResourceReports), a.Recap)
		g.POST("", allow(authz.ActionCreate, authz.ResourceAttendance), a.RecordBatch)
		g.DELETE("/:id", allow(authz.ActionDelete, authz.ResourceAttendance), a.Delete)
	}

	if b := h.Budgets; b != nil {
		g := secured.Group("/budgets")
		g.GET("", allow(authz.ActionRead, authz.ResourceBudgets), b.List)
		g.GET("/summary", allow(authz.ActionRead, authz.ResourceBudgets), b.Summary)
		g.GET("/:id", allow(authz.ActionRead, authz.ResourceBudgets), b.Get)
		g.POST("", allow(authz.ActionCreate, authz.ResourceBudgets), b.Create)
		g.PUT("/:id", allow(authz.ActionUpdate, authz.ResourceBudgets), b.Update)
		g.DELETE("/:id", allow(authz.ActionDelete, authz.ResourceBudgets), b.Delete)
		g.POST("/:id/approve", allow(authz.ActionApprove, authz.ResourceBudgets), b.Approve)
		g.POST("/:id/reject", allow(authz.ActionApprove, authz.ResourceBudgets), b.Reject)
		g.POST("/:id/complete", allow(authz.ActionApprove, authz.ResourceBudgets), b.Complete)
		g.GET("/:id/realizations", allow(authz.ActionRead, authz.ResourceRealizations), b.ListRealizations)
		g.POST("/:id/realizations", allow(authz.ActionCreate, authz.ResourceRealizations), b.AddRealization)
	}

	if v := h.Violations; v != nil {
		g := secured.Group("/violations")
		g.GET("", allow(authz.ActionRead, authz.ResourceViolations), v.List)
		g.GET("/recap", allow(authz.ActionRead, authz.ResourceViolations), v.Recap)
		g.GET("/:id", allow(authz.ActionRead, authz.ResourceViolations), v.Get)
		g.POST("", allow(authz.ActionCreate, authz.ResourceViolations), v.Create)
		g.PUT("/:id", allow(authz.ActionUpdate, authz.ResourceViolations), v.Update)
		g.PATCH("/:id/status", allow(authz.ActionUpdate, authz.ResourceViolations), v.Advance)
		g.DELETE("/:id", allow(authz.ActionDelete, authz.ResourceViolations), v.Delete)
	}

	if a := h.Announcements; a != nil {
		g := secured.Group("/announcements")
		g.GET("", allow(authz.ActionRead, authz.ResourceAnnouncements), a.List)
		g.GET("/:id", allow(authz.ActionRead, authz.ResourceAnnouncements), a.Get)
		g.POST("", allow(authz.ActionCreate, authz.ResourceAnnouncements), a.Create)
		g.PUT("/:id", allow(authz.ActionUpdate, authz.ResourceAnnouncements), a.Update)
		g.POST("/:id/archive", allow(authz.ActionArchive, authz.ResourceAnnouncements), a.Archive)
		g.POST("/:id/restore", allow(authz.ActionArchive, authz.ResourceAnnouncements), a.Restore)
		g.DELETE("/:id", allow(authz.ActionDelete, authz.ResourceAnnouncements), a.Delete)
	}

	if a := h.Audit; a != nil {
		secured.GET("/audit-logs", allow(authz.ActionRead, authz.ResourceAudit), a.List)
	}

	if e := h.Exports; e != nil {
		secured.POST("/exports", allow(authz.ActionExport, authz.ResourceExports), e.Generate)
		secured.GET("/exports", allow(authz.ActionExport, authz.ResourceExports), e.GenerateFromQuery)
	}

	if b := h.Broadcasts; b != nil {
		g := secured.Group("/broadcasts")
		g.POST("", allow(authz.ActionBroadcast, authz.ResourceBroadcasts), b.Start)
		g.GET("/:id", allow(authz.ActionRead, authz.ResourceBroadcasts), b.Status)
		g.DELETE("/:id", allow(authz.ActionBroadcast, authz.ResourceBroadcasts), b.Cancel)
	}

	if v := h.ReportViews; v != nil {
		g := secured.Group("/report-views")
		g.GET("/:kind", allow(authz.ActionRead, authz.ResourceReports), v.Snapshot)
		g.PUT("/:kind", allow(authz.ActionRead, authz.ResourceReports), v.Apply)
		g.DELETE("/:kind", allow(authz.ActionRead, authz.ResourceReports), v.Close)
	}
}
