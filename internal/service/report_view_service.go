package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/viewstate"
)

// Report view kinds.
const (
	ReportViewScores       = "scores"
	ReportViewSemester     = "semester-ranking"
	ReportViewMemorization = "memorization"
	ReportViewAttendance   = "attendance"
)

// ReportViewSources are the reports a live view can bind to.
type ReportViewSources struct {
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
}

// reportView hides the filter and row types of one bound report.
type reportView interface {
	apply(ctx context.Context, bind func(interface{}) error) (interface{}, error)
	snapshot() interface{}
	close()
}

type boundView[F viewstate.Filter, R any] struct {
	binder *viewstate.Binder[F, R]
}

func (v *boundView[F, R]) apply(ctx context.Context, bind func(interface{}) error) (interface{}, error) {
	var filter F
	if err := bind(&filter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report filter")
	}
	snap, _ := v.binder.Apply(ctx, filter)
	return snap, nil
}

func (v *boundView[F, R]) snapshot() interface{} { return v.binder.Snapshot() }
func (v *boundView[F, R]) close()                { v.binder.Close() }

type viewSession struct {
	view     reportView
	lastUsed time.Time
}

// ReportViewService keeps one live report view per user and report kind. Each view remembers the
// latest filter and drops results of superseded selections.
type ReportViewService struct {
	sources ReportViewSources
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*viewSession
}

// NewReportViewService constructs the service. Sessions unused for idleTTL are dropped by Sweep.
func NewReportViewService(sources ReportViewSources, idleTTL time.Duration, logger *zap.Logger) *ReportViewService {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportViewService{
		sources:  sources,
		idleTTL:  idleTTL,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*viewSession),
	}
}

// Apply binds a new filter to the actor's view of kind and returns the resulting snapshot.
// bind decodes the request into the kind's filter struct.
func (s *ReportViewService) Apply(ctx context.Context, actor, kind string, bind func(interface{}) error) (interface{}, error) {
	session, err := s.session(actor, kind)
	if err != nil {
		return nil, err
	}
	return session.view.apply(ctx, bind)
}

// Snapshot returns the current state of the actor's view of kind without fetching.
func (s *ReportViewService) Snapshot(actor, kind string) (interface{}, error) {
	session, err := s.session(actor, kind)
	if err != nil {
		return nil, err
	}
	return session.view.snapshot(), nil
}

// Close drops the actor's view of kind.
func (s *ReportViewService) Close(actor, kind string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionKey(actor, kind)]
	delete(s.sessions, sessionKey(actor, kind))
	s.mu.Unlock()
	if ok {
		session.view.close()
	}
}

// Sweep drops sessions idle for longer than the TTL and returns how many were removed.
func (s *ReportViewService) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)
	var expired []*viewSession
	s.mu.Lock()
	for key, session := range s.sessions {
		if session.lastUsed.Before(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()
	for _, session := range expired {
		session.view.close()
	}
	return len(expired)
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *ReportViewService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("report view sessions expired", zap.Int("count", n))
			}
		}
	}
}

func (s *ReportViewService) session(actor, kind string) (*viewSession, error) {
	key := sessionKey(actor, kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		view, err := s.newView(kind)
		if err != nil {
			return nil, err
		}
		session = &viewSession{view: view}
		s.sessions[key] = session
	}
	session.lastUsed = s.now()
	return session, nil
}

func (s *ReportViewService) newView(kind string) (reportView, error) {
	opts := []viewstate.Option{viewstate.WithLogger(s.logger), viewstate.WithErrorNotice(viewNotice)}
	switch {
	case kind == ReportViewScores && s.sources.Scores != nil:
		return &boundView[models.ScoreFilter, models.ScoreRecapRow]{
			binder: viewstate.NewBinder[models.ScoreFilter, models.ScoreRecapRow](s.sources.Scores.Recap, opts...),
		}, nil
	case kind == ReportViewSemester && s.sources.Semester != nil:
		fetch := func(ctx context.Context, f models.SemesterReportFilter) ([]models.SemesterReportRow, error) {
			report, err := s.sources.Semester.Ranking(ctx, f)
			if err != nil {
				return nil, err
			}
			return report.Rows, nil
		}
		return &boundView[models.SemesterReportFilter, models.SemesterReportRow]{
			binder: viewstate.NewBinder[models.SemesterReportFilter, models.SemesterReportRow](fetch, opts...),
		}, nil
	case kind == ReportViewMemorization && s.sources.Memorization != nil:
		fetch := func(ctx context.Context, f models.MemorizationFilter) ([]models.MemorizationReportRow, error) {
			report, err := s.sources.Memorization.Report(ctx, f)
			if err != nil {
				return nil, err
			}
			return report.Rows, nil
		}
		return &boundView[models.MemorizationFilter, models.MemorizationReportRow]{
			binder: viewstate.NewBinder[models.MemorizationFilter, models.MemorizationReportRow](fetch, opts...),
		}, nil
	case kind == ReportViewAttendance && s.sources.Attendance != nil:
		return &boundView[models.AttendanceFilter, models.AttendanceRecapRow]{
			binder: viewstate.NewBinder[models.AttendanceFilter, models.AttendanceRecapRow](s.sources.Attendance.Recap, opts...),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown report view "+kind)
	}
}

// viewNotice shows client errors as they are and hides server errors behind the generic notice.
func viewNotice(err error) string {
	appErr := appErrors.FromError(err)
	if appErr.Status < http.StatusInternalServerError {
		return appErr.Message
	}
	return viewstate.DefaultErrorNotice
}

func sessionKey(actor, kind string) string {
	return actor + "|" + kind
}
