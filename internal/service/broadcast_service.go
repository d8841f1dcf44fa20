package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/aggregate"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/export"
	"github.com/noah-isme/tahfidz-admin-api/pkg/jobs"
)

const (
	broadcastJobType   = "broadcast"
	broadcastStatusTTL = 24 * time.Hour
)

var errBroadcastNotFound = errors.New("broadcast not found")

type reportCardSource interface {
	ReportCard(ctx context.Context, periodID, studentID string) (*models.ReportCard, error)
}

// BroadcastConfig tunes the send loop.
type BroadcastConfig struct {
	Interval time.Duration
	Workers  int
}

type broadcastRun struct {
	status   models.BroadcastStatus
	messages []string
	cancel   chan struct{}
	once     sync.Once
}

// BroadcastService renders one message per guardian and sends them one at a time on a fixed interval.
type BroadcastService struct {
	students  studentRoster
	cards     reportCardSource
	sender    MessageSender
	mirror    CacheRepository
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	interval  time.Duration
	queue     *jobs.Queue

	mu   sync.RWMutex
	runs map[string]*broadcastRun
}

// NewBroadcastService constructs the service. cards and mirror may be nil; a nil sender produces wa.me links.
func NewBroadcastService(students studentRoster, cards reportCardSource, sender MessageSender, mirror CacheRepository, audit auditRecorder, metrics *MetricsService, cfg BroadcastConfig, validate *validator.Validate, logger *zap.Logger) *BroadcastService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	if sender == nil {
		sender = LinkSender{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	s := &BroadcastService{
		students:  students,
		cards:     cards,
		sender:    sender,
		mirror:    mirror,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		interval:  cfg.Interval,
		runs:      make(map[string]*broadcastRun),
	}
	s.queue = jobs.NewQueue(broadcastJobType, s.handle, jobs.QueueConfig{Workers: cfg.Workers, Logger: logger})
	return s
}

// Run starts the send workers. They stop when ctx is cancelled or Stop is called.
func (s *BroadcastService) Run(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the workers; broadcasts in progress end as CANCELLED.
func (s *BroadcastService) Stop() {
	s.queue.Stop()
}

// Start renders the messages for the selected guardians and queues the send.
func (s *BroadcastService) Start(ctx context.Context, req models.BroadcastRequest, actor string) (*models.BroadcastStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.ClassID == "" && req.HalaqahID == "" && len(req.StudentIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pilih kelas, halaqah atau santri penerima")
	}
	recipients, err := s.recipients(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tidak ada penerima")
	}

	run := &broadcastRun{
		status: models.BroadcastStatus{
			ID:         uuid.NewString(),
			State:      models.BroadcastQueued,
			Total:      len(recipients),
			Deliveries: make([]models.BroadcastDelivery, len(recipients)),
			CreatedBy:  actor,
			StartedAt:  time.Now().UTC(),
		},
		messages: make([]string, len(recipients)),
		cancel:   make(chan struct{}),
	}
	for i, r := range recipients {
		run.messages[i] = RenderTemplate(req.Template, r)
		run.status.Deliveries[i] = models.BroadcastDelivery{StudentID: r.StudentID, Name: r.Name, Phone: r.Phone}
	}

	s.mu.Lock()
	s.sweepLocked(time.Now().UTC())
	s.runs[run.status.ID] = run
	snapshot := cloneBroadcastStatus(run.status)
	s.mu.Unlock()
	s.persist(ctx, snapshot)

	if err := s.queue.Enqueue(jobs.Job{ID: run.status.ID, Type: broadcastJobType, Payload: run.status.ID}); err != nil {
		s.mu.Lock()
		delete(s.runs, run.status.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue broadcast")
	}

	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionBroadcast,
		EntityType:  "broadcast",
		EntityID:    &snapshot.ID,
		Description: fmt.Sprintf("kirim pesan ke %d wali santri", snapshot.Total),
	})
	return &snapshot, nil
}

// Status returns the progress of a broadcast. Finished broadcasts are read back from Redis when
// this process no longer holds them.
func (s *BroadcastService) Status(ctx context.Context, id string) (*models.BroadcastStatus, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	var snapshot models.BroadcastStatus
	if ok {
		snapshot = cloneBroadcastStatus(run.status)
	}
	s.mu.RUnlock()
	if ok {
		return &snapshot, nil
	}
	if s.mirror != nil {
		var stored models.BroadcastStatus
		if err := s.mirror.Get(ctx, broadcastKey(id), &stored); err == nil {
			return &stored, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("broadcast status lookup failed", zap.String("broadcast_id", id), zap.Error(err))
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "broadcast not found")
}

// Cancel stops the remaining sends. Messages already triggered are kept in the counters.
// A broadcast that already finished is returned unchanged.
func (s *BroadcastService) Cancel(ctx context.Context, id, actor string) (*models.BroadcastStatus, error) {
	s.mu.Lock()
	run, ok := s.runs[id]
	if !ok {
		s.mu.Unlock()
		return s.Status(ctx, id)
	}
	if run.status.State == models.BroadcastQueued || run.status.State == models.BroadcastRunning {
		run.once.Do(func() { close(run.cancel) })
		finish(&run.status, models.BroadcastCancelled)
	}
	snapshot := cloneBroadcastStatus(run.status)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.logger.Info("broadcast cancelled", zap.String("broadcast_id", id), zap.String("actor", actor), zap.Int("processed", snapshot.Processed()))
	return &snapshot, nil
}

func (s *BroadcastService) handle(ctx context.Context, job jobs.Job) error {
	id, _ := job.Payload.(string)
	s.mu.Lock()
	run, ok := s.runs[id]
	if !ok {
		s.mu.Unlock()
		return jobs.Permanent(fmt.Errorf("%w: %s", errBroadcastNotFound, id))
	}
	if run.status.State != models.BroadcastQueued {
		s.mu.Unlock()
		s.stop(run, models.BroadcastCancelled)
		return nil
	}
	run.status.State = models.BroadcastRunning
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for i := range run.messages {
		if i > 0 {
			select {
			case <-ctx.Done():
				s.stop(run, models.BroadcastCancelled)
				return nil
			case <-run.cancel:
				s.stop(run, models.BroadcastCancelled)
				return nil
			case <-ticker.C:
			}
		}
		select {
		case <-run.cancel:
			s.stop(run, models.BroadcastCancelled)
			return nil
		default:
		}
		s.deliver(ctx, run, i)
	}
	s.stop(run, models.BroadcastDone)
	return nil
}

// deliver triggers message i and bumps exactly one of Sent or Failed.
func (s *BroadcastService) deliver(ctx context.Context, run *broadcastRun, i int) {
	s.mu.RLock()
	phone := run.status.Deliveries[i].Phone
	s.mu.RUnlock()

	var link string
	err := errors.New("nomor wali kosong")
	if export.NormalizePhone(phone) != "" {
		link, err = s.sender.Send(ctx, phone, run.messages[i])
	}
	now := time.Now().UTC()

	s.mu.Lock()
	delivery := &run.status.Deliveries[i]
	delivery.Link = link
	if err != nil {
		delivery.Error = err.Error()
		run.status.Failed++
	} else {
		delivery.SentAt = &now
		run.status.Sent++
	}
	snapshot := cloneBroadcastStatus(run.status)
	s.mu.Unlock()

	s.metrics.IncBroadcastSend(err == nil)
	if err != nil {
		s.logger.Warn("broadcast message failed", zap.String("broadcast_id", snapshot.ID), zap.String("student_id", snapshot.Deliveries[i].StudentID), zap.Error(err))
	}
	s.persist(ctx, snapshot)
}

// stop finishes a run and drops it from memory once Redis holds its final status.
func (s *BroadcastService) stop(run *broadcastRun, state models.BroadcastState) {
	s.mu.Lock()
	if run.status.State == models.BroadcastRunning {
		finish(&run.status, state)
	}
	snapshot := cloneBroadcastStatus(run.status)
	s.mu.Unlock()
	// The job context may already be cancelled at shutdown.
	if s.persist(context.Background(), snapshot) {
		s.mu.Lock()
		delete(s.runs, snapshot.ID)
		s.mu.Unlock()
	}
	s.logger.Info("broadcast finished",
		zap.String("broadcast_id", snapshot.ID),
		zap.String("state", string(snapshot.State)),
		zap.Int("sent", snapshot.Sent),
		zap.Int("failed", snapshot.Failed),
	)
}

func (s *BroadcastService) persist(ctx context.Context, status models.BroadcastStatus) bool {
	if s.mirror == nil {
		return false
	}
	if err := s.mirror.Set(ctx, broadcastKey(status.ID), status, broadcastStatusTTL); err != nil {
		s.logger.Warn("broadcast status mirror failed", zap.String("broadcast_id", status.ID), zap.Error(err))
		return false
	}
	return true
}

// sweepLocked drops finished runs older than the status TTL. Callers hold s.mu.
func (s *BroadcastService) sweepLocked(now time.Time) {
	for id, run := range s.runs {
		if run.status.FinishedAt != nil && now.Sub(*run.status.FinishedAt) > broadcastStatusTTL {
			delete(s.runs, id)
		}
	}
}

func (s *BroadcastService) recipients(ctx context.Context, req models.BroadcastRequest) ([]models.BroadcastRecipient, error) {
	var students []models.StudentDetail
	if len(req.StudentIDs) > 0 {
		for _, id := range req.StudentIDs {
			student, err := s.students.FindByID(ctx, id)
			if err != nil {
				return nil, loadError(err, "student")
			}
			students = append(students, *student)
		}
	} else {
		var err error
		students, err = s.students.ListActiveByGroup(ctx, req.ClassID, req.HalaqahID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
		}
	}

	recipients := make([]models.BroadcastRecipient, 0, len(students))
	for _, st := range students {
		r := models.BroadcastRecipient{
			StudentID: st.ID,
			Name:      st.FullName,
			ClassName: deref(st.ClassName),
			Phone:     st.GuardianPhone,
		}
		if r.ClassName == "" {
			r.ClassName = deref(st.HalaqahName)
		}
		if req.PeriodID != "" && s.cards != nil {
			card, err := s.cards.ReportCard(ctx, req.PeriodID, st.ID)
			if err != nil {
				s.logger.Warn("broadcast summary unavailable", zap.String("student_id", st.ID), zap.Error(err))
			} else {
				r.Summary = SummarizeReportCard(card)
			}
		}
		recipients = append(recipients, r)
	}
	return recipients, nil
}

// RenderTemplate fills {nama}, {kelas} and {ringkasan}.
func RenderTemplate(template string, r models.BroadcastRecipient) string {
	return strings.NewReplacer(
		"{nama}", r.Name,
		"{kelas}", r.ClassName,
		"{ringkasan}", r.Summary,
	).Replace(template)
}

// SummarizeReportCard is the one-line standing used for {ringkasan}.
func SummarizeReportCard(card *models.ReportCard) string {
	summary := fmt.Sprintf("rata-rata %s (%s), peringkat %s dari %d",
		export.FormatNumber(aggregate.Round1(card.Row.OverallAverage)),
		card.Row.Predicate,
		card.Row.RankLabel,
		card.ClassSize,
	)
	if card.Memorization != nil {
		summary += fmt.Sprintf(", hafalan %s halaman", export.FormatNumber(card.Memorization.TotalPages))
	}
	return summary
}

func finish(status *models.BroadcastStatus, state models.BroadcastState) {
	now := time.Now().UTC()
	status.State = state
	status.FinishedAt = &now
}

func broadcastKey(id string) string {
	return "broadcast:" + id
}

func cloneBroadcastStatus(status models.BroadcastStatus) models.BroadcastStatus {
	out := status
	out.Deliveries = append([]models.BroadcastDelivery(nil), status.Deliveries...)
	return out
}
