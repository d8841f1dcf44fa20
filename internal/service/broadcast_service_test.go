package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

const broadcastClass = "5b0e2c1a-7d3f-4e8a-9c21-0f6d4b2a1e90"

type sentMessage struct {
	phone     string
	text      string
	at        time.Time
	processed int
}

type recordingSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	fail     map[string]bool
	progress func() int
}

func (r *recordingSender) Send(ctx context.Context, phone, text string) (string, error) {
	processed := -1
	if r.progress != nil {
		processed = r.progress()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{phone: phone, text: text, at: time.Now(), processed: processed})
	if r.fail[phone] {
		return "", errors.New("gateway down")
	}
	return "", nil
}

func (r *recordingSender) messages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

func broadcastRoster() *mockStudentRepo {
	class := broadcastClass
	return newMockStudentRepo(
		models.Student{ID: "s1", NIS: "1", FullName: "Ahmad", Status: models.StudentStatusActive, ClassID: &class, GuardianPhone: "0811111"},
		models.Student{ID: "s2", NIS: "2", FullName: "Bilal", Status: models.StudentStatusActive, ClassID: &class, GuardianPhone: "0822222"},
		models.Student{ID: "s3", NIS: "3", FullName: "Umar", Status: models.StudentStatusActive, ClassID: &class, GuardianPhone: "0833333"},
	)
}

func newBroadcastServiceForTest(t *testing.T, sender MessageSender, interval time.Duration) *BroadcastService {
	t.Helper()
	svc := NewBroadcastService(broadcastRoster(), nil, sender, nil, nil, nil, BroadcastConfig{Interval: interval}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	svc.Run(ctx)
	t.Cleanup(func() {
		cancel()
		svc.Stop()
	})
	return svc
}

func waitForState(t *testing.T, svc *BroadcastService, id string, state models.BroadcastState) *models.BroadcastStatus {
	t.Helper()
	var status *models.BroadcastStatus
	require.Eventually(t, func() bool {
		var err error
		status, err = svc.Status(context.Background(), id)
		return err == nil && status.State == state
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestBroadcastSendsEachMessageOnTheInterval(t *testing.T) {
	interval := 20 * time.Millisecond
	sender := &recordingSender{}
	svc := newBroadcastServiceForTest(t, sender, interval)

	sender.progress = func() int {
		svc.mu.RLock()
		defer svc.mu.RUnlock()
		for _, run := range svc.runs {
			return run.status.Processed()
		}
		return -1
	}

	started, err := svc.Start(context.Background(), models.BroadcastRequest{Template: "Assalamualaikum wali {nama} ({kelas})", ClassID: broadcastClass}, "admin")
	require.NoError(t, err)
	id := started.ID
	assert.Equal(t, 3, started.Total)
	assert.Zero(t, started.Processed())

	done := waitForState(t, svc, id, models.BroadcastDone)
	assert.Equal(t, 3, done.Sent)
	assert.Zero(t, done.Failed)
	require.NotNil(t, done.FinishedAt)

	sent := sender.messages()
	require.Len(t, sent, 3)
	assert.Equal(t, "Assalamualaikum wali Ahmad (Kelas 1)", sent[0].text)
	for i, msg := range sent {
		assert.Equal(t, i, msg.processed, "progress before send %d", i)
		if i > 0 {
			assert.GreaterOrEqual(t, msg.at.Sub(sent[i-1].at), interval/2)
		}
	}
}

func TestBroadcastCountsFailuresAndMissingPhones(t *testing.T) {
	repo := broadcastRoster()
	s3 := repo.students["s3"]
	s3.GuardianPhone = ""
	repo.students["s3"] = s3
	sender := &recordingSender{fail: map[string]bool{"0822222": true}}
	svc := NewBroadcastService(repo, nil, sender, nil, nil, nil, BroadcastConfig{Interval: time.Millisecond}, nil, nil)
	svc.Run(context.Background())
	defer svc.Stop()

	started, err := svc.Start(context.Background(), models.BroadcastRequest{Template: "x", ClassID: broadcastClass}, "admin")
	require.NoError(t, err)

	done := waitForState(t, svc, started.ID, models.BroadcastDone)
	assert.Equal(t, 1, done.Sent)
	assert.Equal(t, 2, done.Failed)
	assert.Len(t, sender.messages(), 2, "no send without a phone number")
	assert.Equal(t, "gateway down", done.Deliveries[1].Error)
	assert.NotEmpty(t, done.Deliveries[2].Error)
}

func TestBroadcastCancelStopsRemainingSends(t *testing.T) {
	sender := &recordingSender{}
	svc := newBroadcastServiceForTest(t, sender, time.Hour)

	started, err := svc.Start(context.Background(), models.BroadcastRequest{Template: "x", ClassID: broadcastClass}, "admin")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)

	cancelled, err := svc.Cancel(context.Background(), started.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.BroadcastCancelled, cancelled.State)
	assert.Equal(t, 1, cancelled.Processed())

	status, err := svc.Status(context.Background(), started.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BroadcastCancelled, status.State)
	assert.Len(t, sender.messages(), 1)
}

func TestBroadcastFinishedRunsLeaveMemoryOnceMirrored(t *testing.T) {
	mirror := newMemoryCacheRepo()
	svc := NewBroadcastService(broadcastRoster(), nil, &recordingSender{}, mirror, nil, nil, BroadcastConfig{Interval: time.Millisecond}, nil, nil)
	svc.Run(context.Background())
	defer svc.Stop()

	started, err := svc.Start(context.Background(), models.BroadcastRequest{Template: "x", ClassID: broadcastClass}, "admin")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		svc.mu.RLock()
		defer svc.mu.RUnlock()
		return len(svc.runs) == 0
	}, 2*time.Second, 5*time.Millisecond)

	status, err := svc.Status(context.Background(), started.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BroadcastDone, status.State)
	assert.Equal(t, 3, status.Sent)

	cancelled, err := svc.Cancel(context.Background(), started.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.BroadcastDone, cancelled.State, "a finished broadcast is not reopened")
}

func TestBroadcastSweepDropsExpiredRuns(t *testing.T) {
	svc := NewBroadcastService(broadcastRoster(), nil, &recordingSender{}, nil, nil, nil, BroadcastConfig{}, nil, nil)
	old := time.Now().UTC().Add(-broadcastStatusTTL - time.Minute)
	recent := time.Now().UTC()
	svc.runs["old"] = &broadcastRun{status: models.BroadcastStatus{ID: "old", State: models.BroadcastDone, FinishedAt: &old}}
	svc.runs["recent"] = &broadcastRun{status: models.BroadcastStatus{ID: "recent", State: models.BroadcastDone, FinishedAt: &recent}}
	svc.runs["running"] = &broadcastRun{status: models.BroadcastStatus{ID: "running", State: models.BroadcastRunning}}

	svc.sweepLocked(time.Now().UTC())
	assert.NotContains(t, svc.runs, "old")
	assert.Contains(t, svc.runs, "recent")
	assert.Contains(t, svc.runs, "running")
}

func TestBroadcastStartValidates(t *testing.T) {
	svc := newBroadcastServiceForTest(t, &recordingSender{}, time.Millisecond)

	_, err := svc.Start(context.Background(), models.BroadcastRequest{Template: "x"}, "admin")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Start(context.Background(), models.BroadcastRequest{ClassID: broadcastClass}, "admin")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Status(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestRenderTemplateAndSummary(t *testing.T) {
	rank := 2
	card := &models.ReportCard{
		ClassSize:    12,
		Row:          models.SemesterReportRow{OverallAverage: 86.25, Predicate: "B (Jayyid Jiddan)", Rank: &rank, RankLabel: "2"},
		Memorization: &models.MemorizationReportRow{TotalPages: 14.5},
	}
	summary := SummarizeReportCard(card)
	assert.Equal(t, "rata-rata 86,3 (B (Jayyid Jiddan)), peringkat 2 dari 12, hafalan 14,5 halaman", summary)

	text := RenderTemplate("{nama} kelas {kelas}: {ringkasan}", models.BroadcastRecipient{Name: "Ahmad", ClassName: "7A", Summary: "ok"})
	assert.Equal(t, "Ahmad kelas 7A: ok", text)
}
