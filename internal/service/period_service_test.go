package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type mockPeriodRepo struct {
	periods map[string]*models.Period
	scores  map[string]int
	seq     int
}

func newMockPeriodRepo(periods ...models.Period) *mockPeriodRepo {
	m := &mockPeriodRepo{periods: map[string]*models.Period{}, scores: map[string]int{}}
	for i := range periods {
		p := periods[i]
		m.periods[p.ID] = &p
	}
	return m
}

func (m *mockPeriodRepo) List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error) {
	var out []models.Period
	for _, p := range m.periods {
		if filter.Kind == "" || p.Kind == filter.Kind {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (m *mockPeriodRepo) FindByID(ctx context.Context, id string) (*models.Period, error) {
	if p, ok := m.periods[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPeriodRepo) FindActive(ctx context.Context, kind models.PeriodKind) (*models.Period, error) {
	for _, p := range m.periods {
		if p.Kind == kind && p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockPeriodRepo) Create(ctx context.Context, period *models.Period) error {
	m.seq++
	period.ID = "p-new-" + string(rune('0'+m.seq))
	cp := *period
	m.periods[period.ID] = &cp
	return nil
}

func (m *mockPeriodRepo) Update(ctx context.Context, period *models.Period) error {
	cp := *period
	m.periods[period.ID] = &cp
	return nil
}

func (m *mockPeriodRepo) SetActive(ctx context.Context, id string, kind models.PeriodKind) error {
	for _, p := range m.periods {
		if p.Kind == kind {
			p.IsActive = p.ID == id
		}
	}
	return nil
}

func (m *mockPeriodRepo) Delete(ctx context.Context, id string) error {
	delete(m.periods, id)
	return nil
}

func (m *mockPeriodRepo) CountScores(ctx context.Context, id string) (int, error) {
	return m.scores[id], nil
}

func (m *mockPeriodRepo) activeOf(kind models.PeriodKind) []string {
	var ids []string
	for _, p := range m.periods {
		if p.Kind == kind && p.IsActive {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func TestPeriodServiceActivateKeepsSingleActivePerKind(t *testing.T) {
	repo := newMockPeriodRepo(
		models.Period{ID: "sem1", Kind: models.PeriodKindSemester, IsActive: true},
		models.Period{ID: "sem2", Kind: models.PeriodKindSemester},
		models.Period{ID: "jan", Kind: models.PeriodKindMonth, IsActive: true},
	)
	audit := &recordingAudit{}
	svc := NewPeriodService(repo, audit, nil, nil, nil)

	period, err := svc.Activate(context.Background(), "sem2", "admin")
	require.NoError(t, err)
	assert.True(t, period.IsActive)
	assert.Equal(t, []string{"sem2"}, repo.activeOf(models.PeriodKindSemester))
	assert.Equal(t, []string{"jan"}, repo.activeOf(models.PeriodKindMonth))
	assert.Equal(t, []string{models.AuditActionActivate}, audit.actions())
}

func TestPeriodServiceCreateWithActivate(t *testing.T) {
	repo := newMockPeriodRepo(models.Period{ID: "old", Kind: models.PeriodKindMonth, IsActive: true})
	svc := NewPeriodService(repo, nil, nil, nil, nil)

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	period, err := svc.Create(context.Background(), models.PeriodRequest{
		Label: "Februari 2024", Kind: models.PeriodKindMonth,
		StartDate: start, EndDate: start.AddDate(0, 1, -1), Activate: true,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{period.ID}, repo.activeOf(models.PeriodKindMonth))
}

func TestPeriodServiceCreateRejectsInvertedRange(t *testing.T) {
	svc := NewPeriodService(newMockPeriodRepo(), nil, nil, nil, nil)
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), models.PeriodRequest{
		Label: "x", Kind: models.PeriodKindWeek, StartDate: start, EndDate: start.AddDate(0, 0, -1),
	}, "admin")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestPeriodServiceDeleteGuards(t *testing.T) {
	repo := newMockPeriodRepo(
		models.Period{ID: "active", Kind: models.PeriodKindSemester, IsActive: true},
		models.Period{ID: "used", Kind: models.PeriodKindSemester},
		models.Period{ID: "free", Kind: models.PeriodKindSemester},
	)
	repo.scores["used"] = 3
	svc := NewPeriodService(repo, nil, nil, nil, nil)

	assert.True(t, errors.Is(svc.Delete(context.Background(), "active", "admin"), appErrors.ErrPreconditionFailed))
	assert.True(t, errors.Is(svc.Delete(context.Background(), "used", "admin"), appErrors.ErrConflict))
	require.NoError(t, svc.Delete(context.Background(), "free", "admin"))
	assert.NotContains(t, repo.periods, "free")
}

func TestPeriodServiceActiveNotFound(t *testing.T) {
	svc := NewPeriodService(newMockPeriodRepo(), nil, nil, nil, nil)
	_, err := svc.Active(context.Background(), models.PeriodKindWeek)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
