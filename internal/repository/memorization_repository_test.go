package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
)

func TestMemorizationRepositoryListForReportFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMemorizationRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND s.halaqah_id = $1 AND m.log_date >= $2 AND m.log_date <= $3 AND m.category = $4 ORDER BY m.student_id ASC, m.log_date ASC")).
		WithArgs("halaqah-1", from, to, models.MemorizationZiyadah).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "log_date", "pages", "category", "status", "student_name"}).
			AddRow("log-1", "stu-1", from, 1.5, models.MemorizationZiyadah, models.MemorizationLancar, "Ahmad"))

	logs, err := repo.ListForReport(context.Background(), models.MemorizationFilter{
		HalaqahID: "halaqah-1",
		From:      &from,
		To:        &to,
		Category:  models.MemorizationZiyadah,
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 1.5, logs[0].Pages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemorizationRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMemorizationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(LOWER(s.full_name) LIKE $1 OR LOWER(m.surah_from) LIKE $1 OR LOWER(m.surah_to) LIKE $1) ORDER BY m.log_date DESC")).
		WithArgs("%naba%").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM memorization_logs m")).
		WithArgs("%naba%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	logs, total, err := repo.List(context.Background(), models.MemorizationFilter{Search: "Naba"})
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
