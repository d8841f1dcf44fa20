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

func TestAnnouncementRepositoryListActiveOrdering(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements WHERE is_active = $1 AND category = $2")).
		WithArgs(true, models.AnnouncementBuletin).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sort_order ASC, created_at DESC LIMIT 20")).
		WillReturnRows(sqlmock.NewRows(announcementColumns).
			AddRow("a1", "Buletin Rajab", "isi", models.AnnouncementBuletin, true, 1, "u1", now, now))

	items, total, err := repo.List(context.Background(), models.AnnouncementFilter{Category: models.AnnouncementBuletin})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositorySetActiveTouchesOnlyArchiveState(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE announcements SET is_active = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(false, sqlmock.AnyArg(), "a1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.SetActive(context.Background(), "a1", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
