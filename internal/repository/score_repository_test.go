package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
)

func newScore(studentID string) *models.Score {
	hafalan, tajwid, kelancaran, avg := 80.0, 90.0, 70.0, 80.0
	return &models.Score{
		StudentID:  studentID,
		PeriodID:   "period-1",
		SubjectID:  "subject-1",
		ExamType:   models.ExamTypeMonthly,
		Hafalan:    &hafalan,
		Tajwid:     &tajwid,
		Kelancaran: &kelancaran,
		Average:    &avg,
	}
}

func TestScoreRepositoryUpsertTargetsNaturalKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, period_id, subject_id, exam_type) DO UPDATE SET hafalan = EXCLUDED.hafalan")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("score-existing", created))
	}

	first := newScore("stu-1")
	require.NoError(t, repo.Upsert(context.Background(), first))
	second := newScore("stu-1")
	require.NoError(t, repo.Upsert(context.Background(), second))

	assert.Equal(t, "score-existing", first.ID)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, created, second.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryBulkUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scores")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("s1", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO scores")).
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), []*models.Score{newScore("stu-1"), newScore("missing")})
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.Contains(t, err.Error(), "row 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryListForReport(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sc.period_id = $1 AND sc.student_id = ANY($2) AND sc.exam_type = ANY($3)")).
		WithArgs("period-1", pq.Array([]string{"stu-1"}), pq.Array([]string{"SEMESTER", "FINAL"})).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	scores, err := repo.ListForReport(context.Background(), "period-1", []string{"stu-1"}, []models.ExamType{models.ExamTypeSemester, models.ExamTypeFinal})
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryListForReportWithoutStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	scores, err := repo.ListForReport(context.Background(), "period-1", nil, []models.ExamType{models.ExamTypeSemester})
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scores WHERE id = $1")).
		WithArgs("s1").
		WillReturnError(errors.New("boom"))

	_, err := repo.Delete(context.Background(), "s1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
