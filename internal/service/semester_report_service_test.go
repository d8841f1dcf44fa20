package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type fakeSubjects []models.Subject

func (f fakeSubjects) ListSubjects(ctx context.Context, category models.SubjectCategory) ([]models.Subject, error) {
	return f, nil
}

var (
	tahfidzSubject = models.Subject{ID: "sub-t", Name: "Tahfidz", Category: models.SubjectCategoryTahfidz}
	tajwidSubject  = models.Subject{ID: "sub-j", Name: "Tajwid", Category: models.SubjectCategoryTahfidz}
	fiqhSubject    = models.Subject{ID: "sub-f", Name: "Fiqih", Category: models.SubjectCategoryAcademic}
)

func rosterOf(names ...string) []models.StudentDetail {
	out := make([]models.StudentDetail, len(names))
	for i, n := range names {
		out[i] = models.StudentDetail{Student: models.Student{ID: n, FullName: n}}
	}
	return out
}

func semesterScore(student, subject string, exam models.ExamType, avg float64) models.ScoreDetail {
	return models.ScoreDetail{Score: models.Score{StudentID: student, SubjectID: subject, ExamType: exam, Average: f64(avg)}}
}

func TestJoinSemesterRowsAveragesAndRanks(t *testing.T) {
	subjects := []models.Subject{tahfidzSubject, tajwidSubject, fiqhSubject}
	scores := []models.ScoreDetail{
		semesterScore("ali", "sub-t", models.ExamTypeSemester, 90),
		semesterScore("ali", "sub-j", models.ExamTypeSemester, 80),
		semesterScore("ali", "sub-f", models.ExamTypeSemester, 70),
		semesterScore("budi", "sub-t", models.ExamTypeSemester, 85),
		semesterScore("budi", "sub-f", models.ExamTypeSemester, 75),
		semesterScore("umar", "sub-t", models.ExamTypeSemester, 95),
	}

	rows := joinSemesterRows(rosterOf("ali", "budi", "umar", "zaid"), subjects, scores)
	require.Len(t, rows, 4)

	assert.Equal(t, "umar", rows[0].StudentID)
	assert.InDelta(t, 95.0, rows[0].OverallAverage, 1e-9, "only the tahfidz category is present")
	assert.Nil(t, rows[0].AcademicAverage)
	assert.Equal(t, "1", rows[0].RankLabel)

	// ali: tahfidz (90+80)/2 = 85, academic 70, overall 77.5; budi: 85 and 75, overall 80.
	assert.Equal(t, "budi", rows[1].StudentID)
	assert.InDelta(t, 80.0, rows[1].OverallAverage, 1e-9)
	assert.Equal(t, "ali", rows[2].StudentID)
	assert.InDelta(t, 85.0, *rows[2].TahfidzAverage, 1e-9)
	assert.InDelta(t, 77.5, rows[2].OverallAverage, 1e-9)
	assert.Equal(t, "C (Jayyid)", rows[2].Predicate)
	assert.Equal(t, 3, *rows[2].Rank)

	zaid := rows[3]
	assert.Zero(t, zaid.OverallAverage)
	assert.Nil(t, zaid.Rank)
	assert.Equal(t, "-", zaid.RankLabel)
	assert.Empty(t, zaid.Predicate)
	require.Len(t, zaid.Subjects, 3)
	assert.Nil(t, zaid.Subjects[0].Average)
}

func TestJoinSemesterRowsFallsBackToFinal(t *testing.T) {
	scores := []models.ScoreDetail{
		semesterScore("ali", "sub-t", models.ExamTypeFinal, 60),
		semesterScore("ali", "sub-f", models.ExamTypeFinal, 50),
		semesterScore("ali", "sub-f", models.ExamTypeSemester, 88),
	}
	rows := joinSemesterRows(rosterOf("ali"), []models.Subject{tahfidzSubject, fiqhSubject}, scores)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ExamTypeFinal, rows[0].Subjects[0].ExamType)
	assert.InDelta(t, 60.0, *rows[0].Subjects[0].Average, 1e-9)
	assert.Equal(t, models.ExamTypeSemester, rows[0].Subjects[1].ExamType)
	assert.InDelta(t, 88.0, *rows[0].Subjects[1].Average, 1e-9)
}

func TestJoinSemesterRowsTiesShareRank(t *testing.T) {
	scores := []models.ScoreDetail{
		semesterScore("a", "sub-t", models.ExamTypeSemester, 90),
		semesterScore("b", "sub-t", models.ExamTypeSemester, 80),
		semesterScore("c", "sub-t", models.ExamTypeSemester, 80),
		semesterScore("d", "sub-t", models.ExamTypeSemester, 70),
	}
	rows := joinSemesterRows(rosterOf("a", "b", "c", "d"), []models.Subject{tahfidzSubject}, scores)
	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.StudentID + ":" + r.RankLabel
	}
	assert.Equal(t, []string{"a:1", "b:2", "c:2", "d:4"}, labels)
}

func newSemesterFixture(t *testing.T) (*SemesterReportService, *memoryScoreRepo) {
	t.Helper()
	class := "class-1"
	students := newMockStudentRepo(
		models.Student{ID: "ali", FullName: "Ali", Status: models.StudentStatusActive, ClassID: &class},
		models.Student{ID: "budi", FullName: "Budi", Status: models.StudentStatusActive, ClassID: &class},
		models.Student{ID: "cahya", FullName: "Cahya", Status: models.StudentStatusMoved, ClassID: &class},
	)
	periods := newMockPeriodRepo(
		models.Period{ID: "sem-1", Kind: models.PeriodKindSemester},
		models.Period{ID: "month-1", Kind: models.PeriodKindMonth},
	)
	scores := newMemoryScoreRepo()
	for _, sc := range []models.Score{
		{StudentID: "ali", PeriodID: "sem-1", SubjectID: "sub-t", ExamType: models.ExamTypeSemester, Average: f64(70)},
		{StudentID: "budi", PeriodID: "sem-1", SubjectID: "sub-t", ExamType: models.ExamTypeSemester, Average: f64(90)},
		{StudentID: "cahya", PeriodID: "sem-1", SubjectID: "sub-t", ExamType: models.ExamTypeSemester, Average: f64(99)},
	} {
		sc := sc
		scores.put(&sc)
	}
	svc := NewSemesterReportService(periods, students, fakeSubjects{tahfidzSubject}, scores, nil, nil, nil)
	return svc, scores
}

func TestSemesterRankingRequiresFilters(t *testing.T) {
	svc, scores := newSemesterFixture(t)
	_, err := svc.Ranking(context.Background(), models.SemesterReportFilter{ClassID: "class-1"})
	assert.ErrorIs(t, err, ErrFilterNotReady)
	assert.Zero(t, scores.listCalls)
}

func TestSemesterRankingRejectsNonSemesterPeriod(t *testing.T) {
	svc, _ := newSemesterFixture(t)
	_, err := svc.Ranking(context.Background(), models.SemesterReportFilter{PeriodID: "month-1", ClassID: "class-1"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSemesterRankingUsesActiveRoster(t *testing.T) {
	svc, _ := newSemesterFixture(t)
	report, err := svc.Ranking(context.Background(), models.SemesterReportFilter{PeriodID: "sem-1", ClassID: "class-1"})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "budi", report.Rows[0].StudentID)
	assert.Equal(t, "ali", report.Rows[1].StudentID)
	assert.Equal(t, "2", report.Rows[1].RankLabel)
}

func TestReportCardRanksWithinClass(t *testing.T) {
	svc, _ := newSemesterFixture(t)
	card, err := svc.ReportCard(context.Background(), "sem-1", "ali")
	require.NoError(t, err)
	assert.Equal(t, 2, card.ClassSize)
	assert.Equal(t, 2, *card.Row.Rank)
	assert.Nil(t, card.Memorization)
}

func TestReportCardForInactiveStudentHasNoRank(t *testing.T) {
	svc, _ := newSemesterFixture(t)
	card, err := svc.ReportCard(context.Background(), "sem-1", "cahya")
	require.NoError(t, err)
	assert.InDelta(t, 99.0, card.Row.OverallAverage, 1e-9)
	assert.Nil(t, card.Row.Rank)
	assert.Equal(t, "-", card.Row.RankLabel)
}
