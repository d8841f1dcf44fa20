package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/aggregate"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type studentRoster interface {
	groupStudentLister
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type subjectLister interface {
	ListSubjects(ctx context.Context, category models.SubjectCategory) ([]models.Subject, error)
}

type reportScoreSource interface {
	ListForReport(ctx context.Context, periodID string, studentIDs []string, examTypes []models.ExamType) ([]models.ScoreDetail, error)
}

type memorizationReporter interface {
	Report(ctx context.Context, filter models.MemorizationFilter) (*models.MemorizationReport, error)
}

// semesterExamTypes are loaded for the ranking; SEMESTER wins over FINAL per subject.
var semesterExamTypes = []models.ExamType{models.ExamTypeSemester, models.ExamTypeFinal}

// SemesterReportService builds the semester ranking and individual report cards.
type SemesterReportService struct {
	periods      periodFinder
	students     studentRoster
	subjects     subjectLister
	scores       reportScoreSource
	memorization memorizationReporter
	cache        *CacheService
	logger       *zap.Logger
}

// NewSemesterReportService constructs the service. memorization may be nil.
func NewSemesterReportService(periods periodFinder, students studentRoster, subjects subjectLister, scores reportScoreSource, memorization memorizationReporter, cache *CacheService, logger *zap.Logger) *SemesterReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterReportService{
		periods:      periods,
		students:     students,
		subjects:     subjects,
		scores:       scores,
		memorization: memorization,
		cache:        cache,
		logger:       logger,
	}
}

// Ranking returns the ranked semester table for a class or halaqah.
func (s *SemesterReportService) Ranking(ctx context.Context, filter models.SemesterReportFilter) (*models.SemesterReport, error) {
	if !filter.Ready() {
		return nil, ErrFilterNotReady
	}
	key := ReportKey("semester-ranking", filter.PeriodID, filter.Key())
	return cached(ctx, s.cache, key, func(ctx context.Context) (*models.SemesterReport, error) {
		period, err := s.semester(ctx, filter.PeriodID)
		if err != nil {
			return nil, err
		}
		students, err := s.students.ListActiveByGroup(ctx, filter.ClassID, filter.HalaqahID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
		}
		return s.build(ctx, period, students)
	})
}

// ReportCard returns one student's semester row ranked within their class, or halaqah when
// the student has no class.
func (s *SemesterReportService) ReportCard(ctx context.Context, periodID, studentID string) (*models.ReportCard, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, loadError(err, "student")
	}
	period, err := s.semester(ctx, periodID)
	if err != nil {
		return nil, err
	}

	filter := models.SemesterReportFilter{PeriodID: periodID}
	switch {
	case student.ClassID != nil:
		filter.ClassID = *student.ClassID
	case student.HalaqahID != nil:
		filter.HalaqahID = *student.HalaqahID
	}

	var report *models.SemesterReport
	if filter.Ready() {
		report, err = s.Ranking(ctx, filter)
	} else {
		report, err = s.build(ctx, period, []models.StudentDetail{*student})
	}
	if err != nil {
		return nil, err
	}

	card := &models.ReportCard{Period: *period, Student: *student, ClassSize: len(report.Rows)}
	found := false
	for _, row := range report.Rows {
		if row.StudentID == studentID {
			card.Row = row
			found = true
			break
		}
	}
	if !found {
		// Inactive students are not in the roster; they get their averages without a rank.
		alone, err := s.build(ctx, period, []models.StudentDetail{*student})
		if err != nil {
			return nil, err
		}
		card.Row = alone.Rows[0]
		card.Row.Rank = nil
		card.Row.RankLabel = aggregate.RankLabel(nil)
	}

	if s.memorization != nil {
		from, to := period.StartDate, period.EndDate
		mem, err := s.memorization.Report(ctx, models.MemorizationFilter{StudentID: studentID, From: &from, To: &to})
		if err != nil {
			s.logger.Warn("report card memorization summary unavailable", zap.String("student_id", studentID), zap.Error(err))
		} else if len(mem.Rows) > 0 {
			card.Memorization = &mem.Rows[0]
		}
	}
	return card, nil
}

func (s *SemesterReportService) semester(ctx context.Context, periodID string) (*models.Period, error) {
	period, err := s.periods.FindByID(ctx, periodID)
	if err != nil {
		return nil, loadError(err, "period")
	}
	if period.Kind != models.PeriodKindSemester {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must be a semester")
	}
	return period, nil
}

func (s *SemesterReportService) build(ctx context.Context, period *models.Period, students []models.StudentDetail) (*models.SemesterReport, error) {
	subjects, err := s.subjects.ListSubjects(ctx, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	scores, err := s.scores.ListForReport(ctx, period.ID, studentIDs(students), semesterExamTypes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return &models.SemesterReport{
		Period:   *period,
		Subjects: subjects,
		Rows:     joinSemesterRows(students, subjects, scores),
	}, nil
}

// joinSemesterRows computes each student's subject, category and overall averages and ranks
// the result by overall average. Per subject the SEMESTER exam is used, or FINAL when the
// student has no SEMESTER score for it.
func joinSemesterRows(students []models.StudentDetail, subjects []models.Subject, scores []models.ScoreDetail) []models.SemesterReportRow {
	type cell struct {
		student, subject string
		exam             models.ExamType
	}
	_, byCell := aggregate.GroupBy(scores, func(sc models.ScoreDetail) cell {
		return cell{sc.StudentID, sc.SubjectID, sc.ExamType}
	})

	rows := make([]models.SemesterReportRow, 0, len(students))
	for _, student := range students {
		row := models.SemesterReportRow{
			StudentID:   student.ID,
			StudentName: student.FullName,
			NIS:         student.NIS,
			Subjects:    make([]models.SubjectAverage, 0, len(subjects)),
		}
		var tahfidz, academic []float64
		for _, subject := range subjects {
			cellAvg := models.SubjectAverage{SubjectID: subject.ID, SubjectName: subject.Name, Category: subject.Category}
			for _, exam := range semesterExamTypes {
				entries := byCell[cell{student.ID, subject.ID, exam}]
				if len(entries) == 0 {
					continue
				}
				averages := make([]*float64, len(entries))
				for i := range entries {
					averages[i] = entries[i].Average
				}
				if avg, ok := aggregate.MeanOf(averages...); ok {
					cellAvg.ExamType = exam
					cellAvg.Average = aggregate.Ptr(avg)
					cellAvg.Predicate = aggregate.Predicate(avg)
					if subject.Category == models.SubjectCategoryTahfidz {
						tahfidz = append(tahfidz, avg)
					} else {
						academic = append(academic, avg)
					}
					break
				}
			}
			row.Subjects = append(row.Subjects, cellAvg)
		}
		if avg, ok := aggregate.Mean(tahfidz); ok {
			row.TahfidzAverage = aggregate.Ptr(avg)
		}
		if avg, ok := aggregate.Mean(academic); ok {
			row.AcademicAverage = aggregate.Ptr(avg)
		}
		row.OverallAverage = aggregate.OverallAverage(row.TahfidzAverage, row.AcademicAverage)
		if row.OverallAverage > 0 {
			row.Predicate = aggregate.Predicate(row.OverallAverage)
		}
		rows = append(rows, row)
	}

	ranked := aggregate.CompetitionRank(rows, func(r models.SemesterReportRow) float64 { return r.OverallAverage })
	out := make([]models.SemesterReportRow, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
		out[i].Rank = r.Rank
		out[i].RankLabel = aggregate.RankLabel(r.Rank)
	}
	return out
}
