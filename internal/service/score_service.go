package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/aggregate"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type scoreRepository interface {
	List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreDetail, int, error)
	ListForReport(ctx context.Context, periodID string, studentIDs []string, examTypes []models.ExamType) ([]models.ScoreDetail, error)
	FindByID(ctx context.Context, id string) (*models.ScoreDetail, error)
	Upsert(ctx context.Context, score *models.Score) error
	BulkUpsert(ctx context.Context, scores []*models.Score) error
	Delete(ctx context.Context, id string) (bool, error)
}

type groupStudentLister interface {
	ListActiveByGroup(ctx context.Context, classID, halaqahID string) ([]models.StudentDetail, error)
}

// ScoreService records exam scores and builds the monthly recap.
type ScoreService struct {
	repo      scoreRepository
	students  groupStudentLister
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScoreService constructs the service.
func NewScoreService(repo scoreRepository, students groupStudentLister, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ScoreService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &ScoreService{repo: repo, students: students, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns the scores of a period for a class or halaqah.
func (s *ScoreService) List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreDetail, *models.Pagination, error) {
	if !filter.Ready() {
		return nil, nil, ErrFilterNotReady
	}
	scores, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scores")
	}
	for i := range scores {
		withPredicate(&scores[i])
	}
	return scores, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns one score.
func (s *ScoreService) Get(ctx context.Context, id string) (*models.ScoreDetail, error) {
	score, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "score")
	}
	withPredicate(score)
	return score, nil
}

// Upsert saves one score. Saving the same student, period, subject and exam type again
// updates the existing row.
func (s *ScoreService) Upsert(ctx context.Context, req models.UpsertScoreRequest, actor string) (*models.ScoreDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	score, err := scoreFromRequest(req, actor)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, score); err != nil {
		return nil, writeError(err, "failed to save score")
	}
	s.cache.InvalidateReports(ctx, score.PeriodID)
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionUpsert,
		EntityType:  "score",
		EntityID:    &score.ID,
		Description: fmt.Sprintf("nilai %s %s", strings.ToLower(string(score.ExamType)), formatAverage(score.Average)),
		After:       score,
	})
	detail := &models.ScoreDetail{Score: *score}
	withPredicate(detail)
	return detail, nil
}

// SaveBatch saves a table of rows. In sequential mode rows are saved in order and the first
// failure stops the batch; rows before it stay saved. In atomic mode all rows commit together.
func (s *ScoreService) SaveBatch(ctx context.Context, req models.BatchScoreRequest, actor string) (*models.BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	scores := make([]*models.Score, len(req.Items))
	for i, item := range req.Items {
		score, err := scoreFromRequest(item, actor)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("row %d: at least one sub-score is required", i+1))
		}
		scores[i] = score
	}

	result := &models.BatchResult{Total: len(scores)}
	if req.Mode == models.BatchModeAtomic {
		if err := s.repo.BulkUpsert(ctx, scores); err != nil {
			return nil, writeError(err, "failed to save scores")
		}
		result.Saved = len(scores)
	} else {
		for i, score := range scores {
			if err := s.repo.Upsert(ctx, score); err != nil {
				index := i
				message := appErrors.FromError(writeError(err, "failed to save score")).Message
				result.FailedIndex = &index
				result.Error = &message
				s.logger.Warn("score batch stopped", zap.Int("index", i), zap.Int("saved", result.Saved), zap.Error(err))
				break
			}
			result.Saved++
		}
	}
	if result.Saved == 0 {
		return result, nil
	}

	periods := map[string]bool{}
	for _, score := range scores[:result.Saved] {
		if !periods[score.PeriodID] {
			periods[score.PeriodID] = true
			s.cache.InvalidateReports(ctx, score.PeriodID)
		}
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionUpsert,
		EntityType:  "score_batch",
		Description: fmt.Sprintf("%d dari %d nilai disimpan", result.Saved, result.Total),
		After:       scores[:result.Saved],
	})
	return result, nil
}

// Delete removes a score.
func (s *ScoreService) Delete(ctx context.Context, id, actor string) error {
	score, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "score")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return writeError(err, "failed to delete score")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "score not found")
	}
	s.cache.InvalidateReports(ctx, score.PeriodID)
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionDelete,
		EntityType: "score",
		EntityID:   &score.ID,
		EntityName: score.StudentName + " - " + score.SubjectName,
		Before:     score,
	})
	return nil
}

// Recap averages each student's scores per subject for one exam type, MONTHLY by default.
// The group recap is cached once; a StudentID narrows the rows afterwards.
func (s *ScoreService) Recap(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecapRow, error) {
	if !filter.Ready() {
		return nil, ErrFilterNotReady
	}
	if filter.ExamType == "" {
		filter.ExamType = models.ExamTypeMonthly
	}
	group := filter
	group.StudentID = ""
	key := ReportKey("score-recap", filter.PeriodID, group.Key())
	rows, err := cached(ctx, s.cache, key, func(ctx context.Context) ([]models.ScoreRecapRow, error) {
		students, err := s.students.ListActiveByGroup(ctx, filter.ClassID, filter.HalaqahID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
		}
		scores, err := s.repo.ListForReport(ctx, filter.PeriodID, studentIDs(students), []models.ExamType{filter.ExamType})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
		}
		if filter.SubjectID != "" {
			kept := scores[:0]
			for _, sc := range scores {
				if sc.SubjectID == filter.SubjectID {
					kept = append(kept, sc)
				}
			}
			scores = kept
		}
		return buildScoreRecap(students, scores), nil
	})
	if err != nil || filter.StudentID == "" {
		return rows, err
	}
	kept := make([]models.ScoreRecapRow, 0, len(rows))
	for _, row := range rows {
		if row.StudentID == filter.StudentID {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

// buildScoreRecap lists students in roster order with one row per graded subject.
func buildScoreRecap(students []models.StudentDetail, scores []models.ScoreDetail) []models.ScoreRecapRow {
	type cell struct{ student, subject string }
	_, byCell := aggregate.GroupBy(scores, func(sc models.ScoreDetail) cell { return cell{sc.StudentID, sc.SubjectID} })
	_, byStudent := aggregate.GroupBy(scores, func(sc models.ScoreDetail) string { return sc.StudentID })

	rows := make([]models.ScoreRecapRow, 0, len(byCell))
	for _, student := range students {
		subjects := map[string]string{}
		for _, sc := range byStudent[student.ID] {
			subjects[sc.SubjectID] = sc.SubjectName
		}
		ids := make([]string, 0, len(subjects))
		for id := range subjects {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return subjects[ids[i]] < subjects[ids[j]] })

		for _, subjectID := range ids {
			entries := byCell[cell{student.ID, subjectID}]
			averages := make([]*float64, len(entries))
			for i := range entries {
				averages[i] = entries[i].Average
			}
			row := models.ScoreRecapRow{
				StudentID:   student.ID,
				StudentName: student.FullName,
				NIS:         student.NIS,
				SubjectID:   subjectID,
				SubjectName: subjects[subjectID],
				Exams:       len(entries),
			}
			if avg, ok := aggregate.MeanOf(averages...); ok {
				row.Average = aggregate.Ptr(avg)
				row.Predicate = aggregate.Predicate(avg)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func scoreFromRequest(req models.UpsertScoreRequest, actor string) (*models.Score, error) {
	avg, ok := aggregate.MeanOf(req.Hafalan, req.Tajwid, req.Kelancaran)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one sub-score is required")
	}
	score := &models.Score{
		StudentID:  req.StudentID,
		PeriodID:   req.PeriodID,
		SubjectID:  req.SubjectID,
		ExamType:   req.ExamType,
		Hafalan:    req.Hafalan,
		Tajwid:     req.Tajwid,
		Kelancaran: req.Kelancaran,
		Average:    aggregate.Ptr(avg),
		Note:       req.Note,
	}
	if actor != "" {
		score.EvaluatorID = &actor
	}
	return score, nil
}

func withPredicate(score *models.ScoreDetail) {
	if score.Average != nil {
		score.Predicate = aggregate.Predicate(*score.Average)
	}
}

func studentIDs(students []models.StudentDetail) []string {
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	return ids
}

func formatAverage(avg *float64) string {
	if avg == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", aggregate.Round1(*avg))
}
