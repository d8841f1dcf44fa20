package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
)

// ScoreConflictKey is the natural key scores are upserted on.
const ScoreConflictKey = "student_id, period_id, subject_id, exam_type"

const scoreDetailColumns = `sc.id, sc.student_id, sc.period_id, sc.subject_id, sc.exam_type, sc.hafalan, sc.tajwid, sc.kelancaran, sc.average, sc.note, sc.evaluator_id, sc.created_at, sc.updated_at,
        s.full_name AS student_name, s.nis, sub.name AS subject_name, sub.category AS subject_category`

const scoreJoins = "FROM scores sc JOIN students s ON s.id = sc.student_id JOIN subjects sub ON sub.id = sc.subject_id"

const upsertScoreQuery = `INSERT INTO scores (id, student_id, period_id, subject_id, exam_type, hafalan, tajwid, kelancaran, average, note, evaluator_id, created_at, updated_at)
        VALUES (:id, :student_id, :period_id, :subject_id, :exam_type, :hafalan, :tajwid, :kelancaran, :average, :note, :evaluator_id, :created_at, :updated_at)
        ON CONFLICT (` + ScoreConflictKey + `) DO UPDATE SET hafalan = EXCLUDED.hafalan, tajwid = EXCLUDED.tajwid, kelancaran = EXCLUDED.kelancaran, average = EXCLUDED.average, note = EXCLUDED.note, evaluator_id = EXCLUDED.evaluator_id, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`

// ScoreRepository persists exam scores.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs a ScoreRepository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// List returns scores joined with student and subject names.
func (r *ScoreRepository) List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	add := func(column string, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("sc.period_id", filter.PeriodID)
	add("s.class_id", filter.ClassID)
	add("s.halaqah_id", filter.HalaqahID)
	add("sc.subject_id", filter.SubjectID)
	add("sc.exam_type", string(filter.ExamType))
	add("sc.student_id", filter.StudentID)
	base := fmt.Sprintf("%s WHERE %s", scoreJoins, strings.Join(conditions, " AND "))

	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s\n        %s ORDER BY s.full_name ASC, sub.name ASC, sc.exam_type ASC LIMIT %d OFFSET %d", scoreDetailColumns, base, size, offset)
	var scores []models.ScoreDetail
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list scores: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count scores: %w", err)
	}
	return scores, total, nil
}

// ListForReport returns every score of the given students in a period with one of the exam types.
func (r *ScoreRepository) ListForReport(ctx context.Context, periodID string, studentIDs []string, examTypes []models.ExamType) ([]models.ScoreDetail, error) {
	if len(studentIDs) == 0 {
		return []models.ScoreDetail{}, nil
	}
	types := make([]string, len(examTypes))
	for i, t := range examTypes {
		types[i] = string(t)
	}
	query := fmt.Sprintf("SELECT %s\n        %s WHERE sc.period_id = $1 AND sc.student_id = ANY($2) AND sc.exam_type = ANY($3)", scoreDetailColumns, scoreJoins)
	var scores []models.ScoreDetail
	if err := r.db.SelectContext(ctx, &scores, query, periodID, pq.Array(studentIDs), pq.Array(types)); err != nil {
		return nil, fmt.Errorf("list report scores: %w", err)
	}
	return scores, nil
}

// FindByID loads one score.
func (r *ScoreRepository) FindByID(ctx context.Context, id string) (*models.ScoreDetail, error) {
	query := fmt.Sprintf("SELECT %s\n        %s WHERE sc.id = $1", scoreDetailColumns, scoreJoins)
	var score models.ScoreDetail
	if err := r.db.GetContext(ctx, &score, query, id); err != nil {
		return nil, err
	}
	return &score, nil
}

// Upsert inserts the score or updates the existing row with the same natural key.
// score.ID and CreatedAt are set to the stored row's values.
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.Score) error {
	return upsertScore(ctx, r.db, score)
}

// BulkUpsert upserts all scores in a single transaction. Any failure rolls back every row.
func (r *ScoreRepository) BulkUpsert(ctx context.Context, scores []*models.Score) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk score tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for i, score := range scores {
		if err = upsertScore(ctx, tx, score); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk score tx: %w", err)
	}
	return nil
}

// Delete removes a score. It reports false when nothing matched.
func (r *ScoreRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scores WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete score: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func upsertScore(ctx context.Context, db sqlx.ExtContext, score *models.Score) error {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now

	query, args, err := sqlx.Named(upsertScoreQuery, score)
	if err != nil {
		return fmt.Errorf("bind score upsert: %w", err)
	}
	query = db.Rebind(query)
	if err := db.QueryRowxContext(ctx, query, args...).Scan(&score.ID, &score.CreatedAt); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}
