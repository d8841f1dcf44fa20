package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
)

const memorizationColumns = `m.id, m.student_id, m.log_date, m.juz, m.surah_from, m.ayah_from, m.surah_to, m.ayah_to, m.pages, m.category, m.status, m.evaluator_id, m.note, m.created_at, m.updated_at,
        s.full_name AS student_name, s.halaqah_id, t.full_name AS evaluator_name`

const memorizationJoins = "FROM memorization_logs m JOIN students s ON s.id = m.student_id LEFT JOIN teachers t ON t.id = m.evaluator_id"

// MemorizationRepository persists hafalan log entries.
type MemorizationRepository struct {
	db *sqlx.DB
}

// NewMemorizationRepository constructs a MemorizationRepository.
func NewMemorizationRepository(db *sqlx.DB) *MemorizationRepository {
	return &MemorizationRepository{db: db}
}

func memorizationWhere(filter models.MemorizationFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	add := func(expr string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}
	if filter.HalaqahID != "" {
		add("s.halaqah_id = $%d", filter.HalaqahID)
	}
	if filter.ClassID != "" {
		add("s.class_id = $%d", filter.ClassID)
	}
	if filter.StudentID != "" {
		add("m.student_id = $%d", filter.StudentID)
	}
	if filter.From != nil {
		add("m.log_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("m.log_date <= $%d", *filter.To)
	}
	if filter.Category != "" {
		add("m.category = $%d", filter.Category)
	}
	if filter.Status != "" {
		add("m.status = $%d", filter.Status)
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(m.surah_from) LIKE $%d OR LOWER(m.surah_to) LIKE $%d)", n, n, n))
	}
	return strings.Join(conditions, " AND "), args
}

// List returns a page of log entries, newest first.
func (r *MemorizationRepository) List(ctx context.Context, filter models.MemorizationFilter) ([]models.MemorizationLogDetail, int, error) {
	where, args := memorizationWhere(filter)
	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s\n        %s WHERE %s ORDER BY m.log_date DESC, m.created_at DESC LIMIT %d OFFSET %d", memorizationColumns, memorizationJoins, where, size, offset)
	var logs []models.MemorizationLogDetail
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list memorization logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", memorizationJoins, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count memorization logs: %w", err)
	}
	return logs, total, nil
}

// ListForReport returns every matching entry ordered by student and date, without paging.
func (r *MemorizationRepository) ListForReport(ctx context.Context, filter models.MemorizationFilter) ([]models.MemorizationLogDetail, error) {
	where, args := memorizationWhere(filter)
	query := fmt.Sprintf("SELECT %s\n        %s WHERE %s ORDER BY m.student_id ASC, m.log_date ASC, m.created_at ASC", memorizationColumns, memorizationJoins, where)
	var logs []models.MemorizationLogDetail
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list memorization report: %w", err)
	}
	return logs, nil
}

// FindByID loads one entry.
func (r *MemorizationRepository) FindByID(ctx context.Context, id string) (*models.MemorizationLogDetail, error) {
	var log models.MemorizationLogDetail
	query := fmt.Sprintf("SELECT %s\n        %s WHERE m.id = $1", memorizationColumns, memorizationJoins)
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		return nil, err
	}
	return &log, nil
}

// Create inserts a log entry.
func (r *MemorizationRepository) Create(ctx context.Context, log *models.MemorizationLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now
	const query = `INSERT INTO memorization_logs (id, student_id, log_date, juz, surah_from, ayah_from, surah_to, ayah_to, pages, category, status, evaluator_id, note, created_at, updated_at)
        VALUES (:id, :student_id, :log_date, :juz, :surah_from, :ayah_from, :surah_to, :ayah_to, :pages, :category, :status, :evaluator_id, :note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create memorization log: %w", err)
	}
	return nil
}

// Update modifies a log entry.
func (r *MemorizationRepository) Update(ctx context.Context, log *models.MemorizationLog) error {
	log.UpdatedAt = time.Now().UTC()
	const query = `UPDATE memorization_logs SET student_id = :student_id, log_date = :log_date, juz = :juz, surah_from = :surah_from, ayah_from = :ayah_from, surah_to = :surah_to, ayah_to = :ayah_to, pages = :pages, category = :category, status = :status, evaluator_id = :evaluator_id, note = :note, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("update memorization log: %w", err)
	}
	return nil
}

// Delete removes a log entry.
func (r *MemorizationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM memorization_logs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete memorization log: %w", err)
	}
	return nil
}
