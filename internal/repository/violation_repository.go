package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/datastore"
)

var violationColumns = []string{"id", "student_id", "date", "level", "category", "description", "status", "reported_by", "action_taken", "created_at", "updated_at"}

// ViolationRepository persists disciplinary records.
type ViolationRepository struct {
	db    *sqlx.DB
	store *datastore.Store
}

// NewViolationRepository constructs a ViolationRepository.
func NewViolationRepository(db *sqlx.DB) *ViolationRepository {
	return &ViolationRepository{db: db, store: datastore.New(db)}
}

func violationQuery(filter models.ViolationFilter) datastore.Query {
	q := datastore.From("violations", violationColumns...).Range("date", filter.From, filter.To)
	if filter.StudentID != "" {
		q = q.Where(datastore.Eq("student_id", filter.StudentID))
	}
	if filter.Level > 0 {
		q = q.Where(datastore.Eq("level", filter.Level))
	}
	if filter.Category != "" {
		q = q.Where(datastore.Eq("category", filter.Category))
	}
	if filter.Status != "" {
		q = q.Where(datastore.Eq("status", filter.Status))
	}
	return q
}

// List returns violations newest first.
func (r *ViolationRepository) List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, int, error) {
	q := violationQuery(filter)
	total, err := r.store.Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	var violations []models.Violation
	if err := r.store.Select(ctx, &violations, q.OrderBy("date", true).OrderBy("created_at", true).Page(size, offset)); err != nil {
		return nil, 0, err
	}
	return violations, total, nil
}

// ListAll returns every violation matching filter, for exports.
func (r *ViolationRepository) ListAll(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, error) {
	var violations []models.Violation
	if err := r.store.Select(ctx, &violations, violationQuery(filter).OrderBy("date", false)); err != nil {
		return nil, err
	}
	return violations, nil
}

// FindByID loads a violation; the error wraps sql.ErrNoRows when missing.
func (r *ViolationRepository) FindByID(ctx context.Context, id string) (*models.Violation, error) {
	var v models.Violation
	if err := r.store.Get(ctx, &v, datastore.From("violations", violationColumns...).Where(datastore.Eq("id", id))); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts an OPEN violation.
func (r *ViolationRepository) Create(ctx context.Context, v *models.Violation) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.Status == "" {
		v.Status = models.ViolationOpen
	}
	return r.store.Insert(ctx, "violations", datastore.Values{
		"id":           v.ID,
		"student_id":   v.StudentID,
		"date":         v.Date,
		"level":        v.Level,
		"category":     v.Category,
		"description":  v.Description,
		"status":       v.Status,
		"reported_by":  v.ReportedBy,
		"action_taken": v.ActionTaken,
		"created_at":   v.CreatedAt,
		"updated_at":   v.UpdatedAt,
	})
}

// Update edits the descriptive fields of a violation.
func (r *ViolationRepository) Update(ctx context.Context, v *models.Violation) (bool, error) {
	v.UpdatedAt = time.Now().UTC()
	affected, err := r.store.UpdateByID(ctx, "violations", v.ID, datastore.Values{
		"student_id":  v.StudentID,
		"date":        v.Date,
		"level":       v.Level,
		"category":    v.Category,
		"description": v.Description,
		"updated_at":  v.UpdatedAt,
	})
	return affected > 0, err
}

// UpdateStatus stores a status change and the action taken.
func (r *ViolationRepository) UpdateStatus(ctx context.Context, id string, status models.ViolationStatus, actionTaken *string) (bool, error) {
	affected, err := r.store.UpdateByID(ctx, "violations", id, datastore.Values{
		"status":       status,
		"action_taken": actionTaken,
		"updated_at":   time.Now().UTC(),
	})
	return affected > 0, err
}

// Delete removes a violation.
func (r *ViolationRepository) Delete(ctx context.Context, id string) (bool, error) {
	affected, err := r.store.DeleteByID(ctx, "violations", id)
	return affected > 0, err
}

// Recap counts violations by level and category within the filter.
func (r *ViolationRepository) Recap(ctx context.Context, filter models.ViolationFilter) ([]models.ViolationRecapRow, error) {
	where, args, err := violationQuery(filter).WhereSQL()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT level, category, COUNT(*) AS count, COUNT(*) FILTER (WHERE status <> 'SELESAI') AS open
        FROM violations%s GROUP BY level, category ORDER BY level DESC, count DESC, category ASC`, where)

	var rows []struct {
		Level    int    `db:"level"`
		Category string `db:"category"`
		Count    int    `db:"count"`
		Open     int    `db:"open"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("recap violations: %w", err)
	}
	recap := make([]models.ViolationRecapRow, len(rows))
	for i, row := range rows {
		recap[i] = models.ViolationRecapRow{Level: row.Level, Category: row.Category, Count: row.Count, Open: row.Open}
	}
	return recap, nil
}
