package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/datastore"
)

var announcementColumns = []string{"id", "title", "body", "category", "is_active", "sort_order", "created_by", "created_at", "updated_at"}

// AnnouncementRepository provides persistence for the notice board.
type AnnouncementRepository struct {
	store *datastore.Store
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{store: datastore.New(db)}
}

// List returns active announcements (or archived ones when filter.Archived) by sort order, newest first within a slot.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	q := datastore.From("announcements", announcementColumns...).Where(datastore.Eq("is_active", !filter.Archived))
	if filter.Category != "" {
		q = q.Where(datastore.Eq("category", filter.Category))
	}
	if filter.Search != "" {
		q = q.Where(datastore.ILike("title", filter.Search))
	}
	total, err := r.store.Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	var announcements []models.Announcement
	if err := r.store.Select(ctx, &announcements, q.OrderBy("sort_order", false).OrderBy("created_at", true).Page(size, offset)); err != nil {
		return nil, 0, err
	}
	return announcements, total, nil
}

// FindByID loads an announcement regardless of its archive state.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	var a models.Announcement
	if err := r.store.Get(ctx, &a, datastore.From("announcements", announcementColumns...).Where(datastore.Eq("id", id))); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an active announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, a *models.Announcement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.IsActive = true
	return r.store.Insert(ctx, "announcements", datastore.Values{
		"id":         a.ID,
		"title":      a.Title,
		"body":       a.Body,
		"category":   a.Category,
		"is_active":  a.IsActive,
		"sort_order": a.SortOrder,
		"created_by": a.CreatedBy,
		"created_at": a.CreatedAt,
		"updated_at": a.UpdatedAt,
	})
}

// Update edits content fields; archive state is untouched.
func (r *AnnouncementRepository) Update(ctx context.Context, a *models.Announcement) (bool, error) {
	a.UpdatedAt = time.Now().UTC()
	affected, err := r.store.UpdateByID(ctx, "announcements", a.ID, datastore.Values{
		"title":      a.Title,
		"body":       a.Body,
		"category":   a.Category,
		"sort_order": a.SortOrder,
		"updated_at": a.UpdatedAt,
	})
	return affected > 0, err
}

// SetActive archives (false) or restores (true) an announcement. Only is_active and updated_at change.
func (r *AnnouncementRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	affected, err := r.store.UpdateByID(ctx, "announcements", id, datastore.Values{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	})
	return affected > 0, err
}

// Delete hard-deletes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) (bool, error) {
	affected, err := r.store.DeleteByID(ctx, "announcements", id)
	return affected > 0, err
}
