package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) (bool, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// AnnouncementService handles the notice board and its archive.
type AnnouncementService struct {
	repo      announcementRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &AnnouncementService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns active announcements, or archived ones when filter.Archived is set.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return rows, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	ann, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "announcement")
	}
	return ann, nil
}

// Create publishes a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, req models.AnnouncementRequest, actor string) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	announcement := &models.Announcement{
		Title:     strings.TrimSpace(req.Title),
		Body:      req.Body,
		Category:  req.Category,
		SortOrder: req.SortOrder,
		CreatedBy: actor,
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, writeError(err, "failed to create announcement")
	}
	s.record(ctx, actor, models.AuditActionCreate, announcement, nil)
	return announcement, nil
}

// Update modifies title, body, category and order.
func (s *AnnouncementService) Update(ctx context.Context, id string, req models.AnnouncementRequest, actor string) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "announcement")
	}
	before := *existing
	existing.Title = strings.TrimSpace(req.Title)
	existing.Body = req.Body
	existing.Category = req.Category
	existing.SortOrder = req.SortOrder
	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, writeError(err, "failed to update announcement")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	s.record(ctx, actor, models.AuditActionUpdate, existing, &before)
	return existing, nil
}

// Archive hides an announcement from the board. Archiving an archived item changes nothing.
func (s *AnnouncementService) Archive(ctx context.Context, id, actor string) (*models.Announcement, error) {
	return s.setActive(ctx, id, false, actor)
}

// Restore brings an archived announcement back. Restoring an active item changes nothing.
func (s *AnnouncementService) Restore(ctx context.Context, id, actor string) (*models.Announcement, error) {
	return s.setActive(ctx, id, true, actor)
}

func (s *AnnouncementService) setActive(ctx context.Context, id string, active bool, actor string) (*models.Announcement, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "announcement")
	}
	if existing.IsActive == active {
		return existing, nil
	}
	before := *existing
	changed, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, writeError(err, "failed to update announcement")
	}
	if !changed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	existing.IsActive = active
	action := models.AuditActionArchive
	if active {
		action = models.AuditActionRestore
	}
	s.record(ctx, actor, action, existing, &before)
	return existing, nil
}

// Delete removes an announcement permanently.
func (s *AnnouncementService) Delete(ctx context.Context, id, actor string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "announcement")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return writeError(err, "failed to delete announcement")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionDelete,
		EntityType: "announcement",
		EntityID:   &existing.ID,
		EntityName: existing.Title,
		Before:     existing,
	})
	return nil
}

func (s *AnnouncementService) record(ctx context.Context, actor, action string, ann *models.Announcement, before *models.Announcement) {
	entry := models.AuditEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "announcement",
		EntityID:   &ann.ID,
		EntityName: ann.Title,
		After:      ann,
	}
	if before != nil {
		entry.Before = before
	}
	s.audit.Record(ctx, entry)
}
