package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type violationRepository interface {
	List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, int, error)
	ListAll(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, error)
	FindByID(ctx context.Context, id string) (*models.Violation, error)
	Create(ctx context.Context, v *models.Violation) error
	Update(ctx context.Context, v *models.Violation) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.ViolationStatus, actionTaken *string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Recap(ctx context.Context, filter models.ViolationFilter) ([]models.ViolationRecapRow, error)
}

// ViolationService records disciplinary cases and tracks their handling.
type ViolationService struct {
	repo      violationRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewViolationService constructs the service.
func NewViolationService(repo violationRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ViolationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &ViolationService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns violations, newest first.
func (s *ViolationService) List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list violations")
	}
	return rows, paginationOf(filter.Page, filter.PageSize, total), nil
}

// ListAll returns every matching violation in date order, for exports.
func (s *ViolationService) ListAll(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, error) {
	rows, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list violations")
	}
	return rows, nil
}

// Get returns one violation.
func (s *ViolationService) Get(ctx context.Context, id string) (*models.Violation, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "violation")
	}
	return v, nil
}

// Create records a new OPEN case reported by actor.
func (s *ViolationService) Create(ctx context.Context, req models.ViolationRequest, actor string) (*models.Violation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	v := &models.Violation{
		StudentID:   req.StudentID,
		Date:        req.Date,
		Level:       req.Level,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		ReportedBy:  actor,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, writeError(err, "failed to create violation")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionCreate,
		EntityType:  "violation",
		EntityID:    &v.ID,
		EntityName:  v.Category,
		Description: fmt.Sprintf("pelanggaran tingkat %d", v.Level),
		After:       v,
	})
	return v, nil
}

// Update edits the case details. Status is changed through Advance.
func (s *ViolationService) Update(ctx context.Context, id string, req models.ViolationRequest, actor string) (*models.Violation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "violation")
	}
	before := *v
	v.StudentID = req.StudentID
	v.Date = req.Date
	v.Level = req.Level
	v.Category = strings.TrimSpace(req.Category)
	v.Description = strings.TrimSpace(req.Description)
	updated, err := s.repo.Update(ctx, v)
	if err != nil {
		return nil, writeError(err, "failed to update violation")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "violation not found")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionUpdate,
		EntityType: "violation",
		EntityID:   &v.ID,
		EntityName: v.Category,
		Before:     before,
		After:      v,
	})
	return v, nil
}

// Advance moves the case forward: OPEN, PROSES, SELESAI. Going back is rejected.
func (s *ViolationService) Advance(ctx context.Context, id string, req models.ViolationStatusRequest, actor string) (*models.Violation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "violation")
	}
	if !v.Status.CanAdvance(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move a %s case to %s", v.Status, req.Status))
	}
	before := *v
	actionTaken := v.ActionTaken
	if req.ActionTaken != nil {
		trimmed := strings.TrimSpace(*req.ActionTaken)
		actionTaken = &trimmed
	}
	updated, err := s.repo.UpdateStatus(ctx, id, req.Status, actionTaken)
	if err != nil {
		return nil, writeError(err, "failed to update violation status")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "violation not found")
	}
	v.Status = req.Status
	v.ActionTaken = actionTaken
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionUpdate,
		EntityType:  "violation",
		EntityID:    &v.ID,
		EntityName:  v.Category,
		Description: fmt.Sprintf("status %s -> %s", before.Status, v.Status),
		Before:      before,
		After:       v,
	})
	return v, nil
}

// Delete removes a case.
func (s *ViolationService) Delete(ctx context.Context, id, actor string) error {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "violation")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return writeError(err, "failed to delete violation")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "violation not found")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionDelete,
		EntityType: "violation",
		EntityID:   &v.ID,
		EntityName: v.Category,
		Before:     v,
	})
	return nil
}

// Recap counts cases per level and category over a date range.
func (s *ViolationService) Recap(ctx context.Context, filter models.ViolationFilter) ([]models.ViolationRecapRow, error) {
	if filter.From == nil || filter.To == nil {
		return nil, ErrFilterNotReady
	}
	if filter.From.After(*filter.To) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	rows, err := s.repo.Recap(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build violation recap")
	}
	if rows == nil {
		rows = []models.ViolationRecapRow{}
	}
	return rows, nil
}
