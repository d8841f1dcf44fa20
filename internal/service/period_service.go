package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type periodRepository interface {
	List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error)
	FindByID(ctx context.Context, id string) (*models.Period, error)
	FindActive(ctx context.Context, kind models.PeriodKind) (*models.Period, error)
	Create(ctx context.Context, period *models.Period) error
	Update(ctx context.Context, period *models.Period) error
	SetActive(ctx context.Context, id string, kind models.PeriodKind) error
	Delete(ctx context.Context, id string) error
	CountScores(ctx context.Context, id string) (int, error)
}

// PeriodService manages semesters, months and weeks and the active period of each kind.
type PeriodService struct {
	repo      periodRepository
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPeriodService constructs the service.
func NewPeriodService(repo periodRepository, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &PeriodService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns periods.
func (s *PeriodService) List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, *models.Pagination, error) {
	periods, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	return periods, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns a period.
func (s *PeriodService) Get(ctx context.Context, id string) (*models.Period, error) {
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "period")
	}
	return period, nil
}

// Active returns the active period of kind, or NOT_FOUND when none is active.
func (s *PeriodService) Active(ctx context.Context, kind models.PeriodKind) (*models.Period, error) {
	period, err := s.repo.FindActive(ctx, kind)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active "+strings.ToLower(string(kind))+" period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active period")
	}
	return period, nil
}

// Create registers a period, activating it when requested.
func (s *PeriodService) Create(ctx context.Context, req models.PeriodRequest, actor string) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	period := &models.Period{
		Label:     strings.TrimSpace(req.Label),
		Kind:      req.Kind,
		ParentID:  req.ParentID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.repo.Create(ctx, period); err != nil {
		return nil, writeError(err, "failed to create period")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionCreate,
		EntityType: "period",
		EntityID:   &period.ID,
		EntityName: period.Label,
		After:      period,
	})
	if req.Activate {
		return s.Activate(ctx, period.ID, actor)
	}
	return period, nil
}

// Update modifies label, kind and dates. Activation is separate.
func (s *PeriodService) Update(ctx context.Context, id string, req models.PeriodRequest, actor string) (*models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "period")
	}
	if period.IsActive && period.Kind != req.Kind {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot change the kind of an active period")
	}
	before := *period
	period.Label = strings.TrimSpace(req.Label)
	period.Kind = req.Kind
	period.ParentID = req.ParentID
	period.StartDate = req.StartDate
	period.EndDate = req.EndDate
	if err := s.repo.Update(ctx, period); err != nil {
		return nil, writeError(err, "failed to update period")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionUpdate,
		EntityType: "period",
		EntityID:   &period.ID,
		EntityName: period.Label,
		Before:     before,
		After:      period,
	})
	if req.Activate && !period.IsActive {
		return s.Activate(ctx, period.ID, actor)
	}
	return period, nil
}

// Activate makes id the only active period of its kind.
func (s *PeriodService) Activate(ctx context.Context, id, actor string) (*models.Period, error) {
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "period")
	}
	if err := s.repo.SetActive(ctx, period.ID, period.Kind); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate period")
	}
	period.IsActive = true
	s.cache.InvalidateReports(ctx, "")
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionActivate,
		EntityType:  "period",
		EntityID:    &period.ID,
		EntityName:  period.Label,
		Description: "periode aktif " + strings.ToLower(string(period.Kind)) + ": " + period.Label,
	})
	return period, nil
}

// Delete removes an inactive period without scores.
func (s *PeriodService) Delete(ctx context.Context, id, actor string) error {
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return loadError(err, "period")
	}
	if period.IsActive {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete the active period")
	}
	count, err := s.repo.CountScores(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check period usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "period still has scores")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return writeError(err, "failed to delete period")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionDelete,
		EntityType: "period",
		EntityID:   &period.ID,
		EntityName: period.Label,
		Before:     period,
	})
	return nil
}
