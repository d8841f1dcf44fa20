package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type auditRepository interface {
	Insert(ctx context.Context, entry models.AuditEntry) (*models.AuditLog, error)
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

// auditRecorder is what mutating services depend on.
type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, models.AuditEntry) {}

// AuditService appends to the activity trail. Recording is best-effort: a failed insert is
// logged and counted but never fails the mutation that produced it.
type AuditService struct {
	repo    auditRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo auditRepository, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, metrics: metrics, logger: logger}
}

// Record persists entry. Errors are swallowed.
func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}
	if _, err := s.repo.Insert(context.WithoutCancel(ctx), entry); err != nil {
		s.metrics.IncAuditFailure()
		s.logger.Warn("failed to persist audit log",
			zap.String("action", entry.Action),
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_name", entry.EntityName),
			zap.Error(err))
	}
}

// List returns audit entries with pagination.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, paginationOf(filter.Page, filter.PageSize, total), nil
}
