package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	ListActiveByGroup(ctx context.Context, classID, halaqahID string) ([]models.StudentDetail, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByNIS(ctx context.Context, nis string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &StudentService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationOf(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest, actor string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.ensureUniqueNIS(ctx, req.NIS, ""); err != nil {
		return nil, err
	}
	student := &models.Student{
		NIS:           strings.TrimSpace(req.NIS),
		FullName:      strings.TrimSpace(req.FullName),
		Gender:        req.Gender,
		Status:        models.StudentStatusActive,
		ClassID:       req.ClassID,
		HalaqahID:     req.HalaqahID,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, writeError(err, "failed to create student")
	}
	s.cache.InvalidateReports(ctx, "")
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionCreate,
		EntityType:  "student",
		EntityID:    &student.ID,
		EntityName:  student.FullName,
		Description: "menambahkan santri " + student.NIS,
		After:       student,
	})
	return student, nil
}

// Update modifies an existing student record. The status is changed through ChangeStatus only.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest, actor string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "student")
	}
	if err := s.ensureUniqueNIS(ctx, req.NIS, id); err != nil {
		return nil, err
	}
	before := detail.Student
	student := detail.Student
	student.NIS = strings.TrimSpace(req.NIS)
	student.FullName = strings.TrimSpace(req.FullName)
	student.Gender = req.Gender
	student.ClassID = req.ClassID
	student.HalaqahID = req.HalaqahID
	student.GuardianName = req.GuardianName
	student.GuardianPhone = req.GuardianPhone
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, writeError(err, "failed to update student")
	}
	s.cache.InvalidateReports(ctx, "")
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionUpdate,
		EntityType: "student",
		EntityID:   &student.ID,
		EntityName: student.FullName,
		Before:     before,
		After:      student,
	})
	return &student, nil
}

// ChangeStatus soft-removes (INACTIVE, GRADUATED, MOVED) or reactivates a student.
func (s *StudentService) ChangeStatus(ctx context.Context, id string, req models.ChangeStudentStatusRequest, actor string) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "student")
	}
	if detail.Status == req.Status {
		return detail, nil
	}
	previous := detail.Status
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change student status")
	}
	detail.Status = req.Status
	// Rosters and rankings only count ACTIVE students.
	s.cache.InvalidateReports(ctx, "")
	s.audit.Record(ctx, models.AuditEntry{
		Actor:       actor,
		Action:      models.AuditActionUpdate,
		EntityType:  "student",
		EntityID:    &detail.ID,
		EntityName:  detail.FullName,
		Description: "status " + string(previous) + " -> " + string(req.Status),
		Before:      map[string]models.StudentStatus{"status": previous},
		After:       map[string]models.StudentStatus{"status": req.Status},
	})
	return detail, nil
}

func (s *StudentService) ensureUniqueNIS(ctx context.Context, nis, excludeID string) error {
	exists, err := s.repo.ExistsByNIS(ctx, strings.TrimSpace(nis), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate nis")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "nis already used")
	}
	return nil
}
