package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/repository"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type referenceRepository interface {
	ListClasses(ctx context.Context) ([]models.Class, error)
	ListHalaqahs(ctx context.Context, teacherID string) ([]models.Halaqah, error)
	ListSubjects(ctx context.Context, category models.SubjectCategory) ([]models.Subject, error)
	ListTeachers(ctx context.Context, activeOnly bool) ([]models.Teacher, error)
	CreateClass(ctx context.Context, class *models.Class) error
	UpdateClass(ctx context.Context, class *models.Class) (bool, error)
	CreateHalaqah(ctx context.Context, halaqah *models.Halaqah) error
	UpdateHalaqah(ctx context.Context, halaqah *models.Halaqah) (bool, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
	UpdateSubject(ctx context.Context, subject *models.Subject) (bool, error)
	CreateTeacher(ctx context.Context, teacher *models.Teacher) error
	UpdateTeacher(ctx context.Context, teacher *models.Teacher) (bool, error)
	Delete(ctx context.Context, kind repository.ReferenceKind, id string) (bool, error)
}

// ReferenceService manages classes, halaqahs, subjects and teachers.
type ReferenceService struct {
	repo      referenceRepository
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceService constructs the service.
func NewReferenceService(repo referenceRepository, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ReferenceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = noopAudit{}
	}
	return &ReferenceService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// ListClasses returns all classes.
func (s *ReferenceService) ListClasses(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.ListClasses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// ListHalaqahs returns halaqahs, optionally those of one teacher.
func (s *ReferenceService) ListHalaqahs(ctx context.Context, teacherID string) ([]models.Halaqah, error) {
	halaqahs, err := s.repo.ListHalaqahs(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list halaqahs")
	}
	return halaqahs, nil
}

// ListSubjects returns subjects, optionally of one category.
func (s *ReferenceService) ListSubjects(ctx context.Context, category models.SubjectCategory) ([]models.Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx, category)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// ListTeachers returns teachers.
func (s *ReferenceService) ListTeachers(ctx context.Context, activeOnly bool) ([]models.Teacher, error) {
	teachers, err := s.repo.ListTeachers(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// SaveClass creates (empty id) or renames a class.
func (s *ReferenceService) SaveClass(ctx context.Context, id string, req models.ClassRequest, actor string) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	class := &models.Class{ID: id, Name: strings.TrimSpace(req.Name)}
	if id == "" {
		if err := s.repo.CreateClass(ctx, class); err != nil {
			return nil, writeError(err, "failed to create class")
		}
	} else if err := s.mustUpdate(s.repo.UpdateClass(ctx, class)); err != nil {
		return nil, err
	}
	s.record(ctx, actor, id == "", "class", class.ID, class.Name, class)
	return class, nil
}

// SaveHalaqah creates (empty id) or updates a halaqah.
func (s *ReferenceService) SaveHalaqah(ctx context.Context, id string, req models.HalaqahRequest, actor string) (*models.Halaqah, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	halaqah := &models.Halaqah{ID: id, Name: strings.TrimSpace(req.Name), TeacherID: req.TeacherID}
	if id == "" {
		if err := s.repo.CreateHalaqah(ctx, halaqah); err != nil {
			return nil, writeError(err, "failed to create halaqah")
		}
	} else if err := s.mustUpdate(s.repo.UpdateHalaqah(ctx, halaqah)); err != nil {
		return nil, err
	}
	s.record(ctx, actor, id == "", "halaqah", halaqah.ID, halaqah.Name, halaqah)
	return halaqah, nil
}

// SaveSubject creates (empty id) or updates a subject.
func (s *ReferenceService) SaveSubject(ctx context.Context, id string, req models.SubjectRequest, actor string) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	subject := &models.Subject{ID: id, Name: strings.TrimSpace(req.Name), Category: req.Category}
	if id == "" {
		if err := s.repo.CreateSubject(ctx, subject); err != nil {
			return nil, writeError(err, "failed to create subject")
		}
	} else if err := s.mustUpdate(s.repo.UpdateSubject(ctx, subject)); err != nil {
		return nil, err
	}
	s.record(ctx, actor, id == "", "subject", subject.ID, subject.Name, subject)
	return subject, nil
}

// SaveTeacher creates (empty id) or updates a teacher. New teachers default to active.
func (s *ReferenceService) SaveTeacher(ctx context.Context, id string, req models.TeacherRequest, actor string) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	teacher := &models.Teacher{ID: id, FullName: strings.TrimSpace(req.FullName), Phone: req.Phone, Active: true}
	if req.Active != nil {
		teacher.Active = *req.Active
	}
	if id == "" {
		if err := s.repo.CreateTeacher(ctx, teacher); err != nil {
			return nil, writeError(err, "failed to create teacher")
		}
	} else if err := s.mustUpdate(s.repo.UpdateTeacher(ctx, teacher)); err != nil {
		return nil, err
	}
	s.record(ctx, actor, id == "", "teacher", teacher.ID, teacher.FullName, teacher)
	return teacher, nil
}

// Delete removes a reference row. Rows still referenced elsewhere yield CONFLICT.
func (s *ReferenceService) Delete(ctx context.Context, kind repository.ReferenceKind, id, actor string) error {
	deleted, err := s.repo.Delete(ctx, kind, id)
	if err != nil {
		return writeError(err, "failed to delete "+string(kind))
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, string(kind)+" not found")
	}
	if kind != repository.ReferenceTeachers {
		s.cache.InvalidateReports(ctx, "")
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     models.AuditActionDelete,
		EntityType: string(kind),
		EntityID:   &id,
	})
	return nil
}

func (s *ReferenceService) mustUpdate(found bool, err error) error {
	if err != nil {
		return writeError(err, "failed to update reference data")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "reference data not found")
	}
	return nil
}

// record audits a save. Class, halaqah and subject changes also drop cached reports, which
// embed their names and group rosters by them.
func (s *ReferenceService) record(ctx context.Context, actor string, created bool, entityType, id, name string, after interface{}) {
	if entityType != "teacher" {
		s.cache.InvalidateReports(ctx, "")
	}
	action := models.AuditActionUpdate
	if created {
		action = models.AuditActionCreate
	}
	s.audit.Record(ctx, models.AuditEntry{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   &id,
		EntityName: name,
		After:      after,
	})
}
