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

// ReferenceKind names one of the static reference tables.
type ReferenceKind string

const (
	ReferenceClasses  ReferenceKind = "classes"
	ReferenceHalaqahs ReferenceKind = "halaqahs"
	ReferenceSubjects ReferenceKind = "subjects"
	ReferenceTeachers ReferenceKind = "teachers"
)

// ReferenceRepository persists classes, halaqahs, subjects and teachers through the generic table store.
type ReferenceRepository struct {
	store *datastore.Store
}

// NewReferenceRepository constructs a ReferenceRepository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{store: datastore.New(db)}
}

// ListClasses returns all classes ordered by name.
func (r *ReferenceRepository) ListClasses(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	if err := r.store.Select(ctx, &classes, datastore.From("classes", "id", "name", "created_at", "updated_at").OrderBy("name", false)); err != nil {
		return nil, err
	}
	return classes, nil
}

// ListHalaqahs returns all halaqahs ordered by name, optionally only those led by teacherID.
func (r *ReferenceRepository) ListHalaqahs(ctx context.Context, teacherID string) ([]models.Halaqah, error) {
	q := datastore.From("halaqahs", "id", "name", "teacher_id", "created_at", "updated_at").OrderBy("name", false)
	if teacherID != "" {
		q = q.Where(datastore.Eq("teacher_id", teacherID))
	}
	var halaqahs []models.Halaqah
	if err := r.store.Select(ctx, &halaqahs, q); err != nil {
		return nil, err
	}
	return halaqahs, nil
}

// ListSubjects returns subjects, optionally restricted to one category.
func (r *ReferenceRepository) ListSubjects(ctx context.Context, category models.SubjectCategory) ([]models.Subject, error) {
	q := datastore.From("subjects", "id", "name", "category", "created_at", "updated_at").
		OrderBy("category", true).
		OrderBy("name", false)
	if category != "" {
		q = q.Where(datastore.Eq("category", category))
	}
	var subjects []models.Subject
	if err := r.store.Select(ctx, &subjects, q); err != nil {
		return nil, err
	}
	return subjects, nil
}

// ListTeachers returns teachers, optionally only active ones.
func (r *ReferenceRepository) ListTeachers(ctx context.Context, activeOnly bool) ([]models.Teacher, error) {
	q := datastore.From("teachers", "id", "full_name", "phone", "active", "created_at", "updated_at").OrderBy("full_name", false)
	if activeOnly {
		q = q.Where(datastore.Eq("active", true))
	}
	var teachers []models.Teacher
	if err := r.store.Select(ctx, &teachers, q); err != nil {
		return nil, err
	}
	return teachers, nil
}

// CreateClass inserts a class.
func (r *ReferenceRepository) CreateClass(ctx context.Context, class *models.Class) error {
	class.ID, class.CreatedAt, class.UpdatedAt = newIdentity(class.ID)
	return r.store.Insert(ctx, "classes", datastore.Values{
		"id": class.ID, "name": class.Name, "created_at": class.CreatedAt, "updated_at": class.UpdatedAt,
	})
}

// UpdateClass renames a class. It reports false when the class does not exist.
func (r *ReferenceRepository) UpdateClass(ctx context.Context, class *models.Class) (bool, error) {
	class.UpdatedAt = time.Now().UTC()
	return r.update(ctx, ReferenceClasses, class.ID, datastore.Values{"name": class.Name, "updated_at": class.UpdatedAt})
}

// CreateHalaqah inserts a halaqah.
func (r *ReferenceRepository) CreateHalaqah(ctx context.Context, halaqah *models.Halaqah) error {
	halaqah.ID, halaqah.CreatedAt, halaqah.UpdatedAt = newIdentity(halaqah.ID)
	return r.store.Insert(ctx, "halaqahs", datastore.Values{
		"id": halaqah.ID, "name": halaqah.Name, "teacher_id": halaqah.TeacherID,
		"created_at": halaqah.CreatedAt, "updated_at": halaqah.UpdatedAt,
	})
}

// UpdateHalaqah updates name and lead teacher.
func (r *ReferenceRepository) UpdateHalaqah(ctx context.Context, halaqah *models.Halaqah) (bool, error) {
	halaqah.UpdatedAt = time.Now().UTC()
	return r.update(ctx, ReferenceHalaqahs, halaqah.ID, datastore.Values{
		"name": halaqah.Name, "teacher_id": halaqah.TeacherID, "updated_at": halaqah.UpdatedAt,
	})
}

// CreateSubject inserts a subject.
func (r *ReferenceRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	subject.ID, subject.CreatedAt, subject.UpdatedAt = newIdentity(subject.ID)
	return r.store.Insert(ctx, "subjects", datastore.Values{
		"id": subject.ID, "name": subject.Name, "category": subject.Category,
		"created_at": subject.CreatedAt, "updated_at": subject.UpdatedAt,
	})
}

// UpdateSubject updates name and category.
func (r *ReferenceRepository) UpdateSubject(ctx context.Context, subject *models.Subject) (bool, error) {
	subject.UpdatedAt = time.Now().UTC()
	return r.update(ctx, ReferenceSubjects, subject.ID, datastore.Values{
		"name": subject.Name, "category": subject.Category, "updated_at": subject.UpdatedAt,
	})
}

// CreateTeacher inserts a teacher.
func (r *ReferenceRepository) CreateTeacher(ctx context.Context, teacher *models.Teacher) error {
	teacher.ID, teacher.CreatedAt, teacher.UpdatedAt = newIdentity(teacher.ID)
	return r.store.Insert(ctx, "teachers", datastore.Values{
		"id": teacher.ID, "full_name": teacher.FullName, "phone": teacher.Phone, "active": teacher.Active,
		"created_at": teacher.CreatedAt, "updated_at": teacher.UpdatedAt,
	})
}

// UpdateTeacher updates a teacher.
func (r *ReferenceRepository) UpdateTeacher(ctx context.Context, teacher *models.Teacher) (bool, error) {
	teacher.UpdatedAt = time.Now().UTC()
	return r.update(ctx, ReferenceTeachers, teacher.ID, datastore.Values{
		"full_name": teacher.FullName, "phone": teacher.Phone, "active": teacher.Active, "updated_at": teacher.UpdatedAt,
	})
}

// Delete removes a reference row. It reports false when nothing was deleted.
func (r *ReferenceRepository) Delete(ctx context.Context, kind ReferenceKind, id string) (bool, error) {
	affected, err := r.store.DeleteByID(ctx, string(kind), id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ReferenceRepository) update(ctx context.Context, kind ReferenceKind, id string, values datastore.Values) (bool, error) {
	affected, err := r.store.UpdateByID(ctx, string(kind), id, values)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", kind, err)
	}
	return affected > 0, nil
}

func newIdentity(id string) (string, time.Time, time.Time) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return id, now, now
}
