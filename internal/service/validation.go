package service

import (
	"database/sql"
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/repository"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}$`)

// NewValidator returns a validator with the domain enum rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	RegisterValidations(v)
	return v
}

// RegisterValidations adds the custom tags used by request structs. Registering twice is harmless.
func RegisterValidations(v *validator.Validate) {
	enum := func(tag string, allowed ...string) {
		set := make(map[string]struct{}, len(allowed))
		for _, a := range allowed {
			set[a] = struct{}{}
		}
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			_, ok := set[fl.Field().String()]
			return ok
		})
	}

	enum("student_status", string(models.StudentStatusActive), string(models.StudentStatusInactive), string(models.StudentStatusGraduated), string(models.StudentStatusMoved))
	enum("subject_category", string(models.SubjectCategoryTahfidz), string(models.SubjectCategoryAcademic))
	enum("period_kind", string(models.PeriodKindSemester), string(models.PeriodKindMonth), string(models.PeriodKindWeek))
	enum("exam_type", string(models.ExamTypeMonthly), string(models.ExamTypeMidterm), string(models.ExamTypeFinal), string(models.ExamTypeSemester))
	enum("memorization_category", string(models.MemorizationZiyadah), string(models.MemorizationMurajaah), string(models.MemorizationTasmi))
	enum("memorization_status", string(models.MemorizationLancar), string(models.MemorizationSedang), string(models.MemorizationKurang), string(models.MemorizationUlang))
	enum("attendance_session", string(models.SessionSubuh), string(models.SessionPagi), string(models.SessionMaghrib), string(models.SessionIsya))
	enum("attendance_status", string(models.AttendanceHadir), string(models.AttendanceIzin), string(models.AttendanceSakit), string(models.AttendanceAlpa))
	enum("violation_status", string(models.ViolationOpen), string(models.ViolationProses), string(models.ViolationSelesai))
	enum("announcement_category", string(models.AnnouncementPengumuman), string(models.AnnouncementBuletin), string(models.AnnouncementInfo))
	enum("export_kind", string(models.ExportStudents), string(models.ExportScores), string(models.ExportSemesterRanking),
		string(models.ExportMemorization), string(models.ExportAttendance), string(models.ExportViolations),
		string(models.ExportBudget), string(models.ExportRealizations))

	_ = v.RegisterValidation("score", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f >= 0 && f <= 100
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

// ErrFilterNotReady is returned by report operations whose required filters are missing.
// Handlers render it as an empty result with a notice, not as an error.
var ErrFilterNotReady = errors.New("report filter is not ready")

func paginationOf(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// loadError maps a repository lookup failure to NOT_FOUND or INTERNAL_ERROR.
func loadError(err error, entity string) error {
	if isNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}

// writeError maps a repository write failure, turning constraint violations into CONFLICT.
func writeError(err error, message string) error {
	switch {
	case repository.IsUniqueViolation(err):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "data already exists")
	case repository.IsForeignKeyViolation(err):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "referenced data does not exist or is still in use")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}

func validationError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

func strPtr(s string) *string {
	return &s
}
