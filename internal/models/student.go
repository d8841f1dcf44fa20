package models

import "time"

// StudentStatus tracks enrollment state. Students are never deleted, only moved out of ACTIVE.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusInactive  StudentStatus = "INACTIVE"
	StudentStatusGraduated StudentStatus = "GRADUATED"
	StudentStatusMoved     StudentStatus = "MOVED"
)

// Student represents a santri registered in the pesantren.
type Student struct {
	ID            string        `db:"id" json:"id"`
	NIS           string        `db:"nis" json:"nis"`
	FullName      string        `db:"full_name" json:"full_name"`
	Gender        string        `db:"gender" json:"gender"`
	Status        StudentStatus `db:"status" json:"status"`
	ClassID       *string       `db:"class_id" json:"class_id,omitempty"`
	HalaqahID     *string       `db:"halaqah_id" json:"halaqah_id,omitempty"`
	GuardianName  string        `db:"guardian_name" json:"guardian_name"`
	GuardianPhone string        `db:"guardian_phone" json:"guardian_phone"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentDetail adds the class and halaqah names.
type StudentDetail struct {
	Student
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
	HalaqahName *string `db:"halaqah_name" json:"halaqah_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassID   string
	HalaqahID string
	Status    StudentStatus
	IDs       []string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateStudentRequest payload.
type CreateStudentRequest struct {
	NIS           string  `json:"nis" validate:"required,max=32"`
	FullName      string  `json:"full_name" validate:"required,max=128"`
	Gender        string  `json:"gender" validate:"required,oneof=L P"`
	ClassID       *string `json:"class_id" validate:"omitempty,uuid"`
	HalaqahID     *string `json:"halaqah_id" validate:"omitempty,uuid"`
	GuardianName  string  `json:"guardian_name" validate:"max=128"`
	GuardianPhone string  `json:"guardian_phone" validate:"omitempty,phone"`
}

// UpdateStudentRequest payload.
type UpdateStudentRequest struct {
	CreateStudentRequest
}

// ChangeStudentStatusRequest soft-removes or reactivates a student.
type ChangeStudentStatusRequest struct {
	Status StudentStatus `json:"status" validate:"required,student_status"`
}
