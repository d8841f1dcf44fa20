package models

import "time"

// Teacher is an ustadz/ustadzah acting as evaluator or halaqah lead.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Phone     string    `db:"phone" json:"phone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherRequest creates or updates a teacher.
type TeacherRequest struct {
	FullName string `json:"full_name" validate:"required,max=128"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Active   *bool  `json:"active"`
}
