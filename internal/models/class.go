package models

import "time"

// Class is a study group for academic subjects.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Halaqah is a memorization circle led by one ustadz.
type Halaqah struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassRequest creates or renames a class.
type ClassRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// HalaqahRequest creates or updates a halaqah.
type HalaqahRequest struct {
	Name      string  `json:"name" validate:"required,max=64"`
	TeacherID *string `json:"teacher_id" validate:"omitempty,uuid"`
}
