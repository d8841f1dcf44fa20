package models

import "time"

// AnnouncementCategory groups notice-board items.
type AnnouncementCategory string

const (
	AnnouncementPengumuman AnnouncementCategory = "PENGUMUMAN"
	AnnouncementBuletin    AnnouncementCategory = "BULETIN"
	AnnouncementInfo       AnnouncementCategory = "INFO"
)

// Announcement is a notice-board item. Archiving flips IsActive; rows are never soft-deleted otherwise.
type Announcement struct {
	ID        string               `db:"id" json:"id"`
	Title     string               `db:"title" json:"title"`
	Body      string               `db:"body" json:"body"`
	Category  AnnouncementCategory `db:"category" json:"category"`
	IsActive  bool                 `db:"is_active" json:"is_active"`
	SortOrder int                  `db:"sort_order" json:"sort_order"`
	CreatedBy string               `db:"created_by" json:"created_by"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt time.Time            `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter lists announcements.
type AnnouncementFilter struct {
	Category AnnouncementCategory
	Archived bool
	Search   string
	Page     int
	PageSize int
}

// AnnouncementRequest creates or edits an announcement.
type AnnouncementRequest struct {
	Title     string               `json:"title" validate:"required,max=200"`
	Body      string               `json:"body" validate:"required"`
	Category  AnnouncementCategory `json:"category" validate:"required,announcement_category"`
	SortOrder int                  `json:"sort_order" validate:"gte=0"`
}
