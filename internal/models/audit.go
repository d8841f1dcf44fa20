package models

import (
	"encoding/json"
	"time"
)

// AuditAction constants represent actions to be logged.
const (
	AuditActionCreate    = "CREATE"
	AuditActionUpdate    = "UPDATE"
	AuditActionUpsert    = "UPSERT"
	AuditActionDelete    = "DELETE"
	AuditActionApprove   = "APPROVE"
	AuditActionReject    = "REJECT"
	AuditActionComplete  = "COMPLETE"
	AuditActionArchive   = "ARCHIVE"
	AuditActionRestore   = "RESTORE"
	AuditActionActivate  = "ACTIVATE"
	AuditActionBroadcast = "BROADCAST"
)

// AuditEntry is what services hand to the audit sink.
type AuditEntry struct {
	Actor       string
	Action      string
	EntityType  string
	EntityID    *string
	EntityName  string
	Description string
	Before      interface{}
	After       interface{}
}

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID          string           `db:"id" json:"id"`
	Actor       string           `db:"actor" json:"actor"`
	Action      string           `db:"action" json:"action"`
	EntityType  string           `db:"entity_type" json:"entity_type"`
	EntityID    *string          `db:"entity_id" json:"entity_id,omitempty"`
	EntityName  string           `db:"entity_name" json:"entity_name"`
	Description string           `db:"description" json:"description"`
	Before      *json.RawMessage `db:"before" json:"before,omitempty"`
	After       *json.RawMessage `db:"after" json:"after,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// AuditFilter lists audit entries.
type AuditFilter struct {
	Actor      string
	EntityType string
	EntityID   string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
