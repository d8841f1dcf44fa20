package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/pkg/datastore"
)

var auditColumns = []string{"id", "actor", "action", "entity_type", "entity_id", "entity_name", "description", "before", "after", "created_at"}

// AuditRepository stores the activity trail.
type AuditRepository struct {
	store *datastore.Store
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{store: datastore.New(db)}
}

// Insert persists entry with JSON snapshots of its before/after values.
func (r *AuditRepository) Insert(ctx context.Context, entry models.AuditEntry) (*models.AuditLog, error) {
	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return nil, err
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return nil, err
	}
	log := &models.AuditLog{
		ID:          uuid.NewString(),
		Actor:       entry.Actor,
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		EntityName:  entry.EntityName,
		Description: entry.Description,
		Before:      before,
		After:       after,
		CreatedAt:   time.Now().UTC(),
	}
	err = r.store.Insert(ctx, "audit_logs", datastore.Values{
		"id":          log.ID,
		"actor":       log.Actor,
		"action":      log.Action,
		"entity_type": log.EntityType,
		"entity_id":   log.EntityID,
		"entity_name": log.EntityName,
		"description": log.Description,
		"before":      nullableJSON(before),
		"after":       nullableJSON(after),
		"created_at":  log.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// List returns audit entries newest first.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	q := datastore.From("audit_logs", auditColumns...).Range("created_at", filter.From, filter.To)
	if filter.Actor != "" {
		q = q.Where(datastore.Eq("actor", filter.Actor))
	}
	if filter.EntityType != "" {
		q = q.Where(datastore.Eq("entity_type", filter.EntityType))
	}
	if filter.EntityID != "" {
		q = q.Where(datastore.Eq("entity_id", filter.EntityID))
	}
	total, err := r.store.Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	_, size, offset := normalizePage(filter.Page, filter.PageSize)
	var logs []models.AuditLog
	if err := r.store.Select(ctx, &logs, q.OrderBy("created_at", true).Page(size, offset)); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func marshalSnapshot(v interface{}) (*json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	msg := json.RawMessage(raw)
	return &msg, nil
}

func nullableJSON(raw *json.RawMessage) interface{} {
	if raw == nil {
		return nil
	}
	return []byte(*raw)
}
