package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
)

type broadcastServiceStub struct {
	started  models.BroadcastRequest
	actor    string
	statuses map[string]*models.BroadcastStatus
}

func (s *broadcastServiceStub) Start(ctx context.Context, req models.BroadcastRequest, actor string) (*models.BroadcastStatus, error) {
	s.started, s.actor = req, actor
	return &models.BroadcastStatus{ID: "b1", State: models.BroadcastQueued, Total: 3, StartedAt: time.Now()}, nil
}

func (s *broadcastServiceStub) Status(ctx context.Context, id string) (*models.BroadcastStatus, error) {
	if status, ok := s.statuses[id]; ok {
		return status, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "broadcast not found")
}

func (s *broadcastServiceStub) Cancel(ctx context.Context, id, actor string) (*models.BroadcastStatus, error) {
	status, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	status.State = models.BroadcastCancelled
	return status, nil
}

func TestBroadcastStartQueues(t *testing.T) {
	stub := &broadcastServiceStub{}
	h := NewBroadcastHandler(stub)

	c, w := newGinContext(http.MethodPost, "/broadcasts", []byte(`{"template":"Assalamualaikum {nama}","class_id":"c1"}`))
	withClaims(c, models.RoleKepala)
	h.Start(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "Assalamualaikum {nama}", stub.started.Template)
	assert.Equal(t, "Ustadz Hasan", stub.actor)
	assert.Contains(t, w.Body.String(), `"state":"QUEUED"`)
}

func TestBroadcastStatusAndCancel(t *testing.T) {
	stub := &broadcastServiceStub{statuses: map[string]*models.BroadcastStatus{
		"b1": {ID: "b1", State: models.BroadcastRunning, Total: 3, Sent: 1},
	}}
	h := NewBroadcastHandler(stub)

	c, w := newGinContext(http.MethodGet, "/broadcasts/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Status(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodDelete, "/broadcasts/b1", nil)
	c.Params = gin.Params{{Key: "id", Value: "b1"}}
	h.Cancel(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"CANCELLED"`)
	assert.Contains(t, w.Body.String(), `"sent":1`)
}
