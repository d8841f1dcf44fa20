package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noah-isme/tahfidz-admin-api/pkg/export"
)

// MessageSender delivers one WhatsApp message. The returned link, when not empty, is shown to the
// operator so the message can be opened manually.
type MessageSender interface {
	Send(ctx context.Context, phone, text string) (link string, err error)
}

// LinkSender does not contact anyone; it produces wa.me links for the operator to open in turn.
type LinkSender struct{}

// Send returns the deep link for phone.
func (LinkSender) Send(_ context.Context, phone, text string) (string, error) {
	return export.WhatsAppLink(phone, text), nil
}

// GatewaySender posts messages to an HTTP WhatsApp gateway.
type GatewaySender struct {
	url    string
	token  string
	client *http.Client
}

// NewGatewaySender builds a sender for the gateway at url. token is sent as a bearer token when set.
func NewGatewaySender(url, token string, timeout time.Duration) *GatewaySender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewaySender{url: url, token: token, client: &http.Client{Timeout: timeout}}
}

type gatewayMessage struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send posts {"phone","message"} and treats any non-2xx answer as a failed delivery.
func (g *GatewaySender) Send(ctx context.Context, phone, text string) (string, error) {
	body, err := json.Marshal(gatewayMessage{Phone: export.NormalizePhone(phone), Message: text})
	if err != nil {
		return "", fmt.Errorf("encode gateway message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return "", nil
}
