// Package notify tells the administrator about new edit requests.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Message summarizes a pending edit request.
type Message struct {
	RequestID   string `json:"request_id"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Field       string `json:"field"`
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}

// Notifier delivers one message.
type Notifier interface {
	NotifyAdmin(ctx context.Context, msg Message) error
}

// HTTPNotifier posts messages to the notification backend's /api/notify-admin endpoint.
type HTTPNotifier struct {
	endpoint   string
	adminEmail string
	client     *http.Client
}

func NewHTTPNotifier(backendURL, adminEmail string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPNotifier{
		endpoint:   strings.TrimRight(backendURL, "/") + "/api/notify-admin",
		adminEmail: adminEmail,
		client:     &http.Client{Timeout: timeout},
	}
}

type notifyPayload struct {
	AdminEmail string `json:"admin_email"`
	Message
}

func (n *HTTPNotifier) NotifyAdmin(ctx context.Context, msg Message) error {
	body, err := json.Marshal(notifyPayload{AdminEmail: n.adminEmail, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification backend returned %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier only logs. Used when no backend is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyAdmin(_ context.Context, msg Message) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("new edit request awaiting approval",
		"request_id", msg.RequestID,
		"entity_type", msg.EntityType,
		"field", msg.Field,
		"requested_by", msg.RequestedBy)
	return nil
}
