package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
	"github.com/manufacturing-platform/telemetry-gateway/internal/websocket"
)

// Sink is the capability set DESIGN NOTES calls for: publish an alert,
// report a name for per-channel outcome bookkeeping.
type Sink interface {
	Publish(ctx context.Context, alert model.Alert) error
	Name() string
}

// WebsocketSink adapts the teacher's Hub into a notification channel —
// an ops/on-call live feed, not a dashboard.
type WebsocketSink struct {
	hub *websocket.Hub
}

// NewWebsocketSink wraps an already-running Hub.
func NewWebsocketSink(hub *websocket.Hub) *WebsocketSink {
	return &WebsocketSink{hub: hub}
}

func (s *WebsocketSink) Name() string { return "websocket" }

// wsAlertMessage mirrors webhookBody below so every channel carries the
// same structured notification, per spec.md §4.4 step 4.
type wsAlertMessage struct {
	Alert              model.Alert `json:"alert"`
	RecommendedActions []string    `json:"recommended_actions"`
}

func (s *WebsocketSink) Publish(ctx context.Context, alert model.Alert) error {
	return s.hub.BroadcastAlert(wsAlertMessage{
		Alert:              alert,
		RecommendedActions: model.RecommendedActions[alert.Kind],
	})
}

// WebhookSink POSTs the structured notification body to a tenant's
// configured webhook URLs.
type WebhookSink struct {
	urls   []string
	client *http.Client
}

// NewWebhookSink builds a sink bound to the tenant's configured URLs.
func NewWebhookSink(urls []string) *WebhookSink {
	return &WebhookSink{
		urls:   urls,
		client: &http.Client{Timeout: 3 * time.Second},
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

type webhookBody struct {
	Alert               model.Alert `json:"alert"`
	RecommendedActions  []string    `json:"recommended_actions"`
}

// Publish posts to every configured URL and returns the first error
// encountered; the dispatcher records this per-channel and never lets
// it fail the overall dispatch (§4.4 "Failure semantics").
func (s *WebhookSink) Publish(ctx context.Context, alert model.Alert) error {
	if len(s.urls) == 0 {
		return nil
	}
	payload, err := json.Marshal(webhookBody{
		Alert:              alert,
		RecommendedActions: model.RecommendedActions[alert.Kind],
	})
	if err != nil {
		return err
	}

	var firstErr error
	for _, url := range s.urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			if firstErr == nil {
				firstErr = fmt.Errorf("webhook %s returned status %d", url, resp.StatusCode)
			}
		}
	}
	return firstErr
}
