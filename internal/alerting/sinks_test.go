package alerting

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
	"github.com/manufacturing-platform/telemetry-gateway/internal/websocket"
)

func TestWebsocketSink_Name(t *testing.T) {
	sink := NewWebsocketSink(websocket.NewHub(slog.Default()))
	assert.Equal(t, "websocket", sink.Name())
}

func TestWebsocketSink_PublishWithNoSubscribers(t *testing.T) {
	hub := websocket.NewHub(slog.Default())
	go hub.Run()
	sink := NewWebsocketSink(hub)

	err := sink.Publish(context.Background(), model.Alert{AlertID: "a1"})

	assert.NoError(t, err)
}

func TestWebhookSink_PublishPostsToAllURLs(t *testing.T) {
	var hits int32
	var gotBody webhookBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink([]string{srv.URL, srv.URL})

	alert := model.Alert{
		AlertID:     "a1",
		EquipmentID: "eq-1",
		Kind:        model.KindCriticalTemperature,
		Severity:    model.SeverityCritical,
		Timestamp:   time.Now(),
	}

	err := sink.Publish(context.Background(), alert)

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, "a1", gotBody.Alert.AlertID)
	assert.Equal(t, model.RecommendedActions[model.KindCriticalTemperature], gotBody.RecommendedActions)
}

func TestWebhookSink_PublishNoURLsIsNoop(t *testing.T) {
	sink := NewWebhookSink(nil)

	err := sink.Publish(context.Background(), model.Alert{AlertID: "a1"})

	assert.NoError(t, err)
}

func TestWebhookSink_PublishReportsFirstErrorButTriesAllURLs(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewWebhookSink([]string{srv.URL, srv.URL})

	err := sink.Publish(context.Background(), model.Alert{AlertID: "a1"})

	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestSeverityScore_Ordering(t *testing.T) {
	assert.Greater(t, severityScore(model.SeverityCritical), severityScore(model.SeverityHigh))
	assert.Greater(t, severityScore(model.SeverityHigh), severityScore(model.SeverityMedium))
	assert.Greater(t, severityScore(model.SeverityMedium), severityScore(model.SeverityLow))
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "success", outcomeLabel(nil))
	assert.Equal(t, "failure", outcomeLabel(context.DeadlineExceeded))
}
