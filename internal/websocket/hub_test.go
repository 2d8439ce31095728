package websocket

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHub_BroadcastWithNoSubscribers(t *testing.T) {
	hub := NewHub(slog.Default())
	go hub.Run()

	done := make(chan error, 1)
	go func() { done <- hub.BroadcastAlert(map[string]string{"kind": "critical-temperature"}) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("BroadcastAlert blocked with no subscribers")
	}

	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_BroadcastMarshalFailure(t *testing.T) {
	hub := NewHub(slog.Default())
	go hub.Run()

	// A channel value cannot be marshaled to JSON.
	err := hub.BroadcastAlert(make(chan int))

	assert.Error(t, err)
}
