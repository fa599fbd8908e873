package loki

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type MockLogger struct{}

func (m *MockLogger) Error(msg string, args ...any) {
}

func Test_ConfigValidation(t *testing.T) {
	cfg := Config{}
	_, err := New(context.Background(), cfg, &MockLogger{})
	assert.Error(t, err)

	cfg.Url = "not a url"
	_, err = New(context.Background(), cfg, &MockLogger{})
	assert.Error(t, err)

	cfg.Url = "http://localhost:3100/loki/api/v1/push"
	pusher, err := New(context.Background(), cfg, &MockLogger{})
	require.NoError(t, err)
	defer pusher.Stop()
	assert.Equal(t, cfg.Url, pusher.config.Url)
	assert.Equal(t, 1000, pusher.config.BatchMaxSize)
	assert.Equal(t, 5*time.Second, pusher.config.BatchMaxWait)
	assert.Equal(t, 4096, pusher.config.BufferSize)
	assert.Equal(t, map[string]string{}, pusher.config.Labels)
}

func Test_Pusher_Stop_ShouldFlushQueuedLines(t *testing.T) {
	var mu sync.Mutex
	var received []lokiPushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gz, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		var req lokiPushRequest
		require.NoError(t, json.NewDecoder(gz).Decode(&req))
		mu.Lock()
		received = append(received, req)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pusher, err := New(context.Background(), Config{
		Url:          server.URL,
		BatchMaxWait: time.Hour,
		Labels:       map[string]string{"app": "jobscout"},
	}, &MockLogger{})
	require.NoError(t, err)

	pusher.Push(LogEntry{Level: "error", Message: "source failed", ErrorType: "scraper"})
	pusher.Push(LogEntry{Level: "info", Message: "run finished"})
	pusher.Stop()
	pusher.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	require.Len(t, received[0].Streams, 1)
	assert.Equal(t, "jobscout", received[0].Streams[0].Stream["app"])
	require.Len(t, received[0].Streams[0].Values, 2)

	var first LogEntry
	require.NoError(t, json.Unmarshal([]byte(received[0].Streams[0].Values[0][1]), &first))
	assert.Equal(t, "source failed", first.Message)
	assert.Equal(t, "scraper", first.ErrorType)
	assert.Equal(t, int64(0), pusher.Dropped())
}
