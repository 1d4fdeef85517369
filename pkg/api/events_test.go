package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEvents(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	server := NewServer(&fakeManager{})
	server.SetEvents(broker)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return broker.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.True(t, broker.Publish(&events.Event{
		Type:     events.EventTaskDeleted,
		Metadata: map[string]string{"name": "a"},
	}))

	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())

	var ev events.Event
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
	assert.Equal(t, events.EventTaskDeleted, ev.Type)
	assert.Equal(t, "a", ev.Metadata["name"])
	assert.NotEmpty(t, ev.ID)
}

func TestStreamEvents_Disabled(t *testing.T) {
	w := httptest.NewRecorder()
	NewServer(&fakeManager{}).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamEvents_UnknownType(t *testing.T) {
	broker := events.NewBroker()
	server := NewServer(&fakeManager{})
	server.SetEvents(broker)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/events?type=task.exploded", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, broker.SubscriberCount())
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestShutdown_EndsOpenStreams(t *testing.T) {
	tests := []struct {
		name       string
		stopBroker bool
	}{
		{"server shutdown alone", false},
		{"broker stopped first", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := events.NewBroker()
			broker.Start()
			defer broker.Stop()

			server := NewServer(&fakeManager{})
			server.SetEvents(broker)

			addr := freeAddr(t)
			errCh := make(chan error, 1)
			go func() { errCh <- server.Start(addr) }()

			var resp *http.Response
			require.Eventually(t, func() bool {
				r, err := http.Get("http://" + addr + "/v1/events")
				if err != nil {
					return false
				}
				resp = r
				return true
			}, 2*time.Second, 10*time.Millisecond)
			defer resp.Body.Close()
			require.Eventually(t, func() bool { return broker.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

			if tt.stopBroker {
				broker.Stop()
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			start := time.Now()
			require.NoError(t, server.Shutdown(ctx))
			assert.Less(t, time.Since(start), time.Second)
			require.NoError(t, <-errCh)
		})
	}
}
