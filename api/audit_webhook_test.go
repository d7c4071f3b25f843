package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sink records the requests an audit endpoint receives.
type sink struct {
	mu      sync.Mutex
	events  []webhookEvent
	headers []http.Header
}

func (s *sink) handler(status func(n int) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var evt webhookEvent
		_ = json.NewDecoder(r.Body).Decode(&evt)
		s.mu.Lock()
		s.events = append(s.events, evt)
		s.headers = append(s.headers, r.Header.Clone())
		n := len(s.events)
		s.mu.Unlock()
		w.WriteHeader(status(n))
	}
}

func (s *sink) recorded() ([]webhookEvent, []http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]webhookEvent(nil), s.events...), append([]http.Header(nil), s.headers...)
}

func always(code int) func(int) int { return func(int) int { return code } }

func newTestWebhook(t *testing.T, h http.Handler, authHeader string) *auditWebhook {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	wh := newAuditWebhook(srv.URL, authHeader, discardLogger())
	wh.retryDelay = time.Millisecond
	return wh
}

func TestWebhookDelivery(t *testing.T) {
	s := &sink{}
	wh := newTestWebhook(t, s.handler(always(http.StatusNoContent)), "Authorization: Bearer tok-1")
	wh.enqueue(webhookEvent{
		Event:      "signin",
		AccountID:  "acct-1",
		RemoteAddr: "127.0.0.1:1234",
		Timestamp:  "2025-01-01T00:00:00Z",
		Attrs:      map[string]string{"route": "auth/signin"},
	})
	wh.close()

	events, headers := s.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "signin", events[0].Event)
	assert.Equal(t, "acct-1", events[0].AccountID)
	assert.Equal(t, "auth/signin", events[0].Attrs["route"])
	assert.Equal(t, "Bearer tok-1", headers[0].Get("Authorization"))
	assert.Equal(t, webhookUserAgent, headers[0].Get("User-Agent"))
	assert.Equal(t, "application/json", headers[0].Get("Content-Type"))
}

func TestWebhookRetries(t *testing.T) {
	tests := []struct {
		name     string
		status   func(int) int
		attempts int
	}{
		{"success", always(http.StatusOK), 1},
		{"retry once after 5xx", func(n int) int {
			if n == 1 {
				return http.StatusBadGateway
			}
			return http.StatusOK
		}, 2},
		{"give up after two 5xx", always(http.StatusServiceUnavailable), 2},
		{"no retry on 4xx", always(http.StatusUnauthorized), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &sink{}
			wh := newTestWebhook(t, s.handler(tt.status), "")
			wh.enqueue(webhookEvent{Event: "signout", Timestamp: "2025-01-01T00:00:00Z"})
			wh.close()
			events, _ := s.recorded()
			assert.Len(t, events, tt.attempts)
		})
	}
}

func TestWebhookMalformedAuthHeaderIgnored(t *testing.T) {
	s := &sink{}
	wh := newTestWebhook(t, s.handler(always(http.StatusOK)), "no-colon-here")
	wh.enqueue(webhookEvent{Event: "signin"})
	wh.close()

	_, headers := s.recorded()
	require.Len(t, headers, 1)
	assert.Empty(t, headers[0].Get("no-colon-here"))
}

func TestWebhookQueueFullDrops(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	wh := &auditWebhook{
		url:    srv.URL,
		client: &http.Client{Timeout: 100 * time.Millisecond},
		logger: discardLogger(),
		events: make(chan webhookEvent, 2),
	}
	wh.start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			wh.enqueue(webhookEvent{Event: "flood"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
	assert.Positive(t, wh.dropped.Load())
}

func TestWebhookCloseDrains(t *testing.T) {
	var count atomic.Int32
	wh := newTestWebhook(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
	}), "")
	for i := 0; i < 5; i++ {
		wh.enqueue(webhookEvent{Event: "omi_dispatch"})
	}
	wh.close()
	wh.close()

	assert.Equal(t, int32(5), count.Load())
}

func TestNewWebhookEvent(t *testing.T) {
	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	evt := newWebhookEvent(AuditActionAdded, "10.0.0.1:5555", at, []slog.Attr{
		slog.String("account_id", "acct-42"),
		slog.String("action_id", "a-1"),
		slog.Int("count", 3),
	})

	assert.Equal(t, "action_added", evt.Event)
	assert.Equal(t, "acct-42", evt.AccountID)
	assert.Equal(t, "10.0.0.1:5555", evt.RemoteAddr)
	assert.Equal(t, "2025-06-15T12:00:00Z", evt.Timestamp)
	assert.Equal(t, map[string]string{"action_id": "a-1", "count": "3"}, evt.Attrs)
}

func TestAuditLoggerForwardsToWebhook(t *testing.T) {
	s := &sink{}
	var logs bytes.Buffer
	al := newAuditLogger(slog.New(slog.NewJSONHandler(&logs, nil)))
	al.webhook = newTestWebhook(t, s.handler(always(http.StatusOK)), "")

	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", nil)
	al.logEvent(AuditSignin, r, "user-1")
	al.logFailure(AuditAuthFailure, r, "not authorized")
	al.close()

	events, _ := s.recorded()
	require.Len(t, events, 2)
	assert.Equal(t, "signin", events[0].Event)
	assert.Equal(t, "user-1", events[0].AccountID)
	assert.Equal(t, "not authorized", events[1].Attrs["reason"])
	assert.Contains(t, logs.String(), `"component":"audit"`)
	assert.Contains(t, logs.String(), `"event":"auth_failure"`)
}
