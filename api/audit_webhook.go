package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	webhookQueueSize  = 1024
	webhookTimeout    = 10 * time.Second
	webhookRetryDelay = time.Second
	webhookUserAgent  = "OmiAssist-Audit-Webhook/1.0"
)

// webhookEvent is the JSON payload POSTed to the audit endpoint.
type webhookEvent struct {
	Event      string            `json:"event"`
	AccountID  string            `json:"account_id,omitempty"`
	RemoteAddr string            `json:"remote_addr,omitempty"`
	Timestamp  string            `json:"timestamp"`
	Attrs      map[string]string `json:"attrs,omitempty"`
}

// newWebhookEvent flattens audit attributes into a webhookEvent. The
// account_id attribute is lifted to its own field.
func newWebhookEvent(event AuditEvent, remoteAddr string, at time.Time, attrs []slog.Attr) webhookEvent {
	evt := webhookEvent{
		Event:      string(event),
		RemoteAddr: remoteAddr,
		Timestamp:  at.Format(time.RFC3339),
	}
	for _, a := range attrs {
		if a.Key == "account_id" {
			evt.AccountID = a.Value.String()
			continue
		}
		if evt.Attrs == nil {
			evt.Attrs = make(map[string]string, len(attrs))
		}
		evt.Attrs[a.Key] = a.Value.String()
	}
	return evt
}

// auditWebhook forwards audit events to an HTTP endpoint from a single
// background goroutine. enqueue never blocks; events that do not fit in
// the queue are counted and dropped.
type auditWebhook struct {
	url         string
	headerName  string
	headerValue string
	client      *http.Client
	logger      *slog.Logger
	retryDelay  time.Duration

	events    chan webhookEvent
	dropped   atomic.Int64
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// newAuditWebhook starts a dispatcher for url. authHeader is an optional
// "Name: Value" pair sent with every request.
func newAuditWebhook(url, authHeader string, logger *slog.Logger) *auditWebhook {
	w := &auditWebhook{
		url:        url,
		client:     &http.Client{Timeout: webhookTimeout},
		logger:     logger.With("component", "audit_webhook"),
		retryDelay: webhookRetryDelay,
		events:     make(chan webhookEvent, webhookQueueSize),
	}
	if name, value, ok := strings.Cut(authHeader, ":"); ok {
		w.headerName = strings.TrimSpace(name)
		w.headerValue = strings.TrimSpace(value)
	}
	w.start()
	return w
}

func (w *auditWebhook) start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for evt := range w.events {
			w.deliver(evt)
		}
	}()
}

func (w *auditWebhook) enqueue(evt webhookEvent) {
	select {
	case w.events <- evt:
	default:
		n := w.dropped.Add(1)
		w.logger.Warn("queue full, dropping audit event", "event", evt.Event, "dropped_total", n)
	}
}

// close stops accepting events and waits until the queue is drained.
func (w *auditWebhook) close() {
	w.closeOnce.Do(func() { close(w.events) })
	w.wg.Wait()
}

// deliver POSTs evt, retrying once after a transport error or a 5xx.
func (w *auditWebhook) deliver(evt webhookEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		w.logger.Warn("encoding audit event", "event", evt.Event, "error", err)
		return
	}

	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			time.Sleep(w.retryDelay)
		}
		status, err := w.post(body)
		switch {
		case err != nil:
			w.logger.Warn("audit webhook request failed", "error", err, "attempt", attempt)
		case status >= 500:
			w.logger.Warn("audit webhook server error", "status", status, "attempt", attempt)
		case status >= 300:
			w.logger.Warn("audit webhook rejected event", "status", status, "event", evt.Event)
			return
		default:
			return
		}
	}
}

func (w *auditWebhook) post(body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	if w.headerName != "" {
		req.Header.Set(w.headerName, w.headerValue)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
