package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertAuthFailureSpike      AlertType = "auth_failure_spike"
	AlertWebhookRejectionSpike AlertType = "webhook_rejection_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	authFailures  []time.Time
	authWindow    time.Duration
	authThreshold int

	rejections         []time.Time
	rejectionWindow    time.Duration
	rejectionThreshold int

	now     func() time.Time
	alertFn AlertFunc
}

const (
	defaultAuthFailureWindow      = 1 * time.Minute
	defaultAuthFailureThreshold   = 50
	defaultWebhookRejectWindow    = 5 * time.Minute
	defaultWebhookRejectThreshold = 20
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		authWindow:         defaultAuthFailureWindow,
		authThreshold:      defaultAuthFailureThreshold,
		rejectionWindow:    defaultWebhookRejectWindow,
		rejectionThreshold: defaultWebhookRejectThreshold,
		now:                time.Now,
		alertFn:            alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditAuthFailure:
		m.record(&m.authFailures, m.authWindow, m.authThreshold,
			AlertAuthFailureSpike, "authorization failure rate exceeds threshold")
	case AuditWebhookRejected:
		m.record(&m.rejections, m.rejectionWindow, m.rejectionThreshold,
			AlertWebhookRejectionSpike, "webhook rejection rate exceeds threshold")
	}
}

func (m *metricsCollector) record(times *[]time.Time, window time.Duration, threshold int, typ AlertType, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	*times = append(*times, now)
	*times = trimWindow(*times, now, window)

	if len(*times) >= threshold {
		m.alertFn(AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     len(*times),
			Threshold: threshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		*times = (*times)[:0]
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
