package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditRegister           AuditEvent = "register"
	AuditSignin             AuditEvent = "signin"
	AuditSignout            AuditEvent = "signout"
	AuditSignoutEverywhere  AuditEvent = "signout_everywhere"
	AuditAuthFailure        AuditEvent = "auth_failure"
	AuditAdminImpersonation AuditEvent = "admin_impersonation"
	AuditFakeUserPopulated  AuditEvent = "fake_user_populated"
	AuditWebhookRegistered  AuditEvent = "webhook_registered"
	AuditDestinationLinked  AuditEvent = "destination_linked"
	AuditActionAdded        AuditEvent = "action_added"
	AuditActionDeleted      AuditEvent = "action_deleted"
	AuditOmiDispatch        AuditEvent = "omi_dispatch"
	AuditWebhookRejected    AuditEvent = "webhook_rejected"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
	webhook *auditWebhook
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry and forwards it to the webhook
// when one is configured.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	now := time.Now().UTC()
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", now.Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
	if al.webhook != nil {
		al.webhook.enqueue(newWebhookEvent(event, r.RemoteAddr, now, attrs))
	}
}

// logEvent is a convenience for events with an account ID.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, accountID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("account_id", accountID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a rejected request.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// alert is the default AlertFunc.
func (al *auditLogger) alert(evt AlertEvent) {
	al.logger.Warn("security alert",
		"type", string(evt.Type),
		"message", evt.Message,
		"count", evt.Count,
		"threshold", evt.Threshold,
	)
}

func (al *auditLogger) close() {
	if al.webhook != nil {
		al.webhook.close()
	}
}
