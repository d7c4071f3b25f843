// Package metrics defines the Prometheus collectors exported by the server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "omiassist"

type Metrics struct {
	authResolutions    *prometheus.CounterVec
	sessionValidations *prometheus.CounterVec
	omiDispatch        *prometheus.CounterVec
	telegramCalls      *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		authResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_resolutions_total",
			Help:      "Request authentication outcomes by route authorization kind.",
		}, []string{"kind", "outcome"}),
		sessionValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_validations_total",
			Help:      "Session validation results.",
		}, []string{"result"}),
		omiDispatch: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "omi_dispatch_total",
			Help:      "Actions dispatched to Telegram from Omi transcripts.",
		}, []string{"result"}),
		telegramCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_api_calls_total",
			Help:      "Telegram Bot API calls by method and result.",
		}, []string{"method", "result"}),
	}
}

func (m *Metrics) AuthResolution(kind, outcome string) {
	if m == nil {
		return
	}
	m.authResolutions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SessionValidation(result string) {
	if m == nil {
		return
	}
	m.sessionValidations.WithLabelValues(result).Inc()
}

func (m *Metrics) OmiDispatch(result string) {
	if m == nil {
		return
	}
	m.omiDispatch.WithLabelValues(result).Inc()
}

func (m *Metrics) TelegramCall(method, result string) {
	if m == nil {
		return
	}
	m.telegramCalls.WithLabelValues(method, result).Inc()
}
