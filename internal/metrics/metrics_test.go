package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AuthResolution("full", "ok")
	m.AuthResolution("full", "ok")
	m.AuthResolution("admin", "denied")
	m.SessionValidation("expired")
	m.OmiDispatch("sent")
	m.TelegramCall("sendMessage", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authResolutions.WithLabelValues("full", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authResolutions.WithLabelValues("admin", "denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionValidations.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.omiDispatch.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.telegramCalls.WithLabelValues("sendMessage", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthResolution("full", "ok")
		m.SessionValidation("ok")
		m.OmiDispatch("sent")
		m.TelegramCall("getMe", "ok")
	})
}

func TestRegistersWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SessionValidation("ok")

	families, err := reg.Gather()
	assert.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "omiassist_session_validations_total")
}
