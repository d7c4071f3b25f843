package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	s := New()
	_, ok := s.Get(AdminCode)
	assert.False(t, ok)

	s.Set(AdminCode, "letmein")
	v, ok := s.Get(AdminCode)
	require.True(t, ok)
	assert.Equal(t, "letmein", v)

	s.Set(AdminCode, "")
	_, ok = s.Get(AdminCode)
	assert.False(t, ok, "empty secret is treated as absent")
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		AdminCode:             "admin",
		TelegramBotToken:      "123:abc",
		TelegramWebhookSecret: "",
		"UNRELATED":           "x",
	}
	s := FromEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	v, ok := s.Get(AdminCode)
	require.True(t, ok)
	assert.Equal(t, "admin", v)

	v, ok = s.Get(TelegramAuthToken)
	require.True(t, ok)
	assert.Equal(t, "123:abc", v, "auth token defaults to the bot token")

	_, ok = s.Get(TelegramWebhookSecret)
	assert.False(t, ok)
	_, ok = s.Get("UNRELATED")
	assert.False(t, ok)
}

func TestFromEnvExplicitAuthToken(t *testing.T) {
	env := map[string]string{
		TelegramBotToken:  "dev-bot",
		TelegramAuthToken: "prod-bot",
	}
	s := FromEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	v, ok := s.Get(TelegramAuthToken)
	require.True(t, ok)
	assert.Equal(t, "prod-bot", v)
}
