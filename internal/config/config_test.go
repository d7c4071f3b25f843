package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "OMIASSIST_ALLOWED_ORIGINS", EnvName(FlagAllowedOrigins))
	assert.Equal(t, "OMIASSIST_PORT", EnvName(FlagPort))
}

func TestFromEnv(t *testing.T) {
	cfg, err := FromEnv(envLookup(map[string]string{
		"OMIASSIST_PORT":            "9090",
		"OMIASSIST_KV_BACKEND":      "Redis",
		"OMIASSIST_REDIS_DB":        "2",
		"OMIASSIST_REDIS_PASSWORD":  "pw",
		"OMIASSIST_ALLOWED_ORIGINS": " https://a.example , ,https://b.example",
		"OMIASSIST_METRICS":         "false",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, BackendRedis, cfg.KVBackend)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "pw", cfg.RedisPassword)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, BackendBbolt, cfg.RepoBackend, "unset values keep defaults")
}

func TestFromEnvReportsEveryBadValue(t *testing.T) {
	_, err := FromEnv(envLookup(map[string]string{
		"OMIASSIST_PORT":    "eighty",
		"OMIASSIST_METRICS": "sometimes",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OMIASSIST_PORT")
	assert.Contains(t, err.Error(), "OMIASSIST_METRICS")
}

func TestMergeOnlyChangedFlags(t *testing.T) {
	base := Default()
	base.Port = 9090
	base.FrontendURL = "https://env.example"

	flags := Default()
	flags.Port = 7070
	flags.FrontendURL = "https://ignored.example"

	out := Merge(base, flags, func(name string) bool { return name == FlagPort })
	assert.Equal(t, 7070, out.Port)
	assert.Equal(t, "https://env.example", out.FrontendURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Port = 0 }, "port 0"},
		{"kv backend", func(c *Config) { c.KVBackend = "etcd" }, "unknown kv backend"},
		{"repo backend", func(c *Config) { c.RepoBackend = "mysql" }, "unknown repo backend"},
		{"postgres dsn", func(c *Config) { c.RepoBackend = BackendPostgres }, "requires a dsn"},
		{"redis addr", func(c *Config) { c.KVBackend = BackendRedis; c.RedisAddr = "" }, "redis address"},
		{"data dir", func(c *Config) { c.DataDir = "" }, "data directory"},
		{"api domain", func(c *Config) { c.APIDomain = "example.com" }, "api domain"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	l, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}
