// Package config assembles server settings from defaults, environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendBbolt    = "bbolt"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Flag names. Each has an OMIASSIST_-prefixed, upper-snake-case
// environment variable counterpart.
const (
	FlagPort            = "port"
	FlagDataDir         = "data-dir"
	FlagKVBackend       = "kv-backend"
	FlagRepoBackend     = "repo-backend"
	FlagRedisAddr       = "redis-addr"
	FlagRedisDB         = "redis-db"
	FlagPostgresDSN     = "postgres-dsn"
	FlagAllowedOrigins  = "allowed-origins"
	FlagAPIDomain       = "api-domain"
	FlagFrontendURL     = "frontend-url"
	FlagAuditWebhookURL = "audit-webhook-url"
	FlagMetrics         = "metrics"
	FlagLogLevel        = "log-level"
)

// Credentials are read from the environment only.
const (
	EnvRedisPassword    = "OMIASSIST_REDIS_PASSWORD"
	EnvAuditWebhookAuth = "OMIASSIST_AUDIT_WEBHOOK_AUTH"
)

// Config is the complete server configuration.
type Config struct {
	Port             int
	DataDir          string
	KVBackend        string
	RepoBackend      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	PostgresDSN      string
	AllowedOrigins   []string
	APIDomain        string
	FrontendURL      string
	AuditWebhookURL  string
	AuditWebhookAuth string
	Metrics          bool
	LogLevel         string
}

// Default returns the configuration used for local development.
func Default() Config {
	return Config{
		Port:           8080,
		DataDir:        "./data",
		KVBackend:      BackendBbolt,
		RepoBackend:    BackendBbolt,
		RedisAddr:      "localhost:6379",
		AllowedOrigins: []string{"http://localhost:8080", "http://127.0.0.1:8080"},
		APIDomain:      "http://localhost:8080",
		FrontendURL:    "http://localhost:8080",
		Metrics:        true,
		LogLevel:       "info",
	}
}

// EnvName returns the environment variable for a flag name.
func EnvName(flag string) string {
	return "OMIASSIST_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// FromEnv returns Default overlaid with any environment variables found
// through lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error
	for _, flag := range flagNames {
		v, ok := lookup(EnvName(flag))
		if !ok {
			continue
		}
		if err := cfg.set(flag, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvName(flag), err))
		}
	}
	if v, ok := lookup(EnvRedisPassword); ok {
		cfg.RedisPassword = v
	}
	if v, ok := lookup(EnvAuditWebhookAuth); ok {
		cfg.AuditWebhookAuth = v
	}
	return cfg, errors.Join(errs...)
}

// Merge returns base with every field whose flag was changed taken from
// flags.
func Merge(base, flags Config, changed func(flag string) bool) Config {
	out := base
	for _, flag := range flagNames {
		if !changed(flag) {
			continue
		}
		switch flag {
		case FlagPort:
			out.Port = flags.Port
		case FlagDataDir:
			out.DataDir = flags.DataDir
		case FlagKVBackend:
			out.KVBackend = flags.KVBackend
		case FlagRepoBackend:
			out.RepoBackend = flags.RepoBackend
		case FlagRedisAddr:
			out.RedisAddr = flags.RedisAddr
		case FlagRedisDB:
			out.RedisDB = flags.RedisDB
		case FlagPostgresDSN:
			out.PostgresDSN = flags.PostgresDSN
		case FlagAllowedOrigins:
			out.AllowedOrigins = flags.AllowedOrigins
		case FlagAPIDomain:
			out.APIDomain = flags.APIDomain
		case FlagFrontendURL:
			out.FrontendURL = flags.FrontendURL
		case FlagAuditWebhookURL:
			out.AuditWebhookURL = flags.AuditWebhookURL
		case FlagMetrics:
			out.Metrics = flags.Metrics
		case FlagLogLevel:
			out.LogLevel = flags.LogLevel
		}
	}
	return out
}

var flagNames = []string{
	FlagPort, FlagDataDir, FlagKVBackend, FlagRepoBackend, FlagRedisAddr,
	FlagRedisDB, FlagPostgresDSN, FlagAllowedOrigins, FlagAPIDomain,
	FlagFrontendURL, FlagAuditWebhookURL, FlagMetrics, FlagLogLevel,
}

func (c *Config) set(flag, v string) error {
	switch flag {
	case FlagPort:
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Port = n
	case FlagDataDir:
		c.DataDir = v
	case FlagKVBackend:
		c.KVBackend = strings.ToLower(v)
	case FlagRepoBackend:
		c.RepoBackend = strings.ToLower(v)
	case FlagRedisAddr:
		c.RedisAddr = v
	case FlagRedisDB:
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.RedisDB = n
	case FlagPostgresDSN:
		c.PostgresDSN = v
	case FlagAllowedOrigins:
		c.AllowedOrigins = splitList(v)
	case FlagAPIDomain:
		c.APIDomain = v
	case FlagFrontendURL:
		c.FrontendURL = v
	case FlagAuditWebhookURL:
		c.AuditWebhookURL = v
	case FlagMetrics:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Metrics = b
	case FlagLogLevel:
		c.LogLevel = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports every inconsistency in c.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.KVBackend {
	case BackendMemory, BackendBbolt:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis kv backend requires a redis address"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kv backend %q", c.KVBackend))
	}
	switch c.RepoBackend {
	case BackendMemory, BackendBbolt:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres repo backend requires a dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown repo backend %q", c.RepoBackend))
	}
	if (c.KVBackend == BackendBbolt || c.RepoBackend == BackendBbolt) && c.DataDir == "" {
		errs = append(errs, errors.New("bbolt backend requires a data directory"))
	}
	for name, raw := range map[string]string{"api domain": c.APIDomain, "frontend url": c.FrontendURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s %q is not an absolute url", name, raw))
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
