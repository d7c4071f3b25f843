package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jmcleod/omiassist/api"
	"github.com/jmcleod/omiassist/auth"
	"github.com/jmcleod/omiassist/internal/config"
	"github.com/jmcleod/omiassist/internal/metrics"
	"github.com/jmcleod/omiassist/internal/secrets"
	"github.com/jmcleod/omiassist/session"
	"github.com/jmcleod/omiassist/telegram"
)

var (
	flagCfg = config.Default()
	tlsCert string
	tlsKey  string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Omi Assist API server",
	Long: `Starts the HTTP API. Settings come from flags, then OMIASSIST_* environment
variables, then defaults. Secrets are read from ADMIN_CODE,
TELEGRAM_BOT_TOKEN, TELEGRAM_AUTH_TOKEN and TELEGRAM_WEBHOOK_SECRET.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	addConfigFlags(serverCmd)
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}

// addConfigFlags binds every config flag of cmd to flagCfg.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVarP(&flagCfg.Port, config.FlagPort, "p", flagCfg.Port, "Port to listen on")
	f.StringVar(&flagCfg.DataDir, config.FlagDataDir, flagCfg.DataDir, "Directory for persistent data")
	f.StringVar(&flagCfg.KVBackend, config.FlagKVBackend, flagCfg.KVBackend, "Session store: memory, bbolt or redis")
	f.StringVar(&flagCfg.RepoBackend, config.FlagRepoBackend, flagCfg.RepoBackend, "Account store: memory, bbolt or postgres")
	f.StringVar(&flagCfg.RedisAddr, config.FlagRedisAddr, flagCfg.RedisAddr, "Redis address for the redis session store")
	f.IntVar(&flagCfg.RedisDB, config.FlagRedisDB, flagCfg.RedisDB, "Redis database number")
	f.StringVar(&flagCfg.PostgresDSN, config.FlagPostgresDSN, flagCfg.PostgresDSN, "Postgres connection string")
	f.StringSliceVar(&flagCfg.AllowedOrigins, config.FlagAllowedOrigins, flagCfg.AllowedOrigins, "Origins allowed to call the API with credentials")
	f.StringVar(&flagCfg.APIDomain, config.FlagAPIDomain, flagCfg.APIDomain, "Public origin of this server")
	f.StringVar(&flagCfg.FrontendURL, config.FlagFrontendURL, flagCfg.FrontendURL, "URL of the web app")
	f.StringVar(&flagCfg.AuditWebhookURL, config.FlagAuditWebhookURL, flagCfg.AuditWebhookURL, "URL that receives audit events")
	f.BoolVar(&flagCfg.Metrics, config.FlagMetrics, flagCfg.Metrics, "Serve Prometheus metrics on /metrics")
	f.StringVar(&flagCfg.LogLevel, config.FlagLogLevel, flagCfg.LogLevel, "Log level: debug, info, warn or error")
}

// loadConfig merges the environment with the flags set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	env, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid environment: %w", err)
	}
	cfg := config.Merge(env, flagCfg, func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newBot(store *secrets.Store, logger *slog.Logger, m *metrics.Metrics) *telegram.Client {
	return telegram.New(func() (string, bool) { return store.Get(secrets.TelegramBotToken) },
		telegram.WithLogger(logger),
		telegram.WithMetrics(m))
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	defer memguard.Purge()
	store := secrets.FromEnv(os.LookupEnv)
	for _, name := range secrets.Names {
		if _, ok := store.Get(name); !ok {
			logger.Warn("secret not set", "name", name)
		}
	}

	var (
		reg *prometheus.Registry
		m   *metrics.Metrics
	)
	if cfg.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
	}

	b, err := openBackends(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("closing storage", "error", err)
		}
	}()

	sessions := session.NewEngine(session.NewStore(b.kv),
		session.WithLogger(logger),
		session.WithMetrics(m))
	resolver := auth.NewResolver(sessions, b.repo, store,
		auth.WithLogger(logger),
		auth.WithMetrics(m))

	opts := []api.Option{
		api.WithLogger(logger),
		api.WithMetrics(m),
		api.WithAPIDomain(cfg.APIDomain),
		api.WithFrontendURL(cfg.FrontendURL),
		api.WithAllowedOrigins(cfg.AllowedOrigins),
	}
	if cfg.AuditWebhookURL != "" {
		opts = append(opts, api.WithAuditWebhook(cfg.AuditWebhookURL, cfg.AuditWebhookAuth))
	}
	a := api.New(b.repo, sessions, resolver, newBot(store, logger, m), store, opts...)
	defer a.Close()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Mount("/api/v1", a.Router())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Without a certificate the server speaks plain HTTP and expects a
	// TLS-terminating proxy in front of it.
	useTLS := tlsCert != "" && tlsKey != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
		if err != nil {
			return fmt.Errorf("failed to load TLS key pair: %w", err)
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan error, 1)
	go func() {
		var err error
		if useTLS {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("server failed: %w", err)
			return
		}
		done <- nil
	}()

	printBanner()
	logger.Info("server started",
		"port", cfg.Port,
		"tls", useTLS,
		"kv_backend", cfg.KVBackend,
		"repo_backend", cfg.RepoBackend)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-done:
		return err
	}
}
