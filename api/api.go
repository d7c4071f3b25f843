package api

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/omiassist/auth"
	"github.com/jmcleod/omiassist/internal/metrics"
	"github.com/jmcleod/omiassist/session"
	"github.com/jmcleod/omiassist/storage"
	"github.com/jmcleod/omiassist/telegram"
)

// Version is reported by GET /info.
const Version = "0.1.0"

// Bot is the subset of the Telegram Bot API the handlers use.
type Bot interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetWebhookInfo(ctx context.Context) (*telegram.WebhookInfo, error)
	SetWebhook(ctx context.Context, url, secret string, dropPending bool) error
	SendMessage(ctx context.Context, chatID int64, text string) (*telegram.Message, error)
}

// API holds the dependencies needed by the REST handlers.
type API struct {
	repo     storage.Repository
	sessions *session.Engine
	resolver *auth.Resolver
	bot      Bot
	secrets  auth.Secrets
	audit    *auditLogger
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	apiDomain      string
	frontendURL    string
	allowedOrigins []string

	webhookURL        string
	webhookAuthHeader string
	alertFn           AlertFunc
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for handler and audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithMetrics records Omi dispatch outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *API) {
		a.metrics = m
	}
}

// WithAuditWebhook forwards every audit event to url. authHeader is an
// optional "Header: Value" pair sent with each request.
func WithAuditWebhook(url, authHeader string) Option {
	return func(a *API) {
		a.webhookURL = url
		a.webhookAuthHeader = authHeader
	}
}

// WithAlertFunc replaces the default alert sink, which logs a warning.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithAPIDomain sets the public origin of this server, used to build the
// Telegram webhook URL.
func WithAPIDomain(domain string) Option {
	return func(a *API) {
		a.apiDomain = domain
	}
}

// WithFrontendURL sets the web app URL the bot points users to.
func WithFrontendURL(u string) Option {
	return func(a *API) {
		a.frontendURL = u
	}
}

// WithAllowedOrigins sets the CORS origins allowed to call the API with
// credentials.
func WithAllowedOrigins(origins []string) Option {
	return func(a *API) {
		a.allowedOrigins = origins
	}
}

// WithClock overrides the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *API) {
		a.now = now
	}
}

// New creates a new API instance.
func New(repo storage.Repository, sessions *session.Engine, resolver *auth.Resolver, bot Bot, secrets auth.Secrets, opts ...Option) *API {
	a := &API{
		repo:     repo,
		sessions: sessions,
		resolver: resolver,
		bot:      bot,
		secrets:  secrets,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.audit = newAuditLogger(a.logger)
	alertFn := a.alertFn
	if alertFn == nil {
		alertFn = a.audit.alert
	}
	a.audit.metrics = newMetricsCollector(alertFn)
	if a.webhookURL != "" {
		a.audit.webhook = newAuditWebhook(a.webhookURL, a.webhookAuthHeader, a.logger)
	}
	a.logger = a.logger.With("component", "api")
	return a
}

// Close drains the audit webhook queue.
func (a *API) Close() {
	if a.audit != nil {
		a.audit.close()
	}
}

// Router returns a chi.Router with all API routes mounted. Every route in
// auth.Routes is registered behind the authentication its kind requires.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)
	r.Use(a.corsMiddleware())

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	for _, route := range auth.Routes {
		r.With(a.authenticate(route)).Method(route.Method(), "/"+route.Path(), a.handler(route))
	}

	return r
}

func (a *API) handler(route auth.Route) http.HandlerFunc {
	switch route {
	case auth.RouteInfo:
		return a.Info
	case auth.RouteAuthRegister:
		return a.Register
	case auth.RouteAuthSignin:
		return a.Signin
	case auth.RouteAuthCheck:
		return a.Check
	case auth.RouteAuthSignout:
		return a.Signout
	case auth.RouteAdminTelegramSetWebHook:
		return a.TelegramSetWebHook
	case auth.RouteAdminPopulateFakeUser:
		return a.PopulateFakeUser
	case auth.RouteActionListDestinations:
		return a.ListDestinations
	case auth.RouteActionAdd:
		return a.AddAction
	case auth.RouteActionDelete:
		return a.DeleteAction
	case auth.RouteActionList:
		return a.ListActions
	case auth.RouteTelegramWebHook:
		return a.TelegramWebHook
	case auth.RouteOmiWebHook:
		return a.OmiWebHook
	}
	panic(fmt.Sprintf("api: no handler for route %s", route))
}
