// Package auth resolves the identity behind an inbound request according to
// the authorization kind of the route it targets.
//
// Browser clients carry the session id in an HttpOnly cookie and the session
// key in a header set from script. A script that can read storage never sees
// the cookie, and a cross-site request never carries the header, so neither
// exfiltration nor forgery alone is enough to act as the user.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmcleod/omiassist/internal/metrics"
	"github.com/jmcleod/omiassist/internal/secrets"
	"github.com/jmcleod/omiassist/internal/uuid"
	"github.com/jmcleod/omiassist/session"
	"github.com/jmcleod/omiassist/storage"
)

const tracerName = "github.com/jmcleod/omiassist/auth"

// AccountLoader loads live accounts by id.
type AccountLoader interface {
	LoadUser(ctx context.Context, id string) (*storage.UserAccount, error)
}

// Secrets looks up server-held secrets by name.
type Secrets interface {
	Get(name string) (string, bool)
}

// Identity is the authenticated caller of one request. TokenID is empty
// when an admin is impersonating the account.
type Identity struct {
	Account storage.UserAccount
	TokenID string
}

// Impersonated reports whether the identity came from the admin override.
func (id *Identity) Impersonated() bool {
	return id.TokenID == ""
}

// Resolver authenticates requests.
type Resolver struct {
	sessions *session.Engine
	accounts AccountLoader
	secrets  Secrets
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics records resolution outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a Resolver.
func NewResolver(sessions *session.Engine, accounts AccountLoader, secrets Secrets, opts ...Option) *Resolver {
	r := &Resolver{
		sessions: sessions,
		accounts: accounts,
		secrets:  secrets,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "auth")
	return r
}

// Resolve authenticates a request with headers h for a route of the given
// kind. It returns a nil identity for KindNone and KindNoAuthCookieSetter.
// Every authentication failure is reported as ErrNotAuthorized; store
// failures are reported as ErrInternal.
func (r *Resolver) Resolve(ctx context.Context, h http.Header, kind Kind) (*Identity, error) {
	if kind == KindNone || kind == KindNoAuthCookieSetter {
		return nil, nil
	}

	ctx, span := r.tracer.Start(ctx, "auth.Resolve",
		trace.WithAttributes(attribute.String("auth.kind", kind.String())))
	defer span.End()

	id, err := r.resolve(ctx, h, kind)
	if err == nil {
		r.metrics.AuthResolution(kind.String(), "ok")
		span.SetAttributes(attribute.Bool("auth.impersonated", id.Impersonated()))
		span.SetStatus(codes.Ok, "")
		return id, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if isInternal(err) {
		r.metrics.AuthResolution(kind.String(), "error")
		r.logger.ErrorContext(ctx, "auth store failure", "kind", kind.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	r.metrics.AuthResolution(kind.String(), "denied")
	r.logger.InfoContext(ctx, "auth error", "kind", kind.String(), "error", err)
	return nil, ErrNotAuthorized
}

func isInternal(err error) bool {
	return errors.Is(err, session.ErrStoreUnavailable) || errors.Is(err, ErrInternal)
}

func (r *Resolver) resolve(ctx context.Context, h http.Header, kind Kind) (*Identity, error) {
	if r.isAdmin(h) {
		if uid := h.Get(HeaderAdminUID); uid != "" {
			return r.impersonate(ctx, uid)
		}
	} else if kind == KindAdmin {
		return nil, ErrAdminCheckFailed
	}

	tokenID := h.Get(HeaderTokenID)
	if tokenID == "" {
		tokenID = CookieValue(strings.Join(h.Values("Cookie"), "; "), HeaderTokenID)
	}
	if tokenID == "" {
		return nil, fmt.Errorf("%w: token id", ErrMissingCredential)
	}

	tokenKey := h.Get(HeaderTokenKey)
	if tokenKey == "" {
		return nil, fmt.Errorf("%w: token key", ErrMissingCredential)
	}

	claims, err := r.sessions.Validate(ctx, session.KindSignin, tokenID, tokenKey, session.ExtendBy(session.SigninTTL))
	if err != nil {
		return nil, err
	}

	account, err := r.loadAccount(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	if kind != KindPartialAuthTokenOnly && account.UserToken != claims.UserToken {
		return nil, ErrUserTokenMismatch
	}

	return &Identity{Account: *account, TokenID: tokenID}, nil
}

// isAdmin reports whether the admin code header matches the configured,
// non-empty admin code.
func (r *Resolver) isAdmin(h http.Header) bool {
	expected, ok := r.secrets.Get(secrets.AdminCode)
	if !ok || expected == "" {
		return false
	}
	got := h.Get(HeaderAdminCode)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// impersonate returns the identity of uid for an admin caller. An unknown
// uid yields a placeholder account with an empty user token rather than a
// failure, so admin tooling can act on accounts that are not yet stored.
func (r *Resolver) impersonate(ctx context.Context, uid string) (*Identity, error) {
	if !uuid.Valid(uid) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAdminUID, uid)
	}
	account, err := r.loadAccount(ctx, uid)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		r.logger.WarnContext(ctx, "admin uid not found, using placeholder account", "uid", uid)
		account = &storage.UserAccount{ID: uid}
	case err != nil:
		return nil, err
	}
	return &Identity{Account: *account}, nil
}

func (r *Resolver) loadAccount(ctx context.Context, uid string) (*storage.UserAccount, error) {
	account, err := r.accounts.LoadUser(ctx, uid)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading account: %w", ErrInternal, err)
	}
	return account, nil
}
