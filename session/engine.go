// Package session issues, validates, extends and revokes sign-in sessions.
//
// A session is addressed by an opaque id and authenticated by a separate
// 128-bit key. Validation requires both, and checks the record's kind and
// expiry. Comparing the record's user token with the live account is left
// to the caller, because not every route needs it.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmcleod/omiassist/internal/metrics"
	"github.com/jmcleod/omiassist/internal/util"
	"github.com/jmcleod/omiassist/internal/uuid"
)

const (
	// SigninTTL is the lifetime of a sign-in session and the sliding
	// window applied on each authenticated request.
	SigninTTL = 14 * 24 * time.Hour

	// KeyLength is the number of random bytes in a session key.
	KeyLength = 16

	tracerName = "github.com/jmcleod/omiassist/session"
)

// Engine manages session records in a Store.
type Engine struct {
	store   *Store
	now     func() time.Time
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records validation results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an Engine persisting to store.
func NewEngine(store *Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "session")
	return e
}

// Create mints a new session for userID, snapshotting userToken, that
// expires ttl from now.
func (e *Engine) Create(ctx context.Context, kind Kind, userID, userToken string, ttl time.Duration) (*Token, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	key, err := util.RandomToken(KeyLength)
	if err != nil {
		return nil, err
	}
	now := e.now()
	rec := &Record{
		ID:        uuid.NewSimple(),
		Kind:      kind,
		UserID:    userID,
		UserToken: userToken,
		Key:       key,
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}
	if err := e.store.Put(ctx, rec, now); err != nil {
		return nil, err
	}
	return &Token{ID: rec.ID, Key: rec.Key}, nil
}

// Validate checks id and key against the stored record and applies after
// on success. An expired record is deleted before ErrExpired is returned;
// a failure of that cleanup is logged and does not replace ErrExpired.
func (e *Engine) Validate(ctx context.Context, kind Kind, id, key string, after AfterValidation) (claims *Claims, err error) {
	ctx, span := e.tracer.Start(ctx, "session.Validate",
		trace.WithAttributes(
			attribute.String("session.kind", string(kind)),
			attribute.String("session.after", after.String()),
		))
	defer func() {
		e.metrics.SessionValidation(validationResult(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Kind != kind {
		return nil, ErrKindMismatch
	}
	if subtle.ConstantTimeCompare([]byte(rec.Key), []byte(key)) != 1 {
		return nil, ErrKeyMismatch
	}

	now := e.now()
	if rec.expired(now) {
		if delErr := e.store.Delete(ctx, id); delErr != nil {
			e.logger.WarnContext(ctx, "failed to delete expired session", "error", delErr)
		}
		return nil, ErrExpired
	}

	if after.remove {
		if err := e.store.Delete(ctx, id); err != nil {
			return nil, err
		}
	} else {
		rec.ExpiresAt = now.Add(after.extend).UnixMilli()
		if err := e.store.Put(ctx, rec, now); err != nil {
			return nil, err
		}
	}

	return &Claims{UserID: rec.UserID, UserToken: rec.UserToken}, nil
}

// Delete revokes the session id. Deleting an unknown id is not an error.
func (e *Engine) Delete(ctx context.Context, kind Kind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	return e.store.Delete(ctx, id)
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrKindMismatch):
		return "kind_mismatch"
	case errors.Is(err, ErrKeyMismatch):
		return "key_mismatch"
	case errors.Is(err, ErrExpired):
		return "expired"
	default:
		return "error"
	}
}
