// Package telegram is a minimal client for the Telegram Bot API and the
// command grammar the bot understands.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmcleod/omiassist/internal/metrics"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

const tracerName = "github.com/jmcleod/omiassist/telegram"

var (
	// ErrNoToken is returned when the client has no bot token to call with.
	ErrNoToken = errors.New("telegram: bot token is not configured")
	// ErrAPI is wrapped by every *APIError.
	ErrAPI = errors.New("telegram api error")
)

// APIError is a response with ok=false.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.StatusCode, e.Description)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// TokenSource returns the bot token to use for a call.
type TokenSource func() (string, bool)

// Client calls the Bot API.
type Client struct {
	baseURL string
	token   TokenSource
	http    *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client that reads the bot token from token on every call.
func New(token TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "telegram")
	return c
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, params, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "telegram."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("telegram.method", method)))
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.metrics.TelegramCall(method, result)
		span.End()
	}()

	token, ok := c.token()
	if !ok || token == "" {
		return ErrNoToken
	}

	var body io.Reader = http.NoBody
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("telegram %s: encoding params: %w", method, err)
		}
		body = bytes.NewReader(raw)
	}

	// The token is part of the path and must never be logged.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bot"+token+"/"+method, body)
	if err != nil {
		return fmt.Errorf("telegram %s: building request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, redact(err, token))
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return fmt.Errorf("telegram %s: decoding response (status %d): %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: env.Description}
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decoding result: %w", method, err)
		}
	}
	return nil
}

// redact strips the bot token from transport errors, which embed the URL.
func redact(err error, token string) error {
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, token, "<token>"))
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetWebhookInfo returns the current webhook registration.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.call(ctx, "getWebhookInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

type setWebhookParams struct {
	URL                string `json:"url"`
	SecretToken        string `json:"secret_token,omitempty"`
	DropPendingUpdates bool   `json:"drop_pending_updates"`
}

// SetWebhook points the bot's updates at url. Telegram echoes secret in
// the X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secret string, dropPending bool) error {
	return c.call(ctx, "setWebhook", setWebhookParams{
		URL:                url,
		SecretToken:        secret,
		DropPendingUpdates: dropPending,
	}, nil)
}

type sendMessageParams struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// SendMessage posts text to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	var m Message
	if err := c.call(ctx, "sendMessage", sendMessageParams{ChatID: chatID, Text: text}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
