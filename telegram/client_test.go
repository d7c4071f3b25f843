package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	t     *testing.T
	calls []fakeCall
	reply map[string]string
}

type fakeCall struct {
	Path   string
	Params map[string]any
}

func (f *fakeBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, http.MethodPost, r.Method)
	params := map[string]any{}
	if r.ContentLength > 0 {
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&params))
	}
	f.calls = append(f.calls, fakeCall{Path: r.URL.Path, Params: params})
	body, ok := f.reply[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T, replies map[string]string) (*Client, *fakeBot) {
	t.Helper()
	fake := &fakeBot{t: t, reply: replies}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c := New(func() (string, bool) { return "123:abc", true }, WithBaseURL(srv.URL+"/"))
	return c, fake
}

func TestGetMe(t *testing.T) {
	c, fake := newTestClient(t, map[string]string{
		"/bot123:abc/getMe": `{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Omi","username":"omi_bot"}}`,
	})
	me, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), me.ID)
	assert.True(t, me.IsBot)
	require.NotNil(t, me.Username)
	assert.Equal(t, "omi_bot", *me.Username)
	require.Len(t, fake.calls, 1)
}

func TestSetWebhook(t *testing.T) {
	c, fake := newTestClient(t, map[string]string{
		"/bot123:abc/setWebhook": `{"ok":true,"result":true}`,
	})
	require.NoError(t, c.SetWebhook(context.Background(), "https://api.example.com/api/v1/tg", "hook-secret", true))
	require.Len(t, fake.calls, 1)
	assert.Equal(t, map[string]any{
		"url":                  "https://api.example.com/api/v1/tg",
		"secret_token":         "hook-secret",
		"drop_pending_updates": true,
	}, fake.calls[0].Params)
}

func TestSendMessage(t *testing.T) {
	c, fake := newTestClient(t, map[string]string{
		"/bot123:abc/sendMessage": `{"ok":true,"result":{"message_id":99,"chat":{"id":-5,"type":"group"},"date":1}}`,
	})
	m, err := c.SendMessage(context.Background(), -5, "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(99), m.MessageID)
	assert.Equal(t, float64(-5), fake.calls[0].Params["chat_id"])
	assert.Equal(t, "hi", fake.calls[0].Params["text"])
}

func TestGetWebhookInfo(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"/bot123:abc/getWebhookInfo": `{"ok":true,"result":{"url":"https://x/tg","has_custom_certificate":false,"pending_update_count":3}}`,
	})
	info, err := c.GetWebhookInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://x/tg", info.URL)
	assert.Equal(t, 3, info.PendingUpdateCount)
}

func TestAPIError(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{})
	_, err := c.GetMe(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not Found", apiErr.Description)
	assert.NotContains(t, err.Error(), "123:abc")
}

func TestNoToken(t *testing.T) {
	c := New(func() (string, bool) { return "", false })
	_, err := c.GetMe(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTransportErrorRedactsToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(func() (string, bool) { return "123:abc", true }, WithBaseURL(url))
	_, err := c.GetMe(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "123:abc")
}

func TestAPIErrorWrapsSentinel(t *testing.T) {
	err := error(&APIError{Method: "getMe", StatusCode: 401, Description: "Unauthorized"})
	assert.ErrorIs(t, err, ErrAPI)
}

func TestVerifyWebhookSecret(t *testing.T) {
	assert.NoError(t, VerifyWebhookSecret("s3cret", "s3cret"))
	assert.ErrorIs(t, VerifyWebhookSecret("nope", "s3cret"), ErrUnauthorized)
	assert.ErrorIs(t, VerifyWebhookSecret("", "s3cret"), ErrUnauthorized)
	assert.ErrorIs(t, VerifyWebhookSecret("", ""), ErrUnauthorized)
}
