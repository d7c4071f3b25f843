package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/omiassist/internal/secrets"
	"github.com/jmcleod/omiassist/internal/uuid"
	"github.com/jmcleod/omiassist/session"
	"github.com/jmcleod/omiassist/storage"
	"github.com/jmcleod/omiassist/storage/memory"
)

type harness struct {
	repo     *memory.Repository
	kv       *toggleKV
	sessions *session.Engine
	secrets  *secrets.Store
	resolver *Resolver
}

// toggleKV fails every operation while down is set.
type toggleKV struct {
	storage.KV
	down bool
}

var errDown = errors.New("kv down")

func (k *toggleKV) Get(ctx context.Context, key string) ([]byte, error) {
	if k.down {
		return nil, errDown
	}
	return k.KV.Get(ctx, key)
}

func (k *toggleKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if k.down {
		return errDown
	}
	return k.KV.Put(ctx, key, value, ttl)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:    memory.NewRepository(),
		kv:      &toggleKV{KV: memory.NewKV()},
		secrets: secrets.New(),
	}
	h.sessions = session.NewEngine(session.NewStore(h.kv))
	h.resolver = NewResolver(h.sessions, h.repo, h.secrets)
	return h
}

func (h *harness) newUser(t *testing.T) *storage.UserAccount {
	t.Helper()
	user := &storage.UserAccount{ID: uuid.New(), UserToken: uuid.NewSimple(), CreatedAt: time.Now()}
	require.NoError(t, h.repo.InsertUser(context.Background(), user))
	return user
}

func (h *harness) signin(t *testing.T, user *storage.UserAccount) *session.Token {
	t.Helper()
	tok, err := h.sessions.Create(context.Background(), session.KindSignin, user.ID, user.UserToken, session.SigninTTL)
	require.NoError(t, err)
	return tok
}

func headers(kv ...string) http.Header {
	h := make(http.Header)
	for i := 0; i+1 < len(kv); i += 2 {
		h.Add(kv[i], kv[i+1])
	}
	return h
}

func TestResolveNoAuthKinds(t *testing.T) {
	h := newHarness(t)
	for _, kind := range []Kind{KindNone, KindNoAuthCookieSetter} {
		id, err := h.resolver.Resolve(context.Background(), headers(HeaderTokenID, "garbage"), kind)
		require.NoError(t, err, kind.String())
		assert.Nil(t, id, kind.String())
	}
}

func TestResolveFullWithHeaders(t *testing.T) {
	h := newHarness(t)
	user := h.newUser(t)
	tok := h.signin(t, user)

	id, err := h.resolver.Resolve(context.Background(),
		headers(HeaderTokenID, tok.ID, HeaderTokenKey, tok.Key), KindFull)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.Account.ID)
	assert.Equal(t, tok.ID, id.TokenID)
	assert.False(t, id.Impersonated())
}

func TestResolveTokenIDFromCookie(t *testing.T) {
	h := newHarness(t)
	user := h.newUser(t)
	tok := h.signin(t, user)

	id, err := h.resolver.Resolve(context.Background(),
		headers("Cookie", "theme=dark; "+HeaderTokenID+"="+tok.ID, HeaderTokenKey, tok.Key), KindFull)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.Account.ID)
}

func TestResolveHeaderTakesPrecedenceOverCookie(t *testing.T) {
	h := newHarness(t)
	user := h.newUser(t)
	tok := h.signin(t, user)

	id, err := h.resolver.Resolve(context.Background(), headers(
		HeaderTokenID, tok.ID,
		"Cookie", HeaderTokenID+"=stale",
		HeaderTokenKey, tok.Key,
	), KindFull)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, id.TokenID)
}

func TestResolveRejections(t *testing.T) {
	h := newHarness(t)
	user := h.newUser(t)
	tok := h.signin(t, user)

	tests := []struct {
		name string
		h    http.Header
	}{
		{"no credentials", headers()},
		{"missing key", headers(HeaderTokenID, tok.ID)},
		{"missing id", headers(HeaderTokenKey, tok.Key)},
		{"wrong key", headers(HeaderTokenID, tok.ID, HeaderTokenKey, tok.Key+"x")},
		{"unknown id", headers(HeaderTokenID, uuid.NewSimple(), HeaderTokenKey, tok.Key)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.resolver.Resolve(context.Background(), tt.h, KindFull)
			assert.ErrorIs(t, err, ErrNotAuthorized)
			assert.NotErrorIs(t, err, ErrInternal)
		})
	}
}

func TestResolveUserTokenRotation(t *testing.T) {
	h := newHarness(t)
	user := h.newUser(t)
	tok := h.signin(t, user)
	require.NoError(t, h.repo.UpdateUserToken(context.Background(), user.ID, uuid.NewSimple()))

	hdr := headers(HeaderTokenID, tok.ID, HeaderTokenKey, tok.Key)
	_, err := h.resolver.Resolve(context.Background(), hdr, KindFull)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	id, err := h.resolver.Resolve(context.Background(), hdr, KindPartialAuthTokenOnly)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.Account.ID)
}

func TestResolveDeletedAccount(t *testing.T) {
	h := newHarness(t)
	user := &storage.UserAccount{ID: uuid.New(), UserToken: uuid.NewSimple()}
	tok := h.signin(t, user)

	_, err := h.resolver.Resolve(context.Background(),
		headers(HeaderTokenID, tok.ID, HeaderTokenKey, tok.Key), KindPartialAuthTokenOnly)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestResolveSessionRequiredForAdminRouteWithoutCode(t *testing.T) {
	h := newHarness(t)
	h.secrets.Set(secrets.AdminCode, "s3cret")
	user := h.newUser(t)
	tok := h.signin(t, user)

	_, err := h.resolver.Resolve(context.Background(),
		headers(HeaderTokenID, tok.ID, HeaderTokenKey, tok.Key), KindAdmin)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = h.resolver.Resolve(context.Background(),
		headers(HeaderAdminCode, "wrong", HeaderTokenID, tok.ID, HeaderTokenKey, tok.Key), KindAdmin)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestResolveAdminWithSession(t *testing.T) {
	h := newHarness(t)
	h.secrets.Set(secrets.AdminCode, "s3cret")
	user := h.newUser(t)
	tok := h.signin(t, user)

	id, err := h.resolver.Resolve(context.Background(),
		headers(HeaderAdminCode, "s3cret", HeaderTokenID, tok.ID, HeaderTokenKey, tok.Key), KindAdmin)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.Account.ID)
	assert.Equal(t, tok.ID, id.TokenID)
}

func TestResolveAdminImpersonation(t *testing.T) {
	h := newHarness(t)
	h.secrets.Set(secrets.AdminCode, "s3cret")
	user := h.newUser(t)

	for _, kind := range []Kind{KindAdmin, KindFull, KindPartialAuthTokenOnly} {
		id, err := h.resolver.Resolve(context.Background(),
			headers(HeaderAdminCode, "s3cret", HeaderAdminUID, user.ID), kind)
		require.NoError(t, err, kind.String())
		assert.Equal(t, *user, id.Account)
		assert.True(t, id.Impersonated())
	}
}

func TestResolveAdminImpersonationPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.secrets.Set(secrets.AdminCode, "s3cret")
	uid := uuid.New()

	id, err := h.resolver.Resolve(context.Background(),
		headers(HeaderAdminCode, "s3cret", HeaderAdminUID, uid), KindFull)
	require.NoError(t, err)
	assert.Equal(t, uid, id.Account.ID)
	assert.Empty(t, id.Account.UserToken)
	assert.True(t, id.Impersonated())
}

func TestResolveAdminImpersonationInvalidUID(t *testing.T) {
	h := newHarness(t)
	h.secrets.Set(secrets.AdminCode, "s3cret")

	_, err := h.resolver.Resolve(context.Background(),
		headers(HeaderAdminCode, "s3cret", HeaderAdminUID, "not-a-uuid"), KindAdmin)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestResolveEmptyAdminCodeNeverGrants(t *testing.T) {
	h := newHarness(t)
	user := h.newUser(t)

	_, err := h.resolver.Resolve(context.Background(),
		headers(HeaderAdminCode, "", HeaderAdminUID, user.ID), KindAdmin)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = h.resolver.Resolve(context.Background(),
		headers(HeaderAdminCode, "anything", HeaderAdminUID, user.ID), KindFull)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestResolveStoreFailureIsInternal(t *testing.T) {
	h := newHarness(t)
	user := h.newUser(t)
	tok := h.signin(t, user)
	h.kv.down = true

	_, err := h.resolver.Resolve(context.Background(),
		headers(HeaderTokenID, tok.ID, HeaderTokenKey, tok.Key), KindFull)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrNotAuthorized)
}

func TestResolveSlidesExpiry(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	clock := func() time.Time { return now }
	kv := memory.NewKVWithClock(clock)
	repo := memory.NewRepository()
	engine := session.NewEngine(session.NewStore(kv), session.WithClock(clock))
	r := NewResolver(engine, repo, secrets.New())

	user := &storage.UserAccount{ID: uuid.New(), UserToken: uuid.NewSimple()}
	require.NoError(t, repo.InsertUser(context.Background(), user))
	tok, err := engine.Create(context.Background(), session.KindSignin, user.ID, user.UserToken, session.SigninTTL)
	require.NoError(t, err)
	hdr := headers(HeaderTokenID, tok.ID, HeaderTokenKey, tok.Key)

	now = now.Add(session.SigninTTL - time.Hour)
	_, err = r.Resolve(context.Background(), hdr, KindFull)
	require.NoError(t, err)

	now = now.Add(session.SigninTTL - time.Hour)
	_, err = r.Resolve(context.Background(), hdr, KindFull)
	require.NoError(t, err, "each request extends the session")

	now = now.Add(session.SigninTTL + time.Minute)
	_, err = r.Resolve(context.Background(), hdr, KindFull)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
