package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmcleod/omiassist/auth"
	"github.com/jmcleod/omiassist/internal/uuid"
	"github.com/jmcleod/omiassist/session"
	"github.com/jmcleod/omiassist/storage"
)

// Register handles POST /auth/register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[RegisterRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.OmiUID == "" {
		writeError(w, http.StatusBadRequest, "omi_uid is required")
		return
	}

	if !strings.Contains(req.DataCheck, fmt.Sprintf("id=%d", req.TelegramUID)) {
		a.audit.logFailure(AuditAuthFailure, r, errTelegramIDMismatch.Error(),
			slog.Int64("tg_uid", req.TelegramUID))
		mapError(w, errTelegramIDMismatch)
		return
	}
	if err := a.resolver.VerifyTelegramLogin(r.Context(), req.DataCheck, req.DataCheckHash); err != nil {
		a.audit.logFailure(AuditAuthFailure, r, "invalid telegram login", slog.Int64("tg_uid", req.TelegramUID))
		mapError(w, err)
		return
	}

	exists, err := a.repo.OmiAccountExists(r.Context(), req.OmiUID)
	if err != nil {
		mapError(w, err)
		return
	}
	if exists {
		mapError(w, errOmiIDExists)
		return
	}
	exists, err = a.repo.TelegramAccountExists(r.Context(), req.TelegramUID)
	if err != nil {
		mapError(w, err)
		return
	}
	if exists {
		mapError(w, errTelegramIDExists)
		return
	}

	user, tok, err := a.register(r.Context(), req.OmiUID, req.TelegramUID)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditRegister, r, user.ID, slog.Int64("tg_uid", req.TelegramUID))
	w.Header().Add("Set-Cookie", auth.SigninCookie(tok.ID))
	writeJSON(w, http.StatusOK, RegisterResponse{UID: user.ID, AuthKey: tok.Key})
}

// register creates the user with its Omi and Telegram accounts and signs
// it in. The Telegram name is a placeholder until the user messages the bot.
func (a *API) register(ctx context.Context, omiUID string, tgUID int64) (*storage.UserAccount, *session.Token, error) {
	now := a.now().UTC()
	user := &storage.UserAccount{
		ID:        uuid.New(),
		UserToken: uuid.NewSimple(),
		CreatedAt: now,
	}
	if err := a.repo.InsertUser(ctx, user); err != nil {
		return nil, nil, err
	}
	if err := a.repo.InsertOmiAccount(ctx, &storage.OmiAccount{
		ID:        omiUID,
		UserID:    user.ID,
		CreatedAt: now,
	}); err != nil {
		return nil, nil, err
	}
	if err := a.repo.InsertTelegramAccount(ctx, &storage.TelegramAccount{
		ID:        tgUID,
		UserID:    user.ID,
		FirstName: storage.DefaultTelegramFirstName(tgUID),
		CreatedAt: now,
	}); err != nil {
		return nil, nil, err
	}

	tok, err := a.sessions.Create(ctx, session.KindSignin, user.ID, user.UserToken, session.SigninTTL)
	if err != nil {
		return nil, nil, err
	}
	return user, tok, nil
}

// Signin handles POST /auth/signin.
func (a *API) Signin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[SigninRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if err := a.resolver.VerifyTelegramLogin(r.Context(), req.DataCheck, req.DataCheckHash); err != nil {
		a.audit.logFailure(AuditAuthFailure, r, "invalid telegram login", slog.Int64("tg_uid", req.TelegramUID))
		mapError(w, err)
		return
	}

	tg, err := a.repo.LoadTelegramAccount(r.Context(), req.TelegramUID)
	if err != nil {
		mapError(w, err)
		return
	}
	user, err := a.repo.LoadUser(r.Context(), tg.UserID)
	if err != nil {
		mapError(w, err)
		return
	}

	tok, err := a.sessions.Create(r.Context(), session.KindSignin, user.ID, user.UserToken, session.SigninTTL)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditSignin, r, user.ID)
	w.Header().Add("Set-Cookie", auth.SigninCookie(tok.ID))
	writeJSON(w, http.StatusOK, SigninResponse{UID: user.ID, AuthKey: tok.Key})
}

// Check handles POST /auth/check.
func (a *API) Check(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	writeJSON(w, http.StatusOK, CheckResponse{UID: id.Account.ID})
}

// Signout handles POST /auth/signout. It revokes the calling session and,
// with everywhere set, every other session of the account by rotating its
// user token.
func (a *API) Signout(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOptionalJSON[SignoutRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	id := identityFromContext(r.Context())

	if id.TokenID != "" {
		if err := a.sessions.Delete(r.Context(), session.KindSignin, id.TokenID); err != nil {
			mapError(w, err)
			return
		}
	}

	event := AuditSignout
	if req.Everywhere {
		if err := a.repo.UpdateUserToken(r.Context(), id.Account.ID, uuid.NewSimple()); err != nil {
			mapError(w, err)
			return
		}
		event = AuditSignoutEverywhere
	}

	a.audit.logEvent(event, r, id.Account.ID)
	w.Header().Add("Set-Cookie", auth.ClearSigninCookie())
	writeEmpty(w)
}
