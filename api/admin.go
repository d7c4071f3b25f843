package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmcleod/omiassist/auth"
	"github.com/jmcleod/omiassist/internal/secrets"
)

// TelegramSetWebHook handles POST /admin/tg/set-web-hook. It points the
// bot at this server's Telegram webhook route, dropping pending updates.
func (a *API) TelegramSetWebHook(w http.ResponseWriter, r *http.Request) {
	secret, ok := a.secrets.Get(secrets.TelegramWebhookSecret)
	if !ok {
		writeInternalError(w, "telegram webhook secret is not configured",
			errors.New("missing "+secrets.TelegramWebhookSecret))
		return
	}
	url := auth.RouteTelegramWebHook.Link(a.apiDomain, "api/v1")
	if err := a.bot.SetWebhook(r.Context(), url, secret, true); err != nil {
		mapError(w, err)
		return
	}
	id := identityFromContext(r.Context())
	a.audit.logEvent(AuditWebhookRegistered, r, id.Account.ID, slog.String("url", url))
	writeEmpty(w)
}

// PopulateFakeUser handles POST /admin/populate-fake-user. It registers an
// account without a Telegram login, for testing.
func (a *API) PopulateFakeUser(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[PopulateFakeUserRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.OmiID == "" {
		writeError(w, http.StatusBadRequest, "omi_id is required")
		return
	}

	user, tok, err := a.register(r.Context(), req.OmiID, req.TelegramID)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditFakeUserPopulated, r, user.ID, slog.Int64("tg_uid", req.TelegramID))
	writeJSON(w, http.StatusOK, PopulateFakeUserResponse{
		Register:  RegisterResponse{UID: user.ID, AuthKey: tok.Key},
		AuthToken: AuthToken{ID: tok.ID, Key: tok.Key},
	})
}
