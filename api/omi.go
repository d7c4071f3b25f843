package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jmcleod/omiassist/storage"
)

// OmiWebHook handles POST /omi?uid=<omi uid>, the real-time transcript
// webhook. Every action whose prompt occurs in a segment, ignoring case,
// is sent to its destination chat.
func (a *API) OmiWebHook(w http.ResponseWriter, r *http.Request) {
	omiUID := r.URL.Query().Get("uid")
	if omiUID == "" {
		mapError(w, fmt.Errorf("%w: uid not found", errBadRequest))
		return
	}
	payload, ok := decodeJSON[OmiPayload](w, r, maxWebhookBodySize)
	if !ok {
		return
	}
	if len(payload.Segments) == 0 {
		writeEmpty(w)
		return
	}

	ctx := r.Context()
	omi, err := a.repo.LoadOmiAccount(ctx, omiUID)
	if errors.Is(err, storage.ErrNotFound) {
		a.metrics.OmiDispatch("unknown_user")
		mapError(w, fmt.Errorf("%w: %s", errNoSuchUser, omiUID))
		return
	}
	if err != nil {
		mapError(w, err)
		return
	}

	actions, err := a.repo.ListActions(ctx, omi.UserID)
	if err != nil {
		a.logger.WarnContext(ctx, "listing actions for omi webhook", "omi_uid", omiUID, "error", err)
		a.metrics.OmiDispatch("no_actions")
		mapError(w, errNoActions)
		return
	}

	hits := matchActions(actions, payload.Segments)
	if len(hits) == 0 {
		a.logger.DebugContext(ctx, "no actions matched", "omi_uid", omiUID, "segments", len(payload.Segments))
		a.metrics.OmiDispatch("no_match")
		writeEmpty(w)
		return
	}

	tg, err := a.repo.LoadTelegramAccountByUser(ctx, omi.UserID)
	if err != nil {
		mapError(w, err)
		return
	}

	var failed int
	for _, action := range hits {
		text := dispatchText(tg, action.Message)
		if _, err := a.bot.SendMessage(ctx, action.Destination.ChatID, text); err != nil {
			failed++
			a.metrics.OmiDispatch("failed")
			a.logger.ErrorContext(ctx, "sending action message",
				"action_id", action.ID, "chat_id", action.Destination.ChatID, "error", err)
			continue
		}
		a.metrics.OmiDispatch("sent")
	}

	a.audit.logEvent(AuditOmiDispatch, r, omi.UserID,
		slog.Int("matched", len(hits)),
		slog.Int("failed", failed))
	if failed > 0 {
		writeInternalError(w, "failed to deliver some actions", fmt.Errorf("%d of %d sends failed", failed, len(hits)))
		return
	}
	writeEmpty(w)
}

// matchActions returns the actions whose prompt occurs in any segment,
// comparing Unicode lower-cased text.
func matchActions(actions []storage.ActionWithDestination, segments []OmiSegment) []storage.ActionWithDestination {
	lower := cases.Lower(language.Und)
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = lower.String(s.Text)
	}

	var hits []storage.ActionWithDestination
	for _, action := range actions {
		prompt := lower.String(action.Prompt)
		if prompt == "" {
			continue
		}
		for _, text := range texts {
			if strings.Contains(text, prompt) {
				hits = append(hits, action)
				break
			}
		}
	}
	return hits
}

func dispatchText(tg *storage.TelegramAccount, message string) string {
	if tg.Username != nil {
		return fmt.Sprintf("message from %s (@%s): %s", tg.FirstName, *tg.Username, message)
	}
	return fmt.Sprintf("message from %s: %s", tg.FirstName, message)
}
