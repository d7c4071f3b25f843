package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmcleod/omiassist/internal/secrets"
	"github.com/jmcleod/omiassist/internal/uuid"
	"github.com/jmcleod/omiassist/storage"
	"github.com/jmcleod/omiassist/telegram"
)

// TelegramWebHook handles POST /tg, the Bot API update webhook. Only
// new messages are handled; anything the bot does not understand is
// acknowledged so Telegram does not redeliver it.
func (a *API) TelegramWebHook(w http.ResponseWriter, r *http.Request) {
	expected, _ := a.secrets.Get(secrets.TelegramWebhookSecret)
	if err := telegram.VerifyWebhookSecret(r.Header.Get(telegram.SecretTokenHeader), expected); err != nil {
		a.audit.logFailure(AuditWebhookRejected, r, "telegram secret token mismatch")
		mapError(w, err)
		return
	}

	update, ok := decodeJSON[telegram.Update](w, r, maxWebhookBodySize)
	if !ok {
		return
	}
	msg := update.Message
	if msg == nil {
		writeEmpty(w)
		return
	}

	ctx := r.Context()
	cmd, err := telegram.ParseCommand(msg)
	switch {
	case errors.Is(err, telegram.ErrBadCommand):
		a.logger.WarnContext(ctx, "omi command error", "chat_id", msg.Chat.ID, "text", *msg.Text)
		writeEmpty(w)
		return
	case err != nil:
		a.logger.InfoContext(ctx, "ignoring telegram message", "chat_id", msg.Chat.ID, "reason", err)
		writeEmpty(w)
		return
	}
	if msg.From == nil || msg.From.IsBot {
		a.logger.InfoContext(ctx, "ignoring bot message", "chat_id", msg.Chat.ID)
		writeEmpty(w)
		return
	}

	switch cmd {
	case telegram.CommandStart:
		err = a.sendReply(ctx, msg, fmt.Sprintf("Welcome to Omi Assist! You can manage your settings at %s", a.frontendURL))
	case telegram.CommandLinkDM, telegram.CommandLinkGroup:
		err = a.linkChat(r, msg)
	}
	if err != nil {
		mapError(w, err)
		return
	}
	writeEmpty(w)
}

func (a *API) sendReply(ctx context.Context, msg *telegram.Message, text string) error {
	sent, err := a.bot.SendMessage(ctx, msg.Chat.ID, text)
	if err != nil {
		return err
	}
	a.logger.DebugContext(ctx, "telegram reply sent", "chat_id", msg.Chat.ID, "message_id", sent.MessageID)
	return nil
}

// linkChat makes the chat of msg a destination of the sender's account.
func (a *API) linkChat(r *http.Request, msg *telegram.Message) error {
	ctx := r.Context()
	from := msg.From

	tg, err := a.repo.LoadTelegramAccount(ctx, from.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return a.sendReply(ctx, msg, fmt.Sprintf("you need to first register an account at %s", a.frontendURL))
	}
	if err != nil {
		return err
	}

	if tg.FirstName != from.FirstName || !sameUsername(tg.Username, from.Username) {
		if err := a.repo.UpdateTelegramName(ctx, tg.ID, from.FirstName, from.Username); err != nil {
			a.logger.WarnContext(ctx, "failed to update telegram name", "tg_uid", tg.ID, "error", err)
		}
	}

	group := msg.Chat.Type != telegram.ChatPrivate
	exists, err := a.repo.DestinationExists(ctx, tg.UserID, msg.Chat.ID)
	if err != nil {
		return err
	}
	if exists {
		if group {
			return a.sendReply(ctx, msg, "You have already linked this group")
		}
		return a.sendReply(ctx, msg, "You have already linked this chat")
	}

	dest := &storage.Destination{
		ID:        uuid.New(),
		UserID:    tg.UserID,
		ChatID:    msg.Chat.ID,
		Name:      destinationName(msg),
		Kind:      storage.DestinationTelegramDM,
		CreatedAt: a.now().UTC(),
	}
	if group {
		dest.Kind = storage.DestinationTelegramGroup
	}
	if err := a.repo.InsertDestination(ctx, dest); err != nil {
		return err
	}
	a.audit.logEvent(AuditDestinationLinked, r, tg.UserID,
		slog.String("destination_id", dest.ID),
		slog.Int64("chat_id", dest.ChatID))

	if group {
		return a.sendReply(ctx, msg, "Group linked successfully")
	}
	return a.sendReply(ctx, msg, "Chat linked successfully")
}

// destinationName is "first (@username)" or "first" for a private chat,
// and the chat title or "Group <id>" otherwise.
func destinationName(msg *telegram.Message) string {
	if msg.Chat.Type != telegram.ChatPrivate {
		if msg.Chat.Title != nil {
			return *msg.Chat.Title
		}
		return fmt.Sprintf("Group %d", msg.Chat.ID)
	}
	if msg.From.Username != nil {
		return fmt.Sprintf("%s (@%s)", msg.From.FirstName, *msg.From.Username)
	}
	return msg.From.FirstName
}

func sameUsername(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
