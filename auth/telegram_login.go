package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/jmcleod/omiassist/internal/secrets"
)

// TelegramLoginHash computes the Telegram Login Widget hash of dataCheck:
// hex(HMAC-SHA256(SHA256(botToken), dataCheck)).
// See https://core.telegram.org/widgets/login#checking-authorization.
func TelegramLoginHash(botToken, dataCheck string) string {
	key := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(dataCheck))
	return hex.EncodeToString(mac.Sum(nil))
}

// DataCheckString builds the canonical string Telegram signs: every field
// except "hash", sorted by key, as key=value lines joined by '\n'.
func DataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + fields[k]
	}
	return strings.Join(lines, "\n")
}

// VerifyTelegramLogin checks hash against dataCheck using the configured
// Telegram auth token. The comparison is exact and case-sensitive. The
// computed hash is logged on mismatch and never returned.
func (r *Resolver) VerifyTelegramLogin(ctx context.Context, dataCheck, hash string) error {
	botToken, ok := r.secrets.Get(secrets.TelegramAuthToken)
	if !ok || botToken == "" {
		r.logger.ErrorContext(ctx, "telegram auth token is not configured")
		return ErrNotAuthorized
	}
	computed := TelegramLoginHash(botToken, dataCheck)
	if computed != hash {
		r.logger.WarnContext(ctx, "telegram login hash is invalid",
			"error", ErrInvalidHash, "computed", computed, "provided", hash)
		return ErrNotAuthorized
	}
	return nil
}
