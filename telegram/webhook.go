package telegram

import (
	"crypto/subtle"
	"errors"
)

// SecretTokenHeader carries the secret registered with SetWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// ErrUnauthorized is a webhook delivery without the expected secret.
var ErrUnauthorized = errors.New("telegram: unauthorized webhook delivery")

// VerifyWebhookSecret checks the secret header of a delivery. An empty
// expected secret rejects every delivery.
func VerifyWebhookSecret(got, expected string) error {
	if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
