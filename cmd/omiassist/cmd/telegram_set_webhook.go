package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/omiassist/auth"
	"github.com/jmcleod/omiassist/internal/secrets"
)

var keepPendingUpdates bool

var telegramSetWebhookCmd = &cobra.Command{
	Use:   "set-webhook",
	Short: "Point the bot's updates at this server",
	Long: `Registers <api-domain>/api/v1/tg as the bot webhook, with
TELEGRAM_WEBHOOK_SECRET as the secret token Telegram sends back on every
delivery. This is the offline equivalent of POST /admin/tg/set-web-hook.`,
	Args: cobra.NoArgs,
	RunE: runTelegramSetWebhook,
}

func init() {
	telegramCmd.AddCommand(telegramSetWebhookCmd)
	telegramSetWebhookCmd.Flags().BoolVar(&keepPendingUpdates, "keep-pending", false, "Keep updates queued before the webhook changed")
}

func runTelegramSetWebhook(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store := secrets.FromEnv(os.LookupEnv)
	secret, ok := store.Get(secrets.TelegramWebhookSecret)
	if !ok {
		return errors.New(secrets.TelegramWebhookSecret + " is not set")
	}

	url := auth.RouteTelegramWebHook.Link(cfg.APIDomain, "api/v1")
	if err := newBot(store, newLogger(cfg), nil).SetWebhook(cmd.Context(), url, secret, !keepPendingUpdates); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Webhook set to %s\n", url)
	return nil
}
