package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jmcleod/omiassist/internal/config"
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Telegram bot tools",
	Long: `Commands for inspecting and configuring the Telegram bot. The bot token
and webhook secret are read from TELEGRAM_BOT_TOKEN and
TELEGRAM_WEBHOOK_SECRET.`,
}

func init() {
	rootCmd.AddCommand(telegramCmd)
	telegramCmd.PersistentFlags().StringVar(&flagCfg.APIDomain, config.FlagAPIDomain, flagCfg.APIDomain, "Public origin of the API server")
}
