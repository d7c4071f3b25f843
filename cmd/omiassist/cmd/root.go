package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/omiassist/api"
)

var rootCmd = &cobra.Command{
	Use:     "omiassist",
	Short:   "Omi Assist sends Telegram messages when your Omi hears a prompt",
	Version: api.Version,
	Long: `Omi Assist links an Omi wearable to Telegram. Configure prompts on the web
app, link chats with the bot, and matching transcripts are forwarded to
those chats.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
