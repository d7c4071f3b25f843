package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/omiassist/auth"
	"github.com/jmcleod/omiassist/internal/secrets"
	"github.com/jmcleod/omiassist/telegram"
)

const (
	pendingUpdatesWarn = 100
	recentErrorWindow  = 24 * time.Hour
)

var errUnhealthy = errors.New("telegram bot is not healthy")

type statusResult struct {
	Bot        string        `json:"bot"`
	WebhookURL string        `json:"webhook_url"`
	Healthy    bool          `json:"healthy"`
	Checks     []checkResult `json:"checks"`
}

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "pass", "fail", "warn"
	Detail string `json:"detail,omitempty"`
}

func (r *statusResult) add(name, status, detail string) {
	if status == "fail" {
		r.Healthy = false
	}
	r.Checks = append(r.Checks, checkResult{Name: name, Status: status, Detail: detail})
}

// checkBot reports whether the bot is registered to deliver updates to
// expectedURL.
func checkBot(me *telegram.User, info *telegram.WebhookInfo, expectedURL string, now time.Time) statusResult {
	result := statusResult{WebhookURL: info.URL, Healthy: true}
	if me.Username != nil {
		result.Bot = "@" + *me.Username
	}

	if me.IsBot {
		result.add("bot_identity", "pass", result.Bot)
	} else {
		result.add("bot_identity", "fail", fmt.Sprintf("user %d is not a bot", me.ID))
	}

	switch info.URL {
	case expectedURL:
		result.add("webhook_url", "pass", "")
	case "":
		result.add("webhook_url", "fail", "no webhook registered, run telegram set-webhook")
	default:
		result.add("webhook_url", "fail", fmt.Sprintf("webhook is %s, expected %s", info.URL, expectedURL))
	}

	if len(info.AllowedUpdates) > 0 && !slices.Contains(info.AllowedUpdates, "message") {
		result.add("allowed_updates", "fail", "message updates are filtered out")
	} else {
		result.add("allowed_updates", "pass", "")
	}

	if info.PendingUpdateCount > pendingUpdatesWarn {
		result.add("pending_updates", "warn", fmt.Sprintf("%d updates waiting", info.PendingUpdateCount))
	} else {
		result.add("pending_updates", "pass", "")
	}

	if info.LastErrorDate == 0 {
		result.add("delivery_errors", "pass", "")
	} else {
		at := time.Unix(info.LastErrorDate, 0).UTC()
		detail := fmt.Sprintf("%s at %s", info.LastErrorMessage, at.Format(time.RFC3339))
		if now.Sub(at) < recentErrorWindow {
			result.add("delivery_errors", "warn", detail)
		} else {
			result.add("delivery_errors", "pass", "last error "+detail)
		}
	}

	return result
}

func printHumanStatus(w io.Writer, result statusResult) {
	fmt.Fprintf(w, "Bot:     %s\n", result.Bot)
	fmt.Fprintf(w, "Webhook: %s\n\n", result.WebhookURL)

	for _, c := range result.Checks {
		tag := "[PASS]"
		switch c.Status {
		case "fail":
			tag = "[FAIL]"
		case "warn":
			tag = "[WARN]"
		}
		if c.Detail != "" {
			fmt.Fprintf(w, "%s %s: %s\n", tag, c.Name, c.Detail)
		} else {
			fmt.Fprintf(w, "%s %s\n", tag, c.Name)
		}
	}

	fmt.Fprintln(w)
	if result.Healthy {
		fmt.Fprintln(w, "Result: HEALTHY")
	} else {
		fmt.Fprintln(w, "Result: UNHEALTHY")
	}
}

func printJSONStatus(w io.Writer, result statusResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

var statusJSONOutput bool

var telegramStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the bot identity and webhook registration",
	Long: `Calls getMe and getWebhookInfo and checks that Telegram delivers message
updates to this server's webhook route. Exits non-zero when a check fails.`,
	Args: cobra.NoArgs,
	RunE: runTelegramStatus,
}

func init() {
	telegramCmd.AddCommand(telegramStatusCmd)
	telegramStatusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "Output results as JSON")
}

func runTelegramStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store := secrets.FromEnv(os.LookupEnv)
	bot := newBot(store, newLogger(cfg), nil)

	me, err := bot.GetMe(cmd.Context())
	if err != nil {
		return err
	}
	info, err := bot.GetWebhookInfo(cmd.Context())
	if err != nil {
		return err
	}

	result := checkBot(me, info, auth.RouteTelegramWebHook.Link(cfg.APIDomain, "api/v1"), time.Now())
	out := cmd.OutOrStdout()
	if statusJSONOutput {
		if err := printJSONStatus(out, result); err != nil {
			return err
		}
	} else {
		printHumanStatus(out, result)
	}
	if !result.Healthy {
		return errUnhealthy
	}
	return nil
}
