// Package telegram – administrative and user commands.
//
// Commands reply with plain result text; administrative ones are gated by
// the env-supplied allowlist. Service errors surface verbatim to the admin
// who is synchronously waiting, per the interactive error policy.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sessionbot/internal/config"
	"sessionbot/internal/domain"
	"sessionbot/internal/services"
	"sessionbot/internal/settings"
)

const helpText = `Commands:
/schedule_init — use this chat for scheduling polls (admin)
/schedule_now — create an availability poll immediately (admin)
/schedule_status — show the current poll status
/schedule_config [key value] — show or change settings (admin)
/schedule_players <chat-id> — set the tracked group (admin)
/schedule_remind [channel|dm] — nag non-responders now (admin)
/schedule_close — close the active poll (admin)
/schedule_purge — close all active polls (admin)
/timezone <IANA name> — set your timezone for reminders
/dm on|off — opt in or out of direct-message reminders`

var titleCase = cases.Title(language.English)

// Commands routes bot commands to the lifecycle services.
type Commands struct {
	Cfg       config.Config
	Polls     *services.PollService
	Reminders *services.ReminderService
	Users     *services.UserSettingsService
	Settings  *settings.Store
}

// Handle executes the command in msg and returns the reply text. Non-command
// messages return "".
func (c *Commands) Handle(ctx context.Context, msg *tgbotapi.Message) string {
	if !msg.IsCommand() {
		return ""
	}
	userID := strconv.FormatInt(msg.From.ID, 10)
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return helpText

	case "schedule_init":
		return c.admin(userID, func() string {
			chatRef := strconv.FormatInt(msg.Chat.ID, 10)
			if err := c.Settings.Set(ctx, settings.KeySchedulingChannel, chatRef); err != nil {
				return errText(err)
			}
			return "✅ Scheduling polls will be sent to this chat."
		})

	case "schedule_now":
		return c.admin(userID, func() string {
			poll, err := c.Polls.CreateWeekly(ctx)
			if err != nil {
				return errText(err)
			}
			return fmt.Sprintf("✅ Availability poll #%d created.", poll.ID)
		})

	case "schedule_status":
		st, err := c.Polls.Status(ctx, "")
		if err != nil {
			return errText(err)
		}
		return renderStatus(st)

	case "schedule_config":
		return c.admin(userID, func() string { return c.configCmd(ctx, args) })

	case "schedule_players":
		return c.admin(userID, func() string {
			if len(args) != 1 {
				return "Usage: /schedule_players <chat-id>"
			}
			if err := c.Settings.Set(ctx, settings.KeyTrackedGroup, args[0]); err != nil {
				return errText(err)
			}
			return "✅ Tracked group set. Its members must all say yes for a day to count as feasible."
		})

	case "schedule_remind":
		return c.admin(userID, func() string { return c.remindCmd(ctx, args) })

	case "schedule_close":
		return c.admin(userID, func() string {
			if err := c.Polls.Close(ctx, ""); err != nil {
				return errText(err)
			}
			return "✅ Closed the active poll and locked responses."
		})

	case "schedule_purge":
		return c.admin(userID, func() string {
			count, err := c.Polls.Purge(ctx, "")
			if err != nil {
				return errText(err)
			}
			return fmt.Sprintf("✅ Closed %d active poll(s).", count)
		})

	case "timezone":
		if len(args) != 1 {
			return "Usage: /timezone <IANA name>, e.g. /timezone Europe/Berlin"
		}
		if err := c.Users.SetTimezone(ctx, userID, args[0]); err != nil {
			return errText(err)
		}
		return fmt.Sprintf("✅ Timezone set to %s.", args[0])

	case "dm":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return "Usage: /dm on|off"
		}
		if err := c.Users.SetDMOptIn(ctx, userID, args[0] == "on"); err != nil {
			return errText(err)
		}
		if args[0] == "on" {
			return "✅ You will receive reminder direct messages."
		}
		return "✅ You will no longer receive reminder direct messages."

	default:
		return "Unknown command. Try /help."
	}
}

// admin runs fn when userID is allowlisted, otherwise refuses.
func (c *Commands) admin(userID string, fn func() string) string {
	if !c.Cfg.IsAdmin(userID) {
		return "❌ Only admins can use this command."
	}
	return fn()
}

// configCmd shows the settings overview or applies one key=value change.
func (c *Commands) configCmd(ctx context.Context, args []string) string {
	switch len(args) {
	case 0:
		snap, err := c.Settings.Snapshot(ctx)
		if err != nil {
			return errText(err)
		}
		var b strings.Builder
		b.WriteString("⚙️ Current configuration:\n")
		for _, key := range settings.Keys {
			value := snap[key]
			if value == "" {
				value = "(not set)"
			} else if key == settings.KeyPollDay || key == settings.KeyDeadlineDay {
				value = titleCase.String(value)
			}
			fmt.Fprintf(&b, "• %s: %s\n", key, value)
		}
		return b.String()
	case 2:
		if err := c.Settings.Set(ctx, args[0], args[1]); err != nil {
			return errText(err)
		}
		return fmt.Sprintf("✅ %s set to %s.", args[0], args[1])
	default:
		return "Usage: /schedule_config [key value]"
	}
}

// remindCmd triggers a manual reminder, optionally overriding the mode.
func (c *Commands) remindCmd(ctx context.Context, args []string) string {
	mode := ""
	if len(args) == 1 {
		mode = strings.ToLower(args[0])
		if mode != domain.DeliveryChannel && mode != domain.DeliveryDM {
			return "Usage: /schedule_remind [channel|dm]"
		}
	} else if len(args) > 1 {
		return "Usage: /schedule_remind [channel|dm]"
	}

	report, err := c.Reminders.SendManual(ctx, mode)
	switch {
	case errors.Is(err, services.ErrEveryoneResponded):
		return "✅ Everyone has already responded — no reminder needed."
	case err != nil:
		return errText(err)
	case report.Mode == domain.DeliveryDM:
		return fmt.Sprintf("✅ Reminder sent to %d of %d pending player(s).", report.Delivered, report.Recipients)
	default:
		return "✅ Reminder posted to the scheduling channel."
	}
}

func errText(err error) string {
	return "❌ " + err.Error()
}
