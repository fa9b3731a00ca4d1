// Package telegram adapts the chat-platform contract to the Telegram Bot
// API: rendering poll views into messages with inline keyboards, delivering
// channel posts and direct messages, and translating updates back into
// lifecycle calls.
//
// This file is the pure rendering half: view → text and keyboard. Keeping it
// free of API calls keeps the layout unit-testable.
package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sessionbot/internal/services"
)

// Callback data for the four vote buttons. One tap overwrites the user's
// whole response row.
const (
	cbVoteBoth    = "vote|both"
	cbVoteDayA    = "vote|a"
	cbVoteDayB    = "vote|b"
	cbVoteNeither = "vote|none"
)

// voteFlags maps callback data to the (dayA, dayB) pair.
var voteFlags = map[string][2]bool{
	cbVoteBoth:    {true, true},
	cbVoteDayA:    {true, false},
	cbVoteDayB:    {false, true},
	cbVoteNeither: {false, false},
}

// voteAck is the per-button confirmation shown in the callback toast.
var voteAck = map[string]string{
	cbVoteBoth:    "Got it: both days",
	cbVoteDayA:    "Got it: Saturday only",
	cbVoteDayB:    "Got it: Sunday only",
	cbVoteNeither: "Got it: neither day",
}

// renderPoll lays out a poll view as message text.
func renderPoll(view services.PollView) string {
	var b strings.Builder

	b.WriteString("📊 Weekend Session Availability\n")
	fmt.Fprintf(&b, "Week of %s – %s\n\n",
		view.DayA.Date.Format("Jan 2"), view.DayB.Date.Format("Jan 2, 2006"))

	renderDay(&b, view.DayA)
	b.WriteString("\n")
	renderDay(&b, view.DayB)

	fmt.Fprintf(&b, "\n🗓 Deadline: %s (%s)\n",
		view.Deadline.In(view.Location).Format("Monday, Jan 2 at 15:04"), view.Location.String())

	if view.HasRoster {
		if len(view.Pending) > 0 {
			fmt.Fprintf(&b, "⏳ Waiting on: %s\n", strings.Join(view.Pending, ", "))
		} else {
			b.WriteString("✅ Everyone has responded.\n")
		}
	} else {
		fmt.Fprintf(&b, "🎯 A day works once %d players say yes.\n", view.MinPlayers)
	}
	if view.Degraded {
		b.WriteString("⚠️ Tracked group could not be resolved; falling back to the player minimum.\n")
	}

	if view.Closed {
		b.WriteString("\n🛑 Poll closed — responses are locked.")
	} else {
		b.WriteString("\nTap a button below with your availability.")
	}
	return b.String()
}

func renderDay(b *strings.Builder, d services.DayView) {
	verdict := "❌ not enough"
	if d.Feasible {
		verdict = "✅ good to go"
	}
	fmt.Fprintf(b, "%s %s — %d yes (%s)\n", d.Label, d.Date.Format("Jan 2"), d.YesCount, verdict)
	if len(d.Names) > 0 {
		fmt.Fprintf(b, "   %s\n", strings.Join(d.Names, ", "))
	} else {
		b.WriteString("   no one yet\n")
	}
}

// renderStatus lays out the status command reply, including the
// recommendation line.
func renderStatus(st *services.PollStatus) string {
	var b strings.Builder
	b.WriteString("📊 Current Availability\n\n")
	renderDay(&b, st.View.DayA)
	renderDay(&b, st.View.DayB)
	fmt.Fprintf(&b, "\n🗓 Deadline: %s (%s)\n",
		st.View.Deadline.In(st.View.Location).Format("Monday, Jan 2 at 15:04"), st.View.Location.String())
	if st.View.Degraded {
		b.WriteString("⚠️ Tracked group could not be resolved; feasibility is degraded to the player minimum.\n")
	}
	b.WriteString(recommend(st.View))
	return b.String()
}

// recommend mirrors the original recommendation rules: prefer the feasible
// day with the larger turnout, call a tie, or report that neither works.
func recommend(v services.PollView) string {
	a, bb := v.DayA, v.DayB
	switch {
	case a.Feasible && bb.Feasible && a.YesCount == bb.YesCount:
		return "🎯 Both days work equally well."
	case a.Feasible && bb.Feasible && bb.YesCount > a.YesCount:
		return fmt.Sprintf("🎯 %s has better availability.", bb.Label)
	case a.Feasible && bb.Feasible:
		return fmt.Sprintf("🎯 %s has better availability.", a.Label)
	case a.Feasible:
		return fmt.Sprintf("🎯 %s works.", a.Label)
	case bb.Feasible:
		return fmt.Sprintf("🎯 %s works.", bb.Label)
	default:
		return "⚠️ Neither day is feasible yet."
	}
}

// voteKeyboard is the inline keyboard attached to an open poll.
func voteKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Both days", cbVoteBoth),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🇸 Saturday only", cbVoteDayA),
			tgbotapi.NewInlineKeyboardButtonData("☀️ Sunday only", cbVoteDayB),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Neither day", cbVoteNeither),
		),
	)
}
