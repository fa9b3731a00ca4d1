// Package telegram – update loop.
package telegram

import (
	"context"
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"sessionbot/internal/services"
)

// Bot consumes long-poll updates and dispatches them to the command router
// and the vote recorder.
type Bot struct {
	API      *tgbotapi.BotAPI
	Surface  *Surface
	Commands *Commands
	Polls    *services.PollService
}

// Run drains the update channel until ctx is cancelled. Handler errors are
// logged and never stop the loop.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.API.GetUpdatesChan(u)

	log.Info().Str("bot", b.API.Self.UserName).Msg("update loop started")
	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			log.Info().Msg("update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handle(ctx, update)
		}
	}
}

func (b *Bot) handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleVote(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// handleVote records a vote tapped on a poll keyboard and acknowledges it
// with a toast. Unknown callback data and votes on stale polls get a short
// explanatory toast instead.
func (b *Bot) handleVote(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	flags, known := voteFlags[cb.Data]
	if !known || cb.Message == nil {
		b.answer(cb.ID, "This button is no longer active.")
		return
	}

	messageRef := strconv.Itoa(cb.Message.MessageID)
	userID := strconv.FormatInt(cb.From.ID, 10)
	err := b.Polls.RecordVote(ctx, messageRef, userID, displayName(cb.From), flags[0], flags[1])
	switch {
	case errors.Is(err, services.ErrNoActivePoll):
		b.answer(cb.ID, "This poll is closed.")
	case err != nil:
		log.Error().Err(err).Str("user_id", userID).Str("message_ref", messageRef).Msg("record vote")
		b.answer(cb.ID, "Something went wrong, try again.")
	default:
		b.answer(cb.ID, voteAck[cb.Data])
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !msg.IsCommand() {
		return
	}
	reply := b.Commands.Handle(ctx, msg)
	if reply == "" {
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.ReplyToMessageID = msg.MessageID
	if err := b.Surface.Limiter.Wait(ctx); err != nil {
		return
	}
	if _, err := b.API.Send(out); err != nil {
		log.Error().Err(err).Str("command", msg.Command()).Msg("send command reply")
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.API.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Warn().Err(err).Msg("answer callback")
	}
}
