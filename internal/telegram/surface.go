// Package telegram – Surface implementation.
//
// Channel and message references are the decimal string forms of Telegram's
// chat and message ids. Outbound sends share a token bucket so reminder
// bursts stay inside the Bot API's flood limits.
//
// Tracked-group resolution: bots cannot enumerate full chat membership, so
// the tracked group is a chat id whose administrators form the roster. When
// that lookup fails or yields nobody human, feasibility degrades to the
// threshold rule upstream.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"sessionbot/internal/services"
)

// Surface implements services.Surface over the Telegram Bot API.
type Surface struct {
	API     *tgbotapi.BotAPI
	Limiter *rate.Limiter
}

// NewSurface wraps api with a send limiter of rps/burst.
func NewSurface(api *tgbotapi.BotAPI, rps float64, burst int) *Surface {
	return &Surface{API: api, Limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

var _ services.Surface = (*Surface)(nil)

// CheckChannel verifies the chat exists and that the bot may post there.
func (s *Surface) CheckChannel(ctx context.Context, channelRef string) error {
	chatID, err := parseRef(channelRef)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrChannelUnreachable, err)
	}
	if _, err := s.API.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	}); err != nil {
		return fmt.Errorf("%w: %v", services.ErrChannelUnreachable, err)
	}
	member, err := s.API.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: s.API.Self.ID},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrMissingPermissions, err)
	}
	switch member.Status {
	case "left", "kicked":
		return services.ErrMissingPermissions
	case "restricted":
		if !member.CanSendMessages {
			return services.ErrMissingPermissions
		}
	}
	return nil
}

// SendPoll posts the rendered poll with its vote keyboard and returns the
// new message id as the message ref.
func (s *Surface) SendPoll(ctx context.Context, channelRef string, view services.PollView) (string, error) {
	chatID, err := parseRef(channelRef)
	if err != nil {
		return "", err
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return "", err
	}
	msg := tgbotapi.NewMessage(chatID, renderPoll(view))
	if !view.Closed {
		msg.ReplyMarkup = voteKeyboard()
	}
	sent, err := s.API.Send(msg)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.MessageID), nil
}

// EditPoll re-renders the poll message in place. A closed view drops the
// keyboard, leaving the message read-only.
func (s *Surface) EditPoll(ctx context.Context, channelRef, messageRef string, view services.PollView) error {
	chatID, err := parseRef(channelRef)
	if err != nil {
		return err
	}
	messageID, err := strconv.Atoi(messageRef)
	if err != nil {
		return err
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return err
	}
	if view.Closed {
		_, err = s.API.Send(tgbotapi.NewEditMessageText(chatID, messageID, renderPoll(view)))
		return err
	}
	_, err = s.API.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, renderPoll(view), voteKeyboard()))
	return err
}

// SendChannelMessage posts plain text to the channel, all-or-nothing.
func (s *Surface) SendChannelMessage(ctx context.Context, channelRef, text string) error {
	chatID, err := parseRef(channelRef)
	if err != nil {
		return err
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = s.API.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendDirect messages one user. Telegram only allows this after the user has
// started the bot; a rejection affects that user alone.
func (s *Surface) SendDirect(ctx context.Context, userID, text string) error {
	id, err := parseRef(userID)
	if err != nil {
		return err
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = s.API.Send(tgbotapi.NewMessage(id, text))
	return err
}

// GroupMembers resolves the tracked chat's administrators, skipping bots.
func (s *Surface) GroupMembers(ctx context.Context, groupRef string) ([]services.Member, error) {
	chatID, err := parseRef(groupRef)
	if err != nil {
		return nil, err
	}
	admins, err := s.API.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, err
	}
	out := make([]services.Member, 0, len(admins))
	for _, a := range admins {
		if a.User == nil || a.User.IsBot {
			continue
		}
		out = append(out, services.Member{
			ID:          strconv.FormatInt(a.User.ID, 10),
			DisplayName: displayName(a.User),
		})
	}
	return out, nil
}

// parseRef converts a decimal chat/user ref into an id.
func parseRef(ref string) (int64, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ref %q: %w", ref, err)
	}
	return id, nil
}

// displayName prefers the @username, then the first/last name pair.
func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}
