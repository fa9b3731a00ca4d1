// Package services – chat surface contract.
//
// The chat platform is an external collaborator. The lifecycle depends only
// on this narrow interface; the telegram package provides the production
// implementation and tests substitute an in-memory fake.
package services

import (
	"context"
	"time"
)

// Member is a resolved member of the tracked group.
type Member struct {
	ID          string
	DisplayName string
}

// DayView is the rendered status of one candidate day.
type DayView struct {
	Label    string   // e.g. "Saturday"
	Date     time.Time
	Names    []string // display names that said yes, response order
	YesCount int
	Feasible bool
}

// PollView is the platform-neutral renderable for a poll message. The chat
// surface turns it into whatever the platform calls rich content plus
// interactive controls; when Closed is set the controls are omitted and the
// message reads as a final record.
type PollView struct {
	Deadline   time.Time
	Location   *time.Location // display timezone for the deadline
	DayA       DayView
	DayB       DayView
	Pending    []string // tracked members yet to respond, display names
	HasRoster  bool     // true when the tracked group resolved to somebody
	Degraded   bool     // group configured but membership unresolvable
	MinPlayers int      // threshold in effect when no roster is available
	Closed     bool
}

// Surface is the outbound contract to the chat platform.
//
// Implementations must be safe for use from the single event-processing
// task; they may block on network calls.
type Surface interface {
	// CheckChannel verifies the channel exists and the bot may post to it.
	// It returns ErrChannelUnreachable or ErrMissingPermissions (possibly
	// wrapped) on failure.
	CheckChannel(ctx context.Context, channelRef string) error

	// SendPoll renders view into a new message in the channel and returns
	// the platform's reference for it.
	SendPoll(ctx context.Context, channelRef string, view PollView) (messageRef string, err error)

	// EditPoll re-renders an existing poll message in place.
	EditPoll(ctx context.Context, channelRef, messageRef string, view PollView) error

	// SendChannelMessage posts a plain text message to the channel. The
	// send is all-or-nothing.
	SendChannelMessage(ctx context.Context, channelRef, text string) error

	// SendDirect delivers a text message to one member. A failure affects
	// only that member.
	SendDirect(ctx context.Context, userID, text string) error

	// GroupMembers resolves the tracked group to its membership. An empty
	// result or an error degrades feasibility to the threshold rule.
	GroupMembers(ctx context.Context, groupRef string) ([]Member, error)
}
