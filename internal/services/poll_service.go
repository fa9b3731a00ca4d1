// Package services – PollService.
//
// This file implements the poll lifecycle state machine for a channel slot:
// NoActivePoll → ActivePoll → Closed. Closed is terminal for the poll
// instance; the slot is then free for a new poll. All storage operations are
// single statements, so a crash between recording a response and re-rendering
// the message leaves a durable response behind a stale view, which heals on
// the next render.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"sessionbot/internal/domain"
	"sessionbot/internal/feasibility"
	"sessionbot/internal/repo"
	"sessionbot/internal/schedule"
	"sessionbot/internal/settings"
)

// PollService implements poll creation, vote recording, closing, and purging.
// The chat platform is reached only through the Surface interface.
type PollService struct {
	DB       *gorm.DB
	Settings *settings.Store
	Surface  Surface

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

func (s *PollService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateWeekly creates the weekly availability poll in the configured
// scheduling channel and returns the persisted poll.
//
// It refuses with a sentinel error when no scheduling channel is configured,
// the channel is unreachable or lacks permissions, or an active poll already
// occupies the slot. The background trigger logs these and waits for the
// next cycle; the interactive command surfaces them.
//
// On success the poll message is sent first, then the poll row is persisted
// referencing it, and the reminder tracker is initialized from the current
// reminder configuration.
func (s *PollService) CreateWeekly(ctx context.Context) (*domain.Poll, error) {
	channel, err := s.Settings.SchedulingChannel(ctx)
	if err != nil {
		return nil, err
	}
	if channel == "" {
		return nil, ErrNoSchedulingChannel
	}

	if _, err := repo.GetActivePoll(ctx, s.DB, channel); err == nil {
		return nil, ErrPollExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if err := s.Surface.CheckChannel(ctx, channel); err != nil {
		return nil, err
	}

	wd, hour, min, err := s.Settings.DeadlineSchedule(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := s.Settings.Location(ctx)
	if err != nil {
		return nil, err
	}
	deadline := schedule.NextOccurrence(s.now().In(loc), wd, hour, min)

	view, err := s.viewFor(ctx, deadline, nil, false)
	if err != nil {
		return nil, err
	}
	messageRef, err := s.Surface.SendPoll(ctx, channel, view)
	if err != nil {
		return nil, err
	}

	poll, err := repo.CreatePoll(ctx, s.DB, messageRef, channel, deadline.UTC())
	if err != nil {
		return nil, err
	}

	interval, err := s.Settings.ReminderIntervalHours(ctx)
	if err != nil {
		return nil, err
	}
	mode, err := s.Settings.ReminderDelivery(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := repo.InitReminder(ctx, s.DB, poll.ID, interval, mode, nil); err != nil {
		return nil, err
	}

	pollsCreated.Inc()
	log.Info().Uint("poll_id", poll.ID).Str("channel", channel).
		Time("deadline", poll.Deadline).Msg("weekly poll created")
	return poll, nil
}

// RecordVote records (or overwrites) a user's availability for the poll
// rendered as messageRef. Any combination of the two day flags is valid,
// including both false. Interactions on messages that are not an active poll
// yield ErrNoActivePoll so the surface can ignore them.
//
// The poll message is re-rendered best-effort afterwards; an edit failure is
// logged and does not undo the durable response.
func (s *PollService) RecordVote(ctx context.Context, messageRef, userID, displayName string, dayA, dayB bool) error {
	poll, err := repo.GetActivePollByMessageRef(ctx, s.DB, messageRef)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNoActivePoll
	}
	if err != nil {
		return err
	}

	if _, err := repo.RecordResponse(ctx, s.DB, poll.ID, userID, displayName, dayA, dayB); err != nil {
		return err
	}
	votesRecorded.Inc()
	log.Debug().Uint("poll_id", poll.ID).Str("user", userID).
		Bool("day_a", dayA).Bool("day_b", dayB).Msg("vote recorded")

	s.refresh(ctx, poll, false)
	return nil
}

// Close marks the channel's active poll inactive, removes its reminder
// tracker, and re-renders the message in its closed, read-only state.
// channelRef may be empty to use the configured scheduling channel.
//
// It fails with ErrNoActivePoll when the channel has none; closing twice is
// an error at this layer even though the storage-level close is idempotent.
func (s *PollService) Close(ctx context.Context, channelRef string) error {
	channel, err := s.resolveChannel(ctx, channelRef)
	if err != nil {
		return err
	}

	poll, err := repo.GetActivePoll(ctx, s.DB, channel)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNoActivePoll
	}
	if err != nil {
		return err
	}

	if err := repo.ClosePoll(ctx, s.DB, poll.ID); err != nil {
		return err
	}
	if err := repo.DeleteReminder(ctx, s.DB, poll.ID); err != nil {
		return err
	}
	pollsClosed.Inc()
	log.Info().Uint("poll_id", poll.ID).Str("channel", channel).Msg("poll closed")

	s.refresh(ctx, poll, true)
	return nil
}

// Purge closes every active poll matching channelRef, falling back to the
// configured scheduling channel, or to all channels when neither is set. It
// is best-effort per poll: one poll's failure never aborts the rest. The
// returned count is the number of polls successfully marked inactive,
// regardless of re-render failures.
func (s *PollService) Purge(ctx context.Context, channelRef string) (int, error) {
	filter := channelRef
	if filter == "" {
		configured, err := s.Settings.SchedulingChannel(ctx)
		if err != nil {
			return 0, err
		}
		filter = configured
	}

	polls, err := repo.ListActivePolls(ctx, s.DB, filter)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range polls {
		poll := &polls[i]
		if err := repo.ClosePoll(ctx, s.DB, poll.ID); err != nil {
			log.Error().Err(err).Uint("poll_id", poll.ID).Msg("purge: close failed")
			continue
		}
		if err := repo.DeleteReminder(ctx, s.DB, poll.ID); err != nil {
			log.Error().Err(err).Uint("poll_id", poll.ID).Msg("purge: tracker delete failed")
		}
		closed++
		pollsClosed.Inc()
		s.refresh(ctx, poll, true)
	}
	log.Info().Int("closed", closed).Str("filter", filter).Msg("purge finished")
	return closed, nil
}

// PollStatus is a snapshot of one active poll, used by the status command
// and the ops endpoint.
type PollStatus struct {
	Poll domain.Poll `json:"poll"`
	View PollView    `json:"view"`
}

// Status returns the active poll of channelRef (or the configured channel)
// with its rendered view, or ErrNoActivePoll.
func (s *PollService) Status(ctx context.Context, channelRef string) (*PollStatus, error) {
	channel, err := s.resolveChannel(ctx, channelRef)
	if err != nil {
		return nil, err
	}
	poll, err := repo.GetActivePoll(ctx, s.DB, channel)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoActivePoll
	}
	if err != nil {
		return nil, err
	}
	view, err := s.viewForPoll(ctx, poll, false)
	if err != nil {
		return nil, err
	}
	return &PollStatus{Poll: *poll, View: view}, nil
}

// Overview returns a snapshot of every active poll across all channels.
func (s *PollService) Overview(ctx context.Context) ([]PollStatus, error) {
	polls, err := repo.ListActivePolls(ctx, s.DB, "")
	if err != nil {
		return nil, err
	}
	out := make([]PollStatus, 0, len(polls))
	for i := range polls {
		view, err := s.viewForPoll(ctx, &polls[i], false)
		if err != nil {
			return nil, err
		}
		out = append(out, PollStatus{Poll: polls[i], View: view})
	}
	return out, nil
}

// resolveChannel picks the explicit channel or falls back to configuration.
func (s *PollService) resolveChannel(ctx context.Context, channelRef string) (string, error) {
	if channelRef != "" {
		return channelRef, nil
	}
	channel, err := s.Settings.SchedulingChannel(ctx)
	if err != nil {
		return "", err
	}
	if channel == "" {
		return "", ErrNoSchedulingChannel
	}
	return channel, nil
}

// refresh re-renders the poll message best-effort. Stale views self-heal on
// the next successful render.
func (s *PollService) refresh(ctx context.Context, poll *domain.Poll, closed bool) {
	view, err := s.viewForPoll(ctx, poll, closed)
	if err != nil {
		log.Warn().Err(err).Uint("poll_id", poll.ID).Msg("render: building view failed")
		return
	}
	if err := s.Surface.EditPoll(ctx, poll.ChannelRef, poll.MessageRef, view); err != nil {
		log.Warn().Err(err).Uint("poll_id", poll.ID).Msg("render: edit failed")
	}
}

// viewForPoll loads the poll's responses and assembles its view.
func (s *PollService) viewForPoll(ctx context.Context, poll *domain.Poll, closed bool) (PollView, error) {
	responses, err := repo.ListResponses(ctx, s.DB, poll.ID)
	if err != nil {
		return PollView{}, err
	}
	return s.viewFor(ctx, poll.Deadline, responses, closed)
}

// viewFor evaluates feasibility for the response set and assembles the
// platform-neutral view.
func (s *PollService) viewFor(ctx context.Context, deadline time.Time, responses []domain.Response, closed bool) (PollView, error) {
	minPlayers, err := s.Settings.MinPlayers(ctx)
	if err != nil {
		return PollView{}, err
	}
	loc, err := s.Settings.Location(ctx)
	if err != nil {
		return PollView{}, err
	}
	groupID, err := s.Settings.TrackedGroup(ctx)
	if err != nil {
		return PollView{}, err
	}

	var members []Member
	if groupID != "" {
		members, err = s.Surface.GroupMembers(ctx, groupID)
		if err != nil {
			log.Warn().Err(err).Str("group", groupID).Msg("tracked group unresolvable, falling back to threshold")
			members = nil
		}
	}
	memberIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
	}

	var yesA, yesB []string
	responded := make(map[string]struct{}, len(responses))
	var namesA, namesB []string
	for _, r := range responses {
		responded[r.UserID] = struct{}{}
		if r.DayA {
			yesA = append(yesA, r.UserID)
			namesA = append(namesA, r.DisplayName)
		}
		if r.DayB {
			yesB = append(yesB, r.UserID)
			namesB = append(namesB, r.DisplayName)
		}
	}

	policy, degraded := feasibility.Resolve(groupID, memberIDs, minPlayers)
	result := feasibility.Evaluate(policy, yesA, yesB)

	var pending []string
	for _, m := range members {
		if _, ok := responded[m.ID]; !ok {
			pending = append(pending, m.DisplayName)
		}
	}

	sat, sun := schedule.UpcomingWeekend(s.now().In(loc))
	return PollView{
		Deadline:   deadline,
		Location:   loc,
		DayA:       DayView{Label: "Saturday", Date: sat, Names: namesA, YesCount: result.DayA.YesCount, Feasible: result.DayA.Feasible},
		DayB:       DayView{Label: "Sunday", Date: sun, Names: namesB, YesCount: result.DayB.YesCount, Feasible: result.DayB.Feasible},
		Pending:    pending,
		HasRoster:  len(members) > 0,
		Degraded:   degraded,
		MinPlayers: minPlayers,
		Closed:     closed,
	}, nil
}

// pendingMembers returns the tracked members without any response row, in
// roster order. Shared with the reminder engine.
func pendingMembers(members []Member, responses []domain.Response) []Member {
	responded := make(map[string]struct{}, len(responses))
	for _, r := range responses {
		responded[r.UserID] = struct{}{}
	}
	var out []Member
	for _, m := range members {
		if _, ok := responded[m.ID]; !ok {
			out = append(out, m)
		}
	}
	return out
}
