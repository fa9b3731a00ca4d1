// Package services – ReminderService.
//
// This file implements the reminder engine: the periodic due-check sweep
// over all active polls and the manually requested reminder. Both share one
// delivery core; they differ only in error policy. The sweep never throws:
// a poll's failure is logged and the sweep moves on. The manual path raises,
// because an administrator is synchronously waiting for the result.
//
// Idempotence: last_sent_at advances only after a confirmed delivery, and
// the due-check compares against it, so two immediately consecutive sweeps
// send at most one reminder.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"sessionbot/internal/domain"
	"sessionbot/internal/repo"
	"sessionbot/internal/settings"
)

// ReminderService dispatches due and manual reminders for active polls.
type ReminderService struct {
	DB       *gorm.DB
	Settings *settings.Store
	Surface  Surface

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

func (s *ReminderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// DeliveryReport summarizes one reminder dispatch for the requester.
type DeliveryReport struct {
	Mode              string
	Recipients        int
	Delivered         int
	Failed            int
	EveryoneResponded bool
}

// SweepDue walks every active poll and delivers a reminder where one is due.
//
// Per poll it (a) backfills a missing tracker seeded with the poll's
// creation time, so the first automatic reminder still waits out a full
// interval; (b) resynchronizes the tracker when the global interval or mode
// drifted, leaving last_sent_at intact; (c) skips polls past their deadline;
// (d) skips polls whose next due time is still ahead; (e) delivers and, only
// on confirmed delivery, advances last_sent_at. Failures are logged per poll
// and never abort the sweep.
func (s *ReminderService) SweepDue(ctx context.Context) {
	polls, err := repo.ListActivePolls(ctx, s.DB, "")
	if err != nil {
		log.Error().Err(err).Msg("sweep: listing active polls failed")
		return
	}
	if len(polls) == 0 {
		return
	}

	interval, err := s.Settings.ReminderIntervalHours(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sweep: reading reminder interval failed")
		return
	}
	mode, err := s.Settings.ReminderDelivery(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sweep: reading delivery mode failed")
		return
	}

	tracked, err := repo.ListActiveReminders(ctx, s.DB)
	if err != nil {
		log.Error().Err(err).Msg("sweep: listing reminder trackers failed")
		return
	}
	trackers := make(map[uint]domain.ReminderTracker, len(tracked))
	for _, ar := range tracked {
		trackers[ar.Tracker.PollID] = ar.Tracker
	}

	now := s.now()
	for i := range polls {
		poll := &polls[i]

		tracker, ok := trackers[poll.ID]
		if !ok {
			created := poll.CreatedAt
			t, err := repo.InitReminder(ctx, s.DB, poll.ID, interval, mode, &created)
			if err != nil {
				log.Error().Err(err).Uint("poll_id", poll.ID).Msg("sweep: tracker backfill failed")
				continue
			}
			tracker = *t
		} else if tracker.IntervalHours != interval || tracker.DeliveryMode != mode {
			if _, err := repo.InitReminder(ctx, s.DB, poll.ID, interval, mode, nil); err != nil {
				log.Error().Err(err).Uint("poll_id", poll.ID).Msg("sweep: tracker resync failed")
				continue
			}
			// last_sent_at is preserved by the upsert; only the local copy
			// of interval/mode needs refreshing.
			tracker.IntervalHours = interval
			tracker.DeliveryMode = mode
		}

		if !poll.Deadline.After(now) {
			continue
		}
		nextDue := tracker.LastSentAt.Add(time.Duration(tracker.IntervalHours) * time.Hour)
		if nextDue.After(now) {
			continue
		}

		report, err := s.deliver(ctx, poll, tracker.DeliveryMode, false)
		if err != nil {
			remindersSent.WithLabelValues(tracker.DeliveryMode, "failed").Inc()
			log.Error().Err(err).Uint("poll_id", poll.ID).Msg("sweep: delivery failed")
			continue
		}
		if report.Delivered == 0 {
			remindersSent.WithLabelValues(tracker.DeliveryMode, "skipped").Inc()
			continue
		}
		remindersSent.WithLabelValues(tracker.DeliveryMode, "delivered").Inc()
		if err := repo.UpdateReminderLastSent(ctx, s.DB, poll.ID, now); err != nil {
			log.Error().Err(err).Uint("poll_id", poll.ID).Msg("sweep: advancing last_sent failed")
		}
	}
}

// SendManual dispatches a reminder for the configured channel's active poll
// immediately, bypassing the due-time check. modeOverride may be empty to
// use the configured delivery mode.
//
// Unlike the sweep it raises on every abnormal condition: no scheduling
// channel, no active poll, an invalid deadline, nobody eligible in
// direct-message mode (ErrEveryoneResponded when the whole tracked group
// already answered, ErrNoRecipients otherwise), or total delivery failure.
func (s *ReminderService) SendManual(ctx context.Context, modeOverride string) (*DeliveryReport, error) {
	channel, err := s.Settings.SchedulingChannel(ctx)
	if err != nil {
		return nil, err
	}
	if channel == "" {
		return nil, ErrNoSchedulingChannel
	}
	poll, err := repo.GetActivePoll(ctx, s.DB, channel)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoActivePoll
	}
	if err != nil {
		return nil, err
	}

	mode := modeOverride
	if mode == "" {
		if mode, err = s.Settings.ReminderDelivery(ctx); err != nil {
			return nil, err
		}
	}

	report, err := s.deliver(ctx, poll, mode, true)
	if err != nil {
		remindersSent.WithLabelValues(mode, "failed").Inc()
		return report, err
	}
	remindersSent.WithLabelValues(mode, "delivered").Inc()
	if err := repo.UpdateReminderLastSent(ctx, s.DB, poll.ID, s.now()); err != nil {
		log.Error().Err(err).Uint("poll_id", poll.ID).Msg("manual reminder: advancing last_sent failed")
	}
	return report, nil
}

// deliver is the shared delivery core. manual selects the strict error
// policy; otherwise "nothing to send" conditions return a zero-delivery
// report without error.
func (s *ReminderService) deliver(ctx context.Context, poll *domain.Poll, mode string, manual bool) (*DeliveryReport, error) {
	if poll.Deadline.IsZero() {
		return nil, ErrInvalidDeadline
	}

	responses, err := repo.ListResponses(ctx, s.DB, poll.ID)
	if err != nil {
		return nil, err
	}

	groupID, err := s.Settings.TrackedGroup(ctx)
	if err != nil {
		return nil, err
	}
	var members []Member
	if groupID != "" {
		members, err = s.Surface.GroupMembers(ctx, groupID)
		if err != nil {
			log.Warn().Err(err).Str("group", groupID).Msg("reminder: tracked group unresolvable")
			members = nil
		}
	}
	pending := pendingMembers(members, responses)
	everyone := len(members) > 0 && len(pending) == 0

	report := &DeliveryReport{Mode: mode, EveryoneResponded: everyone}

	switch mode {
	case domain.DeliveryDM:
		if everyone {
			if manual {
				return report, ErrEveryoneResponded
			}
			return report, nil
		}
		recipients := pending
		if len(members) == 0 {
			if recipients, err = s.optInRecipients(ctx, responses); err != nil {
				return nil, err
			}
		}
		if len(recipients) == 0 {
			if manual {
				return report, ErrNoRecipients
			}
			return report, nil
		}
		report.Recipients = len(recipients)
		for _, m := range recipients {
			text, err := s.directText(ctx, poll, m)
			if err != nil {
				text = s.fallbackText(poll)
			}
			if err := s.Surface.SendDirect(ctx, m.ID, text); err != nil {
				report.Failed++
				dmFailures.Inc()
				log.Warn().Err(err).Str("user", m.ID).Uint("poll_id", poll.ID).Msg("reminder: dm failed")
				continue
			}
			report.Delivered++
		}
		// The operation succeeds if at least one message got through.
		if report.Delivered == 0 {
			return report, ErrDeliveryFailed
		}
		return report, nil

	case domain.DeliveryChannel:
		// The sweep skips the broadcast when the whole group already
		// answered; a manual request always attempts it.
		if everyone && !manual {
			return report, nil
		}
		text, err := s.channelText(ctx, poll, pending)
		if err != nil {
			return nil, err
		}
		if err := s.Surface.SendChannelMessage(ctx, poll.ChannelRef, text); err != nil {
			return report, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
		report.Recipients = 1
		report.Delivered = 1
		return report, nil

	default:
		return nil, fmt.Errorf("unknown delivery mode %q", mode)
	}
}

// optInRecipients returns the DM-opt-in users who have not responded yet,
// used when no tracked group is available.
func (s *ReminderService) optInRecipients(ctx context.Context, responses []domain.Response) ([]Member, error) {
	users, err := repo.ListDMOptInUsers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	responded := make(map[string]struct{}, len(responses))
	for _, r := range responses {
		responded[r.UserID] = struct{}{}
	}
	var out []Member
	for _, u := range users {
		if _, ok := responded[u.UserID]; !ok {
			out = append(out, Member{ID: u.UserID, DisplayName: u.UserID})
		}
	}
	return out, nil
}

// channelText builds the broadcast reminder, naming whoever is still
// pending when the roster is known.
func (s *ReminderService) channelText(ctx context.Context, poll *domain.Poll, pending []Member) (string, error) {
	loc, err := s.Settings.Location(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ Reminder: the weekend availability poll closes %s.",
		poll.Deadline.In(loc).Format("Monday, Jan 2 at 15:04"))
	if len(pending) > 0 {
		names := make([]string, 0, len(pending))
		for _, m := range pending {
			names = append(names, m.DisplayName)
		}
		fmt.Fprintf(&b, "\nStill waiting on: %s", strings.Join(names, ", "))
	}
	b.WriteString("\nPlease tap your availability on the poll above.")
	return b.String(), nil
}

// directText builds the personal reminder, localizing the deadline to the
// recipient's timezone when one is configured.
func (s *ReminderService) directText(ctx context.Context, poll *domain.Poll, m Member) (string, error) {
	loc, err := s.Settings.Location(ctx)
	if err != nil {
		return "", err
	}
	if us, err := repo.GetUserSettings(ctx, s.DB, m.ID); err == nil && us.Timezone != "" {
		if userLoc, err := time.LoadLocation(us.Timezone); err == nil {
			loc = userLoc
		}
	}
	return fmt.Sprintf("⏰ Hi %s — you haven't answered this weekend's availability poll yet. It closes %s (%s). Please vote in the scheduling channel.",
		m.DisplayName, poll.Deadline.In(loc).Format("Monday, Jan 2 at 15:04"), loc.String()), nil
}

func (s *ReminderService) fallbackText(poll *domain.Poll) string {
	return fmt.Sprintf("⏰ Reminder: the weekend availability poll closes %s UTC. Please vote in the scheduling channel.",
		poll.Deadline.UTC().Format("Monday, Jan 2 at 15:04"))
}
