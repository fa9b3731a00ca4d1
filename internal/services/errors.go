// Package services defines the business logic of the poll lifecycle: weekly
// creation, vote recording, closing and purging, and the reminder engine.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Background triggers (the scheduler) treat every one of these as
// log-and-continue; interactive administrative commands translate them into
// user-facing text at the chat layer. Storage failures are not wrapped into
// sentinels: raw gorm errors propagate, per the repo package's contract.
package services

import "errors"

var (
	// ErrNoSchedulingChannel is returned when an operation needs the
	// scheduling channel and none has been configured yet.
	ErrNoSchedulingChannel = errors.New("no scheduling channel configured")

	// ErrChannelUnreachable is returned when the configured channel cannot
	// be resolved on the chat platform.
	ErrChannelUnreachable = errors.New("scheduling channel unreachable")

	// ErrMissingPermissions is returned when the bot lacks the capabilities
	// required to post or edit in the scheduling channel.
	ErrMissingPermissions = errors.New("missing permissions in scheduling channel")

	// ErrPollExists is returned when poll creation finds an active poll
	// already occupying the channel slot.
	ErrPollExists = errors.New("an active poll already exists")

	// ErrNoActivePoll is returned when an operation expects an active poll
	// and the channel has none.
	ErrNoActivePoll = errors.New("no active poll")

	// ErrInvalidDeadline is returned when a poll's stored deadline is
	// unusable (zero value).
	ErrInvalidDeadline = errors.New("poll has an invalid deadline")

	// ErrNoRecipients is returned by manual direct-message reminders when
	// nobody is eligible to receive one.
	ErrNoRecipients = errors.New("no eligible reminder recipients")

	// ErrEveryoneResponded is returned by manual direct-message reminders
	// when the whole tracked group has already responded, so the requester
	// gets an explicit signal instead of a silent skip.
	ErrEveryoneResponded = errors.New("everyone has already responded")

	// ErrDeliveryFailed is returned when a reminder could not be delivered
	// to any recipient at all.
	ErrDeliveryFailed = errors.New("reminder delivery failed")

	// ErrInvalidTimezone is returned when a user supplies a timezone that is
	// not a valid IANA name.
	ErrInvalidTimezone = errors.New("invalid timezone name")
)
