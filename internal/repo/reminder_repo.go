// Package repo – ReminderTracker repository.
//
// Trackers are 1:1 with active polls. The tricky contract is InitReminder:
// creating a tracker that already exists must update its interval and mode
// but preserve the existing last-sent timestamp, so that re-initializing a
// tracker (after a config change mid-poll) never regresses "time since last
// send" and never causes an immediate re-nag.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sessionbot/internal/domain"
)

// InitReminder creates or updates the tracker for pollID. On a fresh insert,
// lastSent seeds last_sent_at (nil means "now"). On conflict only the
// interval and delivery mode are rewritten; last_sent_at is left untouched.
func InitReminder(ctx context.Context, db *gorm.DB, pollID uint, intervalHours int, deliveryMode string, lastSent *time.Time) (*domain.ReminderTracker, error) {
	seed := time.Now().UTC()
	if lastSent != nil {
		seed = lastSent.UTC()
	}
	t := &domain.ReminderTracker{
		PollID:        pollID,
		LastSentAt:    seed,
		IntervalHours: intervalHours,
		DeliveryMode:  deliveryMode,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"interval_hours", "delivery_mode"}),
		}).
		Create(t).Error
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetReminder returns the tracker for pollID, or ErrNotFound.
func GetReminder(ctx context.Context, db *gorm.DB, pollID uint) (*domain.ReminderTracker, error) {
	var t domain.ReminderTracker
	if err := db.WithContext(ctx).First(&t, "poll_id = ?", pollID).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateReminderLastSent advances the tracker's last-sent timestamp. Callers
// invoke this only after a confirmed delivery.
func UpdateReminderLastSent(ctx context.Context, db *gorm.DB, pollID uint, sentAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.ReminderTracker{}).
		Where("poll_id = ?", pollID).
		Update("last_sent_at", sentAt.UTC()).Error
}

// DeleteReminder removes the tracker for pollID. Deleting a missing tracker
// is a no-op.
func DeleteReminder(ctx context.Context, db *gorm.DB, pollID uint) error {
	return db.WithContext(ctx).
		Delete(&domain.ReminderTracker{}, "poll_id = ?", pollID).Error
}

// ActiveReminder is the joined view of an active poll and its tracker,
// consumed by the reminder sweep.
type ActiveReminder struct {
	Poll    domain.Poll
	Tracker domain.ReminderTracker
}

// ListActiveReminders returns the tracker of every active poll, joined with
// its poll row, ordered by poll creation time. Active polls whose tracker is
// missing do not appear here; the sweep backfills those separately.
func ListActiveReminders(ctx context.Context, db *gorm.DB) ([]ActiveReminder, error) {
	type row struct {
		PollID        uint
		LastSentAt    time.Time
		IntervalHours int
		DeliveryMode  string
		MessageRef    string
		ChannelRef    string
		CreatedAt     time.Time
		Deadline      time.Time
	}
	var rows []row
	err := db.WithContext(ctx).
		Model(&domain.ReminderTracker{}).
		Select("reminder_trackers.poll_id, reminder_trackers.last_sent_at, reminder_trackers.interval_hours, reminder_trackers.delivery_mode, "+
			"polls.message_ref, polls.channel_ref, polls.created_at, polls.deadline").
		Joins("JOIN polls ON polls.id = reminder_trackers.poll_id").
		Where("polls.active = ?", true).
		Order("polls.created_at asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ActiveReminder, 0, len(rows))
	for _, r := range rows {
		out = append(out, ActiveReminder{
			Poll: domain.Poll{
				ID:         r.PollID,
				MessageRef: r.MessageRef,
				ChannelRef: r.ChannelRef,
				CreatedAt:  r.CreatedAt,
				Deadline:   r.Deadline,
				Active:     true,
			},
			Tracker: domain.ReminderTracker{
				PollID:        r.PollID,
				LastSentAt:    r.LastSentAt,
				IntervalHours: r.IntervalHours,
				DeliveryMode:  r.DeliveryMode,
			},
		})
	}
	return out, nil
}
