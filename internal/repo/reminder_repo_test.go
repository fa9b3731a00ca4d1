package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"sessionbot/internal/domain"
)

func TestInitReminder_SeedsLastSent(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{}, &domain.ReminderTracker{})
	ctx := context.Background()

	seed := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	tr, err := InitReminder(ctx, db, 1, 24, domain.DeliveryChannel, &seed)
	if err != nil {
		t.Fatalf("InitReminder: %v", err)
	}
	if !tr.LastSentAt.Equal(seed) {
		t.Fatalf("LastSentAt = %v, want seed %v", tr.LastSentAt, seed)
	}
}

func TestInitReminder_ConflictPreservesLastSent(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{}, &domain.ReminderTracker{})
	ctx := context.Background()

	seed := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	if _, err := InitReminder(ctx, db, 1, 24, domain.DeliveryChannel, &seed); err != nil {
		t.Fatalf("first InitReminder: %v", err)
	}

	// Re-init with different interval and mode, as happens after a config
	// change mid-poll.
	if _, err := InitReminder(ctx, db, 1, 48, domain.DeliveryDM, nil); err != nil {
		t.Fatalf("second InitReminder: %v", err)
	}

	got, err := GetReminder(ctx, db, 1)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if got.IntervalHours != 48 || got.DeliveryMode != domain.DeliveryDM {
		t.Fatalf("tracker = %+v, want interval 48 and dm mode", got)
	}
	if !got.LastSentAt.Equal(seed) {
		t.Fatalf("LastSentAt = %v, want preserved seed %v", got.LastSentAt, seed)
	}
}

func TestUpdateReminderLastSent(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{}, &domain.ReminderTracker{})
	ctx := context.Background()

	seed := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	if _, err := InitReminder(ctx, db, 1, 24, domain.DeliveryChannel, &seed); err != nil {
		t.Fatalf("InitReminder: %v", err)
	}

	sent := seed.Add(25 * time.Hour)
	if err := UpdateReminderLastSent(ctx, db, 1, sent); err != nil {
		t.Fatalf("UpdateReminderLastSent: %v", err)
	}

	got, err := GetReminder(ctx, db, 1)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if !got.LastSentAt.Equal(sent) {
		t.Fatalf("LastSentAt = %v, want %v", got.LastSentAt, sent)
	}
}

func TestDeleteReminder_MissingIsNoop(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{}, &domain.ReminderTracker{})
	ctx := context.Background()

	if err := DeleteReminder(ctx, db, 7); err != nil {
		t.Fatalf("DeleteReminder on missing tracker: %v", err)
	}

	if _, err := InitReminder(ctx, db, 7, 24, domain.DeliveryChannel, nil); err != nil {
		t.Fatalf("InitReminder: %v", err)
	}
	if err := DeleteReminder(ctx, db, 7); err != nil {
		t.Fatalf("DeleteReminder: %v", err)
	}
	if _, err := GetReminder(ctx, db, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}

func TestListActiveReminders_JoinsOnlyActivePolls(t *testing.T) {
	db := newRepoDB(t, &domain.Poll{}, &domain.ReminderTracker{})
	ctx := context.Background()

	deadline := time.Date(2026, 9, 2, 18, 0, 0, 0, time.UTC)
	active, err := CreatePoll(ctx, db, "m1", "c1", deadline)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	closed, err := CreatePoll(ctx, db, "m2", "c2", deadline)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if err := ClosePoll(ctx, db, closed.ID); err != nil {
		t.Fatalf("ClosePoll: %v", err)
	}

	seed := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	for _, id := range []uint{active.ID, closed.ID} {
		if _, err := InitReminder(ctx, db, id, 24, domain.DeliveryChannel, &seed); err != nil {
			t.Fatalf("InitReminder(%d): %v", id, err)
		}
	}

	out, err := ListActiveReminders(ctx, db)
	if err != nil {
		t.Fatalf("ListActiveReminders: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d reminders, want 1", len(out))
	}
	if out[0].Poll.ID != active.ID || out[0].Poll.ChannelRef != "c1" {
		t.Fatalf("joined poll = %+v, want the active c1 poll", out[0].Poll)
	}
	if out[0].Tracker.IntervalHours != 24 || !out[0].Tracker.LastSentAt.Equal(seed) {
		t.Fatalf("joined tracker = %+v", out[0].Tracker)
	}
	if !out[0].Poll.Deadline.Equal(deadline) {
		t.Fatalf("joined deadline = %v, want %v", out[0].Poll.Deadline, deadline)
	}
}
