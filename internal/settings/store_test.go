package settings

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sessionbot/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:settings_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Setting{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	s := NewStore(db)
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestSeed_InstallsDefaults(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	day, err := s.Get(ctx, KeyPollDay)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if day != "monday" {
		t.Fatalf("poll_day = %q, want default monday", day)
	}

	channel, err := s.SchedulingChannel(ctx)
	if err != nil {
		t.Fatalf("SchedulingChannel: %v", err)
	}
	if channel != "" {
		t.Fatalf("scheduling_channel = %q, want unset", channel)
	}
}

func TestSet_ValidatesPerKey(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	bad := map[string]string{
		KeyPollDay:           "someday",
		KeyPollTime:          "25:00",
		KeyDeadlineTime:      "noonish",
		KeyMinPlayers:        "0",
		KeyReminderIntervals: "24,-1",
		KeyReminderDelivery:  "carrier-pigeon",
		KeyDefaultTimezone:   "Mars/Olympus",
		"no_such_key":        "x",
	}
	for key, value := range bad {
		if err := s.Set(ctx, key, value); err == nil {
			t.Errorf("Set(%s, %q): expected error", key, value)
		}
	}
}

func TestSet_NormalizesWeekdayAndMode(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, KeyDeadlineDay, "  FRIDAY "); err != nil {
		t.Fatalf("Set deadline_day: %v", err)
	}
	got, err := s.Get(ctx, KeyDeadlineDay)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "friday" {
		t.Fatalf("deadline_day = %q, want normalized friday", got)
	}

	if err := s.Set(ctx, KeyReminderDelivery, "DM"); err != nil {
		t.Fatalf("Set reminder_delivery: %v", err)
	}
	mode, err := s.ReminderDelivery(ctx)
	if err != nil {
		t.Fatalf("ReminderDelivery: %v", err)
	}
	if mode != domain.DeliveryDM {
		t.Fatalf("mode = %q, want dm", mode)
	}
}

func TestTypedGetters(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	n, err := s.MinPlayers(ctx)
	if err != nil || n != 3 {
		t.Fatalf("MinPlayers = %d, %v; want 3", n, err)
	}

	intervals, err := s.ReminderIntervals(ctx)
	if err != nil || len(intervals) != 2 || intervals[0] != 24 || intervals[1] != 48 {
		t.Fatalf("ReminderIntervals = %v, %v; want [24 48]", intervals, err)
	}
	first, err := s.ReminderIntervalHours(ctx)
	if err != nil || first != 24 {
		t.Fatalf("ReminderIntervalHours = %d, %v; want 24", first, err)
	}

	loc, err := s.Location(ctx)
	if err != nil || loc != time.UTC {
		t.Fatalf("Location = %v, %v; want UTC", loc, err)
	}

	wd, hour, min, err := s.DeadlineSchedule(ctx)
	if err != nil {
		t.Fatalf("DeadlineSchedule: %v", err)
	}
	if wd != time.Wednesday || hour != 18 || min != 0 {
		t.Fatalf("deadline slot = %v %02d:%02d, want Wednesday 18:00", wd, hour, min)
	}

	wd, hour, min, err = s.PollSchedule(ctx)
	if err != nil {
		t.Fatalf("PollSchedule: %v", err)
	}
	if wd != time.Monday || hour != 10 || min != 0 {
		t.Fatalf("poll slot = %v %02d:%02d, want Monday 10:00", wd, hour, min)
	}
}

func TestSnapshot_CoversEveryKey(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, KeySchedulingChannel, "-100123"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != len(Keys) {
		t.Fatalf("snapshot has %d keys, want %d", len(snap), len(Keys))
	}
	if snap[KeySchedulingChannel] != "-100123" {
		t.Fatalf("scheduling_channel = %q", snap[KeySchedulingChannel])
	}
	if snap[KeyMinPlayers] != "3" {
		t.Fatalf("min_players = %q, want seeded default", snap[KeyMinPlayers])
	}
}
