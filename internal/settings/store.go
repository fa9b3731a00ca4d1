// Package settings provides typed access to the DB-backed configuration
// table: named keys, static defaults seeded once at startup, validation on
// write, and typed getters for the values other components consume.
//
// Process-level configuration (bot token, ports, log level) lives in the
// config package instead; everything here is mutable at runtime through
// administrative commands.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"sessionbot/internal/domain"
	"sessionbot/internal/repo"
	"sessionbot/internal/schedule"
)

// Setting keys. The config table is shared with nothing else, so the names
// mirror the original deployment's keys one to one.
const (
	KeyPollDay           = "poll_day"
	KeyPollTime          = "poll_time"
	KeyDeadlineDay       = "deadline_day"
	KeyDeadlineTime      = "deadline_time"
	KeyMinPlayers        = "min_players"
	KeyReminderIntervals = "reminder_intervals"
	KeyReminderDelivery  = "reminder_delivery"
	KeyDefaultTimezone   = "default_timezone"
	KeySchedulingChannel = "scheduling_channel"
	KeyTrackedGroup      = "tracked_group"
)

// defaults are seeded once at startup for keys that are unset. Channel and
// group have no sensible default and stay empty until configured.
var defaults = map[string]string{
	KeyPollDay:           "monday",
	KeyPollTime:          "10:00",
	KeyDeadlineDay:       "wednesday",
	KeyDeadlineTime:      "18:00",
	KeyMinPlayers:        "3",
	KeyReminderIntervals: "24,48",
	KeyReminderDelivery:  domain.DeliveryChannel,
	KeyDefaultTimezone:   "UTC",
}

// Store reads and writes the configuration table.
type Store struct {
	DB *gorm.DB
}

// NewStore returns a Store bound to db.
func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// Seed installs the static defaults for any key that has no stored value.
// Existing values are never overwritten.
func (s *Store) Seed(ctx context.Context) error {
	for key, value := range defaults {
		if err := repo.SeedSetting(ctx, s.DB, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the stored value for key, falling back to the static default
// (empty string for keys without one).
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return repo.GetSetting(ctx, s.DB, key, defaults[key])
}

// Set validates value for key and stores it. Unknown keys are rejected so a
// typo in an admin command cannot silently create dead configuration.
func (s *Store) Set(ctx context.Context, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyPollDay, KeyDeadlineDay:
		wd, err := schedule.ParseWeekday(value)
		if err != nil {
			return err
		}
		value = strings.ToLower(wd.String())
	case KeyPollTime, KeyDeadlineTime:
		if _, _, err := schedule.ParseClock(value); err != nil {
			return err
		}
	case KeyMinPlayers:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be an integer >= 1", KeyMinPlayers)
		}
	case KeyReminderIntervals:
		if _, err := parseIntervals(value); err != nil {
			return err
		}
	case KeyReminderDelivery:
		value = strings.ToLower(value)
		if value != domain.DeliveryChannel && value != domain.DeliveryDM {
			return fmt.Errorf("%s must be %q or %q", KeyReminderDelivery, domain.DeliveryChannel, domain.DeliveryDM)
		}
	case KeyDefaultTimezone:
		if _, err := time.LoadLocation(value); err != nil {
			return fmt.Errorf("%s must be an IANA timezone name: %w", KeyDefaultTimezone, err)
		}
	case KeySchedulingChannel, KeyTrackedGroup:
		// opaque platform ids, stored as-is
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return repo.SetSetting(ctx, s.DB, key, value)
}

// SchedulingChannel returns the configured channel ref, empty when unset.
func (s *Store) SchedulingChannel(ctx context.Context) (string, error) {
	return s.Get(ctx, KeySchedulingChannel)
}

// TrackedGroup returns the configured group ref, empty when unset.
func (s *Store) TrackedGroup(ctx context.Context) (string, error) {
	return s.Get(ctx, KeyTrackedGroup)
}

// MinPlayers returns the minimum headcount threshold, never below 1.
func (s *Store) MinPlayers(ctx context.Context) (int, error) {
	raw, err := s.Get(ctx, KeyMinPlayers)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s value %q", KeyMinPlayers, raw)
	}
	return n, nil
}

// ReminderIntervals returns the configured interval list in hours. The first
// entry is the effective sweep interval.
func (s *Store) ReminderIntervals(ctx context.Context) ([]int, error) {
	raw, err := s.Get(ctx, KeyReminderIntervals)
	if err != nil {
		return nil, err
	}
	return parseIntervals(raw)
}

// ReminderIntervalHours returns the effective reminder interval (first of
// the configured list).
func (s *Store) ReminderIntervalHours(ctx context.Context) (int, error) {
	list, err := s.ReminderIntervals(ctx)
	if err != nil {
		return 0, err
	}
	return list[0], nil
}

// ReminderDelivery returns the delivery mode, one of domain.DeliveryChannel
// or domain.DeliveryDM.
func (s *Store) ReminderDelivery(ctx context.Context) (string, error) {
	raw, err := s.Get(ctx, KeyReminderDelivery)
	if err != nil {
		return "", err
	}
	mode := strings.ToLower(strings.TrimSpace(raw))
	if mode != domain.DeliveryChannel && mode != domain.DeliveryDM {
		return "", fmt.Errorf("invalid %s value %q", KeyReminderDelivery, raw)
	}
	return mode, nil
}

// Location returns the default timezone as a *time.Location, falling back to
// UTC if the stored name no longer resolves.
func (s *Store) Location(ctx context.Context) (*time.Location, error) {
	raw, err := s.Get(ctx, KeyDefaultTimezone)
	if err != nil {
		return time.UTC, err
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}

// PollSchedule returns the weekly poll creation slot.
func (s *Store) PollSchedule(ctx context.Context) (time.Weekday, int, int, error) {
	return s.weekdayClock(ctx, KeyPollDay, KeyPollTime)
}

// DeadlineSchedule returns the weekly response deadline slot.
func (s *Store) DeadlineSchedule(ctx context.Context) (time.Weekday, int, int, error) {
	return s.weekdayClock(ctx, KeyDeadlineDay, KeyDeadlineTime)
}

func (s *Store) weekdayClock(ctx context.Context, dayKey, timeKey string) (time.Weekday, int, int, error) {
	rawDay, err := s.Get(ctx, dayKey)
	if err != nil {
		return 0, 0, 0, err
	}
	wd, err := schedule.ParseWeekday(rawDay)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid %s: %w", dayKey, err)
	}
	rawTime, err := s.Get(ctx, timeKey)
	if err != nil {
		return 0, 0, 0, err
	}
	hour, min, err := schedule.ParseClock(rawTime)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid %s: %w", timeKey, err)
	}
	return wd, hour, min, nil
}

// Snapshot returns every known key with its effective value, for the admin
// config overview.
func (s *Store) Snapshot(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(Keys))
	for _, key := range Keys {
		v, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// Keys lists every known setting key in display order.
var Keys = []string{
	KeyPollDay,
	KeyPollTime,
	KeyDeadlineDay,
	KeyDeadlineTime,
	KeyMinPlayers,
	KeyReminderIntervals,
	KeyReminderDelivery,
	KeyDefaultTimezone,
	KeySchedulingChannel,
	KeyTrackedGroup,
}

// parseIntervals parses a comma-separated list of positive hour counts.
func parseIntervals(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("reminder_intervals must be a comma list of positive hours, got %q", raw)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("reminder_intervals must contain at least one value")
	}
	return out, nil
}
