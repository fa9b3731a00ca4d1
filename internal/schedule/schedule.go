// Package schedule holds the pure week-slot arithmetic behind poll creation
// and deadlines: weekday/clock parsing and "next occurrence of weekday at
// HH:MM" with a strictly-future guarantee.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseWeekday maps a lowercase-insensitive English weekday name to
// time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return wd, nil
}

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM (24h)", s)
	}
	return hour, minute, nil
}

// NextOccurrence returns the next wd at hour:minute strictly after now, in
// now's location. The window is always (0, 7] days ahead: when the target
// weekday equals today's, the slot rolls to next week even if today's
// HH:MM has not been reached yet. This mirrors the deadline rule the poll
// cycle has always used, so a poll created on its deadline weekday gets the
// following week's deadline, never a same-day (or same-moment) one.
func NextOccurrence(now time.Time, wd time.Weekday, hour, minute int) time.Time {
	daysAhead := int(wd) - int(now.Weekday())
	if daysAhead <= 0 {
		daysAhead += 7
	}
	day := now.AddDate(0, 0, daysAhead)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
}

// UpcomingWeekend returns the Saturday and Sunday of the weekend the poll is
// asking about: the next Saturday on or after now, and the day after it.
func UpcomingWeekend(now time.Time) (sat, sun time.Time) {
	daysAhead := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
	sat = now.AddDate(0, 0, daysAhead)
	sat = time.Date(sat.Year(), sat.Month(), sat.Day(), 0, 0, 0, 0, now.Location())
	return sat, sat.AddDate(0, 0, 1)
}
