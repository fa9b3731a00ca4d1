// Package scheduler drives the two periodic duties: creating the weekly
// availability poll when its configured slot passes, and sweeping active
// polls for due reminders. One goroutine, one ticker, no external cron.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"sessionbot/internal/services"
	"sessionbot/internal/settings"
)

// Scheduler ticks at a fixed interval and fires the poll-creation and
// reminder-sweep checks on every tick.
type Scheduler struct {
	Polls     *services.PollService
	Reminders *services.ReminderService
	Settings  *settings.Store
	Interval  time.Duration

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time

	lastTick time.Time
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New returns a Scheduler ticking every interval.
func New(polls *services.PollService, reminders *services.ReminderService, st *settings.Store, interval time.Duration) *Scheduler {
	return &Scheduler{
		Polls:     polls,
		Reminders: reminders,
		Settings:  st,
		Interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Start launches the tick loop in its own goroutine.
func (s *Scheduler) Start() {
	s.lastTick = s.now()
	s.wg.Add(1)
	go s.run()
	log.Info().Dur("interval", s.Interval).Msg("scheduler started")
}

// Stop signals the loop to exit and waits for it, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.stopOnce.Do(func() { close(s.stopChan) })
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Tick(context.Background())
		}
	}
}

// Tick runs one scheduler pass: fire the weekly poll if its slot was crossed
// since the previous pass, then sweep reminders.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	prev := s.lastTick
	s.lastTick = now

	if s.slotCrossed(ctx, prev, now) {
		s.createPoll(ctx)
	}
	s.Reminders.SweepDue(ctx)
}

// slotCrossed reports whether the configured weekly poll slot falls in
// (prev, now]. The comparison runs in the configured timezone so a DST shift
// moves the slot with the clock, not against it.
//
// Unlike the deadline rule, a slot later on prev's own day counts: ticks are
// seconds apart and the slot must fire the first tick after its minute.
func (s *Scheduler) slotCrossed(ctx context.Context, prev, now time.Time) bool {
	wd, hour, min, err := s.Settings.PollSchedule(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: reading poll schedule failed")
		return false
	}
	loc, err := s.Settings.Location(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: reading timezone failed")
		return false
	}
	local := prev.In(loc)
	daysAhead := (int(wd) - int(local.Weekday()) + 7) % 7
	day := local.AddDate(0, 0, daysAhead)
	slot := time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, loc)
	if !slot.After(local) {
		slot = slot.AddDate(0, 0, 7)
	}
	return !slot.After(now)
}

func (s *Scheduler) createPoll(ctx context.Context) {
	poll, err := s.Polls.CreateWeekly(ctx)
	switch {
	case errors.Is(err, services.ErrPollExists), errors.Is(err, services.ErrNoSchedulingChannel):
		log.Debug().Err(err).Msg("scheduler: weekly poll not created")
	case err != nil:
		log.Error().Err(err).Msg("scheduler: weekly poll creation failed")
	default:
		log.Info().Uint("poll_id", poll.ID).Msg("scheduler: weekly poll created")
	}
}
