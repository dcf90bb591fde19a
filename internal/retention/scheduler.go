// Package retention schedules the daily deletion sweep over the log stores.
//
// The firing time is a wall-clock time of day in a configured source
// timezone. Both are parsed exactly once, at configuration load, into a
// Schedule that is passed to the Scheduler constructor; nothing here reads
// ambient global state.
package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ayumu837/guildlog/internal/errors"
	"github.com/ayumu837/guildlog/internal/logging"
	"github.com/ayumu837/guildlog/internal/logstore"
)

// Sweeper is one store's retention entry point.
type Sweeper interface {
	Name() string
	SweepExpired(today time.Time) logstore.SweepResult
}

// Schedule is the daily firing time.
type Schedule struct {
	Hour   int
	Minute int
	Loc    *time.Location
}

// ParseSchedule resolves an "HH:MM" time of day and an IANA timezone name
// into a Schedule. Call it once at startup.
func ParseSchedule(at, timezone string) (Schedule, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Schedule{}, errors.Wrapf(err, "load timezone %q", timezone)
	}

	tod, err := time.Parse("15:04", at)
	if err != nil {
		return Schedule{}, errors.Wrapf(errors.ErrBadTimeOfDay, "%q", at)
	}

	return Schedule{Hour: tod.Hour(), Minute: tod.Minute(), Loc: loc}, nil
}

// Next returns the first firing time strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	local := now.In(s.Loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.Loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Scheduler fires every registered sweeper once per day at the scheduled
// time. A failed firing is logged and does not cancel future firings.
type Scheduler struct {
	schedule Schedule
	sweepers []Sweeper
	now      func() time.Time
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler over the given sweepers.
func NewScheduler(schedule Schedule, sweepers ...Sweeper) *Scheduler {
	return &Scheduler{
		schedule: schedule,
		sweepers: sweepers,
		now:      time.Now,
		log:      logging.Component("retention"),
	}
}

// Start launches the firing loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.log.Info("scheduler started",
		"at", s.schedule.Next(s.now()), "sweepers", len(s.sweepers))
	return nil
}

// Stop cancels future firings and waits for the loop to exit. An
// in-progress sweep finishes its current pass: cancellation is checked
// between firings only, which is acceptable because a sweep is a bounded
// local directory walk.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		now := s.now()
		timer := time.NewTimer(s.schedule.Next(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce()
		}
	}
}

// RunOnce executes one sweep over every registered store, with "today"
// taken in the schedule's timezone.
func (s *Scheduler) RunOnce() {
	today := s.now().In(s.schedule.Loc)

	for _, sw := range s.sweepers {
		result := sw.SweepExpired(today)

		for _, path := range result.Deleted {
			s.log.Info("partition removed", "store", sw.Name(), "path", path)
		}
		if result.Skipped > 0 {
			s.log.Warn("unrecognized files skipped",
				"store", sw.Name(), "count", result.Skipped)
		}
		for _, err := range result.Errors {
			s.log.Error("sweep error", "store", sw.Name(), "error", err)
		}
	}
}
