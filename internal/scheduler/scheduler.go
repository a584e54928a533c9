// Package scheduler runs recurring transaction definitions. A single
// fixed-interval loop, aligned to the top of the hour, scans due definitions
// and fires each one through the store's atomic fire-and-advance operation.
// Passes never overlap: a tick that arrives while a pass is still running is
// skipped. This is in-process coordination only; running multiple server
// instances against one database needs an external lock and is not built
// here.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/recurrence"
	"github.com/centavoapp/centavo/internal/store"
)

// Clock abstracts wall-clock time so tests drive the schedule directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the production clock.
func SystemClock() Clock { return systemClock{} }

// RunSummary describes one completed scheduler pass.
type RunSummary struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Due       int           `json:"due"`
	Fired     int           `json:"fired"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
}

// Status is the operator-facing scheduler state.
type Status struct {
	IsRunning bool        `json:"is_running"`
	LastRunAt *time.Time  `json:"last_run_at,omitempty"`
	LastRun   *RunSummary `json:"last_run,omitempty"`
}

// Scheduler periodically executes due recurring definitions.
type Scheduler struct {
	store      store.RecurringStore
	log        zerolog.Logger
	clock      Clock
	interval   time.Duration
	runTimeout time.Duration

	// passMu is the single-flight guard: held for the duration of a pass.
	passMu sync.Mutex

	mu      sync.RWMutex
	running bool
	lastRun *RunSummary
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock injects a clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithInterval overrides the tick interval (default one hour).
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithRunTimeout bounds a single pass (default 10 minutes) so a stuck
// dependency cannot block subsequent ticks forever.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.runTimeout = d }
}

// New creates a scheduler over the recurring store.
func New(st store.RecurringStore, log zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:      st,
		log:        log.With().Str("component", "scheduler").Logger(),
		clock:      systemClock{},
		interval:   time.Hour,
		runTimeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// untilNextBoundary returns the wait from now until the next
// interval-aligned instant. An instant already on the boundary waits a full
// interval.
func untilNextBoundary(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

// Start runs the tick loop until ctx is cancelled. The first pass fires at
// the next interval boundary (top of the hour for the default interval).
func (s *Scheduler) Start(ctx context.Context) {
	first := untilNextBoundary(s.clock.Now(), s.interval)
	s.log.Info().
		Dur("interval", s.interval).
		Dur("first_tick_in", first).
		Msg("scheduler started")

	timer := time.NewTimer(first)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduler pass failed")
	}
}

// ErrPassInProgress is returned when RunNow is called while a pass runs.
var ErrPassInProgress = errors.New("scheduler pass already in progress")

// RunNow executes one due-scan pass immediately. It is the same logic the
// timer runs, exposed for operator recovery after downtime: the <= now scan
// picks up every window missed while the process was stopped.
func (s *Scheduler) RunNow(ctx context.Context) (*RunSummary, error) {
	if !s.passMu.TryLock() {
		return nil, ErrPassInProgress
	}
	defer s.passMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	s.setRunning(true)
	defer s.setRunning(false)

	now := s.clock.Now()
	summary := &RunSummary{StartedAt: now}

	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return nil, err
	}
	summary.Due = len(due)

	// Sequential on purpose: per-definition failure isolation stays simple
	// and per-user definition counts are small.
	for _, def := range due {
		if ctx.Err() != nil {
			s.log.Warn().Msg("pass cancelled before finishing due definitions")
			break
		}
		switch err := s.fire(ctx, def); {
		case err == nil:
			summary.Fired++
			if s.completes(def) {
				summary.Completed++
			}
		case errors.Is(err, errExpired):
			summary.Completed++
		case errors.Is(err, domain.ErrConflict):
			// Another writer advanced or paused the definition after our
			// scan; its occurrence was handled elsewhere.
			summary.Skipped++
		default:
			summary.Failed++
			s.log.Error().Err(err).
				Str("definition_id", def.ID.String()).
				Msg("recurring definition failed; continuing with remaining definitions")
		}
	}

	summary.Duration = s.clock.Now().Sub(now)
	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	s.log.Info().
		Int("due", summary.Due).
		Int("fired", summary.Fired).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Dur("duration", summary.Duration).
		Msg("scheduler pass finished")
	return summary, nil
}

// errExpired marks a due definition whose window already passed its end
// date; it is deactivated without producing a transaction.
var errExpired = domain.Invalid("end_date", "definition expired")

// completes reports whether firing def's current occurrence ends the
// schedule.
func (s *Scheduler) completes(def *domain.RecurringTransaction) bool {
	sched := recurrence.FromDefinition(def)
	_, ok := sched.Next(*def.NextExecutionAt)
	return !ok
}

// fire posts one due occurrence and advances the definition, all inside one
// store-level unit so a crash between the two steps cannot double-fire.
func (s *Scheduler) fire(ctx context.Context, def *domain.RecurringTransaction) error {
	dueAt := *def.NextExecutionAt
	sched := recurrence.FromDefinition(def)

	// An edit can push end_date behind an already-scheduled occurrence;
	// complete the definition instead of firing past its end.
	if sched.Expired(dueAt) {
		if err := s.store.SetRecurringActive(ctx, def.OwnerID, def.ID, false, nil); err != nil {
			return err
		}
		return errExpired
	}

	next, ok := sched.Next(dueAt)
	var nextPtr *time.Time
	if ok {
		nextPtr = &next
	}
	produced := def.Template(dueAt)
	if err := s.store.FireRecurring(ctx, def, produced, nextPtr, ok); err != nil {
		return err
	}

	event := s.log.Info().
		Str("definition_id", def.ID.String()).
		Str("transaction_id", produced.ID.String()).
		Time("due_at", dueAt)
	if ok {
		event = event.Time("next_execution_at", next)
	} else {
		event = event.Bool("completed", true)
	}
	event.Msg("recurring definition fired")
	return nil
}

func (s *Scheduler) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

// Status returns the operator view of the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{IsRunning: s.running}
	if s.lastRun != nil {
		run := *s.lastRun
		st.LastRun = &run
		at := run.StartedAt
		st.LastRunAt = &at
	}
	return st
}
