// Package scheduler drives the triggers of a profile on a clock and applies
// their faults.
//
// Faults are applied one at a time, in declaration order, from the goroutine
// that calls Tick. A failing fault is logged and counted and the run goes
// on. Stop always ends with a clear_network_faults pass, whatever state the
// run was in.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"

	"github.com/jihwankim/chaos-scheduler/pkg/core/cleanup"
	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/monitoring/metrics"
	"github.com/jihwankim/chaos-scheduler/pkg/profile"
	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
	"github.com/jihwankim/chaos-scheduler/pkg/triggers"
)

const (
	DefaultTickInterval   = time.Second
	DefaultCleanupTimeout = 30 * time.Second
)

// Config holds the scheduler timings.
type Config struct {
	// TickInterval is the period of the Run loop
	TickInterval time.Duration

	// ApplyTimeout bounds a single fault application. Zero means no bound.
	ApplyTimeout time.Duration

	// CleanupTimeout bounds Stop: waiting for the current tick and the
	// final cleanup pass each get this long.
	CleanupTimeout time.Duration

	// Duration ends Run after this long. Zero runs until cancelled.
	Duration time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.CleanupTimeout <= 0 {
		c.CleanupTimeout = DefaultCleanupTimeout
	}
	return c
}

// FireEvent records one trigger firing.
type FireEvent struct {
	Trigger  string
	Fault    string // declared fault
	Resolved string // fault actually applied, differs for meta-faults
	At       time.Time
	Duration time.Duration
	Err      error
}

// TriggerStats counts the firings of one trigger.
type TriggerStats struct {
	Fires    int
	Failures int
	LastFire time.Time
}

// Result summarizes a finished Run.
type Result struct {
	Profile   string
	StartedAt time.Time
	EndedAt   time.Time
	Reason    string
	Fires     []FireEvent
	Stats     map[string]TriggerStats
	Cleanup   cleanup.CleanupSummary
	Audit     []cleanup.AuditEntry
}

// Stop reasons reported in Result.
const (
	ReasonDuration  = "duration_elapsed"
	ReasonCancelled = "cancelled"
	ReasonStopped   = "stopped"
	ReasonFatal     = "fatal"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock. Tests use clockwork.NewFakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *reporting.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithCleanup sets the coordinator whose CleanupAll runs on Stop.
func WithCleanup(c *cleanup.Coordinator) Option {
	return func(s *Scheduler) {
		s.cleanup = c
	}
}

// WithFireHook registers fn to be called for every firing. Hooks run on the
// ticking goroutine once the tick has released its lock, so a hook may call
// Stop.
func WithFireHook(fn func(FireEvent)) Option {
	return func(s *Scheduler) {
		s.onFire = fn
	}
}

// Scheduler runs one profile once.
type Scheduler struct {
	cfg     Config
	clock   clockwork.Clock
	logger  *reporting.Logger
	metrics *metrics.Recorder
	cleanup *cleanup.Coordinator
	onFire  func(FireEvent)

	// tickLock serializes Tick and the final cleanup. It is a channel so
	// Stop can give up waiting after CleanupTimeout.
	tickLock chan struct{}

	// stopCtx is cancelled by Stop to abort in-flight applies.
	stopCtx    context.Context
	stopCancel context.CancelFunc
	stopping   atomic.Bool
	stopOnce   sync.Once
	stopErr    error
	stopped    chan struct{}

	mu       sync.Mutex
	started  bool
	profile  *profile.Profile
	triggers []triggers.Trigger
	start    time.Time
	lastTick time.Time
	history  []FireEvent
	stats    map[string]TriggerStats
}

// New creates a scheduler. A cleanup coordinator must be provided with
// WithCleanup before Start.
func New(cfg Config, opts ...Option) *Scheduler {
	stopCtx, stopCancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:        cfg.withDefaults(),
		clock:      clockwork.NewRealClock(),
		logger:     reporting.Nop(),
		tickLock:   make(chan struct{}, 1),
		stopCtx:    stopCtx,
		stopCancel: stopCancel,
		stopped:    make(chan struct{}),
		stats:      make(map[string]TriggerStats),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Component("scheduler")
	return s
}

// Start validates p, records the start time and arms every trigger.
// An empty profile is valid and only results in the final cleanup.
func (s *Scheduler) Start(p *profile.Profile) error {
	if p == nil {
		return faults.Configf("profile", "profile is nil")
	}
	if s.cleanup == nil {
		return faults.Configf("cleanup", "no cleanup coordinator configured")
	}
	if s.stopping.Load() {
		return fmt.Errorf("scheduler is stopped")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	s.started = true
	s.profile = p
	s.triggers = p.Triggers()
	s.start = s.clock.Now()
	s.lastTick = s.start
	for _, t := range s.triggers {
		t.Arm(s.start)
		s.stats[t.Name()] = TriggerStats{}
	}

	s.metrics.SetRunning(true)
	s.logger.Info("Scheduler started", "profile", p.Name(), "triggers", len(s.triggers))
	return nil
}

// Tick fires every trigger that is due at now, in declaration order. Fault
// failures are recorded, not returned. The only errors are a tick before
// Start and a clock that went backwards, the latter fatal.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	events, err := s.tick(ctx, now)
	if s.onFire != nil {
		for _, ev := range events {
			s.onFire(ev)
		}
	}
	return err
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) ([]FireEvent, error) {
	if s.stopping.Load() {
		return nil, nil
	}

	select {
	case s.tickLock <- struct{}{}:
	default:
		select {
		case s.tickLock <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.stopCtx.Done():
			return nil, nil
		}
	}
	defer func() { <-s.tickLock }()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, fmt.Errorf("tick before start")
	}
	if now.Before(s.lastTick) {
		last := s.lastTick
		s.mu.Unlock()
		return nil, fatalf("clock went backwards: tick at %s after %s", now.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
	}
	s.lastTick = now
	trigs := s.triggers
	s.mu.Unlock()

	var events []FireEvent
	for _, t := range trigs {
		if s.stopping.Load() {
			s.logger.Debug("Stop requested, skipping remaining triggers")
			return events, nil
		}
		if !t.Due(now) {
			continue
		}
		events = append(events, s.fire(ctx, t, now))
	}
	return events, nil
}

func (s *Scheduler) fire(ctx context.Context, t triggers.Trigger, now time.Time) FireEvent {
	declared := t.Fault()
	resolved := declared
	if r, ok := declared.(faults.Resolver); ok {
		resolved = r.Resolve()
	}

	applyCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatch := context.AfterFunc(s.stopCtx, cancel)
	defer stopWatch()
	if s.cfg.ApplyTimeout > 0 {
		var cancelTimeout context.CancelFunc
		applyCtx, cancelTimeout = context.WithTimeout(applyCtx, s.cfg.ApplyTimeout)
		defer cancelTimeout()
	}

	began := s.clock.Now()
	err := s.apply(applyCtx, resolved)
	elapsed := s.clock.Since(began)

	// A OneShot is consumed even when its fault failed.
	t.Fired(now)

	if err != nil {
		var appErr *faults.FaultApplicationError
		if !errors.As(err, &appErr) {
			err = &faults.FaultApplicationError{Fault: resolved.Name(), Op: "apply", Err: err}
		}
		s.logger.Error("Fault application failed",
			"trigger", t.Name(),
			"fault", resolved.Name(),
			"error", err,
		)
	} else {
		s.logger.Info("Fault applied",
			"trigger", t.Name(),
			"fault", resolved.Name(),
			"duration", elapsed,
		)
	}
	s.metrics.ObserveApply(t.Name(), resolved.Name(), elapsed, err)

	event := FireEvent{
		Trigger:  t.Name(),
		Fault:    declared.Name(),
		Resolved: resolved.Name(),
		At:       now,
		Duration: elapsed,
		Err:      err,
	}

	s.mu.Lock()
	s.history = append(s.history, event)
	st := s.stats[t.Name()]
	st.Fires++
	st.LastFire = now
	if err != nil {
		st.Failures++
	}
	s.stats[t.Name()] = st
	s.mu.Unlock()

	return event
}

// apply runs f.Apply and reports a panic as an error.
func (s *Scheduler) apply(ctx context.Context, f faults.Fault) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", f.Name(), r)
		}
	}()
	return f.Apply(ctx)
}

// Stop cancels in-flight applies, waits for the current tick to finish and
// runs the cleanup pass. Only the first call does work; later calls return
// its result.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		s.stopCancel()

		s.logger.Info("Stopping scheduler")
		locked := s.acquireForStop()
		if !locked {
			s.logger.Warn("Tick did not finish in time, cleaning up anyway", "timeout", s.cfg.CleanupTimeout)
		}

		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CleanupTimeout)
		defer cancel()

		if s.cleanup != nil {
			s.stopErr = s.cleanup.CleanupAll(cleanupCtx)
			s.metrics.ObserveCleanup(s.stopErr)
			if s.stopErr != nil {
				s.logger.Error("Final cleanup failed", "error", s.stopErr)
			}
		}

		s.metrics.SetRunning(false)
		if locked {
			<-s.tickLock
		}
		close(s.stopped)
		s.logger.Info("Scheduler stopped")
	})
	return s.stopErr
}

// acquireForStop takes the tick lock, waiting at most CleanupTimeout of
// wall time. The fake clock is not used here so a stuck fault cannot hang
// Stop in tests either.
func (s *Scheduler) acquireForStop() bool {
	timer := time.NewTimer(s.cfg.CleanupTimeout)
	defer timer.Stop()

	select {
	case s.tickLock <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// Stopped is closed once Stop has finished.
func (s *Scheduler) Stopped() <-chan struct{} {
	return s.stopped
}

// Run starts p, ticks immediately and then every TickInterval until ctx is
// cancelled, Duration elapses or Stop is called. Cleanup runs on every
// exit path, including a panic inside a fire hook.
func (s *Scheduler) Run(ctx context.Context, p *profile.Profile) (result *Result, err error) {
	if err := s.Start(p); err != nil {
		return nil, err
	}

	reason := ReasonStopped
	defer func() {
		if r := recover(); r != nil {
			err = fatalf("panic during run: %v", r)
			s.logger.Error("Recovered from panic", "panic", fmt.Sprint(r))
		}
		if err != nil {
			reason = ReasonFatal
		}

		stopErr := s.Stop(context.WithoutCancel(ctx))
		err = multierr.Append(err, stopErr)
		result = s.result(reason)
	}()

	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.cfg.Duration > 0 {
		deadline = s.clock.After(s.cfg.Duration)
	}

	now := s.StartedAt()
	for {
		if err := s.Tick(ctx, now); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				reason = ReasonCancelled
				return nil, nil
			}
			return nil, err
		}

		select {
		case <-ctx.Done():
			reason = ReasonCancelled
			return nil, nil
		case <-s.stopCtx.Done():
			reason = ReasonStopped
			return nil, nil
		case <-deadline:
			reason = ReasonDuration
			return nil, nil
		case now = <-ticker.Chan():
		}
	}
}

func (s *Scheduler) result(reason string) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{
		StartedAt: s.start,
		EndedAt:   s.clock.Now(),
		Reason:    reason,
		Fires:     append([]FireEvent(nil), s.history...),
		Stats:     s.statsLocked(),
	}
	if s.profile != nil {
		res.Profile = s.profile.Name()
	}
	if s.cleanup != nil {
		res.Cleanup = s.cleanup.GetSummary()
		res.Audit = s.cleanup.GetAuditLog()
	}
	return res
}

// History returns every firing so far.
func (s *Scheduler) History() []FireEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FireEvent(nil), s.history...)
}

// Stats returns per-trigger counters keyed by trigger name.
func (s *Scheduler) Stats() map[string]TriggerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Scheduler) statsLocked() map[string]TriggerStats {
	out := make(map[string]TriggerStats, len(s.stats))
	for k, v := range s.stats {
		out[k] = v
	}
	return out
}

// StartedAt returns the run start time, zero before Start.
func (s *Scheduler) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}
