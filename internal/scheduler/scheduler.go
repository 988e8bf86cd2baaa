// Package scheduler periodically dispatches an external sync while staged
// derivatives are pending.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mediasync/internal/dispatch"
	"mediasync/internal/domain"
	"mediasync/internal/infra"
	"mediasync/internal/staging"
)

const (
	// DefaultInterval is used when Options.Interval is not positive.
	DefaultInterval = time.Hour
	// DefaultStandbyRetry is how often a standby loop retries the lock.
	DefaultStandbyRetry = 30 * time.Second
)

// Options configures a Scheduler.
type Options struct {
	Store      staging.Store
	Dispatcher dispatch.Dispatcher
	Interval   time.Duration
	// LockPath, when set, names a file the running loop keeps locked until it
	// stops. Only the owner dispatches; other loops on the same staging root
	// stand by and take over when the owner exits.
	LockPath string
	// ManualMarkPath, when set, is touched by Notify. The owning loop reads
	// it before each tick, so a manual sync from any process postpones it.
	ManualMarkPath string
	StandbyRetry   time.Duration
	Logger         *infra.Logger
	Now            func() time.Time
}

// TickResult reports what a single tick did.
type TickResult struct {
	Pending    int
	Dispatched bool
	Skipped    bool
	Receipt    *dispatch.Receipt
}

// Scheduler runs the automatic sync loop.
type Scheduler struct {
	store        staging.Store
	dispatcher   dispatch.Dispatcher
	interval     time.Duration
	standbyRetry time.Duration
	lock         *flock.Flock
	markPath     string
	logger       infra.Logger
	now          func() time.Time

	reset   chan struct{}
	running atomic.Bool
	owner   atomic.Bool
	active  atomic.Bool
	nextRun atomic.Int64
}

// New validates opts and returns an idle scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil || opts.Dispatcher == nil {
		return nil, errors.New("scheduler: store and dispatcher are required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	standbyRetry := opts.StandbyRetry
	if standbyRetry <= 0 {
		standbyRetry = DefaultStandbyRetry
	}
	s := &Scheduler{
		store:        opts.Store,
		dispatcher:   opts.Dispatcher,
		interval:     interval,
		standbyRetry: standbyRetry,
		markPath:     opts.ManualMarkPath,
		logger:       infra.LoggerOrDiscard(opts.Logger),
		now:          now,
		reset:        make(chan struct{}, 1),
	}
	if opts.LockPath != "" {
		s.lock = flock.New(opts.LockPath)
	}
	return s, nil
}

// Interval is the configured tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Notify asks the loop to restart its countdown, typically right after a
// manual dispatch. It never blocks; a pending request absorbs new ones.
func (s *Scheduler) Notify() {
	select {
	case s.reset <- struct{}{}:
	default:
	}
	if s.markPath != "" {
		if err := touch(s.markPath, s.now()); err != nil {
			s.logger.Warn().Err(err).Str("path", s.markPath).Msg("scheduler: record manual sync")
		}
	}
}

// Active reports whether this scheduler's loop runs and owns the countdown.
func (s *Scheduler) Active() bool {
	return s.active.Load()
}

// NextRun estimates when the next automatic tick fires.
func (s *Scheduler) NextRun() time.Time {
	if next := s.nextRun.Load(); next != 0 {
		return time.Unix(0, next)
	}
	return s.now().Add(s.interval)
}

// Run blocks until ctx is cancelled, ticking every interval.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scheduler: already running")
	}
	defer s.running.Store(false)

	if err := s.awaitOwnership(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("scheduler: release lock")
		}
	}()
	s.active.Store(true)
	defer s.active.Store(false)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	s.scheduleNext()
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler: automatic sync started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler: automatic sync stopped")
			return ctx.Err()
		case <-s.reset:
			timer.Reset(s.interval)
			s.scheduleNext()
			s.logger.Debug().Time("next_run", s.NextRun()).Msg("scheduler: countdown reset")
		case <-timer.C:
			if until := s.postponedUntil(); !until.IsZero() {
				timer.Reset(until.Sub(s.now()))
				s.nextRun.Store(until.UnixNano())
				s.logger.Debug().Time("next_run", until).Msg("scheduler: manual sync seen, tick postponed")
				continue
			}
			if _, err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("scheduler: automatic sync failed")
			}
			timer.Reset(s.interval)
			s.scheduleNext()
		}
	}
}

// Tick checks the staging area once and dispatches when files are pending.
// With a lock configured, the first successful Tick keeps the lock until
// Close; a scheduler that cannot get it skips.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	ok, err := s.acquire()
	if err != nil {
		return TickResult{}, err
	}
	if !ok {
		s.logger.Debug().Str("lock", s.lock.Path()).Msg("scheduler: another scheduler owns this staging root")
		return TickResult{Skipped: true}, nil
	}

	counts, err := staging.Count(ctx, s.store)
	if err != nil {
		return TickResult{}, fmt.Errorf("scheduler: count staged files: %w", err)
	}
	result := TickResult{Pending: counts.Total()}
	if result.Pending == 0 {
		s.logger.Debug().Msg("scheduler: nothing staged")
		return result, nil
	}

	receipt, err := s.dispatcher.Dispatch(ctx, dispatch.Event{Source: domain.SyncSourceAutomatic, PendingCount: result.Pending})
	if err != nil {
		return result, err
	}
	result.Dispatched = true
	result.Receipt = receipt
	s.logger.Info().
		Int("thumbnails", counts.Thumbnails).
		Int("large", counts.Large).
		Str("dispatch_id", receipt.DispatchID).
		Msg("scheduler: automatic sync dispatched")
	return result, nil
}

// Close releases the staging lock if this scheduler holds it.
func (s *Scheduler) Close() error {
	if s.lock == nil || !s.owner.CompareAndSwap(true, false) {
		return nil
	}
	return s.lock.Unlock()
}

func (s *Scheduler) acquire() (bool, error) {
	if s.lock == nil || s.owner.Load() {
		return true, nil
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("scheduler: acquire lock: %w", err)
	}
	if ok {
		s.owner.Store(true)
	}
	return ok, nil
}

func (s *Scheduler) awaitOwnership(ctx context.Context) error {
	standby := false
	for {
		ok, err := s.acquire()
		if err != nil {
			return err
		}
		if ok {
			if standby {
				s.logger.Info().Str("lock", s.lock.Path()).Msg("scheduler: took over automatic sync")
			}
			return nil
		}
		if !standby {
			standby = true
			s.logger.Info().Str("lock", s.lock.Path()).Msg("scheduler: another scheduler owns this staging root, standing by")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.standbyRetry):
		}
	}
}

// postponedUntil returns when a recent manual sync allows the next automatic
// one, or the zero time.
func (s *Scheduler) postponedUntil() time.Time {
	if s.markPath == "" {
		return time.Time{}
	}
	info, err := os.Stat(s.markPath)
	if err != nil {
		return time.Time{}
	}
	until := info.ModTime().Add(s.interval)
	if until.After(s.now()) {
		return until
	}
	return time.Time{}
}

func touch(path string, at time.Time) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chtimes(path, at, at)
}

func (s *Scheduler) scheduleNext() {
	s.nextRun.Store(s.now().Add(s.interval).UnixNano())
}
