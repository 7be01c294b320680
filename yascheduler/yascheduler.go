// Package yascheduler defers plugin work.
//
// Schedule runs an action once after a delay of any length, realised as a
// chain of timers no longer than Config.MaxTimerDuration each.
// ScheduleLowPriority queues an action into a batch flushed on a fixed
// interval by a background goroutine.
package yascheduler

import (
	"context"
	"sync"
	"time"
	"weak"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/YaCodeDev/GoYaBotCore/yasubscription"
)

const (
	// DefaultMaxTimerDuration is the longest wait given to a single timer,
	// 2^31-1 milliseconds. Longer delays are chained.
	DefaultMaxTimerDuration = (1<<31 - 1) * time.Millisecond

	DefaultLowPriorityInterval = 15 * time.Second
)

// Action is a unit of deferred work.
type Action func(ctx context.Context) yaerrors.Error

// Config tunes a Scheduler. Zero values are replaced by package defaults.
type Config struct {
	MaxTimerDuration    time.Duration
	LowPriorityInterval time.Duration
}

// Scheduler runs delayed and batched actions.
type Scheduler struct {
	log      yalogger.Logger
	maxTimer time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	batch  []Action
	closed bool

	flushMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Scheduler and starts its low priority flush loop. Actions
// receive a context derived from ctx that is cancelled by Close.
//
// Example usage:
//
//	scheduler := yascheduler.New(ctx, log, yascheduler.Config{})
//	defer scheduler.Close()
func New(ctx context.Context, log yalogger.Logger, config Config) *Scheduler {
	if config.MaxTimerDuration <= 0 {
		config.MaxTimerDuration = DefaultMaxTimerDuration
	}

	if config.LowPriorityInterval <= 0 {
		config.LowPriorityInterval = DefaultLowPriorityInterval
	}

	actionCtx, cancel := context.WithCancel(ctx)

	scheduler := &Scheduler{
		log:      log,
		maxTimer: config.MaxTimerDuration,
		ctx:      actionCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go flushLoop(weak.Make(scheduler), config.LowPriorityInterval, scheduler.done)

	return scheduler
}

// flushLoop runs in its own goroutine and flushes the low priority batch on
// every tick until done is closed or the scheduler is collected.
func flushLoop(pointer weak.Pointer[Scheduler], interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			scheduler := pointer.Value()
			if scheduler == nil {
				return
			}

			_ = scheduler.Flush()
		case <-done:
			return
		}
	}
}

type scheduled struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

// Schedule runs action once after delay. Unsubscribing before it fires
// prevents it from running at any point of the timer chain.
//
// Example usage:
//
//	sub := scheduler.Schedule(func(ctx context.Context) yaerrors.Error {
//		silence.Unsubscribe()
//
//		return nil
//	}, 5*time.Minute)
func (s *Scheduler) Schedule(action Action, delay time.Duration) yasubscription.Subscription {
	state := &scheduled{}

	s.arm(state, action, max(delay, 0))

	return yasubscription.New(func() {
		state.mu.Lock()
		defer state.mu.Unlock()

		state.cancelled = true

		if state.timer != nil {
			state.timer.Stop()
		}
	})
}

func (s *Scheduler) arm(state *scheduled, action Action, remaining time.Duration) {
	step := min(remaining, s.maxTimer)

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.cancelled {
		return
	}

	state.timer = time.AfterFunc(step, func() {
		if left := remaining - step; left > 0 {
			s.arm(state, action, left)

			return
		}

		state.mu.Lock()
		cancelled := state.cancelled
		state.cancelled = true
		state.mu.Unlock()

		if cancelled || s.isClosed() {
			return
		}

		if err := s.run(action); err != nil {
			s.log.Errorf("Scheduled action failed: %v", err)
		}
	})
}

// ScheduleLowPriority queues action for the next flush. Actions queued after
// Close are dropped.
func (s *Scheduler) ScheduleLowPriority(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.log.Warn("Scheduler is closed, dropping low priority action")

		return
	}

	s.batch = append(s.batch, action)
}

// Pending returns the number of queued low priority actions.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.batch)
}

// Flush runs the queued low priority actions sequentially. A failing or
// panicking action is logged and does not stop the rest of the batch. The
// failures are returned joined.
func (s *Scheduler) Flush() yaerrors.Error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.batch
	s.batch = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	s.log.Debugf("Flushing %d low priority actions", len(batch))

	errs := make([]error, 0)

	for _, action := range batch {
		if err := s.run(action); err != nil {
			s.log.Errorf("Low priority action failed: %v", err)

			errs = append(errs, err)
		}
	}

	return yaerrors.Join(errs...)
}

// Close stops the flush loop, runs what is still queued and cancels the
// context handed to actions.
func (s *Scheduler) Close() yaerrors.Error {
	var err yaerrors.Error

	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		err = s.Flush()

		s.cancel()
	})

	return err
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func (s *Scheduler) run(action Action) (err yaerrors.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = yaerrors.FromPanic(r)
		}
	}()

	return action(s.ctx)
}
