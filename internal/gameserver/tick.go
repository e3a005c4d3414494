package gameserver

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrLoopStopped is returned by Do when the tick loop is not running.
var ErrLoopStopped = errors.New("tick loop stopped")

// TickClock is the monotonic game tick counter.
type TickClock struct {
	now atomic.Int64
}

// NewTickClock returns a clock starting at start.
func NewTickClock(start int64) *TickClock {
	c := &TickClock{}
	c.now.Store(start)
	return c
}

// Now returns the current tick.
func (c *TickClock) Now() int64 { return c.now.Load() }

// Advance moves the clock forward one tick and returns the new value.
func (c *TickClock) Advance() int64 { return c.now.Add(1) }

// TickLoop is the single writer of law state. Every interval it advances the
// clock, drains queued tasks and then invokes each registered tick callback
// in registration order.
//
// Invariant: callbacks and tasks never run concurrently with each other.
type TickLoop struct {
	interval time.Duration
	clock    *TickClock
	logger   *zap.Logger

	mu      sync.Mutex
	ticks   map[string]func(now int64)
	order   map[string]int
	nextSeq int

	tasks   chan func()
	running atomic.Bool
	stopped chan struct{}
	cancel  context.CancelFunc
}

// NewTickLoop returns a loop that fires every interval.
//
// Precondition: interval must be > 0; clock and logger must be non-nil.
func NewTickLoop(interval time.Duration, clock *TickClock, logger *zap.Logger) *TickLoop {
	if interval <= 0 {
		panic("gameserver.NewTickLoop: interval must be > 0")
	}
	return &TickLoop{
		interval: interval,
		clock:    clock,
		logger:   logger.Named("tick"),
		ticks:    make(map[string]func(now int64)),
		order:    make(map[string]int),
		tasks:    make(chan func(), 256),
	}
}

// Clock returns the loop's clock.
func (l *TickLoop) Clock() *TickClock { return l.clock }

// RegisterTick registers fn under name. Replaces any existing callback but
// keeps its position.
func (l *TickLoop) RegisterTick(name string, fn func(now int64)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.order[name]; !ok {
		l.order[name] = l.nextSeq
		l.nextSeq++
	}
	l.ticks[name] = fn
}

// Unregister removes the callback registered under name.
func (l *TickLoop) Unregister(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.ticks, name)
	delete(l.order, name)
}

// Do runs fn on the loop goroutine and waits for it to finish.
//
// Postcondition: Returns ErrLoopStopped if the loop is not running, or
// ctx.Err() if ctx ends before fn completes.
func (l *TickLoop) Do(ctx context.Context, fn func()) error {
	if !l.running.Load() {
		return ErrLoopStopped
	}
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case l.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		return ErrLoopStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		return ErrLoopStopped
	}
}

// Start runs the loop until ctx is cancelled or Stop is called. It blocks.
func (l *TickLoop) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.stopped = make(chan struct{})
	l.mu.Unlock()
	l.running.Store(true)
	defer func() {
		l.running.Store(false)
		close(l.stopped)
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	l.logger.Info("tick loop started", zap.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("tick loop stopped", zap.Int64("tick", l.clock.Now()))
			return nil
		case task := <-l.tasks:
			l.run(task)
		case <-ticker.C:
			l.Step()
		}
	}
}

// Stop cancels a running loop.
func (l *TickLoop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Step advances the clock by one tick, drains pending tasks and fires every
// callback. It must only be called from the loop goroutine or from tests that
// own the loop.
func (l *TickLoop) Step() {
	now := l.clock.Advance()
	l.drain()

	l.mu.Lock()
	names := make([]string, 0, len(l.ticks))
	for name := range l.ticks {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool { return l.order[names[a]] < l.order[names[b]] })
	callbacks := make([]func(int64), len(names))
	for i, name := range names {
		callbacks[i] = l.ticks[name]
	}
	l.mu.Unlock()

	for i, fn := range callbacks {
		l.run(func() { fn(now) }, zap.String("callback", names[i]))
	}
}

func (l *TickLoop) drain() {
	for {
		select {
		case task := <-l.tasks:
			l.run(task)
		default:
			return
		}
	}
}

func (l *TickLoop) run(fn func(), fields ...zap.Field) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("tick task panicked", append(fields, zap.Any("panic", r))...)
		}
	}()
	fn()
}
