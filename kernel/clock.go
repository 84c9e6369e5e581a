package kernel

import (
	"context"
	"sync"
	"time"

	"github.com/evanphx/sysgate/pkg/waiter"
	"github.com/pkg/errors"
)

const tickEvent waiter.EventType = 1

// Killable is anything that can be marked for termination while blocked.
type Killable interface {
	Killed() bool
}

// Clock is the tick counter driven by the timer interrupt. One lock guards
// the counter for every reader and writer; ticks only ever go up.
type Clock struct {
	mu       sync.Mutex
	ticks    uint64
	sleepers waiter.Queue

	interval time.Duration
}

func NewClock(interval time.Duration) *Clock {
	return &Clock{interval: interval}
}

// Tick advances the counter by one and wakes every sleeper.
func (c *Clock) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ticks++
	c.sleepers.Notify(tickEvent)
}

// Uptime returns the number of ticks since boot.
func (c *Clock) Uptime() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ticks
}

// Sleeping is the number of callers currently suspended in Sleep.
func (c *Clock) Sleeping() int {
	return c.sleepers.Len()
}

// Sleep blocks until at least n ticks have passed. n <= 0 returns at once.
// A wakeup only means some tick happened, so the target is rechecked after
// each one. If p is marked for termination Sleep gives up with
// ErrInterrupted.
func (c *Clock) Sleep(ctx context.Context, p Killable, n int32) error {
	if n <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t0 := c.ticks

	for c.ticks-t0 < uint64(n) {
		if p.Killed() {
			return ErrInterrupted
		}

		if err := c.sleepers.Wait(ctx, &c.mu, tickEvent); err != nil && !p.Killed() {
			return errors.Wrap(ErrInterrupted, err.Error())
		}
	}

	return nil
}

// Run drives the counter from a host timer until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}
