// Package waiter implements the sleep/wakeup channels kernel code blocks on.
package waiter

import (
	"context"
	"sync"

	"github.com/evanphx/sysgate/log"
)

type EventType uint64

// EventAll matches every event mask.
const EventAll EventType = ^EventType(0)

type Entry struct {
	mask EventType
	c    chan struct{}
}

// C is signalled, at most once per pending notification, when an event in
// the entry's mask fires.
func (e *Entry) C() <-chan struct{} {
	return e.c
}

// Queue is a wait channel. Notify wakes every registered entry whose mask
// matches; waking is not proof that the condition being waited for holds.
type Queue struct {
	mu sync.Mutex

	entries map[*Entry]struct{}
}

func (q *Queue) Register(mask EventType) *Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.entries == nil {
		q.entries = make(map[*Entry]struct{})
	}

	e := &Entry{
		mask: mask,
		c:    make(chan struct{}, 1),
	}

	q.entries[e] = struct{}{}

	return e
}

func (q *Queue) Unregister(e *Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.entries, e)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}

func (q *Queue) Notify(mask EventType) {
	q.mu.Lock()
	defer q.mu.Unlock()

	log.L.Trace("waiters-notify", "count", len(q.entries), "mask", mask)

	for e := range q.entries {
		if e.mask&mask == 0 {
			continue
		}

		select {
		case e.c <- struct{}{}:
		default:
		}
	}
}

// Wait suspends the caller on the queue. lk must be held on entry. It is
// released only after the caller is registered and is held again when Wait
// returns, so a Notify issued under lk cannot slip between the caller's check
// and its suspension. Returns ctx's error if the wait was cut short.
func (q *Queue) Wait(ctx context.Context, lk sync.Locker, mask EventType) error {
	e := q.Register(mask)
	lk.Unlock()

	var err error

	select {
	case <-e.c:
	case <-ctx.Done():
		err = ctx.Err()
	}

	q.Unregister(e)
	lk.Lock()

	return err
}
