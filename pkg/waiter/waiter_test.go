package waiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestQueue(t *testing.T) {
	n := neko.Modern(t)

	n.It("wakes a waiter notified under the lock", func(t *testing.T) {
		var (
			q    Queue
			mu   sync.Mutex
			done bool
		)

		go func() {
			for {
				mu.Lock()
				if q.Len() > 0 {
					done = true
					q.Notify(EventAll)
					mu.Unlock()
					return
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
			}
		}()

		mu.Lock()
		for !done {
			require.NoError(t, q.Wait(context.Background(), &mu, 1))
		}
		mu.Unlock()

		require.Equal(t, 0, q.Len())
	})

	n.It("only wakes matching masks", func(t *testing.T) {
		var q Queue

		a := q.Register(1)
		b := q.Register(2)

		q.Notify(2)

		select {
		case <-a.C():
			t.Fatal("entry with unrelated mask was woken")
		default:
		}

		select {
		case <-b.C():
		default:
			t.Fatal("entry was not woken")
		}
	})

	n.It("returns the context error when cancelled", func(t *testing.T) {
		var (
			q  Queue
			mu sync.Mutex
		)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		mu.Lock()
		err := q.Wait(ctx, &mu, EventAll)
		mu.Unlock()

		require.Equal(t, context.Canceled, err)
		require.Equal(t, 0, q.Len())
	})

	n.Meow()
}
