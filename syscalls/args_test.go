package syscalls

import (
	"testing"

	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestFetch(t *testing.T) {
	n := neko.Modern(t)

	n.It("rejects words whose end wraps around", func(t *testing.T) {
		f := newFixture(t)

		for delta := uint64(0); delta < 2*wordSize; delta++ {
			addr := memory.Addr(^uint64(0) - delta)

			_, err := FetchWord(f.t, addr)
			require.Equal(t, kernel.ErrOutOfBounds, errors.Cause(err), "addr %s", addr)
		}
	})

	n.It("rejects words that run past the size bound", func(t *testing.T) {
		f := newFixture(t)
		sz := f.t.Mem.Size()

		for _, addr := range []memory.Addr{sz - 1, sz - 7, sz, sz + 8} {
			_, err := FetchWord(f.t, addr)
			require.Equal(t, kernel.ErrOutOfBounds, errors.Cause(err), "addr %s", addr)
		}

		_, err := FetchWord(f.t, sz-wordSize)
		require.NoError(t, err)
	})

	n.It("round trips a word through user memory", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.t.CopyOut(f.heap, uint64(0x1122334455667788)))

		v, err := FetchWord(f.t, f.heap)
		require.NoError(t, err)
		require.Equal(t, uint64(0x1122334455667788), v)

		require.NoError(t, f.t.CopyOut(f.heap+64, v))

		again, err := FetchWord(f.t, f.heap+64)
		require.NoError(t, err)
		require.Equal(t, v, again)
	})

	n.It("rejects strings whose range wraps around", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := FetchString(f.t, memory.Addr(^uint64(0)-4), 128)
		require.Equal(t, kernel.ErrOutOfBounds, errors.Cause(err))

		_, _, err = FetchString(f.t, f.t.Mem.Size(), 128)
		require.Equal(t, kernel.ErrOutOfBounds, errors.Cause(err))
	})

	n.It("fetches a string and its length", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.t.Mem.PT.CopyOut(f.heap, []byte("echo\x00")))

		str, l, err := FetchString(f.t, f.heap, 64)
		require.NoError(t, err)
		require.Equal(t, "echo", str)
		require.Equal(t, 4, l)
	})

	n.It("fails when the terminator is not within max", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.t.Mem.PT.CopyOut(f.heap, []byte("echo\x00")))

		_, _, err := FetchString(f.t, f.heap, 4)
		require.Equal(t, kernel.ErrCopyFault, errors.Cause(err))
	})

	n.It("stops a string at the size bound", func(t *testing.T) {
		f := newFixture(t)
		sz := f.t.Mem.Size()

		require.NoError(t, f.t.Mem.PT.CopyOut(sz-3, []byte("abc")))

		_, _, err := FetchString(f.t, sz-3, 64)
		require.Equal(t, kernel.ErrCopyFault, errors.Cause(err))
	})

	n.Meow()
}

func TestArgs(t *testing.T) {
	n := neko.Modern(t)

	n.It("reads raw slots without validation", func(t *testing.T) {
		f := newFixture(t)

		f.t.TrapFrame.Args[0] = 0xffffffff
		f.t.TrapFrame.Args[5] = ^uint64(0)

		require.Equal(t, int32(-1), ArgInt(f.t, 0))
		require.Equal(t, memory.Addr(^uint64(0)), ArgAddr(f.t, 5))
	})

	n.It("panics on a slot that does not exist", func(t *testing.T) {
		f := newFixture(t)

		require.Panics(t, func() { ArgInt(f.t, kernel.NumArgs) })
		require.Panics(t, func() { ArgAddr(f.t, -1) })
	})

	n.It("fetches string arguments", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.t.Mem.PT.CopyOut(f.heap, []byte("hello\x00")))
		f.t.TrapFrame.Args[2] = uint64(f.heap)

		str, l, err := ArgString(f.t, 2, 32)
		require.NoError(t, err)
		require.Equal(t, "hello", str)
		require.Equal(t, 5, l)
	})

	n.Meow()
}
