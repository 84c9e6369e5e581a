package syscalls

import (
	"context"
	"fmt"
	"testing"

	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/memory"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

// stubTable swaps every handler for one returning its own number.
func stubTable(t *testing.T) {
	saved := Syscalls

	for i := range Syscalls {
		if Syscalls[i] == nil {
			continue
		}

		num := int64(i)
		Syscalls[i] = func(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
			return num
		}
	}

	t.Cleanup(func() { Syscalls = saved })
}

func TestTable(t *testing.T) {
	n := neko.Modern(t)

	n.It("has a name for every slot but the reserved one", func(t *testing.T) {
		require.Equal(t, len(Syscalls)-1, len(syscallNames))

		for i := 1; i < len(Syscalls); i++ {
			require.NotEqual(t, fmt.Sprintf("sys_%d", i), Sysno(i).String())
		}

		require.Equal(t, "pgaccess", SysPgaccess.String())
		require.Equal(t, "sys_0", Sysno(0).String())
	})

	n.It("rejects reserved, negative and out of range numbers", func(t *testing.T) {
		for _, num := range []uint64{0, ^uint64(0), uint64(len(Syscalls)), 1 << 40} {
			_, err := Lookup(num)
			require.Equal(t, kernel.ErrUnknownCall, err, "num %d", num)
		}

		_, err := Lookup(uint64(SysExec))
		require.Equal(t, kernel.ErrUnknownCall, err)

		fn, err := Lookup(uint64(SysGetpid))
		require.NoError(t, err)
		require.NotNil(t, fn)
	})

	n.Meow()
}

func TestDispatch(t *testing.T) {
	n := neko.Modern(t)

	n.It("writes a result for every number in the table", func(t *testing.T) {
		f := newFixture(t)
		stubTable(t)

		for i := 1; i < len(Syscalls); i++ {
			f.console.Reset()

			ret := f.call(Sysno(i))

			if Syscalls[i] == nil {
				require.Equal(t, int64(-1), ret)
				require.Equal(t, fmt.Sprintf("%d test: unknown sys call %d\n", f.t.Pid, i), f.console.String())
			} else {
				require.Equal(t, int64(i), ret)
				require.Empty(t, f.console.String())
			}
		}
	})

	n.It("reports unknown numbers on the console", func(t *testing.T) {
		f := newFixture(t)

		require.Equal(t, int64(-1), f.call(0))
		require.Equal(t, int64(-1), f.call(Sysno(^uint64(0))))
		require.Equal(t, int64(-1), f.call(Sysno(999)))

		want := fmt.Sprintf("%[1]d test: unknown sys call 0\n%[1]d test: unknown sys call -1\n%[1]d test: unknown sys call 999\n", f.t.Pid)
		require.Equal(t, want, f.console.String())
	})

	n.It("does not trace unknown numbers", func(t *testing.T) {
		f := newFixture(t)
		f.t.SetTraceMask(^uint64(0))

		f.call(SysOpen)

		require.Equal(t, fmt.Sprintf("%d test: unknown sys call 15\n", f.t.Pid), f.console.String())
	})

	n.It("panics without a trap frame", func(t *testing.T) {
		f := newFixture(t)
		f.t.TrapFrame = nil

		require.Panics(t, func() { f.inv.Syscall(context.Background(), f.t) })
	})

	n.Meow()
}

func TestTrace(t *testing.T) {
	n := neko.Modern(t)

	n.It("is silent when the bit is clear", func(t *testing.T) {
		f := newFixture(t)
		f.t.SetTraceMask(^uint64(0) &^ (1 << SysGetpid))

		f.call(SysGetpid)

		require.Empty(t, f.console.String())
	})

	n.It("reports each traced call once", func(t *testing.T) {
		f := newFixture(t)

		require.Equal(t, int64(0), f.call(SysTrace, 1<<SysGetpid|1<<SysClose))

		pid := f.call(SysGetpid)
		f.call(SysUptime)
		f.call(SysClose, 42)

		want := fmt.Sprintf("%[1]d: syscall getpid -> %[1]d\n%[1]d: syscall close -> -1\n", pid)
		require.Equal(t, want, f.console.String())
	})

	n.It("does not change the result", func(t *testing.T) {
		f := newFixture(t)

		untraced := f.call(SysSbrk, 0)

		f.t.SetTraceMask(1 << SysSbrk)
		traced := f.call(SysSbrk, 0)

		require.Equal(t, untraced, traced)
		require.Equal(t, fmt.Sprintf("%d: syscall sbrk -> %d\n", f.t.Pid, traced), f.console.String())
	})

	n.Meow()
}

func TestHandlers(t *testing.T) {
	n := neko.Modern(t)

	n.It("grows memory with sbrk", func(t *testing.T) {
		f := newFixture(t)
		sz := f.t.Mem.Size()

		require.Equal(t, int64(sz), f.call(SysSbrk, memory.PageSize))
		require.Equal(t, sz+memory.PageSize, f.t.Mem.Size())

		require.Equal(t, int64(-1), f.call(SysSbrk, uint64(uint32(-int32(sz)-memory.PageSize-1))))
	})

	n.It("copies out system information", func(t *testing.T) {
		f := newFixture(t)

		require.Equal(t, int64(0), f.call(SysSysinfo, uint64(f.heap)))

		var info Sysinfo
		require.NoError(t, f.t.CopyIn(f.heap, &info))

		require.Equal(t, uint64(1), info.NProc)
		require.Equal(t, f.k.Mem.FreeBytes(), info.FreeMem)

		require.Equal(t, int64(-1), f.call(SysSysinfo, uint64(memory.MaxVA)))
	})

	n.It("moves bytes through a pipe", func(t *testing.T) {
		f := newFixture(t)

		require.Equal(t, int64(0), f.call(SysPipe, uint64(f.heap)))

		var fds [2]int32
		require.NoError(t, f.t.CopyIn(f.heap, &fds))

		child, err := f.t.Fork()
		require.NoError(t, err)

		msg := f.heap + 16
		require.NoError(t, child.Mem.PT.CopyOut(msg, []byte("hi")))
		child.TrapFrame.Args = [kernel.NumArgs]uint64{uint64(fds[1]), uint64(msg), 2}

		done := make(chan int64, 1)
		go func() {
			done <- sysWrite(context.Background(), hclog.NewNullLogger(), &kernel.Task{Process: child})
		}()

		require.Equal(t, int64(2), f.call(SysRead, uint64(fds[0]), uint64(msg), 2))
		require.Equal(t, int64(2), <-done)

		buf := make([]byte, 2)
		require.NoError(t, f.t.Mem.PT.CopyIn(buf, msg))
		require.Equal(t, "hi", string(buf))
	})

	n.It("rejects reads and writes outside memory", func(t *testing.T) {
		f := newFixture(t)

		require.Equal(t, int64(0), f.call(SysPipe, uint64(f.heap)))

		var fds [2]int32
		require.NoError(t, f.t.CopyIn(f.heap, &fds))

		require.Equal(t, int64(-1), f.call(SysWrite, uint64(fds[1]), ^uint64(0)-1, 4))
		require.Equal(t, int64(-1), f.call(SysRead, uint64(fds[0]), uint64(f.t.Mem.Size()), 1))
		require.Equal(t, int64(-1), f.call(SysWrite, 17, uint64(f.heap), 1))
	})

	n.It("duplicates into the lowest free descriptor", func(t *testing.T) {
		f := newFixture(t)

		require.Equal(t, int64(0), f.call(SysPipe, uint64(f.heap)))
		require.Equal(t, int64(0), f.call(SysClose, 0))
		require.Equal(t, int64(0), f.call(SysDup, 1))
		require.Equal(t, int64(-1), f.call(SysDup, 9))
	})

	n.It("fails to kill a missing process", func(t *testing.T) {
		f := newFixture(t)

		require.Equal(t, int64(-1), f.call(SysKill, 77))
	})

	n.It("fails to wait without children", func(t *testing.T) {
		f := newFixture(t)

		require.Equal(t, int64(-1), f.call(SysWait, 0))
	})

	n.It("reports uptime in ticks", func(t *testing.T) {
		f := newFixture(t)

		f.k.Clock.Tick()
		f.k.Clock.Tick()

		require.Equal(t, int64(2), f.call(SysUptime))
		require.Equal(t, int64(0), f.call(SysSleep, 0))
	})

	n.Meow()
}
