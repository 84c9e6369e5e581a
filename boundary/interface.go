// Package boundary is the user side of a system call: it loads the trap frame,
// traps into the kernel and decides whether the process gets to return to
// user mode.
package boundary

import (
	"context"
	"fmt"
	"runtime"

	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/syscalls"
	hclog "github.com/hashicorp/go-hclog"
)

type SyscallInvoker interface {
	Syscall(ctx context.Context, t *kernel.Task)
}

type Interface struct {
	L       hclog.Logger
	Invoker SyscallInvoker
}

func New(k *kernel.Kernel) *Interface {
	return &Interface{
		L:       k.L.Named("boundary"),
		Invoker: syscalls.NewInvoker(k),
	}
}

// Syscall traps with sysno in a7 and args in a0-a5 and returns a0. It does
// not return if the process exited or was killed while in the kernel.
func (w *Interface) Syscall(ctx context.Context, t *kernel.Task, sysno syscalls.Sysno, args ...uint64) int64 {
	if len(args) > kernel.NumArgs {
		panic(fmt.Sprintf("syscall %s: %d arguments", sysno, len(args)))
	}

	tf := t.TrapFrame

	tf.Sysno = uint64(sysno)
	tf.Args = [kernel.NumArgs]uint64{}
	copy(tf.Args[:], args)

	w.Invoker.Syscall(ctx, t)

	w.returnToUser(t)

	return int64(tf.Ret)
}

// Fault ends a process that took a memory fault in user mode.
func (w *Interface) Fault(t *kernel.Task, err error) {
	w.L.Error("user fault", "pid", t.Pid, "name", t.Name, "error", err)
	t.SetKilled()
	w.returnToUser(t)
}

func (w *Interface) returnToUser(t *kernel.Task) {
	if t.Status() != kernel.Dead && t.Killed() {
		t.Exit(-1)
	}

	if t.Status() == kernel.Dead {
		runtime.Goexit()
	}
}
