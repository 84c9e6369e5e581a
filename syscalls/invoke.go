package syscalls

import (
	"context"
	"fmt"
	"io"

	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/log"
	hclog "github.com/hashicorp/go-hclog"
)

// errResult is -1 as stored in a0.
const errResult = ^uint64(0)

// Invoker dispatches trapped system calls for a kernel.
type Invoker struct {
	Kernel *kernel.Kernel
	L      hclog.Logger
}

func NewInvoker(k *kernel.Kernel) *Invoker {
	return &Invoker{
		Kernel: k,
		L:      k.L.Named("syscall"),
	}
}

func (i *Invoker) console() io.Writer {
	return i.Kernel.Console
}

// Syscall services the call described by t's trap frame and stores the result
// in its Ret slot. Unknown numbers get -1 and a console diagnostic.
func (i *Invoker) Syscall(ctx context.Context, t *kernel.Task) {
	tf := t.TrapFrame
	if tf == nil {
		panic(fmt.Sprintf("syscall: pid %d has no trap frame", t.Pid))
	}

	num := tf.Sysno

	if i.L.IsTrace() {
		i.L.Trace("syscall", "pid", t.Pid, "name", Sysno(num), "trapframe", log.Dump(tf))
	}

	f, err := Lookup(num)
	if err != nil {
		fmt.Fprintf(i.console(), "%d %s: unknown sys call %d\n", t.Pid, t.Name, int64(num))
		i.L.Debug("unknown syscall", "pid", t.Pid, "name", t.Name, "num", int64(num))
		tf.Ret = errResult
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.SetInterrupt(cancel)

	ret := f(ctx, i.L, t)

	t.SetInterrupt(nil)
	cancel()

	tf.Ret = uint64(ret)

	// exit does not come back to user mode, so there is nothing to report.
	if t.Status() == kernel.Dead {
		return
	}

	i.trace(t, Sysno(num), ret)
}
