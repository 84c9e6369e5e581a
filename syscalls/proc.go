package syscalls

import (
	"context"

	"github.com/evanphx/sysgate/kernel"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

func sysExit(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	t.Exit(int(ArgInt(t, 0)))
	return 0
}

func sysGetpid(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	return int64(t.Pid)
}

func sysFork(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	child, err := t.Fork()
	if err != nil {
		l.Error("error forking process", "pid", t.Pid, "error", err)
		return -1
	}

	t.Kernel.StartProcess(child)

	return int64(child.Pid)
}

func sysWait(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	statAddr := ArgAddr(t, 0)

	pid, status, err := t.WaitChild(ctx, true)
	if err != nil {
		l.Trace("wait-failed", "pid", t.Pid, "error", err)
		return -1
	}

	if statAddr != 0 {
		if err := copyOut(t, statAddr, status.Status()); err != nil {
			l.Trace("wait-copyout", "pid", t.Pid, "error", err)
			return -1
		}
	}

	l.Trace("wait-found-child", "pid", pid, "status", status.Code)

	return int64(pid)
}

func sysSbrk(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	n := ArgInt(t, 0)

	old, err := t.Grow(int64(n))
	if err != nil {
		l.Trace("sbrk-failed", "pid", t.Pid, "delta", n, "error", err)
		return -1
	}

	return int64(old)
}

func sysKill(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	pid := ArgInt(t, 0)

	if err := t.Kernel.Kill(int(pid)); err != nil {
		if errors.Cause(err) != kernel.ErrNoProcess {
			l.Error("error killing process", "pid", pid, "error", err)
		}

		return -1
	}

	return 0
}

// Sysinfo is the structure sysinfo copies out.
type Sysinfo struct {
	FreeMem uint64 // bytes of free physical memory
	NProc   uint64 // allocated processes
}

func sysSysinfo(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	addr := ArgAddr(t, 0)

	info := Sysinfo{
		FreeMem: t.Kernel.Mem.FreeBytes(),
		NProc:   uint64(t.Kernel.Processes()),
	}

	if err := copyOut(t, addr, info); err != nil {
		return -1
	}

	return 0
}
