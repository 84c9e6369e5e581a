package syscalls

import (
	"context"

	"github.com/evanphx/sysgate/kernel"
	hclog "github.com/hashicorp/go-hclog"
)

func sysSleep(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	n := ArgInt(t, 0)

	if err := t.Kernel.Clock.Sleep(ctx, t, n); err != nil {
		l.Trace("sleep-interrupted", "pid", t.Pid, "ticks", n, "error", err)
		return -1
	}

	return 0
}

// sysUptime returns the number of ticks since boot.
func sysUptime(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	return int64(t.Kernel.Clock.Uptime())
}
