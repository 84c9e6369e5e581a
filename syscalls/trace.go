package syscalls

import (
	"context"
	"fmt"

	"github.com/evanphx/sysgate/kernel"
	hclog "github.com/hashicorp/go-hclog"
)

// trace reports a finished call if the caller's mask selects it. Console
// errors are dropped; tracing never changes the result.
func (i *Invoker) trace(t *kernel.Task, num Sysno, ret int64) {
	if num >= 64 || (t.TraceMask()>>uint64(num))&1 == 0 {
		return
	}

	fmt.Fprintf(i.console(), "%d: syscall %s -> %d\n", t.Pid, num, ret)
}

func sysTrace(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	mask := ArgInt(t, 0)

	t.SetTraceMask(uint64(uint32(mask)))

	return 0
}
