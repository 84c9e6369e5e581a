package kernel

import (
	"context"
	"sync"

	"github.com/evanphx/sysgate/pkg/waiter"
)

// ProcessGroup tracks the parent/child relationships of every live or
// unreaped process in a kernel.
type ProcessGroup struct {
	mu sync.Mutex

	processes map[*Process]struct{}

	events waiter.Queue
}

func NewProcessGroup() *ProcessGroup {
	return &ProcessGroup{
		processes: make(map[*Process]struct{}),
	}
}

const (
	_ waiter.EventType = 1 << iota
	ProcessExitted
)

func (pg *ProcessGroup) Add(p, parent *Process) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	p.parent = parent
	pg.processes[p] = struct{}{}
}

// remove drops p for good. pg.mu must be held.
func (pg *ProcessGroup) remove(p *Process) {
	delete(pg.processes, p)
	p.Kernel.processes.RemoveProc(p)
}

// ReapChild removes and returns an exited child of parent. ErrNoChild is
// returned if parent has no children at all.
func (pg *ProcessGroup) ReapChild(ctx context.Context, parent *Process, block bool) (*Process, error) {
	if !block {
		return pg.reapOnce(parent)
	}

	ev := pg.events.Register(ProcessExitted)
	defer pg.events.Unregister(ev)

	for {
		process, err := pg.reapOnce(parent)
		if err != nil {
			return nil, err
		}

		if process != nil {
			return process, nil
		}

		parent.Kernel.L.Trace("process-waiting-reap", "pid", parent.Pid)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ev.C():
			// ok, try the loop again
		}
	}
}

func (pg *ProcessGroup) reapOnce(parent *Process) (*Process, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	var children int

	for p := range pg.processes {
		if p.parent != parent {
			continue
		}

		children++

		if p.Status() == Dead {
			pg.remove(p)
			return p, nil
		}
	}

	if children == 0 {
		return nil, ErrNoChild
	}

	return nil, nil
}

// ProcessExited orphans p's children and wakes anyone waiting to reap. A
// process whose parent is already gone is reaped on the spot, as are exited
// children nobody is left to wait for.
func (pg *ProcessGroup) ProcessExited(p *Process) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	for c := range pg.processes {
		if c.parent != p {
			continue
		}

		c.parent = nil

		if c.Status() == Dead {
			pg.remove(c)
		}
	}

	if p.parent == nil || p.parent.Status() == Dead {
		pg.remove(p)
	}

	p.Kernel.L.Trace("process-exitted", "pid", p.Pid)
	pg.events.Notify(ProcessExitted)
}
