package kernel

import (
	"context"
	"io"
	"sync"

	"github.com/evanphx/sysgate/log"
	"github.com/evanphx/sysgate/memory"
	hclog "github.com/hashicorp/go-hclog"
)

type Kernel struct {
	L       hclog.Logger
	Console io.Writer
	Clock   *Clock
	Mem     *memory.Allocator

	cfg       Config
	processes *ProcessManager
	pg        *ProcessGroup

	ctx    context.Context
	cancel func()
	wg     sync.WaitGroup
}

func NewKernel(cfg Config) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()

	l := cfg.Logger
	if l == nil {
		l = log.L
	}

	k := &Kernel{
		L:         l,
		Console:   cfg.Console,
		Clock:     NewClock(cfg.TickInterval),
		Mem:       memory.NewAllocator(cfg.MemoryPages),
		cfg:       cfg,
		processes: NewProcessManager(cfg.MaxProcs),
		pg:        NewProcessGroup(),
	}

	k.ctx, k.cancel = context.WithCancel(context.Background())

	return k, nil
}

func (k *Kernel) Config() Config {
	return k.cfg
}

// Processes counts every allocated process, including exited ones that have
// not been reaped.
func (k *Kernel) Processes() int {
	return k.processes.Count()
}

func (k *Kernel) Lookup(pid int) (*Process, bool) {
	return k.processes.Lookup(pid)
}

// Kill marks pid for termination. The process notices the next time it
// crosses the boundary or wakes from a sleep.
func (k *Kernel) Kill(pid int) error {
	p, ok := k.processes.Lookup(pid)
	if !ok {
		return ErrNoProcess
	}

	k.L.Trace("process-kill", "pid", pid)
	p.SetKilled()

	return nil
}

// Shutdown stops the clock and interrupts anything blocked on the kernel's
// context.
func (k *Kernel) Shutdown() {
	k.cancel()
}

// Wait blocks until every started process has returned.
func (k *Kernel) Wait() {
	k.wg.Wait()
}
