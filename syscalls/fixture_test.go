package syscalls

import (
	"bytes"
	"context"
	"testing"

	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/memory"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	k       *kernel.Kernel
	t       *kernel.Task
	inv     *Invoker
	console *bytes.Buffer

	// heap is the first address past the initial image; heapPages pages of
	// memory follow it.
	heap memory.Addr
}

const heapPages = 4

func newFixture(t *testing.T) *fixture {
	console := &bytes.Buffer{}

	k, err := kernel.NewKernel(kernel.Config{
		MemoryPages: 64,
		Console:     console,
		Logger:      hclog.NewNullLogger(),
	})
	require.NoError(t, err)

	p, err := k.InitProcess(context.Background(), "test", nil, nil)
	require.NoError(t, err)

	heap, err := p.Grow(heapPages * memory.PageSize)
	require.NoError(t, err)

	return &fixture{
		k:       k,
		t:       &kernel.Task{Process: p},
		inv:     NewInvoker(k),
		console: console,
		heap:    heap,
	}
}

// call traps into the kernel as the user side would and returns a0.
func (f *fixture) call(num Sysno, args ...uint64) int64 {
	tf := f.t.TrapFrame

	tf.Sysno = uint64(num)
	tf.Args = [kernel.NumArgs]uint64{}
	copy(tf.Args[:], args)
	tf.Ret = 0xdeadbeef

	f.inv.Syscall(context.Background(), f.t)

	return int64(tf.Ret)
}
