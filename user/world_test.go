package user

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evanphx/sysgate/boundary"
	"github.com/evanphx/sysgate/kernel"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

// output is a writer shared by every process in a test.
type output struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (o *output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.buf.Write(p)
}

func (o *output) Close() error {
	return nil
}

func (o *output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.buf.String()
}

type world struct {
	k   *kernel.Kernel
	sys *boundary.Interface

	console, stdout, stderr *output
}

func newWorld(t *testing.T, ticking bool) *world {
	w := &world{
		console: &output{},
		stdout:  &output{},
		stderr:  &output{},
	}

	k, err := kernel.NewKernel(kernel.Config{
		MemoryPages:  256,
		TickInterval: time.Millisecond,
		Console:      w.console,
		Logger:       hclog.NewNullLogger(),
	})
	require.NoError(t, err)

	w.k = k
	w.sys = boundary.New(k)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		k.Shutdown()
	})

	if ticking {
		go k.Clock.Run(ctx)
	}

	return w
}

// run boots main as a new process and waits for it to exit.
func (w *world) run(t *testing.T, main Main, argv ...string) *kernel.Process {
	p, err := w.k.InitProcess(context.Background(), argv[0], argv, Program(w.sys, main))
	require.NoError(t, err)

	p.HookupStdio(io.NopCloser(strings.NewReader("")), w.stdout, w.stderr)

	w.k.StartProcess(p)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	return p
}
