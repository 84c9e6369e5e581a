package kernel

import (
	"io"
	"os"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// Config controls the size and pace of a kernel. Zero fields take the
// defaults.
type Config struct {
	// TickInterval is the period of the timer interrupt.
	TickInterval time.Duration

	// MemoryPages is the number of physical frames available to user
	// address spaces.
	MemoryPages int

	MaxProcs int

	// Console receives trace and diagnostic lines.
	Console io.Writer

	Logger hclog.Logger
}

const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultMemoryPages  = 4096
	DefaultMaxProcs     = 64
)

func (c Config) withDefaults() Config {
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}

	if c.MemoryPages == 0 {
		c.MemoryPages = DefaultMemoryPages
	}

	if c.MaxProcs == 0 {
		c.MaxProcs = DefaultMaxProcs
	}

	if c.Console == nil {
		c.Console = os.Stdout
	}

	return c
}

func (c Config) Validate() error {
	switch {
	case c.TickInterval < 0:
		return errors.Wrapf(ErrBadConfig, "tick interval %s", c.TickInterval)
	case c.MemoryPages < 0:
		return errors.Wrapf(ErrBadConfig, "memory pages %d", c.MemoryPages)
	case c.MaxProcs < 0:
		return errors.Wrapf(ErrBadConfig, "max procs %d", c.MaxProcs)
	}

	return nil
}
