// Package log holds the kernel-wide logger.
package log

import (
	"io"
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

var L hclog.Logger

func init() {
	L = hclog.New(&hclog.LoggerOptions{
		Name: "sysgate",
	})
	L.SetLevel(hclog.Info)

	EnableDebug()
}

// New returns a named logger writing to out at the level implied by the
// environment.
func New(name string, out io.Writer) hclog.Logger {
	l := hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Output: out,
		Level:  hclog.Info,
	})

	if os.Getenv("TRACE") != "" {
		l.SetLevel(hclog.Trace)
	}

	return l
}
