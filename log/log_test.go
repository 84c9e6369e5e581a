package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("TRACE", "")

	var buf bytes.Buffer

	l := New("test", &buf)
	l.Trace("hidden")
	l.Info("shown", "pid", 3)

	out := buf.String()
	require.False(t, strings.Contains(out, "hidden"))
	require.Contains(t, out, "test: shown: pid=3")

	t.Setenv("TRACE", "1")
	require.True(t, New("test", &buf).IsTrace())
}

func TestDump(t *testing.T) {
	type frame struct {
		Args [2]uint64
	}

	require.Contains(t, Dump(&frame{Args: [2]uint64{1, 2}}), "Args: ([2]uint64)")
}
