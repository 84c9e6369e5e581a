package log

import (
	"os"

	"github.com/davecgh/go-spew/spew"
	hclog "github.com/hashicorp/go-hclog"
)

func EnableDebug() {
	if str := os.Getenv("TRACE"); str != "" {
		L.SetLevel(hclog.Trace)
	}
}

var dumper = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump renders v for trace output. Only call it when l.IsTrace() holds.
func Dump(v interface{}) string {
	return dumper.Sdump(v)
}
