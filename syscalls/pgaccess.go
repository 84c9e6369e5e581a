package syscalls

import (
	"context"
	"encoding/binary"

	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/memory"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// MaxScanPages is the most pages one pgaccess call reports on.
const MaxScanPages = 32

// scanAccessed reports which of the n pages starting at va were touched since
// the last scan, bit i for page i, and clears their accessed bits. Entries
// that are not valid are never reported or changed.
func scanAccessed(pt *memory.PageTable, va memory.Addr, n int) (uint32, error) {
	if n < 0 || n > MaxScanPages {
		return 0, errors.Wrapf(kernel.ErrInvalidArgument, "scan of %d pages", n)
	}

	ptes := pt.Walk(va, false)
	if ptes == nil {
		return 0, errors.Wrapf(kernel.ErrInvalidArgument, "no page table for %s", va)
	}

	if len(ptes) < n {
		return 0, errors.Wrapf(kernel.ErrInvalidArgument, "%d pages from %s leave the page-table page", n, va)
	}

	var mask uint32

	for i := range ptes[:n] {
		if ptes[i]&(memory.PteV|memory.PteA) == memory.PteV|memory.PteA {
			mask |= 1 << uint(i)
			ptes[i] &^= memory.PteA
		}
	}

	return mask, nil
}

func sysPgaccess(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	var (
		va       = ArgAddr(t, 0)
		n        = int(ArgInt(t, 1))
		maskAddr = ArgAddr(t, 2)
	)

	mask, err := scanAccessed(t.Mem.PT, va, n)
	if err != nil {
		l.Trace("pgaccess-failed", "pid", t.Pid, "error", err)
		return -1
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], mask)

	if err := t.Mem.PT.CopyOut(maskAddr, buf[:(n+7)/8]); err != nil {
		l.Trace("pgaccess-copyout", "pid", t.Pid, "error", err)
		return -1
	}

	return 0
}
