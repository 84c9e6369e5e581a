package syscalls

import (
	"encoding/binary"
	"fmt"

	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/memory"
	"github.com/pkg/errors"
)

const wordSize = 8

// checkRange fails unless [addr, addr+length) lies below the caller's size
// bound. addr+length is tested for overflow separately from the bound, since a
// wrapped sum would otherwise pass.
func checkRange(t *kernel.Task, addr memory.Addr, length uint64) error {
	sz := t.Mem.Size()

	end, ok := addr.AddLength(length)
	if addr >= sz || !ok || end > sz {
		return errors.Wrapf(kernel.ErrOutOfBounds, "range %s+%d, size %s", addr, length, sz)
	}

	return nil
}

// FetchWord reads the word at user address addr.
func FetchWord(t *kernel.Task, addr memory.Addr) (uint64, error) {
	if err := checkRange(t, addr, wordSize); err != nil {
		return 0, err
	}

	var buf [wordSize]byte

	if err := t.Mem.PT.CopyIn(buf[:], addr); err != nil {
		return 0, errors.Wrap(kernel.ErrCopyFault, err.Error())
	}

	return binary.LittleEndian.Uint64(buf[:]), nil
}

// FetchString reads the nul terminated string at user address addr, looking
// at no more than max bytes. The length returned excludes the terminator.
func FetchString(t *kernel.Task, addr memory.Addr, max int) (string, int, error) {
	if max <= 0 {
		return "", 0, errors.Wrapf(kernel.ErrCopyFault, "no room for string at %s", addr)
	}

	if err := checkRange(t, addr, 1); err != nil {
		return "", 0, err
	}

	if _, ok := addr.AddLength(uint64(max)); !ok {
		return "", 0, errors.Wrapf(kernel.ErrOutOfBounds, "string at %s, max %d", addr, max)
	}

	limit := uint64(max)
	if left := uint64(t.Mem.Size() - addr); left < limit {
		limit = left
	}

	str, err := t.Mem.PT.CopyInString(addr, limit)
	if err != nil {
		return "", 0, errors.Wrap(kernel.ErrCopyFault, err.Error())
	}

	return string(str), len(str), nil
}

func argRaw(t *kernel.Task, n int) uint64 {
	if n < 0 || n >= kernel.NumArgs {
		panic(fmt.Sprintf("argraw: slot %d", n))
	}

	return t.TrapFrame.Args[n]
}

// ArgInt returns argument n truncated to 32 bits.
func ArgInt(t *kernel.Task, n int) int32 {
	return int32(argRaw(t, n))
}

// ArgAddr returns argument n as a user address. It is not checked; whatever
// dereferences it has to.
func ArgAddr(t *kernel.Task, n int) memory.Addr {
	return memory.Addr(argRaw(t, n))
}

// ArgString fetches argument n as a nul terminated string of at most max
// bytes.
func ArgString(t *kernel.Task, n int, max int) (string, int, error) {
	return FetchString(t, ArgAddr(t, n), max)
}

// copyOut writes val to user memory, reporting any failure as a copy fault.
func copyOut(t *kernel.Task, addr memory.Addr, val interface{}) error {
	if err := t.CopyOut(addr, val); err != nil {
		return errors.Wrap(kernel.ErrCopyFault, err.Error())
	}

	return nil
}
