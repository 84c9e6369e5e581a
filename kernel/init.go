package kernel

import (
	"context"
	"encoding/binary"

	"github.com/evanphx/sysgate/memory"
	"github.com/pkg/errors"
)

// Every address space starts with a page standing in for the program image,
// then one stack page, then the exec header.
const (
	textSize  = memory.PageSize
	StackSize = memory.PageSize
)

// InitProcess creates a process with no parent that will run entry with args
// laid out in its memory. It does not start running until StartProcess.
func (k *Kernel) InitProcess(ctx context.Context, name string, args []string, entry Entry) (*Process, error) {
	mem, err := memory.NewAddressSpace(k.Mem)
	if err != nil {
		return nil, err
	}

	proc := &Process{
		Kernel:    k,
		Name:      name,
		Mem:       mem,
		TrapFrame: &TrapFrame{Epc: entry},
		done:      make(chan struct{}),
	}

	if _, err := mem.Grow(textSize + StackSize + execHeaderSize(args)); err != nil {
		return nil, errors.Wrapf(err, "setting up memory for %s", name)
	}

	argv, err := writeExecHeader(mem, textSize+StackSize, args)
	if err != nil {
		mem.Release()
		return nil, err
	}

	proc.TrapFrame.Args[0] = uint64(len(args))
	proc.TrapFrame.Args[1] = uint64(argv)
	proc.TrapFrame.Sp = textSize + StackSize

	if _, err := k.processes.AssignPid(proc); err != nil {
		mem.Release()
		return nil, err
	}

	k.pg.Add(proc, nil)

	k.L.Trace("process-init", "pid", proc.Pid, "name", name, "args", args)

	return proc, nil
}

// StartProcess runs proc from its trap frame's Epc on a goroutine of its own.
// If the program returns instead of calling exit, its return value becomes
// the exit status.
func (k *Kernel) StartProcess(proc *Process) {
	proc.mu.Lock()
	proc.status = Running
	proc.mu.Unlock()

	k.wg.Add(1)

	go func() {
		defer k.wg.Done()

		code := -1

		// Exit is a no-op for a process that already exited through the
		// syscall, which unwinds with runtime.Goexit.
		defer func() { proc.Exit(code) }()

		ctx := SetTask(k.ctx, &Task{proc})
		code = proc.TrapFrame.Epc(ctx, &Task{proc})
	}()
}

const wordSize = 8

func execHeaderSize(args []string) int64 {
	total := wordSize * (len(args) + 1)

	for _, str := range args {
		total += len(str) + 1
	}

	return int64(total)
}

// writeExecHeader lays out argv at base: a nil terminated array of pointers
// followed by the strings they point at. Returns the address of the array.
func writeExecHeader(mem *memory.AddressSpace, base memory.Addr, args []string) (memory.Addr, error) {
	buf := make([]byte, execHeaderSize(args))

	le := binary.LittleEndian

	nextStr := wordSize * (len(args) + 1)

	ptr := buf
	for _, str := range args {
		le.PutUint64(ptr, uint64(base)+uint64(nextStr))
		copy(buf[nextStr:], str)
		buf[nextStr+len(str)] = 0
		nextStr += len(str) + 1
		ptr = ptr[wordSize:]
	}
	le.PutUint64(ptr, 0) // null after argv

	if err := mem.PT.CopyOut(base, buf); err != nil {
		return 0, errors.Wrap(err, "writing exec header")
	}

	return base, nil
}
