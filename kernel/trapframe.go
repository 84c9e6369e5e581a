package kernel

import "context"

// NumArgs is the number of syscall argument registers.
const NumArgs = 6

// Entry is where a process starts executing in user mode. The return value is
// the exit status if the program returns without calling exit.
type Entry func(ctx context.Context, t *Task) int

// TrapFrame is the register state saved when a process traps into the kernel.
// Trap entry fills Args and Sysno, the dispatcher writes Ret.
type TrapFrame struct {
	Args  [NumArgs]uint64 // a0-a5
	Sysno uint64          // a7
	Ret   uint64          // a0 on the way out
	Sp    uint64          // top of the user stack

	// Epc is where execution resumes in user mode. A forked child starts
	// here with Ret set to zero.
	Epc Entry
}
