// Package syscalls is the kernel side of the user/kernel boundary: the
// dispatch table, argument marshalling and the handlers themselves.
package syscalls

import (
	"context"
	"fmt"

	"github.com/evanphx/sysgate/kernel"
	hclog "github.com/hashicorp/go-hclog"
)

// Sysno is a system call number as loaded into a7.
type Sysno uint64

const (
	SysFork Sysno = iota + 1
	SysExit
	SysWait
	SysPipe
	SysRead
	SysKill
	SysExec
	SysFstat
	SysChdir
	SysDup
	SysGetpid
	SysSbrk
	SysSleep
	SysUptime
	SysOpen
	SysWrite
	SysMknod
	SysUnlink
	SysLink
	SysMkdir
	SysClose
	SysTrace
	SysSysinfo
	SysPgaccess
)

// syscallNames is indexed by number-1; slot 0 is reserved.
var syscallNames = [...]string{
	"fork", "exit", "wait", "pipe", "read", "kill", "exec", "fstat", "chdir", "dup",
	"getpid", "sbrk", "sleep", "uptime", "open", "write", "mknod", "unlink", "link",
	"mkdir", "close", "trace", "sysinfo", "pgaccess",
}

func (s Sysno) String() string {
	if s >= 1 && int(s) <= len(syscallNames) {
		return syscallNames[s-1]
	}

	return fmt.Sprintf("sys_%d", uint64(s))
}

// SyscallFn handles one call. It pulls its arguments out of t's trap frame
// and returns the value for a0; -1 signals failure.
type SyscallFn func(ctx context.Context, l hclog.Logger, t *kernel.Task) int64

// Syscalls maps numbers to handlers. The file system calls have names but no
// handler, so they are rejected as unknown.
var Syscalls = [...]SyscallFn{
	SysFork:     sysFork,
	SysExit:     sysExit,
	SysWait:     sysWait,
	SysPipe:     sysPipe,
	SysRead:     sysRead,
	SysKill:     sysKill,
	SysDup:      sysDup,
	SysGetpid:   sysGetpid,
	SysSbrk:     sysSbrk,
	SysSleep:    sysSleep,
	SysUptime:   sysUptime,
	SysWrite:    sysWrite,
	SysClose:    sysClose,
	SysTrace:    sysTrace,
	SysSysinfo:  sysSysinfo,
	SysPgaccess: sysPgaccess,
}

// Lookup returns the handler for a raw a7 value.
func Lookup(num uint64) (SyscallFn, error) {
	n := int64(num)
	if n <= 0 || n >= int64(len(Syscalls)) || Syscalls[n] == nil {
		return nil, kernel.ErrUnknownCall
	}

	return Syscalls[n], nil
}
