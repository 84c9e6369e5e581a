// Package user holds the user-mode side: a small C-library-like wrapper
// around the system calls and the programs built on it.
package user

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/evanphx/sysgate/boundary"
	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/memory"
	"github.com/evanphx/sysgate/syscalls"
)

// Main is a user program. It may return its exit status or call Exit.
type Main func(u *Proc, argv []string) int

// Proc is a running user program's view of itself.
type Proc struct {
	ctx context.Context
	t   *kernel.Task
	sys *boundary.Interface
}

// Program turns main into an entry point for kernel.InitProcess.
func Program(sys *boundary.Interface, main Main) kernel.Entry {
	return func(ctx context.Context, t *kernel.Task) int {
		u := &Proc{ctx: ctx, t: t, sys: sys}
		return main(u, u.Args())
	}
}

const maxArg = 128

// Args reads the argument vector from user memory.
func (u *Proc) Args() []string {
	var (
		argc = int(u.t.TrapFrame.Args[0])
		argv = memory.Addr(u.t.TrapFrame.Args[1])
	)

	args := make([]string, 0, argc)

	for i := 0; i < argc; i++ {
		ptr := memory.Addr(binary.LittleEndian.Uint64(u.Load(argv+memory.Addr(8*i), 8)))

		var str []byte
		for len(str) < maxArg {
			b := u.Load(ptr+memory.Addr(len(str)), 1)[0]
			if b == 0 {
				break
			}
			str = append(str, b)
		}

		args = append(args, string(str))
	}

	return args
}

func (u *Proc) syscall(n syscalls.Sysno, args ...uint64) int64 {
	return u.sys.Syscall(u.ctx, u.t, n, args...)
}

// Load reads user memory the way the program itself would, marking the pages
// accessed. A bad address kills the process.
func (u *Proc) Load(addr memory.Addr, n int) []byte {
	buf := make([]byte, n)

	if err := u.t.Mem.PT.Load(buf, addr); err != nil {
		u.sys.Fault(u.t, err)
	}

	return buf
}

// Store writes user memory, marking the pages accessed and dirty.
func (u *Proc) Store(addr memory.Addr, data []byte) {
	if err := u.t.Mem.PT.Store(addr, data); err != nil {
		u.sys.Fault(u.t, err)
	}
}

// scratch is the stack page, used to pass buffers to the kernel.
func (u *Proc) scratch() memory.Addr {
	return memory.Addr(u.t.TrapFrame.Sp) - kernel.StackSize
}

func (u *Proc) Fork(child func(u *Proc) int) int {
	u.t.TrapFrame.Epc = func(ctx context.Context, t *kernel.Task) int {
		return child(&Proc{ctx: ctx, t: t, sys: u.sys})
	}

	return int(u.syscall(syscalls.SysFork))
}

func (u *Proc) Exit(code int) {
	u.syscall(syscalls.SysExit, uint64(code))
	panic("exit returned")
}

// Wait returns the pid and exit status of a child that exited, or -1.
func (u *Proc) Wait() (int, int) {
	buf := u.scratch()

	pid := int(u.syscall(syscalls.SysWait, uint64(buf)))
	if pid < 0 {
		return pid, 0
	}

	return pid, int(int32(binary.LittleEndian.Uint32(u.Load(buf, 4))))
}

// Pipe returns the read and write descriptors of a new pipe.
func (u *Proc) Pipe() ([2]int, int) {
	buf := u.scratch()

	if r := u.syscall(syscalls.SysPipe, uint64(buf)); r < 0 {
		return [2]int{}, int(r)
	}

	fds := u.Load(buf, 8)

	return [2]int{
		int(int32(binary.LittleEndian.Uint32(fds))),
		int(int32(binary.LittleEndian.Uint32(fds[4:]))),
	}, 0
}

// Read reads up to n bytes. It returns what was read and the syscall result.
func (u *Proc) Read(fd, n int) ([]byte, int) {
	if n > kernel.StackSize {
		n = kernel.StackSize
	}

	buf := u.scratch()

	r := int(u.syscall(syscalls.SysRead, uint64(fd), uint64(buf), uint64(n)))
	if r <= 0 {
		return nil, r
	}

	return u.Load(buf, r), r
}

func (u *Proc) Write(fd int, data []byte) int {
	buf := u.scratch()

	var total int

	for len(data) > 0 {
		chunk := data
		if len(chunk) > kernel.StackSize {
			chunk = chunk[:kernel.StackSize]
		}

		u.Store(buf, chunk)

		r := int(u.syscall(syscalls.SysWrite, uint64(fd), uint64(buf), uint64(len(chunk))))
		if r < 0 {
			return r
		}

		total += r
		data = data[len(chunk):]
	}

	return total
}

func (u *Proc) Close(fd int) int {
	return int(u.syscall(syscalls.SysClose, uint64(fd)))
}

func (u *Proc) Dup(fd int) int {
	return int(u.syscall(syscalls.SysDup, uint64(fd)))
}

func (u *Proc) Getpid() int {
	return int(u.syscall(syscalls.SysGetpid))
}

func (u *Proc) Kill(pid int) int {
	return int(u.syscall(syscalls.SysKill, uint64(pid)))
}

// Sbrk grows memory by n bytes and returns the old size, or -1.
func (u *Proc) Sbrk(n int) int64 {
	return u.syscall(syscalls.SysSbrk, uint64(n))
}

func (u *Proc) Sleep(ticks int) int {
	return int(u.syscall(syscalls.SysSleep, uint64(ticks)))
}

func (u *Proc) Uptime() int {
	return int(u.syscall(syscalls.SysUptime))
}

func (u *Proc) Trace(mask int) int {
	return int(u.syscall(syscalls.SysTrace, uint64(mask)))
}

func (u *Proc) Sysinfo() (syscalls.Sysinfo, int) {
	buf := u.scratch()

	if r := u.syscall(syscalls.SysSysinfo, uint64(buf)); r < 0 {
		return syscalls.Sysinfo{}, int(r)
	}

	raw := u.Load(buf, 16)

	return syscalls.Sysinfo{
		FreeMem: binary.LittleEndian.Uint64(raw),
		NProc:   binary.LittleEndian.Uint64(raw[8:]),
	}, 0
}

// Pgaccess reports which of the n pages from va were accessed since the last
// call, bit i for page i.
func (u *Proc) Pgaccess(va memory.Addr, n int) (uint32, int) {
	buf := u.scratch()

	if r := u.syscall(syscalls.SysPgaccess, uint64(va), uint64(n), uint64(buf)); r < 0 {
		return 0, int(r)
	}

	var mask [4]byte
	copy(mask[:], u.Load(buf, (n+7)/8))

	return binary.LittleEndian.Uint32(mask[:]), 0
}

func (u *Proc) Printf(format string, args ...interface{}) {
	u.Fprintf(1, format, args...)
}

func (u *Proc) Fprintf(fd int, format string, args ...interface{}) {
	u.Write(fd, []byte(fmt.Sprintf(format, args...)))
}

// Atoi converts the leading decimal digits of s.
func Atoi(s string) int {
	var n int

	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}

	return n
}
