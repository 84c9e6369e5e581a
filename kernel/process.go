package kernel

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sync"

	"github.com/evanphx/sysgate/memory"
)

type prockey struct{}

func GetTask(ctx context.Context) (*Task, bool) {
	if v := ctx.Value(prockey{}); v != nil {
		return v.(*Task), true
	}

	return nil, false
}

func SetTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, prockey{}, t)
}

// Task is a process as seen from the kernel while it services that
// process's trap.
type Task struct {
	*Process
}

type ProcessStatus int

const (
	Init    ProcessStatus = 0
	Running ProcessStatus = 1
	Dead    ProcessStatus = 2
)

type ExitStatus struct {
	Code int
}

// Status is the word wait copies out to user memory.
func (e ExitStatus) Status() int32 {
	return int32(e.Code)
}

type Process struct {
	Kernel    *Kernel
	Pid       int
	Name      string
	Mem       *memory.AddressSpace
	TrapFrame *TrapFrame

	// Protected by the kernel's process group lock.
	parent *Process

	mu sync.Mutex

	status     ProcessStatus
	exitStatus ExitStatus
	killed     bool
	traceMask  uint64
	fds        []*File

	interruptFunc func()
	done          chan struct{}
}

func (p *Process) Status() ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.status
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) ExitStatus() ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitStatus
}

// TraceMask has bit n set when calls to syscall n should be traced.
func (p *Process) TraceMask() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.traceMask
}

func (p *Process) SetTraceMask(mask uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.traceMask = mask
}

func (p *Process) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.killed
}

// SetKilled marks the process for termination and interrupts whatever
// blocking call it is in.
func (p *Process) SetKilled() {
	p.mu.Lock()
	p.killed = true
	f := p.interruptFunc
	p.mu.Unlock()

	if f != nil {
		f()
	}
}

// SetInterrupt installs the function SetKilled uses to cut a blocking call
// short. Pass nil to clear it.
func (p *Process) SetInterrupt(f func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.interruptFunc = f
}

// CopyOut writes the little-endian encoding of val to user memory at addr.
func (p *Process) CopyOut(addr memory.Addr, val interface{}) error {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.LittleEndian, val); err != nil {
		return err
	}

	return p.Mem.PT.CopyOut(addr, buf.Bytes())
}

// CopyIn decodes val from user memory at addr.
func (p *Process) CopyIn(addr memory.Addr, val interface{}) error {
	buf := make([]byte, binary.Size(val))

	if err := p.Mem.PT.CopyIn(buf, addr); err != nil {
		return err
	}

	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, val)
}

func (p *Process) HookupStdio(i io.ReadCloser, o, e io.WriteCloser) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fds = append(p.fds[:0],
		&File{refs: 1, r: i},
		&File{refs: 1, w: o},
		&File{refs: 1, w: e},
	)
}

// allocFd installs f in the lowest free slot. p.mu must be held.
func (p *Process) allocFd(f *File) int {
	for fd, file := range p.fds {
		if file == nil {
			p.fds[fd] = f
			return fd
		}
	}

	p.fds = append(p.fds, f)

	return len(p.fds) - 1
}

func (p *Process) CreatePipe() (int, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pread, pwrite := io.Pipe()

	rfd := p.allocFd(&File{refs: 1, r: pread})
	wfd := p.allocFd(&File{refs: 1, w: pwrite})

	return rfd, wfd, nil
}

func (p *Process) GetFile(fd int) (*File, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fd < 0 || fd >= len(p.fds) {
		return nil, false
	}

	file := p.fds[fd]
	if file == nil {
		return nil, false
	}

	return file, true
}

func (p *Process) CloseFile(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fd < 0 || fd >= len(p.fds) {
		return ErrUnknownFile
	}

	file := p.fds[fd]
	if file == nil {
		return ErrUnknownFile
	}

	p.fds[fd] = nil

	return file.Close()
}

// Dup installs another reference to fd in the lowest free slot.
func (p *Process) Dup(fd int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fd < 0 || fd >= len(p.fds) || p.fds[fd] == nil {
		return 0, ErrUnknownFile
	}

	file := p.fds[fd]
	file.incRef()

	return p.allocFd(file), nil
}

// Grow moves the process's size bound by delta bytes and returns the old
// bound.
func (p *Process) Grow(delta int64) (memory.Addr, error) {
	return p.Mem.Grow(delta)
}

func (p *Process) Fork() (*Process, error) {
	mem, err := p.Mem.Fork()
	if err != nil {
		return nil, err
	}

	tf := *p.TrapFrame
	tf.Ret = 0

	child := &Process{
		Kernel:    p.Kernel,
		Name:      p.Name,
		Mem:       mem,
		TrapFrame: &tf,
		traceMask: p.TraceMask(),
		done:      make(chan struct{}),
	}

	if _, err := p.Kernel.processes.AssignPid(child); err != nil {
		mem.Release()
		return nil, err
	}

	p.mu.Lock()
	for _, file := range p.fds {
		if file != nil {
			file.incRef()
		}
		child.fds = append(child.fds, file)
	}
	p.mu.Unlock()

	p.Kernel.pg.Add(child, p)

	return child, nil
}

// WaitChild reaps an exited child, blocking for one if block is set. It
// returns a zero pid if block is clear and no child has exited yet.
func (p *Process) WaitChild(ctx context.Context, block bool) (int, ExitStatus, error) {
	target, err := p.Kernel.pg.ReapChild(ctx, p, block)
	if err != nil {
		return 0, ExitStatus{}, err
	}

	if target == nil {
		return 0, ExitStatus{}, nil
	}

	return target.Pid, target.ExitStatus(), nil
}

func (p *Process) Exit(code int) {
	p.Kernel.L.Trace("process-exit", "pid", p.Pid, "code", code)

	p.mu.Lock()

	if p.status == Dead {
		p.mu.Unlock()
		return
	}

	fds := p.fds
	p.fds = nil

	p.exitStatus.Code = code
	p.status = Dead

	p.mu.Unlock()

	for _, file := range fds {
		if file != nil {
			file.Close()
		}
	}

	p.Mem.Release()

	p.Kernel.pg.ProcessExited(p)

	close(p.done)
}

type ProcessManager struct {
	mu        sync.RWMutex
	max       int
	highWater int
	processes map[int]*Process
}

func NewProcessManager(max int) *ProcessManager {
	return &ProcessManager{
		max:       max,
		processes: make(map[int]*Process),
	}
}

func (p *ProcessManager) AssignPid(proc *Process) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.processes) >= p.max {
		return 0, ErrProcLimit
	}

	for i := 1; i <= p.highWater; i++ {
		if _, ok := p.processes[i]; !ok {
			proc.Pid = i
			p.processes[i] = proc
			return i, nil
		}
	}

	p.highWater++
	pid := p.highWater
	p.processes[pid] = proc
	proc.Pid = pid

	return pid, nil
}

func (p *ProcessManager) Lookup(pid int) (*Process, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	proc, ok := p.processes[pid]
	return proc, ok
}

func (p *ProcessManager) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.processes)
}

func (p *ProcessManager) RemoveProc(proc *Process) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.processes, proc.Pid)
}
