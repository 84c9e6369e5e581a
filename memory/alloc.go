package memory

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrOutOfMemory = errors.New("out of physical memory")

// Allocator hands out fixed size physical frames. It is shared by every
// address space in a kernel.
type Allocator struct {
	mu sync.Mutex

	frames [][]byte
	free   []uint64
}

func NewAllocator(pages int) *Allocator {
	a := &Allocator{
		frames: make([][]byte, pages),
		free:   make([]uint64, 0, pages),
	}

	// Hand out low frames first.
	for i := pages - 1; i >= 0; i-- {
		a.free = append(a.free, uint64(i))
	}

	return a
}

// Alloc returns the page number of a zeroed frame.
func (a *Allocator) Alloc() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.free) == 0 {
		return 0, ErrOutOfMemory
	}

	ppn := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]

	if a.frames[ppn] == nil {
		a.frames[ppn] = make([]byte, PageSize)
	} else {
		for i := range a.frames[ppn] {
			a.frames[ppn][i] = 0
		}
	}

	return ppn, nil
}

func (a *Allocator) Free(ppn uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ppn >= uint64(len(a.frames)) || a.frames[ppn] == nil {
		panic(errors.Errorf("free of bad frame %d", ppn))
	}

	a.free = append(a.free, ppn)
}

// Frame returns the backing bytes of an allocated frame.
func (a *Allocator) Frame(ppn uint64) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.frames[ppn]
}

func (a *Allocator) FreePages() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.free)
}

func (a *Allocator) FreeBytes() uint64 {
	return uint64(a.FreePages()) * PageSize
}
