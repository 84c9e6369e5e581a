package memory

import (
	"github.com/pkg/errors"
)

// UserPerm is the permission set given to heap pages.
const UserPerm = PteR | PteW | PteU

var ErrBadGrowRequest = errors.New("bad grow request")

// AddressSpace is a process's page table plus its size bound. Every user
// address below Size is mapped.
type AddressSpace struct {
	PT *PageTable

	mem  *Allocator
	size Addr
}

func NewAddressSpace(mem *Allocator) (*AddressSpace, error) {
	pt, err := NewPageTable(mem)
	if err != nil {
		return nil, err
	}

	return &AddressSpace{PT: pt, mem: mem}, nil
}

// Size is one past the highest valid user address.
func (as *AddressSpace) Size() Addr {
	return as.size
}

func pageCount(lo, hi Addr) int {
	return int((hi - lo) / PageSize)
}

// Grow moves the size bound by delta bytes, mapping or unmapping whole pages
// as needed. It returns the old size.
func (as *AddressSpace) Grow(delta int64) (Addr, error) {
	old := as.size

	switch {
	case delta > 0:
		newsz, ok := old.AddLength(uint64(delta))
		if !ok || newsz > MaxVA {
			return old, errors.Wrapf(ErrBadGrowRequest, "grow by %d from %s", delta, old)
		}

		if err := as.alloc(old, newsz); err != nil {
			return old, err
		}

		as.size = newsz
	case delta < 0:
		shrink := uint64(-delta)
		if shrink > uint64(old) {
			return old, errors.Wrapf(ErrBadGrowRequest, "shrink by %d from %s", shrink, old)
		}

		newsz := old - Addr(shrink)

		if err := as.dealloc(old, newsz); err != nil {
			return old, err
		}

		as.size = newsz
	}

	return old, nil
}

func (as *AddressSpace) alloc(oldsz, newsz Addr) error {
	start, _ := oldsz.RoundUp()

	for va := start; va < newsz; va += PageSize {
		ppn, err := as.mem.Alloc()
		if err == nil {
			err = as.PT.Map(va, ppn, UserPerm)
			if err != nil {
				as.mem.Free(ppn)
			}
		}

		if err != nil {
			as.PT.Unmap(start, pageCount(start, va), true)
			return err
		}
	}

	return nil
}

func (as *AddressSpace) dealloc(oldsz, newsz Addr) error {
	lo, _ := newsz.RoundUp()
	hi, _ := oldsz.RoundUp()

	if lo >= hi {
		return nil
	}

	return as.PT.Unmap(lo, pageCount(lo, hi), true)
}

// Fork returns a copy of the address space backed by fresh frames. Entry
// flags are copied along with the contents.
func (as *AddressSpace) Fork() (*AddressSpace, error) {
	child, err := NewAddressSpace(as.mem)
	if err != nil {
		return nil, err
	}

	for va := Addr(0); va < as.size; va += PageSize {
		ptes := as.PT.Walk(va, false)
		if ptes == nil || !ptes[0].Valid() {
			child.PT.Destroy(va)
			return nil, errors.Wrapf(ErrFault, "fork of unmapped page %s", va)
		}

		ppn, err := as.mem.Alloc()
		if err != nil {
			child.PT.Destroy(va)
			return nil, err
		}

		copy(as.mem.Frame(ppn), as.mem.Frame(ptes[0].PPN()))

		if err := child.PT.Map(va, ppn, ptes[0].Flags()); err != nil {
			as.mem.Free(ppn)
			child.PT.Destroy(va)
			return nil, err
		}
	}

	child.size = as.size

	return child, nil
}

// Release frees every frame in the address space.
func (as *AddressSpace) Release() {
	sz, _ := as.size.RoundUp()
	as.PT.Destroy(sz)
	as.size = 0
}
