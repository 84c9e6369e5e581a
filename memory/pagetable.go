package memory

import (
	"github.com/pkg/errors"
)

var (
	ErrFault = errors.New("bad address")
	ErrRemap = errors.New("page already mapped")
)

// PageTable maps user virtual pages to frames from an Allocator. Only the
// leaf level is materialized; leaf tables are keyed by the upper bits of the
// virtual page number.
//
// A PageTable is owned by a single process and is not safe for concurrent
// mutation.
type PageTable struct {
	mem    *Allocator
	leaves map[uint64]*[EntriesPerTable]PTE
	walks  *walkCache
}

func NewPageTable(mem *Allocator) (*PageTable, error) {
	walks, err := newWalkCache()
	if err != nil {
		return nil, err
	}

	return &PageTable{
		mem:    mem,
		leaves: make(map[uint64]*[EntriesPerTable]PTE),
		walks:  walks,
	}, nil
}

// Walk returns the leaf entries starting at the slot for va and running to the
// end of that leaf table. If alloc is set a missing leaf table is created.
// Returns nil if va is out of range or no table exists.
func (pt *PageTable) Walk(va Addr, alloc bool) []PTE {
	if va >= MaxVA {
		return nil
	}

	dir := va.vpn() / EntriesPerTable

	leaf, ok := pt.leaves[dir]
	if !ok {
		if !alloc {
			return nil
		}

		leaf = new([EntriesPerTable]PTE)
		pt.leaves[dir] = leaf
	}

	return leaf[va.vpn()%EntriesPerTable:]
}

// Map installs a mapping for the page at va.
func (pt *PageTable) Map(va Addr, ppn uint64, perm PTE) error {
	if !va.IsPageAligned() {
		return errors.Wrapf(ErrFault, "map of unaligned address %s", va)
	}

	ptes := pt.Walk(va, true)
	if ptes == nil {
		return errors.Wrapf(ErrFault, "map of %s", va)
	}

	if ptes[0].Valid() {
		return errors.Wrapf(ErrRemap, "map of %s", va)
	}

	ptes[0] = FromPPN(ppn, perm|PteV)

	return nil
}

// Unmap removes npages mappings starting at va, optionally freeing the frames.
func (pt *PageTable) Unmap(va Addr, npages int, free bool) error {
	if !va.IsPageAligned() {
		return errors.Wrapf(ErrFault, "unmap of unaligned address %s", va)
	}

	for i := 0; i < npages; i++ {
		a := va + Addr(i*PageSize)

		ptes := pt.Walk(a, false)
		if ptes == nil || !ptes[0].Valid() {
			return errors.Wrapf(ErrFault, "unmap of unmapped page %s", a)
		}

		if free {
			pt.mem.Free(ptes[0].PPN())
		}

		ptes[0] = 0
		pt.walks.flush(a.vpn())
	}

	return nil
}

// translate looks up the frame for a user page the way the kernel does: the
// entry must be valid and user accessible.
func (pt *PageTable) translate(va Addr) ([]byte, PTE, error) {
	ptes := pt.Walk(va, false)
	if ptes == nil {
		return nil, 0, errors.Wrapf(ErrFault, "no mapping for %s", va)
	}

	pte := ptes[0]
	if pte&(PteV|PteU) != PteV|PteU {
		return nil, 0, errors.Wrapf(ErrFault, "no user mapping for %s", va)
	}

	return pt.mem.Frame(pte.PPN()), pte, nil
}

// CopyIn copies len(dst) bytes from user address src.
func (pt *PageTable) CopyIn(dst []byte, src Addr) error {
	for len(dst) > 0 {
		va0 := src.RoundDown()

		frame, _, err := pt.translate(va0)
		if err != nil {
			return err
		}

		off := src.PageOffset()
		n := copy(dst, frame[off:])

		dst = dst[n:]
		src = va0 + PageSize
	}

	return nil
}

// CopyOut copies src to user address dst. The destination pages must be
// writable.
func (pt *PageTable) CopyOut(dst Addr, src []byte) error {
	for len(src) > 0 {
		va0 := dst.RoundDown()

		frame, pte, err := pt.translate(va0)
		if err != nil {
			return err
		}

		if pte&PteW == 0 {
			return errors.Wrapf(ErrFault, "copyout to read-only page %s", va0)
		}

		off := dst.PageOffset()
		n := copy(frame[off:], src)

		src = src[n:]
		dst = va0 + PageSize
	}

	return nil
}

// CopyInString copies a nul terminated string from user address src, reading
// at most max bytes including the terminator. The terminator is not returned.
func (pt *PageTable) CopyInString(src Addr, max uint64) ([]byte, error) {
	var buf []byte

	for max > 0 {
		va0 := src.RoundDown()

		frame, _, err := pt.translate(va0)
		if err != nil {
			return nil, err
		}

		chunk := frame[src.PageOffset():]
		if uint64(len(chunk)) > max {
			chunk = chunk[:max]
		}

		for _, b := range chunk {
			if b == 0 {
				return buf, nil
			}

			buf = append(buf, b)
		}

		max -= uint64(len(chunk))
		src = va0 + PageSize
	}

	return nil, errors.Wrap(ErrFault, "string not terminated")
}

// userSlot finds the entry backing a user-mode access, going through the walk
// cache.
func (pt *PageTable) userSlot(va Addr) (*PTE, error) {
	vpn := va.vpn()

	if slot, ok := pt.walks.lookup(vpn); ok {
		return slot, nil
	}

	ptes := pt.Walk(va, false)
	if ptes == nil {
		return nil, errors.Wrapf(ErrFault, "user access to %s", va)
	}

	slot := &ptes[0]
	pt.walks.add(vpn, slot)

	return slot, nil
}

func (pt *PageTable) userAccess(va Addr, n int, need PTE, fn func(frame []byte) int) error {
	for n > 0 {
		va0 := va.RoundDown()

		slot, err := pt.userSlot(va0)
		if err != nil {
			return err
		}

		if *slot&(need|PteV|PteU) != need|PteV|PteU {
			return errors.Wrapf(ErrFault, "user access to %s (%s)", va0, *slot)
		}

		// The hardware sets these on every access.
		*slot |= PteA
		if need&PteW != 0 {
			*slot |= PteD
		}

		frame := pt.mem.Frame(slot.PPN())
		done := fn(frame[va.PageOffset():])

		n -= done
		va = va0 + PageSize
	}

	return nil
}

// Load performs a user-mode read of len(dst) bytes at va, marking the pages
// accessed.
func (pt *PageTable) Load(dst []byte, va Addr) error {
	return pt.userAccess(va, len(dst), PteR, func(frame []byte) int {
		n := copy(dst, frame)
		dst = dst[n:]
		return n
	})
}

// Store performs a user-mode write of src at va, marking the pages accessed
// and dirty.
func (pt *PageTable) Store(va Addr, src []byte) error {
	return pt.userAccess(va, len(src), PteW, func(frame []byte) int {
		n := copy(frame, src)
		src = src[n:]
		return n
	})
}

// Destroy frees every frame mapped below sz and drops all tables.
func (pt *PageTable) Destroy(sz Addr) {
	for va := Addr(0); va < sz; va += PageSize {
		ptes := pt.Walk(va, false)
		if ptes != nil && ptes[0].Valid() {
			pt.mem.Free(ptes[0].PPN())
			ptes[0] = 0
		}
	}

	pt.leaves = make(map[uint64]*[EntriesPerTable]PTE)
	pt.walks.flushAll()
}
