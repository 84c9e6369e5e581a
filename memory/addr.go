package memory

import "fmt"

const (
	PageShift = 12
	PageSize  = 1 << PageShift

	// MaxVA is one past the highest user virtual address. One bit less than
	// a three level table could reach, so addresses never need sign
	// extension.
	MaxVA Addr = 1 << (9 + 9 + 9 + PageShift - 1)
)

// Addr is a user virtual address.
type Addr uint64

// AddLength adds the given length to start and returns the result. ok is true
// iff adding the length did not overflow.
func (v Addr) AddLength(length uint64) (end Addr, ok bool) {
	end = v + Addr(length)
	ok = end >= v
	return
}

// RoundDown returns the address rounded down to the nearest page boundary.
func (v Addr) RoundDown() Addr {
	return v & ^Addr(PageSize-1)
}

// RoundUp returns the address rounded up to the nearest page boundary. ok is
// true iff rounding up did not wrap around.
func (v Addr) RoundUp() (addr Addr, ok bool) {
	addr = Addr(v + PageSize - 1).RoundDown()
	ok = addr >= v
	return
}

func (v Addr) PageOffset() uint64 {
	return uint64(v & (PageSize - 1))
}

func (v Addr) IsPageAligned() bool {
	return v.PageOffset() == 0
}

func (v Addr) vpn() uint64 {
	return uint64(v) >> PageShift
}

func (v Addr) String() string {
	return fmt.Sprintf("%#x", uint64(v))
}
