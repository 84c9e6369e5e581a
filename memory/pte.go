package memory

import "strings"

// PTE is a leaf page-table entry: flag bits in 0..9, physical page number
// from bit 10 up.
type PTE uint64

const (
	PteV PTE = 1 << iota // valid
	PteR                 // readable
	PteW                 // writable
	PteX                 // executable
	PteU                 // user accessible
	PteG                 // global
	PteA                 // accessed
	PteD                 // dirty
)

const (
	// EntriesPerTable is the number of entries in one page-table page.
	EntriesPerTable = PageSize / 8

	pteFlagBits = 10
	pteFlagMask = PTE(1<<pteFlagBits - 1)
)

func FromPPN(ppn uint64, flags PTE) PTE {
	return PTE(ppn<<pteFlagBits) | (flags & pteFlagMask)
}

func (p PTE) PPN() uint64 {
	return uint64(p) >> pteFlagBits
}

func (p PTE) Flags() PTE {
	return p & pteFlagMask
}

func (p PTE) Valid() bool {
	return p&PteV != 0
}

func (p PTE) Accessed() bool {
	return p&PteA != 0
}

func (p PTE) Dirty() bool {
	return p&PteD != 0
}

func (p PTE) String() string {
	var sb strings.Builder

	for i, c := range "vrwxugad" {
		if p&(1<<uint(i)) != 0 {
			sb.WriteRune(c - 'a' + 'A')
		} else {
			sb.WriteByte('-')
		}
	}

	return sb.String()
}
