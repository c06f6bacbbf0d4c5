package vmm

import "gopherkern/kernel/mm"

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uintptr

// PageTableEntry describes a page table entry. These entries encode
// a physical frame address and a set of flags. A zero entry is unused.
type PageTableEntry uintptr

// PageTable is a single page table. Tables at every level occupy exactly one
// physical frame.
type PageTable [entriesPerTable]PageTableEntry

// Unused returns true if the entry does not map anything.
func (pte PageTableEntry) Unused() bool {
	return pte == 0
}

// HasFlags returns true if this entry has all the input flags set.
func (pte PageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uintptr(pte) & uintptr(flags)) == uintptr(flags)
}

// Flags returns the flag bits of this entry.
func (pte PageTableEntry) Flags() PageTableEntryFlag {
	return PageTableEntryFlag(uintptr(pte) &^ ptePhysPageMask)
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *PageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (PageTableEntry)(uintptr(*pte) | uintptr(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *PageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (PageTableEntry)(uintptr(*pte) &^ uintptr(flags))
}

// Address returns the physical address stored in this entry.
func (pte PageTableEntry) Address() uintptr {
	return uintptr(pte) & ptePhysPageMask
}

// Frame returns the physical page frame that this page table entry points to.
func (pte PageTableEntry) Frame() mm.Frame {
	return mm.Frame(pte.Address() >> mm.PageShift)
}

// SetFrame updates the page table entry to point the the given physical frame.
func (pte *PageTableEntry) SetFrame(frame mm.Frame) {
	*pte = (PageTableEntry)((uintptr(*pte) &^ ptePhysPageMask) | frame.Address())
}

// PageTableIndex returns the index into the page table at the given level
// (0 is the top-most, level 4 table) selected by virtAddr.
func PageTableIndex(virtAddr uintptr, level uint8) uintptr {
	return (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return virtAddr & ((1 << pageLevelShifts[pageLevels-1]) - 1)
}

// canonical returns true if virtAddr can be translated: bits 48-63 must
// either be clear or be copies of bit 47. Addresses with clear upper bits
// are implicitly sign-extended; the walk only looks at bits 12-47.
func canonical(virtAddr uintptr) bool {
	if uint64(virtAddr)>>canonicalBits == 0 {
		return true
	}

	return uint64(virtAddr)>>(canonicalBits-1) == (1<<(64-canonicalBits+1))-1
}
