package vmm

import (
	"gopherkern/kernel/mm"
	"unsafe"
)

var (
	// tablePtrFn converts the virtual address of a page table (its physical
	// address plus the physical memory offset) into a pointer. When
	// compiling the kernel this function will be automatically inlined.
	tablePtrFn = func(virtAddr uintptr) *PageTable {
		return (*PageTable)(unsafe.Pointer(virtAddr))
	}
)

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level (0 is the top-most level) and the
// page table entry for the walked address at that level. If the function
// returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *PageTableEntry) bool

// tableAt returns the page table stored in the given physical frame. The
// table is reached through the region where all of physical memory is
// mapped.
func (pt *OffsetPageTable) tableAt(frame mm.Frame) *PageTable {
	return tablePtrFn(pt.PhysToVirt(frame.Address()))
}

// walk performs a page table walk for the given virtual address starting at
// the level 4 table. It calls walkFn with the entry that corresponds to each
// page table level. After walkFn returns true for a non-leaf level, the walk
// descends into the table that the (possibly just updated) entry points to.
func (pt *OffsetPageTable) walk(virtAddr uintptr, walkFn pageTableWalker) {
	table := pt.tableAt(pt.l4Frame)

	for level := uint8(0); level < pageLevels; level++ {
		pte := &table[PageTableIndex(virtAddr, level)]
		if !walkFn(level, pte) || level == pageLevels-1 {
			return
		}

		table = pt.tableAt(pte.Frame())
	}
}
