// Package vmm implements the virtual memory manager: it walks and edits the
// active 4-level page table hierarchy.
//
// The bootloader maps the entire physical address space at a fixed virtual
// offset before jumping to the kernel. Every physical address that vmm needs
// to dereference (page tables at all levels) is therefore reached by adding
// that offset to it.
package vmm

import (
	"gopherkern/kernel"
	"gopherkern/kernel/cpu"
	"gopherkern/kernel/kfmt"
	"gopherkern/kernel/mm"
	"gopherkern/kernel/sync"
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	activePDTFn     = cpu.ActivePDT
	flushTLBEntryFn = cpu.FlushTLBEntry

	// activeTable is the only handle to the page table hierarchy that is
	// currently loaded in CR3. It is handed out once by Init.
	activeTable       OffsetPageTable
	activeTableHanded bool

	// ErrAlreadyInitialized is returned by Init if the active page table
	// handle has already been handed out.
	ErrAlreadyInitialized = &kernel.Error{Module: "vmm", Message: "active page table is already in use"}
)

// OffsetPageTable provides access to a page table hierarchy whose frames are
// reachable through the physical memory offset mapping. All operations on
// the hierarchy are serialized; callers must not use it from interrupt
// handlers.
type OffsetPageTable struct {
	lock sync.Spinlock

	// l4Frame is the physical frame holding the level 4 table.
	l4Frame mm.Frame

	// physOffset is the virtual address at which physical address 0 is
	// mapped.
	physOffset uintptr

	// active is set for the hierarchy loaded in CR3. TLB entries are only
	// flushed for the active hierarchy.
	active bool
}

// NewOffsetPageTable returns a handle for an inactive hierarchy rooted at
// l4Frame. The caller must guarantee that all of physical memory is mapped at
// physOffset and that no other handle for the same hierarchy is alive.
func NewOffsetPageTable(l4Frame mm.Frame, physOffset uintptr) *OffsetPageTable {
	return &OffsetPageTable{l4Frame: l4Frame, physOffset: physOffset}
}

// Init returns the handle for the page table hierarchy that is currently
// active (as recorded in CR3). The handle can only be obtained once; any
// further call returns ErrAlreadyInitialized so that two mutable views of the
// active tables can never coexist.
func Init(physOffset uintptr) (*OffsetPageTable, *kernel.Error) {
	if activeTableHanded {
		return nil, ErrAlreadyInitialized
	}

	activeTableHanded = true
	activeTable.l4Frame = mm.FrameFromAddress(activePDTFn() & ptePhysPageMask)
	activeTable.physOffset = physOffset
	activeTable.active = true

	kfmt.Printf("[vmm] active level 4 table at 0x%x; physical memory mapped at 0x%x\n",
		activeTable.l4Frame.Address(),
		physOffset,
	)

	return &activeTable, nil
}

// L4Frame returns the physical frame that holds the level 4 table.
func (pt *OffsetPageTable) L4Frame() mm.Frame {
	return pt.l4Frame
}

// Active returns true if this hierarchy is the one loaded in CR3.
func (pt *OffsetPageTable) Active() bool {
	return pt.active
}

// PhysToVirt returns the virtual address through which the given physical
// address can be accessed.
func (pt *OffsetPageTable) PhysToVirt(physAddr uintptr) uintptr {
	return pt.physOffset + physAddr
}

// flushTLBEntry invalidates the TLB entry for virtAddr if this hierarchy is
// the active one.
func (pt *OffsetPageTable) flushTLBEntry(virtAddr uintptr) {
	if pt.active {
		flushTLBEntryFn(virtAddr)
	}
}
