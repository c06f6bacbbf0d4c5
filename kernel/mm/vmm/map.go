package vmm

import (
	"gopherkern/kernel"
	"gopherkern/kernel/mm"
)

const (
	// vgaTextBufferAddr is the physical address of the VGA text buffer.
	vgaTextBufferAddr = uintptr(0xb8000)
)

var (
	// ErrFrameAllocationFailed is returned by Map when a frame for a
	// missing intermediate page table could not be allocated.
	ErrFrameAllocationFailed = &kernel.Error{Module: "vmm", Message: "frame allocation failed"}

	// ErrParentEntryHugePage is returned when an entry above the last
	// level maps a huge page and therefore cannot be subdivided.
	ErrParentEntryHugePage = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}

	// ErrPageAlreadyMapped is returned by Map if the page is already
	// mapped to a frame.
	ErrPageAlreadyMapped = &kernel.Error{Module: "vmm", Message: "page is already mapped"}

	// ErrNonCanonicalAddress is returned when the upper 16 bits of a virtual
	// address are neither clear nor a sign extension of bit 47.
	ErrNonCanonicalAddress = &kernel.Error{Module: "vmm", Message: "non-canonical virtual address"}
)

// Map establishes a mapping between a virtual page and a physical memory
// frame. Missing intermediate page tables are allocated via alloc and cleared
// before being linked into their parent table.
//
// Before Map returns, the TLB entry for the page is flushed; the mapping is
// not guaranteed to be visible to the CPU until that happens.
func (pt *OffsetPageTable) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	if !canonical(page.Address()) {
		return ErrNonCanonicalAddress
	}

	pt.lock.Acquire()
	defer pt.lock.Release()

	var (
		err *kernel.Error

		// Intermediate tables must be at least as permissive as the
		// leaf entry or the CPU ignores the leaf permissions.
		parentFlags = FlagPresent | FlagRW | (flags & FlagUserAccessible)
	)

	pt.walk(page.Address(), func(pteLevel uint8, pte *PageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place and flush its TLB entry
		if pteLevel == pageLevels-1 {
			if !pte.Unused() {
				err = ErrPageAlreadyMapped
				return false
			}

			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			pt.flushTLBEntry(page.Address())
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = ErrParentEntryHugePage
			return false
		}

		// Next table does not yet exist; we need to allocate a
		// physical frame for it and clear its contents.
		if !pte.HasFlags(FlagPresent) {
			newTableFrame, allocErr := alloc.AllocFrame()
			if allocErr != nil {
				err = ErrFrameAllocationFailed
				return false
			}

			*pt.tableAt(newTableFrame) = PageTable{}

			*pte = 0
			pte.SetFrame(newTableFrame)
		}

		pte.SetFlags(parentFlags)
		return true
	})

	return err
}

// Unmap removes the mapping for page and returns the frame it pointed to.
// The TLB entry for the page is flushed before Unmap returns.
func (pt *OffsetPageTable) Unmap(page mm.Page) (mm.Frame, *kernel.Error) {
	pt.lock.Acquire()
	defer pt.lock.Release()

	var (
		frame = mm.InvalidFrame
		err   = ErrInvalidMapping
	)

	pt.walk(page.Address(), func(pteLevel uint8, pte *PageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		if pteLevel == pageLevels-1 {
			frame, err = pte.Frame(), nil
			*pte = 0
			pt.flushTLBEntry(page.Address())
			return false
		}

		if pte.HasFlags(FlagHugePage) {
			err = ErrParentEntryHugePage
			return false
		}

		return true
	})

	return frame, err
}

// UpdateFlags replaces the flags of an existing page mapping while keeping
// the frame it points to. The TLB entry for the page is flushed before
// UpdateFlags returns.
func (pt *OffsetPageTable) UpdateFlags(page mm.Page, flags PageTableEntryFlag) *kernel.Error {
	pt.lock.Acquire()
	defer pt.lock.Release()

	err := ErrInvalidMapping

	pt.walk(page.Address(), func(pteLevel uint8, pte *PageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		if pteLevel == pageLevels-1 {
			pte.ClearFlags(pte.Flags())
			pte.SetFlags(flags)
			pt.flushTLBEntry(page.Address())
			err = nil
			return false
		}

		if pte.HasFlags(FlagHugePage) {
			err = ErrParentEntryHugePage
			return false
		}

		return true
	})

	return err
}

// MapRegion maps count consecutive pages starting at startPage to count
// consecutive frames starting at startFrame. It stops at the first error.
func (pt *OffsetPageTable) MapRegion(startPage mm.Page, startFrame mm.Frame, count uintptr, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	page, frame := startPage, startFrame
	for ; count > 0; count, page, frame = count-1, page+1, frame+1 {
		if err := pt.Map(page, frame, flags, alloc); err != nil {
			return err
		}
	}

	return nil
}

// IdentityMap maps frame to the page with the same address.
func (pt *OffsetPageTable) IdentityMap(frame mm.Frame, flags PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	return pt.Map(mm.Page(frame), frame, flags, alloc)
}

// CreateExampleMapping maps page to the VGA text buffer frame. Writing to the
// page afterwards prints characters on screen, which makes it a convenient
// smoke test for Map.
func (pt *OffsetPageTable) CreateExampleMapping(page mm.Page, alloc mm.FrameAllocator) *kernel.Error {
	return pt.Map(page, mm.FrameFromAddress(vgaTextBufferAddr), FlagPresent|FlagRW, alloc)
}
