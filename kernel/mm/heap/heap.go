// Package heap sets up the virtual memory region that backs the kernel heap.
package heap

import (
	"gopherkern/kernel"
	"gopherkern/kernel/kfmt"
	"gopherkern/kernel/mm"
	"gopherkern/kernel/mm/vmm"
)

const (
	// Start is the virtual address where the heap region begins.
	Start uintptr = 0x4444_4444_0000

	// Size is the size of the heap region.
	Size = 100 * mm.Kb
)

// Region describes a mapped heap region.
type Region struct {
	Start uintptr
	Size  mm.Size
}

// End returns the first virtual address past the region.
func (r Region) End() uintptr {
	return r.Start + uintptr(r.Size)
}

// Mapper is implemented by page tables that can establish page mappings.
type Mapper interface {
	Map(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error
}

// Init maps every page of the heap region to a freshly allocated frame. Any
// allocation or mapping error is returned to the caller; pages mapped before
// the failure stay mapped.
func Init(mapper Mapper, alloc mm.FrameAllocator) (Region, *kernel.Error) {
	region := Region{Start: Start, Size: Size}

	mapFlags := vmm.FlagPresent | vmm.FlagRW
	pageCount := Size.Pages()
	for page := mm.PageFromAddress(Start); pageCount > 0; pageCount, page = pageCount-1, page+1 {
		frame, err := alloc.AllocFrame()
		if err != nil {
			return region, err
		}

		if err = mapper.Map(page, frame, mapFlags, alloc); err != nil {
			return region, err
		}
	}

	kfmt.Printf("[heap] mapped %dKb at 0x%x\n", uint64(Size/mm.Kb), Start)
	return region, nil
}
