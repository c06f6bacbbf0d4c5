package pmm

import (
	"gopherkern/kernel"
	"gopherkern/kernel/hal/bootinfo"
	"gopherkern/kernel/kfmt"
	"gopherkern/kernel/mm"
)

var (
	// ErrOutOfMemory is returned by AllocFrame once every usable frame in
	// the memory map has been handed out.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}
)

// BootInfoAllocator hands out the usable frames listed in the bootloader's
// memory map.
//
// The usable frames form a sequence obtained by filtering the memory map to
// usable regions and splitting each region into page-sized frames. The
// allocator only keeps the index of the next frame in that sequence and
// recomputes the frame for the index on each call, so it needs no storage
// besides the memory map itself.
//
// Frames are never returned to the allocator; the cursor only moves forward.
type BootInfoAllocator struct {
	memMap bootinfo.MemoryMap

	// next is the index, in the usable frame sequence, of the frame that
	// the next AllocFrame call returns.
	next uint64
}

// NewBootInfoAllocator returns an allocator for the usable frames in memMap.
// The caller must guarantee that every frame in a usable region is really
// unused.
func NewBootInfoAllocator(memMap bootinfo.MemoryMap) *BootInfoAllocator {
	alloc := new(BootInfoAllocator)
	alloc.init(memMap)
	return alloc
}

func (alloc *BootInfoAllocator) init(memMap bootinfo.MemoryMap) {
	alloc.memMap = memMap
	alloc.next = 0
}

// usableFrameRange returns the [start, end) frame range that a usable region
// contributes. Region bounds reported by the bootloader may not be
// page-aligned; the start is rounded up and the end rounded down so partial
// frames at either edge are never handed out.
func usableFrameRange(region *bootinfo.MemoryRegion) (mm.Frame, mm.Frame) {
	if region.Type != bootinfo.Usable {
		return 0, 0
	}

	pageSizeMinus1 := uint64(mm.PageSize - 1)
	start := mm.Frame(((region.Start + pageSizeMinus1) & ^pageSizeMinus1) >> mm.PageShift)
	end := mm.Frame((region.End() & ^pageSizeMinus1) >> mm.PageShift)
	if end < start {
		return start, start
	}

	return start, end
}

// VisitUsableFrames invokes visitor for each usable frame, in memory map
// order. The visitor must return true to continue or false to abort.
func (alloc *BootInfoAllocator) VisitUsableFrames(visitor func(mm.Frame) bool) {
	alloc.memMap.Visit(func(region *bootinfo.MemoryRegion) bool {
		start, end := usableFrameRange(region)
		for frame := start; frame < end; frame++ {
			if !visitor(frame) {
				return false
			}
		}
		return true
	})
}

// nthUsableFrame returns the frame at index n of the usable frame sequence
// or InvalidFrame if the sequence is shorter than n+1 frames. Whole regions
// are skipped at once so the cost is linear in the number of regions.
func (alloc *BootInfoAllocator) nthUsableFrame(n uint64) mm.Frame {
	found := mm.InvalidFrame

	alloc.memMap.Visit(func(region *bootinfo.MemoryRegion) bool {
		start, end := usableFrameRange(region)
		if count := uint64(end - start); n >= count {
			n -= count
			return true
		}

		found = start + mm.Frame(n)
		return false
	})

	return found
}

// AllocFrame reserves the next usable frame. It returns ErrOutOfMemory once
// all usable frames have been allocated; subsequent calls keep failing.
func (alloc *BootInfoAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	frame := alloc.nthUsableFrame(alloc.next)
	if !frame.Valid() {
		return mm.InvalidFrame, ErrOutOfMemory
	}

	alloc.next++
	return frame, nil
}

// UsableFrames returns the total number of usable frames in the memory map.
func (alloc *BootInfoAllocator) UsableFrames() uint64 {
	var total uint64
	alloc.memMap.Visit(func(region *bootinfo.MemoryRegion) bool {
		start, end := usableFrameRange(region)
		total += uint64(end - start)
		return true
	})
	return total
}

// AllocatedFrames returns the number of frames handed out so far.
func (alloc *BootInfoAllocator) AllocatedFrames() uint64 {
	return alloc.next
}

// PrintMemoryMap logs the memory map and the amount of usable memory.
func (alloc *BootInfoAllocator) PrintMemoryMap() {
	kfmt.Printf("[pmm] system memory map:\n")
	alloc.memMap.Visit(func(region *bootinfo.MemoryRegion) bool {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n", region.Start, region.End(), region.Length, region.Type.String())
		return true
	})

	usable := alloc.UsableFrames()
	kfmt.Printf("[pmm] usable memory: %dKb (%d frames)\n", uint64(mm.Size(usable<<mm.PageShift)/mm.Kb), usable)
}
