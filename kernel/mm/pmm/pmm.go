// Package pmm contains code that manages physical memory frame allocations.
package pmm

import (
	"gopherkern/kernel"
	"gopherkern/kernel/hal/bootinfo"
	"gopherkern/kernel/mm"
)

var (
	// bootAllocator is the frame allocator used for the lifetime of the
	// kernel. It is registered with the mm package by Init.
	bootAllocator BootInfoAllocator
)

// Init sets up the kernel physical memory allocation sub-system using the
// memory map supplied by the bootloader and registers the allocator with the
// mm package.
func Init(memMap bootinfo.MemoryMap) *kernel.Error {
	bootAllocator.init(memMap)
	bootAllocator.PrintMemoryMap()

	if bootAllocator.UsableFrames() == 0 {
		return ErrOutOfMemory
	}

	mm.SetFrameAllocator(&bootAllocator)
	return nil
}

// Allocator returns the allocator set up by Init.
func Allocator() *BootInfoAllocator {
	return &bootAllocator
}
