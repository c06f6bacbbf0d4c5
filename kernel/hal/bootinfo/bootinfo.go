// Package bootinfo decodes the hand-off data that the bootloader passes to
// the kernel entry point: the physical memory map and the virtual offset at
// which the bootloader mapped all of physical memory.
package bootinfo

import "unsafe"

// MaxRegions is the number of memory map slots reserved by the bootloader.
const MaxRegions = 64

// RegionType classifies a memory region. Only Usable regions may be handed
// out by the frame allocator.
type RegionType uint32

const (
	// Usable memory is free for the kernel to use.
	Usable RegionType = iota

	// InUse memory is used by something the bootloader does not know about.
	InUse

	// Reserved memory is reserved by the firmware.
	Reserved

	// AcpiReclaimable memory holds ACPI tables that can be reclaimed once
	// they have been parsed.
	AcpiReclaimable

	// AcpiNvs memory must be preserved across sleep states.
	AcpiNvs

	// BadMemory contains memory errors.
	BadMemory

	// Kernel marks the memory holding the kernel image.
	Kernel

	// KernelStack marks the memory holding the kernel stack.
	KernelStack

	// PageTable marks the frames used by the bootloader-built page tables.
	PageTable

	// Bootloader marks memory used by the bootloader itself.
	Bootloader

	// FrameZero is the physical frame at address 0. It is never handed out
	// so that a zero physical address can never be valid.
	FrameZero

	// Empty marks an unused memory map slot.
	Empty

	// BootInfo marks the memory holding the boot information structure.
	BootInfo

	// Package marks memory holding a package loaded by the bootloader.
	Package

	// Any value >= regionUnknown is treated as Reserved.
	regionUnknown
)

var regionTypeNames = [...]string{
	"usable", "in use", "reserved", "ACPI (reclaimable)", "ACPI NVS",
	"bad memory", "kernel", "kernel stack", "page table", "bootloader",
	"frame zero", "empty", "boot info", "package",
}

// String implements fmt.Stringer for RegionType.
func (t RegionType) String() string {
	if t >= regionUnknown {
		return "unknown"
	}
	return regionTypeNames[t]
}

// MemoryRegion describes a physical memory region, namely its start address,
// its length and its type.
type MemoryRegion struct {
	// The physical address where this region starts.
	Start uint64

	// The length of the region in bytes.
	Length uint64

	// The type of this region.
	Type RegionType
}

// End returns the physical address just past the end of the region.
func (r *MemoryRegion) End() uint64 {
	return r.Start + r.Length
}

// MemoryMap is the ordered list of memory regions reported by the bootloader.
type MemoryMap []MemoryRegion

// MemRegionVisitor is invoked by Visit for each memory region. The visitor
// must return true to continue or false to abort the scan.
type MemRegionVisitor func(region *MemoryRegion) bool

// Visit invokes visitor for each region in the map, in order.
func (m MemoryMap) Visit(visitor MemRegionVisitor) {
	for i := range m {
		if !visitor(&m[i]) {
			return
		}
	}
}

// Info is the decoded boot hand-off data.
type Info struct {
	// PhysicalMemoryOffset is the virtual address at which the bootloader
	// mapped the complete physical address space.
	PhysicalMemoryOffset uintptr

	// MemoryMap describes the physical memory layout.
	MemoryMap MemoryMap
}

// rawRegion mirrors the layout of a memory map entry as written by the
// bootloader: a frame range followed by a tagged region type.
type rawRegion struct {
	startFrame, endFrame uint64
	regionType           uint32
	_                    uint32
}

// rawInfo mirrors the layout of the boot information structure.
type rawInfo struct {
	regions              [MaxRegions]rawRegion
	regionCount          uint64
	physicalMemoryOffset uint64
}

const frameShift = 12

var (
	// activeInfo is populated once by SetInfo or SetInfoPtr and is
	// read-only afterwards.
	activeInfo Info

	// regionStorage backs activeInfo.MemoryMap when decoding the raw
	// structure so that SetInfoPtr does not need to allocate.
	regionStorage [MaxRegions]MemoryRegion
)

// SetInfoPtr decodes the boot information structure located at ptr. It must
// be invoked once, by the kernel entry point, before any other function
// exported by this package.
func SetInfoPtr(ptr uintptr) {
	raw := (*rawInfo)(unsafe.Pointer(ptr))

	count := raw.regionCount
	if count > MaxRegions {
		count = MaxRegions
	}

	for i := uint64(0); i < count; i++ {
		r := &raw.regions[i]
		regionStorage[i] = MemoryRegion{
			Start:  r.startFrame << frameShift,
			Length: (r.endFrame - r.startFrame) << frameShift,
			Type:   RegionType(r.regionType),
		}

		if regionStorage[i].Type >= regionUnknown {
			regionStorage[i].Type = Reserved
		}
	}

	activeInfo = Info{
		PhysicalMemoryOffset: uintptr(raw.physicalMemoryOffset),
		MemoryMap:            regionStorage[:count],
	}
}

// SetInfo installs already decoded boot information. It is used by hosted
// environments that synthesize the hand-off data.
func SetInfo(info Info) {
	activeInfo = info
}

// GetInfo returns the active boot information.
func GetInfo() *Info {
	return &activeInfo
}
