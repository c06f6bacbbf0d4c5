package main

import (
	"errors"
	"fmt"
	"io"
	"unsafe"

	ktty "gopherkern/kernel/driver/tty"
	"gopherkern/kernel/driver/video/console"
	"gopherkern/kernel/hal/bootinfo"
	"gopherkern/kernel/kfmt"
	"gopherkern/kernel/kmain"
	"gopherkern/kernel/mm"
	"gopherkern/kernel/mm/pmm"
	"gopherkern/kernel/mm/vmm"
	"gopherkern/kernel/task"
)

const (
	// l4TableAddr is where the simulated bootloader placed the level 4
	// page table.
	l4TableAddr = 0x1000

	lowMemEnd     = 0x9f000
	kernelImgAddr = 0x100000
	kernelImgSize = 0x100000

	minMemSize = 4 * mm.Mb
)

var errMemTooSmall = fmt.Errorf("simulated memory must be at least %d MiB", uint64(minMemSize/mm.Mb))

// machine simulates the physical address space handed to the kernel by the
// bootloader. Physical memory is a Go slice; the physical memory offset is
// the address of its first byte so the kernel reaches it through the same
// offset rule it uses on real hardware.
type machine struct {
	frames []vmm.PageTable
	info   bootinfo.Info
	pt     *vmm.OffsetPageTable

	// the simulated text screen mirrors everything written to the
	// kernel output.
	cons console.Ega
	vt   ktty.Vt
}

func newMachine(size mm.Size) (*machine, error) {
	if size < minMemSize {
		return nil, errMemTooSmall
	}

	m := &machine{frames: make([]vmm.PageTable, size.Pages())}
	memSize := uint64(len(m.frames)) << mm.PageShift

	m.info = bootinfo.Info{
		PhysicalMemoryOffset: uintptr(unsafe.Pointer(&m.frames[0])),
		MemoryMap: bootinfo.MemoryMap{
			{Start: 0, Length: l4TableAddr, Type: bootinfo.FrameZero},
			{Start: l4TableAddr, Length: uint64(mm.PageSize), Type: bootinfo.PageTable},
			{Start: l4TableAddr + uint64(mm.PageSize), Length: lowMemEnd - l4TableAddr - uint64(mm.PageSize), Type: bootinfo.Usable},
			{Start: lowMemEnd, Length: kernelImgAddr - lowMemEnd, Type: bootinfo.Reserved},
			{Start: kernelImgAddr, Length: kernelImgSize, Type: bootinfo.Kernel},
			{Start: kernelImgAddr + kernelImgSize, Length: memSize - kernelImgAddr - kernelImgSize, Type: bootinfo.Usable},
		},
	}

	return m, nil
}

// frameCount returns the number of simulated physical frames.
func (m *machine) frameCount() int {
	return len(m.frames)
}

// physBytes returns a view of n bytes of simulated physical memory starting
// at physAddr.
func (m *machine) physBytes(physAddr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(m.info.PhysicalMemoryOffset+physAddr)), n)
}

// boot runs the kernel initialization sequence against the simulated
// address space. Kernel log output (prefixed with "| ") and echoed keypresses
// go to out and to the simulated text screen.
func (m *machine) boot(out io.Writer) (*task.Executor, error) {
	bootinfo.SetInfo(m.info)

	m.cons.Init(console.DefaultWidth, console.DefaultHeight, m.info.PhysicalMemoryOffset+console.TextBufferAddr)
	m.vt.AttachTo(&m.cons)
	m.vt.Clear()
	kfmt.SetOutputSink(io.MultiWriter(&kfmt.PrefixWriter{Sink: out, Prefix: []byte("| ")}, &m.vt))
	keysOut := io.MultiWriter(out, &m.vt)
	kfmt.Printf("Starting gopherkern (simulated, %dKb)\n", uint64(len(m.frames))*uint64(mm.PageSize)/1024)

	if err := pmm.Init(bootinfo.GetInfo().MemoryMap); err != nil {
		return nil, err
	}

	m.pt = vmm.NewOffsetPageTable(mm.FrameFromAddress(l4TableAddr), m.info.PhysicalMemoryOffset)
	exec, err := kmain.Boot(m.pt, mm.DefaultAllocator(), keysOut)
	if err != nil {
		return nil, err
	}

	return exec, nil
}

// allocatedFrames returns the set of frames handed out by the kernel frame
// allocator.
func allocatedFrames(alloc *pmm.BootInfoAllocator) map[mm.Frame]bool {
	allocated := make(map[mm.Frame]bool)
	remaining := alloc.AllocatedFrames()

	alloc.VisitUsableFrames(func(frame mm.Frame) bool {
		if remaining == 0 {
			return false
		}
		allocated[frame] = true
		remaining--
		return true
	})

	return allocated
}

// regionTypeOf returns the type of the memory map region containing frame.
func regionTypeOf(memMap bootinfo.MemoryMap, frame mm.Frame) (bootinfo.RegionType, error) {
	addr := uint64(frame.Address())
	for _, region := range memMap {
		if addr >= region.Start && addr < region.End() {
			return region.Type, nil
		}
	}

	return bootinfo.Empty, errors.New("frame not covered by the memory map")
}
