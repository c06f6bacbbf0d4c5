// Package kmain contains the kernel entry point and its initialization
// sequence.
package kmain

import (
	"gopherkern/kernel"
	"gopherkern/kernel/cpu"
	"gopherkern/kernel/driver/keyboard"
	"gopherkern/kernel/driver/tty"
	"gopherkern/kernel/driver/video/console"
	"gopherkern/kernel/hal/bootinfo"
	"gopherkern/kernel/kfmt"
	"gopherkern/kernel/mm"
	"gopherkern/kernel/mm/heap"
	"gopherkern/kernel/mm/pmm"
	"gopherkern/kernel/mm/vmm"
	"gopherkern/kernel/task"
	"io"
)

// ExamplePageAddr is the virtual address of the page that Boot maps to the
// VGA text buffer.
const ExamplePageAddr uintptr = 0xdeadbeaf000

var (
	// the following functions are mocked by tests.
	panicFn             = kfmt.Panic
	interruptsEnabledFn = cpu.InterruptsEnabled
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts

	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	// exampleMessage spells "New!" in white on black. It is written to the
	// example page once the page is mapped.
	exampleMessage = [...]uint16{0xf04e, 0xf065, 0xf077, 0xf021}

	earlyConsole console.Ega
	earlyVt      tty.Vt
	earlyOut     = interruptSafeWriter{w: &earlyVt}
)

// interruptSafeWriter keeps interrupts disabled while writing to w. Interrupt
// handlers may print (kfmt.Panic does); if one fired while task code held
// the console lock it would spin on that lock forever.
type interruptSafeWriter struct {
	w io.Writer
}

// Write implements io.Writer.
func (isw *interruptSafeWriter) Write(p []byte) (int, error) {
	enabled := interruptsEnabledFn()
	disableInterruptsFn()
	n, err := isw.w.Write(p)
	if enabled {
		enableInterruptsFn()
	}

	return n, err
}

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. The rt0 code invokes it with the boot information
// assembled by the bootloader: the memory map and the virtual address at
// which all of physical memory is mapped.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(info *bootinfo.Info) {
	earlyConsole.Init(console.DefaultWidth, console.DefaultHeight, info.PhysicalMemoryOffset+console.TextBufferAddr)
	earlyVt.AttachTo(&earlyConsole)
	earlyVt.Clear()
	kfmt.SetOutputSink(&earlyOut)

	kfmt.Printf("Starting gopherkern\n")

	var err *kernel.Error
	if err = pmm.Init(info.MemoryMap); err != nil {
		panicFn(err)
		return
	}

	pt, err := vmm.Init(info.PhysicalMemoryOffset)
	if err != nil {
		panicFn(err)
		return
	}

	exec, err := Boot(pt, mm.DefaultAllocator(), &earlyOut)
	if err != nil {
		panicFn(err)
		return
	}

	exec.Run()

	// Use panicFn instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// Boot runs the part of the initialization sequence that follows the setup
// of the memory managers: it maps the example page, maps the heap and returns
// an executor with the initial tasks spawned. Keypresses are echoed to out.
func Boot(pt *vmm.OffsetPageTable, alloc mm.FrameAllocator, out io.Writer) (*task.Executor, *kernel.Error) {
	examplePage := mm.PageFromAddress(ExamplePageAddr)
	if err := pt.CreateExampleMapping(examplePage, alloc); err != nil {
		return nil, err
	}

	physAddr, err := pt.Translate(examplePage.Address())
	if err != nil {
		return nil, err
	}
	kfmt.Printf("[kmain] example page 0x%x mapped to 0x%x\n", examplePage.Address(), physAddr)
	writeExampleMessage(exampleMessageAddr(pt.Active(), examplePage, pt.PhysToVirt(physAddr)))

	region, err := heap.Init(pt, alloc)
	if err != nil {
		return nil, err
	}
	kfmt.Printf("[kmain] heap region [0x%x - 0x%x)\n", region.Start, region.End())

	exec := task.NewExecutor()
	exec.Spawn(task.New(exampleTask()))
	exec.Spawn(task.New(keyboard.PrintKeypresses(out)))
	return exec, nil
}

// exampleMessageAddr returns the address through which the example message
// is written. The CPU only translates through the active hierarchy; frames
// mapped in an inactive one are reached via the physical memory window.
func exampleMessageAddr(active bool, page mm.Page, physWindowAddr uintptr) uintptr {
	if active {
		return page.Address()
	}

	return physWindowAddr
}

// writeExampleMessage writes the example message to the middle of the text
// screen whose frame buffer starts at fbVirtAddr.
func writeExampleMessage(fbVirtAddr uintptr) {
	var cons console.Ega
	cons.Init(console.DefaultWidth, console.DefaultHeight, fbVirtAddr)

	for i, cell := range exampleMessage {
		cons.Write(byte(cell), console.Attr(cell>>8), 38+uint16(i), 12)
	}
}
