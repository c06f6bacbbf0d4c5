// Package cpu exposes the handful of privileged amd64 instructions used by the
// memory and scheduling code. Calling any of these functions from user-mode
// raises a general protection fault so tests always replace them.
package cpu

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// EnableInterruptsAndHalt enables interrupts and halts the CPU until the next
// interrupt arrives. Both instructions execute back to back so an interrupt
// that fires between them still wakes the CPU.
func EnableInterruptsAndHalt()

// Halt disables interrupts and stops instruction execution.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// ActivePDT returns the contents of CR3: the physical address of the
// currently active level 4 page table plus the PCID/flag bits.
func ActivePDT() uintptr

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8

// InterruptsEnabled returns true if the interrupt flag is set in RFLAGS.
func InterruptsEnabled() bool
