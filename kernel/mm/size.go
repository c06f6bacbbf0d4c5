package mm

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// Pages returns the number of pages required for storing a block of this
// size.
func (s Size) Pages() uintptr {
	return (uintptr(s) + PageSize - 1) >> PageShift
}
