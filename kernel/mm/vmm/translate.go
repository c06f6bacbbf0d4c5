package vmm

import (
	"gopherkern/kernel"
	"gopherkern/kernel/kfmt"
)

var (
	// panicFn is mocked by tests.
	panicFn = kfmt.Panic

	// ErrInvalidMapping is returned when trying to lookup a virtual memory
	// address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	errHugePageAtTopLevel = &kernel.Error{Module: "vmm", Message: "level 4 entry has the huge page flag set"}
)

// Translate returns the physical address that corresponds to the supplied
// virtual address or ErrInvalidMapping if the virtual address does not
// correspond to a mapped physical address. A miss is an expected outcome,
// not a fault.
//
// Huge page entries at the level 3 (1G) and level 2 (2M) tables are resolved
// using the matching in-page offset.
func (pt *OffsetPageTable) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	if !canonical(virtAddr) {
		return 0, ErrInvalidMapping
	}

	pt.lock.Acquire()
	defer pt.lock.Release()

	var (
		physAddr uintptr
		err      = ErrInvalidMapping
	)

	pt.walk(virtAddr, func(pteLevel uint8, pte *PageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		switch {
		case pteLevel == pageLevels-1:
			physAddr, err = pte.Address()+PageOffset(virtAddr), nil
			return false
		case pte.HasFlags(FlagHugePage):
			if pteLevel == 0 {
				panicFn(errHugePageAtTopLevel)
				return false
			}

			offsetMask := (uintptr(1) << pageLevelShifts[pteLevel]) - 1
			physAddr, err = (pte.Address()&^offsetMask)+(virtAddr&offsetMask), nil
			return false
		}

		return true
	})

	return physAddr, err
}
