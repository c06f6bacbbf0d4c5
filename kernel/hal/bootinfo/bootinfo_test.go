package bootinfo

import (
	"testing"
	"unsafe"
)

func TestSetInfoPtr(t *testing.T) {
	defer SetInfo(Info{})

	var raw rawInfo
	raw.regions[0] = rawRegion{startFrame: 0, endFrame: 1, regionType: uint32(FrameZero)}
	raw.regions[1] = rawRegion{startFrame: 1, endFrame: 0x9f, regionType: uint32(Usable)}
	raw.regions[2] = rawRegion{startFrame: 0x100, endFrame: 0x400, regionType: uint32(Kernel)}
	raw.regions[3] = rawRegion{startFrame: 0x400, endFrame: 0x7fe0, regionType: 0xbadf00d}
	raw.regionCount = 4
	raw.physicalMemoryOffset = 0x10000000000

	SetInfoPtr(uintptr(unsafe.Pointer(&raw)))

	info := GetInfo()
	if exp, got := uintptr(0x10000000000), info.PhysicalMemoryOffset; got != exp {
		t.Fatalf("expected physical memory offset 0x%x; got 0x%x", exp, got)
	}

	exp := []MemoryRegion{
		{Start: 0, Length: 0x1000, Type: FrameZero},
		{Start: 0x1000, Length: 0x9e000, Type: Usable},
		{Start: 0x100000, Length: 0x300000, Type: Kernel},
		{Start: 0x400000, Length: 0x7be0000, Type: Reserved},
	}

	if len(info.MemoryMap) != len(exp) {
		t.Fatalf("expected %d regions; got %d", len(exp), len(info.MemoryMap))
	}

	var visited int
	GetInfo().MemoryMap.Visit(func(r *MemoryRegion) bool {
		if *r != exp[visited] {
			t.Errorf("[region %d] expected %+v; got %+v", visited, exp[visited], *r)
		}
		visited++
		return true
	})

	if visited != len(exp) {
		t.Fatalf("expected to visit %d regions; visited %d", len(exp), visited)
	}
}

func TestVisitAbort(t *testing.T) {
	m := MemoryMap{
		{Start: 0, Length: 0x1000, Type: Usable},
		{Start: 0x1000, Length: 0x1000, Type: Usable},
	}

	var visited int
	m.Visit(func(_ *MemoryRegion) bool {
		visited++
		return false
	})

	if visited != 1 {
		t.Fatalf("expected visitor to be invoked once; got %d", visited)
	}

	if exp, got := uint64(0x2000), m[1].End(); got != exp {
		t.Fatalf("expected region end 0x%x; got 0x%x", exp, got)
	}
}

func TestRegionTypeString(t *testing.T) {
	specs := []struct {
		typ RegionType
		exp string
	}{
		{Usable, "usable"},
		{Reserved, "reserved"},
		{AcpiReclaimable, "ACPI (reclaimable)"},
		{FrameZero, "frame zero"},
		{Package, "package"},
		{RegionType(123), "unknown"},
	}

	for specIndex, spec := range specs {
		if got := spec.typ.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}
