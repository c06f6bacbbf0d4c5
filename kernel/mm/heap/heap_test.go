package heap

import (
	"gopherkern/kernel"
	"gopherkern/kernel/mm"
	"gopherkern/kernel/mm/vmm"
	"testing"
)

type mapperFn func(mm.Page, mm.Frame, vmm.PageTableEntryFlag, mm.FrameAllocator) *kernel.Error

func (fn mapperFn) Map(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, alloc mm.FrameAllocator) *kernel.Error {
	return fn(page, frame, flags, alloc)
}

func TestInit(t *testing.T) {
	expPages := int(Size.Pages())
	if expPages != 25 {
		t.Fatalf("expected heap to span 25 pages; got %d", expPages)
	}

	t.Run("success", func(t *testing.T) {
		var nextFrame mm.Frame = 100
		alloc := mm.FrameAllocatorFn(func() (mm.Frame, *kernel.Error) {
			nextFrame++
			return nextFrame - 1, nil
		})

		var mapCalls int
		mapper := mapperFn(func(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, _ mm.FrameAllocator) *kernel.Error {
			if exp := mm.PageFromAddress(Start) + mm.Page(mapCalls); page != exp {
				t.Errorf("[call %d] expected page 0x%x; got 0x%x", mapCalls, exp.Address(), page.Address())
			}

			if exp := mm.Frame(100 + mapCalls); frame != exp {
				t.Errorf("[call %d] expected frame %d; got %d", mapCalls, exp, frame)
			}

			if exp := vmm.FlagPresent | vmm.FlagRW; flags != exp {
				t.Errorf("[call %d] expected flags 0x%x; got 0x%x", mapCalls, exp, flags)
			}

			mapCalls++
			return nil
		})

		region, err := Init(mapper, alloc)
		if err != nil {
			t.Fatal(err)
		}

		if mapCalls != expPages {
			t.Fatalf("expected %d Map calls; got %d", expPages, mapCalls)
		}

		if region.Start != Start || region.End() != Start+100*1024 {
			t.Fatalf("unexpected region bounds [0x%x, 0x%x)", region.Start, region.End())
		}
	})

	t.Run("frame allocation fails", func(t *testing.T) {
		expErr := &kernel.Error{Module: "test", Message: "out of memory"}
		allocCalls := 0
		alloc := mm.FrameAllocatorFn(func() (mm.Frame, *kernel.Error) {
			allocCalls++
			if allocCalls > 3 {
				return mm.InvalidFrame, expErr
			}
			return mm.Frame(allocCalls), nil
		})

		mapCalls := 0
		mapper := mapperFn(func(mm.Page, mm.Frame, vmm.PageTableEntryFlag, mm.FrameAllocator) *kernel.Error {
			mapCalls++
			return nil
		})

		if _, err := Init(mapper, alloc); err != expErr {
			t.Fatalf("expected error %v; got %v", expErr, err)
		}

		if mapCalls != 3 {
			t.Fatalf("expected 3 pages to be mapped before the failure; got %d", mapCalls)
		}
	})

	t.Run("map fails", func(t *testing.T) {
		alloc := mm.FrameAllocatorFn(func() (mm.Frame, *kernel.Error) { return mm.Frame(1), nil })
		mapper := mapperFn(func(mm.Page, mm.Frame, vmm.PageTableEntryFlag, mm.FrameAllocator) *kernel.Error {
			return vmm.ErrPageAlreadyMapped
		})

		if _, err := Init(mapper, alloc); err != vmm.ErrPageAlreadyMapped {
			t.Fatalf("expected ErrPageAlreadyMapped; got %v", err)
		}
	})
}
