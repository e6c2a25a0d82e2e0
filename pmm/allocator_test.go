// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pmm

import (
	"errors"
	"testing"

	"github.com/Cach30verfl0w/OverflowOS/uefi"
)

func desc(memoryType uint32, start uint64, pages uint64) *uefi.MemoryDescriptor {
	return &uefi.MemoryDescriptor{
		Type:          memoryType,
		PhysicalStart: start,
		NumberOfPages: pages,
	}
}

func newTestAllocator(t *testing.T, descriptors ...*uefi.MemoryDescriptor) *Allocator {
	t.Helper()

	table := NewRegion(0, make([]byte, TableSize(descriptors, uefi.PageSize)))

	a, err := NewAllocator(descriptors, uefi.PageSize, table)

	if err != nil {
		t.Fatal(err)
	}

	return a
}

func TestAllocatorEndToEnd(t *testing.T) {
	a := newTestAllocator(t,
		desc(uefi.EfiConventionalMemory, 0x0, 9),
	)

	if a.AvailableFrames() != 9 {
		t.Fatalf("invalid available frames %d", a.AvailableFrames())
	}

	addr, err := a.Alloc(4096)

	if err != nil {
		t.Fatal(err)
	}

	if addr != a.Start() {
		t.Fatalf("first allocation returned %#x, expected start address %#x", addr, a.Start())
	}

	next, err := a.Alloc(8192)

	if err != nil {
		t.Fatal(err)
	}

	if next != addr+uefi.PageSize {
		t.Fatalf("second allocation returned %#x, expected next free run %#x", next, addr+uefi.PageSize)
	}

	if a.AllocatedFrames() != 3 {
		t.Fatalf("invalid allocated frames %d", a.AllocatedFrames())
	}

	if a.RemainingFrames() != 6 {
		t.Fatalf("invalid remaining frames %d", a.RemainingFrames())
	}
}

func TestAllocatorRoundTrip(t *testing.T) {
	a := newTestAllocator(t,
		desc(uefi.EfiConventionalMemory, 0x100000, 16),
	)

	// reserved frames must survive alloc/dealloc cycles
	reserved := desc(uefi.EfiRuntimeServicesData, 0x10c000, 4)

	if err := a.Reserve(reserved); err != nil {
		t.Fatal(err)
	}

	initial := a.AllocatedFrames()

	var addrs []uint64

	for _, size := range []uint64{4096, 8192, 1, 4097} {
		addr, err := a.Alloc(size)

		if err != nil {
			t.Fatal(err)
		}

		addrs = append(addrs, addr)
	}

	sizes := []uint64{4096, 8192, 1, 4097}

	for i, addr := range addrs {
		if err := a.Dealloc(addr, sizes[i]); err != nil {
			t.Fatal(err)
		}
	}

	if a.AllocatedFrames() != initial {
		t.Fatalf("allocated frames %d after full deallocation, expected %d", a.AllocatedFrames(), initial)
	}
}

func TestAllocatorFirstFitDeterminism(t *testing.T) {
	a := newTestAllocator(t,
		desc(uefi.EfiConventionalMemory, 0x100000, 8),
	)

	addr, err := a.Alloc(8192)

	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		if err = a.Dealloc(addr, 8192); err != nil {
			t.Fatal(err)
		}

		next, err := a.Alloc(8192)

		if err != nil {
			t.Fatal(err)
		}

		if next != addr {
			t.Fatalf("allocation returned %#x, expected %#x", next, addr)
		}
	}
}

func TestAllocatorAlignment(t *testing.T) {
	a := newTestAllocator(t,
		desc(uefi.EfiConventionalMemory, 0x100000, 32),
	)

	for _, size := range []uint64{1, 4095, 4096, 4097, 8193} {
		addr, err := a.Alloc(size)

		if err != nil {
			t.Fatal(err)
		}

		if addr%uefi.PageSize != 0 {
			t.Fatalf("alloc(%d) returned unaligned address %#x", size, addr)
		}
	}

	// alloc(4097) must consume two frames
	if a.AllocatedFrames() != 1+1+1+2+3 {
		t.Fatalf("invalid allocated frames %d", a.AllocatedFrames())
	}

	if err := a.Dealloc(0x100001, 4096); !errors.Is(err, ErrUnaligned) {
		t.Fatalf("unaligned dealloc returned %v", err)
	}
}

func TestAllocatorReservationCoverage(t *testing.T) {
	descriptors := []*uefi.MemoryDescriptor{
		desc(uefi.EfiConventionalMemory, 0x0, 10),
		desc(uefi.EfiRuntimeServicesData, 0xa000, 5),
	}

	table := NewRegion(0, make([]byte, TableSize(descriptors, uefi.PageSize)))

	a, err := NewAllocator(descriptors, uefi.PageSize, table)

	if err != nil {
		t.Fatal(err)
	}

	for _, d := range descriptors {
		if d.Reusable() {
			continue
		}

		if err = a.Reserve(d); err != nil {
			t.Fatal(err)
		}
	}

	if a.AllocatedFrames() != 5 {
		t.Fatalf("invalid allocated frames %d, expected 5", a.AllocatedFrames())
	}

	// reservation is idempotent
	if err = a.Reserve(descriptors[1]); err != nil {
		t.Fatal(err)
	}

	if a.AllocatedFrames() != 5 {
		t.Fatalf("repeated reservation changed allocated frames to %d", a.AllocatedFrames())
	}

	// reserved frames are never handed out
	for {
		addr, err := a.Alloc(4096)

		if errors.Is(err, ErrNoFrames) {
			break
		}

		if err != nil {
			t.Fatal(err)
		}

		if addr >= 0xa000 && addr < 0xf000 {
			t.Fatalf("allocation returned reserved address %#x", addr)
		}
	}
}

func TestAllocatorMemoryHole(t *testing.T) {
	// firmware maps routinely leave the legacy hole below 1 MB
	// undescribed, frame indexing must account for the gap
	descriptors := []*uefi.MemoryDescriptor{
		desc(uefi.EfiConventionalMemory, 0x0, 0x9f),
		desc(uefi.EfiConventionalMemory, 0x100000, 16),
		desc(uefi.EfiRuntimeServicesData, 0x110000, 4),
	}

	table := NewRegion(0, make([]byte, TableSize(descriptors, uefi.PageSize)))

	a, err := NewAllocator(descriptors, uefi.PageSize, table)

	if err != nil {
		t.Fatal(err)
	}

	if err = a.Reserve(descriptors[2]); err != nil {
		t.Fatal(err)
	}

	// 0x9f + 16 + 4 pages described, the rest of the span is the hole
	hole := (0x100000 - 0x9f000) / uefi.PageSize

	if expected := hole + 4; a.AllocatedFrames() != expected {
		t.Fatalf("invalid allocated frames %d, expected %d", a.AllocatedFrames(), expected)
	}

	// the hole is never handed out
	if err = a.AllocateAt(0xa0000, 4096); !errors.Is(err, ErrRangeInUse) {
		t.Fatalf("allocation in unmapped range returned %v", err)
	}

	for {
		addr, err := a.Alloc(4096)

		if errors.Is(err, ErrNoFrames) {
			break
		}

		if err != nil {
			t.Fatal(err)
		}

		if addr >= 0x9f000 && addr < 0x100000 {
			t.Fatalf("allocation returned unmapped address %#x", addr)
		}

		if addr >= 0x110000 {
			t.Fatalf("allocation returned reserved address %#x", addr)
		}
	}
}

func TestAllocatorDoubleFree(t *testing.T) {
	a := newTestAllocator(t,
		desc(uefi.EfiConventionalMemory, 0x100000, 4),
	)

	addr, err := a.Alloc(4096)

	if err != nil {
		t.Fatal(err)
	}

	if err = a.Dealloc(addr, 4096); err != nil {
		t.Fatal(err)
	}

	if err = a.Dealloc(addr, 4096); !errors.Is(err, ErrDoubleFree) {
		t.Fatalf("double free returned %v", err)
	}

	// a failed dealloc must not modify the table
	if a.AllocatedFrames() != 0 {
		t.Fatalf("invalid allocated frames %d", a.AllocatedFrames())
	}
}

func TestAllocatorAllocateAt(t *testing.T) {
	a := newTestAllocator(t,
		desc(uefi.EfiConventionalMemory, 0x100000, 16),
	)

	if err := a.AllocateAt(0x104000, 0x2500); err != nil {
		t.Fatal(err)
	}

	if a.AllocatedFrames() != 3 {
		t.Fatalf("invalid allocated frames %d", a.AllocatedFrames())
	}

	if err := a.AllocateAt(0x105000, 4096); !errors.Is(err, ErrRangeInUse) {
		t.Fatalf("overlapping allocation returned %v", err)
	}

	if err := a.AllocateAt(0x104001, 4096); !errors.Is(err, ErrUnaligned) {
		t.Fatalf("unaligned allocation returned %v", err)
	}

	if err := a.AllocateAt(0x200000, 4096); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("out of range allocation returned %v", err)
	}

	// exact allocations steer the first-fit cursor around them
	addr, err := a.Alloc(4096 * 5)

	if err != nil {
		t.Fatal(err)
	}

	if addr != 0x107000 {
		t.Fatalf("allocation returned %#x, expected %#x", addr, 0x107000)
	}
}

func TestAllocatorExhaustion(t *testing.T) {
	a := newTestAllocator(t,
		desc(uefi.EfiConventionalMemory, 0x100000, 2),
	)

	if _, err := a.Alloc(3 * 4096); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("oversized allocation returned %v", err)
	}

	if _, err := a.Alloc(2 * 4096); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Alloc(1); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("allocation from a full table returned %v", err)
	}
}

func TestNewAllocatorValidation(t *testing.T) {
	if _, err := NewAllocator(nil, uefi.PageSize, NewRegion(0, make([]byte, 8))); err == nil {
		t.Fatal("empty memory map accepted")
	}

	descriptors := []*uefi.MemoryDescriptor{
		desc(uefi.EfiConventionalMemory, 0x100000, 64),
	}

	if _, err := NewAllocator(descriptors, uefi.PageSize, NewRegion(0, make([]byte, 4))); err == nil {
		t.Fatal("undersized frame table accepted")
	}

	descriptors[0].PhysicalStart = 0x100001

	table := NewRegion(0, make([]byte, TableSize(descriptors, uefi.PageSize)))

	if _, err := NewAllocator(descriptors, uefi.PageSize, table); !errors.Is(err, ErrUnaligned) {
		t.Fatal("unaligned start address accepted")
	}
}
