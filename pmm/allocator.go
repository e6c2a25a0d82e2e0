// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pmm implements a bitmap-based physical page frame allocator built
// from the UEFI memory map, serving the earliest physical memory needs of
// the bootloader and, transitionally, of the loaded kernel.
//
// The allocator must be constructed only after EFI Boot Services have been
// exited, as the firmware memory map is final only at that point. Before the
// exit the firmware allocator must be used exclusively, the two allocators
// are unaware of each other and must never overlap in time.
package pmm

import (
	"errors"
	"fmt"

	"github.com/Cach30verfl0w/OverflowOS/uefi"
)

var (
	// ErrNoFrames is returned when no run of free frames can satisfy an
	// allocation, a fatal condition during early boot.
	ErrNoFrames = errors.New("out of physical frames")

	// ErrDoubleFree is returned when deallocating a frame that is not
	// marked allocated, a caller programming error treated as fatal by
	// the boot sequence.
	ErrDoubleFree = errors.New("frame is not allocated")

	// ErrUnaligned is returned on addresses that are not page aligned.
	ErrUnaligned = errors.New("address is not page aligned")

	// ErrOutOfRange is returned on addresses outside the managed range.
	ErrOutOfRange = errors.New("address is out of managed range")

	// ErrRangeInUse is returned when an exact-address allocation overlaps
	// frames that are already allocated or reserved.
	ErrRangeInUse = errors.New("address range is in use")
)

// Allocator tracks free and allocated physical page frames over the range
// described by the firmware memory map. There is a single instance for the
// lifetime of the bootloader, its frame table is the sole source of truth
// for physical address reservation once Boot Services are exited.
type Allocator struct {
	table    *FrameTable
	start    uint64
	stop     uint64
	pageSize uint64

	// frames managed by the table, allocations never index past it
	frames int
}

// TableSize returns the frame table size in bytes required to track all
// frames described by the argument memory descriptors with the given page
// size. The caller obtains a buffer of at least this size from the firmware
// allocator before exiting Boot Services.
func TableSize(descriptors []*uefi.MemoryDescriptor, pageSize uint64) int {
	if len(descriptors) == 0 {
		return 0
	}

	last := descriptors[len(descriptors)-1]
	frames := (last.PhysicalEnd() - descriptors[0].PhysicalStart) / pageSize

	return int((frames + 7) / 8)
}

// NewAllocator builds an Allocator from the final firmware memory map. The
// descriptors must be ordered by ascending physical start address, a
// precondition the caller guarantees. The table Region backs the frame
// bitmap; it is expected to be firmware-allocated loader data so that the
// reservation pass marks its own frames allocated.
//
// No firmware-reserved regions are marked at construction time, the caller
// must invoke Reserve once per descriptor whose type is not reusable after
// ExitBootServices() (see [uefi.MemoryDescriptor.Reusable]).
func NewAllocator(descriptors []*uefi.MemoryDescriptor, pageSize uint64, table *Region) (*Allocator, error) {
	if len(descriptors) == 0 {
		return nil, errors.New("empty memory map")
	}

	if pageSize == 0 || uefi.PageSize%pageSize != 0 && pageSize%uefi.PageSize != 0 {
		return nil, fmt.Errorf("invalid page size %d", pageSize)
	}

	start := descriptors[0].PhysicalStart

	if start%pageSize != 0 {
		return nil, ErrUnaligned
	}

	last := descriptors[len(descriptors)-1]
	stop := last.PhysicalStart + last.NumberOfPages*uefi.PageSize

	// frame indices are derived from the address offset, the table must
	// cover the whole span including holes between descriptors
	frames := (stop - start) / pageSize

	if required := int((frames + 7) / 8); table.Size() < required {
		return nil, fmt.Errorf("frame table too small, %d bytes required", required)
	}

	a := &Allocator{
		table:    NewFrameTable(table.mem),
		start:    start,
		stop:     stop,
		pageSize: pageSize,
		frames:   int(frames),
	}

	// mark address ranges not described by any descriptor, such as the
	// legacy hole below 1 MB, so they are never handed out
	cursor := start

	for _, desc := range descriptors {
		for addr := cursor; addr < desc.PhysicalStart; addr += pageSize {
			a.table.Set(int((addr - start) / pageSize))
		}

		if end := desc.PhysicalEnd(); end > cursor {
			cursor = end
		}
	}

	return a, nil
}

// Start returns the first managed physical address.
func (a *Allocator) Start() uint64 {
	return a.start
}

// Stop returns the highest physical address described by the memory map.
func (a *Allocator) Stop() uint64 {
	return a.stop
}

// PageSize returns the allocator page size in bytes.
func (a *Allocator) PageSize() uint64 {
	return a.pageSize
}

func (a *Allocator) pageCount(size uint64) int {
	pages := (size + a.pageSize - 1) / a.pageSize

	if pages == 0 {
		pages = 1
	}

	return int(pages)
}

func (a *Allocator) frameIndex(addr uint64) (int, error) {
	if addr%a.pageSize != 0 {
		return 0, ErrUnaligned
	}

	if addr < a.start || addr >= a.stop {
		return 0, ErrOutOfRange
	}

	return int((addr - a.start) / a.pageSize), nil
}

// Alloc reserves the lowest-addressed run of free frames covering the
// argument size in bytes and returns its physical start address. Frame
// exhaustion returns ErrNoFrames, which the boot sequence treats as fatal.
func (a *Allocator) Alloc(size uint64) (addr uint64, err error) {
	pages := a.pageCount(size)

	index, found := a.table.FindRun(pages, a.frames)

	if !found {
		return 0, ErrNoFrames
	}

	for i := 0; i < pages; i++ {
		a.table.Set(index + i)
	}

	return a.start + uint64(index)*a.pageSize, nil
}

// AllocateAt reserves the frames covering size bytes at the exact argument
// physical address, which must be page aligned. It is used for fixed,
// non-relocatable load addresses such as kernel ELF segments.
func (a *Allocator) AllocateAt(addr uint64, size uint64) (err error) {
	index, err := a.frameIndex(addr)

	if err != nil {
		return
	}

	pages := a.pageCount(size)

	if index+pages > a.frames {
		return ErrOutOfRange
	}

	for i := 0; i < pages; i++ {
		if a.table.Allocated(index + i) {
			return ErrRangeInUse
		}
	}

	for i := 0; i < pages; i++ {
		a.table.Set(index + i)
	}

	return
}

// Dealloc releases the frames covering size bytes at the argument address,
// which must match a prior allocation bit-for-bit. Freeing an unallocated
// frame returns ErrDoubleFree without modifying the table; the error is
// reported rather than panicking, callers decide whether to halt.
func (a *Allocator) Dealloc(addr uint64, size uint64) (err error) {
	index, err := a.frameIndex(addr)

	if err != nil {
		return
	}

	pages := a.pageCount(size)

	if index+pages > a.frames {
		return ErrOutOfRange
	}

	for i := 0; i < pages; i++ {
		if !a.table.Allocated(index + i) {
			return ErrDoubleFree
		}
	}

	for i := 0; i < pages; i++ {
		a.table.Clear(index + i)
	}

	return
}

// Reserve marks all frames described by the argument memory descriptor as
// allocated, preventing their reuse. The caller invokes it once per
// descriptor whose region type must remain untouched after
// ExitBootServices(). Reservation is idempotent.
func (a *Allocator) Reserve(desc *uefi.MemoryDescriptor) (err error) {
	index, err := a.frameIndex(desc.PhysicalStart)

	if err != nil {
		return
	}

	pages := int(desc.NumberOfPages * uefi.PageSize / a.pageSize)

	if index+pages > a.frames {
		return ErrOutOfRange
	}

	for i := 0; i < pages; i++ {
		a.table.Set(index + i)
	}

	return
}

// AvailableFrames returns the number of frames within the managed address
// range.
func (a *Allocator) AvailableFrames() int {
	return int((a.stop - a.start) / a.pageSize)
}

// AllocatedFrames returns the number of frames currently marked allocated
// or reserved.
func (a *Allocator) AllocatedFrames() int {
	return a.table.AllocatedCount()
}

// RemainingFrames returns the number of frames still free for allocation.
func (a *Allocator) RemainingFrames() int {
	return a.AvailableFrames() - a.AllocatedFrames()
}
