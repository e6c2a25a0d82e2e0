// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package x64

import (
	"fmt"
	"unsafe"
)

// SegmentFlags represents the access and flag bits of a segment descriptor,
// positioned as they appear in the descriptor high doubleword.
type SegmentFlags uint32

const (
	SegFlagAccessed SegmentFlags = 1 << 8
	SegFlagWrite    SegmentFlags = 1 << 9
	SegFlagCode     SegmentFlags = 1 << 11
	SegFlagSystem   SegmentFlags = 1 << 12
	SegFlagPresent  SegmentFlags = 1 << 15
	SegFlagLong     SegmentFlags = 1 << 21
)

// gdtEntries is the hardware-mandated table capacity.
const gdtEntries = 8192

// gdtEntrySize is the size of a single segment descriptor in bytes.
const gdtEntrySize = 8

// SegmentDescriptor represents a 64-bit segment descriptor. The uint64
// underlying type forces 8-byte alignment.
type SegmentDescriptor uint64

// NewSegmentDescriptor encodes a segment descriptor with the argument base
// address, 20-bit limit, flags and privilege level. The present bit is
// always set, a descriptor worth inserting is a descriptor the CPU may use.
func NewSegmentDescriptor(base uint32, limit uint32, flags SegmentFlags, level PrivilegeLevel) (SegmentDescriptor, error) {
	if limit > 0xfffff {
		return 0, fmt.Errorf("segment limit %#x exceeds 20 bits", limit)
	}

	flags |= SegFlagPresent

	w0 := base<<16 | limit&0xffff
	w1 := base&0xff000000 | limit&0xf0000 | uint32(flags) | uint32(level)<<13 | (base>>16)&0xff

	return SegmentDescriptor(uint64(w1)<<32 | uint64(w0)), nil
}

// KernelCodeSegment returns a flat ring 0 long mode code segment.
func KernelCodeSegment() SegmentDescriptor {
	d, _ := NewSegmentDescriptor(0, 0, SegFlagSystem|SegFlagCode|SegFlagLong, Ring0)
	return d
}

// KernelDataSegment returns a flat ring 0 writable data segment.
func KernelDataSegment() SegmentDescriptor {
	d, _ := NewSegmentDescriptor(0, 0, SegFlagSystem|SegFlagWrite, Ring0)
	return d
}

// UserCodeSegment returns a flat ring 3 long mode code segment.
func UserCodeSegment() SegmentDescriptor {
	d, _ := NewSegmentDescriptor(0, 0, SegFlagSystem|SegFlagCode|SegFlagLong, Ring3)
	return d
}

// UserDataSegment returns a flat ring 3 writable data segment.
func UserDataSegment() SegmentDescriptor {
	d, _ := NewSegmentDescriptor(0, 0, SegFlagSystem|SegFlagWrite, Ring3)
	return d
}

// GlobalDescriptorTable represents a Global Descriptor Table with its
// insertion high-water mark. The zero value is a valid table holding only
// the mandatory null descriptor.
type GlobalDescriptorTable struct {
	entries [gdtEntries]SegmentDescriptor
	highest int
}

// Insert writes a descriptor at the argument slot. Index 0 holds the
// mandatory null descriptor and is rejected, as are indices past the table
// capacity.
func (t *GlobalDescriptorTable) Insert(index int, desc SegmentDescriptor) error {
	if index <= 0 || index >= gdtEntries {
		return fmt.Errorf("invalid descriptor index %d", index)
	}

	t.entries[index] = desc

	if index > t.highest {
		t.highest = index
	}

	return nil
}

// Pointer returns the GDTR register value covering the table up to its
// highest used index.
func (t *GlobalDescriptorTable) Pointer() TablePointer {
	limit := uint16(gdtEntrySize - 1)

	if t.highest > 0 {
		limit = uint16(t.highest*gdtEntrySize - 1)
	}

	return TablePointer{
		Limit: limit,
		Base:  uint64(uintptr(unsafe.Pointer(&t.entries[0]))),
	}
}
