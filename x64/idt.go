// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package x64

import (
	"fmt"
	"unsafe"
)

// GateType discriminates long mode gate descriptors; an interrupt gate
// clears the IF flag on entry, a trap gate leaves it untouched.
type GateType uint8

const (
	GateTypeInterrupt GateType = 0xe
	GateTypeTrap      GateType = 0xf
)

// Architecture-reserved exception vectors, vectors 32 and above are
// available for device and software interrupts.
const (
	VectorDivideError            = 0x00
	VectorNonMaskableInterrupt   = 0x02
	VectorBreakpoint             = 0x03
	VectorInvalidOpcode          = 0x06
	VectorDoubleFault            = 0x08
	VectorGeneralProtectionFault = 0x0d
	VectorPageFault              = 0x0e
	VectorFirstAvailable         = 0x20
)

// idtEntries is the hardware-mandated table capacity.
const idtEntries = 256

// idtEntrySize is the size of a single long mode gate descriptor in bytes.
const idtEntrySize = 16

// InterruptDescriptor represents a 16-byte long mode gate descriptor. The
// uint64 element type forces 8-byte alignment.
type InterruptDescriptor [2]uint64

// NewInterruptDescriptor encodes a present gate descriptor binding the
// argument handler address and code segment selector to the gate type, DPL
// and Interrupt Stack Table slot.
func NewInterruptDescriptor(handler uint64, selector uint16, gate GateType, level PrivilegeLevel, ist uint8) InterruptDescriptor {
	w0 := uint32(selector)<<16 | uint32(handler&0xffff)
	w1 := uint32(handler&0xffff0000) | 1<<15 | uint32(level)<<13 | uint32(gate)<<8 | uint32(ist&0x7)
	w2 := uint32(handler >> 32)

	return InterruptDescriptor{
		uint64(w1)<<32 | uint64(w0),
		uint64(w2),
	}
}

// Handler returns the handler address encoded in the descriptor.
func (d InterruptDescriptor) Handler() uint64 {
	return d[0]&0xffff | d[0]>>32&0xffff0000 | d[1]<<32
}

// Present returns whether the descriptor present bit is set.
func (d InterruptDescriptor) Present() bool {
	return d[0]&(1<<47) != 0
}

// InterruptDescriptorTable represents an Interrupt Descriptor Table with
// all 256 vectors populated.
type InterruptDescriptorTable struct {
	entries [idtEntries]InterruptDescriptor
}

// NewInterruptDescriptorTable returns a table with every vector bound to
// the argument default handler through the given code segment selector. A
// stray interrupt or unexpected exception then lands in a known handler
// rather than undefined memory.
func NewInterruptDescriptorTable(defaultHandler uint64, selector uint16) *InterruptDescriptorTable {
	t := &InterruptDescriptorTable{}

	for i := range t.entries {
		t.entries[i] = NewInterruptDescriptor(defaultHandler, selector, GateTypeInterrupt, Ring0, 0)
	}

	return t
}

// Insert binds a descriptor to the argument vector. Vector 0 is the
// division error exception and keeps its default binding, overriding it is
// rejected as a programming error.
func (t *InterruptDescriptorTable) Insert(vector int, desc InterruptDescriptor) error {
	if vector <= 0 || vector >= idtEntries {
		return fmt.Errorf("invalid interrupt vector %d", vector)
	}

	t.entries[vector] = desc

	return nil
}

// Descriptor returns the descriptor bound to the argument vector.
func (t *InterruptDescriptorTable) Descriptor(vector int) (InterruptDescriptor, error) {
	if vector < 0 || vector >= idtEntries {
		return InterruptDescriptor{}, fmt.Errorf("invalid interrupt vector %d", vector)
	}

	return t.entries[vector], nil
}

// Pointer returns the IDTR register value covering the full table.
func (t *InterruptDescriptorTable) Pointer() TablePointer {
	return TablePointer{
		Limit: uint16(idtEntries*idtEntrySize - 1),
		Base:  uint64(uintptr(unsafe.Pointer(&t.entries[0]))),
	}
}
