// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package x64 implements construction and activation of x86_64 descriptor
// tables (GDT/IDT) along with CPU identification primitives, providing the
// minimal long mode processor state a loaded kernel expects.
//
// The tables are fixed-capacity arrays mutated only during setup, loaded
// once and never touched again for the lifetime of the bootloader.
package x64

import (
	"encoding/binary"
	"unsafe"
)

// PrivilegeLevel represents an x86 protection ring.
type PrivilegeLevel uint32

const (
	Ring0 PrivilegeLevel = 0
	Ring3 PrivilegeLevel = 3
)

// Segment selectors matching the descriptor layout built by the boot
// sequence (null, kernel code, kernel data).
const (
	SelectorKernelCode uint16 = 1 << 3
	SelectorKernelData uint16 = 2 << 3
)

// TablePointer represents the value loaded in the GDTR and IDTR registers,
// a 16-bit limit followed by the 64-bit table base address.
type TablePointer struct {
	Limit uint16
	Base  uint64
}

// bytes returns the packed 10-byte register representation expected by the
// LGDT and LIDT instructions.
func (p TablePointer) bytes() (buf [10]byte) {
	binary.LittleEndian.PutUint16(buf[0:], p.Limit)
	binary.LittleEndian.PutUint64(buf[2:], p.Base)
	return
}

// funcPC returns the entry address of the argument function.
func funcPC(f func()) uint64 {
	return uint64(**(**uintptr)(unsafe.Pointer(&f)))
}
