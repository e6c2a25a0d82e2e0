// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build amd64

package x64

import (
	"unsafe"
)

// defined in x64.s
func lgdt(addr uint64)
func lidt(addr uint64)
func reloadSegments(code uint16, data uint16)
func cpuid(leaf uint32, sub uint32) (eax, ebx, ecx, edx uint32)
func defaultHandler()

// Halt disables interrupts and halts the CPU, it does not return.
//
// defined in x64.s
func Halt()

// DefaultHandlerAddress returns the entry address of the built-in halting
// interrupt handler.
func DefaultHandlerAddress() uint64 {
	return funcPC(defaultHandler)
}

// Load activates the table with the LGDT instruction and reloads all
// segment registers with the argument code and data selectors. An invalid
// descriptor faults immediately with no recovery, the table must be fully
// built before this point.
func (t *GlobalDescriptorTable) Load(code uint16, data uint16) {
	p := t.Pointer().bytes()
	lgdt(uint64(uintptr(unsafe.Pointer(&p[0]))))
	reloadSegments(code, data)
}

// Load activates the table with the LIDT instruction, subsequent hardware
// exceptions route through it.
func (t *InterruptDescriptorTable) Load() {
	p := t.Pointer().bytes()
	lidt(uint64(uintptr(unsafe.Pointer(&p[0]))))
}

// CPUID executes the CPUID instruction for the argument leaf and subleaf.
func CPUID(leaf uint32, sub uint32) (eax, ebx, ecx, edx uint32) {
	return cpuid(leaf, sub)
}

// CPUVendor returns the processor vendor identification string.
func CPUVendor() string {
	_, ebx, ecx, edx := cpuid(0, 0)
	return VendorID(ebx, edx, ecx)
}

// CPUFeatures returns the names of all capabilities the processor reports
// through CPUID leaf 1.
func CPUFeatures() []string {
	_, _, ecx, edx := cpuid(1, 0)
	return FeatureNames(ecx, edx)
}
