// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package x64

import (
	"encoding/binary"
	"strings"
)

// CPUIDRegister identifies the output register a CPUID feature bit is
// reported in.
type CPUIDRegister int

const (
	ECX CPUIDRegister = iota
	EDX
)

// Feature represents a processor capability reported by CPUID leaf 1.
type Feature struct {
	Name string
	Reg  CPUIDRegister
	Bit  uint
}

// Features lists the CPUID leaf 1 capability bits.
var Features = []Feature{
	{"SSE3", ECX, 0},
	{"PCLMUL", ECX, 1},
	{"DTES64", ECX, 2},
	{"MONITOR", ECX, 3},
	{"DS_CPL", ECX, 4},
	{"VMX", ECX, 5},
	{"SMX", ECX, 6},
	{"EST", ECX, 7},
	{"TM2", ECX, 8},
	{"SSSE3", ECX, 9},
	{"CID", ECX, 10},
	{"SDBG", ECX, 11},
	{"FMA", ECX, 12},
	{"CX16", ECX, 13},
	{"XTPR", ECX, 14},
	{"PDCM", ECX, 15},
	{"PCID", ECX, 17},
	{"DCA", ECX, 18},
	{"SSE4.1", ECX, 19},
	{"SSE4.2", ECX, 20},
	{"X2APIC", ECX, 21},
	{"MOVBE", ECX, 22},
	{"POPCNT", ECX, 23},
	{"TSC-DEADLINE", ECX, 24},
	{"AES", ECX, 25},
	{"XSAVE", ECX, 26},
	{"OSXSAVE", ECX, 27},
	{"AVX", ECX, 28},
	{"F16C", ECX, 29},
	{"RDRAND", ECX, 30},
	{"HYPERVISOR", ECX, 31},
	{"FPU", EDX, 0},
	{"VME", EDX, 1},
	{"DE", EDX, 2},
	{"PSE", EDX, 3},
	{"TSC", EDX, 4},
	{"MSR", EDX, 5},
	{"PAE", EDX, 6},
	{"MCE", EDX, 7},
	{"CX8", EDX, 8},
	{"APIC", EDX, 9},
	{"SEP", EDX, 11},
	{"MTRR", EDX, 12},
	{"PGE", EDX, 13},
	{"MCA", EDX, 14},
	{"CMOV", EDX, 15},
	{"PAT", EDX, 16},
	{"PSE36", EDX, 17},
	{"PSN", EDX, 18},
	{"CLFLUSH", EDX, 19},
	{"NX", EDX, 20},
	{"DS", EDX, 21},
	{"ACPI", EDX, 22},
	{"MMX", EDX, 23},
	{"FXSR", EDX, 24},
	{"SSE", EDX, 25},
	{"SSE2", EDX, 26},
	{"SS", EDX, 27},
	{"HTT", EDX, 28},
	{"TM", EDX, 29},
	{"IA64", EDX, 30},
	{"PBE", EDX, 31},
}

// FeatureNames returns the names of all capabilities set in the argument
// CPUID leaf 1 output registers.
func FeatureNames(ecx uint32, edx uint32) (names []string) {
	for _, f := range Features {
		reg := edx

		if f.Reg == ECX {
			reg = ecx
		}

		if reg&(1<<f.Bit) != 0 {
			names = append(names, f.Name)
		}
	}

	return
}

// VendorID decodes the 12-character vendor identification string from the
// CPUID leaf 0 output registers.
func VendorID(ebx uint32, edx uint32, ecx uint32) string {
	var buf [12]byte

	binary.LittleEndian.PutUint32(buf[0:], ebx)
	binary.LittleEndian.PutUint32(buf[4:], edx)
	binary.LittleEndian.PutUint32(buf[8:], ecx)

	return strings.TrimSpace(string(buf[:]))
}
