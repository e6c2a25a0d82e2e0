// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

// EFI Boot Service offsets
const (
	allocatePages = 0x28
	freePages     = 0x30
	allocatePool  = 0x40
	freePool      = 0x48
)

// EFI_ALLOCATE_TYPE
const (
	AllocateAnyPages = iota
	AllocateMaxAddress
	AllocateAddress
	MaxAllocateType
)

// AllocatePages calls EFI_BOOT_SERVICES.AllocatePages(), it returns the
// allocated physical address which, for AllocateAddress requests, always
// matches the argument one.
func (s *BootServices) AllocatePages(allocateType int, memoryType int, size int, physicalAddress uint64) (addr uint64, err error) {
	addr = physicalAddress

	status := callService(s.base+allocatePages,
		[]uint64{
			uint64(allocateType),
			uint64(memoryType),
			uint64(size+PageSize-1) / PageSize,
			ptrval(&addr),
		},
	)

	return addr, parseStatus(status)
}

// FreePages calls EFI_BOOT_SERVICES.FreePages().
func (s *BootServices) FreePages(physicalAddress uint64, size int) error {
	status := callService(s.base+freePages,
		[]uint64{
			physicalAddress,
			uint64(size+PageSize-1) / PageSize,
		},
	)

	return parseStatus(status)
}

func (s *BootServices) freePool(addr uint64) error {
	status := callService(s.base+freePool,
		[]uint64{
			addr,
		},
	)

	return parseStatus(status)
}
