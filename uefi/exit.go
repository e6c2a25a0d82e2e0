// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

// EFI Boot Services offsets
const (
	exit             = 0xd8
	exitBootServices = 0xe8
)

// Exit calls EFI_BOOT_SERVICES.Exit().
func (s *BootServices) Exit(code int) (err error) {
	status := callService(s.base+exit,
		[]uint64{
			s.imageHandle,
			uint64(code),
			0,
			0,
		},
	)

	return parseStatus(status)
}

// ExitBootServices calls EFI_BOOT_SERVICES.ExitBootServices() and returns
// the final memory map, the only authoritative description of physical
// memory from this point on.
//
// This transition is irreversible: all Boot Services, including the memory
// allocator, console and file access, become unavailable and only Runtime
// Services remain callable. The firmware may update the map while exiting,
// therefore the call is retried once with a fresh map key if the first
// attempt is rejected.
func (s *BootServices) ExitBootServices() (memoryMap *MemoryMap, err error) {
	for range 2 {
		if memoryMap, err = s.GetMemoryMap(); err != nil {
			return
		}

		status := callService(s.base+exitBootServices,
			[]uint64{
				s.imageHandle,
				memoryMap.MapKey,
				0,
				0,
			},
		)

		if err = parseStatus(status); err == nil {
			return
		}
	}

	return
}
