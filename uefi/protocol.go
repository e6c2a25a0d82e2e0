// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
)

// EFI Boot Services offsets
const (
	handleProtocol     = 0x098
	locateHandleBuffer = 0x138
	locateProtocol     = 0x140
)

// EFI_LOCATE_SEARCH_TYPE
const (
	AllHandles = iota
	ByRegisterNotify
	ByProtocol
)

// HandleProtocol calls EFI_BOOT_SERVICES.HandleProtocol().
func (s *BootServices) HandleProtocol(handle uint64, guid GUID) (addr uint64, err error) {
	status := callService(s.base+handleProtocol,
		[]uint64{
			handle,
			guid.ptrval(),
			ptrval(&addr),
		},
	)

	return addr, parseStatus(status)
}

// LocateProtocol calls EFI_BOOT_SERVICES.LocateProtocol().
func (s *BootServices) LocateProtocol(guid GUID) (addr uint64, err error) {
	status := callService(s.base+locateProtocol,
		[]uint64{
			guid.ptrval(),
			0,
			ptrval(&addr),
		},
	)

	return addr, parseStatus(status)
}

// LocateProtocolString is like LocateProtocol but accepts a registry format
// GUID string.
func (s *BootServices) LocateProtocolString(guid string) (addr uint64, err error) {
	g, err := ParseGUID(guid)

	if err != nil {
		return
	}

	return s.LocateProtocol(g)
}

// LocateHandles calls EFI_BOOT_SERVICES.LocateHandleBuffer() by protocol,
// returning all handles supporting the argument protocol GUID.
func (s *BootServices) LocateHandles(guid GUID) (handles []uint64, err error) {
	var n uint64
	var addr uint64

	status := callService(s.base+locateHandleBuffer,
		[]uint64{
			ByProtocol,
			guid.ptrval(),
			0,
			ptrval(&n),
			ptrval(&addr),
		},
	)

	if err = parseStatus(status); err != nil {
		return
	}

	// The handle buffer is pool-allocated by the firmware and must be
	// returned to it once copied out.
	defer s.freePool(addr)

	buf, err := readBuffer(addr, int(n)*8)

	if err != nil {
		return
	}

	for i := uint64(0); i < n; i++ {
		handles = append(handles, binary.LittleEndian.Uint64(buf[i*8:]))
	}

	return
}
