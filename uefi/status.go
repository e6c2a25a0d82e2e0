// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"fmt"
)

// EFI_STATUS codes, low byte
// (https://uefi.org/specs/UEFI/2.10/Apx_D_Status_Codes.html)
const (
	EFI_SUCCESS = iota
	EFI_LOAD_ERROR
	EFI_INVALID_PARAMETER
	EFI_UNSUPPORTED
	EFI_BAD_BUFFER_SIZE
	EFI_BUFFER_TOO_SMALL
	EFI_NOT_READY
	EFI_DEVICE_ERROR
	EFI_WRITE_PROTECTED
	EFI_OUT_OF_RESOURCES
	EFI_VOLUME_CORRUPTED
	EFI_VOLUME_FULL
	EFI_NO_MEDIA
	EFI_MEDIA_CHANGED
	EFI_NOT_FOUND
	EFI_ACCESS_DENIED
	EFI_NO_RESPONSE
	EFI_NO_MAPPING
	EFI_TIMEOUT
	EFI_NOT_STARTED
	EFI_ALREADY_STARTED
	EFI_ABORTED
	EFI_ICMP_ERROR
	EFI_TFTP_ERROR
	EFI_PROTOCOL_ERROR
)

var statusName = map[uint64]string{
	EFI_LOAD_ERROR:        "EFI_LOAD_ERROR",
	EFI_INVALID_PARAMETER: "EFI_INVALID_PARAMETER",
	EFI_UNSUPPORTED:       "EFI_UNSUPPORTED",
	EFI_BAD_BUFFER_SIZE:   "EFI_BAD_BUFFER_SIZE",
	EFI_BUFFER_TOO_SMALL:  "EFI_BUFFER_TOO_SMALL",
	EFI_NOT_READY:         "EFI_NOT_READY",
	EFI_DEVICE_ERROR:      "EFI_DEVICE_ERROR",
	EFI_WRITE_PROTECTED:   "EFI_WRITE_PROTECTED",
	EFI_OUT_OF_RESOURCES:  "EFI_OUT_OF_RESOURCES",
	EFI_VOLUME_CORRUPTED:  "EFI_VOLUME_CORRUPTED",
	EFI_VOLUME_FULL:       "EFI_VOLUME_FULL",
	EFI_NO_MEDIA:          "EFI_NO_MEDIA",
	EFI_MEDIA_CHANGED:     "EFI_MEDIA_CHANGED",
	EFI_NOT_FOUND:         "EFI_NOT_FOUND",
	EFI_ACCESS_DENIED:     "EFI_ACCESS_DENIED",
	EFI_TIMEOUT:           "EFI_TIMEOUT",
	EFI_NOT_STARTED:       "EFI_NOT_STARTED",
	EFI_ALREADY_STARTED:   "EFI_ALREADY_STARTED",
	EFI_ABORTED:           "EFI_ABORTED",
	EFI_PROTOCOL_ERROR:    "EFI_PROTOCOL_ERROR",
}

// The error bit discriminates EFI error codes from warnings.
const errorBit = 1 << 63

func parseStatus(status uint64) (err error) {
	if status == EFI_SUCCESS {
		return
	}

	if name, ok := statusName[status&0xff]; ok && status&errorBit != 0 {
		return fmt.Errorf("%s (%#x)", name, status)
	}

	return fmt.Errorf("EFI_STATUS error %#x (%d)", status, status&0xff)
}
