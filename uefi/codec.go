// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"unsafe"
)

func marshalBinary(data any) (buf []byte, err error) {
	b := new(bytes.Buffer)
	err = binary.Write(b, binary.LittleEndian, data)
	return b.Bytes(), err
}

func unmarshalBinary(buf []byte, data any) (err error) {
	_, err = binary.Decode(buf, binary.LittleEndian, data)
	return
}

// decode reads the fixed-layout structure pointed to by the argument
// firmware address into data.
func decode(data any, addr uint64) (err error) {
	t, err := marshalBinary(data)

	if err != nil {
		return
	}

	buf, err := readBuffer(addr, len(t))

	if err != nil {
		return
	}

	return unmarshalBinary(buf, data)
}

// readBuffer copies n bytes of firmware memory at the argument address.
func readBuffer(addr uint64, n int) (buf []byte, err error) {
	if addr == 0 {
		return nil, errors.New("invalid address")
	}

	mem := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n)

	buf = make([]byte, n)
	copy(buf, mem)

	return
}
