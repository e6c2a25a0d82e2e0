// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pmm

import (
	"errors"
	"unsafe"
)

// Region represents a raw physical memory window with bounds-checked
// accessors. A Region has exactly one owner at a time; all reads and writes
// of the underlying memory go through it.
type Region struct {
	base uint64
	mem  []byte
}

// NewRegion returns a Region spanning the argument buffer, addressed from
// base.
func NewRegion(base uint64, mem []byte) *Region {
	return &Region{
		base: base,
		mem:  mem,
	}
}

// MapRegion returns a Region aliasing physical memory at the argument
// address. It must only be used on bare metal where physical memory is
// identity mapped, the range is known-present and no other owner aliases it.
func MapRegion(base uint64, size int) *Region {
	return &Region{
		base: base,
		mem:  unsafe.Slice((*byte)(unsafe.Pointer(uintptr(base))), size),
	}
}

// Base returns the region start address.
func (r *Region) Base() uint64 {
	return r.base
}

// Size returns the region size in bytes.
func (r *Region) Size() int {
	return len(r.mem)
}

// End returns the first address past the region.
func (r *Region) End() uint64 {
	return r.base + uint64(len(r.mem))
}

func (r *Region) slice(addr uint64, n int) ([]byte, error) {
	if n < 0 || addr < r.base || addr+uint64(n) > r.End() {
		return nil, errors.New("access is out of region bounds")
	}

	off := addr - r.base

	return r.mem[off : off+uint64(n)], nil
}

// Write copies the argument buffer to the region at the argument address.
func (r *Region) Write(addr uint64, buf []byte) error {
	mem, err := r.slice(addr, len(buf))

	if err != nil {
		return err
	}

	copy(mem, buf)

	return nil
}

// Read copies the region contents at the argument address to the argument
// buffer.
func (r *Region) Read(addr uint64, buf []byte) error {
	mem, err := r.slice(addr, len(buf))

	if err != nil {
		return err
	}

	copy(buf, mem)

	return nil
}

// Zero clears n bytes of the region starting at the argument address.
func (r *Region) Zero(addr uint64, n int) error {
	mem, err := r.slice(addr, n)

	if err != nil {
		return err
	}

	clear(mem)

	return nil
}
