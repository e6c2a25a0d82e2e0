// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pmm

import (
	"math/bits"
)

// FrameTable tracks the allocation state of physical page frames as a
// bitmap, one bit per frame. A set bit marks the frame allocated or
// reserved, a clear bit marks it free. Bit index i always corresponds to
// frame i relative to the owning allocator frame-numbering origin.
type FrameTable struct {
	bits []byte
}

// NewFrameTable returns a FrameTable backed by the argument buffer, with
// all frames marked free. The buffer is written in place for the whole
// lifetime of the table and must not be aliased by other owners.
func NewFrameTable(buf []byte) *FrameTable {
	clear(buf)

	return &FrameTable{
		bits: buf,
	}
}

// Frames returns the table capacity in frames.
func (t *FrameTable) Frames() int {
	return len(t.bits) * 8
}

// Allocated returns whether the argument frame is marked as allocated.
func (t *FrameTable) Allocated(frame int) bool {
	if frame < 0 || frame >= t.Frames() {
		return false
	}

	return t.bits[frame>>3]&(1<<(frame&7)) != 0
}

// Set marks the argument frame as allocated.
func (t *FrameTable) Set(frame int) {
	if frame < 0 || frame >= t.Frames() {
		return
	}

	t.bits[frame>>3] |= 1 << (frame & 7)
}

// Clear marks the argument frame as free.
func (t *FrameTable) Clear(frame int) {
	if frame < 0 || frame >= t.Frames() {
		return
	}

	t.bits[frame>>3] &^= 1 << (frame & 7)
}

// AllocatedCount returns the number of frames marked as allocated.
func (t *FrameTable) AllocatedCount() (n int) {
	for _, b := range t.bits {
		n += bits.OnesCount8(b)
	}

	return
}

// FindRun returns the frame index of the lowest run of n consecutive free
// frames within the first limit frames of the table (first-fit). Runs may
// span byte boundaries of the underlying bitmap.
func (t *FrameTable) FindRun(n int, limit int) (frame int, found bool) {
	if n <= 0 {
		return 0, false
	}

	if max := t.Frames(); limit > max {
		limit = max
	}

	run := 0

	for i := 0; i < limit; i++ {
		// skip fully allocated bytes without scanning each bit
		if run == 0 && i&7 == 0 && t.bits[i>>3] == 0xff {
			i += 7
			continue
		}

		if t.Allocated(i) {
			run = 0
			continue
		}

		run++

		if run == n {
			return i - n + 1, true
		}
	}

	return 0, false
}
