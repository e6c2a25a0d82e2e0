// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pmm

import (
	"testing"
)

func TestFrameTable(t *testing.T) {
	table := NewFrameTable(make([]byte, 4))

	if table.Frames() != 32 {
		t.Fatalf("invalid capacity %d", table.Frames())
	}

	for _, frame := range []int{0, 7, 8, 31} {
		if table.Allocated(frame) {
			t.Fatalf("frame %d allocated in fresh table", frame)
		}

		table.Set(frame)

		if !table.Allocated(frame) {
			t.Fatalf("frame %d not allocated after Set", frame)
		}
	}

	if table.AllocatedCount() != 4 {
		t.Fatalf("invalid allocated count %d", table.AllocatedCount())
	}

	for _, frame := range []int{0, 7, 8, 31} {
		table.Clear(frame)

		if table.Allocated(frame) {
			t.Fatalf("frame %d allocated after Clear", frame)
		}
	}

	if table.AllocatedCount() != 0 {
		t.Fatalf("invalid allocated count %d", table.AllocatedCount())
	}

	// out of range accesses are ignored
	table.Set(-1)
	table.Set(32)

	if table.AllocatedCount() != 0 {
		t.Fatal("out of range Set modified the table")
	}
}

func TestFindRunFirstFit(t *testing.T) {
	table := NewFrameTable(make([]byte, 2))

	frame, found := table.FindRun(3, table.Frames())

	if !found || frame != 0 {
		t.Fatalf("empty table: got frame %d, found %v", frame, found)
	}

	// identical state always returns the same run
	for i := 0; i < 10; i++ {
		if next, _ := table.FindRun(3, table.Frames()); next != frame {
			t.Fatalf("non-deterministic run %d", next)
		}
	}
}

func TestFindRunSpansBytes(t *testing.T) {
	table := NewFrameTable(make([]byte, 2))

	// leave frames 6..9 as the only run of 4, crossing the byte boundary
	for frame := 0; frame < 6; frame++ {
		table.Set(frame)
	}

	for frame := 10; frame < 16; frame++ {
		table.Set(frame)
	}

	frame, found := table.FindRun(4, table.Frames())

	if !found || frame != 6 {
		t.Fatalf("got frame %d, found %v, expected 6", frame, found)
	}

	if _, found = table.FindRun(5, table.Frames()); found {
		t.Fatal("found a run longer than any free range")
	}
}

func TestFindRunSkipsFullBytes(t *testing.T) {
	table := NewFrameTable(make([]byte, 3))

	for frame := 0; frame < 16; frame++ {
		table.Set(frame)
	}

	frame, found := table.FindRun(8, table.Frames())

	if !found || frame != 16 {
		t.Fatalf("got frame %d, found %v, expected 16", frame, found)
	}
}

func TestFindRunLimit(t *testing.T) {
	table := NewFrameTable(make([]byte, 2))

	table.Set(0)

	// a run of 4 exists only past the limit
	if _, found := table.FindRun(4, 4); found {
		t.Fatal("found a run past the frame limit")
	}

	if _, found := table.FindRun(3, 4); !found {
		t.Fatal("run within the limit not found")
	}
}
