// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/Cach30verfl0w/OverflowOS/efi"
	"github.com/Cach30verfl0w/OverflowOS/pmm"
	"github.com/Cach30verfl0w/OverflowOS/shell"
	"github.com/Cach30verfl0w/OverflowOS/uefi"
)

func init() {
	shell.Add(shell.Cmd{
		Name: "frames",
		Help: "physical frame accounting from the current memory map",
		Fn:   framesCmd,
	})

	shell.Add(shell.Cmd{
		Name:    "peek",
		Args:    2,
		Pattern: regexp.MustCompile(`^peek ([[:xdigit:]]+) (\d+)$`),
		Syntax:  "<hex offset> <size>",
		Help:    "memory display",
		Fn:      peekCmd,
	})
}

// mem reads size bytes at the argument physical address.
func mem(start uint64, size int) (b []byte) {
	b = make([]byte, size)
	pmm.MapRegion(start, size).Read(start, b)

	return
}

// framesCmd dry-runs frame table construction over the current firmware
// memory map, the produced allocator is discarded and its table lives in Go
// memory. The real table is built over firmware-allocated pages when boot
// services are exited.
func framesCmd(_ *shell.Interface, _ []string) (res string, err error) {
	var buf bytes.Buffer
	var memoryMap *uefi.MemoryMap

	if memoryMap, err = efi.UEFI.Boot.GetMemoryMap(); err != nil {
		return
	}

	size := pmm.TableSize(memoryMap.Descriptors, uefi.PageSize)
	table := pmm.NewRegion(uefi.PageSize, make([]byte, size))

	alloc, err := pmm.NewAllocator(memoryMap.Descriptors, uefi.PageSize, table)

	if err != nil {
		return
	}

	for _, desc := range memoryMap.Descriptors {
		if desc.Reusable() {
			continue
		}

		if err = alloc.Reserve(desc); err != nil {
			return
		}
	}

	fmt.Fprintf(&buf, "Range ......: %#08x-%#08x\n", alloc.Start(), alloc.Stop())
	fmt.Fprintf(&buf, "Table ......: %d bytes\n", size)
	fmt.Fprintf(&buf, "Frames .....: %d\n", alloc.AvailableFrames())
	fmt.Fprintf(&buf, "Reserved ...: %d\n", alloc.AllocatedFrames())
	fmt.Fprintf(&buf, "Free .......: %d\n", alloc.RemainingFrames())

	return buf.String(), nil
}

func peekCmd(_ *shell.Interface, arg []string) (res string, err error) {
	addr, err := strconv.ParseUint(arg[0], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	size, err := strconv.Atoi(arg[1])

	if err != nil {
		return "", fmt.Errorf("invalid size, %v", err)
	}

	return fmt.Sprintf("%x", mem(addr, size)), nil
}
