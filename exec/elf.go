// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package exec provides loading and launching of bare-metal kernel images,
// materializing ELF program segments in physical memory through the boot
// frame allocator.
package exec

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"

	"github.com/Cach30verfl0w/OverflowOS/pmm"
)

// ErrInvalidImage is returned when a kernel image cannot be parsed or
// violates the constraints of a bare-metal executable.
var ErrInvalidImage = errors.New("invalid kernel image")

// BootImage represents a bootable kernel image.
type BootImage interface {
	Load() error
	Entry() uint64
	Boot(cleanup func()) error
}

// ELFImage represents a statically linked ELF kernel image to be executed
// at its linked virtual addresses, which are assumed to be identity mapped.
type ELFImage struct {
	// Region is the physical memory window segments are written to.
	Region *pmm.Region

	// Alloc reserves the physical frames backing each segment.
	Alloc *pmm.Allocator

	// Kernel is the raw ELF image.
	Kernel []byte

	entry  uint64
	loaded bool
}

func (image *ELFImage) parse() (f *elf.File, err error) {
	if f, err = elf.NewFile(bytes.NewReader(image.Kernel)); err != nil {
		return nil, fmt.Errorf("%w, %v", ErrInvalidImage, err)
	}

	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_X86_64 {
		return nil, fmt.Errorf("%w, not an x86_64 executable", ErrInvalidImage)
	}

	if f.Type != elf.ET_EXEC {
		return nil, fmt.Errorf("%w, not a statically linked executable", ErrInvalidImage)
	}

	return
}

// loadSegment reserves the page-aligned frame extent covering the segment
// virtual address range, zeroes it and copies in the segment file contents.
// Bytes past the file size up to the memory size (.bss) are left zeroed.
func (image *ELFImage) loadSegment(prg *elf.Prog) (err error) {
	pageSize := image.Alloc.PageSize()

	if prg.Filesz > prg.Memsz {
		return fmt.Errorf("%w, file size exceeds memory size", ErrInvalidImage)
	}

	if prg.Memsz == 0 {
		return
	}

	base := prg.Vaddr &^ (pageSize - 1)
	extent := (prg.Vaddr - base) + prg.Memsz
	pages := (extent + pageSize - 1) / pageSize

	if err = image.Alloc.AllocateAt(base, extent); err != nil {
		return fmt.Errorf("could not reserve segment frames at %#x, %w", base, err)
	}

	if err = image.Region.Zero(base, int(pages*pageSize)); err != nil {
		return
	}

	if prg.Filesz == 0 {
		return
	}

	buf := make([]byte, prg.Filesz)

	if _, err = prg.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("%w, could not read segment, %v", ErrInvalidImage, err)
	}

	return image.Region.Write(prg.Vaddr, buf)
}

// Load materializes all PT_LOAD program segments in physical memory and
// resolves the image entry point. It must be invoked before Entry or Boot.
func (image *ELFImage) Load() (err error) {
	f, err := image.parse()

	if err != nil {
		return
	}

	loadable := 0

	for _, prg := range f.Progs {
		if prg.Type != elf.PT_LOAD {
			continue
		}

		if err = image.loadSegment(prg); err != nil {
			return
		}

		loadable++
	}

	if loadable == 0 {
		return fmt.Errorf("%w, no loadable segments", ErrInvalidImage)
	}

	image.entry = f.Entry
	image.loaded = true

	return
}

// Entry returns the kernel entry point, it is valid only after a successful
// Load.
func (image *ELFImage) Entry() uint64 {
	return image.entry
}
