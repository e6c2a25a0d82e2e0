// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package exec

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Cach30verfl0w/OverflowOS/pmm"
	"github.com/Cach30verfl0w/OverflowOS/uefi"
)

type segment struct {
	vaddr   uint64
	memsz   uint64
	payload []byte
}

// buildELF assembles a minimal statically linked x86_64 executable with one
// PT_LOAD program header per argument segment.
func buildELF(t *testing.T, entry uint64, segments ...segment) []byte {
	t.Helper()

	buf := new(bytes.Buffer)

	ehsize := uint16(64)
	phentsize := uint16(56)
	phoff := uint64(ehsize)
	dataoff := phoff + uint64(phentsize)*uint64(len(segments))

	ident := [16]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), 1}

	hdr := elf.Header64{
		Ident:     ident,
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_X86_64),
		Version:   1,
		Entry:     entry,
		Phoff:     phoff,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     uint16(len(segments)),
	}

	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		t.Fatal(err)
	}

	off := dataoff

	for _, s := range segments {
		phdr := elf.Prog64{
			Type:   uint32(elf.PT_LOAD),
			Flags:  uint32(elf.PF_R | elf.PF_X),
			Off:    off,
			Vaddr:  s.vaddr,
			Paddr:  s.vaddr,
			Filesz: uint64(len(s.payload)),
			Memsz:  s.memsz,
			Align:  0x1000,
		}

		if err := binary.Write(buf, binary.LittleEndian, &phdr); err != nil {
			t.Fatal(err)
		}

		off += uint64(len(s.payload))
	}

	for _, s := range segments {
		buf.Write(s.payload)
	}

	return buf.Bytes()
}

func newTestImage(t *testing.T, kernel []byte) (*ELFImage, []byte) {
	t.Helper()

	mem := make([]byte, 16*uefi.PageSize)

	// poisoned memory exposes missing zero fill
	for i := range mem {
		mem[i] = 0xff
	}

	descriptors := []*uefi.MemoryDescriptor{
		{
			Type:          uefi.EfiConventionalMemory,
			PhysicalStart: 0x0,
			NumberOfPages: 16,
		},
	}

	table := pmm.NewRegion(0, make([]byte, pmm.TableSize(descriptors, uefi.PageSize)))

	alloc, err := pmm.NewAllocator(descriptors, uefi.PageSize, table)

	if err != nil {
		t.Fatal(err)
	}

	return &ELFImage{
		Region: pmm.NewRegion(0, mem),
		Alloc:  alloc,
		Kernel: kernel,
	}, mem
}

func TestLoadSegmentExtent(t *testing.T) {
	payload := bytes.Repeat([]byte{0xaa}, 0x2000)

	kernel := buildELF(t, 0x1000, segment{
		vaddr:   0x1000,
		memsz:   0x2500,
		payload: payload,
	})

	image, mem := newTestImage(t, kernel)

	if err := image.Load(); err != nil {
		t.Fatal(err)
	}

	if image.Entry() != 0x1000 {
		t.Fatalf("invalid entry point %#x", image.Entry())
	}

	// frames covering [0x1000, 0x3500) and nothing else
	if n := image.Alloc.AllocatedFrames(); n != 3 {
		t.Fatalf("allocated %d frames, expected 3", n)
	}

	if !bytes.Equal(mem[0x1000:0x3000], payload) {
		t.Fatal("segment file contents not copied")
	}

	for i := 0x3000; i < 0x3500; i++ {
		if mem[i] != 0x00 {
			t.Fatalf("memory past the file size not zeroed at %#x", i)
		}
	}

	// memory below the segment base is untouched
	for i := 0; i < 0x1000; i++ {
		if mem[i] != 0xff {
			t.Fatalf("memory outside the segment modified at %#x", i)
		}
	}
}

func TestLoadUnalignedSegment(t *testing.T) {
	payload := bytes.Repeat([]byte{0xbb}, 0x100)

	kernel := buildELF(t, 0x1200, segment{
		vaddr:   0x1200,
		memsz:   0x100,
		payload: payload,
	})

	image, mem := newTestImage(t, kernel)

	if err := image.Load(); err != nil {
		t.Fatal(err)
	}

	if n := image.Alloc.AllocatedFrames(); n != 1 {
		t.Fatalf("allocated %d frames, expected 1", n)
	}

	if !bytes.Equal(mem[0x1200:0x1300], payload) {
		t.Fatal("segment file contents not copied at unaligned address")
	}

	// padding between the page base and the segment start is zeroed
	for i := 0x1000; i < 0x1200; i++ {
		if mem[i] != 0x00 {
			t.Fatalf("page padding not zeroed at %#x", i)
		}
	}
}

func TestLoadOverlappingSegments(t *testing.T) {
	kernel := buildELF(t, 0x1000,
		segment{
			vaddr:   0x1000,
			memsz:   0x1000,
			payload: bytes.Repeat([]byte{0xaa}, 0x1000),
		},
		segment{
			vaddr:   0x1800,
			memsz:   0x100,
			payload: bytes.Repeat([]byte{0xbb}, 0x100),
		},
	)

	image, _ := newTestImage(t, kernel)

	if err := image.Load(); !errors.Is(err, pmm.ErrRangeInUse) {
		t.Fatalf("overlapping segments returned %v", err)
	}
}

func TestLoadInvalidImage(t *testing.T) {
	image, _ := newTestImage(t, []byte("not an ELF image"))

	if err := image.Load(); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("malformed image returned %v", err)
	}

	// file size exceeding memory size
	kernel := buildELF(t, 0x1000, segment{
		vaddr:   0x1000,
		memsz:   0x100,
		payload: bytes.Repeat([]byte{0xaa}, 0x200),
	})

	image, _ = newTestImage(t, kernel)

	if err := image.Load(); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("oversized file contents returned %v", err)
	}

	// no loadable segments
	image, _ = newTestImage(t, buildELF(t, 0x1000))

	if err := image.Load(); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("image without segments returned %v", err)
	}
}
