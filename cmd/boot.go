// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build amd64

package cmd

import (
	"fmt"
	"io/fs"
	"log"
	"regexp"
	"strings"

	"github.com/Cach30verfl0w/OverflowOS/efi"
	"github.com/Cach30verfl0w/OverflowOS/exec"
	"github.com/Cach30verfl0w/OverflowOS/pmm"
	"github.com/Cach30verfl0w/OverflowOS/shell"
	"github.com/Cach30verfl0w/OverflowOS/uefi"
	"github.com/Cach30verfl0w/OverflowOS/x64"
)

// KernelPath represents the default kernel image location on boot volumes.
var KernelPath = "KERNEL.ELF"

func init() {
	shell.Add(shell.Cmd{
		Name:    "boot",
		Args:    1,
		Pattern: regexp.MustCompile(`^boot(.*)`),
		Syntax:  "(path)?",
		Help:    "boot ELF kernel image",
		Fn:      bootCmd,
	})
}

// findKernel reads the kernel image from the first volume carrying it, the
// volume the loader was started from is preferred.
func findKernel(path string) (root *uefi.FS, kernel []byte, err error) {
	if root, err = efi.UEFI.Root(); err == nil {
		if kernel, err = fs.ReadFile(root, path); err == nil {
			return
		}
	}

	volumes, err := efi.UEFI.Volumes()

	if err != nil {
		return
	}

	for _, volume := range volumes {
		if kernel, err = fs.ReadFile(volume, path); err == nil {
			return volume, kernel, nil
		}
	}

	return nil, nil, fmt.Errorf("could not find %s on any volume", path)
}

func bootCmd(_ *shell.Interface, arg []string) (res string, err error) {
	path := strings.TrimSpace(arg[0])

	if len(path) == 0 {
		path = KernelPath
	}

	root, kernel, err := findKernel(path)

	if err != nil {
		return
	}

	log.Printf("loaded %s (%d bytes)", path, len(kernel))

	if err = validateKernel(root, kernel); err != nil {
		return "", fmt.Errorf("kernel validation failed, %v", err)
	}

	// The frame table is sized on the pre-exit map with one page of slack,
	// ExitBootServices() may append descriptors. Allocating it as loader
	// data keeps its own frames reserved in the final map.
	memoryMap, err := efi.UEFI.Boot.GetMemoryMap()

	if err != nil {
		return
	}

	tableSize := pmm.TableSize(memoryMap.Descriptors, uefi.PageSize) + uefi.PageSize

	tableAddr, err := efi.UEFI.Boot.AllocatePages(
		uefi.AllocateAnyPages,
		uefi.EfiLoaderData,
		tableSize,
		0,
	)

	if err != nil {
		return
	}

	table := pmm.MapRegion(tableAddr, tableSize)

	log.Printf("exiting EFI boot services")

	finalMap, err := efi.UEFI.Boot.ExitBootServices()

	if err != nil {
		efi.UEFI.Boot.FreePages(tableAddr, tableSize)
		return
	}

	// Boot Services are gone, any failure from here on is logged on the
	// serial console and halts.
	if err = bootKernel(finalMap, table, kernel); err != nil {
		log.Printf("could not boot kernel, %v", err)
		x64.Halt()
	}

	return
}

// bootKernel runs after ExitBootServices(): it builds the frame allocator
// from the final memory map, materializes the kernel segments and transfers
// control through freshly loaded descriptor tables.
func bootKernel(memoryMap *uefi.MemoryMap, table *pmm.Region, kernel []byte) (err error) {
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

	log.Printf("physical frames, %d free %d reserved", alloc.RemainingFrames(), alloc.AllocatedFrames())

	image := &exec.ELFImage{
		Region: pmm.MapRegion(alloc.Start(), int(alloc.Stop()-alloc.Start())),
		Alloc:  alloc,
		Kernel: kernel,
	}

	if err = image.Load(); err != nil {
		return fmt.Errorf("could not load kernel, %v", err)
	}

	gdt := &x64.GlobalDescriptorTable{}

	if err = gdt.Insert(1, x64.KernelCodeSegment()); err != nil {
		return
	}

	if err = gdt.Insert(2, x64.KernelDataSegment()); err != nil {
		return
	}

	idt := x64.NewInterruptDescriptorTable(x64.DefaultHandlerAddress(), x64.SelectorKernelCode)

	gdt.Load(x64.SelectorKernelCode, x64.SelectorKernelData)
	idt.Load()

	log.Printf("starting kernel@%0.8x", image.Entry())

	// does not return on success
	return image.Boot(nil)
}
