// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build amd64

package cmd

import (
	"bytes"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/Cach30verfl0w/OverflowOS/efi"
	"github.com/Cach30verfl0w/OverflowOS/shell"
	"github.com/Cach30verfl0w/OverflowOS/x64"
)

func init() {
	shell.Add(shell.Cmd{
		Name:    "cpuid",
		Args:    2,
		Pattern: regexp.MustCompile(`^cpuid\s+([[:xdigit:]]+) (\d+)$`),
		Syntax:  "<hex leaf> <subleaf>",
		Help:    "display raw CPU capability registers",
		Fn:      cpuidCmd,
	})

	shell.Add(shell.Cmd{
		Name: "cpu",
		Help: "CPU vendor and feature flags",
		Fn:   cpuCmd,
	})
}

// This unikernel is relocated by the firmware image loader, runtime.ramStart
// follows the image base and the RAM window ends a fixed size past it.
func memRegion() (start uint64, end uint64) {
	start, _ = runtime.MemRegion()
	end = start + efi.RamSize

	return
}

func infoCmd(_ *shell.Interface, _ []string) (string, error) {
	var res bytes.Buffer

	ramStart, ramEnd := memRegion()

	fmt.Fprintf(&res, "Runtime ......: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&res, "RAM ..........: %#08x-%#08x (%d MiB)\n", ramStart, ramEnd, (ramEnd-ramStart)/(1024*1024))
	fmt.Fprintf(&res, "CPU ..........: %s\n", efi.AMD64.Name())
	fmt.Fprintf(&res, "Vendor .......: %s\n", x64.CPUVendor())

	return res.String(), nil
}

func haltCmd(_ *shell.Interface, _ []string) (string, error) {
	fmt.Printf("Goodbye from %s/%s\n", runtime.GOOS, runtime.GOARCH)
	x64.Halt()

	return "", nil
}

func cpuidCmd(_ *shell.Interface, arg []string) (string, error) {
	var res bytes.Buffer

	leaf, err := strconv.ParseUint(arg[0], 16, 32)

	if err != nil {
		return "", fmt.Errorf("invalid leaf, %v", err)
	}

	subleaf, err := strconv.ParseUint(arg[1], 10, 32)

	if err != nil {
		return "", fmt.Errorf("invalid subleaf, %v", err)
	}

	eax, ebx, ecx, edx := x64.CPUID(uint32(leaf), uint32(subleaf))

	fmt.Fprintf(&res, "EAX      EBX      ECX      EDX\n")
	fmt.Fprintf(&res, "%08x %08x %08x %08x\n", eax, ebx, ecx, edx)

	return res.String(), nil
}

func cpuCmd(_ *shell.Interface, _ []string) (string, error) {
	var res bytes.Buffer

	fmt.Fprintf(&res, "Vendor ..: %s\n", x64.CPUVendor())
	fmt.Fprintf(&res, "Features : %s\n", strings.Join(x64.CPUFeatures(), " "))

	return res.String(), nil
}

func date(epoch int64) {
	efi.AMD64.SetTimer(epoch)
}

func uptime() (ns int64) {
	return int64(float64(efi.AMD64.TimerFn()) * efi.AMD64.TimerMultiplier)
}
