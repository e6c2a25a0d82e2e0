// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build amd64

package cmd

import (
	"bytes"
	"fmt"

	"github.com/Cach30verfl0w/OverflowOS/efi"
	"github.com/Cach30verfl0w/OverflowOS/shell"
)

func init() {
	shell.Add(shell.Cmd{
		Name: "volumes",
		Help: "list volumes, flag kernel image carriers",
		Fn:   volumesCmd,
	})
}

func volumesCmd(_ *shell.Interface, _ []string) (res string, err error) {
	var buf bytes.Buffer

	volumes, err := efi.UEFI.Volumes()

	if err != nil {
		return "", fmt.Errorf("could not enumerate volumes, %v", err)
	}

	fmt.Fprintf(&buf, "Device           Label            Bootable\n")

	for _, volume := range volumes {
		label := ""

		if fi, err := volume.Info(); err == nil {
			label = fi.Name()
		}

		bootable := ""

		if f, err := volume.Open(KernelPath); err == nil {
			bootable = KernelPath
			f.Close()
		}

		fmt.Fprintf(&buf, "%016x %-16s %s\n", volume.Device, label, bootable)
	}

	return buf.String(), nil
}
