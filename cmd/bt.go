// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/usbarmory/boot-transparency/artifact"

	"github.com/Cach30verfl0w/OverflowOS/shell"
	"github.com/Cach30verfl0w/OverflowOS/transparency"
)

func init() {
	shell.Add(shell.Cmd{
		Name:    "bt",
		Args:    1,
		Pattern: regexp.MustCompile(`^(?:bt)( none| offline| online)?$`),
		Syntax:  "(none|offline|online)?",
		Help:    "show/set boot-transparency status",
		Fn:      btCmd,
	})
}

func btCmd(_ *shell.Interface, arg []string) (res string, err error) {
	if len(arg[0]) > 0 {
		status, err := transparency.ParseStatus(strings.TrimSpace(arg[0]))

		if err != nil {
			return "", err
		}

		transparency.Default.Status = status
	}

	if transparency.Default.Status == transparency.None {
		return "boot-transparency is disabled", nil
	}

	return fmt.Sprintf("boot-transparency is enabled in %s mode", transparency.Default.Status.Resolve()), nil
}

// validateKernel applies boot-transparency validation to kernel bytes loaded
// from the argument boot volume, which also carries the proof bundle and
// policies under /transparency.
func validateKernel(root fs.FS, kernel []byte) (err error) {
	if transparency.Default.Status == transparency.None {
		return
	}

	hash := sha256.Sum256(kernel)

	entry := transparency.BootEntry{
		{
			Category: artifact.LinuxKernel,
			Hash:     hash[:],
		},
	}

	transparency.Default.Root = root

	return entry.Validate(transparency.Default)
}
