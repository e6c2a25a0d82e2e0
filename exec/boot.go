// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build amd64

package exec

import (
	"errors"
)

// defined in boot.s
func jumpTo(entry uint64)

// Boot runs the argument cleanup function and transfers control to the
// loaded kernel entry point with interrupts disabled. It does not return on
// success, the kernel owns the machine from this point on.
func (image *ELFImage) Boot(cleanup func()) (err error) {
	if !image.loaded {
		return errors.New("kernel image not loaded")
	}

	if cleanup != nil {
		cleanup()
	}

	jumpTo(image.entry)

	return
}
