// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/Cach30verfl0w/OverflowOS/efi"
	"github.com/Cach30verfl0w/OverflowOS/shell"

	_ "github.com/Cach30verfl0w/OverflowOS/cmd"
)

func init() {
	log.SetFlags(0)
}

func main() {
	logFile, _ := os.OpenFile("/runtime.log", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	// the firmware arms a 5 minute watchdog at application start
	if err := efi.UEFI.Boot.SetWatchdogTimer(0); err != nil {
		log.Printf("could not disarm watchdog, %v", err)
	}

	iface := &shell.Interface{
		Banner: fmt.Sprintf("OverflowOS boot shell • %s/%s (%s) • UEFI",
			runtime.GOOS, runtime.GOARCH, runtime.Version()),
		Log:        logFile,
		ReadWriter: efi.UEFI.Console,
		VT100:      true,
	}

	iface.Start()

	// hand control back to the firmware boot manager
	if err := efi.UEFI.Boot.Exit(0); err != nil {
		log.Printf("could not exit to firmware, %v", err)
	}

	runtime.Exit(0)
}
