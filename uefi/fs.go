// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
	"fmt"
	"io/fs"
)

const (
	EFI_LOADED_IMAGE_PROTOCOL_REVISION       = 0x1000
	EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_REVISION = 0x00010000
)

var (
	EFI_LOADED_IMAGE_PROTOCOL_GUID       = MustParseGUID("5b1b31a1-9562-11d2-8e3f-00a0c969723b")
	EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID = MustParseGUID("964e5b22-6459-11d2-8e39-00a0c969723b")
)

// loadedImage represents an EFI Loaded Image Protocol instance.
type loadedImage struct {
	Revision        uint32
	_               uint32
	ParentHandle    uint64
	SystemTable     uint64
	DeviceHandle    uint64
	FilePath        uint64
	_               uint64
	LoadOptionsSize uint32
	_               uint32
	LoadOptions     uint64
	ImageBase       uint64
	ImageSize       uint64
	ImageCodeType   uint64
	ImageDataType   uint64
	Unload          uint64
}

// simpleFileSystem represents an EFI Simple File System Protocol
// instance.
type simpleFileSystem struct {
	Revision   uint64
	OpenVolume uint64
}

func (root *simpleFileSystem) openVolume(self uint64) (f *fileProtocol, addr uint64, err error) {
	status := callService(ptrval(&root.OpenVolume),
		[]uint64{
			self,
			ptrval(&addr),
		},
	)

	if err = parseStatus(status); err != nil {
		return
	}

	f = &fileProtocol{}
	err = decode(f, addr)

	return
}

// FS implements the [fs.FS] interface for an EFI Simple File System
// volume.
type FS struct {
	// Device is the handle the volume is attached to.
	Device uint64

	fs     *simpleFileSystem
	addr   uint64
	volume *fileProtocol
	root   uint64
}

func (root *FS) init() (err error) {
	root.fs = &simpleFileSystem{}

	if err = decode(root.fs, root.addr); err != nil {
		return
	}

	if root.fs.Revision != EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_REVISION {
		return fmt.Errorf("invalid protocol revision (%#x)", root.fs.Revision)
	}

	root.volume, root.root, err = root.fs.openVolume(root.addr)

	return
}

// Open opens the named file for reading.
func (root *FS) Open(name string) (fs.File, error) {
	if root.volume == nil {
		return nil, errors.New("invalid file system instance")
	}

	f, addr, err := root.volume.open(root.root, name, EFI_FILE_MODE_READ)

	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	return &File{
		name: name,
		file: f,
		addr: addr,
	}, nil
}

// Info returns volume information for the file system root directory.
func (root *FS) Info() (fs.FileInfo, error) {
	if root.volume == nil {
		return nil, errors.New("invalid file system instance")
	}

	return root.volume.info(root.root)
}

func (s *Services) fileSystem(device uint64) (root *FS, err error) {
	root = &FS{
		Device: device,
	}

	if root.addr, err = s.Boot.HandleProtocol(device, EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID); err != nil {
		return nil, fmt.Errorf("could not locate file system protocol, %v", err)
	}

	err = root.init()

	return
}

// Root returns the file system of the volume the currently executing
// image was loaded from.
func (s *Services) Root() (root *FS, err error) {
	addr, err := s.Boot.HandleProtocol(s.Boot.imageHandle, EFI_LOADED_IMAGE_PROTOCOL_GUID)

	if err != nil {
		return nil, fmt.Errorf("could not locate loaded image protocol, %v", err)
	}

	image := &loadedImage{}

	if err = decode(image, addr); err != nil {
		return
	}

	if image.Revision != EFI_LOADED_IMAGE_PROTOCOL_REVISION {
		return nil, fmt.Errorf("invalid protocol revision (%#x)", image.Revision)
	}

	return s.fileSystem(image.DeviceHandle)
}

// Volumes enumerates all file system volumes exposed by the firmware.
func (s *Services) Volumes() (volumes []*FS, err error) {
	handles, err := s.Boot.LocateHandles(EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID)

	if err != nil {
		return nil, fmt.Errorf("could not enumerate file system handles, %v", err)
	}

	for _, handle := range handles {
		root, err := s.fileSystem(handle)

		if err != nil {
			continue
		}

		volumes = append(volumes, root)
	}

	return
}
