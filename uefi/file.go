// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"
	"unicode/utf16"
)

const (
	EFI_FILE_PROTOCOL_REVISION  = 0x00010000
	EFI_FILE_PROTOCOL_REVISION2 = 0x00020000

	EFI_FILE_MODE_READ = 0x1

	EFI_FILE_DIRECTORY = 0x10

	// MaxFileName represents the maximum file name length handled within
	// EFI_FILE_INFO buffers.
	MaxFileName = 255
)

var EFI_FILE_INFO_ID = MustParseGUID("09576e92-6d3f-11d2-8e39-00a0c969723b")

// fileProtocol represents an EFI File Protocol function table.
type fileProtocol struct {
	Revision    uint64
	Open        uint64
	Close       uint64
	Delete      uint64
	Read        uint64
	Write       uint64
	GetPosition uint64
	SetPosition uint64
	GetInfo     uint64
	SetInfo     uint64
	Flush       uint64
	OpenEx      uint64
	ReadEx      uint64
	WriteEx     uint64
	FlushEx     uint64
}

// Time represents an EFI_TIME instance.
type Time struct {
	Year       uint16
	Month      uint8
	Day        uint8
	Hour       uint8
	Minute     uint8
	Second     uint8
	_          uint8
	Nanosecond uint32
	TimeZone   int16
	Daylight   uint8
	_          uint8
}

// Time converts the EFI representation to Go native time.
func (t *Time) Time() time.Time {
	return time.Date(
		int(t.Year), time.Month(t.Month), int(t.Day),
		int(t.Hour), int(t.Minute), int(t.Second), int(t.Nanosecond),
		time.UTC,
	)
}

// fileInfo represents the fixed part of an EFI_FILE_INFO instance, the
// variable length file name follows it in memory.
type fileInfo struct {
	Size             uint64
	FileSize         uint64
	PhysicalSize     uint64
	CreateTime       Time
	LastAccessTime   Time
	ModificationTime Time
	Attribute        uint64
}

// FileInfo implements the [fs.FileInfo] interface for the EFI File
// Protocol.
type FileInfo struct {
	name string
	info *fileInfo
}

// Name returns the base name of the file.
func (fi *FileInfo) Name() string {
	return fi.name
}

// Size returns the file size in bytes.
func (fi *FileInfo) Size() int64 {
	return int64(fi.info.FileSize)
}

// Mode returns the file mode bits.
func (fi *FileInfo) Mode() fs.FileMode {
	if fi.IsDir() {
		return fs.ModeDir
	}

	return 0
}

// ModTime returns the file modification time.
func (fi *FileInfo) ModTime() time.Time {
	return fi.info.ModificationTime.Time()
}

// IsDir reports whether the entry describes a directory.
func (fi *FileInfo) IsDir() bool {
	return fi.info.Attribute&EFI_FILE_DIRECTORY != 0
}

// Sys returns the underlying EFI_FILE_INFO instance.
func (fi *FileInfo) Sys() any {
	return fi.info
}

func (fi *FileInfo) decode(buf []byte) (err error) {
	fi.info = &fileInfo{}

	if err = unmarshalBinary(buf, fi.info); err != nil {
		return
	}

	t, _ := marshalBinary(fi.info)
	name := buf[len(t):]

	var s []uint16

	for i := 0; i+1 < len(name); i += 2 {
		r := uint16(name[i]) | uint16(name[i+1])<<8

		if r == 0x0000 {
			break
		}

		s = append(s, r)
	}

	fi.name = string(utf16.Decode(s))

	return
}

// toUTF16 converts a string to its NUL terminated UTF-16 representation.
func toUTF16(s string) []uint16 {
	return utf16.Encode([]rune(s + "\x00"))
}

func (p *fileProtocol) open(self uint64, name string, mode uint64) (f *fileProtocol, addr uint64, err error) {
	// EFI paths use backslash separators
	path := toUTF16(strings.ReplaceAll(name, `/`, `\`))

	status := callService(ptrval(&p.Open),
		[]uint64{
			self,
			ptrval(&addr),
			ptrval(&path[0]),
			mode,
			0,
		},
	)

	if err = parseStatus(status); err != nil {
		return
	}

	f = &fileProtocol{}

	if err = decode(f, addr); err != nil {
		return
	}

	if f.Revision != EFI_FILE_PROTOCOL_REVISION && f.Revision != EFI_FILE_PROTOCOL_REVISION2 {
		return nil, 0, fmt.Errorf("invalid protocol revision (%#x)", f.Revision)
	}

	return
}

func (p *fileProtocol) read(self uint64, buf []byte) (n int, err error) {
	size := uint64(len(buf))

	status := callService(ptrval(&p.Read),
		[]uint64{
			self,
			ptrval(&size),
			ptrval(&buf[0]),
		},
	)

	if err = parseStatus(status); err != nil {
		return
	}

	return int(size), nil
}

func (p *fileProtocol) close(self uint64) (err error) {
	status := callService(ptrval(&p.Close),
		[]uint64{
			self,
		},
	)

	return parseStatus(status)
}

func (p *fileProtocol) info(self uint64) (fi *FileInfo, err error) {
	guid := EFI_FILE_INFO_ID

	t, _ := marshalBinary(&fileInfo{})
	buf := make([]byte, len(t)+(MaxFileName+1)*2)
	size := uint64(len(buf))

	status := callService(ptrval(&p.GetInfo),
		[]uint64{
			self,
			guid.ptrval(),
			ptrval(&size),
			ptrval(&buf[0]),
		},
	)

	if err = parseStatus(status); err != nil {
		return
	}

	fi = &FileInfo{}
	err = fi.decode(buf)

	return
}

// File implements the [fs.File] interface for the EFI File Protocol.
type File struct {
	name string
	file *fileProtocol
	addr uint64

	// directory entries returned so far
	dirents int
}

// Stat returns a FileInfo describing the file.
func (f *File) Stat() (fs.FileInfo, error) {
	if f.file == nil || f.addr == 0 {
		return nil, fs.ErrInvalid
	}

	return f.file.info(f.addr)
}

// Read reads up to len(p) bytes from the file, returning io.EOF once no
// further data is available.
func (f *File) Read(p []byte) (n int, err error) {
	if f.file == nil || f.addr == 0 {
		return 0, fs.ErrInvalid
	}

	if len(p) == 0 {
		return
	}

	if n, err = f.file.read(f.addr, p); err != nil {
		return
	}

	if n == 0 {
		err = io.EOF
	}

	return
}

// Close releases the file handle, [File] instances cannot be used after
// its invocation.
func (f *File) Close() (err error) {
	if f.file == nil || f.addr == 0 {
		return errors.New("invalid file instance")
	}

	err = f.file.close(f.addr)
	f.file = nil
	f.addr = 0

	return
}
