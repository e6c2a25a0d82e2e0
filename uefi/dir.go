// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
	"io"
	"io/fs"
)

// MaxDirEntries represents the maximum number of directory entries
// returned by a single [File.ReadDir] invocation.
const MaxDirEntries = 1000

// DirEntry implements the [fs.DirEntry] interface for the EFI File Protocol.
type DirEntry struct {
	fi *FileInfo
}

// Name returns the name of the file (or subdirectory) described by the entry.
func (d DirEntry) Name() string {
	return d.fi.Name()
}

// IsDir reports whether the entry describes a directory.
func (d DirEntry) IsDir() bool {
	return d.fi.IsDir()
}

// Type returns the file mode bits.
func (d DirEntry) Type() fs.FileMode {
	return d.fi.Mode()
}

// Info returns the FileInfo for the file or subdirectory described by the entry.
func (d DirEntry) Info() (fs.FileInfo, error) {
	return fs.FileInfo(d.fi), nil
}

// ReadDir reads the contents of the directory and returns a slice of up
// to n DirEntry values in directory order. Subsequent calls on the same
// file will yield further DirEntry values.
func (f *File) ReadDir(n int) (entries []fs.DirEntry, err error) {
	if fi, err := f.Stat(); err != nil || !fi.IsDir() {
		return nil, errors.New("not a directory")
	}

	if n <= 0 {
		n = MaxDirEntries - f.dirents
	}

	t, _ := marshalBinary(&fileInfo{})

	for i := 0; i < n; i++ {
		buf := make([]byte, len(t)+(MaxFileName+1)*2)

		if _, err = f.Read(buf); err == io.EOF {
			return entries, nil
		}

		if err != nil {
			return nil, err
		}

		fi := &FileInfo{}

		if err = fi.decode(buf); err != nil {
			return
		}

		entries = append(entries, fs.DirEntry(DirEntry{fi: fi}))
	}

	f.dirents += len(entries)

	return
}
