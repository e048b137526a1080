// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package device

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"
)

// FileDevice is a Device backed by an operating system file.
type FileDevice struct {
	f *os.File
}

var _ Device = (*FileDevice)(nil)

// OpenFile opens the file at path for reading and writing. If create is true
// and the file does not exist, it is created.
func OpenFile(path string, create bool) (*FileDevice, error) {
	f, err := openFile(path, create)
	if err != nil {
		return nil, err
	}
	return &FileDevice{f: f}, nil
}

func openFile(path string, create bool) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil && oserror.IsNotExist(err) && create {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "device: opening %q", path)
	}
	return f, nil
}

// Name returns the path of the underlying file.
func (d *FileDevice) Name() string {
	return d.f.Name()
}

// ReadAt implements io.ReaderAt.
func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

// WriteAt implements io.WriterAt.
func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off)
}

// Size implements Device.
func (d *FileDevice) Size() (int64, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "device: stat %q", d.f.Name())
	}
	return fi.Size(), nil
}

// Truncate implements Device.
func (d *FileDevice) Truncate(size int64) error {
	return d.f.Truncate(size)
}

// Sync implements Device.
func (d *FileDevice) Sync() error {
	return d.f.Sync()
}

// Close implements io.Closer.
func (d *FileDevice) Close() error {
	return d.f.Close()
}
