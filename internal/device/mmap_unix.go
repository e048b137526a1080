// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build unix

package device

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MmapDevice is a file device whose contents, as of open time, are mapped
// into memory. The file may grow afterwards; the grown region is accessed
// through regular reads and writes and is mapped again on the next open.
type MmapDevice struct {
	*FileDevice
	mapped []byte
}

var _ Mapper = (*MmapDevice)(nil)

// OpenMmap opens the file at path and maps its current contents.
func OpenMmap(path string, create bool) (*MmapDevice, error) {
	fd, err := OpenFile(path, create)
	if err != nil {
		return nil, err
	}
	size, err := fd.Size()
	if err != nil {
		_ = fd.Close()
		return nil, err
	}
	d := &MmapDevice{FileDevice: fd}
	if size == 0 {
		return d, nil
	}
	d.mapped, err = unix.Mmap(int(fd.f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = fd.Close()
		return nil, errors.Wrapf(err, "device: mmap %q", path)
	}
	return d, nil
}

// Mapped implements Mapper.
func (d *MmapDevice) Mapped(off int64, n int) ([]byte, bool) {
	if off < 0 || off+int64(n) > int64(len(d.mapped)) {
		return nil, false
	}
	return d.mapped[off : off+int64(n) : off+int64(n)], true
}

// Truncate implements Device. The file cannot shrink below the mapped
// region.
func (d *MmapDevice) Truncate(size int64) error {
	if size < int64(len(d.mapped)) {
		return errors.Newf("device: cannot truncate mapped file to %d bytes (mapped %d)", size, len(d.mapped))
	}
	return d.FileDevice.Truncate(size)
}

// Sync implements Device.
func (d *MmapDevice) Sync() error {
	if len(d.mapped) > 0 {
		if err := unix.Msync(d.mapped, unix.MS_SYNC); err != nil {
			return errors.Wrap(err, "device: msync")
		}
	}
	return d.FileDevice.Sync()
}

// Close implements io.Closer.
func (d *MmapDevice) Close() error {
	var err error
	if d.mapped != nil {
		err = unix.Munmap(d.mapped)
		d.mapped = nil
	}
	return errors.CombineErrors(err, d.FileDevice.Close())
}
