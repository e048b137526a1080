// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package device provides the raw byte storage underneath the page cache: an
// in-memory device, a file device and a memory-mapped file device, plus
// decorators for error injection, write throttling and latency recording.
package device

import "io"

// Device is random-access byte storage.
type Device interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Size returns the current size of the device in bytes.
	Size() (int64, error)
	// Truncate changes the size of the device.
	Truncate(size int64) error
	// Sync makes previous writes durable.
	Sync() error
}

// Mapper is implemented by devices whose contents are memory mapped.
type Mapper interface {
	// Mapped returns the mapped memory for [off, off+n), or false if the range
	// is not entirely mapped. Writes to the returned slice modify the device.
	Mapped(off int64, n int) ([]byte, bool)
}

// Wrapper is implemented by decorators.
type Wrapper interface {
	Unwrap() Device
}

// AsMapper returns the Mapper implemented by d or by any device it wraps.
func AsMapper(d Device) (Mapper, bool) {
	for d != nil {
		if m, ok := d.(Mapper); ok {
			return m, true
		}
		w, ok := d.(Wrapper)
		if !ok {
			break
		}
		d = w.Unwrap()
	}
	return nil, false
}
