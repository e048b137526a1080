// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package device

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"
)

// NewMem returns an empty in-memory device.
func NewMem() *MemDevice {
	return &MemDevice{}
}

// MemDevice is a Device backed by a byte slice. It is safe for concurrent use.
type MemDevice struct {
	mu     sync.RWMutex
	data   []byte
	closed bool
}

var _ Device = (*MemDevice)(nil)

// ReadAt implements io.ReaderAt.
func (m *MemDevice) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, errors.New("device: read on closed device")
	}
	if off < 0 {
		return 0, errors.Newf("device: negative offset %d", off)
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt.
func (m *MemDevice) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("device: write on closed device")
	}
	if off < 0 {
		return 0, errors.Newf("device: negative offset %d", off)
	}
	if end := off + int64(len(p)); end > int64(len(m.data)) {
		m.grow(end)
	}
	return copy(m.data[off:], p), nil
}

func (m *MemDevice) grow(size int64) {
	if size <= int64(cap(m.data)) {
		m.data = m.data[:size]
		return
	}
	data := make([]byte, size, 2*size)
	copy(data, m.data)
	m.data = data
}

// Size implements Device.
func (m *MemDevice) Size() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data)), nil
}

// Truncate implements Device.
func (m *MemDevice) Truncate(size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size < 0 {
		return errors.Newf("device: negative size %d", size)
	}
	if size > int64(len(m.data)) {
		m.grow(size)
		return nil
	}
	clear(m.data[size:])
	m.data = m.data[:size]
	return nil
}

// Sync implements Device.
func (m *MemDevice) Sync() error {
	return nil
}

// Close implements io.Closer. The contents are retained, so a MemDevice can be
// reopened with Reopen to simulate a restart.
func (m *MemDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Reopen returns a new open device sharing a copy of the contents of m.
func (m *MemDevice) Reopen() *MemDevice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &MemDevice{data: append([]byte(nil), m.data...)}
}

// Bytes returns the device contents. The slice must not be retained across
// writes.
func (m *MemDevice) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data
}
