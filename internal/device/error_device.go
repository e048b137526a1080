// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package device

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrInjected is an error artificially injected for testing device error
// paths.
var ErrInjected = errors.New("injected error")

// Mode is a bit field specifying the operation types for which error
// injection is enabled.
type Mode int

const (
	// ModeRead enables errors for read operations.
	ModeRead Mode = 1 << iota
	// ModeWrite enables errors for write and truncate operations.
	ModeWrite
	// ModeSync enables errors for sync operations.
	ModeSync
)

// WithErrors returns a Device that wraps dev and fails the operation at the
// given index. Each operation whose type is enabled in mode decrements index;
// the operation that takes it to -1 fails with ErrInjected. Operations are
// counted from 0 and the counter may be reset by storing into index.
func WithErrors(dev Device, index *atomic.Int32, mode Mode) *ErrorDevice {
	return &ErrorDevice{dev: dev, index: index, mode: mode}
}

// ErrorDevice injects failures into a wrapped device.
type ErrorDevice struct {
	dev   Device
	index *atomic.Int32
	mode  Mode
}

var _ Device = (*ErrorDevice)(nil)

func (d *ErrorDevice) maybeError(mode Mode) error {
	if d.mode&mode == 0 {
		return nil
	}
	if d.index.Add(-1) == -1 {
		return ErrInjected
	}
	return nil
}

// Unwrap implements Wrapper.
func (d *ErrorDevice) Unwrap() Device {
	return d.dev
}

// ReadAt implements io.ReaderAt.
func (d *ErrorDevice) ReadAt(p []byte, off int64) (int, error) {
	if err := d.maybeError(ModeRead); err != nil {
		return 0, err
	}
	return d.dev.ReadAt(p, off)
}

// WriteAt implements io.WriterAt.
func (d *ErrorDevice) WriteAt(p []byte, off int64) (int, error) {
	if err := d.maybeError(ModeWrite); err != nil {
		return 0, err
	}
	return d.dev.WriteAt(p, off)
}

// Size implements Device.
func (d *ErrorDevice) Size() (int64, error) {
	return d.dev.Size()
}

// Truncate implements Device.
func (d *ErrorDevice) Truncate(size int64) error {
	if err := d.maybeError(ModeWrite); err != nil {
		return err
	}
	return d.dev.Truncate(size)
}

// Sync implements Device.
func (d *ErrorDevice) Sync() error {
	if err := d.maybeError(ModeSync); err != nil {
		return err
	}
	return d.dev.Sync()
}

// Close implements io.Closer.
func (d *ErrorDevice) Close() error {
	return d.dev.Close()
}
