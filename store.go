// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/internal/device"
	"github.com/cockroachdb/blobheap/internal/pagecache"
	"github.com/cockroachdb/errors"
)

// BlobID exports the base.BlobID type.
type BlobID = base.BlobID

// InvalidBlobID exports the base.InvalidBlobID constant.
const InvalidBlobID = base.InvalidBlobID

// Page exports the pagecache.Page type. A Page is returned by Read when the
// returned data aliases page memory.
type Page = pagecache.Page

// Logger exports the base.Logger type.
type Logger = base.Logger

// DefaultLogger is the Logger used when Options.Logger is unset.
var DefaultLogger = base.DefaultLogger

// Device exports the device.Device type.
type Device = device.Device

var (
	// ErrCorruption is a marker for errors caused by an invalid page or blob
	// header.
	ErrCorruption = base.ErrCorruption
	// ErrResourceExhausted is a marker for failures to obtain pages.
	ErrResourceExhausted = base.ErrResourceExhausted
	// ErrIntegrityViolation is a marker for failed freelist integrity checks.
	ErrIntegrityViolation = base.ErrIntegrityViolation
	// ErrBlobNotFound is returned for erased or unknown blob IDs.
	ErrBlobNotFound = base.ErrBlobNotFound
	// ErrInvalidParameter is a marker for malformed arguments.
	ErrInvalidParameter = base.ErrInvalidParameter
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = base.ErrClosed
)

// IsCorruptionError returns true if err is marked as a corruption error.
func IsCorruptionError(err error) bool {
	return base.IsCorruptionError(err)
}

// BlobStore stores, retrieves, overwrites and erases blobs. Mutating calls
// must be serialized by the caller; reads may run concurrently with each
// other.
type BlobStore interface {
	// Allocate stores rec and returns the ID of the new blob.
	Allocate(ctx *Context, rec Record, flags Flags) (BlobID, error)

	// Read returns the payload of a blob, or the sub-range of it selected by
	// rec when flags has Partial. The returned Page is non-nil only if the
	// data aliases page memory; the alias is valid until ctx is closed.
	Read(ctx *Context, id BlobID, rec Record, flags Flags, arena *Arena) (Record, *Page, error)

	// GetBlobSize returns the payload size of a blob.
	GetBlobSize(ctx *Context, id BlobID) (uint64, error)

	// Overwrite replaces the payload of a blob. The returned ID equals old if
	// the payload was updated in place; otherwise old is no longer valid.
	Overwrite(ctx *Context, old BlobID, rec Record, flags Flags) (BlobID, error)

	// Erase deletes a blob. Its ID is no longer valid.
	Erase(ctx *Context, id BlobID, flags Flags) error

	// Metrics returns a snapshot of the store's metrics.
	Metrics() Metrics

	// Flush writes all modified pages to the device.
	Flush() error

	// Close flushes and releases the store.
	Close() error
}

// Open opens the blob store stored at path, creating it if it does not
// exist. With Options.InMemory set, path is ignored and an in-memory store is
// returned.
func Open(path string, opts *Options) (BlobStore, error) {
	opts = opts.Clone().EnsureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.InMemory {
		return newMemStore(opts), nil
	}

	var dev device.Device
	var err error
	if opts.UseMmap {
		dev, err = device.OpenMmap(path, true)
	} else {
		dev, err = device.OpenFile(path, true)
	}
	if err != nil {
		return nil, err
	}
	s, err := OpenDevice(dev, opts)
	if err != nil {
		return nil, errors.CombineErrors(err, dev.Close())
	}
	return s, nil
}

// OpenDevice opens a disk-backed blob store on dev. The store takes ownership
// of dev and closes it on Close.
func OpenDevice(dev Device, opts *Options) (BlobStore, error) {
	opts = opts.Clone().EnsureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.InMemory {
		return nil, errors.Mark(errors.New("blobheap: InMemory cannot be used with a device"), base.ErrInvalidParameter)
	}
	return openDiskStore(dev, opts)
}
