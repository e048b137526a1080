// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/errors"
)

// Flags modify a blob store operation.
type Flags uint32

const (
	// DirectAccess permits Read to return data aliasing a memory-mapped page
	// instead of copying it.
	DirectAccess Flags = 1 << iota
	// Partial restricts the operation to the sub-range of the blob described
	// by Record.PartialOffset and Record.PartialSize.
	Partial
	// ForceReallocate makes Overwrite allocate new storage even if the new
	// payload fits the existing allocation.
	ForceReallocate
)

// RecordFlags describe the Record itself.
type RecordFlags uint32

const (
	// UserAlloc means Record.Data is a caller-owned destination buffer for
	// Read.
	UserAlloc RecordFlags = 1 << iota
)

// Record is the caller-facing value exchanged with a BlobStore.
//
// For Allocate and Overwrite, Data holds the payload. With the Partial flag
// Data holds only the bytes at [PartialOffset, PartialOffset+PartialSize) of
// a blob whose total size is Size; all other bytes are zero or, for an
// in-place Overwrite, retained.
//
// For Read, the request selects the sub-range (Partial) and the destination
// buffer (UserAlloc). The returned Record's Size is the blob's total size.
type Record struct {
	Data          []byte
	Size          uint64
	PartialOffset uint64
	PartialSize   uint64
	Flags         RecordFlags
}

// payloadSize returns the total size of the blob described by rec, and
// validates the partial range.
func (rec *Record) payloadSize(flags Flags) (uint64, error) {
	if flags&Partial == 0 {
		return uint64(len(rec.Data)), nil
	}
	if rec.PartialSize > uint64(len(rec.Data)) {
		return 0, errors.Mark(errors.Newf("blobheap: partial size %d exceeds data length %d",
			rec.PartialSize, len(rec.Data)), base.ErrInvalidParameter)
	}
	if rec.PartialOffset > rec.Size || rec.PartialSize > rec.Size-rec.PartialOffset {
		return 0, errors.Mark(errors.Newf("blobheap: partial range [%d,+%d) exceeds blob size %d",
			rec.PartialOffset, rec.PartialSize, rec.Size), base.ErrInvalidParameter)
	}
	return rec.Size, nil
}

// Arena is a growable buffer receiving copied Read results. The data returned
// by a Read into an arena is valid until the next Read into the same arena.
type Arena struct {
	buf []byte
}

// Alloc returns a slice of n bytes, growing the arena if needed.
func (a *Arena) Alloc(n int) []byte {
	if cap(a.buf) < n {
		a.buf = make([]byte, n)
	}
	a.buf = a.buf[:n]
	return a.buf
}

// Len returns the capacity the arena currently holds.
func (a *Arena) Len() int {
	return cap(a.buf)
}

// destination returns the buffer a Read of n bytes copies into.
func destination(rec Record, n uint64, arena *Arena) ([]byte, error) {
	switch {
	case rec.Flags&UserAlloc != 0:
		if uint64(cap(rec.Data)) < n {
			return nil, errors.Mark(errors.Newf("blobheap: user buffer of %d bytes cannot hold %d",
				cap(rec.Data), n), base.ErrInvalidParameter)
		}
		return rec.Data[:n], nil
	case arena != nil:
		return arena.Alloc(int(n)), nil
	default:
		return make([]byte, n), nil
	}
}

// readRange returns the sub-range of a blob of the given size that a Read
// request selects.
func readRange(rec Record, flags Flags, size uint64) (off, n uint64, err error) {
	if flags&Partial == 0 {
		return 0, size, nil
	}
	if rec.PartialOffset > size {
		return 0, 0, errors.Mark(errors.Newf("blobheap: partial offset %d beyond blob size %d",
			rec.PartialOffset, size), base.ErrInvalidParameter)
	}
	return rec.PartialOffset, min(rec.PartialSize, size-rec.PartialOffset), nil
}
