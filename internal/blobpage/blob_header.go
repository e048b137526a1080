// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobpage

import (
	"encoding/binary"

	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/errors"
)

// BlobHeaderSize is the encoded size of a BlobHeader.
const BlobHeaderSize = 28

// BlobFlagOverflow is set on blobs that own a dedicated overflow run.
const BlobFlagOverflow uint32 = 1 << 0

// BlobHeader precedes every blob's payload.
//
//	offset  size  field
//	     0     8  id (file offset of this header; 0 once erased)
//	     8     8  allocated size (header included)
//	    16     8  payload size
//	    24     4  flags
type BlobHeader struct {
	ID            uint64
	AllocatedSize uint64
	Size          uint64
	Flags         uint32
}

// DecodeBlobHeader decodes a blob header from b, which must hold at least
// BlobHeaderSize bytes.
func DecodeBlobHeader(b []byte) BlobHeader {
	_ = b[BlobHeaderSize-1]
	return BlobHeader{
		ID:            binary.LittleEndian.Uint64(b[0:]),
		AllocatedSize: binary.LittleEndian.Uint64(b[8:]),
		Size:          binary.LittleEndian.Uint64(b[16:]),
		Flags:         binary.LittleEndian.Uint32(b[24:]),
	}
}

// Encode writes the header into b.
func (h *BlobHeader) Encode(b []byte) {
	_ = b[BlobHeaderSize-1]
	binary.LittleEndian.PutUint64(b[0:], h.ID)
	binary.LittleEndian.PutUint64(b[8:], h.AllocatedSize)
	binary.LittleEndian.PutUint64(b[16:], h.Size)
	binary.LittleEndian.PutUint32(b[24:], h.Flags)
}

// IsOverflow returns true if the blob owns an overflow run.
func (h *BlobHeader) IsOverflow() bool {
	return h.Flags&BlobFlagOverflow != 0
}

// Capacity returns the largest payload that fits the blob's allocation.
func (h *BlobHeader) Capacity() uint64 {
	return h.AllocatedSize - BlobHeaderSize
}

// Validate checks that the header describes the live blob with the given ID
// in a file of fileSize bytes. An erased or foreign header yields
// base.ErrBlobNotFound; inconsistent sizes or offsets yield a corruption
// error.
func (h *BlobHeader) Validate(id base.BlobID, pageSize uint32, fileSize uint64) error {
	if h.ID == 0 {
		return errors.Mark(errors.Newf("%s has been erased", id), base.ErrBlobNotFound)
	}
	if h.ID != uint64(id) {
		return errors.Mark(errors.Newf("%s: header belongs to blob@%d", id, h.ID), base.ErrBlobNotFound)
	}
	if h.AllocatedSize < BlobHeaderSize || h.Size > h.AllocatedSize-BlobHeaderSize {
		return base.CorruptionErrorf("%s: size %d does not fit allocation of %d bytes",
			id, h.Size, h.AllocatedSize)
	}
	if uint64(id)+h.AllocatedSize > fileSize {
		return base.CorruptionErrorf("%s: allocation of %d bytes extends past end of file (%d)",
			id, h.AllocatedSize, fileSize)
	}
	inPage := uint32(uint64(id) % uint64(pageSize))
	if h.IsOverflow() {
		if inPage != PageOverhead {
			return base.CorruptionErrorf("%s: overflow blob at page offset %d", id, inPage)
		}
		return nil
	}
	if inPage < PageOverhead || uint64(inPage)+h.AllocatedSize > uint64(pageSize) {
		return base.CorruptionErrorf("%s: allocation [%d,+%d) outside of page payload",
			id, inPage, h.AllocatedSize)
	}
	return nil
}
