// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobpage

import "github.com/cockroachdb/blobheap/internal/base"

// The blob area of a grouped page is tiled by regions, each starting with a
// BlobHeader whose AllocatedSize is the length of the region. A live blob's
// region carries the blob's ID. A free region carries a zero ID: it is an
// erased blob or the untouched remainder of a freelist entry. Free regions
// may be adjacent; a freelist entry can span several of them.

// MinFragment returns the smallest freelist remainder worth keeping given the
// configured minimum. A kept remainder must be able to hold the header of its
// region.
func MinFragment(configured uint32) uint32 {
	return max(configured, BlobHeaderSize)
}

// EncodeFreeRegion writes the header of a free region of the given size at
// the start of b.
func EncodeFreeRegion(b []byte, size uint32) {
	h := BlobHeader{AllocatedSize: uint64(size)}
	h.Encode(b)
}

// EntryAt returns the active freelist entry starting at offset.
func (h *PageHeader) EntryAt(offset uint32) (Extent, bool) {
	for _, e := range h.Freelist {
		if !e.IsZero() && e.Offset == offset {
			return e, true
		}
	}
	return Extent{}, false
}

// WalkRegions calls fn for every region of the grouped page held in page,
// whose file offset is addr, in address order. It returns a corruption error
// if the regions do not tile the blob area exactly or a region's header
// carries a foreign ID.
func WalkRegions(page []byte, addr uint64, fn func(off uint32, bh BlobHeader) error) error {
	pageSize := uint32(len(page))
	off := uint32(PageOverhead)
	for off < pageSize {
		if pageSize-off < BlobHeaderSize {
			return base.CorruptionErrorf("page %d: %d trailing bytes at offset %d cannot hold a region",
				addr, pageSize-off, off)
		}
		bh := DecodeBlobHeader(page[off:])
		if bh.AllocatedSize < BlobHeaderSize || bh.AllocatedSize > uint64(pageSize-off) {
			return base.CorruptionErrorf("page %d: region at offset %d has invalid size %d",
				addr, off, bh.AllocatedSize)
		}
		if bh.ID != 0 && bh.ID != addr+uint64(off) {
			return base.CorruptionErrorf("page %d: region at offset %d belongs to blob@%d",
				addr, off, bh.ID)
		}
		if err := fn(off, bh); err != nil {
			return err
		}
		off += uint32(bh.AllocatedSize)
	}
	return nil
}
