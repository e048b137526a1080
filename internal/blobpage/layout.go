// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package blobpage implements the persistent layout of blob pages and the
// fixed-capacity freelist allocator that manages space inside grouped pages.
//
// A blob page starts with the page cache's persistent header, followed by the
// blob page header:
//
//	+-------------------+-----------+------------+--------------------------+
//	| page header (24)  | num_pages | free_bytes | freelist[32]{off, size}  |
//	|  (page cache)     |   u32     |    u32     |   32 x (u32, u32)        |
//	+-------------------+-----------+------------+--------------------------+
//
// Blobs are stored after the blob page header. Each blob starts with a
// 28-byte blob header followed by its payload. All integers are little-endian.
//
// A page with num_pages == 0 is a grouped page shared by several small blobs
// whose free space is tracked in the freelist. A page with num_pages >= 1 is
// the first page of an overflow run owned by a single blob; the remaining
// num_pages-1 pages of the run carry no header at all.
package blobpage

import "github.com/cockroachdb/blobheap/internal/pagecache"

const (
	// FreelistEntries is the fixed capacity of a page's freelist.
	FreelistEntries = 32

	// PageHeaderSize is the encoded size of a PageHeader.
	PageHeaderSize = 8 + FreelistEntries*8

	// PageOverhead is the number of bytes at the start of a blob page that
	// cannot hold blob data.
	PageOverhead = pagecache.HeaderSize + PageHeaderSize

	// DefaultMinFragmentSize is the default size below which the remainder of
	// a freelist entry is not worth tracking.
	DefaultMinFragmentSize = 32
)

// Capacity returns the number of bytes available to blobs on a grouped page of
// the given size.
func Capacity(pageSize uint32) uint32 {
	return pageSize - PageOverhead
}

// OverflowPages returns the number of contiguous pages needed to store an
// overflow blob that requires the given number of bytes (blob header
// included).
func OverflowPages(required uint64, pageSize uint32) uint32 {
	total := required + PageOverhead
	return uint32((total + uint64(pageSize) - 1) / uint64(pageSize))
}

// FitsGrouped returns true if a blob requiring the given number of bytes can
// be placed on a grouped page.
func FitsGrouped(required uint64, pageSize uint32) bool {
	return required <= uint64(Capacity(pageSize))
}
