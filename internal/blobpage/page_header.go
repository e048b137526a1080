// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobpage

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cockroachdb/blobheap/internal/base"
)

// Extent is a free byte range within a page. Offset is relative to the start
// of the page. An extent with Size 0 is an unused freelist slot.
type Extent struct {
	Offset uint32
	Size   uint32
}

// End returns the offset one past the last byte of the extent.
func (e Extent) End() uint32 {
	return e.Offset + e.Size
}

// IsZero returns true for an unused slot.
func (e Extent) IsZero() bool {
	return e.Size == 0
}

func (e Extent) String() string {
	return fmt.Sprintf("[%d,%d)", e.Offset, e.End())
}

// PageHeader is the decoded form of the header stored at the start of every
// blob page's payload.
type PageHeader struct {
	// NumPages is the number of pages owned by a single overflow blob, or 0 for
	// a grouped page.
	NumPages uint32
	// FreeBytes is the running count of reusable bytes on a grouped page.
	FreeBytes uint32
	// Freelist holds the free ranges of a grouped page.
	Freelist [FreelistEntries]Extent
}

// DecodePageHeader decodes the header from the start of a page payload.
func DecodePageHeader(payload []byte) (PageHeader, error) {
	if len(payload) < PageHeaderSize {
		return PageHeader{}, base.CorruptionErrorf(
			"blob page payload too small: %d < %d", len(payload), PageHeaderSize)
	}
	var h PageHeader
	h.NumPages = binary.LittleEndian.Uint32(payload[0:])
	h.FreeBytes = binary.LittleEndian.Uint32(payload[4:])
	for i := range h.Freelist {
		off := 8 + i*8
		h.Freelist[i].Offset = binary.LittleEndian.Uint32(payload[off:])
		h.Freelist[i].Size = binary.LittleEndian.Uint32(payload[off+4:])
	}
	return h, nil
}

// Encode writes the header to the start of a page payload, which must be at
// least PageHeaderSize bytes long.
func (h *PageHeader) Encode(payload []byte) {
	_ = payload[PageHeaderSize-1]
	binary.LittleEndian.PutUint32(payload[0:], h.NumPages)
	binary.LittleEndian.PutUint32(payload[4:], h.FreeBytes)
	for i, e := range h.Freelist {
		off := 8 + i*8
		binary.LittleEndian.PutUint32(payload[off:], e.Offset)
		binary.LittleEndian.PutUint32(payload[off+4:], e.Size)
	}
}

// Reset zeroes the header.
func (h *PageHeader) Reset() {
	*h = PageHeader{}
}

// IsGrouped returns true if the page is shared by several blobs.
func (h *PageHeader) IsGrouped() bool {
	return h.NumPages == 0
}

// IsEmpty returns true if all of a grouped page's blob capacity is free.
func (h *PageHeader) IsEmpty(pageSize uint32) bool {
	return h.IsGrouped() && h.FreeBytes == Capacity(pageSize)
}

// InitGrouped initializes the header of a fresh grouped page whose first used
// bytes are taken by a blob. The remainder of the page becomes a single free
// extent.
func (h *PageHeader) InitGrouped(pageSize, used uint32) {
	h.Reset()
	if rem := Capacity(pageSize) - used; rem > 0 {
		h.AddToFreelist(PageOverhead+used, rem)
	}
}

// InitOverflow initializes the header of the first page of an overflow run.
func (h *PageHeader) InitOverflow(numPages uint32) {
	h.Reset()
	h.NumPages = numPages
}

// ActiveEntries returns the number of used freelist slots.
func (h *PageHeader) ActiveEntries() int {
	var n int
	for _, e := range h.Freelist {
		if !e.IsZero() {
			n++
		}
	}
	return n
}

// String returns a multi-line description of the header.
func (h *PageHeader) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "num_pages=%d free_bytes=%d", h.NumPages, h.FreeBytes)
	for i, e := range h.Freelist {
		if e.IsZero() {
			continue
		}
		fmt.Fprintf(&b, "\n  %2d: %s size=%d", i, e, e.Size)
	}
	return b.String()
}
