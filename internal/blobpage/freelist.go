// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobpage

import (
	"slices"

	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/internal/invariants"
)

// AddResult describes how AddToFreelist recorded a free range.
type AddResult struct {
	// Slot is the freelist slot that now describes the range.
	Slot int
	// Merged is set if the range was coalesced with an adjacent entry because
	// the freelist was full.
	Merged bool
	// Evicted is the entry that was discarded to make room for the range. Its
	// bytes are no longer reusable. Zero if nothing was evicted.
	Evicted Extent
}

// AddToFreelist records the range [offset, offset+size) as free.
//
// An unused slot is taken if one exists. When all slots are in use, the range
// is coalesced with an entry that ends where it starts or starts where it
// ends. If no such entry exists, the currently smallest entry is evicted and
// its space is lost.
//
// FreeBytes is incremented by size on every path, including eviction: the
// counter then overstates what the freelist can hand out, but it keeps
// tracking the bytes not owned by any live blob, which is what page
// reclamation relies on.
func (h *PageHeader) AddToFreelist(offset, size uint32) AddResult {
	h.FreeBytes += size
	for i := range h.Freelist {
		if h.Freelist[i].IsZero() {
			h.Freelist[i] = Extent{Offset: offset, Size: size}
			return AddResult{Slot: i}
		}
	}
	if slot, ok := h.mergeFreelist(offset, size); ok {
		return AddResult{Slot: slot, Merged: true}
	}
	smallest := 0
	for i := 1; i < len(h.Freelist); i++ {
		if h.Freelist[i].Size < h.Freelist[smallest].Size {
			smallest = i
		}
	}
	evicted := h.Freelist[smallest]
	h.Freelist[smallest] = Extent{Offset: offset, Size: size}
	return AddResult{Slot: smallest, Evicted: evicted}
}

// mergeFreelist coalesces [offset, offset+size) with its neighbours. If the
// range bridges two entries, both are folded into one and the other slot is
// released.
func (h *PageHeader) mergeFreelist(offset, size uint32) (int, bool) {
	left, right := -1, -1
	for i, e := range h.Freelist {
		if e.IsZero() {
			continue
		}
		if e.End() == offset {
			left = i
		} else if offset+size == e.Offset {
			right = i
		}
	}
	switch {
	case left >= 0 && right >= 0:
		h.Freelist[left].Size += size + h.Freelist[right].Size
		h.Freelist[right] = Extent{}
		return left, true
	case left >= 0:
		h.Freelist[left].Size += size
		return left, true
	case right >= 0:
		h.Freelist[right].Offset = offset
		h.Freelist[right].Size += size
		return right, true
	}
	return -1, false
}

// AllocFromFreelist searches for the smallest free entry that can hold size
// bytes. On success it returns the offset of the allocation and the number of
// bytes consumed. If the entry's leftover is at least minFragment bytes, the
// entry shrinks to describe the leftover and consumed == size; otherwise the
// whole entry is consumed and the leftover becomes padding of the allocation.
func (h *PageHeader) AllocFromFreelist(size, minFragment uint32) (offset, consumed uint32, ok bool) {
	best := -1
	for i, e := range h.Freelist {
		if e.IsZero() || e.Size < size {
			continue
		}
		if best < 0 || e.Size < h.Freelist[best].Size {
			best = i
			if e.Size == size {
				break
			}
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	e := &h.Freelist[best]
	offset = e.Offset
	if e.Size-size >= minFragment && e.Size-size > 0 {
		e.Offset += size
		e.Size -= size
		consumed = size
	} else {
		consumed = e.Size
		*e = Extent{}
	}
	h.FreeBytes = invariants.SafeSub(h.FreeBytes, consumed)
	return offset, consumed, true
}

// CheckIntegrity verifies that every active freelist entry lies within the
// blob area of the page, that no two entries overlap, and that the tracked
// bytes fit both the page capacity and the FreeBytes counter. The returned
// error is marked with base.ErrIntegrityViolation.
func (h *PageHeader) CheckIntegrity(pageSize uint32) error {
	capacity := Capacity(pageSize)
	if h.FreeBytes > capacity {
		return base.IntegrityViolationf(
			"free_bytes %d exceeds page capacity %d", h.FreeBytes, capacity)
	}
	active := make([]Extent, 0, FreelistEntries)
	var total uint64
	for i, e := range h.Freelist {
		if e.IsZero() {
			continue
		}
		if e.Offset < PageOverhead || uint64(e.Offset)+uint64(e.Size) > uint64(pageSize) {
			return base.IntegrityViolationf(
				"freelist entry %d %s outside of payload [%d,%d)", i, e, PageOverhead, pageSize)
		}
		total += uint64(e.Size)
		active = append(active, e)
	}
	if h.NumPages > 0 && len(active) > 0 {
		return base.IntegrityViolationf(
			"overflow page (num_pages=%d) has %d freelist entries", h.NumPages, len(active))
	}
	if total > uint64(capacity) {
		return base.IntegrityViolationf(
			"freelist tracks %d bytes, page capacity is %d", total, capacity)
	}
	if total > uint64(h.FreeBytes) {
		return base.IntegrityViolationf(
			"freelist tracks %d bytes, free_bytes is %d", total, h.FreeBytes)
	}
	slices.SortFunc(active, func(a, b Extent) int {
		return int(a.Offset) - int(b.Offset)
	})
	for i := 1; i < len(active); i++ {
		if active[i-1].End() > active[i].Offset {
			return base.IntegrityViolationf(
				"freelist entries %s and %s overlap", active[i-1], active[i])
		}
	}
	return nil
}
