// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package metrics

import (
	"github.com/cockroachdb/blobheap/internal/invariants"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Layout is the way a blob is laid out on pages.
type Layout uint8

const (
	// Grouped blobs share a page with other blobs.
	Grouped Layout = iota
	// Overflow blobs own a run of dedicated pages.
	Overflow
)

func (l Layout) String() string {
	switch l {
	case Grouped:
		return "grouped"
	case Overflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// SafeFormat implements redact.SafeFormatter.
func (l Layout) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(l.String()))
}

// CountAndSizeByLayout contains space usage information for a set of blobs,
// broken down by layout.
type CountAndSizeByLayout struct {
	ByLayout[CountAndSize]
}

func (c *CountAndSizeByLayout) Inc(size uint64, layout Layout) {
	c.Ptr(layout).Inc(size)
}

func (c *CountAndSizeByLayout) Dec(size uint64, layout Layout) {
	c.Ptr(layout).Dec(size)
}

// Resize records a payload size change of a blob that keeps its layout.
func (c *CountAndSizeByLayout) Resize(oldSize, newSize uint64, layout Layout) {
	c.Ptr(layout).Resize(oldSize, newSize)
}

// Total returns the counts summed over all layouts.
func (c CountAndSizeByLayout) Total() CountAndSize {
	return c.Grouped.Plus(c.Overflow)
}

func (c CountAndSizeByLayout) String() string {
	return redact.StringWithoutMarkers(c)
}

// SafeFormat implements redact.SafeFormatter.
func (c CountAndSizeByLayout) SafeFormat(w redact.SafePrinter, verb rune) {
	if c.Overflow.IsZero() {
		w.Printf("%s", c.Grouped)
		return
	}
	w.Printf("%s [grouped: %s, overflow: %s]", c.Total(), c.Grouped, c.Overflow)
}

// ByLayout contains one instance of T for each Layout.
type ByLayout[T any] struct {
	Grouped  T
	Overflow T
}

func (b *ByLayout[T]) Get(layout Layout) T {
	return *b.Ptr(layout)
}

func (b *ByLayout[T]) Ptr(layout Layout) *T {
	switch layout {
	case Grouped:
		return &b.Grouped
	case Overflow:
		return &b.Overflow
	default:
		if invariants.Enabled {
			panic(errors.AssertionFailedf("invalid layout %d", layout))
		}
		return &b.Grouped
	}
}
