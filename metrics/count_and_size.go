// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package metrics contains small value types shared by the metrics of the
// blob store and its command-line tooling.
package metrics

import (
	"github.com/cockroachdb/blobheap/internal/invariants"
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
)

// CountAndSize counts live blobs and their payload bytes.
type CountAndSize struct {
	Count uint64
	Bytes uint64
}

// Inc records a new blob with the given payload size.
func (cs *CountAndSize) Inc(size uint64) {
	cs.Count++
	cs.Bytes += size
}

// Dec removes a blob with the given payload size.
func (cs *CountAndSize) Dec(size uint64) {
	cs.Count = invariants.SafeSub(cs.Count, 1)
	cs.Bytes = invariants.SafeSub(cs.Bytes, size)
}

// Resize records that a blob's payload changed from oldSize to newSize.
func (cs *CountAndSize) Resize(oldSize, newSize uint64) {
	cs.Bytes = invariants.SafeSub(cs.Bytes, oldSize) + newSize
}

// MeanSize returns the average payload size, or 0 if there are no blobs.
func (cs CountAndSize) MeanSize() uint64 {
	if cs.Count == 0 {
		return 0
	}
	return cs.Bytes / cs.Count
}

// IsZero returns true if no blobs are counted.
func (cs CountAndSize) IsZero() bool {
	return cs == CountAndSize{}
}

// Plus returns the element-wise sum of cs and other.
func (cs CountAndSize) Plus(other CountAndSize) CountAndSize {
	cs.Count += other.Count
	cs.Bytes += other.Bytes
	return cs
}

func (cs CountAndSize) String() string {
	return redact.StringWithoutMarkers(cs)
}

// SafeFormat implements redact.SafeFormatter.
func (cs CountAndSize) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("%s (%s", crhumanize.Count(cs.Count, crhumanize.Compact),
		crhumanize.Bytes(cs.Bytes, crhumanize.Compact, crhumanize.OmitI))
	if cs.Count > 0 {
		w.Printf(", mean %s", crhumanize.Bytes(cs.MeanSize(), crhumanize.Compact, crhumanize.OmitI))
	}
	w.Printf(")")
}
