// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package pagecache

import (
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
)

// Metrics holds page cache counters.
type Metrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	// PagesRead and PagesWritten count device page transfers. Pages backed
	// by a memory mapping are counted without a device call.
	PagesRead    int64
	PagesWritten int64
	// Allocated counts pages handed out by Allocate and AllocateRun; Freed
	// counts pages released by Free.
	Allocated int64
	Freed     int64

	FilePages     int64
	FreePages     int64
	ResidentPages int64
	PinnedPages   int64
	DirtyPages    int64
}

// HitRate returns the fraction of fetches served from memory.
func (m *Metrics) HitRate() float64 {
	if total := m.Hits + m.Misses; total > 0 {
		return float64(m.Hits) / float64(total)
	}
	return 0
}

// SafeFormat implements redact.SafeFormatter.
func (m *Metrics) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("pages: %s file, %s free, %s resident (%s pinned, %s dirty)\n",
		redact.SafeString(crhumanize.Count(m.FilePages, crhumanize.Compact)),
		redact.SafeString(crhumanize.Count(m.FreePages, crhumanize.Compact)),
		redact.SafeString(crhumanize.Count(m.ResidentPages, crhumanize.Compact)),
		redact.SafeString(crhumanize.Count(m.PinnedPages, crhumanize.Compact)),
		redact.SafeString(crhumanize.Count(m.DirtyPages, crhumanize.Compact)))
	w.Printf("cache: %d hits, %d misses (%.1f%%), %d evictions, %d reads, %d writes",
		redact.Safe(m.Hits), redact.Safe(m.Misses), redact.Safe(100*m.HitRate()),
		redact.Safe(m.Evictions), redact.Safe(m.PagesRead), redact.Safe(m.PagesWritten))
}

func (m *Metrics) String() string {
	return redact.StringWithoutMarkers(m)
}
