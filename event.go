// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"time"

	"github.com/cockroachdb/blobheap/internal/blobpage"
	"github.com/cockroachdb/redact"
)

// OverflowInfo contains the info for an overflow run allocation event.
type OverflowInfo struct {
	ID BlobID
	// Pages is the number of pages in the run.
	Pages uint32
	// Size is the payload size of the blob.
	Size uint64
}

func (i OverflowInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i OverflowInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("[OVERFLOW] %s: %d pages for %d bytes", i.ID, redact.Safe(i.Pages), redact.Safe(i.Size))
}

// PageReclaimInfo contains the info for a page reclaim event.
type PageReclaimInfo struct {
	// Address is the address of the first released page.
	Address uint64
	// Pages is the number of pages released to the free pool.
	Pages uint32
	// Overflow is set if the pages held an overflow blob.
	Overflow bool
}

func (i PageReclaimInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i PageReclaimInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	kind := "grouped"
	if i.Overflow {
		kind = "overflow"
	}
	w.Printf("[RECLAIM] page %d: %d %s pages released", redact.Safe(i.Address), redact.Safe(i.Pages), redact.SafeString(kind))
}

// FreelistEvictionInfo contains the info for a freelist eviction event. The
// evicted range is permanently lost to reuse.
type FreelistEvictionInfo struct {
	Page    uint64
	Evicted blobpage.Extent
}

func (i FreelistEvictionInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i FreelistEvictionInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("[FREELIST] page %d: full freelist evicted [%d,%d)",
		redact.Safe(i.Page), redact.Safe(i.Evicted.Offset), redact.Safe(i.Evicted.End()))
}

// IntegrityViolationInfo contains the info for a failed page integrity
// check.
type IntegrityViolationInfo struct {
	Page uint64
	Err  error
}

func (i IntegrityViolationInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i IntegrityViolationInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("[INTEGRITY] page %d: %v", redact.Safe(i.Page), i.Err)
}

// RecoveryInfo contains the info for the scan performed when an existing
// file is opened.
type RecoveryInfo struct {
	Pages         uint64
	FreePages     uint64
	GroupedPages  uint64
	OverflowRuns  uint64
	ReusablePages uint64
	Blobs         uint64
	Duration      time.Duration
}

func (i RecoveryInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i RecoveryInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("[RECOVERY] %d pages: %d free, %d grouped (%d reusable), %d overflow runs; %d blobs; in %.1fs",
		redact.Safe(i.Pages), redact.Safe(i.FreePages), redact.Safe(i.GroupedPages),
		redact.Safe(i.ReusablePages), redact.Safe(i.OverflowRuns), redact.Safe(i.Blobs),
		redact.Safe(i.Duration.Seconds()))
}

// EventListener contains a set of functions that will be invoked when various
// significant blob store events occur. Note that the functions should not run
// for an excessive amount of time as they are invoked synchronously by the
// store. Unset functions are replaced by no-ops in EnsureDefaults.
type EventListener struct {
	// OverflowAllocated is invoked after an overflow run was allocated.
	OverflowAllocated func(OverflowInfo)

	// PageReclaimed is invoked after pages were released to the free pool.
	PageReclaimed func(PageReclaimInfo)

	// FreelistEviction is invoked when a full freelist discarded an entry.
	FreelistEviction func(FreelistEvictionInfo)

	// IntegrityViolation is invoked when a page header fails its integrity
	// check.
	IntegrityViolation func(IntegrityViolationInfo)

	// Recovered is invoked after an existing file was scanned on open.
	Recovered func(RecoveryInfo)
}

// EnsureDefaults ensures that all the callbacks are non-nil. Integrity
// violations are logged through logger unless a handler is installed.
func (l *EventListener) EnsureDefaults(logger Logger) {
	if l.OverflowAllocated == nil {
		l.OverflowAllocated = func(info OverflowInfo) {}
	}
	if l.PageReclaimed == nil {
		l.PageReclaimed = func(info PageReclaimInfo) {}
	}
	if l.FreelistEviction == nil {
		l.FreelistEviction = func(info FreelistEvictionInfo) {}
	}
	if l.IntegrityViolation == nil {
		if logger != nil {
			l.IntegrityViolation = func(info IntegrityViolationInfo) {
				logger.Errorf("%s", info)
			}
		} else {
			l.IntegrityViolation = func(info IntegrityViolationInfo) {}
		}
	}
	if l.Recovered == nil {
		l.Recovered = func(info RecoveryInfo) {}
	}
}

// MakeLoggingEventListener creates an EventListener that logs all events to
// the specified logger.
func MakeLoggingEventListener(logger Logger) EventListener {
	if logger == nil {
		logger = DefaultLogger
	}

	return EventListener{
		OverflowAllocated: func(info OverflowInfo) {
			logger.Infof("%s", info)
		},
		PageReclaimed: func(info PageReclaimInfo) {
			logger.Infof("%s", info)
		},
		FreelistEviction: func(info FreelistEvictionInfo) {
			logger.Infof("%s", info)
		},
		IntegrityViolation: func(info IntegrityViolationInfo) {
			logger.Errorf("%s", info)
		},
		Recovered: func(info RecoveryInfo) {
			logger.Infof("%s", info)
		},
	}
}

// TeeEventListener wraps two EventListeners, forwarding all events to both.
func TeeEventListener(a, b EventListener) EventListener {
	a.EnsureDefaults(nil)
	b.EnsureDefaults(nil)
	return EventListener{
		OverflowAllocated: func(info OverflowInfo) {
			a.OverflowAllocated(info)
			b.OverflowAllocated(info)
		},
		PageReclaimed: func(info PageReclaimInfo) {
			a.PageReclaimed(info)
			b.PageReclaimed(info)
		},
		FreelistEviction: func(info FreelistEvictionInfo) {
			a.FreelistEviction(info)
			b.FreelistEviction(info)
		},
		IntegrityViolation: func(info IntegrityViolationInfo) {
			a.IntegrityViolation(info)
			b.IntegrityViolation(info)
		},
		Recovered: func(info RecoveryInfo) {
			a.Recovered(info)
			b.Recovered(info)
		},
	}
}
