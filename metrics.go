// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"time"

	"github.com/cockroachdb/blobheap/internal/pagecache"
	"github.com/cockroachdb/blobheap/metrics"
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
	"github.com/prometheus/client_golang/prometheus"
)

// OpLatency accumulates the latency of one kind of operation.
type OpLatency struct {
	Count int64
	Total time.Duration
}

func (l *OpLatency) record(d time.Duration) {
	l.Count++
	l.Total += d
}

// Mean returns the mean latency, or zero if no operation was recorded.
func (l OpLatency) Mean() time.Duration {
	if l.Count == 0 {
		return 0
	}
	return l.Total / time.Duration(l.Count)
}

type opKind int

const (
	opAllocate opKind = iota
	opRead
	opOverwrite
	opErase
)

// Metrics holds metrics for a blob store. Except for Blobs, counters cover the
// lifetime of the store since it was opened.
type Metrics struct {
	// Blobs counts the live blobs in the file, with their payload bytes, by
	// layout. It is rebuilt from the pages when the store is opened.
	Blobs metrics.CountAndSizeByLayout

	Freelist struct {
		// Hits and Misses count freelist searches of candidate pages.
		Hits   int64
		Misses int64
		// Merges counts freed ranges coalesced into a neighbour because the
		// freelist was full.
		Merges int64
		// Evictions counts entries discarded from full freelists, and
		// EvictedBytes the bytes they described.
		Evictions    int64
		EvictedBytes uint64
	}

	Overwrite struct {
		InPlace     int64
		Reallocated int64
	}

	Pages struct {
		// Grouped and Overflow count pages obtained for blobs.
		Grouped  int64
		Overflow int64
		// Reclaimed counts pages released to the free pool.
		Reclaimed int64
	}

	// ZeroCopyReads counts reads whose result aliased mapped page memory.
	ZeroCopyReads int64

	Latency struct {
		Allocate  OpLatency
		Read      OpLatency
		Overwrite OpLatency
		Erase     OpLatency
	}

	// Cache holds the page cache metrics. Empty for in-memory stores.
	Cache pagecache.Metrics
}

func (m *Metrics) latencyPtr(op opKind) *OpLatency {
	switch op {
	case opAllocate:
		return &m.Latency.Allocate
	case opRead:
		return &m.Latency.Read
	case opOverwrite:
		return &m.Latency.Overwrite
	default:
		return &m.Latency.Erase
	}
}

// SafeFormat implements redact.SafeFormatter.
func (m *Metrics) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("blobs: %s\n", m.Blobs)
	w.Printf("freelist: %d hits, %d misses, %d merges, %d evictions (%s lost)\n",
		redact.Safe(m.Freelist.Hits), redact.Safe(m.Freelist.Misses), redact.Safe(m.Freelist.Merges),
		redact.Safe(m.Freelist.Evictions),
		crhumanize.Bytes(m.Freelist.EvictedBytes, crhumanize.Compact, crhumanize.OmitI))
	w.Printf("overwrite: %d in place, %d reallocated\n",
		redact.Safe(m.Overwrite.InPlace), redact.Safe(m.Overwrite.Reallocated))
	w.Printf("pages: %d grouped, %d overflow, %d reclaimed\n",
		redact.Safe(m.Pages.Grouped), redact.Safe(m.Pages.Overflow), redact.Safe(m.Pages.Reclaimed))
	w.Printf("latency: allocate %s, read %s, overwrite %s, erase %s (%d zero-copy reads)\n",
		redact.Safe(m.Latency.Allocate.Mean()), redact.Safe(m.Latency.Read.Mean()),
		redact.Safe(m.Latency.Overwrite.Mean()), redact.Safe(m.Latency.Erase.Mean()),
		redact.Safe(m.ZeroCopyReads))
	w.Printf("%s", &m.Cache)
}

func (m *Metrics) String() string {
	return redact.StringWithoutMarkers(m)
}

var (
	blobCountDesc = prometheus.NewDesc("blobheap_blobs",
		"Number of live blobs.", []string{"layout"}, nil)
	blobBytesDesc = prometheus.NewDesc("blobheap_blob_bytes",
		"Payload bytes of live blobs.", []string{"layout"}, nil)
	freelistDesc = prometheus.NewDesc("blobheap_freelist_total",
		"Freelist events.", []string{"event"}, nil)
	overwriteDesc = prometheus.NewDesc("blobheap_overwrites_total",
		"Overwrites by path.", []string{"path"}, nil)
	pagesDesc = prometheus.NewDesc("blobheap_pages_total",
		"Pages obtained or reclaimed.", []string{"kind"}, nil)
	opsDesc = prometheus.NewDesc("blobheap_operations_total",
		"Blob store operations.", []string{"op"}, nil)
	opSecondsDesc = prometheus.NewDesc("blobheap_operation_seconds_total",
		"Cumulative blob store operation latency.", []string{"op"}, nil)
	cacheDesc = prometheus.NewDesc("blobheap_cache_total",
		"Page cache events.", []string{"event"}, nil)
	filePagesDesc = prometheus.NewDesc("blobheap_file_pages",
		"Pages in the file.", []string{"state"}, nil)
)

type collector struct {
	store BlobStore
}

// NewCollector returns a prometheus.Collector exporting the metrics of
// store.
func NewCollector(store BlobStore) prometheus.Collector {
	return &collector{store: store}
}

// Describe implements prometheus.Collector.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		blobCountDesc, blobBytesDesc, freelistDesc, overwriteDesc, pagesDesc,
		opsDesc, opSecondsDesc, cacheDesc, filePagesDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	m := c.store.Metrics()
	gauge := func(d *prometheus.Desc, v float64, label string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, label)
	}
	counter := func(d *prometheus.Desc, v float64, label string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, label)
	}
	for _, l := range []metrics.Layout{metrics.Grouped, metrics.Overflow} {
		cs := m.Blobs.Get(l)
		gauge(blobCountDesc, float64(cs.Count), l.String())
		gauge(blobBytesDesc, float64(cs.Bytes), l.String())
	}
	counter(freelistDesc, float64(m.Freelist.Hits), "hit")
	counter(freelistDesc, float64(m.Freelist.Misses), "miss")
	counter(freelistDesc, float64(m.Freelist.Merges), "merge")
	counter(freelistDesc, float64(m.Freelist.Evictions), "eviction")
	counter(overwriteDesc, float64(m.Overwrite.InPlace), "in_place")
	counter(overwriteDesc, float64(m.Overwrite.Reallocated), "reallocated")
	counter(pagesDesc, float64(m.Pages.Grouped), "grouped")
	counter(pagesDesc, float64(m.Pages.Overflow), "overflow")
	counter(pagesDesc, float64(m.Pages.Reclaimed), "reclaimed")
	for _, op := range []struct {
		name string
		l    OpLatency
	}{
		{"allocate", m.Latency.Allocate},
		{"read", m.Latency.Read},
		{"overwrite", m.Latency.Overwrite},
		{"erase", m.Latency.Erase},
	} {
		counter(opsDesc, float64(op.l.Count), op.name)
		counter(opSecondsDesc, op.l.Total.Seconds(), op.name)
	}
	counter(cacheDesc, float64(m.Cache.Hits), "hit")
	counter(cacheDesc, float64(m.Cache.Misses), "miss")
	counter(cacheDesc, float64(m.Cache.Evictions), "eviction")
	counter(cacheDesc, float64(m.Cache.PagesRead), "read")
	counter(cacheDesc, float64(m.Cache.PagesWritten), "write")
	gauge(filePagesDesc, float64(m.Cache.FilePages), "total")
	gauge(filePagesDesc, float64(m.Cache.FreePages), "free")
}
