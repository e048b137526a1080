// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package pagecache implements a write-back cache of fixed-size file pages
// on top of a device.Device.
//
// Page 0 of every file is the file header page. All other pages are either
// blob pages, free pages tracked by the free pool, or raw continuation pages
// of an overflow run. Pages that carry a persistent header are checksummed
// when written back and verified when loaded.
package pagecache

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/internal/device"
	"github.com/cockroachdb/crlib/fifo"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

const (
	fileMagic   = "BLBH"
	fileVersion = 1

	// MinPageSize and MaxPageSize bound the page size of a file.
	MinPageSize = 1 << 10
	MaxPageSize = 1 << 20
)

// Options configure a Cache.
type Options struct {
	// PageSize is the page size of newly created files. Existing files keep
	// the page size recorded in their header page.
	PageSize uint32
	// Capacity is the number of pages the cache holds before it starts to
	// evict unpinned pages.
	Capacity int
	// MaxFileSize bounds the file size. Zero means unbounded.
	MaxFileSize uint64
	// VerifyChecksums enables checksum verification of loaded pages.
	VerifyChecksums bool
}

// FetchFlags modify Fetch.
type FetchFlags uint8

const (
	// NoHeader fetches a raw page that does not carry a persistent header.
	NoHeader FetchFlags = 1 << iota
	// ReadOnly fetches the page without pinning it.
	ReadOnly
)

var (
	pageQueuePool = fifo.MakeQueueBackingPool[*Page]()
	addrQueuePool = fifo.MakeQueueBackingPool[uint64]()
)

// Cache is a write-back page cache.
type Cache struct {
	dev    device.Device
	mapper device.Mapper
	opts   Options

	pageSize uint32

	mu struct {
		sync.Mutex
		pages swiss.Map[uint64, *Page]
		// clock orders resident pages for second-chance eviction. Entries
		// that no longer match the page table are dropped when popped.
		clock fifo.Queue[*Page]
		// free is the free pool in release order; freeSet mirrors its
		// contents for membership tests.
		free     fifo.Queue[uint64]
		freeSet  swiss.Map[uint64, struct{}]
		fileSize uint64
		metrics  Metrics
		closed   bool
	}
}

// Open opens a cache over dev. An empty device is initialized with a file
// header page; otherwise the header page is validated and its page size is
// adopted.
func Open(dev device.Device, opts Options) (*Cache, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = 1
	}
	c := &Cache{dev: dev, opts: opts}
	if m, ok := device.AsMapper(dev); ok {
		c.mapper = m
	}
	c.mu.pages.Init(opts.Capacity)
	c.mu.freeSet.Init(16)
	c.mu.clock = fifo.MakeQueue(&pageQueuePool)
	c.mu.free = fifo.MakeQueue(&addrQueuePool)

	size, err := dev.Size()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		if err := c.create(); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err := c.readFileHeader(uint64(size)); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) create() error {
	ps := c.opts.PageSize
	if ps < MinPageSize || ps > MaxPageSize || ps&(ps-1) != 0 {
		return errors.Mark(errors.Newf("blobheap: invalid page size %d", ps), base.ErrInvalidParameter)
	}
	c.pageSize = ps
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.newPageLocked(0)
	p.SetKind(KindFileHeader)
	payload := p.Payload()
	copy(payload, fileMagic)
	binary.LittleEndian.PutUint32(payload[4:], fileVersion)
	binary.LittleEndian.PutUint32(payload[8:], ps)
	p.MarkDirty()
	c.mu.fileSize = uint64(ps)
	c.mu.metrics.FilePages = 1
	return c.writeBackLocked(p)
}

func (c *Cache) readFileHeader(size uint64) error {
	var hdr [HeaderSize + 12]byte
	if _, err := c.dev.ReadAt(hdr[:], 0); err != nil {
		if errors.Is(err, io.EOF) {
			return base.MarkCorruptionError(
				errors.Wrapf(err, "blobheap: file too short for header (%d bytes)", size))
		}
		return err
	}
	payload := hdr[HeaderSize:]
	if string(payload[:4]) != fileMagic {
		return base.CorruptionErrorf("blobheap: bad magic %q", payload[:4])
	}
	if v := binary.LittleEndian.Uint32(payload[4:]); v != fileVersion {
		return base.CorruptionErrorf("blobheap: unsupported file version %d", v)
	}
	ps := binary.LittleEndian.Uint32(payload[8:])
	if ps < MinPageSize || ps > MaxPageSize || ps&(ps-1) != 0 {
		return base.CorruptionErrorf("blobheap: bad page size %d in file header", ps)
	}
	if size%uint64(ps) != 0 {
		return base.CorruptionErrorf("blobheap: file size %d is not a multiple of page size %d", size, ps)
	}
	c.pageSize = ps
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mu.fileSize = size
	c.mu.metrics.FilePages = int64(size / uint64(ps))
	// Loading page 0 through the cache verifies its checksum.
	_, err := c.getLocked(nil, 0, ReadOnly)
	return err
}

// PageSize returns the page size of the file.
func (c *Cache) PageSize() uint32 {
	return c.pageSize
}

// FileSize returns the logical size of the file, including pages not yet
// written back.
func (c *Cache) FileSize() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mu.fileSize
}

// Fetch returns the page at addr, loading it from the device if it is not
// resident. Unless ReadOnly is set the page is pinned by cs.
func (c *Cache) Fetch(cs *Changeset, addr uint64, flags FetchFlags) (*Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.closed {
		return nil, base.ErrClosed
	}
	return c.getLocked(cs, addr, flags)
}

func (c *Cache) getLocked(cs *Changeset, addr uint64, flags FetchFlags) (*Page, error) {
	if addr%uint64(c.pageSize) != 0 || addr >= c.mu.fileSize {
		return nil, base.CorruptionErrorf("blobheap: page address %d out of range (file size %d)", addr, c.mu.fileSize)
	}
	p, ok := c.mu.pages.Get(addr)
	if ok {
		c.mu.metrics.Hits++
	} else {
		c.mu.metrics.Misses++
		if err := c.maybeEvictLocked(1); err != nil {
			return nil, err
		}
		var err error
		if p, err = c.loadLocked(addr, flags&NoHeader == 0); err != nil {
			return nil, err
		}
		c.mu.pages.Put(p.addr, p)
		c.mu.clock.PushBack(p)
	}
	p.referenced = true
	if flags&NoHeader == 0 && !p.header {
		// A page loaded raw may still carry a header. Pages written raw do
		// not. Promotion requires a matching checksum even when checksums are
		// not verified on load.
		if p.dirty || checksum(p.buf) != p.storedChecksum() {
			return nil, base.CorruptionErrorf("blobheap: page %d has no header", addr)
		}
		p.header = true
	}
	if flags&ReadOnly == 0 && cs != nil {
		cs.add(c, p)
	}
	return p, nil
}

func (c *Cache) loadLocked(addr uint64, header bool) (*Page, error) {
	p := &Page{addr: addr, header: header}
	if c.mapper != nil {
		if buf, ok := c.mapper.Mapped(int64(addr), int(c.pageSize)); ok {
			p.buf = buf
			p.mapped = true
		}
	}
	if !p.mapped {
		p.buf = make([]byte, c.pageSize)
		if _, err := c.dev.ReadAt(p.buf, int64(addr)); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, base.MarkCorruptionError(
					errors.Wrapf(err, "blobheap: short read of page %d", addr))
			}
			return nil, errors.Wrapf(err, "blobheap: reading page %d", addr)
		}
	}
	c.mu.metrics.PagesRead++
	if header && c.opts.VerifyChecksums {
		if got, want := checksum(p.buf), p.storedChecksum(); got != want {
			return nil, base.CorruptionErrorf("blobheap: page %d checksum mismatch (stored %x, computed %x)", addr, want, got)
		}
	}
	return p, nil
}

func (c *Cache) newPageLocked(addr uint64) *Page {
	p := &Page{addr: addr}
	if c.mapper != nil {
		if buf, ok := c.mapper.Mapped(int64(addr), int(c.pageSize)); ok {
			p.buf = buf
			p.mapped = true
			clear(buf)
		}
	}
	if !p.mapped {
		p.buf = make([]byte, c.pageSize)
	}
	c.mu.pages.Put(addr, p)
	c.mu.clock.PushBack(p)
	return p
}

// maybeEvictLocked evicts unpinned pages until reserve more pages fit
// within the cache capacity, or no further page can be evicted. Pages
// referenced since they were last considered get a second chance. Dirty
// victims are written back first.
func (c *Cache) maybeEvictLocked(reserve int) error {
	for attempts := 2 * c.mu.clock.Len(); c.mu.pages.Len()+reserve > c.opts.Capacity && attempts > 0; attempts-- {
		p := *c.mu.clock.PeekFront()
		c.mu.clock.PopFront()
		if cur, ok := c.mu.pages.Get(p.addr); !ok || cur != p {
			continue
		}
		if p.pins > 0 || p.referenced {
			p.referenced = false
			c.mu.clock.PushBack(p)
			continue
		}
		if p.dirty {
			if err := c.writeBackLocked(p); err != nil {
				c.mu.clock.PushBack(p)
				return err
			}
		}
		c.mu.pages.Delete(p.addr)
		c.mu.metrics.Evictions++
	}
	return nil
}

func (c *Cache) writeBackLocked(p *Page) error {
	if p.header {
		p.updateChecksum()
	}
	if !p.mapped {
		if _, err := c.dev.WriteAt(p.buf, int64(p.addr)); err != nil {
			return errors.Wrapf(err, "blobheap: writing page %d", p.addr)
		}
	}
	p.dirty = false
	c.mu.metrics.PagesWritten++
	return nil
}

// Allocate returns a zeroed, pinned page of the given kind. Pages are taken
// from the free pool in release order before the file is extended.
func (c *Cache) Allocate(cs *Changeset, kind Kind) (*Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.closed {
		return nil, base.ErrClosed
	}
	if err := c.maybeEvictLocked(1); err != nil {
		return nil, err
	}
	var p *Page
	if c.mu.free.Len() > 0 {
		addr := *c.mu.free.PeekFront()
		var err error
		if p, err = c.getLocked(nil, addr, NoHeader|ReadOnly); err != nil {
			return nil, err
		}
		c.mu.free.PopFront()
		c.mu.freeSet.Delete(addr)
		clear(p.buf)
		c.mu.metrics.FreePages--
	} else {
		if err := c.checkGrowthLocked(1); err != nil {
			return nil, err
		}
		p = c.newPageLocked(c.mu.fileSize)
		c.mu.fileSize += uint64(c.pageSize)
		c.mu.metrics.FilePages++
	}
	p.SetKind(kind)
	p.MarkDirty()
	cs.add(c, p)
	c.mu.metrics.Allocated++
	return p, nil
}

// AllocateRun appends n contiguous zeroed pages to the end of the file and
// returns the first, pinned. The first page carries a header of the given
// kind; the remaining pages are raw.
func (c *Cache) AllocateRun(cs *Changeset, kind Kind, n uint32) (*Page, error) {
	if n == 0 {
		return nil, errors.Mark(errors.New("blobheap: empty page run"), base.ErrInvalidParameter)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.closed {
		return nil, base.ErrClosed
	}
	if err := c.checkGrowthLocked(n); err != nil {
		return nil, err
	}
	if err := c.maybeEvictLocked(int(n)); err != nil {
		return nil, err
	}
	var first *Page
	for i := uint32(0); i < n; i++ {
		p := c.newPageLocked(c.mu.fileSize)
		c.mu.fileSize += uint64(c.pageSize)
		p.MarkDirty()
		if i == 0 {
			p.SetKind(kind)
			first = p
			cs.add(c, p)
		}
	}
	c.mu.metrics.FilePages += int64(n)
	c.mu.metrics.Allocated += int64(n)
	return first, nil
}

func (c *Cache) checkGrowthLocked(n uint32) error {
	want := c.mu.fileSize + uint64(n)*uint64(c.pageSize)
	if c.opts.MaxFileSize > 0 && want > c.opts.MaxFileSize {
		return base.ResourceExhaustedErrorf("blobheap: growing file to %d bytes exceeds limit of %d", want, c.opts.MaxFileSize)
	}
	return nil
}

// Free releases n contiguous pages starting at addr to the free pool.
func (c *Cache) Free(cs *Changeset, addr uint64, n uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.closed {
		return base.ErrClosed
	}
	if addr == 0 {
		return base.IntegrityViolationf("blobheap: attempt to free the file header page")
	}
	for i := uint32(0); i < n; i++ {
		a := addr + uint64(i)*uint64(c.pageSize)
		if _, ok := c.mu.freeSet.Get(a); ok {
			return base.IntegrityViolationf("blobheap: page %d freed twice", a)
		}
		p, err := c.getLocked(cs, a, NoHeader)
		if err != nil {
			return err
		}
		p.SetKind(KindFree)
		p.MarkDirty()
		c.pushFreeLocked(a)
	}
	c.mu.metrics.Freed += int64(n)
	return nil
}

// AddToFreePool records a page found free while scanning the file on open.
func (c *Cache) AddToFreePool(addr uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mu.freeSet.Get(addr); ok {
		return
	}
	c.pushFreeLocked(addr)
}

func (c *Cache) pushFreeLocked(addr uint64) {
	c.mu.free.PushBack(addr)
	c.mu.freeSet.Put(addr, struct{}{})
	c.mu.metrics.FreePages++
}

// IsFree returns true if the page at addr is in the free pool.
func (c *Cache) IsFree(addr uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.mu.freeSet.Get(addr)
	return ok
}

// Flush writes back all dirty pages and syncs the device.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.closed {
		return base.ErrClosed
	}
	return c.flushLocked()
}

func (c *Cache) flushLocked() error {
	var err error
	c.mu.pages.All(func(_ uint64, p *Page) bool {
		if p.dirty {
			err = c.writeBackLocked(p)
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	return c.dev.Sync()
}

// Close flushes the cache and releases its pages. The device is not closed.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.closed {
		return base.ErrClosed
	}
	err := c.flushLocked()
	c.mu.closed = true
	c.mu.pages.Close()
	c.mu.freeSet.Close()
	for c.mu.clock.Len() > 0 {
		c.mu.clock.PopFront()
	}
	for c.mu.free.Len() > 0 {
		c.mu.free.PopFront()
	}
	return err
}

// Metrics returns a snapshot of the cache metrics.
func (c *Cache) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.mu.metrics
	m.ResidentPages = int64(c.mu.pages.Len())
	c.mu.pages.All(func(_ uint64, p *Page) bool {
		if p.pins > 0 {
			m.PinnedPages++
		}
		if p.dirty {
			m.DirtyPages++
		}
		return true
	})
	return m
}
