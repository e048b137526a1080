// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"encoding/binary"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/internal/blobpage"
	"github.com/cockroachdb/blobheap/internal/device"
	"github.com/cockroachdb/blobheap/internal/invariants"
	"github.com/cockroachdb/blobheap/internal/pagecache"
	"github.com/cockroachdb/blobheap/metrics"
	"github.com/cockroachdb/crlib/crtime"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

// diskStore is the BlobStore backed by a paged device.
type diskStore struct {
	opts     *Options
	dev      device.Device
	cache    *pagecache.Cache
	pageSize uint32
	mapped   bool
	events   *EventListener

	// lastPage is the grouped page most recently allocated from. candidates
	// holds up to Options.ReuseCandidates other grouped pages that recently
	// gained free space, most recent last. Both are only accessed by mutating
	// operations, which the caller serializes.
	lastPage   uint64
	candidates []uint64
	// continuations maps every continuation page of an overflow run to the
	// first page of the run. Continuation pages are raw and must never be
	// fetched as header pages.
	continuations swiss.Map[uint64, uint64]

	mu struct {
		sync.Mutex
		metrics Metrics
	}
	closed atomic.Bool
}

var _ BlobStore = (*diskStore)(nil)

func openDiskStore(dev device.Device, opts *Options) (*diskStore, error) {
	if opts.WriteBytesPerSec > 0 {
		dev = device.WithWriteRate(dev, opts.WriteBytesPerSec)
	}
	if opts.WriteLatency != nil {
		dev = device.WithWriteLatency(dev, opts.WriteLatency)
	}
	size, err := dev.Size()
	if err != nil {
		return nil, err
	}
	cache, err := pagecache.Open(dev, pagecache.Options{
		PageSize:        opts.PageSize,
		Capacity:        opts.CachePages,
		MaxFileSize:     opts.MaxFileSize,
		VerifyChecksums: opts.VerifyChecksums,
	})
	if err != nil {
		return nil, err
	}
	s := &diskStore{
		opts:     opts,
		dev:      dev,
		cache:    cache,
		pageSize: cache.PageSize(),
		events:   opts.EventListener,
	}
	_, s.mapped = device.AsMapper(dev)
	s.continuations.Init(16)
	if size > 0 {
		if err := s.recover(); err != nil {
			return nil, errors.CombineErrors(err, cache.Close())
		}
	}
	return s, nil
}

// recover scans an existing file, rebuilding the free pool, the reuse
// candidates and the blob counts.
func (s *diskStore) recover() error {
	start := crtime.NowMono()
	var info RecoveryInfo
	ps := uint64(s.pageSize)
	end := s.cache.FileSize()
	for addr := ps; addr < end; addr += ps {
		p, err := s.cache.Fetch(nil, addr, pagecache.ReadOnly)
		if err != nil {
			return err
		}
		info.Pages++
		switch p.Kind() {
		case pagecache.KindFree:
			s.cache.AddToFreePool(addr)
			info.FreePages++
		case pagecache.KindBlob:
			hdr, err := blobpage.DecodePageHeader(p.Payload())
			if err != nil {
				return err
			}
			if !hdr.IsGrouped() {
				if addr+uint64(hdr.NumPages)*ps > end {
					return base.CorruptionErrorf("blobheap: overflow run of %d pages at %d extends past end of file",
						hdr.NumPages, addr)
				}
				bh := blobpage.DecodeBlobHeader(p.Data()[blobpage.PageOverhead:])
				id := BlobID(addr + blobpage.PageOverhead)
				if err := bh.Validate(id, s.pageSize, end); err != nil {
					return err
				}
				s.mu.metrics.Blobs.Inc(bh.Size, metrics.Overflow)
				s.addRun(addr, hdr.NumPages)
				info.Blobs++
				info.OverflowRuns++
				info.Pages += uint64(hdr.NumPages) - 1
				addr += uint64(hdr.NumPages-1) * ps
				continue
			}
			info.GroupedPages++
			if err := s.checkIntegrity(addr, &hdr); err != nil {
				return err
			}
			err = blobpage.WalkRegions(p.Data(), addr, func(_ uint32, bh blobpage.BlobHeader) error {
				if bh.ID != 0 {
					s.mu.metrics.Blobs.Inc(bh.Size, metrics.Grouped)
					info.Blobs++
				}
				return nil
			})
			if err != nil {
				return err
			}
			if hdr.FreeBytes > 0 {
				s.addCandidate(addr)
				info.ReusablePages++
			}
		default:
			return base.CorruptionErrorf("blobheap: page %d has unexpected kind %s", addr, p.Kind())
		}
	}
	info.Duration = start.Elapsed()
	s.events.Recovered(info)
	return nil
}

func (s *diskStore) begin(ctx *Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if ctx == nil {
		return errors.Mark(errors.New("blobheap: nil context"), base.ErrInvalidParameter)
	}
	return ctx.Err()
}

// required returns the number of bytes a blob of the given payload size
// occupies.
func (s *diskStore) required(size uint64) uint64 {
	a := uint64(s.opts.BlobAlignment)
	return (blobpage.BlobHeaderSize + size + a - 1) &^ (a - 1)
}

// Allocate implements BlobStore.
func (s *diskStore) Allocate(ctx *Context, rec Record, flags Flags) (BlobID, error) {
	if err := s.begin(ctx); err != nil {
		return InvalidBlobID, err
	}
	start := crtime.NowMono()
	defer s.observe(opAllocate, start)

	size, err := rec.payloadSize(flags)
	if err != nil {
		return InvalidBlobID, err
	}
	frags := [][]byte{rec.Data}
	if flags&Partial != 0 {
		frags = zeroFragment(rec.PartialOffset)
		frags = append(frags, rec.Data[:rec.PartialSize])
		frags = append(frags, zeroFragment(size-rec.PartialOffset-rec.PartialSize)...)
	}
	return s.allocate(ctx, size, frags)
}

func (s *diskStore) allocate(ctx *Context, size uint64, frags [][]byte) (BlobID, error) {
	if invariants.Enabled && fragmentsLen(frags) != size {
		panic(errors.AssertionFailedf("fragments hold %d bytes, blob size is %d", fragmentsLen(frags), size))
	}
	required := s.required(size)
	if blobpage.FitsGrouped(required, s.pageSize) {
		return s.allocateGrouped(ctx, size, required, frags)
	}
	return s.allocateOverflow(ctx, size, required, frags)
}

func (s *diskStore) allocateGrouped(
	ctx *Context, size, required uint64, frags [][]byte,
) (BlobID, error) {
	for _, addr := range s.reuseOrder() {
		page, err := s.cache.Fetch(&ctx.changes, addr, 0)
		if err != nil {
			return InvalidBlobID, err
		}
		if page.Kind() != pagecache.KindBlob {
			s.forgetPage(addr)
			continue
		}
		hdr, err := blobpage.DecodePageHeader(page.Payload())
		if err != nil {
			return InvalidBlobID, err
		}
		if !hdr.IsGrouped() {
			s.forgetPage(addr)
			continue
		}
		if uint64(hdr.FreeBytes) < required {
			continue
		}
		off, consumed, ok := hdr.AllocFromFreelist(uint32(required), blobpage.MinFragment(s.opts.MinFragmentSize))
		if !ok {
			s.count(func(m *Metrics) { m.Freelist.Misses++ })
			continue
		}
		id := BlobID(addr + uint64(off))
		bh := blobpage.BlobHeader{ID: uint64(id), AllocatedSize: uint64(consumed), Size: size}
		if err := s.writeBlob(ctx, page, &bh, frags); err != nil {
			return InvalidBlobID, err
		}
		if rest, ok := hdr.EntryAt(off + consumed); ok {
			if err := s.writeFreeRegion(ctx, page, rest.Offset, rest.Size); err != nil {
				return InvalidBlobID, err
			}
		}
		if err := s.commitPageHeader(ctx, page, &hdr); err != nil {
			return InvalidBlobID, err
		}
		s.lastPage = addr
		s.count(func(m *Metrics) {
			m.Freelist.Hits++
			m.Blobs.Inc(size, metrics.Grouped)
		})
		return id, nil
	}

	page, err := s.cache.Allocate(&ctx.changes, pagecache.KindBlob)
	if err != nil {
		return InvalidBlobID, err
	}
	addr := page.Address()
	// A remainder too small to track becomes padding of the first blob.
	capacity := blobpage.Capacity(s.pageSize)
	used := uint32(required)
	if capacity-used < blobpage.MinFragment(s.opts.MinFragmentSize) {
		used = capacity
	}
	var hdr blobpage.PageHeader
	hdr.InitGrouped(s.pageSize, used)
	id := BlobID(addr + blobpage.PageOverhead)
	bh := blobpage.BlobHeader{ID: uint64(id), AllocatedSize: uint64(used), Size: size}
	err = s.writeBlob(ctx, page, &bh, frags)
	if err == nil && used < capacity {
		err = s.writeFreeRegion(ctx, page, blobpage.PageOverhead+used, capacity-used)
	}
	if err != nil {
		return InvalidBlobID, s.abandonPages(ctx, addr, 1, err)
	}
	if err := s.commitPageHeader(ctx, page, &hdr); err != nil {
		return InvalidBlobID, s.abandonPages(ctx, addr, 1, err)
	}
	s.lastPage = addr
	s.count(func(m *Metrics) {
		m.Pages.Grouped++
		m.Blobs.Inc(size, metrics.Grouped)
	})
	return id, nil
}

func (s *diskStore) allocateOverflow(
	ctx *Context, size, required uint64, frags [][]byte,
) (BlobID, error) {
	n := blobpage.OverflowPages(required, s.pageSize)
	first, err := s.cache.AllocateRun(&ctx.changes, pagecache.KindBlob, n)
	if err != nil {
		return InvalidBlobID, err
	}
	addr := first.Address()
	var hdr blobpage.PageHeader
	hdr.InitOverflow(n)
	hdr.Encode(first.Payload())
	first.MarkDirty()
	first.SetLSN(ctx.TxnID)

	id := BlobID(addr + blobpage.PageOverhead)
	bh := blobpage.BlobHeader{
		ID:            uint64(id),
		AllocatedSize: uint64(n)*uint64(s.pageSize) - blobpage.PageOverhead,
		Size:          size,
		Flags:         blobpage.BlobFlagOverflow,
	}
	if err := s.writeBlob(ctx, first, &bh, frags); err != nil {
		return InvalidBlobID, s.abandonPages(ctx, addr, n, err)
	}
	s.addRun(addr, n)
	s.events.OverflowAllocated(OverflowInfo{ID: id, Pages: n, Size: size})
	s.count(func(m *Metrics) {
		m.Pages.Overflow += int64(n)
		m.Blobs.Inc(size, metrics.Overflow)
	})
	return id, nil
}

// abandonPages returns n pages starting at addr, allocated by an operation
// that failed with err, to the free pool.
func (s *diskStore) abandonPages(ctx *Context, addr uint64, n uint32, err error) error {
	return errors.CombineErrors(err, s.cache.Free(&ctx.changes, addr, n))
}

// writeBlob writes the blob header followed by the payload fragments.
func (s *diskStore) writeBlob(
	ctx *Context, page *pagecache.Page, bh *blobpage.BlobHeader, frags [][]byte,
) error {
	var buf [blobpage.BlobHeaderSize]byte
	bh.Encode(buf[:])
	chunks := make([][]byte, 0, len(frags)+1)
	chunks = append(chunks, buf[:])
	chunks = append(chunks, frags...)
	return s.writeChunks(ctx, page, bh.ID, chunks)
}

// writeFreeRegion writes the header of a free region of a grouped page.
func (s *diskStore) writeFreeRegion(ctx *Context, page *pagecache.Page, off, size uint32) error {
	var buf [blobpage.BlobHeaderSize]byte
	blobpage.EncodeFreeRegion(buf[:], size)
	return s.writeChunks(ctx, page, page.Address()+uint64(off), [][]byte{buf[:]})
}

// commitPageHeader verifies hdr and stores it in the page.
func (s *diskStore) commitPageHeader(
	ctx *Context, page *pagecache.Page, hdr *blobpage.PageHeader,
) error {
	if err := s.checkIntegrity(page.Address(), hdr); err != nil {
		return err
	}
	hdr.Encode(page.Payload())
	page.MarkDirty()
	page.SetLSN(ctx.TxnID)
	return nil
}

// checkIntegrity verifies a grouped page's freelist. A violation panics in
// invariant builds and is returned otherwise.
func (s *diskStore) checkIntegrity(addr uint64, hdr *blobpage.PageHeader) error {
	err := hdr.CheckIntegrity(s.pageSize)
	if err == nil {
		return nil
	}
	err = errors.Wrapf(err, "blobheap: page %d", addr)
	s.events.IntegrityViolation(IntegrityViolationInfo{Page: addr, Err: err})
	return invariants.MaybeFail(err)
}

// fetchBlob fetches the page holding the header of blob id and returns the
// validated header. Unless readOnly is set the page is pinned.
func (s *diskStore) fetchBlob(
	ctx *Context, id BlobID, readOnly bool,
) (*pagecache.Page, blobpage.BlobHeader, error) {
	if !id.IsValid() {
		return nil, blobpage.BlobHeader{}, errors.Mark(errors.New("blobheap: invalid blob ID"), base.ErrInvalidParameter)
	}
	ps := uint64(s.pageSize)
	fileSize := s.cache.FileSize()
	pageAddr := id.PageAddress(s.pageSize)
	inPage := uint64(id) - pageAddr
	if pageAddr == 0 || uint64(id) >= fileSize ||
		inPage < blobpage.PageOverhead || inPage+blobpage.BlobHeaderSize > ps {
		return nil, blobpage.BlobHeader{}, base.CorruptionErrorf("blobheap: %s is not a valid blob address", id)
	}
	if first, ok := s.continuations.Get(pageAddr); ok {
		return nil, blobpage.BlobHeader{}, errors.Mark(
			errors.Newf("blobheap: %s: page %d belongs to the overflow run at %d", id, pageAddr, first),
			base.ErrBlobNotFound)
	}
	var flags pagecache.FetchFlags
	if readOnly {
		flags = pagecache.ReadOnly
	}
	page, err := s.cache.Fetch(&ctx.changes, pageAddr, flags)
	if err != nil {
		return nil, blobpage.BlobHeader{}, err
	}
	if k := page.Kind(); k != pagecache.KindBlob {
		return nil, blobpage.BlobHeader{}, errors.Mark(
			errors.Newf("blobheap: %s: page %d is a %s page", id, pageAddr, k), base.ErrBlobNotFound)
	}
	bh := blobpage.DecodeBlobHeader(page.Data()[inPage:])
	if err := bh.Validate(id, s.pageSize, fileSize); err != nil {
		return nil, blobpage.BlobHeader{}, err
	}
	return page, bh, nil
}

// Read implements BlobStore.
func (s *diskStore) Read(
	ctx *Context, id BlobID, rec Record, flags Flags, arena *Arena,
) (Record, *Page, error) {
	if err := s.begin(ctx); err != nil {
		return Record{}, nil, err
	}
	start := crtime.NowMono()
	defer s.observe(opRead, start)

	page, bh, err := s.fetchBlob(ctx, id, true)
	if err != nil {
		return Record{}, nil, err
	}
	off, n, err := readRange(rec, flags, bh.Size)
	if err != nil {
		return Record{}, nil, err
	}
	out := Record{Size: bh.Size, Flags: rec.Flags}
	if flags&Partial != 0 {
		out.PartialOffset, out.PartialSize = off, n
	}
	addr := uint64(id) + blobpage.BlobHeaderSize + off
	if n > 0 && flags&DirectAccess != 0 && rec.Flags&UserAlloc == 0 && s.mapped {
		data, p, err := s.readChunk(ctx, page, addr, n, true, true)
		if err != nil {
			return Record{}, nil, err
		}
		if p != nil {
			s.count(func(m *Metrics) { m.ZeroCopyReads++ })
		}
		out.Data = data
		return out, p, nil
	}
	dst, err := destination(rec, n, arena)
	if err != nil {
		return Record{}, nil, err
	}
	if _, err := s.copyChunk(ctx, page, addr, dst, true); err != nil {
		return Record{}, nil, err
	}
	out.Data = dst
	return out, nil, nil
}

// GetBlobSize implements BlobStore.
func (s *diskStore) GetBlobSize(ctx *Context, id BlobID) (uint64, error) {
	if err := s.begin(ctx); err != nil {
		return 0, err
	}
	_, bh, err := s.fetchBlob(ctx, id, true)
	if err != nil {
		return 0, err
	}
	return bh.Size, nil
}

// Overwrite implements BlobStore.
func (s *diskStore) Overwrite(ctx *Context, old BlobID, rec Record, flags Flags) (BlobID, error) {
	if err := s.begin(ctx); err != nil {
		return InvalidBlobID, err
	}
	start := crtime.NowMono()
	defer s.observe(opOverwrite, start)

	page, bh, err := s.fetchBlob(ctx, old, false)
	if err != nil {
		return InvalidBlobID, err
	}
	size, err := rec.payloadSize(flags)
	if err != nil {
		return InvalidBlobID, err
	}
	layout := metrics.Grouped
	if bh.IsOverflow() {
		layout = metrics.Overflow
	}

	if flags&ForceReallocate == 0 && s.required(size) <= bh.AllocatedSize {
		if err := s.overwriteInPlace(ctx, page, bh, rec, flags, size); err != nil {
			return InvalidBlobID, err
		}
		s.count(func(m *Metrics) {
			m.Overwrite.InPlace++
			m.Blobs.Resize(bh.Size, size, layout)
		})
		return old, nil
	}

	frags := [][]byte{rec.Data}
	if flags&Partial != 0 {
		// Merge the retained prefix of the old payload with the new range.
		buf := make([]byte, size)
		if keep := min(bh.Size, size); keep > 0 {
			if _, err := s.copyChunk(ctx, page, uint64(old)+blobpage.BlobHeaderSize, buf[:keep], true); err != nil {
				return InvalidBlobID, err
			}
		}
		copy(buf[rec.PartialOffset:], rec.Data[:rec.PartialSize])
		frags = [][]byte{buf}
	}
	id, err := s.allocate(ctx, size, frags)
	if err != nil {
		return InvalidBlobID, err
	}
	if err := s.erase(ctx, old); err != nil {
		return InvalidBlobID, errors.CombineErrors(err, s.erase(ctx, id))
	}
	s.count(func(m *Metrics) { m.Overwrite.Reallocated++ })
	return id, nil
}

// overwriteInPlace replaces the payload of a blob whose allocation can hold
// size bytes. The payload is written before the header so that a failed
// write leaves the recorded size unchanged.
func (s *diskStore) overwriteInPlace(
	ctx *Context, page *pagecache.Page, bh blobpage.BlobHeader, rec Record, flags Flags, size uint64,
) error {
	payload := bh.ID + blobpage.BlobHeaderSize
	if flags&Partial == 0 {
		if err := s.writeChunks(ctx, page, payload, [][]byte{rec.Data}); err != nil {
			return err
		}
	} else {
		off, end := rec.PartialOffset, rec.PartialOffset+rec.PartialSize
		if bh.Size < off {
			if err := s.writeChunks(ctx, page, payload+bh.Size, zeroFragment(off-bh.Size)); err != nil {
				return err
			}
		}
		if err := s.writeChunks(ctx, page, payload+off, [][]byte{rec.Data[:rec.PartialSize]}); err != nil {
			return err
		}
		if tail := max(bh.Size, end); tail < size {
			if err := s.writeChunks(ctx, page, payload+tail, zeroFragment(size-tail)); err != nil {
				return err
			}
		}
	}
	bh.Size = size
	var buf [blobpage.BlobHeaderSize]byte
	bh.Encode(buf[:])
	return s.writeChunks(ctx, page, bh.ID, [][]byte{buf[:]})
}

// Erase implements BlobStore.
func (s *diskStore) Erase(ctx *Context, id BlobID, flags Flags) error {
	if err := s.begin(ctx); err != nil {
		return err
	}
	start := crtime.NowMono()
	defer s.observe(opErase, start)
	return s.erase(ctx, id)
}

func (s *diskStore) erase(ctx *Context, id BlobID) error {
	page, bh, err := s.fetchBlob(ctx, id, false)
	if err != nil {
		return err
	}
	hdr, err := blobpage.DecodePageHeader(page.Payload())
	if err != nil {
		return err
	}
	addr := page.Address()
	inPage := uint32(uint64(id) - addr)

	if bh.IsOverflow() {
		if hdr.NumPages == 0 || uint64(hdr.NumPages)*uint64(s.pageSize)-blobpage.PageOverhead != bh.AllocatedSize {
			return base.CorruptionErrorf("blobheap: %s: overflow allocation of %d bytes does not match run of %d pages",
				id, bh.AllocatedSize, hdr.NumPages)
		}
		s.tombstone(ctx, page, inPage)
		if err := s.cache.Free(&ctx.changes, addr, hdr.NumPages); err != nil {
			return err
		}
		s.removeRun(addr, hdr.NumPages)
		s.events.PageReclaimed(PageReclaimInfo{Address: addr, Pages: hdr.NumPages, Overflow: true})
		s.count(func(m *Metrics) {
			m.Pages.Reclaimed += int64(hdr.NumPages)
			m.Blobs.Dec(bh.Size, metrics.Overflow)
		})
		return nil
	}

	if !hdr.IsGrouped() {
		return base.CorruptionErrorf("blobheap: %s: grouped blob on overflow page %d", id, addr)
	}
	res := hdr.AddToFreelist(inPage, uint32(bh.AllocatedSize))
	if err := s.checkIntegrity(addr, &hdr); err != nil {
		return err
	}
	if res.Merged {
		s.count(func(m *Metrics) { m.Freelist.Merges++ })
	}
	if !res.Evicted.IsZero() {
		s.events.FreelistEviction(FreelistEvictionInfo{Page: addr, Evicted: res.Evicted})
		s.count(func(m *Metrics) {
			m.Freelist.Evictions++
			m.Freelist.EvictedBytes += uint64(res.Evicted.Size)
		})
	}
	s.tombstone(ctx, page, inPage)
	if hdr.IsEmpty(s.pageSize) {
		if err := s.cache.Free(&ctx.changes, addr, 1); err != nil {
			return err
		}
		s.forgetPage(addr)
		s.events.PageReclaimed(PageReclaimInfo{Address: addr, Pages: 1})
		s.count(func(m *Metrics) { m.Pages.Reclaimed++ })
	} else {
		hdr.Encode(page.Payload())
		s.addCandidate(addr)
	}
	s.count(func(m *Metrics) { m.Blobs.Dec(bh.Size, metrics.Grouped) })
	return nil
}

// tombstone clears the ID field of the blob header at the given page
// offset, so that later lookups of the ID fail.
func (s *diskStore) tombstone(ctx *Context, page *pagecache.Page, inPage uint32) {
	binary.LittleEndian.PutUint64(page.Data()[inPage:], 0)
	page.MarkDirty()
	page.SetLSN(ctx.TxnID)
}

// reuseOrder returns the grouped pages Allocate tries before allocating a
// new page: the most recently used page, then the candidates, most recent
// first.
func (s *diskStore) reuseOrder() []uint64 {
	order := make([]uint64, 0, len(s.candidates)+1)
	if s.lastPage != 0 {
		order = append(order, s.lastPage)
	}
	for i := len(s.candidates) - 1; i >= 0; i-- {
		if s.candidates[i] != s.lastPage {
			order = append(order, s.candidates[i])
		}
	}
	return order
}

func (s *diskStore) addCandidate(addr uint64) {
	s.candidates = slices.DeleteFunc(s.candidates, func(a uint64) bool { return a == addr })
	s.candidates = append(s.candidates, addr)
	if n := len(s.candidates) - s.opts.ReuseCandidates; n > 0 {
		s.candidates = slices.Delete(s.candidates, 0, n)
	}
}

func (s *diskStore) addRun(first uint64, n uint32) {
	for i := uint32(1); i < n; i++ {
		s.continuations.Put(first+uint64(i)*uint64(s.pageSize), first)
	}
}

func (s *diskStore) removeRun(first uint64, n uint32) {
	for i := uint32(1); i < n; i++ {
		s.continuations.Delete(first + uint64(i)*uint64(s.pageSize))
	}
}

func (s *diskStore) forgetPage(addr uint64) {
	s.candidates = slices.DeleteFunc(s.candidates, func(a uint64) bool { return a == addr })
	if s.lastPage == addr {
		s.lastPage = 0
	}
}

func (s *diskStore) count(fn func(m *Metrics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.mu.metrics)
}

func (s *diskStore) observe(op opKind, start crtime.Mono) {
	d := start.Elapsed()
	s.count(func(m *Metrics) { m.latencyPtr(op).record(d) })
}

// Metrics implements BlobStore.
func (s *diskStore) Metrics() Metrics {
	s.mu.Lock()
	m := s.mu.metrics
	s.mu.Unlock()
	if !s.closed.Load() {
		m.Cache = s.cache.Metrics()
	}
	return m
}

// Flush implements BlobStore.
func (s *diskStore) Flush() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.cache.Flush()
}

// Close implements BlobStore.
func (s *diskStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return errors.CombineErrors(s.cache.Close(), s.dev.Close())
}
