// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/internal/blobpage"
	"github.com/cockroachdb/blobheap/internal/pagecache"
	"github.com/cockroachdb/errors"
)

// PageInfo describes one page, or one overflow run, of a blob file.
type PageInfo struct {
	Address uint64
	Kind    pagecache.Kind
	LSN     uint64
	// NumPages is the length of an overflow run, or 0 for other pages.
	NumPages uint32
	// FreeBytes and FreelistEntries describe a grouped page's freelist.
	FreeBytes       uint32
	FreelistEntries int
	// BlobSize is the payload size of the blob held by an overflow run.
	BlobSize uint64
}

// Inspector is implemented by blob stores whose file layout can be examined.
type Inspector interface {
	// Inspect lists the pages of the file, with overflow runs listed once.
	Inspect() ([]PageInfo, error)
	// Check verifies the page headers of the whole file.
	Check() error
}

var _ Inspector = (*diskStore)(nil)
var _ Inspector = (*memStore)(nil)

// walkPages calls fn for every page of the file other than the header page.
// Overflow runs are visited once, through their first page.
func (s *diskStore) walkPages(fn func(p *pagecache.Page, hdr *blobpage.PageHeader) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ps := uint64(s.pageSize)
	end := s.cache.FileSize()
	for addr := ps; addr < end; addr += ps {
		p, err := s.cache.Fetch(nil, addr, pagecache.ReadOnly)
		if err != nil {
			return err
		}
		var hdr blobpage.PageHeader
		if p.Kind() == pagecache.KindBlob {
			if hdr, err = blobpage.DecodePageHeader(p.Payload()); err != nil {
				return err
			}
		}
		if err := fn(p, &hdr); err != nil {
			return err
		}
		if p.Kind() == pagecache.KindBlob && hdr.NumPages > 0 {
			addr += uint64(hdr.NumPages-1) * ps
		}
	}
	return nil
}

// Inspect implements Inspector.
func (s *diskStore) Inspect() ([]PageInfo, error) {
	var infos []PageInfo
	err := s.walkPages(func(p *pagecache.Page, hdr *blobpage.PageHeader) error {
		info := PageInfo{
			Address:         p.Address(),
			Kind:            p.Kind(),
			LSN:             p.LSN(),
			NumPages:        hdr.NumPages,
			FreeBytes:       hdr.FreeBytes,
			FreelistEntries: hdr.ActiveEntries(),
		}
		if hdr.NumPages > 0 {
			bh := blobpage.DecodeBlobHeader(p.Data()[blobpage.PageOverhead:])
			info.BlobSize = bh.Size
		}
		infos = append(infos, info)
		return nil
	})
	return infos, err
}

// Check implements Inspector. Every grouped page must pass its freelist
// integrity check, every overflow run must hold a valid blob within the
// file, and every free page must be in the free pool. All problems found are
// returned together.
func (s *diskStore) Check() error {
	var errs error
	fileSize := s.cache.FileSize()
	err := s.walkPages(func(p *pagecache.Page, hdr *blobpage.PageHeader) error {
		addr := p.Address()
		switch p.Kind() {
		case pagecache.KindFree:
			if !s.cache.IsFree(addr) {
				errs = errors.CombineErrors(errs,
					base.IntegrityViolationf("blobheap: free page %d is not in the free pool", addr))
			}
		case pagecache.KindBlob:
			if hdr.IsGrouped() {
				if err := hdr.CheckIntegrity(s.pageSize); err != nil {
					errs = errors.CombineErrors(errs, errors.Wrapf(err, "blobheap: page %d", addr))
				}
				errs = errors.CombineErrors(errs, s.checkRegions(p, hdr))
				return nil
			}
			id := BlobID(addr + blobpage.PageOverhead)
			bh := blobpage.DecodeBlobHeader(p.Data()[blobpage.PageOverhead:])
			if err := bh.Validate(id, s.pageSize, fileSize); err != nil {
				errs = errors.CombineErrors(errs, err)
			} else if !bh.IsOverflow() {
				errs = errors.CombineErrors(errs,
					base.CorruptionErrorf("blobheap: %s on overflow page lacks the overflow flag", id))
			}
		default:
			errs = errors.CombineErrors(errs,
				base.CorruptionErrorf("blobheap: page %d has unexpected kind %s", addr, p.Kind()))
		}
		return nil
	})
	return errors.CombineErrors(err, errs)
}

// Inspect implements Inspector. An in-memory store has no pages.
func (s *memStore) Inspect() ([]PageInfo, error) {
	return nil, nil
}

// Check implements Inspector.
func (s *memStore) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.closed {
		return ErrClosed
	}
	return nil
}

// checkRegions verifies that the regions of a grouped page tile its blob
// area, that the free regions add up to the page's free_bytes, and that every
// freelist entry starts at a free region.
func (s *diskStore) checkRegions(p *pagecache.Page, hdr *blobpage.PageHeader) error {
	addr := p.Address()
	var free uint64
	starts := make(map[uint32]struct{})
	err := blobpage.WalkRegions(p.Data(), addr, func(off uint32, bh blobpage.BlobHeader) error {
		if bh.ID == 0 {
			free += bh.AllocatedSize
			starts[off] = struct{}{}
			return nil
		}
		id := BlobID(bh.ID)
		if err := bh.Validate(id, s.pageSize, s.cache.FileSize()); err != nil {
			return err
		}
		if bh.IsOverflow() {
			return base.CorruptionErrorf("blobheap: %s on grouped page %d has the overflow flag", id, addr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	var errs error
	if free != uint64(hdr.FreeBytes) {
		errs = base.IntegrityViolationf("blobheap: page %d: free regions hold %d bytes, free_bytes is %d",
			addr, free, hdr.FreeBytes)
	}
	for _, e := range hdr.Freelist {
		if e.IsZero() {
			continue
		}
		if _, ok := starts[e.Offset]; !ok {
			errs = errors.CombineErrors(errs, base.IntegrityViolationf(
				"blobheap: page %d: freelist entry %s does not start a free region", addr, e))
		}
	}
	return errs
}
