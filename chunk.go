// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"github.com/cockroachdb/blobheap/internal/pagecache"
)

// zeroes backs the fragments returned by zeroFragment.
var zeroes [4096]byte

// zeroFragment returns fragments of n zero bytes.
func zeroFragment(n uint64) [][]byte {
	var frags [][]byte
	for n > 0 {
		k := min(n, uint64(len(zeroes)))
		frags = append(frags, zeroes[:k])
		n -= k
	}
	return frags
}

// fragmentsLen returns the total length of frags.
func fragmentsLen(frags [][]byte) uint64 {
	var n uint64
	for _, f := range frags {
		n += uint64(len(f))
	}
	return n
}

// pageFor returns the page containing addr, reusing page if it is the one.
// Pages other than the first page of a blob may be headerless continuation
// pages, so they are fetched without header validation.
func (s *diskStore) pageFor(
	ctx *Context, page *pagecache.Page, addr uint64, readOnly bool,
) (*pagecache.Page, error) {
	pageAddr := addr - addr%uint64(s.pageSize)
	if page != nil && page.Address() == pageAddr {
		return page, nil
	}
	flags := pagecache.NoHeader
	if readOnly {
		flags |= pagecache.ReadOnly
	}
	return s.cache.Fetch(&ctx.changes, pageAddr, flags)
}

// writeChunks writes frags as one contiguous stream starting at addr, which
// lies in page or in one of the pages following it. Every touched page is
// pinned and marked dirty.
func (s *diskStore) writeChunks(
	ctx *Context, page *pagecache.Page, addr uint64, frags [][]byte,
) error {
	ps := uint64(s.pageSize)
	for _, frag := range frags {
		for len(frag) > 0 {
			var err error
			if page, err = s.pageFor(ctx, page, addr, false); err != nil {
				return err
			}
			n := copy(page.Data()[addr%ps:], frag)
			page.MarkDirty()
			if page.HasHeader() {
				page.SetLSN(ctx.TxnID)
			}
			frag = frag[n:]
			addr += uint64(n)
		}
	}
	return nil
}

// copyChunk copies len(dst) bytes starting at addr into dst and returns the
// last page touched. With readOnly set, pages are not pinned.
func (s *diskStore) copyChunk(
	ctx *Context, page *pagecache.Page, addr uint64, dst []byte, readOnly bool,
) (*pagecache.Page, error) {
	ps := uint64(s.pageSize)
	for len(dst) > 0 {
		var err error
		if page, err = s.pageFor(ctx, page, addr, readOnly); err != nil {
			return nil, err
		}
		n := copy(dst, page.Data()[addr%ps:])
		dst = dst[n:]
		addr += uint64(n)
	}
	return page, nil
}

// readChunk returns n bytes starting at addr. If mapped is set and the range
// lies within a single page whose buffer aliases mapped memory, the returned
// slice aliases the page, which is pinned and returned. Otherwise the bytes
// are copied into a fresh buffer and the returned page is nil.
func (s *diskStore) readChunk(
	ctx *Context, page *pagecache.Page, addr, n uint64, readOnly, mapped bool,
) ([]byte, *pagecache.Page, error) {
	ps := uint64(s.pageSize)
	if mapped && addr%ps+n <= ps {
		// Fetch rather than reuse page: the alias requires a pin even if the
		// caller fetched the page read-only.
		p, err := s.cache.Fetch(&ctx.changes, addr-addr%ps, pagecache.NoHeader)
		if err != nil {
			return nil, nil, err
		}
		if p.Mapped() {
			off := addr % ps
			return p.Data()[off : off+n : off+n], p, nil
		}
		page = p
	}
	buf := make([]byte, n)
	if _, err := s.copyChunk(ctx, page, addr, buf, readOnly); err != nil {
		return nil, nil, err
	}
	return buf, nil, nil
}
