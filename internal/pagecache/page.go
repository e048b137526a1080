// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package pagecache

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HeaderSize is the size of the persistent header at the start of every page
// that carries one.
//
//	offset  size  field
//	     0     4  kind
//	     4     4  flags (reserved)
//	     8     8  lsn
//	    16     8  checksum (xxhash64 of the page without this field)
const HeaderSize = 24

const (
	kindOffset     = 0
	flagsOffset    = 4
	lsnOffset      = 8
	checksumOffset = 16
)

// Kind identifies what a page is used for.
type Kind uint32

const (
	// KindUnknown is the kind of a zeroed page.
	KindUnknown Kind = iota
	// KindFileHeader is the kind of page 0.
	KindFileHeader
	// KindBlob is the kind of grouped blob pages and of the first page of an
	// overflow run.
	KindBlob
	// KindFree is the kind of pages in the free pool.
	KindFree
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindFileHeader:
		return "header"
	case KindBlob:
		return "blob"
	case KindFree:
		return "free"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Page is a fixed-size page of the file held in the cache.
//
// A page either carries a persistent header (see HeaderSize) or is a raw page
// whose bytes all belong to the blob stored across it. Pages are pinned by
// adding them to a Changeset; pinned pages are never evicted.
type Page struct {
	addr uint64
	buf  []byte
	// pins, referenced and the page table membership are protected by
	// Cache.mu. The contents of buf are protected by the caller's pin.
	pins       int32
	referenced bool
	dirty      bool
	header     bool
	mapped     bool
}

// Address returns the file offset of the page.
func (p *Page) Address() uint64 {
	return p.addr
}

// Data returns the complete page.
func (p *Page) Data() []byte {
	return p.buf
}

// Payload returns the page without its persistent header.
func (p *Page) Payload() []byte {
	return p.buf[HeaderSize:]
}

// HasHeader returns true if the page carries a persistent header.
func (p *Page) HasHeader() bool {
	return p.header
}

// Kind returns the kind stored in the page header.
func (p *Page) Kind() Kind {
	if !p.header {
		return KindUnknown
	}
	return Kind(binary.LittleEndian.Uint32(p.buf[kindOffset:]))
}

// SetKind stores the kind in the page header, turning a raw page into a
// header page.
func (p *Page) SetKind(k Kind) {
	p.header = true
	binary.LittleEndian.PutUint32(p.buf[kindOffset:], uint32(k))
	binary.LittleEndian.PutUint32(p.buf[flagsOffset:], 0)
}

// LSN returns the log sequence number of the last change to the page.
func (p *Page) LSN() uint64 {
	return binary.LittleEndian.Uint64(p.buf[lsnOffset:])
}

// SetLSN records the log sequence number of a change to the page.
func (p *Page) SetLSN(lsn uint64) {
	binary.LittleEndian.PutUint64(p.buf[lsnOffset:], lsn)
}

// MarkDirty flags the page for write-back.
func (p *Page) MarkDirty() {
	p.dirty = true
}

// IsDirty returns true if the page has changes that were not written back.
func (p *Page) IsDirty() bool {
	return p.dirty
}

// Mapped returns true if the page's buffer aliases memory-mapped file
// contents.
func (p *Page) Mapped() bool {
	return p.mapped
}

func (p *Page) String() string {
	return fmt.Sprintf("page@%d(%s)", p.addr, p.Kind())
}

func checksum(buf []byte) uint64 {
	d := xxhash.New()
	_, _ = d.Write(buf[:checksumOffset])
	_, _ = d.Write(buf[HeaderSize:])
	return d.Sum64()
}

func (p *Page) storedChecksum() uint64 {
	return binary.LittleEndian.Uint64(p.buf[checksumOffset:])
}

func (p *Page) updateChecksum() {
	binary.LittleEndian.PutUint64(p.buf[checksumOffset:], checksum(p.buf))
}
