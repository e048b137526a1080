// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"sync"

	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/metrics"
	"github.com/cockroachdb/crlib/crtime"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

// memStore is the BlobStore keeping blobs in memory. IDs are synthetic and
// increase monotonically. Options.MaxFileSize, if set, bounds the total
// payload bytes held.
type memStore struct {
	opts *Options

	mu struct {
		sync.Mutex
		blobs   swiss.Map[BlobID, []byte]
		nextID  BlobID
		bytes   uint64
		metrics Metrics
		closed  bool
	}
}

var _ BlobStore = (*memStore)(nil)

func newMemStore(opts *Options) *memStore {
	s := &memStore{opts: opts}
	s.mu.blobs.Init(16)
	s.mu.nextID = 1
	return s
}

func (s *memStore) beginLocked(ctx *Context) error {
	if s.mu.closed {
		return ErrClosed
	}
	if ctx == nil {
		return errors.Mark(errors.New("blobheap: nil context"), base.ErrInvalidParameter)
	}
	return ctx.Err()
}

func (s *memStore) getLocked(id BlobID) ([]byte, error) {
	if !id.IsValid() {
		return nil, errors.Mark(errors.New("blobheap: invalid blob ID"), base.ErrInvalidParameter)
	}
	buf, ok := s.mu.blobs.Get(id)
	if !ok {
		return nil, errors.Mark(errors.Newf("blobheap: %s not found", id), base.ErrBlobNotFound)
	}
	return buf, nil
}

func (s *memStore) reserveLocked(n uint64) error {
	if limit := s.opts.MaxFileSize; limit > 0 && s.mu.bytes+n > limit {
		return base.ResourceExhaustedErrorf("blobheap: storing %d more bytes exceeds limit of %d", n, limit)
	}
	s.mu.bytes += n
	return nil
}

// materialize returns the full payload described by rec, with the bytes
// outside a partial range taken from prev.
func materialize(rec Record, flags Flags, size uint64, prev []byte) []byte {
	buf := make([]byte, size)
	if flags&Partial == 0 {
		copy(buf, rec.Data)
		return buf
	}
	copy(buf, prev)
	copy(buf[rec.PartialOffset:], rec.Data[:rec.PartialSize])
	return buf
}

// Allocate implements BlobStore.
func (s *memStore) Allocate(ctx *Context, rec Record, flags Flags) (BlobID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginLocked(ctx); err != nil {
		return InvalidBlobID, err
	}
	defer s.observeLocked(opAllocate, crtime.NowMono())
	size, err := rec.payloadSize(flags)
	if err != nil {
		return InvalidBlobID, err
	}
	if err := s.reserveLocked(size); err != nil {
		return InvalidBlobID, err
	}
	id := s.mu.nextID
	s.mu.nextID++
	s.mu.blobs.Put(id, materialize(rec, flags, size, nil))
	s.mu.metrics.Blobs.Inc(size, metrics.Grouped)
	return id, nil
}

// Read implements BlobStore. With DirectAccess the returned data aliases the
// stored payload.
func (s *memStore) Read(
	ctx *Context, id BlobID, rec Record, flags Flags, arena *Arena,
) (Record, *Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginLocked(ctx); err != nil {
		return Record{}, nil, err
	}
	defer s.observeLocked(opRead, crtime.NowMono())
	buf, err := s.getLocked(id)
	if err != nil {
		return Record{}, nil, err
	}
	size := uint64(len(buf))
	off, n, err := readRange(rec, flags, size)
	if err != nil {
		return Record{}, nil, err
	}
	out := Record{Size: size, Flags: rec.Flags}
	if flags&Partial != 0 {
		out.PartialOffset, out.PartialSize = off, n
	}
	if flags&DirectAccess != 0 && rec.Flags&UserAlloc == 0 {
		out.Data = buf[off : off+n : off+n]
		s.mu.metrics.ZeroCopyReads++
		return out, nil, nil
	}
	dst, err := destination(rec, n, arena)
	if err != nil {
		return Record{}, nil, err
	}
	copy(dst, buf[off:off+n])
	out.Data = dst
	return out, nil, nil
}

// GetBlobSize implements BlobStore.
func (s *memStore) GetBlobSize(ctx *Context, id BlobID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginLocked(ctx); err != nil {
		return 0, err
	}
	buf, err := s.getLocked(id)
	if err != nil {
		return 0, err
	}
	return uint64(len(buf)), nil
}

// Overwrite implements BlobStore. The payload is replaced in place when it
// fits the capacity retained for the blob.
func (s *memStore) Overwrite(ctx *Context, old BlobID, rec Record, flags Flags) (BlobID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginLocked(ctx); err != nil {
		return InvalidBlobID, err
	}
	defer s.observeLocked(opOverwrite, crtime.NowMono())
	prev, err := s.getLocked(old)
	if err != nil {
		return InvalidBlobID, err
	}
	size, err := rec.payloadSize(flags)
	if err != nil {
		return InvalidBlobID, err
	}
	prevSize := uint64(len(prev))

	if flags&ForceReallocate == 0 && size <= uint64(cap(prev)) {
		buf := prev[:size]
		if flags&Partial == 0 {
			copy(buf, rec.Data)
		} else {
			if prevSize < size {
				clear(buf[prevSize:])
			}
			copy(buf[rec.PartialOffset:], rec.Data[:rec.PartialSize])
		}
		s.mu.bytes = s.mu.bytes - prevSize + size
		s.mu.blobs.Put(old, buf)
		s.mu.metrics.Overwrite.InPlace++
		s.mu.metrics.Blobs.Resize(prevSize, size, metrics.Grouped)
		return old, nil
	}

	if err := s.reserveLocked(size); err != nil {
		return InvalidBlobID, err
	}
	id := s.mu.nextID
	s.mu.nextID++
	s.mu.blobs.Put(id, materialize(rec, flags, size, prev[:min(prevSize, size)]))
	s.mu.blobs.Delete(old)
	s.mu.bytes -= prevSize
	s.mu.metrics.Overwrite.Reallocated++
	s.mu.metrics.Blobs.Resize(prevSize, size, metrics.Grouped)
	return id, nil
}

// Erase implements BlobStore.
func (s *memStore) Erase(ctx *Context, id BlobID, flags Flags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginLocked(ctx); err != nil {
		return err
	}
	defer s.observeLocked(opErase, crtime.NowMono())
	buf, err := s.getLocked(id)
	if err != nil {
		return err
	}
	s.mu.blobs.Delete(id)
	s.mu.bytes -= uint64(len(buf))
	s.mu.metrics.Blobs.Dec(uint64(len(buf)), metrics.Grouped)
	return nil
}

func (s *memStore) observeLocked(op opKind, start crtime.Mono) {
	s.mu.metrics.latencyPtr(op).record(start.Elapsed())
}

// Metrics implements BlobStore.
func (s *memStore) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.metrics
}

// Flush implements BlobStore.
func (s *memStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.closed {
		return ErrClosed
	}
	return nil
}

// Close implements BlobStore.
func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.closed {
		return ErrClosed
	}
	s.mu.closed = true
	s.mu.blobs.Close()
	return nil
}
