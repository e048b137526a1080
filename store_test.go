// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/internal/blobpage"
	"github.com/cockroachdb/blobheap/internal/device"
	"github.com/cockroachdb/blobheap/internal/pagecache"
	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/stretchr/testify/require"
)

const testPageSize = 4096

func testOptions() *Options {
	return &Options{
		PageSize:        testPageSize,
		CachePages:      64,
		VerifyChecksums: true,
		Logger:          base.NoopLoggerForTesting{},
	}
}

func openMemDevice(t *testing.T, dev *device.MemDevice, opts *Options) *diskStore {
	t.Helper()
	s, err := OpenDevice(dev, opts)
	require.NoError(t, err)
	return s.(*diskStore)
}

func testPayload(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Uint32())
	}
	return b
}

// forEachStore runs fn against a disk-backed and an in-memory store.
func forEachStore(t *testing.T, fn func(t *testing.T, s BlobStore)) {
	t.Run("disk", func(t *testing.T) {
		s := openMemDevice(t, device.NewMem(), testOptions())
		defer func() { require.NoError(t, s.Close()) }()
		fn(t, s)
	})
	t.Run("mem", func(t *testing.T) {
		opts := testOptions()
		opts.InMemory = true
		s, err := Open("", opts)
		require.NoError(t, err)
		defer func() { require.NoError(t, s.Close()) }()
		fn(t, s)
	})
}

func TestRoundTrip(t *testing.T) {
	defer leaktest.AfterTest(t)()
	rng := rand.New(rand.NewPCG(1, 2))
	sizes := []int{0, 1, 7, 8, 27, 100, 1000, 3779, 3780, 3781, 3808, testPageSize - 1,
		testPageSize, testPageSize + 1, 10000, 2*testPageSize - blobpage.PageOverhead, 5 * testPageSize}
	for i := 0; i < 20; i++ {
		sizes = append(sizes, rng.IntN(5*testPageSize+1))
	}
	forEachStore(t, func(t *testing.T, s BlobStore) {
		ctx := NewContext(context.Background(), 1)
		defer ctx.Close()
		ids := make([]BlobID, len(sizes))
		payloads := make([][]byte, len(sizes))
		for i, n := range sizes {
			payloads[i] = testPayload(rng, n)
			id, err := s.Allocate(ctx, Record{Data: payloads[i]}, 0)
			require.NoError(t, err, "size %d", n)
			require.True(t, id.IsValid())
			ids[i] = id
		}
		// Read everything back after all allocations, so that later
		// allocations cannot have clobbered earlier blobs unnoticed.
		for i, id := range ids {
			rec, page, err := s.Read(ctx, id, Record{}, 0, nil)
			require.NoError(t, err)
			require.Nil(t, page)
			require.Equal(t, uint64(len(payloads[i])), rec.Size)
			require.True(t, bytes.Equal(payloads[i], rec.Data), "size %d", sizes[i])

			size, err := s.GetBlobSize(ctx, id)
			require.NoError(t, err)
			require.EqualValues(t, sizes[i], size)
		}
	})
}

func TestPlacement(t *testing.T) {
	s := openMemDevice(t, device.NewMem(), testOptions())
	defer func() { require.NoError(t, s.Close()) }()
	ctx := NewContext(context.Background(), 1)
	defer ctx.Close()

	// The largest grouped blob fills the page's capacity exactly.
	id, err := s.Allocate(ctx, Record{Data: make([]byte, 3780)}, 0)
	require.NoError(t, err)
	require.EqualValues(t, testPageSize+blobpage.PageOverhead, id)
	require.EqualValues(t, 1, s.Metrics().Pages.Grouped)

	// One more byte needs an overflow run of two pages.
	id, err = s.Allocate(ctx, Record{Data: make([]byte, 3781)}, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2*testPageSize+blobpage.PageOverhead, id)
	m := s.Metrics()
	require.EqualValues(t, 2, m.Pages.Overflow)
	require.EqualValues(t, 1, m.Blobs.Overflow.Count)
	require.EqualValues(t, 4, m.Cache.FilePages)
}

// Allocate A and B on one grouped page, erase A, and allocate C no larger
// than A: C reuses A's range without a new page.
func TestScenarioFreelistReuse(t *testing.T) {
	s := openMemDevice(t, device.NewMem(), testOptions())
	defer func() { require.NoError(t, s.Close()) }()
	ctx := NewContext(context.Background(), 1)
	defer ctx.Close()

	a, err := s.Allocate(ctx, Record{Data: bytes.Repeat([]byte("a"), 100)}, 0)
	require.NoError(t, err)
	b, err := s.Allocate(ctx, Record{Data: bytes.Repeat([]byte("b"), 200)}, 0)
	require.NoError(t, err)
	require.Equal(t, a.PageAddress(testPageSize), b.PageAddress(testPageSize))
	require.EqualValues(t, uint64(a)+128, b)

	pagesBefore := s.Metrics().Cache.FilePages
	require.NoError(t, s.Erase(ctx, a, 0))
	c, err := s.Allocate(ctx, Record{Data: bytes.Repeat([]byte("c"), 90)}, 0)
	require.NoError(t, err)
	require.Equal(t, a, c)
	m := s.Metrics()
	require.Equal(t, pagesBefore, m.Cache.FilePages)
	require.EqualValues(t, 1, m.Pages.Grouped)
	// B and C were both carved from the page's freelist.
	require.EqualValues(t, 2, m.Freelist.Hits)

	rec, _, err := s.Read(ctx, b, Record{}, 0, nil)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte("b"), 200), rec.Data)
	rec, _, err = s.Read(ctx, c, Record{}, 0, nil)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte("c"), 90), rec.Data)
}

// A 10000 byte blob with 4096 byte pages needs an overflow run of 3 pages.
func TestScenarioOverflowRun(t *testing.T) {
	s := openMemDevice(t, device.NewMem(), testOptions())
	defer func() { require.NoError(t, s.Close()) }()
	ctx := NewContext(context.Background(), 1)
	defer ctx.Close()

	payload := testPayload(rand.New(rand.NewPCG(3, 4)), 10000)
	id, err := s.Allocate(ctx, Record{Data: payload}, 0)
	require.NoError(t, err)

	infos, err := s.Inspect()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, pagecache.KindBlob, infos[0].Kind)
	require.EqualValues(t, 3, infos[0].NumPages)
	require.EqualValues(t, 10000, infos[0].BlobSize)

	rec, _, err := s.Read(ctx, id, Record{}, 0, nil)
	require.NoError(t, err)
	require.Len(t, rec.Data, 10000)
	require.Equal(t, payload, rec.Data)
}

func TestOverwrite(t *testing.T) {
	forEachStore(t, func(t *testing.T, s BlobStore) {
		ctx := NewContext(context.Background(), 1)
		defer ctx.Close()
		read := func(id BlobID) []byte {
			rec, _, err := s.Read(ctx, id, Record{}, 0, nil)
			require.NoError(t, err)
			return rec.Data
		}

		id, err := s.Allocate(ctx, Record{Data: bytes.Repeat([]byte("x"), 100)}, 0)
		require.NoError(t, err)
		// Keep the page alive after the original blob is erased.
		other, err := s.Allocate(ctx, Record{Data: []byte("other")}, 0)
		require.NoError(t, err)

		same, err := s.Overwrite(ctx, id, Record{Data: []byte("smaller")}, 0)
		require.NoError(t, err)
		require.Equal(t, id, same)
		require.Equal(t, []byte("smaller"), read(id))

		same, err = s.Overwrite(ctx, id, Record{Data: bytes.Repeat([]byte("y"), 100)}, 0)
		require.NoError(t, err)
		require.Equal(t, id, same)
		require.Equal(t, bytes.Repeat([]byte("y"), 100), read(id))

		larger := bytes.Repeat([]byte("z"), 9000)
		moved, err := s.Overwrite(ctx, id, Record{Data: larger}, 0)
		require.NoError(t, err)
		require.NotEqual(t, id, moved)
		require.Equal(t, larger, read(moved))
		_, _, err = s.Read(ctx, id, Record{}, 0, nil)
		require.ErrorIs(t, err, ErrBlobNotFound)

		forced, err := s.Overwrite(ctx, moved, Record{Data: []byte("tiny")}, ForceReallocate)
		require.NoError(t, err)
		require.NotEqual(t, moved, forced)
		require.Equal(t, []byte("tiny"), read(forced))
		_, err = s.GetBlobSize(ctx, moved)
		require.ErrorIs(t, err, ErrBlobNotFound)

		require.Equal(t, []byte("other"), read(other))
		m := s.Metrics()
		require.EqualValues(t, 2, m.Overwrite.InPlace)
		require.EqualValues(t, 2, m.Overwrite.Reallocated)
		require.EqualValues(t, 2, m.Blobs.Total().Count)
	})
}

func TestErase(t *testing.T) {
	forEachStore(t, func(t *testing.T, s BlobStore) {
		ctx := NewContext(context.Background(), 1)
		defer ctx.Close()
		for _, n := range []int{10, 5000} {
			id, err := s.Allocate(ctx, Record{Data: make([]byte, n)}, 0)
			require.NoError(t, err)
			require.NoError(t, s.Erase(ctx, id, 0))
			_, _, err = s.Read(ctx, id, Record{}, 0, nil)
			require.ErrorIs(t, err, ErrBlobNotFound)
			_, err = s.GetBlobSize(ctx, id)
			require.ErrorIs(t, err, ErrBlobNotFound)
			require.ErrorIs(t, s.Erase(ctx, id, 0), ErrBlobNotFound)
			_, err = s.Overwrite(ctx, id, Record{Data: []byte("x")}, 0)
			require.ErrorIs(t, err, ErrBlobNotFound)
		}
		_, _, err := s.Read(ctx, InvalidBlobID, Record{}, 0, nil)
		require.ErrorIs(t, err, ErrInvalidParameter)
		require.True(t, s.Metrics().Blobs.Total().IsZero())
	})
}

func TestEraseTombstonesSharedPage(t *testing.T) {
	s := openMemDevice(t, device.NewMem(), testOptions())
	defer func() { require.NoError(t, s.Close()) }()
	ctx := NewContext(context.Background(), 1)
	defer ctx.Close()

	a, err := s.Allocate(ctx, Record{Data: []byte("a")}, 0)
	require.NoError(t, err)
	b, err := s.Allocate(ctx, Record{Data: []byte("b")}, 0)
	require.NoError(t, err)
	require.NoError(t, s.Erase(ctx, a, 0))

	// The page survives because b lives on it, but a's header is gone.
	_, _, err = s.Read(ctx, a, Record{}, 0, nil)
	require.ErrorIs(t, err, ErrBlobNotFound)
	rec, _, err := s.Read(ctx, b, Record{}, 0, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("b"), rec.Data)
}

func pageHeader(t *testing.T, s *diskStore, addr uint64) blobpage.PageHeader {
	t.Helper()
	p, err := s.cache.Fetch(nil, addr, pagecache.ReadOnly)
	require.NoError(t, err)
	hdr, err := blobpage.DecodePageHeader(p.Payload())
	require.NoError(t, err)
	return hdr
}

func TestEraseFreeBytes(t *testing.T) {
	s := openMemDevice(t, device.NewMem(), testOptions())
	defer func() { require.NoError(t, s.Close()) }()
	ctx := NewContext(context.Background(), 1)
	defer ctx.Close()

	rng := rand.New(rand.NewPCG(5, 6))
	var ids []BlobID
	for i := 0; i < 10; i++ {
		id, err := s.Allocate(ctx, Record{Data: testPayload(rng, 1+rng.IntN(300))}, 0)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	page := ids[0].PageAddress(testPageSize)
	for _, id := range ids[:len(ids)-1] {
		if id.PageAddress(testPageSize) != page {
			continue
		}
		size, err := s.GetBlobSize(ctx, id)
		require.NoError(t, err)
		before := pageHeader(t, s, page).FreeBytes
		require.NoError(t, s.Erase(ctx, id, 0))
		after := pageHeader(t, s, page)
		require.EqualValues(t, s.required(size), after.FreeBytes-before)
		require.NoError(t, after.CheckIntegrity(testPageSize))
	}
}

func TestPageReclaim(t *testing.T) {
	var reclaimed []PageReclaimInfo
	opts := testOptions()
	opts.EventListener = &EventListener{
		PageReclaimed: func(info PageReclaimInfo) { reclaimed = append(reclaimed, info) },
	}
	s := openMemDevice(t, device.NewMem(), opts)
	defer func() { require.NoError(t, s.Close()) }()
	ctx := NewContext(context.Background(), 1)
	defer ctx.Close()

	big, err := s.Allocate(ctx, Record{Data: make([]byte, 10000)}, 0)
	require.NoError(t, err)
	small, err := s.Allocate(ctx, Record{Data: make([]byte, 10)}, 0)
	require.NoError(t, err)
	require.EqualValues(t, 5, s.Metrics().Cache.FilePages)

	require.NoError(t, s.Erase(ctx, small, 0))
	require.NoError(t, s.Erase(ctx, big, 0))
	require.Equal(t, []PageReclaimInfo{
		{Address: 4 * testPageSize, Pages: 1},
		{Address: testPageSize, Pages: 3, Overflow: true},
	}, reclaimed)
	m := s.Metrics()
	require.EqualValues(t, 4, m.Cache.FreePages)
	require.EqualValues(t, 4, m.Pages.Reclaimed)

	// Single pages come from the free pool in release order; overflow runs
	// always extend the file.
	id, err := s.Allocate(ctx, Record{Data: make([]byte, 10)}, 0)
	require.NoError(t, err)
	require.EqualValues(t, 4*testPageSize+blobpage.PageOverhead, id)
	id, err = s.Allocate(ctx, Record{Data: make([]byte, 5000)}, 0)
	require.NoError(t, err)
	require.EqualValues(t, 5*testPageSize+blobpage.PageOverhead, id)
	require.EqualValues(t, 7, s.Metrics().Cache.FilePages)
	require.NoError(t, s.Check())
}

func TestFreelistEvictionEvent(t *testing.T) {
	var evictions []FreelistEvictionInfo
	opts := testOptions()
	opts.EventListener = &EventListener{
		FreelistEviction: func(info FreelistEvictionInfo) { evictions = append(evictions, info) },
	}
	s := openMemDevice(t, device.NewMem(), opts)
	defer func() { require.NoError(t, s.Close()) }()
	ctx := NewContext(context.Background(), 1)
	defer ctx.Close()

	// Blobs of 8 bytes occupy 40 bytes each; 90 of them share one page.
	var ids []BlobID
	for i := 0; i < 90; i++ {
		id, err := s.Allocate(ctx, Record{Data: make([]byte, 8)}, 0)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	page := ids[0].PageAddress(testPageSize)
	require.Equal(t, page, ids[len(ids)-1].PageAddress(testPageSize))

	// Erasing every other blob creates isolated free ranges. The tail of the
	// page holds one freelist slot, so the 32nd erased range finds no slot
	// and no neighbour in the table.
	for i := 0; i < 2*blobpage.FreelistEntries; i += 2 {
		require.NoError(t, s.Erase(ctx, ids[i], 0))
	}
	require.Len(t, evictions, 1)
	m := s.Metrics()
	require.EqualValues(t, 1, m.Freelist.Evictions)
	require.EqualValues(t, 40, m.Freelist.EvictedBytes)
	require.NoError(t, s.Check())

	// free_bytes still counts the evicted range, so once every blob is gone
	// the page is reclaimed.
	for i := 1; i < len(ids); i += 2 {
		require.NoError(t, s.Erase(ctx, ids[i], 0))
	}
	for i := 2 * blobpage.FreelistEntries; i < len(ids); i += 2 {
		require.NoError(t, s.Erase(ctx, ids[i], 0))
	}
	m = s.Metrics()
	require.EqualValues(t, 1, m.Cache.FreePages)
	require.EqualValues(t, 1, m.Pages.Reclaimed)
}

func TestPartial(t *testing.T) {
	forEachStore(t, func(t *testing.T, s BlobStore) {
		ctx := NewContext(context.Background(), 1)
		defer ctx.Close()
		for _, size := range []uint64{90, 9000} {
			t.Run(fmt.Sprint(size), func(t *testing.T) {
				id, err := s.Allocate(ctx, Record{
					Data: []byte("0123456789"), Size: size, PartialOffset: 50, PartialSize: 10,
				}, Partial)
				require.NoError(t, err)
				want := make([]byte, size)
				copy(want[50:], "0123456789")

				rec, _, err := s.Read(ctx, id, Record{}, 0, nil)
				require.NoError(t, err)
				require.Equal(t, want, rec.Data)

				// Partial reads clamp to the blob size.
				rec, _, err = s.Read(ctx, id, Record{PartialOffset: size - 5, PartialSize: 100}, Partial, nil)
				require.NoError(t, err)
				require.Equal(t, want[size-5:], rec.Data)
				require.Equal(t, size, rec.Size)
				_, _, err = s.Read(ctx, id, Record{PartialOffset: size + 1, PartialSize: 1}, Partial, nil)
				require.ErrorIs(t, err, ErrInvalidParameter)

				// Only the range changes; the blob grows with zeroes.
				id, err = s.Overwrite(ctx, id, Record{
					Data: []byte("ab"), Size: size + 2, PartialOffset: 10, PartialSize: 2,
				}, Partial)
				require.NoError(t, err)
				want = append(want, 0, 0)
				copy(want[10:], "ab")
				rec, _, err = s.Read(ctx, id, Record{}, 0, nil)
				require.NoError(t, err)
				require.Equal(t, want, rec.Data)

				// Growing past the allocation merges the old payload with the
				// new range.
				grown := 3 * size
				moved, err := s.Overwrite(ctx, id, Record{
					Data: []byte("zz"), Size: grown, PartialOffset: grown - 2, PartialSize: 2,
				}, Partial)
				require.NoError(t, err)
				want = append(want, make([]byte, grown-uint64(len(want)))...)
				copy(want[grown-2:], "zz")
				rec, _, err = s.Read(ctx, moved, Record{}, 0, nil)
				require.NoError(t, err)
				require.Equal(t, want, rec.Data)
			})
		}

		_, err := s.Allocate(ctx, Record{Data: []byte("abc"), Size: 2, PartialSize: 3}, Partial)
		require.ErrorIs(t, err, ErrInvalidParameter)
		_, err = s.Allocate(ctx, Record{Data: []byte("abc"), Size: 10, PartialSize: 4}, Partial)
		require.ErrorIs(t, err, ErrInvalidParameter)

		// Ranges whose end wraps around are rejected, not truncated.
		wrapped := Record{
			Data: make([]byte, 10), Size: 100, PartialOffset: math.MaxUint64 - 5, PartialSize: 10,
		}
		_, err = s.Allocate(ctx, wrapped, Partial)
		require.ErrorIs(t, err, ErrInvalidParameter)
		id, err := s.Allocate(ctx, Record{Data: []byte("intact")}, 0)
		require.NoError(t, err)
		for _, flags := range []Flags{Partial, Partial | ForceReallocate} {
			_, err = s.Overwrite(ctx, id, wrapped, flags)
			require.ErrorIs(t, err, ErrInvalidParameter)
		}
		rec, _, err := s.Read(ctx, id, Record{}, 0, nil)
		require.NoError(t, err)
		require.Equal(t, "intact", string(rec.Data))
	})
}

func TestReadDestinations(t *testing.T) {
	forEachStore(t, func(t *testing.T, s BlobStore) {
		ctx := NewContext(context.Background(), 1)
		defer ctx.Close()
		payload := []byte("hello, world")
		id, err := s.Allocate(ctx, Record{Data: payload}, 0)
		require.NoError(t, err)

		buf := make([]byte, 0, 64)
		rec, _, err := s.Read(ctx, id, Record{Data: buf, Flags: UserAlloc}, 0, nil)
		require.NoError(t, err)
		require.Equal(t, payload, rec.Data)
		require.Same(t, &buf[:1][0], &rec.Data[0])

		_, _, err = s.Read(ctx, id, Record{Data: make([]byte, 0, 4), Flags: UserAlloc}, 0, nil)
		require.ErrorIs(t, err, ErrInvalidParameter)

		var arena Arena
		rec, _, err = s.Read(ctx, id, Record{}, 0, &arena)
		require.NoError(t, err)
		require.Equal(t, payload, rec.Data)
		require.GreaterOrEqual(t, arena.Len(), len(payload))
	})
}

func TestResourceExhausted(t *testing.T) {
	opts := testOptions()
	opts.MaxFileSize = 4 * testPageSize
	s := openMemDevice(t, device.NewMem(), opts)
	defer func() { require.NoError(t, s.Close()) }()
	ctx := NewContext(context.Background(), 1)
	defer ctx.Close()

	payload := testPayload(rand.New(rand.NewPCG(7, 8)), 10000)
	id, err := s.Allocate(ctx, Record{Data: payload}, 0)
	require.NoError(t, err)

	id2, err := s.Allocate(ctx, Record{Data: []byte("no room")}, 0)
	require.ErrorIs(t, err, ErrResourceExhausted)
	require.Equal(t, InvalidBlobID, id2)
	_, err = s.Overwrite(ctx, id, Record{Data: make([]byte, 20000)}, 0)
	require.ErrorIs(t, err, ErrResourceExhausted)

	rec, _, err := s.Read(ctx, id, Record{}, 0, nil)
	require.NoError(t, err)
	require.Equal(t, payload, rec.Data)
	require.NoError(t, s.Check())
}

func TestClosedStore(t *testing.T) {
	forEachStore(t, func(t *testing.T, s BlobStore) {
		ctx := NewContext(context.Background(), 1)
		defer ctx.Close()
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Allocate(NewContext(cctx, 2), Record{Data: []byte("x")}, 0)
		require.ErrorIs(t, err, context.Canceled)
		_, err = s.Allocate(nil, Record{Data: []byte("x")}, 0)
		require.ErrorIs(t, err, ErrInvalidParameter)
	})

	s := openMemDevice(t, device.NewMem(), testOptions())
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Close(), ErrClosed)
	require.ErrorIs(t, s.Flush(), ErrClosed)
	_, err := s.Allocate(NewContext(context.Background(), 1), Record{}, 0)
	require.ErrorIs(t, err, ErrClosed)
}

func TestContextPins(t *testing.T) {
	s := openMemDevice(t, device.NewMem(), testOptions())
	defer func() { require.NoError(t, s.Close()) }()

	ctx := NewContext(context.Background(), 42)
	id, err := s.Allocate(ctx, Record{Data: make([]byte, 10000)}, 0)
	require.NoError(t, err)
	// The run's three pages were written through the context.
	require.Equal(t, 3, ctx.PinnedPages())
	ctx.Close()
	require.Equal(t, 0, ctx.PinnedPages())
	require.EqualValues(t, 0, s.Metrics().Cache.PinnedPages)

	// Reads do not pin.
	_, _, err = s.Read(ctx, id, Record{}, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 0, ctx.PinnedPages())

	p, err := s.cache.Fetch(nil, id.PageAddress(testPageSize), pagecache.ReadOnly)
	require.NoError(t, err)
	require.EqualValues(t, 42, p.LSN())
}

func TestAbandonedPagesReturnToFreePool(t *testing.T) {
	s := openMemDevice(t, device.NewMem(), testOptions())
	defer func() { require.NoError(t, s.Close()) }()
	ctx := NewContext(context.Background(), 1)
	defer ctx.Close()

	page, err := s.cache.Allocate(&ctx.changes, pagecache.KindBlob)
	require.NoError(t, err)
	addr := page.Address()
	err = s.abandonPages(ctx, addr, 1, device.ErrInjected)
	require.ErrorIs(t, err, device.ErrInjected)
	require.True(t, s.cache.IsFree(addr))

	// The next grouped page reuses it.
	id, err := s.Allocate(ctx, Record{Data: []byte("reused")}, 0)
	require.NoError(t, err)
	require.Equal(t, BlobID(addr+blobpage.PageOverhead), id)
	require.NoError(t, s.Check())
}
