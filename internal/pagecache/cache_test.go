// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package pagecache

import (
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/internal/device"
	"github.com/stretchr/testify/require"
)

const testPageSize = 4096

func openTestCache(t *testing.T, dev device.Device, capacity int) *Cache {
	c, err := Open(dev, Options{
		PageSize:        testPageSize,
		Capacity:        capacity,
		VerifyChecksums: true,
	})
	require.NoError(t, err)
	return c
}

func TestCacheCreate(t *testing.T) {
	dev := device.NewMem()
	c := openTestCache(t, dev, 8)
	require.EqualValues(t, testPageSize, c.PageSize())
	require.EqualValues(t, testPageSize, c.FileSize())

	// The header page is written immediately.
	size, err := dev.Size()
	require.NoError(t, err)
	require.EqualValues(t, testPageSize, size)
	require.Equal(t, fileMagic, string(dev.Bytes()[HeaderSize:HeaderSize+4]))

	p, err := c.Fetch(nil, 0, ReadOnly)
	require.NoError(t, err)
	require.Equal(t, KindFileHeader, p.Kind())
	require.NoError(t, c.Close())
}

func TestCacheInvalidPageSize(t *testing.T) {
	for _, ps := range []uint32{0, 512, 3000, 2 << 20} {
		_, err := Open(device.NewMem(), Options{PageSize: ps, Capacity: 4})
		require.ErrorIs(t, err, base.ErrInvalidParameter, "page size %d", ps)
	}
}

func TestCacheAllocateAndReopen(t *testing.T) {
	dev := device.NewMem()
	c := openTestCache(t, dev, 8)

	var cs Changeset
	p, err := c.Allocate(&cs, KindBlob)
	require.NoError(t, err)
	require.EqualValues(t, testPageSize, p.Address())
	require.True(t, cs.Contains(p))
	copy(p.Payload(), "hello")
	p.SetLSN(7)

	run, err := c.AllocateRun(&cs, KindBlob, 3)
	require.NoError(t, err)
	require.EqualValues(t, 2*testPageSize, run.Address())
	require.EqualValues(t, 5*testPageSize, c.FileSize())
	require.Equal(t, 2, cs.Len())

	// Continuation pages are raw.
	cont, err := c.Fetch(&cs, 3*testPageSize, NoHeader)
	require.NoError(t, err)
	require.False(t, cont.HasHeader())
	copy(cont.Data(), "raw bytes")
	cont.MarkDirty()
	_, err = c.Fetch(&cs, 3*testPageSize, 0)
	require.True(t, base.IsCorruptionError(err))

	cs.Clear()
	require.Equal(t, 0, cs.Len())
	require.NoError(t, c.Close())

	c = openTestCache(t, dev.Reopen(), 8)
	defer func() { require.NoError(t, c.Close()) }()
	require.EqualValues(t, 5*testPageSize, c.FileSize())
	p, err = c.Fetch(nil, testPageSize, ReadOnly)
	require.NoError(t, err)
	require.Equal(t, KindBlob, p.Kind())
	require.EqualValues(t, 7, p.LSN())
	require.Equal(t, "hello", string(p.Payload()[:5]))
	cont, err = c.Fetch(nil, 3*testPageSize, NoHeader|ReadOnly)
	require.NoError(t, err)
	require.Equal(t, "raw bytes", string(cont.Data()[:9]))
}

func TestCacheOutOfRange(t *testing.T) {
	c := openTestCache(t, device.NewMem(), 4)
	defer func() { require.NoError(t, c.Close()) }()
	for _, addr := range []uint64{1, testPageSize, testPageSize + 8} {
		_, err := c.Fetch(nil, addr, ReadOnly)
		require.True(t, base.IsCorruptionError(err), "addr %d", addr)
	}
}

func TestCacheFreePool(t *testing.T) {
	c := openTestCache(t, device.NewMem(), 16)
	defer func() { require.NoError(t, c.Close()) }()

	var cs Changeset
	defer cs.Clear()
	var addrs []uint64
	for i := 0; i < 3; i++ {
		p, err := c.Allocate(&cs, KindBlob)
		require.NoError(t, err)
		addrs = append(addrs, p.Address())
	}
	require.NoError(t, c.Free(&cs, addrs[2], 1))
	require.NoError(t, c.Free(&cs, addrs[0], 1))
	require.True(t, c.IsFree(addrs[0]))
	require.False(t, c.IsFree(addrs[1]))

	err := c.Free(&cs, addrs[0], 1)
	require.True(t, base.IsIntegrityViolation(err))
	require.True(t, base.IsIntegrityViolation(c.Free(&cs, 0, 1)))

	// Released pages are reused in release order, zeroed.
	p, err := c.Allocate(&cs, KindBlob)
	require.NoError(t, err)
	require.Equal(t, addrs[2], p.Address())
	p, err = c.Allocate(&cs, KindBlob)
	require.NoError(t, err)
	require.Equal(t, addrs[0], p.Address())
	require.Equal(t, make([]byte, testPageSize-HeaderSize), p.Payload())

	// The pool is empty, so the file grows.
	p, err = c.Allocate(&cs, KindBlob)
	require.NoError(t, err)
	require.EqualValues(t, 4*testPageSize, p.Address())

	m := c.Metrics()
	require.EqualValues(t, 0, m.FreePages)
	require.EqualValues(t, 5, m.FilePages)
	require.EqualValues(t, 2, m.Freed)
}

func TestCacheFreeRun(t *testing.T) {
	c := openTestCache(t, device.NewMem(), 16)
	defer func() { require.NoError(t, c.Close()) }()

	var cs Changeset
	defer cs.Clear()
	run, err := c.AllocateRun(&cs, KindBlob, 3)
	require.NoError(t, err)
	require.NoError(t, c.Free(&cs, run.Address(), 3))
	for i := uint64(0); i < 3; i++ {
		addr := run.Address() + i*testPageSize
		require.True(t, c.IsFree(addr))
		p, err := c.Fetch(nil, addr, ReadOnly)
		require.NoError(t, err)
		require.Equal(t, KindFree, p.Kind())
	}
	// Runs always extend the file even if the pool holds pages.
	run2, err := c.AllocateRun(&cs, KindBlob, 2)
	require.NoError(t, err)
	require.EqualValues(t, 4*testPageSize, run2.Address())
}

func TestCacheEviction(t *testing.T) {
	dev := device.NewMem()
	c := openTestCache(t, dev, 2)
	defer func() { require.NoError(t, c.Close()) }()

	var pinned Changeset
	keep, err := c.Allocate(&pinned, KindBlob)
	require.NoError(t, err)
	copy(keep.Payload(), "pinned")

	for i := 0; i < 6; i++ {
		var cs Changeset
		p, err := c.Allocate(&cs, KindBlob)
		require.NoError(t, err)
		copy(p.Payload(), []byte{byte('a' + i)})
		cs.Clear()
	}
	m := c.Metrics()
	require.Greater(t, m.Evictions, int64(0))
	require.LessOrEqual(t, m.ResidentPages, int64(3))
	require.EqualValues(t, 1, m.PinnedPages)

	// The pinned page was never evicted.
	p, err := c.Fetch(nil, keep.Address(), ReadOnly)
	require.NoError(t, err)
	require.Same(t, keep, p)
	pinned.Clear()

	// Evicted dirty pages were written back and reload intact.
	for i := 0; i < 6; i++ {
		addr := uint64(i+2) * testPageSize
		p, err := c.Fetch(nil, addr, ReadOnly)
		require.NoError(t, err)
		require.Equal(t, byte('a'+i), p.Payload()[0], "page %d", addr)
	}
}

func TestCacheChecksumMismatch(t *testing.T) {
	dev := device.NewMem()
	c := openTestCache(t, dev, 4)
	var cs Changeset
	p, err := c.Allocate(&cs, KindBlob)
	require.NoError(t, err)
	addr := p.Address()
	cs.Clear()
	require.NoError(t, c.Close())

	// Flip a payload byte behind the cache's back.
	_, err = dev.WriteAt([]byte{0xff}, int64(addr)+HeaderSize+100)
	require.NoError(t, err)

	c = openTestCache(t, dev.Reopen(), 4)
	defer func() { require.NoError(t, c.Close()) }()
	_, err = c.Fetch(nil, addr, ReadOnly)
	require.True(t, base.IsCorruptionError(err))
}

func TestCacheRawPagePromotion(t *testing.T) {
	dev := device.NewMem()
	c, err := Open(dev, Options{PageSize: testPageSize, Capacity: 8})
	require.NoError(t, err)

	var cs Changeset
	run, err := c.AllocateRun(&cs, KindBlob, 2)
	require.NoError(t, err)
	first := run.Address()
	cont, err := c.Fetch(&cs, first+testPageSize, NoHeader)
	require.NoError(t, err)
	for i := range cont.Data() {
		cont.Data()[i] = 0xaa
	}
	cont.MarkDirty()
	cs.Clear()
	require.NoError(t, c.Flush())

	// A clean raw page is not turned into a header page, even without
	// checksum verification.
	_, err = c.Fetch(&cs, first+testPageSize, 0)
	require.True(t, base.IsCorruptionError(err))
	cont, err = c.Fetch(&cs, first+testPageSize, NoHeader)
	require.NoError(t, err)
	require.False(t, cont.HasHeader())
	cont.MarkDirty()
	cs.Clear()
	require.NoError(t, c.Close())
	for i, b := range dev.Bytes()[first+testPageSize : first+2*testPageSize] {
		require.Equal(t, byte(0xaa), b, "byte %d", i)
	}

	// A header page loaded raw is promoted once its checksum is confirmed.
	c, err = Open(dev.Reopen(), Options{PageSize: testPageSize, Capacity: 8})
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()
	_, err = c.Fetch(nil, first, NoHeader|ReadOnly)
	require.NoError(t, err)
	p, err := c.Fetch(nil, first, ReadOnly)
	require.NoError(t, err)
	require.True(t, p.HasHeader())
	require.Equal(t, KindBlob, p.Kind())
}

func TestCacheCorruptFileHeader(t *testing.T) {
	dev := device.NewMem()
	c := openTestCache(t, dev, 4)
	require.NoError(t, c.Close())

	_, err := dev.WriteAt([]byte("XXXX"), HeaderSize)
	require.NoError(t, err)
	_, err = Open(dev.Reopen(), Options{Capacity: 4})
	require.True(t, base.IsCorruptionError(err))

	short := device.NewMem()
	_, err = short.WriteAt(make([]byte, 100), 0)
	require.NoError(t, err)
	_, err = Open(short, Options{PageSize: testPageSize})
	require.True(t, base.IsCorruptionError(err))
}

func TestCacheAdoptsPageSize(t *testing.T) {
	dev := device.NewMem()
	c, err := Open(dev, Options{PageSize: 1024, Capacity: 4})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(dev.Reopen(), Options{PageSize: testPageSize, Capacity: 4})
	require.NoError(t, err)
	require.EqualValues(t, 1024, c.PageSize())
	require.NoError(t, c.Close())
}

func TestCacheMaxFileSize(t *testing.T) {
	c, err := Open(device.NewMem(), Options{
		PageSize:    testPageSize,
		Capacity:    8,
		MaxFileSize: 4 * testPageSize,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()

	var cs Changeset
	defer cs.Clear()
	_, err = c.AllocateRun(&cs, KindBlob, 4)
	require.True(t, base.IsResourceExhausted(err))
	_, err = c.AllocateRun(&cs, KindBlob, 3)
	require.NoError(t, err)
	_, err = c.Allocate(&cs, KindBlob)
	require.True(t, base.IsResourceExhausted(err))
}

func TestCacheWriteError(t *testing.T) {
	var index atomic.Int32
	index.Store(1 << 20)
	dev := device.WithErrors(device.NewMem(), &index, device.ModeWrite)
	c := openTestCache(t, dev, 8)

	var cs Changeset
	_, err := c.Allocate(&cs, KindBlob)
	require.NoError(t, err)
	cs.Clear()

	index.Store(0)
	require.ErrorIs(t, c.Flush(), device.ErrInjected)
	index.Store(1 << 20)
	require.NoError(t, c.Flush())
	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Close(), base.ErrClosed)
	_, err = c.Fetch(nil, 0, ReadOnly)
	require.ErrorIs(t, err, base.ErrClosed)
}

func TestMetricsString(t *testing.T) {
	m := Metrics{Hits: 3, Misses: 1, FilePages: 10, FreePages: 2, ResidentPages: 4}
	require.Equal(t,
		"pages: 10 file, 2 free, 4 resident (0 pinned, 0 dirty)\n"+
			"cache: 3 hits, 1 misses (75.0%), 0 evictions, 0 reads, 0 writes",
		m.String())
}
