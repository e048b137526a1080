// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"context"
	"testing"

	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/internal/blobpage"
	"github.com/cockroachdb/blobheap/internal/device"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/stretchr/testify/require"
)

func TestLoggingEventListener(t *testing.T) {
	var logger base.InMemLogger
	opts := testOptions()
	opts.Logger = &logger
	mem := device.NewMem()
	s := openMemDevice(t, mem, opts)
	ctx := NewContext(context.Background(), 1)

	id, err := s.Allocate(ctx, Record{Data: make([]byte, 10000)}, 0)
	require.NoError(t, err)
	small, err := s.Allocate(ctx, Record{Data: make([]byte, 10)}, 0)
	require.NoError(t, err)
	require.NoError(t, s.Erase(ctx, id, 0))
	require.NoError(t, s.Erase(ctx, small, 0))
	ctx.Close()
	require.NoError(t, s.Close())

	s = openMemDevice(t, mem.Reopen(), opts)
	require.NoError(t, s.Close())

	out := logger.String()
	require.Contains(t, out, "[OVERFLOW] blob@4384: 3 pages for 10000 bytes\n")
	require.Contains(t, out, "[RECLAIM] page 4096: 3 overflow pages released\n")
	require.Contains(t, out, "[RECLAIM] page 16384: 1 grouped pages released\n")
	require.Contains(t, out, "[RECOVERY] 4 pages: 4 free, 0 grouped (0 reusable), 0 overflow runs; 0 blobs")
}

func TestTeeEventListener(t *testing.T) {
	var a, b int
	l := TeeEventListener(
		EventListener{OverflowAllocated: func(OverflowInfo) { a++ }},
		EventListener{
			OverflowAllocated: func(OverflowInfo) { b++ },
			PageReclaimed:     func(PageReclaimInfo) { b++ },
		},
	)
	l.OverflowAllocated(OverflowInfo{})
	l.PageReclaimed(PageReclaimInfo{})
	l.FreelistEviction(FreelistEvictionInfo{})
	l.IntegrityViolation(IntegrityViolationInfo{})
	l.Recovered(RecoveryInfo{})
	require.Equal(t, 1, a)
	require.Equal(t, 2, b)
}

func TestEventInfoRedaction(t *testing.T) {
	info := FreelistEvictionInfo{Page: 8192, Evicted: blobpage.Extent{Offset: 400, Size: 40}}
	require.Equal(t, "[FREELIST] page 8192: full freelist evicted [400,440)", info.String())
	require.Equal(t, redact.RedactableString("[FREELIST] page 8192: full freelist evicted [400,440)"),
		redact.Sprint(info))

	// The blob ID is safe; the error detail is not.
	v := IntegrityViolationInfo{Page: 4096, Err: errors.Newf("bad %s", "entry")}
	require.NotContains(t, string(redact.Sprint(v).Redact()), "entry")
	require.Contains(t, v.String(), "entry")
}
