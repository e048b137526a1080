// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build unix

package blobheap

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMmapZeroCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs")
	opts := testOptions()
	opts.UseMmap = true
	big := bytes.Repeat([]byte("0123456789"), 900)

	// A new file has nothing mapped yet.
	s, err := Open(path, opts)
	require.NoError(t, err)
	ctx := NewContext(context.Background(), 1)
	small, err := s.Allocate(ctx, Record{Data: []byte("hello")}, 0)
	require.NoError(t, err)
	large, err := s.Allocate(ctx, Record{Data: big}, 0)
	require.NoError(t, err)
	rec, page, err := s.Read(ctx, small, Record{}, DirectAccess, nil)
	require.NoError(t, err)
	require.Nil(t, page)
	require.Equal(t, []byte("hello"), rec.Data)
	ctx.Close()
	require.NoError(t, s.Close())

	s, err = Open(path, opts)
	require.NoError(t, err)
	ctx = NewContext(context.Background(), 2)

	rec, page, err = s.Read(ctx, small, Record{}, DirectAccess, nil)
	require.NoError(t, err)
	require.NotNil(t, page)
	require.True(t, page.Mapped())
	require.Equal(t, []byte("hello"), rec.Data)
	require.Equal(t, 1, ctx.PinnedPages())

	// A blob spanning pages is copied.
	rec, page, err = s.Read(ctx, large, Record{}, DirectAccess, nil)
	require.NoError(t, err)
	require.Nil(t, page)
	require.Equal(t, big, rec.Data)

	// A user buffer takes precedence over direct access.
	buf := make([]byte, 0, 16)
	rec, page, err = s.Read(ctx, small, Record{Data: buf, Flags: UserAlloc}, DirectAccess, nil)
	require.NoError(t, err)
	require.Nil(t, page)
	require.Equal(t, []byte("hello"), rec.Data)
	require.EqualValues(t, 1, s.Metrics().ZeroCopyReads)

	// Writes go through the mapping; pages past the mapped region are
	// written normally.
	same, err := s.Overwrite(ctx, small, Record{Data: []byte("HELLO")}, 0)
	require.NoError(t, err)
	require.Equal(t, small, same)
	extra, err := s.Allocate(ctx, Record{Data: big}, 0)
	require.NoError(t, err)
	ctx.Close()
	require.NoError(t, s.Close())

	opts.UseMmap = false
	s, err = Open(path, opts)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()
	ctx = NewContext(context.Background(), 3)
	defer ctx.Close()
	for id, want := range map[BlobID][]byte{small: []byte("HELLO"), large: big, extra: big} {
		rec, _, err := s.Read(ctx, id, Record{}, 0, nil)
		require.NoError(t, err)
		require.Equal(t, want, rec.Data)
	}
	require.NoError(t, s.(Inspector).Check())
}
