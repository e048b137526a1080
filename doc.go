// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package blobheap stores variable-length byte payloads ("blobs") in a paged
// file.
//
// A blob is identified by the file offset of its header. Small blobs share
// grouped pages whose free space is tracked by a fixed-capacity freelist in
// the page header; blobs that do not fit a single page get a dedicated run of
// contiguous overflow pages. Pages are served by a write-back page cache on
// top of a device which may be an in-memory buffer, a file or a
// memory-mapped file.
//
// Every operation takes a *Context, which carries the caller's transaction
// state and pins the pages touched by the operation until the context is
// closed:
//
//	store, err := blobheap.Open("heap.db", &blobheap.Options{})
//	...
//	ctx := blobheap.NewContext(context.Background(), txnID)
//	defer ctx.Close()
//	id, err := store.Allocate(ctx, blobheap.Record{Data: payload}, 0)
//	...
//	rec, _, err := store.Read(ctx, id, blobheap.Record{}, 0, nil)
//
// The store performs no locking of its own beyond what the page cache needs:
// mutating operations must be serialized by the caller.
package blobheap // import "github.com/cockroachdb/blobheap"
