// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"context"

	"github.com/cockroachdb/blobheap/internal/pagecache"
)

// Context carries the state of one caller through blob store operations. It
// pins every page fetched for writing (and every page backing a zero-copy
// read) until Close is called. A Context must not be used concurrently.
type Context struct {
	context.Context
	// TxnID identifies the caller's transaction. It is stamped into the LSN
	// field of every page the context modifies.
	TxnID   uint64
	changes pagecache.Changeset
}

// NewContext returns a Context for the given transaction.
func NewContext(ctx context.Context, txnID uint64) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{Context: ctx, TxnID: txnID}
}

// PinnedPages returns the number of pages pinned by the context.
func (c *Context) PinnedPages() int {
	return c.changes.Len()
}

// Close releases all pages pinned by the context. The context may be reused
// afterwards.
func (c *Context) Close() {
	c.changes.Clear()
}
