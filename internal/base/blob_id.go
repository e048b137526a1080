// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"fmt"

	"github.com/cockroachdb/redact"
)

// BlobID identifies a blob by the file offset of its header. Zero is never a
// valid ID.
type BlobID uint64

// InvalidBlobID is the null blob ID.
const InvalidBlobID BlobID = 0

// IsValid returns false for the null ID.
func (id BlobID) IsValid() bool {
	return id != InvalidBlobID
}

// PageAddress returns the address of the page holding the blob's header.
func (id BlobID) PageAddress(pageSize uint32) uint64 {
	return uint64(id) - uint64(id)%uint64(pageSize)
}

// String implements fmt.Stringer.
func (id BlobID) String() string {
	return fmt.Sprintf("blob@%d", uint64(id))
}

// SafeFormat implements redact.SafeFormatter.
func (id BlobID) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("blob@%d", redact.SafeUint(id))
}
