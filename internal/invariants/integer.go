// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package invariants switches blobheap's internal assertions on in builds
// tagged "invariants" or "race". Elsewhere the checks degrade to clamping or
// returning errors.
package invariants

// Unsigned is satisfied by the unsigned integer types used for page offsets,
// sizes and counters.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}
