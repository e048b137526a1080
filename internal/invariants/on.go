// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build invariants || race

package invariants

import "fmt"

// Enabled reports whether assertions are compiled in.
const Enabled = true

// SafeSub returns a - b, panicking on underflow.
func SafeSub[T Unsigned](a, b T) T {
	if a < b {
		panic(fmt.Sprintf("underflow: %d - %d", a, b))
	}
	return a - b
}

// MaybeFail panics if err is non-nil.
func MaybeFail(err error) error {
	if err != nil {
		panic(err)
	}
	return nil
}
