// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build !unix

package device

// MmapDevice falls back to a plain file device on platforms without mmap.
type MmapDevice struct {
	*FileDevice
}

// OpenMmap opens the file at path. Nothing is mapped on this platform.
func OpenMmap(path string, create bool) (*MmapDevice, error) {
	fd, err := OpenFile(path, create)
	if err != nil {
		return nil, err
	}
	return &MmapDevice{FileDevice: fd}, nil
}
