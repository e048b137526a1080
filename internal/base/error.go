// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "github.com/cockroachdb/errors"

// ErrCorruption is a marker to indicate that a page or blob header isn't in
// the expected format.
var ErrCorruption = errors.New("blobheap: corruption")

// ErrResourceExhausted is a marker to indicate that a page or device
// allocation could not be satisfied.
var ErrResourceExhausted = errors.New("blobheap: resource exhausted")

// ErrIntegrityViolation is a marker to indicate that a blob page freelist
// failed its consistency check.
var ErrIntegrityViolation = errors.New("blobheap: integrity violation")

// ErrBlobNotFound means that a read, overwrite or erase referenced a blob ID
// that does not (or no longer) identify a live blob.
var ErrBlobNotFound = errors.New("blobheap: blob not found")

// ErrInvalidParameter is returned for malformed arguments such as a zero blob
// ID or an out-of-range partial offset.
var ErrInvalidParameter = errors.New("blobheap: invalid parameter")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("blobheap: closed")

// MarkCorruptionError marks given error as a corruption error.
func MarkCorruptionError(err error) error {
	if errors.Is(err, ErrCorruption) {
		return err
	}
	return errors.Mark(err, ErrCorruption)
}

// IsCorruptionError returns true if the given error indicates corruption.
func IsCorruptionError(err error) bool {
	return errors.Is(err, ErrCorruption)
}

// CorruptionErrorf formats according to a format specifier and returns
// the string as an error value that is marked as a corruption error.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// ResourceExhaustedErrorf formats according to a format specifier and returns
// the string as an error value that is marked as a resource exhaustion error.
func ResourceExhaustedErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrResourceExhausted)
}

// IsResourceExhausted returns true if the given error indicates that an
// allocation could not be satisfied.
func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}

// IntegrityViolationf formats according to a format specifier and returns
// the string as an error value that is marked as an integrity violation.
func IntegrityViolationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrIntegrityViolation)
}

// IsIntegrityViolation returns true if the given error was produced by a
// failed freelist consistency check.
func IsIntegrityViolation(err error) bool {
	return errors.Is(err, ErrIntegrityViolation)
}
