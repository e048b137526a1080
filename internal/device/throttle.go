// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package device

import (
	"sync"
	"time"

	"github.com/cockroachdb/tokenbucket"
)

// WithWriteRate returns a Device that limits writes to dev to bytesPerSec
// bytes per second. Writes block until enough tokens are available.
func WithWriteRate(dev Device, bytesPerSec int64) *ThrottledDevice {
	d := &ThrottledDevice{Device: dev, burst: bytesPerSec}
	d.mu.limiter.Init(tokenbucket.TokensPerSecond(bytesPerSec), tokenbucket.Tokens(bytesPerSec))
	return d
}

// ThrottledDevice paces writes through a token bucket.
type ThrottledDevice struct {
	Device
	burst int64
	mu    struct {
		sync.Mutex
		limiter tokenbucket.TokenBucket
	}
}

// Unwrap implements Wrapper.
func (d *ThrottledDevice) Unwrap() Device {
	return d.Device
}

// WriteAt implements io.WriterAt.
func (d *ThrottledDevice) WriteAt(p []byte, off int64) (int, error) {
	// Requests larger than the burst are split so that each one can be
	// fulfilled by a full bucket.
	for rem := int64(len(p)); rem > 0; rem -= d.burst {
		d.wait(min(rem, d.burst))
	}
	return d.Device.WriteAt(p, off)
}

func (d *ThrottledDevice) wait(n int64) {
	for {
		d.mu.Lock()
		ok, wait := d.mu.limiter.TryToFulfill(tokenbucket.Tokens(n))
		d.mu.Unlock()
		if ok {
			return
		}
		time.Sleep(wait)
	}
}
