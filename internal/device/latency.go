// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package device

import (
	"github.com/cockroachdb/crlib/crtime"
	"github.com/prometheus/client_golang/prometheus"
)

// WithWriteLatency returns a Device that records the latency, in seconds, of
// every write and sync on dev into hist.
func WithWriteLatency(dev Device, hist prometheus.Histogram) *LatencyDevice {
	return &LatencyDevice{Device: dev, hist: hist}
}

// LatencyDevice observes write latencies.
type LatencyDevice struct {
	Device
	hist prometheus.Histogram
}

// Unwrap implements Wrapper.
func (d *LatencyDevice) Unwrap() Device {
	return d.Device
}

// WriteAt implements io.WriterAt.
func (d *LatencyDevice) WriteAt(p []byte, off int64) (int, error) {
	start := crtime.NowMono()
	n, err := d.Device.WriteAt(p, off)
	d.hist.Observe(start.Elapsed().Seconds())
	return n, err
}

// Sync implements Device.
func (d *LatencyDevice) Sync() error {
	start := crtime.NowMono()
	err := d.Device.Sync()
	d.hist.Observe(start.Elapsed().Seconds())
	return err
}
