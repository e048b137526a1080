// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobheap

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/cockroachdb/blobheap/internal/blobpage"
	"github.com/cockroachdb/blobheap/internal/pagecache"
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultPageSize        = 4096
	defaultCachePages      = 1024
	defaultBlobAlignment   = 8
	defaultReuseCandidates = 8
)

// Options holds the optional parameters for configuring a blob store. The
// zero value is usable; EnsureDefaults fills in the defaults.
type Options struct {
	// PageSize is the page size used when creating a new file. Existing files
	// keep the page size recorded in their header. Must be a power of two
	// between 1 KiB and 1 MiB.
	PageSize uint32

	// CachePages is the number of pages the page cache holds before evicting.
	CachePages int

	// BlobAlignment is the granularity of grouped blob allocations. Must be a
	// power of two.
	BlobAlignment uint32

	// MinFragmentSize is the smallest remainder of a freelist entry that is
	// kept as a free range after an allocation. Smaller remainders are
	// consumed with the allocation. Values below the size of a blob header are
	// raised to it.
	MinFragmentSize uint32

	// ReuseCandidates bounds the number of grouped pages, beyond the most
	// recently used one, that Allocate searches for free space.
	ReuseCandidates int

	// MaxFileSize bounds the size of the file. Zero means unbounded.
	MaxFileSize uint64

	// WriteBytesPerSec throttles device writes. Zero disables throttling.
	WriteBytesPerSec int64

	// UseMmap maps the file into memory, enabling zero-copy reads.
	UseMmap bool

	// InMemory selects the in-memory blob store. No file is used.
	InMemory bool

	// VerifyChecksums verifies page checksums when pages are loaded.
	VerifyChecksums bool

	// EventListener receives notifications of noteworthy events.
	EventListener *EventListener

	// Logger is used by the default event listener.
	Logger Logger

	// WriteLatency, if set, observes the latency in seconds of device writes
	// and syncs.
	WriteLatency prometheus.Histogram
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified. Returns the new options.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.PageSize == 0 {
		o.PageSize = defaultPageSize
	}
	if o.CachePages <= 0 {
		o.CachePages = defaultCachePages
	}
	if o.BlobAlignment == 0 {
		o.BlobAlignment = defaultBlobAlignment
	}
	if o.MinFragmentSize == 0 {
		o.MinFragmentSize = blobpage.DefaultMinFragmentSize
	}
	if o.ReuseCandidates <= 0 {
		o.ReuseCandidates = defaultReuseCandidates
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger
	}
	if o.EventListener == nil {
		l := MakeLoggingEventListener(o.Logger)
		o.EventListener = &l
	}
	o.EventListener.EnsureDefaults(o.Logger)
	return o
}

// Clone creates a shallow-copy of the supplied options.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}
	n := *o
	if o.EventListener != nil {
		l := *o.EventListener
		n.EventListener = &l
	}
	return &n
}

// Validate verifies that the options are mutually consistent. It presumes
// EnsureDefaults has been called.
func (o *Options) Validate() error {
	var buf strings.Builder
	if ps := o.PageSize; ps < pagecache.MinPageSize || ps > pagecache.MaxPageSize || ps&(ps-1) != 0 {
		fmt.Fprintf(&buf, "PageSize (%d) must be a power of two in [%s, %s]\n", ps,
			crhumanize.Bytes(pagecache.MinPageSize, crhumanize.Compact, crhumanize.OmitI),
			crhumanize.Bytes(pagecache.MaxPageSize, crhumanize.Compact, crhumanize.OmitI))
	}
	if a := o.BlobAlignment; a&(a-1) != 0 {
		fmt.Fprintf(&buf, "BlobAlignment (%d) must be a power of two\n", a)
	} else if o.PageSize > blobpage.PageOverhead && a > o.PageSize-blobpage.PageOverhead {
		fmt.Fprintf(&buf, "BlobAlignment (%d) must not exceed the page capacity\n", a)
	}
	if o.MaxFileSize != 0 && o.MaxFileSize < 2*uint64(o.PageSize) {
		fmt.Fprintf(&buf, "MaxFileSize (%d) must allow at least two pages of %d bytes\n",
			o.MaxFileSize, o.PageSize)
	}
	if o.WriteBytesPerSec < 0 {
		fmt.Fprintf(&buf, "WriteBytesPerSec (%d) must be >= 0\n", o.WriteBytesPerSec)
	}
	if o.InMemory && o.UseMmap {
		fmt.Fprintf(&buf, "UseMmap cannot be combined with InMemory\n")
	}
	if buf.Len() == 0 {
		return nil
	}
	return errors.Mark(errors.New(buf.String()), base.ErrInvalidParameter)
}

func (o *Options) String() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "[Version]\n")
	fmt.Fprintf(&buf, "  blobheap_version=%d\n", formatVersion)
	fmt.Fprintf(&buf, "\n")
	fmt.Fprintf(&buf, "[Options]\n")
	fmt.Fprintf(&buf, "  blob_alignment=%d\n", o.BlobAlignment)
	fmt.Fprintf(&buf, "  cache_pages=%d\n", o.CachePages)
	fmt.Fprintf(&buf, "  in_memory=%t\n", o.InMemory)
	fmt.Fprintf(&buf, "  max_file_size=%d\n", o.MaxFileSize)
	fmt.Fprintf(&buf, "  min_fragment_size=%d\n", o.MinFragmentSize)
	fmt.Fprintf(&buf, "  page_size=%d\n", o.PageSize)
	fmt.Fprintf(&buf, "  reuse_candidates=%d\n", o.ReuseCandidates)
	fmt.Fprintf(&buf, "  use_mmap=%t\n", o.UseMmap)
	fmt.Fprintf(&buf, "  verify_checksums=%t\n", o.VerifyChecksums)
	fmt.Fprintf(&buf, "  write_bytes_per_sec=%d\n", o.WriteBytesPerSec)
	return buf.String()
}

// formatVersion is the version written to the [Version] section of
// serialized options.
const formatVersion = 1

type parseOptionsFuncs struct {
	visitNewSection func(section string) error
	visitKeyValue   func(section, key, value string) error
}

// parseOptions takes options serialized by Options.String() and parses them
// into keys and values. Blank lines and lines starting with ';' or '#' are
// skipped.
func parseOptions(s string, fns parseOptionsFuncs) error {
	var section string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == ';' || line[0] == '#' {
			continue
		}
		n := len(line)
		if line[0] == '[' && line[n-1] == ']' {
			section = line[1 : n-1]
			if fns.visitNewSection != nil {
				if err := fns.visitNewSection(section); err != nil {
					return err
				}
			}
			continue
		}

		pos := strings.Index(line, "=")
		if pos < 0 {
			const maxLen = 50
			if len(line) > maxLen {
				line = line[:maxLen-3] + "..."
			}
			return base.CorruptionErrorf("invalid key=value syntax: %q", errors.Safe(line))
		}

		key := strings.TrimSpace(line[:pos])
		value := strings.TrimSpace(line[pos+1:])
		if fns.visitKeyValue != nil {
			if err := fns.visitKeyValue(section, key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Parse parses the options from the specified string, as produced by
// String. Unknown sections and keys are errors.
func (o *Options) Parse(s string) error {
	return parseOptions(s, parseOptionsFuncs{
		visitKeyValue: func(section, key, value string) error {
			switch section {
			case "Version":
				switch key {
				case "blobheap_version":
					v, err := strconv.Atoi(value)
					if err != nil {
						return errors.Errorf("blobheap: invalid value %q for %s", value, errors.Safe(key))
					}
					if v > formatVersion {
						return errors.Errorf("blobheap: unsupported options version %d", errors.Safe(v))
					}
					return nil
				}
			case "Options":
				var err error
				switch key {
				case "blob_alignment":
					o.BlobAlignment, err = parseUint32(value)
				case "cache_pages":
					o.CachePages, err = strconv.Atoi(value)
				case "in_memory":
					o.InMemory, err = strconv.ParseBool(value)
				case "max_file_size":
					o.MaxFileSize, err = strconv.ParseUint(value, 10, 64)
				case "min_fragment_size":
					o.MinFragmentSize, err = parseUint32(value)
				case "page_size":
					o.PageSize, err = parseUint32(value)
				case "reuse_candidates":
					o.ReuseCandidates, err = strconv.Atoi(value)
				case "use_mmap":
					o.UseMmap, err = strconv.ParseBool(value)
				case "verify_checksums":
					o.VerifyChecksums, err = strconv.ParseBool(value)
				case "write_bytes_per_sec":
					o.WriteBytesPerSec, err = strconv.ParseInt(value, 10, 64)
				default:
					return errors.Errorf("blobheap: unknown option: %s.%s",
						errors.Safe(section), errors.Safe(key))
				}
				if err != nil {
					return errors.Wrapf(err, "blobheap: invalid value for %s", errors.Safe(key))
				}
				return nil
			}
			return errors.Errorf("blobheap: unknown option: %s.%s",
				errors.Safe(section), errors.Safe(key))
		},
	})
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}
