// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/cockroachdb/blobheap"
	"github.com/cockroachdb/blobheap/internal/base"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	pageSize     uint32
	cachePages   int
	maxFileSize  uint64
	useMmap      bool
	noChecksums  bool
	verbose      bool
	writeRate    int64
	inMemory     bool
)

var rootCmd = &cobra.Command{
	Use:   "blobheap [command] (flags)",
	Short: "blobheap blob file introspection and benchmarking tool",
	Long:  ``,
	// Errors are reported by main.
	SilenceUsage: true,
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		putCmd,
		getCmd,
		rmCmd,
		statCmd,
		pagesCmd,
		checkCmd,
		benchCmd,
	)

	flags := rootCmd.PersistentFlags()
	flags.Uint32Var(
		&pageSize, "page-size", 4096, "page size used when creating a file")
	flags.IntVar(
		&cachePages, "cache-pages", 1024, "number of pages held by the page cache")
	flags.Uint64Var(
		&maxFileSize, "max-file-size", 0, "maximum file size in bytes (0 means unbounded)")
	flags.BoolVar(
		&useMmap, "mmap", false, "memory-map the file")
	flags.BoolVar(
		&noChecksums, "no-checksums", false, "skip page checksum verification")
	flags.Int64Var(
		&writeRate, "write-rate", 0, "device write rate limit in bytes/sec (0 means unlimited)")
	flags.BoolVarP(
		&verbose, "verbose", "v", false, "enable verbose event logging")
}

func main() {
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}

func newLogger(path string) blobheap.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.InfoLevel)
	}
	return base.NewLogrusLogger(l).WithFields("file", path)
}

func storeOptions(path string) *blobheap.Options {
	logger := newLogger(path)
	el := blobheap.MakeLoggingEventListener(logger)
	return &blobheap.Options{
		PageSize:         pageSize,
		CachePages:       cachePages,
		MaxFileSize:      maxFileSize,
		UseMmap:          useMmap,
		VerifyChecksums:  !noChecksums,
		WriteBytesPerSec: writeRate,
		InMemory:         inMemory,
		Logger:           logger,
		EventListener:    &el,
	}
}

func openStore(path string) (blobheap.BlobStore, error) {
	return blobheap.Open(path, storeOptions(path))
}
