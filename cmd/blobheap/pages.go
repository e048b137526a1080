// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/blobheap"
	"github.com/cockroachdb/blobheap/internal/pagecache"
	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <file>",
	Short: "print the pages of a blob file",
	Long: `
Print one row per page of the file. Overflow runs are printed once, with the
number of pages in the run.
`,
	Args: cobra.ExactArgs(1),
	RunE: runPages,
}

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "verify the page headers and freelists of a blob file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func inspector(s blobheap.BlobStore) (blobheap.Inspector, error) {
	in, ok := s.(blobheap.Inspector)
	if !ok {
		return nil, errors.New("store cannot be inspected")
	}
	return in, nil
}

func runPages(cmd *cobra.Command, args []string) error {
	return withStore(args[0], func(s blobheap.BlobStore, _ *blobheap.Context) error {
		in, err := inspector(s)
		if err != nil {
			return err
		}
		infos, err := in.Inspect()
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Address", "Kind", "Pages", "Free", "Entries", "Blob Size", "LSN"})
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		for _, info := range infos {
			pages, free, entries, size := "1", "", "", ""
			switch {
			case info.Kind != pagecache.KindBlob:
			case info.NumPages > 0:
				pages = strconv.FormatUint(uint64(info.NumPages), 10)
				size = strconv.FormatUint(info.BlobSize, 10)
			default:
				free = strconv.FormatUint(uint64(info.FreeBytes), 10)
				entries = strconv.Itoa(info.FreelistEntries)
			}
			table.Append([]string{
				strconv.FormatUint(info.Address, 10),
				info.Kind.String(),
				pages,
				free,
				entries,
				size,
				strconv.FormatUint(info.LSN, 10),
			})
		}
		table.Render()
		return nil
	})
}

func runCheck(cmd *cobra.Command, args []string) error {
	return withStore(args[0], func(s blobheap.BlobStore, _ *blobheap.Context) error {
		in, err := inspector(s)
		if err != nil {
			return err
		}
		if err := in.Check(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok\n")
		return nil
	})
}
