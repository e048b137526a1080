// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/blobheap"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <file> [<src>]",
	Short: "store the contents of src (or stdin) as a blob",
	Long: `
Store the contents of src, or of stdin if src is omitted, as a new blob and
print its ID. With --replace the blob is overwritten instead; the printed ID
differs from the replaced one if the blob moved.
`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPut,
}

var getCmd = &cobra.Command{
	Use:   "get <file> <id>",
	Short: "write the payload of a blob to stdout",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

var rmCmd = &cobra.Command{
	Use:   "rm <file> <id>...",
	Short: "erase blobs",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRm,
}

var statCmd = &cobra.Command{
	Use:   "stat <file> [<id>...]",
	Short: "print blob sizes, or the store metrics if no ID is given",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStat,
}

var (
	putReplace string
	putForce   bool
	getOffset  uint64
	getLength  int64
)

func init() {
	putCmd.Flags().StringVar(
		&putReplace, "replace", "", "ID of a blob to overwrite")
	putCmd.Flags().BoolVar(
		&putForce, "force", false, "always move the blob when replacing")
	getCmd.Flags().Uint64Var(
		&getOffset, "offset", 0, "offset of the first byte to read")
	getCmd.Flags().Int64Var(
		&getLength, "length", -1, "number of bytes to read (-1 reads to the end)")
}

// parseBlobID accepts both a bare file offset and the blob@<offset> form
// printed by the tool.
func parseBlobID(s string) (blobheap.BlobID, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "blob@"), 10, 64)
	if err != nil {
		return blobheap.InvalidBlobID, errors.Wrapf(err, "invalid blob ID %q", s)
	}
	return blobheap.BlobID(v), nil
}

// withStore opens the store at path, runs fn and closes the store, flushing
// any modifications.
func withStore(path string, fn func(s blobheap.BlobStore, ctx *blobheap.Context) error) (err error) {
	s, err := openStore(path)
	if err != nil {
		return err
	}
	ctx := blobheap.NewContext(context.Background(), 1)
	defer func() {
		ctx.Close()
		err = errors.CombineErrors(err, s.Close())
	}()
	return fn(s, ctx)
}

func runPut(cmd *cobra.Command, args []string) error {
	var src io.Reader = cmd.InOrStdin()
	if len(args) == 2 {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	return withStore(args[0], func(s blobheap.BlobStore, ctx *blobheap.Context) error {
		var id blobheap.BlobID
		if putReplace != "" {
			old, err := parseBlobID(putReplace)
			if err != nil {
				return err
			}
			var flags blobheap.Flags
			if putForce {
				flags |= blobheap.ForceReallocate
			}
			if id, err = s.Overwrite(ctx, old, blobheap.Record{Data: data}, flags); err != nil {
				return err
			}
		} else if id, err = s.Allocate(ctx, blobheap.Record{Data: data}, 0); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", id)
		return nil
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := parseBlobID(args[1])
	if err != nil {
		return err
	}
	return withStore(args[0], func(s blobheap.BlobStore, ctx *blobheap.Context) error {
		var rec blobheap.Record
		var flags blobheap.Flags
		if getOffset != 0 || getLength >= 0 {
			flags |= blobheap.Partial
			rec.PartialOffset = getOffset
			rec.PartialSize = uint64(getLength)
			if getLength < 0 {
				size, err := s.GetBlobSize(ctx, id)
				if err != nil {
					return err
				}
				rec.PartialSize = size
			}
		}
		rec, _, err := s.Read(ctx, id, rec, flags, nil)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(rec.Data)
		return err
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	ids := make([]blobheap.BlobID, 0, len(args)-1)
	for _, arg := range args[1:] {
		id, err := parseBlobID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return withStore(args[0], func(s blobheap.BlobStore, ctx *blobheap.Context) error {
		for _, id := range ids {
			if err := s.Erase(ctx, id, 0); err != nil {
				return err
			}
		}
		return nil
	})
}

func runStat(cmd *cobra.Command, args []string) error {
	return withStore(args[0], func(s blobheap.BlobStore, ctx *blobheap.Context) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			m := s.Metrics()
			fmt.Fprintf(out, "%s\n", &m)
			return nil
		}
		for _, arg := range args[1:] {
			id, err := parseBlobID(arg)
			if err != nil {
				return err
			}
			size, err := s.GetBlobSize(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d bytes\n", id, size)
		}
		return nil
	})
}
