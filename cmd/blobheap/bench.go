// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cockroachdb/blobheap"
	"github.com/cockroachdb/errors"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

var benchConfig struct {
	concurrency  int
	duration     time.Duration
	ops          int64
	sizes        string
	readPercent  int
	erasePercent int
	seed         uint64
	wipe         bool
}

var benchCmd = &cobra.Command{
	Use:   "bench <file>",
	Short: "run a random allocate/read/erase workload against a blob file",
	Long: `
Run a random workload of allocations, reads and erasures. Each worker keeps
its own set of live blobs. Latencies are printed every second, followed by a
summary and a plot of the throughput.
`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	flags := benchCmd.Flags()
	flags.IntVarP(
		&benchConfig.concurrency, "concurrency", "c", 1, "number of concurrent workers")
	flags.DurationVarP(
		&benchConfig.duration, "duration", "d", 10*time.Second, "the duration to run (0, run forever)")
	flags.Int64VarP(
		&benchConfig.ops, "ops", "n", 0, "total number of operations (0, unlimited)")
	flags.StringVar(
		&benchConfig.sizes, "sizes", "uniform:64-1024",
		"blob size distribution [{zipf,uniform}:]min[-max]")
	flags.IntVar(
		&benchConfig.readPercent, "read-percent", 50, "percentage of operations that read a blob")
	flags.IntVar(
		&benchConfig.erasePercent, "erase-percent", 20, "percentage of operations that erase a blob")
	flags.Uint64Var(
		&benchConfig.seed, "seed", 1, "random seed")
	flags.BoolVar(
		&benchConfig.wipe, "wipe", false, "remove the file before starting")
	flags.BoolVar(
		&inMemory, "mem", false, "run against an in-memory store")
}

const (
	minLatency = 10 * time.Microsecond
	maxLatency = 10 * time.Second
)

var sizeSpecRE = regexp.MustCompile(`^(?:(uniform|zipf):)?(\d+)(?:-(\d+))?$`)

// sizeDist generates blob sizes. Implementations are not safe for concurrent
// use.
type sizeDist interface {
	Uint64(rng *rand.Rand) uint64
}

type uniformSize struct {
	min, max uint64
}

func (u uniformSize) Uint64(rng *rand.Rand) uint64 {
	return u.min + rng.Uint64n(u.max-u.min+1)
}

type zipfSize struct {
	min, max uint64
}

func (z zipfSize) Uint64(rng *rand.Rand) uint64 {
	return z.min + rand.NewZipf(rng, 1.1, 1, z.max-z.min).Uint64()
}

func parseSizeSpec(d string) (sizeDist, error) {
	m := sizeSpecRE.FindStringSubmatch(d)
	if m == nil {
		return nil, errors.Errorf("invalid size spec: %s", d)
	}
	min, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return nil, err
	}
	max := min
	if m[3] != "" {
		if max, err = strconv.ParseUint(m[3], 10, 64); err != nil {
			return nil, err
		}
	}
	if max < min {
		return nil, errors.Errorf("invalid size spec: %s: max < min", d)
	}
	switch strings.ToLower(m[1]) {
	case "", "uniform":
		return uniformSize{min: min, max: max}, nil
	case "zipf":
		if max == min {
			return uniformSize{min: min, max: max}, nil
		}
		return zipfSize{min: min, max: max}, nil
	default:
		return nil, errors.Errorf("unknown distribution: %s", m[1])
	}
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatency.Nanoseconds(), maxLatency.Nanoseconds(), 1)
}

type namedHistogram struct {
	name string
	mu   struct {
		sync.Mutex
		current *hdrhistogram.Histogram
	}
}

func (w *namedHistogram) Record(elapsed time.Duration) {
	elapsed = min(max(elapsed, minLatency), maxLatency)
	w.mu.Lock()
	err := w.mu.current.RecordValue(elapsed.Nanoseconds())
	w.mu.Unlock()
	if err != nil {
		panic(fmt.Sprintf(`%s: recording value: %s`, w.name, err))
	}
}

func (w *namedHistogram) tick() *hdrhistogram.Histogram {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := w.mu.current
	w.mu.current = newHistogram()
	return h
}

type histogramTick struct {
	Name       string
	Hist       *hdrhistogram.Histogram
	Cumulative *hdrhistogram.Histogram
	Elapsed    time.Duration
}

// histogramRegistry merges the per-worker histograms of each operation type.
type histogramRegistry struct {
	mu struct {
		sync.Mutex
		registered []*namedHistogram
	}
	cumulative map[string]*hdrhistogram.Histogram
	prevTick   time.Time
}

func newHistogramRegistry() *histogramRegistry {
	return &histogramRegistry{
		cumulative: make(map[string]*hdrhistogram.Histogram),
		prevTick:   time.Now(),
	}
}

func (r *histogramRegistry) Register(name string) *namedHistogram {
	h := &namedHistogram{name: name}
	h.mu.current = newHistogram()
	r.mu.Lock()
	r.mu.registered = append(r.mu.registered, h)
	r.mu.Unlock()
	return h
}

func (r *histogramRegistry) Tick(fn func(histogramTick)) {
	r.mu.Lock()
	registered := append([]*namedHistogram(nil), r.mu.registered...)
	r.mu.Unlock()

	merged := make(map[string]*hdrhistogram.Histogram)
	var names []string
	for _, h := range registered {
		cur := h.tick()
		if m, ok := merged[h.name]; ok {
			m.Merge(cur)
		} else {
			merged[h.name] = cur
			names = append(names, h.name)
		}
	}
	now := time.Now()
	elapsed := now.Sub(r.prevTick)
	r.prevTick = now
	sort.Strings(names)
	for _, name := range names {
		if _, ok := r.cumulative[name]; !ok {
			r.cumulative[name] = newHistogram()
		}
		r.cumulative[name].Merge(merged[name])
		fn(histogramTick{
			Name:       name,
			Hist:       merged[name],
			Cumulative: r.cumulative[name],
			Elapsed:    elapsed,
		})
	}
}

type benchWorker struct {
	store blobheap.BlobStore
	// mu serializes mutations. Reads share it.
	mu     *sync.RWMutex
	rng    *rand.Rand
	sizes  sizeDist
	live   []blobheap.BlobID
	buf    []byte
	remain *atomic.Int64
	bytes  *atomic.Int64
	alloc  *namedHistogram
	read   *namedHistogram
	erase  *namedHistogram
	txnID  uint64
}

func (w *benchWorker) run(ctx context.Context) error {
	for ctx.Err() == nil {
		if w.remain != nil && w.remain.Add(-1) < 0 {
			return nil
		}
		if err := w.step(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (w *benchWorker) step(ctx context.Context) error {
	bctx := blobheap.NewContext(ctx, w.txnID)
	defer bctx.Close()

	p := w.rng.Intn(100)
	switch {
	case len(w.live) > 0 && p < benchConfig.readPercent:
		id := w.live[w.rng.Intn(len(w.live))]
		start := time.Now()
		w.mu.RLock()
		rec, _, err := w.store.Read(bctx, id, blobheap.Record{}, 0, nil)
		w.mu.RUnlock()
		if err != nil {
			return errors.Wrapf(err, "reading %s", id)
		}
		w.read.Record(time.Since(start))
		w.bytes.Add(int64(len(rec.Data)))

	case len(w.live) > 0 && p < benchConfig.readPercent+benchConfig.erasePercent:
		i := w.rng.Intn(len(w.live))
		id := w.live[i]
		start := time.Now()
		w.mu.Lock()
		err := w.store.Erase(bctx, id, 0)
		w.mu.Unlock()
		if err != nil {
			return errors.Wrapf(err, "erasing %s", id)
		}
		w.erase.Record(time.Since(start))
		w.live[i] = w.live[len(w.live)-1]
		w.live = w.live[:len(w.live)-1]

	default:
		n := w.sizes.Uint64(w.rng)
		if uint64(cap(w.buf)) < n {
			w.buf = make([]byte, n)
		}
		data := w.buf[:n]
		w.rng.Read(data)
		start := time.Now()
		w.mu.Lock()
		id, err := w.store.Allocate(bctx, blobheap.Record{Data: data}, 0)
		w.mu.Unlock()
		if err != nil {
			return errors.Wrapf(err, "allocating %d bytes", n)
		}
		w.alloc.Record(time.Since(start))
		w.bytes.Add(int64(n))
		w.live = append(w.live, id)
	}
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()
	if benchConfig.readPercent+benchConfig.erasePercent > 100 {
		return errors.New("read-percent and erase-percent exceed 100")
	}
	sizes, err := parseSizeSpec(benchConfig.sizes)
	if err != nil {
		return err
	}
	if benchConfig.wipe && !inMemory {
		fmt.Fprintf(out, "wiping %s\n", path)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	s, err := openStore(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "file %s\nconcurrency %d\n", path, benchConfig.concurrency)

	ctx := context.Background()
	if benchConfig.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, benchConfig.duration)
		defer cancel()
	}

	reg := newHistogramRegistry()
	var mu sync.RWMutex
	var bytes atomic.Int64
	var remain *atomic.Int64
	if benchConfig.ops > 0 {
		remain = new(atomic.Int64)
		remain.Store(benchConfig.ops)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < benchConfig.concurrency; i++ {
		w := &benchWorker{
			store:  s,
			mu:     &mu,
			rng:    rand.New(rand.NewSource(benchConfig.seed + uint64(i))),
			sizes:  sizes,
			remain: remain,
			bytes:  &bytes,
			alloc:  reg.Register("alloc"),
			read:   reg.Register("read"),
			erase:  reg.Register("erase"),
			txnID:  uint64(i + 1),
		}
		g.Go(func() error { return w.run(gctx) })
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	start := time.Now()
	var opsPerSec []float64
	var runErr error
	for i := 0; ; i++ {
		select {
		case <-ticker.C:
			if i%20 == 0 {
				fmt.Fprintln(out, "_elapsed____optype__ops/sec__p50(ms)__p95(ms)__p99(ms)_pMax(ms)")
			}
			var total int64
			reg.Tick(func(tick histogramTick) {
				h := tick.Hist
				total += h.TotalCount()
				printTick(out, time.Since(start), tick.Name,
					float64(h.TotalCount())/tick.Elapsed.Seconds(), h)
			})
			opsPerSec = append(opsPerSec, float64(total))
			continue
		case runErr = <-done:
		}
		break
	}
	elapsed := time.Since(start)

	fmt.Fprintln(out, "\n_elapsed____optype_____ops(total)__ops/sec__p50(ms)__p95(ms)__p99(ms)_pMax(ms)")
	reg.Tick(func(tick histogramTick) {
		h := tick.Cumulative
		fmt.Fprintf(out, "%8s %9s %14d %8.1f %8.1f %8.1f %8.1f %8.1f\n",
			elapsed.Truncate(time.Second), tick.Name, h.TotalCount(),
			float64(h.TotalCount())/elapsed.Seconds(),
			ms(h.ValueAtQuantile(50)), ms(h.ValueAtQuantile(95)),
			ms(h.ValueAtQuantile(99)), ms(h.ValueAtQuantile(100)))
	})
	fmt.Fprintf(out, "\n%.1f MB/s\n", float64(bytes.Load())/(1<<20)/elapsed.Seconds())
	if len(opsPerSec) > 1 {
		fmt.Fprintf(out, "\nops/sec\n%s\n", asciigraph.Plot(opsPerSec, asciigraph.Height(10)))
	}
	m := s.Metrics()
	fmt.Fprintf(out, "\n%s\n", &m)

	return errors.CombineErrors(runErr, s.Close())
}

func printTick(
	out io.Writer, elapsed time.Duration, name string, rate float64, h *hdrhistogram.Histogram,
) {
	fmt.Fprintf(out, "%8s %9s %8.1f %8.1f %8.1f %8.1f %8.1f\n",
		elapsed.Truncate(time.Second), name, rate,
		ms(h.ValueAtQuantile(50)), ms(h.ValueAtQuantile(95)),
		ms(h.ValueAtQuantile(99)), ms(h.ValueAtQuantile(100)))
}

func ms(nanos int64) float64 {
	return time.Duration(nanos).Seconds() * 1000
}
