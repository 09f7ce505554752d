package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sortdb/pkg/monitor"
	"sortdb/pkg/sorter"
	"sortdb/pkg/storage/recordfile"
	"time"
)

type result struct {
	Algorithm string           `json:"algorithm"`
	Records   int64            `json:"records"`
	Elapsed   time.Duration    `json:"elapsed_ns"`
	Stats     monitor.Snapshot `json:"stats"`
}

type options struct {
	n          int
	size       int
	seed       int64
	skipBubble bool
	quiet      bool
}

func main() {
	n := flag.Int("n", 2000, "Number of records")
	size := flag.Int("size", 64, "Record size in bytes (>= 8)")
	seed := flag.Int64("seed", 42, "Random seed")
	skipBubble := flag.Bool("skip-bubble", false, "Only run merge sort (bubble sort is O(n^2))")
	asJSON := flag.Bool("json", false, "Print results as JSON")
	flag.Parse()

	if *size < 8 {
		log.Fatalf("record size must be at least 8, got %d", *size)
	}

	opts := options{n: *n, size: *size, seed: *seed, skipBubble: *skipBubble, quiet: *asJSON}
	results, err := benchmark("", opts)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(results)
		return
	}

	fmt.Println("---------------------------------------------------")
	if len(results) == 2 {
		speedup := results[1].Elapsed.Seconds() / results[0].Elapsed.Seconds()
		fmt.Printf("Conclusion: Merge sort is %.2fx faster than bubble sort, outputs identical.\n", speedup)
	}
}

// benchmark runs the sorts in a scratch directory under base, which is
// removed before it returns.
func benchmark(base string, opts options) ([]result, error) {
	dir, err := os.MkdirTemp(base, "sortdb_bench_*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input.dat")
	if err := generate(src, opts.n, opts.size, opts.seed); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	if !opts.quiet {
		fmt.Printf("SortDB Sort Benchmark (N=%d, record=%dB)\n", opts.n, opts.size)
		fmt.Println("---------------------------------------------------")
	}

	var results []result
	algos := []sorter.Algorithm{sorter.Merge, sorter.Bubble}
	if opts.skipBubble {
		algos = algos[:1]
	}
	for _, algo := range algos {
		if !opts.quiet {
			fmt.Printf(">> Starting %s sort...\n", algo.Title())
		}
		res, err := run(algo, src, filepath.Join(dir, string(algo)+".dat"), opts.size)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		if !opts.quiet {
			fmt.Printf("   Time: %v | Comparisons: %d | Node reads: %d | Node writes: %d\n\n",
				res.Elapsed, res.Stats.Comparisons, res.Stats.NodeReads, res.Stats.NodeWrites)
		}
	}

	if len(results) == 2 {
		a, errA := os.ReadFile(filepath.Join(dir, "merge.dat"))
		b, errB := os.ReadFile(filepath.Join(dir, "bubble.dat"))
		if errA != nil || errB != nil {
			return nil, fmt.Errorf("read outputs: %v, %v", errA, errB)
		}
		if !bytes.Equal(a, b) {
			return nil, errors.New("merge and bubble outputs differ")
		}
	}
	return results, nil
}

func generate(path string, n, size int, seed int64) error {
	w, err := recordfile.Create(path, size)
	if err != nil {
		return err
	}
	r := rand.New(rand.NewSource(seed))
	rec := make([]byte, size)
	for i := 0; i < n; i++ {
		r.Read(rec)
		binary.LittleEndian.PutUint64(rec, uint64(r.Int63n(int64(n))))
		if err := w.Append(rec); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func byKey(a, b []byte) int {
	x, y := int64(binary.LittleEndian.Uint64(a)), int64(binary.LittleEndian.Uint64(b))
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func run(algo sorter.Algorithm, src, dst string, size int) (result, error) {
	stats := monitor.NewSortStats()
	opts := sorter.DefaultOptions()
	opts.Stats = stats
	opts.ProgressEvery = 0

	start := time.Now()
	count, err := sorter.Sort(algo, src, dst, size, byKey, opts)
	if err != nil {
		return result{}, fmt.Errorf("%s sort: %w", algo.Title(), err)
	}
	return result{
		Algorithm: string(algo),
		Records:   count,
		Elapsed:   time.Since(start),
		Stats:     stats.Snapshot(),
	}, nil
}
