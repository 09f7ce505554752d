package main

import (
	"os"
	"testing"

	"sortdb/pkg/common"
)

func TestBenchmarkProducesMatchingResults(t *testing.T) {
	base := t.TempDir()
	results, err := benchmark(base, options{n: 50, size: 16, seed: 7, quiet: true})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	if len(results) != 2 || results[0].Records != 50 || results[1].Records != 50 {
		t.Fatalf("unexpected results %+v", results)
	}
	assertEmpty(t, base)
}

func TestBenchmarkFailureRemovesScratchDir(t *testing.T) {
	base := t.TempDir()
	if _, err := benchmark(base, options{n: 10, size: common.MaxRecordSize + 1, quiet: true}); err == nil {
		t.Fatal("expected error for oversized records")
	}
	assertEmpty(t, base)
}

func assertEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch directory left behind: %v", entries)
	}
}
