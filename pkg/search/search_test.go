package search

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sortdb/pkg/common"
	"sortdb/pkg/monitor"
	"sortdb/pkg/storage/recordfile"
)

const testRecordSize = 8

func key(v int64) []byte {
	b := make([]byte, testRecordSize)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func byValue(a, b []byte) int {
	x, y := int64(binary.LittleEndian.Uint64(a)), int64(binary.LittleEndian.Uint64(b))
	switch {
	case x < y:
		return common.Less
	case x > y:
		return common.Greater
	default:
		return common.Equal
	}
}

func writeSorted(t *testing.T, values ...int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sorted.dat")
	records := make([][]byte, len(values))
	for i, v := range values {
		records[i] = key(v)
	}
	if err := recordfile.WriteAll(path, testRecordSize, records); err != nil {
		t.Fatalf("write sorted file: %v", err)
	}
	return path
}

func TestRangeScenario(t *testing.T) {
	path := writeSorted(t, 1, 1, 2, 3, 3, 3)

	r, found, err := SearchRange(path, key(3), testRecordSize, byValue)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if !found {
		t.Fatal("expected key 3 to be found")
	}
	if r.Count != 3 || r.Start != 3 || r.End != 5 {
		t.Fatalf("expected count 3 at [3, 5], got %+v", r)
	}

	r, found, err = SearchRange(path, key(1), testRecordSize, byValue)
	if err != nil || !found {
		t.Fatalf("range for 1: found=%v err=%v", found, err)
	}
	if r.Count != 2 || r.Start != 0 || r.End != 1 {
		t.Fatalf("expected count 2 at [0, 1], got %+v", r)
	}
}

func TestPointSearchFindsEveryKey(t *testing.T) {
	values := []int64{-9, -4, 0, 2, 2, 5, 8, 13, 21, 34, 55}
	path := writeSorted(t, values...)

	f, err := Open(path, testRecordSize)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if f.Len() != int64(len(values)) {
		t.Fatalf("expected %d records, got %d", len(values), f.Len())
	}

	buf := make([]byte, testRecordSize)
	for _, v := range values {
		idx, found, err := f.Point(key(v), byValue)
		if err != nil {
			t.Fatalf("point %d: %v", v, err)
		}
		if !found {
			t.Fatalf("key %d not found", v)
		}
		if err := recordfile.ReadAt(f.file, idx, buf); err != nil {
			t.Fatalf("read index %d: %v", idx, err)
		}
		if byValue(key(v), buf) != 0 {
			t.Fatalf("key %d: index %d holds a different record", v, idx)
		}
	}

	for _, v := range []int64{-100, -5, 1, 3, 56, 1000} {
		if _, found, err := f.Point(key(v), byValue); err != nil || found {
			t.Fatalf("absent key %d: found=%v err=%v", v, found, err)
		}
	}
}

func TestRangeSpanningWholeFile(t *testing.T) {
	path := writeSorted(t, 7, 7, 7, 7)

	r, found, err := SearchRange(path, key(7), testRecordSize, byValue)
	if err != nil || !found {
		t.Fatalf("range: found=%v err=%v", found, err)
	}
	if r.Count != 4 || r.Start != 0 || r.End != 3 {
		t.Fatalf("expected whole file, got %+v", r)
	}
}

func TestEmptyAndSingleRecordFiles(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty.dat")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if _, found, err := SearchPoint(empty, key(1), testRecordSize, byValue); err != nil || found {
		t.Fatalf("empty file: found=%v err=%v", found, err)
	}
	if _, found, err := SearchRange(empty, key(1), testRecordSize, byValue); err != nil || found {
		t.Fatalf("empty file range: found=%v err=%v", found, err)
	}

	single := writeSorted(t, 42)
	idx, found, err := SearchPoint(single, key(42), testRecordSize, byValue)
	if err != nil || !found || idx != 0 {
		t.Fatalf("single record: idx=%d found=%v err=%v", idx, found, err)
	}
}

func TestSearchErrors(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := SearchPoint(filepath.Join(dir, "missing.dat"), key(1), testRecordSize, byValue); !errors.Is(err, common.ErrIO) {
		t.Fatalf("expected ErrIO for missing file, got %v", err)
	}
	if _, _, err := SearchRange(filepath.Join(dir, "missing.dat"), key(1), testRecordSize, byValue); !errors.Is(err, common.ErrIO) {
		t.Fatalf("expected ErrIO for missing file, got %v", err)
	}

	path := writeSorted(t, 1, 2)
	if _, err := Open(path, 0); !errors.Is(err, common.ErrAlloc) {
		t.Fatalf("expected ErrAlloc for record size 0, got %v", err)
	}
	if _, _, err := SearchPoint(path, []byte{1}, testRecordSize, byValue); !errors.Is(err, common.ErrAlloc) {
		t.Fatalf("expected ErrAlloc for short key, got %v", err)
	}
}

func TestComparisonsAreCounted(t *testing.T) {
	path := writeSorted(t, 1, 2, 3, 4, 5, 6, 7)

	f, err := Open(path, testRecordSize)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	f.Stats = monitor.NewSortStats()

	if _, found, err := f.Point(key(4), byValue); err != nil || !found {
		t.Fatalf("point: found=%v err=%v", found, err)
	}
	// The middle record of seven is probed first.
	if got := f.Stats.Snapshot().Comparisons; got != 1 {
		t.Fatalf("expected 1 comparison, got %d", got)
	}
}
