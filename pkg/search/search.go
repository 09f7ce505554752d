package search

import (
	"fmt"
	"os"
	"sortdb/pkg/common"
	"sortdb/pkg/monitor"
	"sortdb/pkg/storage/recordfile"
)

// Range is an inclusive span [Start, End] of Count equal records.
type Range struct {
	Count int64
	Start int64
	End   int64
}

// File is a sorted record file opened for repeated lookups. The file must
// already be sorted by the comparator used to search it; this is not
// checked. The comparator is always called as cmp(key, record).
type File struct {
	file       *os.File
	recordSize int
	total      int64
	buf        []byte
	Stats      *monitor.SortStats
}

func Open(path string, recordSize int) (*File, error) {
	if err := common.CheckRecordSize(recordSize); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, common.IOErr("search: open", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, common.IOErr("search: stat", err)
	}
	return &File{
		file:       f,
		recordSize: recordSize,
		total:      st.Size() / int64(recordSize),
		buf:        make([]byte, recordSize),
	}, nil
}

// Len is the number of whole records in the file.
func (f *File) Len() int64 {
	return f.total
}

// Point runs a bounded binary search for key. It reports the index of one
// matching record, or found == false when no record matches.
func (f *File) Point(key []byte, cmp common.Comparator) (int64, bool, error) {
	if len(key) != f.recordSize {
		return 0, false, fmt.Errorf("%w: search key of %d bytes for %d byte records", common.ErrAlloc, len(key), f.recordSize)
	}

	lo, hi := int64(0), f.total-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if err := recordfile.ReadAt(f.file, mid, f.buf); err != nil {
			return 0, false, err
		}
		f.Stats.RecordComparison()
		switch c := cmp(key, f.buf); {
		case c == 0:
			return mid, true, nil
		case c < 0:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}
	return 0, false, nil
}

// Range finds one match with Point and then widens it in both directions
// while records still compare equal to key.
func (f *File) Range(key []byte, cmp common.Comparator) (Range, bool, error) {
	pos, found, err := f.Point(key, cmp)
	if err != nil || !found {
		return Range{}, found, err
	}

	start := pos
	for start > 0 {
		eq, err := f.equalAt(key, start-1, cmp)
		if err != nil {
			return Range{}, false, err
		}
		if !eq {
			break
		}
		start--
	}

	end := pos
	for end < f.total-1 {
		eq, err := f.equalAt(key, end+1, cmp)
		if err != nil {
			return Range{}, false, err
		}
		if !eq {
			break
		}
		end++
	}

	return Range{Count: end - start + 1, Start: start, End: end}, true, nil
}

func (f *File) equalAt(key []byte, index int64, cmp common.Comparator) (bool, error) {
	if err := recordfile.ReadAt(f.file, index, f.buf); err != nil {
		return false, err
	}
	f.Stats.RecordComparison()
	return cmp(key, f.buf) == 0, nil
}

func (f *File) Close() error {
	if err := f.file.Close(); err != nil {
		return common.IOErr("search: close", err)
	}
	return nil
}

// SearchPoint opens path, looks up key once and closes the file.
func SearchPoint(path string, key []byte, recordSize int, cmp common.Comparator) (int64, bool, error) {
	f, err := Open(path, recordSize)
	if err != nil {
		return 0, false, err
	}
	defer f.Close()
	return f.Point(key, cmp)
}

// SearchRange opens path, finds the run of records equal to key and closes
// the file.
func SearchRange(path string, key []byte, recordSize int, cmp common.Comparator) (Range, bool, error) {
	f, err := Open(path, recordSize)
	if err != nil {
		return Range{}, false, err
	}
	defer f.Close()
	return f.Range(key, cmp)
}
