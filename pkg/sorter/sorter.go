package sorter

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sortdb/pkg/common"
	"sortdb/pkg/monitor"
	"sortdb/pkg/storage/listfile"
	"strings"
	"time"
)

type Algorithm string

const (
	Bubble Algorithm = "bubble"
	Merge  Algorithm = "merge"
)

func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case Bubble:
		return Bubble, nil
	case Merge:
		return Merge, nil
	default:
		return "", fmt.Errorf("unknown sort algorithm %q (want bubble or merge)", s)
	}
}

// Title is the capitalised name used in generated file names.
func (a Algorithm) Title() string {
	if a == "" {
		return ""
	}
	return strings.ToUpper(string(a[:1])) + string(a[1:])
}

type Options struct {
	TempDir        string // where the temporary list file lives; "" means os.TempDir()
	MaxMergePasses int
	ProgressEvery  int64 // bubble sort progress line every N passes; 0 disables
	Stats          *monitor.SortStats
}

func DefaultOptions() Options {
	return Options{
		MaxMergePasses: 64,
		ProgressEvery:  100,
	}
}

// SortBubble sorts the records of src into dst with the bubble sort engine
// and returns the number of records written.
func SortBubble(src, dst string, recordSize int, cmp common.Comparator) (int64, error) {
	return Sort(Bubble, src, dst, recordSize, cmp, DefaultOptions())
}

// SortMerge sorts the records of src into dst with the merge sort engine
// and returns the number of records written.
func SortMerge(src, dst string, recordSize int, cmp common.Comparator) (int64, error) {
	return Sort(Merge, src, dst, recordSize, cmp, DefaultOptions())
}

// Sort converts src into a temporary list file, sorts the list with algo,
// and flattens it into dst. The list file is always removed. When Sort
// fails dst is removed as well and must be treated as absent.
func Sort(algo Algorithm, src, dst string, recordSize int, cmp common.Comparator, opts Options) (count int64, err error) {
	if cmp == nil {
		return 0, errors.New("sorter: nil comparator")
	}
	if algo != Bubble && algo != Merge {
		return 0, fmt.Errorf("sorter: unknown algorithm %q", algo)
	}
	if err := common.CheckRecordSize(recordSize); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(opts.TempDir, string(algo)+"_list_*.dat")
	if err != nil {
		return 0, common.IOErr("sorter: create temp list", err)
	}
	listPath := tmp.Name()
	tmp.Close()
	defer os.Remove(listPath)

	// dst may be src itself; it only becomes ours to remove once Flatten
	// starts overwriting it.
	removeDst := !samePath(src, dst)
	defer func() {
		if err != nil && removeDst {
			os.Remove(dst)
		}
	}()

	start := time.Now()
	nodes, err := listfile.Build(src, listPath, recordSize)
	if err != nil {
		return 0, err
	}
	log.Printf("[Sort] %s: built list of %d nodes from %s", algo.Title(), nodes, src)

	if nodes > 1 {
		if err := sortList(algo, listPath, opts.Stats.Compare(cmp), opts); err != nil {
			return 0, err
		}
	}

	removeDst = true
	written, err := listfile.FlattenWithStats(listPath, dst, opts.Stats)
	if err != nil {
		return 0, err
	}
	log.Printf("[Sort] %s sort completed: %d records sorted into %s in %v", algo.Title(), written, dst, time.Since(start))
	return written, nil
}

// samePath reports whether a and b name the same file, through relative
// paths and links. Unresolvable paths count as the same.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil || absA == absB {
		return true
	}
	stA, errA := os.Stat(absA)
	stB, errB := os.Stat(absB)
	if errA != nil || errB != nil {
		return false
	}
	return os.SameFile(stA, stB)
}

func sortList(algo Algorithm, listPath string, cmp common.Comparator, opts Options) error {
	l, err := listfile.Open(listPath)
	if err != nil {
		return err
	}
	l.Stats = opts.Stats

	switch algo {
	case Bubble:
		err = BubbleSortList(l, cmp, opts.ProgressEvery)
	case Merge:
		err = MergeSortList(l, cmp, opts.MaxMergePasses)
	}
	if cerr := l.Close(); err == nil {
		err = cerr
	}
	return err
}

// OutputName builds the conventional name of a sorted output, for example
// "MergeSortedSales 2025-11-16 20-32.dat" for base "data/Sales.dat".
func OutputName(base string, algo Algorithm, now time.Time) string {
	name := filepath.Base(base)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return fmt.Sprintf("%sSorted%s %s.dat", algo.Title(), name, now.Format("2006-01-02 15-04"))
}
