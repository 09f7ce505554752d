package sorter

import (
	"fmt"
	"log"
	"math/bits"
	"sortdb/pkg/common"
	"sortdb/pkg/storage/listfile"
)

// passMargin is how many passes beyond ceil(log2(n)) are tolerated before a
// merge sort is declared stuck.
const passMargin = 2

// MergeSortList sorts l with an iterative bottom-up merge sort. Each pass
// merges neighbouring runs of size nodes, then size doubles. Nodes are
// relinked, never moved, and no recursion is involved.
func MergeSortList(l *listfile.List, cmp common.Comparator, maxPasses int) error {
	meta := l.Meta()
	n := meta.Count
	if n < 2 {
		return nil
	}

	head := meta.Head
	tail, err := l.FindTail(head)
	if err != nil {
		return err
	}

	limit := passLimit(n, maxPasses)
	pass := 0
	for size := int64(1); size < n; size *= 2 {
		pass++
		if pass > limit {
			return fmt.Errorf("%w: merge sort exceeded %d passes", common.ErrAlgorithm, limit)
		}
		l.Stats.RecordPass()

		outHead, outTail := listfile.Nil, listfile.Nil
		merges := 0
		cur := head
		for cur != listfile.Nil {
			mid, leftCount, err := l.Advance(cur, size)
			if err != nil {
				return err
			}

			var runHead, runTail, next listfile.NodeID
			if mid == listfile.Nil {
				// A lone trailing run is already sorted and ends at the list tail.
				runHead, runTail, next = cur, tail, listfile.Nil
			} else {
				var rightCount int64
				next, rightCount, err = l.Advance(mid, size)
				if err != nil {
					return err
				}
				runHead, runTail, err = l.MergeRuns(cur, leftCount, mid, rightCount, cmp)
				if err != nil {
					return err
				}
				merges++
			}

			if outHead == listfile.Nil {
				outHead = runHead
			} else if err := l.Link(outTail, runHead); err != nil {
				return err
			}
			outTail = runTail
			cur = next
		}

		if merges == 0 {
			return fmt.Errorf("%w: merge pass %d (run size %d) performed no merges", common.ErrAlgorithm, pass, size)
		}
		log.Printf("[MergeSort] Pass %d: run size %d, %d merges", pass, size, merges)
		head, tail = outHead, outTail
	}

	l.SetBounds(head, tail)
	return l.Commit()
}

// passLimit is ceil(log2(n)) plus a margin, capped by maxPasses when set.
func passLimit(n int64, maxPasses int) int {
	limit := bits.Len64(uint64(n-1)) + passMargin
	if maxPasses > 0 && limit > maxPasses {
		limit = maxPasses
	}
	return limit
}
