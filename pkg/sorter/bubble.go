package sorter

import (
	"fmt"
	"log"
	"sortdb/pkg/common"
	"sortdb/pkg/storage/listfile"
)

// BubbleSortList sorts l in place by exchanging the payloads of adjacent
// out-of-order nodes. Pointers never change. A pass without swaps ends the
// sort early; otherwise it runs Count-1 passes. Only strictly greater
// neighbours are swapped, so equal records keep their order.
func BubbleSortList(l *listfile.List, cmp common.Comparator, progressEvery int64) error {
	meta := l.Meta()
	n := meta.Count
	if n < 2 {
		return nil
	}

	cur, next := l.NewNode(), l.NewNode()
	for pass := int64(0); pass < n-1; pass++ {
		if progressEvery > 0 && pass > 0 && pass%progressEvery == 0 {
			log.Printf("[BubbleSort] Pass %d/%d (%.1f%%)", pass, n-1, float64(pass)*100/float64(n-1))
		}
		l.Stats.RecordPass()

		if err := l.Load(meta.Head, cur); err != nil {
			return err
		}
		swapped := false
		for i := int64(0); i < n-pass-1; i++ {
			if cur.Header.Next == listfile.Nil {
				return fmt.Errorf("%w: bubble sort: chain ended after %d of %d nodes", common.ErrAlgorithm, i+1, n)
			}
			if err := l.Load(cur.Header.Next, next); err != nil {
				return err
			}
			if cmp(cur.Payload, next.Payload) > 0 {
				if err := l.SwapPayloads(cur, next); err != nil {
					return err
				}
				swapped = true
			}
			// next now mirrors the disk, so it becomes the left node of the
			// following step without being read again.
			cur, next = next, cur
		}

		if !swapped {
			log.Printf("[BubbleSort] Sorted after %d passes", pass+1)
			return nil
		}
	}
	return nil
}
