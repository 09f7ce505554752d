package listfile

import (
	"fmt"
	"sortdb/pkg/common"
)

// SwapPayloads exchanges the payloads of two loaded nodes on disk. Headers
// are left untouched, and afterwards a and b hold the swapped payloads in
// memory as well.
func (l *List) SwapPayloads(a, b *Node) error {
	if err := l.WriteNode(a.ID, a.Header, b.Payload); err != nil {
		return err
	}
	if err := l.WriteNode(b.ID, b.Header, a.Payload); err != nil {
		return err
	}
	a.Payload, b.Payload = b.Payload, a.Payload
	l.Stats.RecordSwap()
	return nil
}

// Advance follows up to n next pointers from `from`, reading headers only.
// It returns the node after the last one walked and how many were walked.
func (l *List) Advance(from NodeID, n int64) (NodeID, int64, error) {
	id := from
	var walked int64
	for id != Nil && walked < n {
		h, err := l.ReadNode(id, nil)
		if err != nil {
			return Nil, walked, err
		}
		id = h.Next
		walked++
	}
	return id, walked, nil
}

// FindTail returns the last node reachable from head.
func (l *List) FindTail(head NodeID) (NodeID, error) {
	if head == Nil {
		return Nil, nil
	}
	id := head
	for steps := int64(0); ; steps++ {
		if steps >= l.meta.Count {
			return Nil, fmt.Errorf("%w: listfile: more than %d nodes reachable from %d", common.ErrAlgorithm, l.meta.Count, head)
		}
		h, err := l.ReadNode(id, nil)
		if err != nil {
			return Nil, err
		}
		if h.Next == Nil {
			return id, nil
		}
		id = h.Next
	}
}

// Link makes head follow tail.
func (l *List) Link(tail, head NodeID) error {
	th, err := l.ReadNode(tail, nil)
	if err != nil {
		return err
	}
	hh, err := l.ReadNode(head, nil)
	if err != nil {
		return err
	}
	th.Next = head
	hh.Prev = tail
	if err := l.WriteNode(tail, th, nil); err != nil {
		return err
	}
	return l.WriteNode(head, hh, nil)
}

// MergeRuns merges the sorted run of aCount nodes starting at a with the
// sorted run of bCount nodes starting at b. Runs are bounded by their
// counts since they sit back to back in one chain. Only headers are
// rewritten; the merged run starts with Prev == Nil and ends with
// Next == Nil. On equal keys the node from run a comes first.
//
// Each node is read once: the next pointer of the node at the front of a
// run is taken from the copy already in memory. The merged run's last node
// is kept in memory until its successor is known, so each node is also
// written once. A failure leaves the chain partially relinked.
func (l *List) MergeRuns(a NodeID, aCount int64, b NodeID, bCount int64, cmp common.Comparator) (NodeID, NodeID, error) {
	left, right := l.mergeBuffers()
	if aCount > 0 {
		if err := l.Load(a, left); err != nil {
			return Nil, Nil, err
		}
	}
	if bCount > 0 {
		if err := l.Load(b, right); err != nil {
			return Nil, Nil, err
		}
	}

	head := Nil
	pendingID, pending := Nil, NodeHeader{}
	var takenA, takenB int64

	for takenA < aCount || takenB < bCount {
		fromLeft := takenB >= bCount || (takenA < aCount && cmp(left.Payload, right.Payload) <= 0)

		src, taken, limit := right, &takenB, bCount
		if fromLeft {
			src, taken, limit = left, &takenA, aCount
		}
		id, hdr := src.ID, src.Header
		*taken++

		if head == Nil {
			head = id
			hdr.Prev = Nil
		} else {
			pending.Next = id
			if err := l.WriteNode(pendingID, pending, nil); err != nil {
				return Nil, Nil, err
			}
			hdr.Prev = pendingID
		}

		if *taken < limit {
			if hdr.Next == Nil {
				return Nil, Nil, fmt.Errorf("%w: listfile: run ended after %d of %d nodes", common.ErrAlgorithm, *taken, limit)
			}
			if err := l.Load(hdr.Next, src); err != nil {
				return Nil, Nil, err
			}
		}

		hdr.Next = Nil
		pendingID, pending = id, hdr
	}

	if pendingID != Nil {
		if err := l.WriteNode(pendingID, pending, nil); err != nil {
			return Nil, Nil, err
		}
	}
	l.Stats.RecordMerge()
	return head, pendingID, nil
}

func (l *List) mergeBuffers() (*Node, *Node) {
	if l.scratch[0] == nil {
		l.scratch[0], l.scratch[1] = l.NewNode(), l.NewNode()
	}
	return l.scratch[0], l.scratch[1]
}
