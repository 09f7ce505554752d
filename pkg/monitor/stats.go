package monitor

import (
	"sync/atomic"
)

// SortStats counts the work done by the sort and search engines. A nil
// *SortStats is valid and records nothing.
type SortStats struct {
	Comparisons uint64
	NodeReads   uint64
	NodeWrites  uint64
	Swaps       uint64
	Merges      uint64
	Passes      uint64
	Warnings    uint64
}

type Snapshot struct {
	Comparisons uint64 `json:"comparisons"`
	NodeReads   uint64 `json:"node_reads"`
	NodeWrites  uint64 `json:"node_writes"`
	Swaps       uint64 `json:"swaps"`
	Merges      uint64 `json:"merges"`
	Passes      uint64 `json:"passes"`
	Warnings    uint64 `json:"warnings"`
}

func NewSortStats() *SortStats {
	return &SortStats{}
}

func (s *SortStats) RecordComparison() {
	if s != nil {
		atomic.AddUint64(&s.Comparisons, 1)
	}
}

func (s *SortStats) RecordRead() {
	if s != nil {
		atomic.AddUint64(&s.NodeReads, 1)
	}
}

func (s *SortStats) RecordWrite() {
	if s != nil {
		atomic.AddUint64(&s.NodeWrites, 1)
	}
}

func (s *SortStats) RecordSwap() {
	if s != nil {
		atomic.AddUint64(&s.Swaps, 1)
	}
}

func (s *SortStats) RecordMerge() {
	if s != nil {
		atomic.AddUint64(&s.Merges, 1)
	}
}

func (s *SortStats) RecordPass() {
	if s != nil {
		atomic.AddUint64(&s.Passes, 1)
	}
}

func (s *SortStats) RecordWarning() {
	if s != nil {
		atomic.AddUint64(&s.Warnings, 1)
	}
}

func (s *SortStats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Comparisons: atomic.LoadUint64(&s.Comparisons),
		NodeReads:   atomic.LoadUint64(&s.NodeReads),
		NodeWrites:  atomic.LoadUint64(&s.NodeWrites),
		Swaps:       atomic.LoadUint64(&s.Swaps),
		Merges:      atomic.LoadUint64(&s.Merges),
		Passes:      atomic.LoadUint64(&s.Passes),
		Warnings:    atomic.LoadUint64(&s.Warnings),
	}
}

func (s *SortStats) Reset() {
	if s == nil {
		return
	}
	atomic.StoreUint64(&s.Comparisons, 0)
	atomic.StoreUint64(&s.NodeReads, 0)
	atomic.StoreUint64(&s.NodeWrites, 0)
	atomic.StoreUint64(&s.Swaps, 0)
	atomic.StoreUint64(&s.Merges, 0)
	atomic.StoreUint64(&s.Passes, 0)
	atomic.StoreUint64(&s.Warnings, 0)
}

// Compare wraps cmp so every call is counted.
func (s *SortStats) Compare(cmp func(a, b []byte) int) func(a, b []byte) int {
	if s == nil {
		return cmp
	}
	return func(a, b []byte) int {
		atomic.AddUint64(&s.Comparisons, 1)
		return cmp(a, b)
	}
}

// Sub returns the counters accumulated since before.
func (sn Snapshot) Sub(before Snapshot) Snapshot {
	return Snapshot{
		Comparisons: sn.Comparisons - before.Comparisons,
		NodeReads:   sn.NodeReads - before.NodeReads,
		NodeWrites:  sn.NodeWrites - before.NodeWrites,
		Swaps:       sn.Swaps - before.Swaps,
		Merges:      sn.Merges - before.Merges,
		Passes:      sn.Passes - before.Passes,
		Warnings:    sn.Warnings - before.Warnings,
	}
}
