package listfile

import (
	"bufio"
	"io"
	"log"
	"os"
	"sortdb/pkg/common"
	"sortdb/pkg/monitor"
	"sortdb/pkg/storage/recordfile"
)

// Build converts the record file src into a list file at listPath and
// returns the number of nodes. Node i is linked to node i+1 in file order.
// Metadata is written only after every record has been appended; on
// failure the partial list file is removed.
func Build(src, listPath string, recordSize int) (int64, error) {
	count, err := build(src, listPath, recordSize)
	if err != nil {
		os.Remove(listPath)
		return 0, err
	}
	return count, nil
}

func build(src, listPath string, recordSize int) (int64, error) {
	r, err := recordfile.Open(src, recordSize)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	f, err := os.Create(listPath)
	if err != nil {
		return 0, common.IOErr("listfile: create", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	raw := make([]byte, MetadataSize)
	meta := emptyMetadata(recordSize)
	meta.encode(raw)
	if _, err := w.Write(raw); err != nil {
		return 0, common.IOErr("listfile: write metadata", err)
	}

	// The previous record is held back until its successor is known so that
	// its next pointer is final when it is written.
	span := nodeSpan(recordSize)
	pending := make([]byte, recordSize)
	current := make([]byte, recordSize)
	hdr := make([]byte, HeaderSize)
	pendingID, pendingPrev := Nil, Nil

	flush := func(next NodeID) error {
		NodeHeader{Prev: pendingPrev, Next: next, DataSize: uint64(recordSize)}.encode(hdr)
		if _, err := w.Write(hdr); err != nil {
			return common.IOErr("listfile: write node", err)
		}
		if _, err := w.Write(pending); err != nil {
			return common.IOErr("listfile: write node", err)
		}
		return nil
	}

	for {
		err := r.Next(current)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}

		if pendingID == Nil {
			pendingID = MetadataSize
			meta.Head = pendingID
		} else {
			next := pendingID + NodeID(span)
			if err := flush(next); err != nil {
				return 0, err
			}
			pendingPrev = pendingID
			pendingID = next
		}
		pending, current = current, pending
		meta.Count++
	}

	if pendingID != Nil {
		if err := flush(Nil); err != nil {
			return 0, err
		}
		meta.Tail = pendingID
	}

	if err := w.Flush(); err != nil {
		return 0, common.IOErr("listfile: flush", err)
	}
	meta.encode(raw)
	if _, err := f.WriteAt(raw, 0); err != nil {
		return 0, common.IOErr("listfile: write metadata", err)
	}
	if err := f.Sync(); err != nil {
		return 0, common.IOErr("listfile: sync", err)
	}
	return meta.Count, nil
}

// Flatten walks the list file in link order and writes every payload to
// dst, returning the number of records written.
func Flatten(listPath, dst string) (int64, error) {
	return FlattenWithStats(listPath, dst, nil)
}

// FlattenWithStats is Flatten with node reads and consistency warnings
// counted in stats.
func FlattenWithStats(listPath, dst string, stats *monitor.SortStats) (int64, error) {
	l, err := openList(listPath, os.O_RDONLY)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	l.Stats = stats

	w, err := recordfile.Create(dst, l.RecordSize())
	if err != nil {
		return 0, err
	}

	meta := l.Meta()
	node := l.NewNode()
	id := meta.Head
	for id != Nil && w.Count() < meta.Count {
		if err := l.Load(id, node); err != nil {
			w.Close()
			return 0, err
		}
		if err := w.Append(node.Payload); err != nil {
			w.Close()
			return 0, err
		}
		id = node.Header.Next
	}
	if err := w.Close(); err != nil {
		return 0, err
	}

	written := w.Count()
	if written != meta.Count || id != Nil {
		log.Printf("[ListFile] Warning: %s expected %d records, wrote %d (dangling next=%d)", listPath, meta.Count, written, id)
		stats.RecordWarning()
	}
	return written, nil
}
