package listfile

import (
	"fmt"
	"io"
	"os"
	"sortdb/pkg/common"
	"sortdb/pkg/monitor"
)

// List is an open list file. Nothing but the metadata block is cached in
// memory; every node access goes through ReadNode and WriteNode.
type List struct {
	file    *os.File
	path    string
	meta    Metadata
	buf     []byte   // header + payload scratch for a single node
	scratch [2]*Node // merge run fronts
	Stats   *monitor.SortStats
}

// Node is a node loaded into memory: its id, header and payload buffer.
type Node struct {
	ID      NodeID
	Header  NodeHeader
	Payload []byte
}

// Open opens an existing list file for reading and writing.
func Open(path string) (*List, error) {
	return openList(path, os.O_RDWR)
}

func openList(path string, flag int) (*List, error) {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, common.IOErr("listfile: open", err)
	}

	raw := make([]byte, MetadataSize)
	if _, err := f.ReadAt(raw, 0); err != nil {
		f.Close()
		return nil, common.IOErr("listfile: read metadata", err)
	}
	meta := decodeMetadata(raw)

	if err := common.CheckRecordSize(int(meta.RecordSize)); err != nil {
		f.Close()
		return nil, err
	}
	if (meta.Head == Nil) != (meta.Count == 0) {
		f.Close()
		return nil, fmt.Errorf("%w: listfile: head %d inconsistent with count %d", common.ErrAlgorithm, meta.Head, meta.Count)
	}

	return &List{
		file: f,
		path: path,
		meta: meta,
		buf:  make([]byte, HeaderSize+int(meta.RecordSize)),
	}, nil
}

func (l *List) Path() string {
	return l.path
}

func (l *List) Meta() Metadata {
	return l.meta
}

func (l *List) RecordSize() int {
	return int(l.meta.RecordSize)
}

// NewNode allocates a node with a payload buffer sized for this list.
func (l *List) NewNode() *Node {
	return &Node{ID: Nil, Payload: make([]byte, l.meta.RecordSize)}
}

func (l *List) checkID(id NodeID) error {
	if id < MetadataSize {
		return fmt.Errorf("%w: listfile: invalid node id %d", common.ErrAlgorithm, id)
	}
	return nil
}

// ReadNode reads the node at id. With a nil payload only the header is
// read; otherwise payload must hold exactly one record.
func (l *List) ReadNode(id NodeID, payload []byte) (NodeHeader, error) {
	if err := l.checkID(id); err != nil {
		return NodeHeader{}, err
	}

	raw := l.buf[:HeaderSize]
	if payload != nil {
		if len(payload) != int(l.meta.RecordSize) {
			return NodeHeader{}, fmt.Errorf("%w: listfile: payload buffer of %d bytes", common.ErrAlloc, len(payload))
		}
		raw = l.buf
	}

	if _, err := l.file.ReadAt(raw, int64(id)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return NodeHeader{}, common.IOErr(fmt.Sprintf("listfile: read node %d", id), err)
	}
	l.Stats.RecordRead()

	h := decodeHeader(raw)
	if h.DataSize != l.meta.RecordSize {
		return NodeHeader{}, fmt.Errorf("%w: listfile: node %d has data size %d, want %d", common.ErrAlgorithm, id, h.DataSize, l.meta.RecordSize)
	}
	if payload != nil {
		copy(payload, raw[HeaderSize:])
	}
	return h, nil
}

// WriteNode writes the header, and the payload when it is non-nil, of the
// node at id.
func (l *List) WriteNode(id NodeID, h NodeHeader, payload []byte) error {
	if err := l.checkID(id); err != nil {
		return err
	}

	raw := l.buf[:HeaderSize]
	if payload != nil {
		if len(payload) != int(l.meta.RecordSize) {
			return fmt.Errorf("%w: listfile: payload buffer of %d bytes", common.ErrAlloc, len(payload))
		}
		raw = l.buf
		copy(raw[HeaderSize:], payload)
	}
	h.DataSize = l.meta.RecordSize
	h.encode(raw)

	if _, err := l.file.WriteAt(raw, int64(id)); err != nil {
		return common.IOErr(fmt.Sprintf("listfile: write node %d", id), err)
	}
	l.Stats.RecordWrite()
	return nil
}

// Load reads the node at id, header and payload, into n.
func (l *List) Load(id NodeID, n *Node) error {
	h, err := l.ReadNode(id, n.Payload)
	if err != nil {
		return err
	}
	n.ID = id
	n.Header = h
	return nil
}

// SetBounds records a new head and tail. They reach the disk on Commit.
func (l *List) SetBounds(head, tail NodeID) {
	l.meta.Head = head
	l.meta.Tail = tail
}

func (l *List) Commit() error {
	raw := make([]byte, MetadataSize)
	l.meta.encode(raw)
	if _, err := l.file.WriteAt(raw, 0); err != nil {
		return common.IOErr("listfile: write metadata", err)
	}
	return nil
}

func (l *List) Close() error {
	if err := l.file.Close(); err != nil {
		return common.IOErr("listfile: close", err)
	}
	return nil
}
