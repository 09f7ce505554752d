package listfile

import (
	"encoding/binary"
)

// List file layout, little-endian:
//
//	[Metadata 32B: head i64 | tail i64 | count i64 | recordSize u64]
//	[Node: prev i64 | next i64 | dataSize u64 | payload dataSize B] ...
//
// Nodes are appended contiguously after the metadata block. A NodeID is
// the byte offset of a node header.

const (
	MetadataSize = 8 + 8 + 8 + 8
	HeaderSize   = 8 + 8 + 8
)

// NodeID addresses a node by its byte offset in the list file.
type NodeID int64

// Nil is the sentinel for "no such node".
const Nil NodeID = -1

type NodeHeader struct {
	Prev     NodeID
	Next     NodeID
	DataSize uint64
}

type Metadata struct {
	Head       NodeID
	Tail       NodeID
	Count      int64
	RecordSize uint64
}

func (h NodeHeader) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], uint64(h.Prev))
	binary.LittleEndian.PutUint64(b[8:16], uint64(h.Next))
	binary.LittleEndian.PutUint64(b[16:24], h.DataSize)
}

func decodeHeader(b []byte) NodeHeader {
	return NodeHeader{
		Prev:     NodeID(binary.LittleEndian.Uint64(b[0:8])),
		Next:     NodeID(binary.LittleEndian.Uint64(b[8:16])),
		DataSize: binary.LittleEndian.Uint64(b[16:24]),
	}
}

func (m Metadata) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], uint64(m.Head))
	binary.LittleEndian.PutUint64(b[8:16], uint64(m.Tail))
	binary.LittleEndian.PutUint64(b[16:24], uint64(m.Count))
	binary.LittleEndian.PutUint64(b[24:32], m.RecordSize)
}

func decodeMetadata(b []byte) Metadata {
	return Metadata{
		Head:       NodeID(binary.LittleEndian.Uint64(b[0:8])),
		Tail:       NodeID(binary.LittleEndian.Uint64(b[8:16])),
		Count:      int64(binary.LittleEndian.Uint64(b[16:24])),
		RecordSize: binary.LittleEndian.Uint64(b[24:32]),
	}
}

func emptyMetadata(recordSize int) Metadata {
	return Metadata{Head: Nil, Tail: Nil, Count: 0, RecordSize: uint64(recordSize)}
}

// nodeSpan is the number of bytes a node with the given payload size occupies.
func nodeSpan(recordSize int) int64 {
	return int64(HeaderSize + recordSize)
}
