package recordfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sortdb/pkg/common"
)

// A record file is a bare sequence of fixed-size payloads. There is no
// header and no count; the length is fileSize / recordSize.

// Count returns the number of whole records in path.
func Count(path string, recordSize int) (int64, error) {
	if err := common.CheckRecordSize(recordSize); err != nil {
		return 0, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return 0, common.IOErr("recordfile: stat", err)
	}
	return st.Size() / int64(recordSize), nil
}

// ReadAt reads the record at index into buf. buf must be exactly one record long.
func ReadAt(f io.ReaderAt, index int64, buf []byte) error {
	if _, err := f.ReadAt(buf, index*int64(len(buf))); err != nil {
		return common.IOErr(fmt.Sprintf("recordfile: read record %d", index), err)
	}
	return nil
}

type Reader struct {
	file       *os.File
	reader     *bufio.Reader
	recordSize int
}

func Open(path string, recordSize int) (*Reader, error) {
	if err := common.CheckRecordSize(recordSize); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, common.IOErr("recordfile: open", err)
	}
	return &Reader{
		file:       f,
		reader:     bufio.NewReader(f),
		recordSize: recordSize,
	}, nil
}

// Next fills buf with the next record. It returns io.EOF once every whole
// record has been read.
func (r *Reader) Next(buf []byte) error {
	if len(buf) != r.recordSize {
		return fmt.Errorf("%w: buffer of %d bytes for %d byte records", common.ErrAlloc, len(buf), r.recordSize)
	}
	_, err := io.ReadFull(r.reader, buf)
	if err == io.EOF {
		return io.EOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return common.IOErr("recordfile: trailing partial record", err)
	}
	if err != nil {
		return common.IOErr("recordfile: read", err)
	}
	return nil
}

func (r *Reader) RecordSize() int {
	return r.recordSize
}

func (r *Reader) Close() error {
	return r.file.Close()
}

type Writer struct {
	file       *os.File
	writer     *bufio.Writer
	recordSize int
	count      int64
}

// Create truncates or creates path for writing records.
func Create(path string, recordSize int) (*Writer, error) {
	if err := common.CheckRecordSize(recordSize); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, common.IOErr("recordfile: create", err)
	}
	return &Writer{
		file:       f,
		writer:     bufio.NewWriter(f),
		recordSize: recordSize,
	}, nil
}

func (w *Writer) Append(rec []byte) error {
	if len(rec) != w.recordSize {
		return fmt.Errorf("%w: record of %d bytes in a %d byte file", common.ErrAlloc, len(rec), w.recordSize)
	}
	if _, err := w.writer.Write(rec); err != nil {
		return common.IOErr("recordfile: write", err)
	}
	w.count++
	return nil
}

func (w *Writer) Count() int64 {
	return w.count
}

// Close flushes buffered records and closes the file.
func (w *Writer) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return common.IOErr("recordfile: flush", err)
	}
	if err := w.file.Close(); err != nil {
		return common.IOErr("recordfile: close", err)
	}
	return nil
}

// WriteAll creates path holding the given records in order.
func WriteAll(path string, recordSize int, records [][]byte) error {
	w, err := Create(path, recordSize)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Append(rec); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// ReadAll loads every record of path. It is meant for small files such as
// test fixtures; the sort and search engines never call it.
func ReadAll(path string, recordSize int) ([][]byte, error) {
	r, err := Open(path, recordSize)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out [][]byte
	for {
		buf := make([]byte, recordSize)
		err := r.Next(buf)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, buf)
	}
}
