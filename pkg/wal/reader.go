package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Reader streams entries back out of an underlying io.Reader in the order
// they were appended.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r in a buffered Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next reads and decodes the next entry. It returns io.EOF once the
// underlying reader is exhausted at an entry boundary. A partial entry at
// the end of the stream (as can happen after a crash mid-append) is
// reported as ErrShortEntry rather than io.EOF, so callers can distinguish
// a clean end of log from a torn final record.
func (rd *Reader) Next() (Entry, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(rd.r, header); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Entry{}, ErrShortEntry
		}
		return Entry{}, err
	}

	op := Op(header[0])
	if !op.valid() {
		return Entry{}, ErrInvalidOp
	}
	keyLen := binary.LittleEndian.Uint32(header[1:5])
	valueLen := binary.LittleEndian.Uint32(header[5:9])
	txnID := binary.LittleEndian.Uint64(header[9:17])
	timestamp := math.Float64frombits(binary.LittleEndian.Uint64(header[17:25]))

	rest := make([]byte, int(keyLen)+int(valueLen))
	if _, err := io.ReadFull(rd.r, rest); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Entry{}, ErrShortEntry
		}
		return Entry{}, err
	}

	return Entry{
		Op:        op,
		Key:       rest[:keyLen],
		Value:     rest[keyLen:],
		TxnID:     txnID,
		Timestamp: timestamp,
	}, nil
}
