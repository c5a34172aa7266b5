// Package wal implements the on-disk record format for a write-ahead log
// of Put/Delete/Commit/Rollback operations.
//
// A WAL file is nothing more than these records written back-to-back, with
// no file-level magic or version header of its own: just a flat sequence
// of
//
//	offset  size  field
//	------  ----  -----
//	0       1     op
//	1       4     key_len (little-endian uint32)
//	5       4     value_len (little-endian uint32)
//	9       8     txn_id (little-endian uint64)
//	17      8     timestamp (little-endian float64, Unix seconds)
//	25      ...   key (key_len bytes)
//	25+N    ...   value (value_len bytes)
//
// This package is a standalone codec: the store's commit driver does not
// import it. parrotdb commits by shadow paging (see pkg/store's package
// doc), not by writing then replaying a log, so nothing in this repository
// currently appends to a WAL file; the format is implemented because it is
// part of the documented on-disk surface, ready for a future log-based
// commit path or an external replication tool to produce or consume.
package wal

import (
	"encoding/binary"
	"errors"
	"math"
)

// Op identifies the kind of operation a WAL entry records.
type Op uint8

const (
	OpPut      Op = 1
	OpDelete   Op = 2
	OpCommit   Op = 3
	OpRollback Op = 4
)

// HeaderSize is the fixed size, in bytes, of an entry's header (everything
// before the key and value bytes).
const HeaderSize = 1 + 4 + 4 + 8 + 8

// ErrShortEntry is returned when a buffer is too short to contain a full
// entry header, or the header's declared key/value lengths, given its
// length, extend past the end of the buffer.
var ErrShortEntry = errors.New("wal: entry data shorter than declared length")

// ErrInvalidOp is returned when an entry's op byte is not one of the four
// known operations.
var ErrInvalidOp = errors.New("wal: invalid operation byte")

// Entry is a single logical WAL record.
type Entry struct {
	Op        Op
	Key       []byte
	Value     []byte
	TxnID     uint64
	Timestamp float64
}

func (op Op) valid() bool {
	switch op {
	case OpPut, OpDelete, OpCommit, OpRollback:
		return true
	default:
		return false
	}
}

// Encode serializes the entry to its on-disk byte representation: header
// followed by key followed by value.
func (e Entry) Encode() []byte {
	buf := make([]byte, HeaderSize+len(e.Key)+len(e.Value))
	buf[0] = byte(e.Op)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(e.Key)))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(len(e.Value)))
	binary.LittleEndian.PutUint64(buf[9:17], e.TxnID)
	binary.LittleEndian.PutUint64(buf[17:25], math.Float64bits(e.Timestamp))
	copy(buf[HeaderSize:HeaderSize+len(e.Key)], e.Key)
	copy(buf[HeaderSize+len(e.Key):], e.Value)
	return buf
}

// Decode parses a single entry from the front of data, returning the
// number of bytes consumed.
func Decode(data []byte) (Entry, int, error) {
	if len(data) < HeaderSize {
		return Entry{}, 0, ErrShortEntry
	}
	op := Op(data[0])
	if !op.valid() {
		return Entry{}, 0, ErrInvalidOp
	}
	keyLen := binary.LittleEndian.Uint32(data[1:5])
	valueLen := binary.LittleEndian.Uint32(data[5:9])
	txnID := binary.LittleEndian.Uint64(data[9:17])
	timestamp := math.Float64frombits(binary.LittleEndian.Uint64(data[17:25]))

	total := HeaderSize + int(keyLen) + int(valueLen)
	if len(data) < total {
		return Entry{}, 0, ErrShortEntry
	}

	key := make([]byte, keyLen)
	copy(key, data[HeaderSize:HeaderSize+int(keyLen)])
	value := make([]byte, valueLen)
	copy(value, data[HeaderSize+int(keyLen):total])

	return Entry{Op: op, Key: key, Value: value, TxnID: txnID, Timestamp: timestamp}, total, nil
}
