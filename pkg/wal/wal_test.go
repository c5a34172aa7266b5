package wal

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEntry_EncodeDecodeRoundTrip(t *testing.T) {
	cases := []Entry{
		{Op: OpPut, Key: []byte("k1"), Value: []byte("v1"), TxnID: 1, Timestamp: 1000.5},
		{Op: OpDelete, Key: []byte("k2"), Value: nil, TxnID: 2, Timestamp: 2000.25},
		{Op: OpCommit, Key: nil, Value: nil, TxnID: 3, Timestamp: 3000},
		{Op: OpRollback, Key: []byte("k4"), Value: []byte("a longer value body"), TxnID: 4, Timestamp: 4000.125},
	}

	for _, want := range cases {
		buf := want.Encode()
		got, n, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if n != len(buf) {
			t.Errorf("Decode() consumed = %d, want %d", n, len(buf))
		}
		if got.Op != want.Op || got.TxnID != want.TxnID || got.Timestamp != want.Timestamp {
			t.Errorf("Decode() = %+v, want %+v", got, want)
		}
		if !bytes.Equal(got.Key, want.Key) {
			t.Errorf("Decode() Key = %q, want %q", got.Key, want.Key)
		}
		if !bytes.Equal(got.Value, want.Value) {
			t.Errorf("Decode() Value = %q, want %q", got.Value, want.Value)
		}
	}
}

func TestDecode_ShortHeader(t *testing.T) {
	_, _, err := Decode([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortEntry) {
		t.Fatalf("Decode() error = %v, want ErrShortEntry", err)
	}
}

func TestDecode_InvalidOp(t *testing.T) {
	e := Entry{Op: OpPut, Key: []byte("k"), Value: []byte("v")}
	buf := e.Encode()
	buf[0] = 99
	_, _, err := Decode(buf)
	if !errors.Is(err, ErrInvalidOp) {
		t.Fatalf("Decode() error = %v, want ErrInvalidOp", err)
	}
}

func TestDecode_TruncatedKeyValue(t *testing.T) {
	e := Entry{Op: OpPut, Key: []byte("key"), Value: []byte("value")}
	buf := e.Encode()
	_, _, err := Decode(buf[:len(buf)-2])
	if !errors.Is(err, ErrShortEntry) {
		t.Fatalf("Decode() error = %v, want ErrShortEntry", err)
	}
}

func TestWriterReader_RoundTrip(t *testing.T) {
	entries := []Entry{
		{Op: OpPut, Key: []byte("a"), Value: []byte("1"), TxnID: 1, Timestamp: 10},
		{Op: OpPut, Key: []byte("b"), Value: []byte("2"), TxnID: 1, Timestamp: 11},
		{Op: OpDelete, Key: []byte("a"), TxnID: 2, Timestamp: 12},
		{Op: OpCommit, TxnID: 2, Timestamp: 13},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, e := range entries {
		if err := w.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	r := NewReader(&buf)
	for i, want := range entries {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if got.Op != want.Op || got.TxnID != want.TxnID {
			t.Errorf("Next() #%d = %+v, want %+v", i, got, want)
		}
		if !bytes.Equal(got.Key, want.Key) {
			t.Errorf("Next() #%d Key = %q, want %q", i, got.Key, want.Key)
		}
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() at clean end error = %v, want io.EOF", err)
	}
}

func TestReader_TornFinalEntry(t *testing.T) {
	e := Entry{Op: OpPut, Key: []byte("truncated"), Value: []byte("value"), TxnID: 1, Timestamp: 1}
	full := e.Encode()
	torn := full[:len(full)-3]

	r := NewReader(bytes.NewReader(torn))
	_, err := r.Next()
	if !errors.Is(err, ErrShortEntry) {
		t.Fatalf("Next() on torn entry error = %v, want ErrShortEntry", err)
	}
}
