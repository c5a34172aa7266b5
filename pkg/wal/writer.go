package wal

import (
	"bufio"
	"io"
)

// Writer appends entries to an underlying io.Writer, one after another
// with no extra framing.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w in a buffered Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Append encodes and writes a single entry.
func (wr *Writer) Append(e Entry) error {
	_, err := wr.w.Write(e.Encode())
	return err
}

// Flush flushes any buffered data to the underlying writer. It does not
// fsync; callers that need durability must do so on the underlying file
// themselves.
func (wr *Writer) Flush() error {
	return wr.w.Flush()
}
