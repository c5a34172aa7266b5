package page

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// HeaderSize is the fixed size of the self-contained header page layout:
// magic(4) + version(4) + page_size(4) + checksum(4).
const HeaderSize = 16

// Magic identifies a parrotdb database file.
const Magic = "PRRT"

// FormatVersion is the on-disk format version written by this package.
const FormatVersion uint32 = 1

// DefaultPageSize is used when a caller does not pick one explicitly.
const DefaultPageSize = 4096

// HeaderPage is page 0. Unlike every other page kind it does not carry the
// shared 9-byte frame: its checksum covers only magic+version+page_size, not
// the zero-padded remainder of the page.
type HeaderPage struct {
	Version  uint32
	PageSize uint32
}

// NewHeaderPage returns a header page for a freshly created database file.
func NewHeaderPage(pageSize uint32) HeaderPage {
	return HeaderPage{Version: FormatVersion, PageSize: pageSize}
}

// Encode renders the header page as a full pageSize-byte image, magic and
// fields first, checksum immediately after, the rest zero-filled.
func (h HeaderPage) Encode(pageSize uint32) []byte {
	full := make([]byte, pageSize)
	copy(full[0:4], Magic)
	binary.LittleEndian.PutUint32(full[4:8], h.Version)
	binary.LittleEndian.PutUint32(full[8:12], h.PageSize)
	sum := crc32OfHeaderFields(full[0:12])
	binary.LittleEndian.PutUint32(full[12:16], sum)
	return full
}

// DecodeHeaderPage parses and validates a header page image.
func DecodeHeaderPage(data []byte) (HeaderPage, error) {
	if len(data) < HeaderSize {
		return HeaderPage{}, ErrShortPage
	}
	if string(data[0:4]) != Magic {
		return HeaderPage{}, fmt.Errorf("%w: bad magic %q", ErrCorruption, data[0:4])
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	pageSize := binary.LittleEndian.Uint32(data[8:12])
	wantSum := binary.LittleEndian.Uint32(data[12:16])
	gotSum := crc32OfHeaderFields(data[0:12])
	if wantSum != gotSum {
		return HeaderPage{}, fmt.Errorf("%w: header page: have 0x%08x, want 0x%08x", ErrChecksumMismatch, gotSum, wantSum)
	}
	return HeaderPage{Version: version, PageSize: pageSize}, nil
}

// crc32OfHeaderFields checksums exactly the magic+version+page_size fields,
// unlike every other page kind whose checksum covers the whole padded page.
func crc32OfHeaderFields(fields []byte) uint32 {
	return crc32.ChecksumIEEE(fields)
}
