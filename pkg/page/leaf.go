package page

import "encoding/binary"

// LeafHeaderSize is the size of a leaf page's header after the 9-byte
// frame: cell_count(2) + right_sibling(4).
const LeafHeaderSize = 6

// LeafCellOverhead is the per-cell fixed cost not counting key/value bytes:
// a 2-byte cell-offset entry plus the cell's own key_len(2)+value_len(2).
const LeafCellOverhead = 2 + 2 + 2

// Cell is a single key/value pair stored in a leaf page.
type Cell struct {
	Key   []byte
	Value []byte
}

// LeafPage is a B+ tree leaf node: an ordered list of cells plus a pointer
// to the next leaf in key order (0 if this is the rightmost leaf).
//
// RightSibling is encoded for format compatibility and on-disk
// completeness, but range scans never follow it: they use a cursor stack
// over the current tree instead, since copy-on-write means a sibling
// pointer captured at one point in time can reference a page that a
// concurrent writer has long since superseded.
type LeafPage struct {
	PageID       uint32
	Cells        []Cell
	RightSibling uint32
}

// LeafFits reports whether cells fit within a page of pageSize bytes, using
// the exact byte accounting a split decision must use.
func LeafFits(pageSize uint32, cells []Cell) bool {
	return leafSpaceNeeded(cells) <= int(pageSize)-FrameSize-LeafHeaderSize
}

func leafSpaceNeeded(cells []Cell) int {
	total := 0
	for _, c := range cells {
		total += LeafCellOverhead + len(c.Key) + len(c.Value)
	}
	return total
}

// Encode renders the leaf page as a full pageSize-byte image. Cell offsets
// grow forward from the header; cell bodies are packed from the end of the
// page backward, mirroring how slotted pages are conventionally laid out
// (unlike the branch page, whose body is written forward from its header).
func (l LeafPage) Encode(pageSize uint32) ([]byte, error) {
	avail := int(pageSize) - FrameSize - LeafHeaderSize
	if leafSpaceNeeded(l.Cells) > avail {
		return nil, ErrPageTooSmall
	}
	full := make([]byte, pageSize)
	body := full[FrameSize:]
	binary.LittleEndian.PutUint16(body[0:2], uint16(len(l.Cells)))
	binary.LittleEndian.PutUint32(body[2:6], l.RightSibling)

	offsetTable := body[LeafHeaderSize:]
	cellEnd := len(full)
	for i, c := range l.Cells {
		cellLen := 4 + len(c.Key) + len(c.Value)
		cellStart := cellEnd - cellLen
		cell := full[cellStart:cellEnd]
		binary.LittleEndian.PutUint16(cell[0:2], uint16(len(c.Key)))
		binary.LittleEndian.PutUint16(cell[2:4], uint16(len(c.Value)))
		copy(cell[4:4+len(c.Key)], c.Key)
		copy(cell[4+len(c.Key):], c.Value)

		relOffset := cellStart - FrameSize
		binary.LittleEndian.PutUint16(offsetTable[i*2:i*2+2], uint16(relOffset))
		cellEnd = cellStart
	}

	return sealFrame(full, TypeLeaf, l.PageID), nil
}

// DecodeLeafPage parses and validates a leaf page image.
func DecodeLeafPage(data []byte) (LeafPage, error) {
	frame, err := decodeFrame(data)
	if err != nil {
		return LeafPage{}, err
	}
	if frame.Type != TypeLeaf {
		return LeafPage{}, wrongType(TypeLeaf, frame.Type)
	}
	if err := verifyFrame(data, frame); err != nil {
		return LeafPage{}, err
	}
	body := data[FrameSize:]
	if len(body) < LeafHeaderSize {
		return LeafPage{}, ErrShortPage
	}
	cellCount := binary.LittleEndian.Uint16(body[0:2])
	rightSibling := binary.LittleEndian.Uint32(body[2:6])

	offsetTable := body[LeafHeaderSize:]
	if len(offsetTable) < int(cellCount)*2 {
		return LeafPage{}, ErrShortPage
	}

	cells := make([]Cell, cellCount)
	for i := range cells {
		relOffset := binary.LittleEndian.Uint16(offsetTable[i*2 : i*2+2])
		cellStart := FrameSize + int(relOffset)
		if cellStart+4 > len(data) {
			return LeafPage{}, ErrCorruption
		}
		keyLen := binary.LittleEndian.Uint16(data[cellStart : cellStart+2])
		valLen := binary.LittleEndian.Uint16(data[cellStart+2 : cellStart+4])
		keyStart := cellStart + 4
		valStart := keyStart + int(keyLen)
		valEnd := valStart + int(valLen)
		if valEnd > len(data) {
			return LeafPage{}, ErrCorruption
		}
		key := make([]byte, keyLen)
		copy(key, data[keyStart:valStart])
		val := make([]byte, valLen)
		copy(val, data[valStart:valEnd])
		cells[i] = Cell{Key: key, Value: val}
	}

	return LeafPage{PageID: frame.PageID, Cells: cells, RightSibling: rightSibling}, nil
}
