package page

import "encoding/binary"

// FreelistPage is the on-disk persisted form of the freelist: a count
// followed by that many free page IDs, all after the 9-byte frame.
type FreelistPage struct {
	PageID      uint32
	FreePageIDs []uint32
}

// FreelistMaxEntries returns how many page IDs fit in a single freelist page
// of the given size.
func FreelistMaxEntries(pageSize uint32) int {
	return int((pageSize - FrameSize - 4) / 4)
}

// Encode renders the freelist page as a full pageSize-byte image.
func (f FreelistPage) Encode(pageSize uint32) ([]byte, error) {
	need := FrameSize + 4 + 4*len(f.FreePageIDs)
	if need > int(pageSize) {
		return nil, ErrPageTooSmall
	}
	full := make([]byte, pageSize)
	body := full[FrameSize:]
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(f.FreePageIDs)))
	off := 4
	for _, id := range f.FreePageIDs {
		binary.LittleEndian.PutUint32(body[off:off+4], id)
		off += 4
	}
	return sealFrame(full, TypeFreelist, f.PageID), nil
}

// DecodeFreelistPage parses and validates a freelist page image.
func DecodeFreelistPage(data []byte) (FreelistPage, error) {
	frame, err := decodeFrame(data)
	if err != nil {
		return FreelistPage{}, err
	}
	if frame.Type != TypeFreelist {
		return FreelistPage{}, wrongType(TypeFreelist, frame.Type)
	}
	if err := verifyFrame(data, frame); err != nil {
		return FreelistPage{}, err
	}
	body := data[FrameSize:]
	if len(body) < 4 {
		return FreelistPage{}, ErrShortPage
	}
	count := binary.LittleEndian.Uint32(body[0:4])
	need := 4 + 4*int(count)
	if len(body) < need {
		return FreelistPage{}, ErrShortPage
	}
	ids := make([]uint32, count)
	off := 4
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint32(body[off : off+4])
		off += 4
	}
	return FreelistPage{PageID: frame.PageID, FreePageIDs: ids}, nil
}
