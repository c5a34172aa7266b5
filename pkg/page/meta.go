package page

import "encoding/binary"

// MetaBodySize is the size of a meta page's body after the 9-byte frame:
// txn_id(8) + root_page_id(4) + freelist_page_id(4).
const MetaBodySize = 16

// MetaPage is one of the two dual meta pages (page IDs 1 and 2). The active
// meta page is the one with the higher valid txn_id; on a tie page 1 (the
// "A" slot) wins.
type MetaPage struct {
	PageID         uint32
	TxnID          uint64
	RootPageID     uint32
	FreelistPageID uint32
}

// Encode renders the meta page as a full pageSize-byte image with the frame
// checksum computed over the entire image.
func (m MetaPage) Encode(pageSize uint32) []byte {
	full := make([]byte, pageSize)
	body := full[FrameSize:]
	binary.LittleEndian.PutUint64(body[0:8], m.TxnID)
	binary.LittleEndian.PutUint32(body[8:12], m.RootPageID)
	binary.LittleEndian.PutUint32(body[12:16], m.FreelistPageID)
	return sealFrame(full, TypeMeta, m.PageID)
}

// DecodeMetaPage parses and validates a meta page image.
func DecodeMetaPage(data []byte) (MetaPage, error) {
	frame, err := decodeFrame(data)
	if err != nil {
		return MetaPage{}, err
	}
	if frame.Type != TypeMeta {
		return MetaPage{}, wrongType(TypeMeta, frame.Type)
	}
	if err := verifyFrame(data, frame); err != nil {
		return MetaPage{}, err
	}
	if len(data) < FrameSize+MetaBodySize {
		return MetaPage{}, ErrShortPage
	}
	body := data[FrameSize:]
	return MetaPage{
		PageID:         frame.PageID,
		TxnID:          binary.LittleEndian.Uint64(body[0:8]),
		RootPageID:     binary.LittleEndian.Uint32(body[8:12]),
		FreelistPageID: binary.LittleEndian.Uint32(body[12:16]),
	}, nil
}

func wrongType(want, got Type) error {
	return &wrongTypeError{want: want, got: got}
}

type wrongTypeError struct {
	want, got Type
}

func (e *wrongTypeError) Error() string {
	return "page: expected " + e.want.String() + " page, found " + e.got.String()
}

func (e *wrongTypeError) Unwrap() error { return ErrCorruption }
