package page

import "encoding/binary"

// BranchHeaderSize is the size of a branch page's header after the 9-byte
// frame: key_count(2).
const BranchHeaderSize = 2

// BranchPage is a B+ tree interior node: key_count separator keys and
// key_count+1 child page IDs, interleaved as
// child_0, (key_0, child_1), (key_1, child_2), ...
//
// A key at index i separates child i from child i+1: all keys in the
// subtree rooted at child i are < key_i, and key_i is the smallest key the
// subtree rooted at child i+1 may hold (bisect-right routing sends an exact
// match to the right subtree).
type BranchPage struct {
	PageID   uint32
	Keys     [][]byte
	Children []uint32
}

// BranchFits reports whether keys/children fit within a page of pageSize
// bytes.
func BranchFits(pageSize uint32, keys [][]byte, children []uint32) bool {
	return branchSpaceNeeded(keys, children) <= int(pageSize)-FrameSize-BranchHeaderSize
}

func branchSpaceNeeded(keys [][]byte, children []uint32) int {
	total := 4 // child_0, always present
	for _, k := range keys {
		total += 2 + len(k) + 4 // key_len + key bytes + following child
	}
	return total
}

// Encode renders the branch page as a full pageSize-byte image.
//
// Every branch page has exactly one more child than separator key, even
// at zero keys (one child, no separators): child_0 is always present.
// That invariant is what makes decoding unambiguous, since a zero
// key_count alone carries no information about child_0's presence.
func (b BranchPage) Encode(pageSize uint32) ([]byte, error) {
	if len(b.Children) != len(b.Keys)+1 {
		return nil, ErrCorruption
	}
	avail := int(pageSize) - FrameSize - BranchHeaderSize
	if branchSpaceNeeded(b.Keys, b.Children) > avail {
		return nil, ErrPageTooSmall
	}
	full := make([]byte, pageSize)
	body := full[FrameSize:]
	binary.LittleEndian.PutUint16(body[0:2], uint16(len(b.Keys)))

	w := body[BranchHeaderSize:]
	off := 0
	binary.LittleEndian.PutUint32(w[off:off+4], b.Children[0])
	off += 4
	for i, k := range b.Keys {
		binary.LittleEndian.PutUint16(w[off:off+2], uint16(len(k)))
		off += 2
		copy(w[off:off+len(k)], k)
		off += len(k)
		binary.LittleEndian.PutUint32(w[off:off+4], b.Children[i+1])
		off += 4
	}

	return sealFrame(full, TypeBranch, b.PageID), nil
}

// DecodeBranchPage parses and validates a branch page image. An invalid
// children/keys length relationship is a Corruption error: every branch
// page must have exactly one more child than separator key.
func DecodeBranchPage(data []byte) (BranchPage, error) {
	frame, err := decodeFrame(data)
	if err != nil {
		return BranchPage{}, err
	}
	if frame.Type != TypeBranch {
		return BranchPage{}, wrongType(TypeBranch, frame.Type)
	}
	if err := verifyFrame(data, frame); err != nil {
		return BranchPage{}, err
	}
	body := data[FrameSize:]
	if len(body) < BranchHeaderSize {
		return BranchPage{}, ErrShortPage
	}
	keyCount := binary.LittleEndian.Uint16(body[0:2])

	r := body[BranchHeaderSize:]
	off := 0
	var children []uint32
	var keys [][]byte

	// child_0 is always present, even at zero keys: Encode never omits it.
	if off+4 > len(r) {
		return BranchPage{}, ErrShortPage
	}
	children = append(children, binary.LittleEndian.Uint32(r[off:off+4]))
	off += 4
	for i := 0; i < int(keyCount); i++ {
		if off+2 > len(r) {
			return BranchPage{}, ErrShortPage
		}
		klen := binary.LittleEndian.Uint16(r[off : off+2])
		off += 2
		if off+int(klen)+4 > len(r) {
			return BranchPage{}, ErrShortPage
		}
		key := make([]byte, klen)
		copy(key, r[off:off+int(klen)])
		off += int(klen)
		keys = append(keys, key)
		children = append(children, binary.LittleEndian.Uint32(r[off:off+4]))
		off += 4
	}

	if len(children) != len(keys)+1 {
		return BranchPage{}, ErrCorruption
	}

	return BranchPage{PageID: frame.PageID, Keys: keys, Children: children}, nil
}
