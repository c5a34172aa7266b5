package page

import "testing"

func TestHeaderPage_RoundTrip(t *testing.T) {
	h := NewHeaderPage(4096)
	data := h.Encode(4096)
	if len(data) != 4096 {
		t.Fatalf("Encode() length = %d, want 4096", len(data))
	}

	got, err := DecodeHeaderPage(data)
	if err != nil {
		t.Fatalf("DecodeHeaderPage() error = %v", err)
	}
	if got.Version != FormatVersion {
		t.Errorf("Version = %d, want %d", got.Version, FormatVersion)
	}
	if got.PageSize != 4096 {
		t.Errorf("PageSize = %d, want 4096", got.PageSize)
	}
}

func TestHeaderPage_BadMagic(t *testing.T) {
	data := make([]byte, HeaderSize)
	copy(data, "XXXX")
	if _, err := DecodeHeaderPage(data); err == nil {
		t.Fatal("expected error for bad magic, got nil")
	}
}

func TestHeaderPage_ChecksumMismatch(t *testing.T) {
	h := NewHeaderPage(4096)
	data := h.Encode(4096)
	data[4] ^= 0xFF // corrupt the version field after checksum was stamped
	if _, err := DecodeHeaderPage(data); err == nil {
		t.Fatal("expected checksum mismatch, got nil")
	}
}

func TestMetaPage_RoundTrip(t *testing.T) {
	m := MetaPage{PageID: 1, TxnID: 42, RootPageID: 7, FreelistPageID: 0}
	data := m.Encode(4096)

	got, err := DecodeMetaPage(data)
	if err != nil {
		t.Fatalf("DecodeMetaPage() error = %v", err)
	}
	if got != m {
		t.Errorf("DecodeMetaPage() = %+v, want %+v", got, m)
	}
}

func TestMetaPage_WrongType(t *testing.T) {
	fp := FreelistPage{PageID: 3, FreePageIDs: nil}
	data, err := fp.Encode(4096)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeMetaPage(data); err == nil {
		t.Fatal("expected wrong-type error, got nil")
	}
}

func TestFreelistPage_RoundTrip(t *testing.T) {
	fp := FreelistPage{PageID: 5, FreePageIDs: []uint32{9, 10, 11}}
	data, err := fp.Encode(4096)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := DecodeFreelistPage(data)
	if err != nil {
		t.Fatalf("DecodeFreelistPage() error = %v", err)
	}
	if len(got.FreePageIDs) != 3 {
		t.Fatalf("FreePageIDs len = %d, want 3", len(got.FreePageIDs))
	}
	for i, id := range []uint32{9, 10, 11} {
		if got.FreePageIDs[i] != id {
			t.Errorf("FreePageIDs[%d] = %d, want %d", i, got.FreePageIDs[i], id)
		}
	}
}

func TestFreelistPage_TooManyEntries(t *testing.T) {
	max := FreelistMaxEntries(64)
	ids := make([]uint32, max+1)
	fp := FreelistPage{PageID: 5, FreePageIDs: ids}
	if _, err := fp.Encode(64); err != ErrPageTooSmall {
		t.Fatalf("Encode() error = %v, want ErrPageTooSmall", err)
	}
}

func TestLeafPage_RoundTrip(t *testing.T) {
	lp := LeafPage{
		PageID: 10,
		Cells: []Cell{
			{Key: []byte("alpha"), Value: []byte("1")},
			{Key: []byte("bravo"), Value: []byte("2")},
			{Key: []byte("charlie"), Value: []byte("3")},
		},
		RightSibling: 11,
	}
	data, err := lp.Encode(4096)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := DecodeLeafPage(data)
	if err != nil {
		t.Fatalf("DecodeLeafPage() error = %v", err)
	}
	if len(got.Cells) != 3 {
		t.Fatalf("Cells len = %d, want 3", len(got.Cells))
	}
	if got.RightSibling != 11 {
		t.Errorf("RightSibling = %d, want 11", got.RightSibling)
	}
	for i, c := range lp.Cells {
		if string(got.Cells[i].Key) != string(c.Key) || string(got.Cells[i].Value) != string(c.Value) {
			t.Errorf("Cells[%d] = %+v, want %+v", i, got.Cells[i], c)
		}
	}
}

func TestLeafPage_Overflow(t *testing.T) {
	lp := LeafPage{PageID: 1, Cells: []Cell{{Key: make([]byte, 100), Value: make([]byte, 100)}}}
	if _, err := lp.Encode(64); err != ErrPageTooSmall {
		t.Fatalf("Encode() error = %v, want ErrPageTooSmall", err)
	}
}

func TestBranchPage_RoundTrip(t *testing.T) {
	bp := BranchPage{
		PageID:   20,
		Keys:     [][]byte{[]byte("m"), []byte("t")},
		Children: []uint32{1, 2, 3},
	}
	data, err := bp.Encode(4096)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := DecodeBranchPage(data)
	if err != nil {
		t.Fatalf("DecodeBranchPage() error = %v", err)
	}
	if len(got.Keys) != 2 || len(got.Children) != 3 {
		t.Fatalf("got %d keys, %d children, want 2 keys, 3 children", len(got.Keys), len(got.Children))
	}
	for i, c := range got.Children {
		if c != bp.Children[i] {
			t.Errorf("Children[%d] = %d, want %d", i, c, bp.Children[i])
		}
	}
}

func TestBranchPage_InvalidChildCount(t *testing.T) {
	bp := BranchPage{PageID: 20, Keys: [][]byte{[]byte("m")}, Children: []uint32{1, 2, 3}}
	if _, err := bp.Encode(4096); err != ErrCorruption {
		t.Fatalf("Encode() error = %v, want ErrCorruption", err)
	}
}

func TestBranchPage_ZeroKeyOneChildRoundTrip(t *testing.T) {
	bp := BranchPage{PageID: 20, Keys: nil, Children: []uint32{7}}
	data, err := bp.Encode(4096)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := DecodeBranchPage(data)
	if err != nil {
		t.Fatalf("DecodeBranchPage() error = %v", err)
	}
	if len(got.Keys) != 0 || len(got.Children) != 1 || got.Children[0] != 7 {
		t.Fatalf("DecodeBranchPage() = %+v, want 0 keys, 1 child (7)", got)
	}
}

func TestBranchPage_ZeroKeyZeroChildRejected(t *testing.T) {
	bp := BranchPage{PageID: 20, Keys: nil, Children: nil}
	if _, err := bp.Encode(4096); err != ErrCorruption {
		t.Fatalf("Encode() error = %v, want ErrCorruption (a branch always has at least one child)", err)
	}
}

func TestDecode_ShortPage(t *testing.T) {
	if _, err := DecodeMetaPage([]byte{1, 2, 3}); err != ErrShortPage {
		t.Fatalf("DecodeMetaPage() error = %v, want ErrShortPage", err)
	}
}
