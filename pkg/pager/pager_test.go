package pager

import (
	"os"
	"path/filepath"
	"testing"

	"parrotdb/pkg/page"
)

func openTemp(t *testing.T, opts Options) *Pager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if opts.PageSize == 0 {
		opts.PageSize = 256
	}
	opts.CreateIfMissing = true
	p, err := Open(path, opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPager_CreateInitializesHeaderAndMeta(t *testing.T) {
	p := openTemp(t, Options{})

	if p.PageCount() != FirstDataPageID {
		t.Errorf("PageCount() = %d, want %d", p.PageCount(), FirstDataPageID)
	}

	meta, err := p.ReadActiveMeta()
	if err != nil {
		t.Fatalf("ReadActiveMeta() error = %v", err)
	}
	if meta.TxnID != 0 || meta.RootPageID != 0 {
		t.Errorf("fresh meta = %+v, want zero-valued", meta)
	}
}

func TestPager_AllocateGrowsFile(t *testing.T) {
	p := openTemp(t, Options{})

	id1, err := p.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error = %v", err)
	}
	id2, err := p.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error = %v", err)
	}
	if id1 != FirstDataPageID || id2 != FirstDataPageID+1 {
		t.Errorf("got ids %d, %d, want %d, %d", id1, id2, FirstDataPageID, FirstDataPageID+1)
	}
}

func TestPager_FreeThenReallocate(t *testing.T) {
	p := openTemp(t, Options{})

	id, err := p.AllocatePage()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.FreePage(id); err != nil {
		t.Fatalf("FreePage() error = %v", err)
	}
	reused, err := p.AllocatePage()
	if err != nil {
		t.Fatal(err)
	}
	if reused != id {
		t.Errorf("AllocatePage() after free = %d, want reused id %d", reused, id)
	}
}

func TestPager_FreeReservedPageFails(t *testing.T) {
	p := openTemp(t, Options{})
	if err := p.FreePage(HeaderPageID); err == nil {
		t.Fatal("expected error freeing reserved page")
	}
}

func TestPager_WriteReadLeafPage(t *testing.T) {
	p := openTemp(t, Options{})
	id, err := p.AllocatePage()
	if err != nil {
		t.Fatal(err)
	}
	lp := page.LeafPage{PageID: id, Cells: []page.Cell{{Key: []byte("k"), Value: []byte("v")}}}
	if err := p.WriteLeafPage(lp); err != nil {
		t.Fatalf("WriteLeafPage() error = %v", err)
	}
	got, err := p.ReadLeafPage(id)
	if err != nil {
		t.Fatalf("ReadLeafPage() error = %v", err)
	}
	if len(got.Cells) != 1 || string(got.Cells[0].Key) != "k" {
		t.Errorf("ReadLeafPage() = %+v, want one cell k=v", got)
	}
}

func TestPager_CommitSwitchesActiveMeta(t *testing.T) {
	p := openTemp(t, Options{})

	inactive, err := p.InactiveMetaID()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.WriteMetaPage(page.MetaPage{PageID: inactive, TxnID: 1, RootPageID: 3}); err != nil {
		t.Fatal(err)
	}

	active, err := p.ReadActiveMeta()
	if err != nil {
		t.Fatal(err)
	}
	if active.PageID != inactive || active.TxnID != 1 {
		t.Errorf("ReadActiveMeta() = %+v, want the just-written page", active)
	}
}

func TestPager_ReopenPreservesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := Open(path, Options{PageSize: 256, CreateIfMissing: true})
	if err != nil {
		t.Fatal(err)
	}
	id, err := p.AllocatePage()
	if err != nil {
		t.Fatal(err)
	}
	lp := page.LeafPage{PageID: id, Cells: []page.Cell{{Key: []byte("k"), Value: []byte("v")}}}
	if err := p.WriteLeafPage(lp); err != nil {
		t.Fatal(err)
	}
	inactive, _ := p.InactiveMetaID()
	if err := p.WriteMetaPage(page.MetaPage{PageID: inactive, TxnID: 1, RootPageID: id}); err != nil {
		t.Fatal(err)
	}
	if err := p.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	defer reopened.Close()

	meta, err := reopened.ReadActiveMeta()
	if err != nil {
		t.Fatal(err)
	}
	if meta.RootPageID != id {
		t.Errorf("reopened RootPageID = %d, want %d", meta.RootPageID, id)
	}
}

func TestPager_ReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := Open(path, Options{PageSize: 256, CreateIfMissing: true})
	if err != nil {
		t.Fatal(err)
	}
	p.Close()

	ro, err := Open(path, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("Open() read-only error = %v", err)
	}
	defer ro.Close()

	if _, err := ro.AllocatePage(); err != ErrReadOnly {
		t.Fatalf("AllocatePage() on read-only pager error = %v, want ErrReadOnly", err)
	}
}

// TestPager_CrashRecoverySelectsCommittedMeta covers property #10 (crash
// recovery): zeroing the inactive meta page after a commit must not disturb
// which meta is selected active on reopen, since recovery only ever reads
// whichever meta page carries the higher valid txn_id.
func TestPager_CrashRecoverySelectsCommittedMeta(t *testing.T) {
	pageSize := uint32(256)
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := Open(path, Options{PageSize: pageSize, CreateIfMissing: true})
	if err != nil {
		t.Fatal(err)
	}

	id, err := p.AllocatePage()
	if err != nil {
		t.Fatal(err)
	}
	lp := page.LeafPage{PageID: id, Cells: []page.Cell{{Key: []byte("k"), Value: []byte("v")}}}
	if err := p.WriteLeafPage(lp); err != nil {
		t.Fatal(err)
	}

	inactive, err := p.InactiveMetaID()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.WriteMetaPage(page.MetaPage{PageID: inactive, TxnID: 1, RootPageID: id}); err != nil {
		t.Fatal(err)
	}
	if err := p.Sync(); err != nil {
		t.Fatal(err)
	}

	active, err := p.ReadActiveMeta()
	if err != nil {
		t.Fatal(err)
	}
	staleMetaID := MetaPageAID
	if active.PageID == MetaPageAID {
		staleMetaID = MetaPageBID
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	// Zero exactly the stale (inactive) meta page, as a crash mid-write to
	// that slot would leave it.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt(make([]byte, pageSize), int64(staleMetaID)*int64(pageSize)); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen after zeroing inactive meta error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.ReadActiveMeta()
	if err != nil {
		t.Fatalf("ReadActiveMeta() error = %v", err)
	}
	if got.RootPageID != id || got.TxnID != 1 {
		t.Fatalf("ReadActiveMeta() after zeroing inactive meta = %+v, want committed root %d at txn 1", got, id)
	}
}

func TestPager_SecondWriterLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := Open(path, Options{PageSize: 256, CreateIfMissing: true})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	_, err = Open(path, Options{})
	if err != ErrDatabaseLocked {
		t.Fatalf("second Open() error = %v, want ErrDatabaseLocked", err)
	}
}
