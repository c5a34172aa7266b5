// Package pager implements fixed-offset page I/O over a single database
// file: the header page, the dual meta pages, and allocation/freeing of
// data pages used by the freelist and B+ tree layers.
//
// Unlike the teacher's own mmap-based pager, this one reads and writes
// pages with plain os.File.ReadAt/WriteAt, the same style used by the
// teacher's simpler dbfile.Database: a page-addressed KV store has no need
// for the teacher's LRU page cache or write-ahead-log-backed dirty tracking
// since every tree write here is already a copy-on-write operation at the
// B+ tree layer; only the two meta pages are rewritten in place.
package pager

import (
	"errors"
	"fmt"
	"os"

	"parrotdb/pkg/freelist"
	"parrotdb/pkg/page"
)

// Reserved page IDs.
const (
	HeaderPageID    = 0
	MetaPageAID     = 1
	MetaPageBID     = 2
	FirstDataPageID = 3
)

// Errors returned by the pager.
var (
	// ErrDatabaseLocked is returned when a writer tries to open a file
	// that is already locked by another process.
	ErrDatabaseLocked = errors.New("pager: database file is locked by another process")
	// ErrClosed is returned by any operation on a closed pager.
	ErrClosed = errors.New("pager: pager is closed")
	// ErrReadOnly is returned when a mutating call is made on a pager
	// opened read-only.
	ErrReadOnly = errors.New("pager: database opened read-only")
	// ErrBothMetaInvalid is returned when neither meta page passes its
	// checksum, meaning the database has no recoverable active state.
	ErrBothMetaInvalid = errors.New("pager: both meta pages are invalid")
)

// Options configures how a Pager opens its file.
type Options struct {
	// PageSize is used only when creating a new database file. Ignored
	// when opening an existing one, whose page size is read from the
	// header page.
	PageSize uint32
	// CreateIfMissing creates a new database file when path does not
	// exist.
	CreateIfMissing bool
	// ReadOnly opens the file without acquiring the exclusive writer
	// lock, and rejects mutating calls.
	ReadOnly bool
}

// Pager manages page-addressed I/O for a single database file.
type Pager struct {
	path     string
	file     *os.File
	pageSize uint32
	readOnly bool
	locked   bool

	freelist   *freelist.Freelist
	nextPageID uint32
}

// Open opens an existing database file, or creates one if it does not
// exist and opts.CreateIfMissing is set.
func Open(path string, opts Options) (*Pager, error) {
	if opts.PageSize == 0 {
		opts.PageSize = page.DefaultPageSize
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if !exists && !errors.Is(statErr, os.ErrNotExist) {
		return nil, statErr
	}

	if !exists {
		if !opts.CreateIfMissing {
			return nil, os.ErrNotExist
		}
		return create(path, opts)
	}
	return openExisting(path, opts)
}

func create(path string, opts Options) (*Pager, error) {
	flags := os.O_RDWR | os.O_CREATE | os.O_EXCL
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: create %s: %w", path, err)
	}

	p := &Pager{
		path:       path,
		file:       f,
		pageSize:   opts.PageSize,
		readOnly:   opts.ReadOnly,
		freelist:   freelist.New(nil),
		nextPageID: FirstDataPageID,
	}

	if !opts.ReadOnly {
		if err := lockFile(f); err != nil {
			f.Close()
			os.Remove(path)
			return nil, err
		}
		p.locked = true
	}

	header := page.NewHeaderPage(opts.PageSize)
	if err := p.writePageRaw(HeaderPageID, header.Encode(opts.PageSize)); err != nil {
		p.Close()
		return nil, err
	}

	metaA := page.MetaPage{PageID: MetaPageAID, TxnID: 0}
	metaB := page.MetaPage{PageID: MetaPageBID, TxnID: 0}
	if err := p.writePageRaw(MetaPageAID, metaA.Encode(opts.PageSize)); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.writePageRaw(MetaPageBID, metaB.Encode(opts.PageSize)); err != nil {
		p.Close()
		return nil, err
	}

	if err := p.Sync(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

func openExisting(path string, opts Options) (*Pager, error) {
	flags := os.O_RDWR
	if opts.ReadOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: open %s: %w", path, err)
	}

	p := &Pager{
		path:     path,
		file:     f,
		readOnly: opts.ReadOnly,
	}

	if !opts.ReadOnly {
		if err := lockFile(f); err != nil {
			f.Close()
			return nil, err
		}
		p.locked = true
	}

	headerData := make([]byte, page.HeaderSize)
	if _, err := f.ReadAt(headerData, HeaderPageID); err != nil {
		p.Close()
		return nil, fmt.Errorf("pager: read header: %w", err)
	}
	header, err := page.DecodeHeaderPage(headerData)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.pageSize = header.PageSize

	info, err := f.Stat()
	if err != nil {
		p.Close()
		return nil, err
	}
	p.nextPageID = uint32(info.Size() / int64(p.pageSize))

	meta, err := p.ReadActiveMeta()
	if err != nil {
		p.Close()
		return nil, err
	}
	if meta.FreelistPageID != 0 {
		fp, err := p.ReadFreelistPage(meta.FreelistPageID)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.freelist = freelist.New(fp.FreePageIDs)
	} else {
		p.freelist = freelist.New(nil)
	}

	return p, nil
}

func (p *Pager) pageOffset(id uint32) int64 {
	return int64(id) * int64(p.pageSize)
}

func (p *Pager) readPageRaw(id uint32) ([]byte, error) {
	if p.file == nil {
		return nil, ErrClosed
	}
	buf := make([]byte, p.pageSize)
	n, err := p.file.ReadAt(buf, p.pageOffset(id))
	if err != nil {
		return nil, fmt.Errorf("pager: read page %d: %w", id, err)
	}
	if uint32(n) < p.pageSize {
		return nil, fmt.Errorf("%w: page %d", page.ErrShortPage, id)
	}
	return buf, nil
}

func (p *Pager) writePageRaw(id uint32, data []byte) error {
	if p.file == nil {
		return ErrClosed
	}
	if p.readOnly {
		return ErrReadOnly
	}
	if uint32(len(data)) != p.pageSize {
		return fmt.Errorf("pager: page %d: expected %d bytes, got %d", id, p.pageSize, len(data))
	}
	_, err := p.file.WriteAt(data, p.pageOffset(id))
	if err != nil {
		return fmt.Errorf("pager: write page %d: %w", id, err)
	}
	return nil
}

// PageSize returns the database's fixed page size.
func (p *Pager) PageSize() uint32 { return p.pageSize }

// PageCount returns the total number of pages currently in the file.
func (p *Pager) PageCount() uint32 { return p.nextPageID }

// Freelist exposes the in-memory freelist for inspection.
func (p *Pager) Freelist() *freelist.Freelist { return p.freelist }

// ReadMetaPage reads one of the two dual meta pages by ID (1 or 2).
func (p *Pager) ReadMetaPage(id uint32) (page.MetaPage, error) {
	if id != MetaPageAID && id != MetaPageBID {
		return page.MetaPage{}, fmt.Errorf("pager: invalid meta page id %d", id)
	}
	data, err := p.readPageRaw(id)
	if err != nil {
		return page.MetaPage{}, err
	}
	return page.DecodeMetaPage(data)
}

// ReadActiveMeta returns whichever of the two meta pages is active: the one
// with the higher valid txn_id, meta page A on a tie, or whichever one is
// valid if the other fails to decode.
func (p *Pager) ReadActiveMeta() (page.MetaPage, error) {
	metaA, errA := p.ReadMetaPage(MetaPageAID)
	metaB, errB := p.ReadMetaPage(MetaPageBID)

	if errA != nil && errB != nil {
		return page.MetaPage{}, ErrBothMetaInvalid
	}
	if errA != nil {
		return metaB, nil
	}
	if errB != nil {
		return metaA, nil
	}
	if metaB.TxnID > metaA.TxnID {
		return metaB, nil
	}
	return metaA, nil
}

// InactiveMetaID returns the page ID of the meta page that is not
// currently active, the slot the next commit will write into.
func (p *Pager) InactiveMetaID() (uint32, error) {
	active, err := p.ReadActiveMeta()
	if err != nil {
		return 0, err
	}
	if active.PageID == MetaPageAID {
		return MetaPageBID, nil
	}
	return MetaPageAID, nil
}

// WriteMetaPage writes one of the two dual meta pages.
func (p *Pager) WriteMetaPage(m page.MetaPage) error {
	if m.PageID != MetaPageAID && m.PageID != MetaPageBID {
		return fmt.Errorf("pager: invalid meta page id %d", m.PageID)
	}
	return p.writePageRaw(m.PageID, m.Encode(p.pageSize))
}

// ReadFreelistPage reads a persisted freelist page.
func (p *Pager) ReadFreelistPage(id uint32) (page.FreelistPage, error) {
	data, err := p.readPageRaw(id)
	if err != nil {
		return page.FreelistPage{}, err
	}
	return page.DecodeFreelistPage(data)
}

// WriteFreelistPage persists a freelist page.
func (p *Pager) WriteFreelistPage(fp page.FreelistPage) error {
	data, err := fp.Encode(p.pageSize)
	if err != nil {
		return err
	}
	return p.writePageRaw(fp.PageID, data)
}

// ReadLeafPage reads a B+ tree leaf page.
func (p *Pager) ReadLeafPage(id uint32) (page.LeafPage, error) {
	data, err := p.readPageRaw(id)
	if err != nil {
		return page.LeafPage{}, err
	}
	return page.DecodeLeafPage(data)
}

// WriteLeafPage persists a B+ tree leaf page.
func (p *Pager) WriteLeafPage(lp page.LeafPage) error {
	data, err := lp.Encode(p.pageSize)
	if err != nil {
		return err
	}
	return p.writePageRaw(lp.PageID, data)
}

// ReadBranchPage reads a B+ tree branch page.
func (p *Pager) ReadBranchPage(id uint32) (page.BranchPage, error) {
	data, err := p.readPageRaw(id)
	if err != nil {
		return page.BranchPage{}, err
	}
	return page.DecodeBranchPage(data)
}

// WriteBranchPage persists a B+ tree branch page.
func (p *Pager) WriteBranchPage(bp page.BranchPage) error {
	data, err := bp.Encode(p.pageSize)
	if err != nil {
		return err
	}
	return p.writePageRaw(bp.PageID, data)
}

// ReadPageType reads a whole page and returns its type byte together with
// the raw page image, used by tree descent to decide whether to decode a
// branch or leaf page. The checksum is verified later, by the decoder.
func (p *Pager) ReadPageType(id uint32) (page.Type, []byte, error) {
	data, err := p.readPageRaw(id)
	if err != nil {
		return 0, nil, err
	}
	if len(data) < 1 {
		return 0, nil, page.ErrShortPage
	}
	return page.Type(data[0]), data, nil
}

// AllocatePage returns a page ID for a new page, reusing one from the
// in-memory freelist if available, otherwise extending the file.
func (p *Pager) AllocatePage() (uint32, error) {
	if p.readOnly {
		return 0, ErrReadOnly
	}
	if id, ok := p.freelist.Allocate(); ok {
		return id, nil
	}
	id := p.nextPageID
	p.nextPageID++
	return id, nil
}

// FreePage returns a page ID to the freelist for future reuse. It is the
// caller's responsibility to ensure no live reference to the page remains.
func (p *Pager) FreePage(id uint32) error {
	if id < FirstDataPageID {
		return fmt.Errorf("pager: cannot free reserved page %d", id)
	}
	p.freelist.Free(id)
	return nil
}

// Sync flushes all writes to stable storage.
func (p *Pager) Sync() error {
	if p.file == nil {
		return ErrClosed
	}
	return p.file.Sync()
}

// Close releases the writer lock (if held) and closes the underlying file.
func (p *Pager) Close() error {
	if p.file == nil {
		return nil
	}
	var err error
	if p.locked {
		if uerr := unlockFile(p.file); uerr != nil && err == nil {
			err = uerr
		}
		p.locked = false
	}
	if cerr := p.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	p.file = nil
	return err
}
