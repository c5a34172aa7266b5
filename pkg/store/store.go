// Package store is the embedding surface of parrotdb: it wires the page
// codecs (pkg/page), the pager (pkg/pager) and the copy-on-write B+ tree
// (pkg/btree) together behind a Get/Put/Delete/Scan API and drives the
// commit protocol that makes a mutation durable.
//
// Commit is shadow paging, not log-then-apply: every Put/Delete writes
// brand-new pages along the path from the changed leaf to the root,
// leaving all previously-reachable pages untouched, then the store commits
// by (1) persisting the freelist page if the freelist is non-empty, (2) writing the
// inactive meta page with an incremented txn_id pointing at the new root
// and freelist, and (3) calling fsync. A crash at any point before fsync
// returns leaves the previously-active meta page, and everything it
// reaches, exactly as it was.
package store

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"parrotdb/internal/logger"
	"parrotdb/internal/metrics"
	"parrotdb/pkg/btree"
	"parrotdb/pkg/page"
	"parrotdb/pkg/pager"
)

// ErrKeyNotFound is returned by Get and Delete when the requested key does
// not exist.
var ErrKeyNotFound = errors.New("store: key not found")

// Options configures Open. There is no config-file format: a store is an
// embedded library, so configuration is plain Go values.
type Options struct {
	// PageSize is used only when creating a new database file.
	PageSize uint32
	// CreateIfMissing creates a new database file when path does not
	// exist.
	CreateIfMissing bool
	// ReadOnly opens the store without acquiring the writer lock and
	// rejects Put/Delete.
	ReadOnly bool
	// Logger receives structured events for every non-trivial
	// operation. Defaults to a no-op logger.
	Logger *logger.Logger
	// Metrics receives counters/histograms/gauges for every operation.
	// Defaults to a private, unregistered Metrics instance.
	Metrics *metrics.Metrics
}

// Store is a single-writer, multi-reader embedded key-value store backed
// by a copy-on-write B+ tree over a single file.
type Store struct {
	mu sync.Mutex

	path   string
	pager  *pager.Pager
	tree   *btree.BTree
	log    *logger.Logger
	met    *metrics.Metrics

	rootPageID uint32
	txnID      uint64
}

// Open opens (or creates) the database file at path.
func Open(path string, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("store")
	met := opts.Metrics
	if met == nil {
		met = metrics.New()
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	p, err := pager.Open(path, pager.Options{
		PageSize:        opts.PageSize,
		CreateIfMissing: opts.CreateIfMissing,
		ReadOnly:        opts.ReadOnly,
	})
	if err != nil {
		return nil, err
	}

	meta, err := p.ReadActiveMeta()
	if err != nil {
		p.Close()
		return nil, err
	}

	s := &Store{
		path:       path,
		pager:      p,
		tree:       btree.New(p),
		log:        log,
		met:        met,
		rootPageID: meta.RootPageID,
		txnID:      meta.TxnID,
	}

	log.LogOpen(path, p.PageSize(), !existed)
	return s, nil
}

// Get looks up key, returning ErrKeyNotFound if it is absent.
func (s *Store) Get(key []byte) ([]byte, error) {
	start := time.Now()
	s.mu.Lock()
	root := s.rootPageID
	s.mu.Unlock()

	value, ok, err := s.tree.Get(root, key)
	s.recordOp("get", start, err)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

// Put inserts or updates key with value and commits the change durably
// before returning.
func (s *Store) Put(key, value []byte) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	newRoot, err := s.tree.Insert(s.rootPageID, key, value)
	if err != nil {
		s.recordOp("put", start, err)
		return err
	}
	err = s.commit(newRoot)
	s.recordOp("put", start, err)
	return err
}

// Delete removes key, returning ErrKeyNotFound if it is absent. The
// removal is committed durably before returning.
func (s *Store) Delete(key []byte) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found, err := s.tree.Get(s.rootPageID, key)
	if err != nil {
		s.recordOp("delete", start, err)
		return err
	}
	if !found {
		s.recordOp("delete", start, ErrKeyNotFound)
		return ErrKeyNotFound
	}

	newRoot, err := s.tree.Delete(s.rootPageID, key)
	if err != nil {
		s.recordOp("delete", start, err)
		return err
	}
	err = s.commit(newRoot)
	s.recordOp("delete", start, err)
	return err
}

// Scan returns a cursor over [start, end) in ascending key order as of the
// moment Scan is called. A nil start scans from the beginning; a nil end
// scans to the end.
func (s *Store) Scan(start, end []byte) (*btree.Cursor, error) {
	t0 := time.Now()
	s.mu.Lock()
	root := s.rootPageID
	s.mu.Unlock()

	cur, err := s.tree.RangeScan(root, start, end)
	s.recordOp("scan", t0, err)
	return cur, err
}

// commit persists newRoot as the tree's new root durably: write a fresh
// freelist page if the freelist is non-empty (otherwise the meta records
// freelist page 0), write the inactive meta page with an incremented
// txn_id, then fsync. The caller must hold s.mu.
func (s *Store) commit(newRoot uint32) error {
	start := time.Now()

	freelistPageID := uint32(0)
	if !s.pager.Freelist().IsEmpty() {
		id, err := s.pager.AllocatePage()
		if err != nil {
			return fmt.Errorf("store: commit: allocate freelist page: %w", err)
		}
		fp := page.FreelistPage{PageID: id, FreePageIDs: s.pager.Freelist().ToSortedSlice()}
		if err := s.pager.WriteFreelistPage(fp); err != nil {
			return fmt.Errorf("store: commit: write freelist page: %w", err)
		}
		freelistPageID = id
	}

	inactiveID, err := s.pager.InactiveMetaID()
	if err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	newTxnID := s.txnID + 1
	meta := page.MetaPage{
		PageID:         inactiveID,
		TxnID:          newTxnID,
		RootPageID:     newRoot,
		FreelistPageID: freelistPageID,
	}
	if err := s.pager.WriteMetaPage(meta); err != nil {
		return fmt.Errorf("store: commit: write meta page: %w", err)
	}

	if err := s.pager.Sync(); err != nil {
		return fmt.Errorf("store: commit: fsync: %w", err)
	}

	s.rootPageID = newRoot
	s.txnID = newTxnID

	s.log.LogCommit(newTxnID, inactiveID, time.Since(start), nil)
	s.met.RecordCommit(time.Since(start))
	s.refreshGauges()
	return nil
}

func (s *Store) refreshGauges() {
	height, err := s.tree.TreeHeight(s.rootPageID)
	if err != nil {
		return
	}
	s.met.UpdateGauges(s.pager.PageCount(), uint32(s.pager.Freelist().Count()), height)
}

func (s *Store) recordOp(op string, start time.Time, err error) {
	status := "ok"
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		status = "error"
	} else if errors.Is(err, ErrKeyNotFound) {
		status = "not_found"
	}
	s.met.RecordOp(op, status, time.Since(start))
}

// Registry returns the Prometheus registry the store's metrics are
// registered against, for an embedder to expose however it serves
// metrics; Store itself opens no network listener.
func (s *Store) Registry() *prometheus.Registry {
	return s.met.Registry()
}

// Close releases the writer lock (if held) and closes the underlying
// file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.pager.Close()
	s.log.LogClose(s.path)
	return err
}
