// Package freelist tracks page IDs that have been freed by copy-on-write
// operations and are available for reuse by the pager's allocator.
//
// The in-memory set is separate from its on-disk representation
// (pkg/page.FreelistPage); this package only manages membership, leaving
// persistence to the pager.
package freelist

import "sort"

// Freelist is a set of page IDs available for reuse.
type Freelist struct {
	free map[uint32]struct{}
}

// New returns a Freelist seeded with the given page IDs, typically loaded
// from a persisted freelist page.
func New(ids []uint32) *Freelist {
	f := &Freelist{free: make(map[uint32]struct{}, len(ids))}
	for _, id := range ids {
		f.free[id] = struct{}{}
	}
	return f
}

// Allocate removes and returns an arbitrary free page ID, or (0, false) if
// the freelist is empty.
func (f *Freelist) Allocate() (uint32, bool) {
	for id := range f.free {
		delete(f.free, id)
		return id, true
	}
	return 0, false
}

// Free adds a page ID back to the set for future reuse.
func (f *Freelist) Free(id uint32) {
	f.free[id] = struct{}{}
}

// FreeMany adds multiple page IDs at once.
func (f *Freelist) FreeMany(ids []uint32) {
	for _, id := range ids {
		f.free[id] = struct{}{}
	}
}

// Count returns the number of free pages available.
func (f *Freelist) Count() int {
	return len(f.free)
}

// IsEmpty reports whether the freelist has no pages available.
func (f *Freelist) IsEmpty() bool {
	return len(f.free) == 0
}

// Contains reports whether a page ID is currently in the freelist.
func (f *Freelist) Contains(id uint32) bool {
	_, ok := f.free[id]
	return ok
}

// ToSortedSlice returns the free page IDs in ascending order, the form
// persisted into a FreelistPage.
func (f *Freelist) ToSortedSlice() []uint32 {
	ids := make([]uint32, 0, len(f.free))
	for id := range f.free {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clear removes every entry from the freelist.
func (f *Freelist) Clear() {
	f.free = make(map[uint32]struct{})
}
