// Package btree implements a copy-on-write B+ tree over pages managed by
// pkg/pager. Every mutation rewrites the path from the changed node to the
// root as new pages, leaving every page reachable from an older root
// (including one still referenced by an inactive meta page) untouched.
//
// Splits are driven by the byte size a page's cells would occupy, not by a
// fixed cell count, since cell sizes in this store are arbitrary. Deletes
// only ever collapse nodes that become completely empty, and replace a
// branch left with a single child by that child; siblings are never merged
// nor rebalanced on underflow, trading temporarily skewed trees for a far
// simpler delete path.
package btree

import (
	"bytes"
	"fmt"
	"sort"

	"parrotdb/pkg/page"
	"parrotdb/pkg/pager"
)

// BTree performs Get/Insert/Delete/RangeScan against a tree rooted at a
// page ID supplied by the caller (the store's active meta page), returning
// a new root page ID on every mutation.
type BTree struct {
	pager *pager.Pager
}

// New returns a BTree backed by the given pager.
func New(p *pager.Pager) *BTree {
	return &BTree{pager: p}
}

// splitResult describes a node that outgrew a single page during a
// mutation and had to split in two.
type splitResult struct {
	leftPageID   uint32
	rightPageID  uint32
	separatorKey []byte
}

type insertResult struct {
	newPageID uint32
	split     *splitResult
}

type deleteResult struct {
	newPageID uint32
	deleted   bool
}

// RootEmpty is the sentinel root page ID denoting an empty tree.
const RootEmpty uint32 = 0

// Get looks up key in the tree rooted at rootPageID.
func (t *BTree) Get(rootPageID uint32, key []byte) ([]byte, bool, error) {
	if rootPageID == RootEmpty {
		return nil, false, nil
	}
	pageID := rootPageID
	for {
		typ, data, err := t.pager.ReadPageType(pageID)
		if err != nil {
			return nil, false, err
		}
		switch typ {
		case page.TypeLeaf:
			leaf, err := page.DecodeLeafPage(data)
			if err != nil {
				return nil, false, err
			}
			idx := sort.Search(len(leaf.Cells), func(i int) bool {
				return bytes.Compare(leaf.Cells[i].Key, key) >= 0
			})
			if idx < len(leaf.Cells) && bytes.Equal(leaf.Cells[idx].Key, key) {
				return leaf.Cells[idx].Value, true, nil
			}
			return nil, false, nil
		case page.TypeBranch:
			branch, err := page.DecodeBranchPage(data)
			if err != nil {
				return nil, false, err
			}
			pageID = branch.Children[findChild(branch, key)]
		default:
			return nil, false, fmt.Errorf("btree: unexpected page type %s at page %d", typ, pageID)
		}
	}
}

// findChild returns the index of the child that owns key, using
// bisect-right semantics: a key equal to a separator routes to the right
// subtree.
func findChild(branch page.BranchPage, key []byte) int {
	idx := sort.Search(len(branch.Keys), func(i int) bool {
		return bytes.Compare(branch.Keys[i], key) > 0
	})
	return idx
}

// Insert writes key/value into the tree rooted at rootPageID and returns
// the new root page ID. A rootPageID of RootEmpty creates a brand-new
// single-leaf tree.
func (t *BTree) Insert(rootPageID uint32, key, value []byte) (uint32, error) {
	if rootPageID == RootEmpty {
		newPageID, err := t.pager.AllocatePage()
		if err != nil {
			return 0, err
		}
		leaf := page.LeafPage{PageID: newPageID, Cells: []page.Cell{{Key: key, Value: value}}}
		if err := t.pager.WriteLeafPage(leaf); err != nil {
			return 0, err
		}
		return newPageID, nil
	}

	result, err := t.insertRecursive(rootPageID, key, value)
	if err != nil {
		return 0, err
	}

	if result.split != nil {
		newRootID, err := t.pager.AllocatePage()
		if err != nil {
			return 0, err
		}
		newRoot := page.BranchPage{
			PageID:   newRootID,
			Keys:     [][]byte{result.split.separatorKey},
			Children: []uint32{result.split.leftPageID, result.split.rightPageID},
		}
		if err := t.pager.WriteBranchPage(newRoot); err != nil {
			return 0, err
		}
		return newRootID, nil
	}

	return result.newPageID, nil
}

func (t *BTree) insertRecursive(pageID uint32, key, value []byte) (insertResult, error) {
	typ, data, err := t.pager.ReadPageType(pageID)
	if err != nil {
		return insertResult{}, err
	}
	switch typ {
	case page.TypeLeaf:
		leaf, err := page.DecodeLeafPage(data)
		if err != nil {
			return insertResult{}, err
		}
		return t.insertLeaf(leaf, key, value)
	case page.TypeBranch:
		branch, err := page.DecodeBranchPage(data)
		if err != nil {
			return insertResult{}, err
		}
		return t.insertBranch(branch, key, value)
	default:
		return insertResult{}, fmt.Errorf("btree: unexpected page type %s at page %d", typ, pageID)
	}
}

func (t *BTree) insertLeaf(leaf page.LeafPage, key, value []byte) (insertResult, error) {
	idx := sort.Search(len(leaf.Cells), func(i int) bool {
		return bytes.Compare(leaf.Cells[i].Key, key) >= 0
	})

	newCells := make([]page.Cell, len(leaf.Cells))
	copy(newCells, leaf.Cells)
	if idx < len(newCells) && bytes.Equal(newCells[idx].Key, key) {
		newCells[idx] = page.Cell{Key: key, Value: value}
	} else {
		newCells = append(newCells, page.Cell{})
		copy(newCells[idx+1:], newCells[idx:])
		newCells[idx] = page.Cell{Key: key, Value: value}
	}

	if page.LeafFits(t.pager.PageSize(), newCells) {
		newPageID, err := t.pager.AllocatePage()
		if err != nil {
			return insertResult{}, err
		}
		newLeaf := page.LeafPage{PageID: newPageID, Cells: newCells, RightSibling: leaf.RightSibling}
		if err := t.pager.WriteLeafPage(newLeaf); err != nil {
			return insertResult{}, err
		}
		return insertResult{newPageID: newPageID}, nil
	}

	return t.splitLeaf(newCells, leaf.RightSibling)
}

func (t *BTree) splitLeaf(cells []page.Cell, oldRightSibling uint32) (insertResult, error) {
	mid, err := leafSplitPoint(t.pager.PageSize(), cells)
	if err != nil {
		return insertResult{}, err
	}
	leftCells := cells[:mid]
	rightCells := cells[mid:]

	rightPageID, err := t.pager.AllocatePage()
	if err != nil {
		return insertResult{}, err
	}
	leftPageID, err := t.pager.AllocatePage()
	if err != nil {
		return insertResult{}, err
	}

	rightLeaf := page.LeafPage{PageID: rightPageID, Cells: rightCells, RightSibling: oldRightSibling}
	leftLeaf := page.LeafPage{PageID: leftPageID, Cells: leftCells, RightSibling: rightPageID}

	if err := t.pager.WriteLeafPage(leftLeaf); err != nil {
		return insertResult{}, err
	}
	if err := t.pager.WriteLeafPage(rightLeaf); err != nil {
		return insertResult{}, err
	}

	separator := rightCells[0].Key

	return insertResult{
		newPageID: leftPageID,
		split: &splitResult{
			leftPageID:   leftPageID,
			rightPageID:  rightPageID,
			separatorKey: separator,
		},
	}, nil
}

func (t *BTree) insertBranch(branch page.BranchPage, key, value []byte) (insertResult, error) {
	childIdx := findChild(branch, key)
	childPageID := branch.Children[childIdx]

	result, err := t.insertRecursive(childPageID, key, value)
	if err != nil {
		return insertResult{}, err
	}

	if result.split == nil {
		newChildren := make([]uint32, len(branch.Children))
		copy(newChildren, branch.Children)
		newChildren[childIdx] = result.newPageID

		newPageID, err := t.pager.AllocatePage()
		if err != nil {
			return insertResult{}, err
		}
		newBranch := page.BranchPage{PageID: newPageID, Keys: branch.Keys, Children: newChildren}
		if err := t.pager.WriteBranchPage(newBranch); err != nil {
			return insertResult{}, err
		}
		return insertResult{newPageID: newPageID}, nil
	}

	return t.insertSeparator(branch, childIdx, result.split)
}

func (t *BTree) insertSeparator(branch page.BranchPage, childIdx int, split *splitResult) (insertResult, error) {
	newKeys := make([][]byte, len(branch.Keys)+1)
	copy(newKeys, branch.Keys[:childIdx])
	newKeys[childIdx] = split.separatorKey
	copy(newKeys[childIdx+1:], branch.Keys[childIdx:])

	newChildren := make([]uint32, len(branch.Children)+1)
	copy(newChildren, branch.Children[:childIdx])
	newChildren[childIdx] = split.leftPageID
	newChildren[childIdx+1] = split.rightPageID
	copy(newChildren[childIdx+2:], branch.Children[childIdx+1:])

	if page.BranchFits(t.pager.PageSize(), newKeys, newChildren) {
		newPageID, err := t.pager.AllocatePage()
		if err != nil {
			return insertResult{}, err
		}
		newBranch := page.BranchPage{PageID: newPageID, Keys: newKeys, Children: newChildren}
		if err := t.pager.WriteBranchPage(newBranch); err != nil {
			return insertResult{}, err
		}
		return insertResult{newPageID: newPageID}, nil
	}

	return t.splitBranch(newKeys, newChildren)
}

func (t *BTree) splitBranch(keys [][]byte, children []uint32) (insertResult, error) {
	mid, err := branchSplitPoint(t.pager.PageSize(), keys, children)
	if err != nil {
		return insertResult{}, err
	}

	leftKeys := keys[:mid]
	leftChildren := children[:mid+1]
	separator := keys[mid]
	rightKeys := keys[mid+1:]
	rightChildren := children[mid+1:]

	leftPageID, err := t.pager.AllocatePage()
	if err != nil {
		return insertResult{}, err
	}
	rightPageID, err := t.pager.AllocatePage()
	if err != nil {
		return insertResult{}, err
	}

	leftBranch := page.BranchPage{PageID: leftPageID, Keys: leftKeys, Children: leftChildren}
	rightBranch := page.BranchPage{PageID: rightPageID, Keys: rightKeys, Children: rightChildren}

	if err := t.pager.WriteBranchPage(leftBranch); err != nil {
		return insertResult{}, err
	}
	if err := t.pager.WriteBranchPage(rightBranch); err != nil {
		return insertResult{}, err
	}

	return insertResult{
		newPageID: leftPageID,
		split: &splitResult{
			leftPageID:   leftPageID,
			rightPageID:  rightPageID,
			separatorKey: separator,
		},
	}, nil
}

// leafSplitPoint picks the smallest mid in [1, len(cells)-1] such that both
// cells[:mid] and cells[mid:] fit in a page of pageSize bytes, so a split
// never produces a half that still overflows. cells is only handed to
// splitLeaf once it has already overflowed LeafFits as a whole, so some mid
// in range always satisfies both halves: at the extreme, mid that isolates
// the single oversized cell in its own half leaves every other cell on the
// other side, and a page that fits with N-1 cells at a given mid keeps
// fitting as mid moves further away from that cell.
func leafSplitPoint(pageSize uint32, cells []page.Cell) (int, error) {
	for mid := 1; mid < len(cells); mid++ {
		if page.LeafFits(pageSize, cells[:mid]) && page.LeafFits(pageSize, cells[mid:]) {
			return mid, nil
		}
	}
	return 0, page.ErrPageTooSmall
}

// branchSplitPoint picks the smallest mid in [0, len(keys)-1] such that both
// resulting branches (separator keys[mid] promoted up, left taking
// keys[:mid]/children[:mid+1], right taking keys[mid+1:]/children[mid+1:])
// fit in a page of pageSize bytes.
func branchSplitPoint(pageSize uint32, keys [][]byte, children []uint32) (int, error) {
	for mid := 0; mid < len(keys); mid++ {
		if page.BranchFits(pageSize, keys[:mid], children[:mid+1]) &&
			page.BranchFits(pageSize, keys[mid+1:], children[mid+1:]) {
			return mid, nil
		}
	}
	return 0, page.ErrPageTooSmall
}

// Delete removes key from the tree rooted at rootPageID and returns the new
// root page ID, which is RootEmpty if the tree becomes empty as a result.
// If key is not present, rootPageID is returned unchanged.
func (t *BTree) Delete(rootPageID uint32, key []byte) (uint32, error) {
	if rootPageID == RootEmpty {
		return RootEmpty, nil
	}

	result, err := t.deleteRecursive(rootPageID, key)
	if err != nil {
		return 0, err
	}
	if !result.deleted {
		return rootPageID, nil
	}
	if result.newPageID == RootEmpty {
		return RootEmpty, nil
	}

	typ, data, err := t.pager.ReadPageType(result.newPageID)
	if err != nil {
		return 0, err
	}
	if typ == page.TypeBranch {
		branch, err := page.DecodeBranchPage(data)
		if err != nil {
			return 0, err
		}
		if len(branch.Keys) == 0 {
			// Root branch has no separators left: collapse to its
			// single remaining child.
			return branch.Children[0], nil
		}
	}

	return result.newPageID, nil
}

func (t *BTree) deleteRecursive(pageID uint32, key []byte) (deleteResult, error) {
	typ, data, err := t.pager.ReadPageType(pageID)
	if err != nil {
		return deleteResult{}, err
	}
	switch typ {
	case page.TypeLeaf:
		leaf, err := page.DecodeLeafPage(data)
		if err != nil {
			return deleteResult{}, err
		}
		return t.deleteLeaf(leaf, key)
	case page.TypeBranch:
		branch, err := page.DecodeBranchPage(data)
		if err != nil {
			return deleteResult{}, err
		}
		return t.deleteBranch(branch, key)
	default:
		return deleteResult{}, fmt.Errorf("btree: unexpected page type %s at page %d", typ, pageID)
	}
}

func (t *BTree) deleteLeaf(leaf page.LeafPage, key []byte) (deleteResult, error) {
	idx := sort.Search(len(leaf.Cells), func(i int) bool {
		return bytes.Compare(leaf.Cells[i].Key, key) >= 0
	})
	if idx >= len(leaf.Cells) || !bytes.Equal(leaf.Cells[idx].Key, key) {
		return deleteResult{newPageID: leaf.PageID, deleted: false}, nil
	}

	newCells := make([]page.Cell, 0, len(leaf.Cells)-1)
	newCells = append(newCells, leaf.Cells[:idx]...)
	newCells = append(newCells, leaf.Cells[idx+1:]...)

	if len(newCells) == 0 {
		return deleteResult{newPageID: RootEmpty, deleted: true}, nil
	}

	newPageID, err := t.pager.AllocatePage()
	if err != nil {
		return deleteResult{}, err
	}
	newLeaf := page.LeafPage{PageID: newPageID, Cells: newCells, RightSibling: leaf.RightSibling}
	if err := t.pager.WriteLeafPage(newLeaf); err != nil {
		return deleteResult{}, err
	}
	return deleteResult{newPageID: newPageID, deleted: true}, nil
}

func (t *BTree) deleteBranch(branch page.BranchPage, key []byte) (deleteResult, error) {
	childIdx := findChild(branch, key)
	childPageID := branch.Children[childIdx]

	result, err := t.deleteRecursive(childPageID, key)
	if err != nil {
		return deleteResult{}, err
	}
	if !result.deleted {
		return deleteResult{newPageID: branch.PageID, deleted: false}, nil
	}

	newChildren := make([]uint32, len(branch.Children))
	copy(newChildren, branch.Children)
	newKeys := make([][]byte, len(branch.Keys))
	copy(newKeys, branch.Keys)

	if result.newPageID == RootEmpty {
		// Child subtree vanished entirely: drop it and its adjoining
		// separator.
		newChildren = append(newChildren[:childIdx], newChildren[childIdx+1:]...)
		if childIdx > 0 {
			newKeys = append(newKeys[:childIdx-1], newKeys[childIdx:]...)
		} else if len(newKeys) > 0 {
			newKeys = newKeys[1:]
		}

		if len(newChildren) == 0 {
			return deleteResult{newPageID: RootEmpty, deleted: true}, nil
		}
		if len(newChildren) == 1 {
			return deleteResult{newPageID: newChildren[0], deleted: true}, nil
		}
	} else {
		newChildren[childIdx] = result.newPageID
	}

	newPageID, err := t.pager.AllocatePage()
	if err != nil {
		return deleteResult{}, err
	}
	newBranch := page.BranchPage{PageID: newPageID, Keys: newKeys, Children: newChildren}
	if err := t.pager.WriteBranchPage(newBranch); err != nil {
		return deleteResult{}, err
	}
	return deleteResult{newPageID: newPageID, deleted: true}, nil
}

// TreeHeight returns the height of the tree rooted at rootPageID: 0 for an
// empty tree, 1 for a tree that is a single leaf.
func (t *BTree) TreeHeight(rootPageID uint32) (int, error) {
	if rootPageID == RootEmpty {
		return 0, nil
	}
	height := 0
	pageID := rootPageID
	for {
		height++
		typ, data, err := t.pager.ReadPageType(pageID)
		if err != nil {
			return 0, err
		}
		if typ == page.TypeLeaf {
			return height, nil
		}
		branch, err := page.DecodeBranchPage(data)
		if err != nil {
			return 0, err
		}
		pageID = branch.Children[0]
	}
}

// CountKeys counts the total number of keys in the tree rooted at
// rootPageID by scanning every leaf.
func (t *BTree) CountKeys(rootPageID uint32) (int, error) {
	cur, err := t.RangeScan(rootPageID, nil, nil)
	if err != nil {
		return 0, err
	}
	count := 0
	for {
		_, _, ok, err := cur.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return count, nil
		}
		count++
	}
}
