package btree

import (
	"bytes"
	"sort"

	"parrotdb/pkg/page"
)

// Cursor iterates key/value pairs in ascending key order over a fixed tree
// snapshot (a single root page ID). It never follows a leaf's
// RightSibling pointer: instead it keeps a stack of (branch, childIndex)
// frames recording the path taken from the root, and backtracks up that
// stack to find the next unexplored subtree. This sidesteps the classic
// CoW hazard where a leaf's sibling pointer, captured before the scan
// began, can end up pointing at a page a concurrent writer has long since
// superseded.
type Cursor struct {
	tree  *BTree
	stack []cursorFrame
	leaf  *page.LeafPage
	pos   int
	start []byte
	end   []byte
	done  bool
}

type cursorFrame struct {
	branch page.BranchPage
	idx    int
}

// RangeScan returns a Cursor over [start, end) in the tree rooted at
// rootPageID. A nil start scans from the beginning; a nil end scans to the
// end.
func (t *BTree) RangeScan(rootPageID uint32, start, end []byte) (*Cursor, error) {
	c := &Cursor{tree: t, start: start, end: end}
	if rootPageID == RootEmpty {
		c.done = true
		return c, nil
	}

	pageID := rootPageID
	for {
		typ, data, err := t.pager.ReadPageType(pageID)
		if err != nil {
			return nil, err
		}
		if typ == page.TypeLeaf {
			leaf, err := page.DecodeLeafPage(data)
			if err != nil {
				return nil, err
			}
			c.leaf = &leaf
			break
		}
		branch, err := page.DecodeBranchPage(data)
		if err != nil {
			return nil, err
		}
		childIdx := 0
		if start != nil {
			childIdx = sort.Search(len(branch.Keys), func(i int) bool {
				return bytes.Compare(branch.Keys[i], start) > 0
			})
		}
		c.stack = append(c.stack, cursorFrame{branch: branch, idx: childIdx})
		pageID = branch.Children[childIdx]
	}

	c.pos = 0
	if start != nil {
		c.pos = sort.Search(len(c.leaf.Cells), func(i int) bool {
			return bytes.Compare(c.leaf.Cells[i].Key, start) >= 0
		})
	}

	return c, nil
}

// Next returns the next key/value pair in range, or ok=false once the scan
// is exhausted.
func (c *Cursor) Next() (key, value []byte, ok bool, err error) {
	for {
		if c.done {
			return nil, nil, false, nil
		}

		if c.leaf != nil && c.pos < len(c.leaf.Cells) {
			cell := c.leaf.Cells[c.pos]
			c.pos++
			if c.end != nil && bytes.Compare(cell.Key, c.end) >= 0 {
				c.done = true
				return nil, nil, false, nil
			}
			return cell.Key, cell.Value, true, nil
		}

		next, err := c.advance()
		if err != nil {
			return nil, nil, false, err
		}
		if next == nil {
			c.done = true
			return nil, nil, false, nil
		}
		c.leaf = next
		c.pos = 0
	}
}

// advance pops the cursor stack until it finds a branch frame with an
// unexplored child, then descends to that subtree's leftmost leaf.
func (c *Cursor) advance() (*page.LeafPage, error) {
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		nextIdx := top.idx + 1
		if nextIdx >= len(top.branch.Children) {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		top.idx = nextIdx
		pageID := top.branch.Children[nextIdx]

		for {
			typ, data, err := c.tree.pager.ReadPageType(pageID)
			if err != nil {
				return nil, err
			}
			if typ == page.TypeLeaf {
				leaf, err := page.DecodeLeafPage(data)
				if err != nil {
					return nil, err
				}
				return &leaf, nil
			}
			branch, err := page.DecodeBranchPage(data)
			if err != nil {
				return nil, err
			}
			c.stack = append(c.stack, cursorFrame{branch: branch, idx: 0})
			pageID = branch.Children[0]
		}
	}
	return nil, nil
}
