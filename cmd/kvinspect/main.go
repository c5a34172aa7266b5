// Command kvinspect inspects a parrotdb database file for debugging and
// learning, the way the original project's tools/db_inspect.py did.
//
// Usage:
//
//	kvinspect --db ./dev.db --summary
//	kvinspect --db ./dev.db --page 3
//	kvinspect --db ./dev.db --tree
//	kvinspect --db ./dev.db --freelist
//
// kvinspect opens the file read-only through pkg/pager directly: there is
// no code path here that can mutate the database.
package main

import (
	"flag"
	"fmt"
	"os"

	"parrotdb/pkg/btree"
	"parrotdb/pkg/page"
	"parrotdb/pkg/pager"
)

func main() {
	dbPath := flag.String("db", "", "path to database file (required)")
	summary := flag.Bool("summary", false, "show database summary")
	pageID := flag.Int("page", -1, "show a specific page")
	tree := flag.Bool("tree", false, "show B+ tree structure")
	freelist := flag.Bool("freelist", false, "show freelist")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "kvinspect: --db is required")
		os.Exit(2)
	}
	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "kvinspect: database file not found: %s\n", *dbPath)
		os.Exit(1)
	}

	p, err := pager.Open(*dbPath, pager.Options{ReadOnly: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvinspect: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	switch {
	case *pageID >= 0:
		printPage(p, uint32(*pageID))
	case *tree:
		printTree(p)
	case *freelist:
		printFreelist(p)
	case *summary:
		printSummary(p)
	default:
		printSummary(p)
	}
}

func printHeader(p *pager.Pager) {
	fmt.Println("=== Header Page (Page 0) ===")
	fmt.Printf("  Page Size: %d bytes\n\n", p.PageSize())
}

func printMetaPages(p *pager.Pager) {
	fmt.Println("=== Meta Pages ===")
	active, activeErr := p.ReadActiveMeta()
	for _, id := range []uint32{pager.MetaPageAID, pager.MetaPageBID} {
		meta, err := p.ReadMetaPage(id)
		if err != nil {
			fmt.Printf("  Meta Page %d: INVALID (%v)\n", id, err)
			continue
		}
		status := " (inactive)"
		if activeErr == nil && meta.PageID == active.PageID {
			status = " (ACTIVE)"
		}
		fmt.Printf("  Meta Page %d%s:\n", id, status)
		fmt.Printf("    txn_id: %d\n", meta.TxnID)
		fmt.Printf("    root_page_id: %d\n", meta.RootPageID)
		fmt.Printf("    freelist_page_id: %d\n", meta.FreelistPageID)
	}
	fmt.Println()
}

func printSummary(p *pager.Pager) {
	fmt.Println("==================================================")
	fmt.Println("DATABASE SUMMARY")
	fmt.Println("==================================================")
	fmt.Println()

	printHeader(p)
	printMetaPages(p)

	fmt.Println("=== File Statistics ===")
	fmt.Printf("  Total Pages: %d\n", p.PageCount())
	fmt.Printf("  Data Pages: %d\n", p.PageCount()-pager.FirstDataPageID)
	fmt.Printf("  Free Pages: %d\n", p.Freelist().Count())
	fmt.Printf("  File Size: %d bytes\n\n", uint64(p.PageCount())*uint64(p.PageSize()))

	meta, err := p.ReadActiveMeta()
	if err != nil {
		return
	}
	if meta.RootPageID != 0 {
		t := btree.New(p)
		height, _ := t.TreeHeight(meta.RootPageID)
		count, _ := t.CountKeys(meta.RootPageID)
		fmt.Println("=== B+ Tree Statistics ===")
		fmt.Printf("  Root Page: %d\n", meta.RootPageID)
		fmt.Printf("  Tree Height: %d\n", height)
		fmt.Printf("  Total Keys: %d\n\n", count)
	}
}

func printPage(p *pager.Pager, id uint32) {
	if id == pager.HeaderPageID {
		printHeader(p)
		return
	}
	if id == pager.MetaPageAID || id == pager.MetaPageBID {
		meta, err := p.ReadMetaPage(id)
		if err != nil {
			fmt.Printf("kvinspect: %v\n", err)
			return
		}
		fmt.Printf("=== Meta Page (Page %d) ===\n", id)
		fmt.Printf("  txn_id: %d\n", meta.TxnID)
		fmt.Printf("  root_page_id: %d\n", meta.RootPageID)
		fmt.Printf("  freelist_page_id: %d\n", meta.FreelistPageID)
		return
	}

	typ, data, err := p.ReadPageType(id)
	if err != nil {
		fmt.Printf("kvinspect: %v\n", err)
		return
	}

	fmt.Printf("=== Page %d ===\n", id)
	fmt.Printf("  Type: %s\n", typ)

	switch typ {
	case page.TypeFreelist:
		fp, err := page.DecodeFreelistPage(data)
		if err != nil {
			fmt.Printf("  decode error: %v\n", err)
			return
		}
		fmt.Printf("  Free Page Count: %d\n", len(fp.FreePageIDs))
		printIDs("  Free Pages", fp.FreePageIDs)
	case page.TypeLeaf:
		lp, err := page.DecodeLeafPage(data)
		if err != nil {
			fmt.Printf("  decode error: %v\n", err)
			return
		}
		fmt.Printf("  Cell Count: %d\n", len(lp.Cells))
		fmt.Printf("  Right Sibling: %d\n", lp.RightSibling)
		limit := len(lp.Cells)
		if limit > 10 {
			limit = 10
		}
		for i := 0; i < limit; i++ {
			fmt.Printf("    [%d] key=%x value=%x\n", i, truncate(lp.Cells[i].Key), truncate(lp.Cells[i].Value))
		}
		if len(lp.Cells) > limit {
			fmt.Printf("    ... and %d more cells\n", len(lp.Cells)-limit)
		}
	case page.TypeBranch:
		bp, err := page.DecodeBranchPage(data)
		if err != nil {
			fmt.Printf("  decode error: %v\n", err)
			return
		}
		fmt.Printf("  Key Count: %d\n", len(bp.Keys))
		fmt.Printf("  Children: %v\n", bp.Children)
		limit := len(bp.Keys)
		if limit > 10 {
			limit = 10
		}
		for i := 0; i < limit; i++ {
			fmt.Printf("    [%d] separator=%x\n", i, truncate(bp.Keys[i]))
		}
		if len(bp.Keys) > limit {
			fmt.Printf("    ... and %d more keys\n", len(bp.Keys)-limit)
		}
	}
	fmt.Println()
}

func printFreelist(p *pager.Pager) {
	fmt.Println("=== Freelist ===")
	meta, err := p.ReadActiveMeta()
	if err != nil {
		fmt.Printf("kvinspect: %v\n", err)
		return
	}
	if meta.FreelistPageID == 0 {
		fmt.Println("  No freelist page allocated")
		fmt.Printf("  In-memory free pages: %d\n", p.Freelist().Count())
		printIDs("  Free page IDs", p.Freelist().ToSortedSlice())
		return
	}
	fp, err := p.ReadFreelistPage(meta.FreelistPageID)
	if err != nil {
		fmt.Printf("kvinspect: %v\n", err)
		return
	}
	fmt.Printf("  Freelist Page ID: %d\n", meta.FreelistPageID)
	fmt.Printf("  Free Page Count: %d\n", len(fp.FreePageIDs))
	printIDs("  Free Pages", fp.FreePageIDs)
	fmt.Println()
}

func printTree(p *pager.Pager) {
	fmt.Println("=== B+ Tree Structure ===")
	meta, err := p.ReadActiveMeta()
	if err != nil {
		fmt.Printf("kvinspect: %v\n", err)
		return
	}
	if meta.RootPageID == 0 {
		fmt.Println("  Tree is empty (no root page)")
		fmt.Println()
		return
	}

	t := btree.New(p)
	height, _ := t.TreeHeight(meta.RootPageID)
	count, _ := t.CountKeys(meta.RootPageID)
	fmt.Printf("  Root Page ID: %d\n", meta.RootPageID)
	fmt.Printf("  Tree Height: %d\n", height)
	fmt.Printf("  Total Keys: %d\n\n", count)

	fmt.Println("  Tree Layout:")
	printTreeNode(p, meta.RootPageID, 0)
	fmt.Println()
}

func printTreeNode(p *pager.Pager, id uint32, depth int) {
	indent := "    "
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	typ, data, err := p.ReadPageType(id)
	if err != nil {
		fmt.Printf("%s[error reading page %d: %v]\n", indent, id, err)
		return
	}

	switch typ {
	case page.TypeLeaf:
		lp, err := page.DecodeLeafPage(data)
		if err != nil {
			fmt.Printf("%s[leaf %d decode error: %v]\n", indent, id, err)
			return
		}
		fmt.Printf("%s[Leaf %d] %d cells\n", indent, id, len(lp.Cells))
		if len(lp.Cells) > 0 && depth < 3 {
			fmt.Printf("%s  keys: %x .. %x\n", indent, truncate(lp.Cells[0].Key), truncate(lp.Cells[len(lp.Cells)-1].Key))
		}
	case page.TypeBranch:
		bp, err := page.DecodeBranchPage(data)
		if err != nil {
			fmt.Printf("%s[branch %d decode error: %v]\n", indent, id, err)
			return
		}
		fmt.Printf("%s[Branch %d] %d keys, %d children\n", indent, id, len(bp.Keys), len(bp.Children))
		if len(bp.Keys) > 0 && depth < 3 {
			fmt.Printf("%s  separators: %x .. %x\n", indent, truncate(bp.Keys[0]), truncate(bp.Keys[len(bp.Keys)-1]))
		}
		if depth < 2 {
			for _, child := range bp.Children {
				printTreeNode(p, child, depth+1)
			}
		} else if depth == 2 {
			fmt.Printf("%s  (%d children not expanded)\n", indent, len(bp.Children))
		}
	}
}

func printIDs(label string, ids []uint32) {
	limit := len(ids)
	if limit > 20 {
		limit = 20
	}
	suffix := ""
	if len(ids) > 20 {
		suffix = "..."
	}
	fmt.Printf("%s: %v%s\n", label, ids[:limit], suffix)
}

func truncate(b []byte) []byte {
	if len(b) > 20 {
		return b[:20]
	}
	return b
}
