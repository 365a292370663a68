package bptree

import (
	"fmt"
	"strings"

	"storemy/pkg/storage/buffer"
	"storemy/pkg/storage/page"
	"storemy/pkg/storage/rid"
)

// SearchMode selects which latch mode a descent acquires and what counts
// as a "safe" node during crabbing.
type SearchMode int

const (
	ModeFind SearchMode = iota
	ModeInsert
	ModeDelete
)

// BPlusTree is an ordered index over fixed-width keys, backed by pages
// fetched through a buffer pool. Concurrent descents latch-crab: a reader
// acquires R-latches, a writer acquires W-latches, and ancestor latches are
// released the moment a node is proven safe for the current operation.
type BPlusTree[K any] struct {
	name       string
	bpm        *buffer.PoolManager
	kt         KeyType[K]
	rootPageID int32
}

// New opens (or creates, if absent) the named index's directory entry and
// returns a tree positioned at its current root.
func New[K any](name string, bpm *buffer.PoolManager, kt KeyType[K]) (*BPlusTree[K], error) {
	t := &BPlusTree[K]{name: name, bpm: bpm, kt: kt, rootPageID: page.InvalidID}

	hpg, err := bpm.FetchPage(page.HeaderPageID)
	if err != nil {
		return nil, err
	}
	hp := NewHeaderPage(hpg)
	if id, ok := hp.GetRootID(name); ok {
		t.rootPageID = id
	}
	bpm.UnpinPage(page.HeaderPageID, false)
	return t, nil
}

func (t *BPlusTree[K]) IsEmpty() bool { return t.rootPageID == page.InvalidID }

func (t *BPlusTree[K]) fetchLatch(id int32, mode SearchMode) (*page.Page, error) {
	pg, err := t.bpm.FetchPage(id)
	if err != nil {
		return nil, err
	}
	if mode == ModeFind {
		pg.RLatch()
	} else {
		pg.WLatch()
	}
	return pg, nil
}

func (t *BPlusTree[K]) release(pg *page.Page, mode SearchMode, dirty bool) {
	if mode == ModeFind {
		pg.RUnlatch()
	} else {
		pg.WUnlatch()
	}
	t.bpm.UnpinPage(pg.PageID, dirty)
}

func isSafe(pg *page.Page, mode SearchMode) bool {
	h := header{pg}
	switch mode {
	case ModeInsert:
		return h.size() < h.maxSize()
	case ModeDelete:
		return h.size() > minSize(h)
	default:
		return true
	}
}

// findLeafPage descends from the root to the leaf owning key, crabbing
// latches as it goes. It returns the leaf, still pinned and latched in
// mode, plus any ancestors that were not yet proven safe and so are still
// held (closest parent last); the caller must release the leaf and every
// remaining ancestor.
func (t *BPlusTree[K]) findLeafPage(key K, mode SearchMode, leftmost bool) (*page.Page, []*page.Page, error) {
	root, err := t.fetchLatch(t.rootPageID, mode)
	if err != nil {
		return nil, nil, err
	}
	stack := []*page.Page{root}

	for !IsLeafPage(stack[len(stack)-1]) {
		cur := stack[len(stack)-1]
		ip := OpenInternalPage(cur, t.kt)

		var childID int32
		if leftmost {
			childID = ip.ValueAt(0)
		} else {
			childID = ip.Lookup(key)
		}

		child, err := t.fetchLatch(childID, mode)
		if err != nil {
			for _, anc := range stack {
				t.release(anc, mode, false)
			}
			return nil, nil, err
		}
		stack = append(stack, child)

		if isSafe(child, mode) {
			for _, anc := range stack[:len(stack)-1] {
				t.release(anc, mode, false)
			}
			stack = stack[len(stack)-1:]
		}
	}

	leaf := stack[len(stack)-1]
	return leaf, stack[:len(stack)-1], nil
}

func (t *BPlusTree[K]) releaseAll(pages []*page.Page, mode SearchMode, dirty bool) {
	for _, pg := range pages {
		t.release(pg, mode, dirty)
	}
}

// GetValue looks up key and returns its RID, if present.
func (t *BPlusTree[K]) GetValue(key K) (rid.RID, bool, error) {
	if t.IsEmpty() {
		return rid.RID{}, false, nil
	}
	leaf, ancestors, err := t.findLeafPage(key, ModeFind, false)
	if err != nil {
		return rid.RID{}, false, err
	}
	lp := OpenLeafPage(leaf, t.kt)
	v, ok := lp.Lookup(key)
	t.releaseAll(ancestors, ModeFind, false)
	t.release(leaf, ModeFind, false)
	return v, ok, nil
}

// Insert adds (key, value). Returns false without modifying the tree if
// key already exists, since the index supports unique keys only.
func (t *BPlusTree[K]) Insert(key K, value rid.RID) (bool, error) {
	if t.IsEmpty() {
		return true, t.startNewTree(key, value)
	}
	return t.insertIntoLeaf(key, value)
}

func (t *BPlusTree[K]) startNewTree(key K, value rid.RID) error {
	pg, id, err := t.bpm.NewPage()
	if err != nil {
		return err
	}
	t.rootPageID = id
	if err := t.updateRootPageID(true); err != nil {
		return err
	}
	lp := NewLeafPage(pg, t.kt, id, page.InvalidID)
	lp.Insert(key, value)
	t.bpm.UnpinPage(id, true)
	return nil
}

func (t *BPlusTree[K]) insertIntoLeaf(key K, value rid.RID) (bool, error) {
	leaf, ancestors, err := t.findLeafPage(key, ModeInsert, false)
	if err != nil {
		return false, err
	}
	lp := OpenLeafPage(leaf, t.kt)

	if _, exists := lp.Lookup(key); exists {
		t.releaseAll(ancestors, ModeInsert, false)
		t.release(leaf, ModeInsert, false)
		return false, nil
	}

	newSize := lp.Insert(key, value)
	if newSize <= lp.MaxSize() {
		t.releaseAll(ancestors, ModeInsert, false)
		t.release(leaf, ModeInsert, true)
		return true, nil
	}

	splitKey, sibling, err := t.splitLeaf(lp)
	if err != nil {
		t.releaseAll(ancestors, ModeInsert, false)
		t.release(leaf, ModeInsert, true)
		return false, err
	}
	if err := t.insertIntoParent(leaf, splitKey, sibling, ancestors); err != nil {
		return false, err
	}
	return true, nil
}

// splitLeaf allocates a fresh leaf, moves the upper half of entries into
// it, and returns the separator key and the new (pinned, unlatched) page.
func (t *BPlusTree[K]) splitLeaf(lp *LeafPage[K]) (K, *page.Page, error) {
	pg, id, err := t.bpm.NewPage()
	if err != nil {
		var zero K
		return zero, nil, err
	}
	sibling := NewLeafPage(pg, t.kt, id, lp.header.parentPageID())
	lp.MoveHalfTo(sibling)
	splitKey, _ := sibling.GetItem(0)
	return splitKey, pg, nil
}

func (t *BPlusTree[K]) splitInternal(ip *InternalPage[K]) (K, *page.Page, error) {
	pg, id, err := t.bpm.NewPage()
	if err != nil {
		var zero K
		return zero, nil, err
	}
	sibling := NewInternalPage(pg, t.kt, id, ip.header.parentPageID())
	ip.MoveHalfTo(sibling, func(childID int32) {
		t.reparent(childID, id)
	})
	splitKey := sibling.KeyAt(0)
	return splitKey, pg, nil
}

func (t *BPlusTree[K]) reparent(childID, parentID int32) {
	pg, err := t.bpm.FetchPage(childID)
	if err != nil {
		return
	}
	header{pg}.setParentPageID(parentID)
	t.bpm.UnpinPage(childID, true)
}

// insertIntoParent links newChild into oldNode's parent under the given
// separator key, splitting the parent recursively if that overflows it.
// oldNode and newChild arrive pinned (and, for oldNode, W-latched); both
// are released before returning.
func (t *BPlusTree[K]) insertIntoParent(oldNode *page.Page, key K, newChild *page.Page, ancestors []*page.Page) error {
	parentID := header{oldNode}.parentPageID()

	if parentID == page.InvalidID {
		rootPg, rootID, err := t.bpm.NewPage()
		if err != nil {
			t.release(oldNode, ModeInsert, true)
			t.bpm.UnpinPage(newChild.PageID, true)
			return err
		}
		ip := NewInternalPage(rootPg, t.kt, rootID, page.InvalidID)
		ip.PopulateNewRoot(oldNode.PageID, key, newChild.PageID)

		t.rootPageID = rootID
		header{oldNode}.setParentPageID(rootID)
		header{newChild}.setParentPageID(rootID)

		if err := t.updateRootPageID(false); err != nil {
			t.bpm.UnpinPage(rootID, true)
			t.release(oldNode, ModeInsert, true)
			t.bpm.UnpinPage(newChild.PageID, true)
			return err
		}
		t.bpm.UnpinPage(rootID, true)
		t.release(oldNode, ModeInsert, true)
		t.bpm.UnpinPage(newChild.PageID, true)
		return nil
	}

	var parentPg *page.Page
	if len(ancestors) > 0 && ancestors[len(ancestors)-1].PageID == parentID {
		parentPg = ancestors[len(ancestors)-1]
		ancestors = ancestors[:len(ancestors)-1]
	} else {
		pg, err := t.fetchLatch(parentID, ModeInsert)
		if err != nil {
			t.release(oldNode, ModeInsert, true)
			t.bpm.UnpinPage(newChild.PageID, true)
			return err
		}
		parentPg = pg
	}

	ip := OpenInternalPage(parentPg, t.kt)
	newSize := ip.InsertNodeAfter(oldNode.PageID, key, newChild.PageID)

	t.release(oldNode, ModeInsert, true)
	t.bpm.UnpinPage(newChild.PageID, true)

	if newSize <= ip.MaxSize() {
		t.releaseAll(ancestors, ModeInsert, false)
		t.release(parentPg, ModeInsert, true)
		return nil
	}

	splitKey, sibling, err := t.splitInternal(ip)
	if err != nil {
		t.releaseAll(ancestors, ModeInsert, false)
		t.release(parentPg, ModeInsert, true)
		return err
	}
	return t.insertIntoParent(parentPg, splitKey, sibling, ancestors)
}

// Remove deletes key, if present, rebalancing the tree as needed.
func (t *BPlusTree[K]) Remove(key K) error {
	if t.IsEmpty() {
		return nil
	}
	leaf, ancestors, err := t.findLeafPage(key, ModeDelete, false)
	if err != nil {
		return err
	}
	lp := OpenLeafPage(leaf, t.kt)
	newSize := lp.RemoveAndDeleteRecord(key)

	if newSize >= lp.MinSize() {
		t.releaseAll(ancestors, ModeDelete, false)
		t.release(leaf, ModeDelete, true)
		return nil
	}
	return t.coalesceOrRedistribute(leaf, ancestors)
}

// coalesceOrRedistribute handles an underflowed node: the root is adjusted
// directly, otherwise a sibling is found and the node either absorbs one
// of its entries or is merged away entirely.
func (t *BPlusTree[K]) coalesceOrRedistribute(node *page.Page, ancestors []*page.Page) error {
	if IsRootPage(node) {
		return t.adjustRoot(node)
	}

	parentID := header{node}.parentPageID()
	var parentPg *page.Page
	if len(ancestors) > 0 && ancestors[len(ancestors)-1].PageID == parentID {
		parentPg = ancestors[len(ancestors)-1]
		ancestors = ancestors[:len(ancestors)-1]
	} else {
		pg, err := t.fetchLatch(parentID, ModeDelete)
		if err != nil {
			t.release(node, ModeDelete, true)
			return err
		}
		parentPg = pg
	}
	parent := OpenInternalPage(parentPg, t.kt)

	nodeIdx := parent.ValueIndex(node.PageID)
	siblingIdx := nodeIdx + 1
	if siblingIdx >= parent.Size() {
		siblingIdx = nodeIdx - 1
	}
	siblingID := parent.ValueAt(siblingIdx)
	siblingPg, err := t.fetchLatch(siblingID, ModeDelete)
	if err != nil {
		t.release(node, ModeDelete, true)
		t.releaseAll(ancestors, ModeDelete, false)
		t.release(parentPg, ModeDelete, false)
		return err
	}

	nodeSize := header{node}.size()
	sibSize := header{siblingPg}.size()
	maxSize := header{node}.maxSize()

	if sibSize+nodeSize > maxSize {
		t.redistribute(siblingPg, node, parentPg, siblingIdx > nodeIdx)
		t.release(siblingPg, ModeDelete, true)
		t.release(node, ModeDelete, true)
		t.releaseAll(ancestors, ModeDelete, false)
		t.release(parentPg, ModeDelete, true)
		return nil
	}

	if siblingIdx < nodeIdx {
		return t.coalesce(siblingPg, node, parentPg, ancestors)
	}
	return t.coalesce(node, siblingPg, parentPg, ancestors)
}

func (t *BPlusTree[K]) redistribute(sibling, node, parentPg *page.Page, siblingIsRight bool) {
	if IsLeafPage(node) {
		sp, np := OpenLeafPage(sibling, t.kt), OpenLeafPage(node, t.kt)
		if siblingIsRight {
			sp.MoveFirstToEndOf(np)
			t.fixSeparator(sibling)
		} else {
			sp.MoveLastToFrontOf(np)
			t.fixSeparator(node)
		}
		return
	}
	parent := OpenInternalPage(parentPg, t.kt)
	sp, np := OpenInternalPage(sibling, t.kt), OpenInternalPage(node, t.kt)
	if siblingIsRight {
		sepIdx := parent.ValueIndex(sibling.PageID)
		newSep := sp.KeyAt(1)
		sp.MoveFirstToEndOf(np, parent.KeyAt(sepIdx), func(id int32) { t.reparent(id, np.PageID()) })
		parent.SetKeyAt(sepIdx, newSep)
	} else {
		sepIdx := parent.ValueIndex(node.PageID)
		newSep := sp.KeyAt(sp.Size() - 1)
		sp.MoveLastToFrontOf(np, parent.KeyAt(sepIdx), func(id int32) { t.reparent(id, np.PageID()) })
		parent.SetKeyAt(sepIdx, newSep)
	}
}

// fixSeparator rewrites pg's entry in its parent so the separator key
// tracks pg's new first key, after a leaf redistribution shifted pg's range.
// Internal-page redistribution sets the separator in redistribute itself.
func (t *BPlusTree[K]) fixSeparator(pg *page.Page) {
	parentID := header{pg}.parentPageID()
	if parentID == page.InvalidID {
		return
	}
	parentPg, err := t.bpm.FetchPage(parentID)
	if err != nil {
		return
	}
	parent := OpenInternalPage(parentPg, t.kt)
	idx := parent.ValueIndex(pg.PageID)
	if idx > 0 {
		var newKey K
		if IsLeafPage(pg) {
			newKey, _ = OpenLeafPage(pg, t.kt).GetItem(0)
		} else {
			newKey = OpenInternalPage(pg, t.kt).KeyAt(1)
		}
		parent.SetKeyAt(idx, newKey)
	}
	t.bpm.UnpinPage(parentID, true)
}

// coalesce merges right into left and removes right's separator entry
// from parent, recursing if that leaves parent underflowed.
func (t *BPlusTree[K]) coalesce(left, right, parentPg *page.Page, ancestors []*page.Page) error {
	parent := OpenInternalPage(parentPg, t.kt)
	idx := parent.ValueIndex(right.PageID)

	if IsLeafPage(right) {
		OpenLeafPage(right, t.kt).MoveAllTo(OpenLeafPage(left, t.kt))
	} else {
		middleKey := parent.KeyAt(idx)
		OpenInternalPage(right, t.kt).MoveAllTo(OpenInternalPage(left, t.kt), middleKey, func(id int32) {
			t.reparent(id, left.PageID)
		})
	}

	t.release(right, ModeDelete, true)
	t.bpm.DeletePage(right.PageID)
	t.release(left, ModeDelete, true)

	parent.Remove(idx)
	if parent.Size() < parent.MinSize() {
		return t.coalesceOrRedistribute(parentPg, ancestors)
	}
	t.releaseAll(ancestors, ModeDelete, false)
	t.release(parentPg, ModeDelete, true)
	return nil
}

// adjustRoot handles the root underflowing: an internal root with a
// single child is replaced by that child; a leaf root with no entries
// empties the tree.
func (t *BPlusTree[K]) adjustRoot(root *page.Page) error {
	if IsLeafPage(root) {
		t.release(root, ModeDelete, true)
		if (header{root}).size() == 0 {
			t.rootPageID = page.InvalidID
			t.bpm.DeletePage(root.PageID)
			return t.updateRootPageID(false)
		}
		return nil
	}

	ip := OpenInternalPage(root, t.kt)
	if ip.Size() > 1 {
		t.release(root, ModeDelete, true)
		return nil
	}

	newRootID := ip.RemoveAndReturnOnlyChild()
	t.rootPageID = newRootID

	newRootPg, err := t.bpm.FetchPage(newRootID)
	if err == nil {
		header{newRootPg}.setParentPageID(page.InvalidID)
		t.bpm.UnpinPage(newRootID, true)
	}

	t.release(root, ModeDelete, true)
	t.bpm.DeletePage(root.PageID)
	return t.updateRootPageID(false)
}

// updateRootPageId rewrites the header page's record for this index,
// inserting a fresh record the first time and updating it thereafter.
func (t *BPlusTree[K]) updateRootPageID(insert bool) error {
	hpg, err := t.bpm.FetchPage(page.HeaderPageID)
	if err != nil {
		return err
	}
	hp := NewHeaderPage(hpg)
	if insert {
		hp.InsertRecord(t.name, t.rootPageID)
	} else {
		hp.UpdateRecord(t.name, t.rootPageID)
	}
	t.bpm.UnpinPage(page.HeaderPageID, true)
	return nil
}

// Begin returns an iterator over every entry, starting at the leftmost
// leaf.
func (t *BPlusTree[K]) Begin() (*Iterator[K], error) {
	if t.IsEmpty() {
		return &Iterator[K]{}, nil
	}
	var zero K
	leaf, ancestors, err := t.findLeafPage(zero, ModeFind, true)
	if err != nil {
		return nil, err
	}
	t.releaseAll(ancestors, ModeFind, false)
	return newIterator(t.bpm, t.kt, leaf, 0), nil
}

// BeginAt returns an iterator positioned at the first entry whose key is
// >= key.
func (t *BPlusTree[K]) BeginAt(key K) (*Iterator[K], error) {
	if t.IsEmpty() {
		return &Iterator[K]{}, nil
	}
	leaf, ancestors, err := t.findLeafPage(key, ModeFind, false)
	if err != nil {
		return nil, err
	}
	t.releaseAll(ancestors, ModeFind, false)
	lp := OpenLeafPage(leaf, t.kt)
	return newIterator(t.bpm, t.kt, leaf, lp.KeyIndex(key)), nil
}

// Dump renders the tree rank by rank for manual inspection. With verbose
// set, each node also prints its page id and size.
func (t *BPlusTree[K]) Dump(verbose bool) string {
	if t.IsEmpty() {
		return "empty tree"
	}
	var b strings.Builder
	level := []int32{t.rootPageID}
	for len(level) > 0 {
		var next []int32
		for _, id := range level {
			pg, err := t.bpm.FetchPage(id)
			if err != nil {
				continue
			}
			if IsLeafPage(pg) {
				lp := OpenLeafPage(pg, t.kt)
				fmt.Fprintf(&b, "leaf(")
				if verbose {
					fmt.Fprintf(&b, "pid=%d size=%d ", lp.PageID(), lp.Size())
				}
				for i := int32(0); i < lp.Size(); i++ {
					k, _ := lp.GetItem(i)
					fmt.Fprintf(&b, "%v ", k)
				}
				fmt.Fprintf(&b, ") ")
			} else {
				ip := OpenInternalPage(pg, t.kt)
				fmt.Fprintf(&b, "internal(")
				if verbose {
					fmt.Fprintf(&b, "pid=%d size=%d ", ip.PageID(), ip.Size())
				}
				for i := int32(0); i < ip.Size(); i++ {
					if i > 0 {
						fmt.Fprintf(&b, "%v ", ip.KeyAt(i))
					}
					next = append(next, ip.ValueAt(i))
				}
				fmt.Fprintf(&b, ") ")
			}
			t.bpm.UnpinPage(id, false)
		}
		b.WriteString("\n")
		level = next
	}
	return b.String()
}
