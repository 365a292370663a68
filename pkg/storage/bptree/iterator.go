package bptree

import (
	"storemy/pkg/storage/buffer"
	"storemy/pkg/storage/page"
	"storemy/pkg/storage/rid"
)

// Iterator is a forward cursor over a tree's entries in key order. It
// holds a pin and an R-latch on its current leaf, handing both off to the
// next leaf in the chain as it crosses a page boundary. A caller that does
// not exhaust the iterator must call Close to release them.
type Iterator[K any] struct {
	bpm    *buffer.PoolManager
	kt     KeyType[K]
	leaf   *page.Page
	offset int32
}

func newIterator[K any](bpm *buffer.PoolManager, kt KeyType[K], leaf *page.Page, offset int32) *Iterator[K] {
	return &Iterator[K]{bpm: bpm, kt: kt, leaf: leaf, offset: offset}
}

// IsEnd reports whether the cursor has no more entries.
func (it *Iterator[K]) IsEnd() bool {
	if it.leaf == nil {
		return true
	}
	lp := OpenLeafPage(it.leaf, it.kt)
	return it.offset >= lp.Size() && lp.NextPageID() == page.InvalidID
}

// Item returns the (key, RID) pair at the cursor's current position.
func (it *Iterator[K]) Item() (K, rid.RID) {
	lp := OpenLeafPage(it.leaf, it.kt)
	return lp.GetItem(it.offset)
}

// Next advances the cursor by one entry, crossing into the next leaf (and
// releasing the old one) if the current leaf is exhausted. Past the last
// entry of the last leaf it releases that leaf, and IsEnd reports true.
func (it *Iterator[K]) Next() error {
	if it.leaf == nil {
		return nil
	}
	lp := OpenLeafPage(it.leaf, it.kt)
	it.offset++
	if it.offset < lp.Size() {
		return nil
	}

	nextID := lp.NextPageID()
	if nextID == page.InvalidID {
		it.Close()
		return nil
	}
	nextPg, err := it.bpm.FetchPage(nextID)
	if err != nil {
		return err
	}
	nextPg.RLatch()

	it.leaf.RUnlatch()
	it.bpm.UnpinPage(it.leaf.PageID, false)

	it.leaf = nextPg
	it.offset = 0
	return nil
}

// Close releases the cursor's held leaf without consuming it, for callers
// that stop iterating before reaching the end.
func (it *Iterator[K]) Close() {
	if it.leaf == nil {
		return
	}
	it.leaf.RUnlatch()
	it.bpm.UnpinPage(it.leaf.PageID, false)
	it.leaf = nil
}
