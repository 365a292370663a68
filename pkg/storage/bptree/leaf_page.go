package bptree

import (
	"encoding/binary"

	"storemy/pkg/storage/page"
	"storemy/pkg/storage/rid"
)

const ridSize = 8 // rid.RID: page id (4) + slot num (4)

// leafHeaderSize adds the next-page-id chain pointer on top of the common
// header.
const leafHeaderSize = commonHeaderSize + 4

// LeafPage is a generic view over a buffer pool frame holding a leaf node:
// a sorted array of (key, RID) pairs plus a singly-linked pointer to the
// next leaf in key order.
type LeafPage[K any] struct {
	header
	kt KeyType[K]
}

func entrySizeLeaf[K any](kt KeyType[K]) int32 { return int32(kt.Size) + ridSize }

// MaxLeafEntries returns the capacity of a leaf page for the given key type,
// leaving one extra scratch slot before a split, matching the original.
func MaxLeafEntries[K any](kt KeyType[K]) int32 {
	cap := (int32(page.Size) - leafHeaderSize) / entrySizeLeaf(kt)
	return cap - 1
}

func NewLeafPage[K any](pg *page.Page, kt KeyType[K], pageID, parentID int32) *LeafPage[K] {
	lp := &LeafPage[K]{header: header{pg}, kt: kt}
	lp.setNodeType(typeLeaf)
	lp.setPageID(pageID)
	lp.setParentPageID(parentID)
	lp.setMaxSize(MaxLeafEntries(kt))
	lp.setSize(0)
	lp.SetNextPageID(page.InvalidID)
	return lp
}

func OpenLeafPage[K any](pg *page.Page, kt KeyType[K]) *LeafPage[K] {
	return &LeafPage[K]{header: header{pg}, kt: kt}
}

func (lp *LeafPage[K]) Size() int32    { return lp.size() }
func (lp *LeafPage[K]) MaxSize() int32 { return lp.maxSize() }
func (lp *LeafPage[K]) PageID() int32  { return lp.pageID() }
func (lp *LeafPage[K]) MinSize() int32 { return minSize(lp.header) }

func (lp *LeafPage[K]) NextPageID() int32 {
	return int32(binary.LittleEndian.Uint32(lp.data()[commonHeaderSize:]))
}

func (lp *LeafPage[K]) SetNextPageID(id int32) {
	binary.LittleEndian.PutUint32(lp.data()[commonHeaderSize:], uint32(id))
}

func (lp *LeafPage[K]) entryOffset(i int32) int32 {
	return leafHeaderSize + i*entrySizeLeaf(lp.kt)
}

func (lp *LeafPage[K]) KeyAt(i int32) K {
	off := lp.entryOffset(i)
	return lp.kt.Decode(lp.data()[off : off+int32(lp.kt.Size)])
}

func (lp *LeafPage[K]) setKeyAt(i int32, k K) {
	off := lp.entryOffset(i)
	lp.kt.Encode(k, lp.data()[off:off+int32(lp.kt.Size)])
}

func (lp *LeafPage[K]) ValueAt(i int32) rid.RID {
	off := lp.entryOffset(i) + int32(lp.kt.Size)
	return rid.New(
		int32(binary.LittleEndian.Uint32(lp.data()[off:])),
		int32(binary.LittleEndian.Uint32(lp.data()[off+4:])),
	)
}

func (lp *LeafPage[K]) setValueAt(i int32, v rid.RID) {
	off := lp.entryOffset(i) + int32(lp.kt.Size)
	binary.LittleEndian.PutUint32(lp.data()[off:], uint32(v.PageID))
	binary.LittleEndian.PutUint32(lp.data()[off+4:], uint32(v.SlotNum))
}

func (lp *LeafPage[K]) setEntry(i int32, k K, v rid.RID) {
	lp.setKeyAt(i, k)
	lp.setValueAt(i, v)
}

// GetItem returns the (key, RID) pair at index.
func (lp *LeafPage[K]) GetItem(index int32) (K, rid.RID) {
	return lp.KeyAt(index), lp.ValueAt(index)
}

// KeyIndex returns the first index i where KeyAt(i) >= key, used by the
// index iterator to position itself at Begin(key).
func (lp *LeafPage[K]) KeyIndex(key K) int32 {
	for i := int32(0); i < lp.size(); i++ {
		if lp.kt.Compare(lp.KeyAt(i), key) >= 0 {
			return i
		}
	}
	return lp.size()
}

// Insert places (key, value) in sorted position. Returns the new size.
func (lp *LeafPage[K]) Insert(key K, value rid.RID) int32 {
	size := lp.size()
	i := int32(0)
	for ; i < size; i++ {
		if lp.kt.Compare(key, lp.KeyAt(i)) < 0 {
			break
		}
	}
	for j := size; j > i; j-- {
		lp.setEntry(j, lp.KeyAt(j-1), lp.ValueAt(j-1))
	}
	lp.setEntry(i, key, value)
	lp.setSize(size + 1)
	return lp.size()
}

// Lookup returns the RID stored for key, if present.
func (lp *LeafPage[K]) Lookup(key K) (rid.RID, bool) {
	for i := int32(0); i < lp.size(); i++ {
		if lp.kt.Compare(key, lp.KeyAt(i)) == 0 {
			return lp.ValueAt(i), true
		}
	}
	return rid.RID{}, false
}

// MoveHalfTo splits at the minimum size (not the midpoint): recipient gets
// everything from MinSize() onward, and is linked into the leaf chain right
// after this page.
func (lp *LeafPage[K]) MoveHalfTo(recipient *LeafPage[K]) {
	min := lp.MinSize()
	count := lp.size() - min
	for i := int32(0); i < count; i++ {
		recipient.setEntry(i, lp.KeyAt(min+i), lp.ValueAt(min+i))
	}
	recipient.setSize(count)
	lp.setSize(min)

	recipient.SetNextPageID(lp.NextPageID())
	lp.SetNextPageID(recipient.PageID())
}

// RemoveAndDeleteRecord deletes key if present, shifting the remainder left.
// Returns the new size.
func (lp *LeafPage[K]) RemoveAndDeleteRecord(key K) int32 {
	for i := int32(0); i < lp.size(); i++ {
		if lp.kt.Compare(key, lp.KeyAt(i)) != 0 {
			continue
		}
		for j := i; j < lp.size()-1; j++ {
			lp.setEntry(j, lp.KeyAt(j+1), lp.ValueAt(j+1))
		}
		lp.setSize(lp.size() - 1)
		break
	}
	return lp.size()
}

// MoveAllTo merges this leaf into recipient (recipient << this) and splices
// the leaf chain around it. Emptying this page is the caller's cue to
// delete it from the tree.
func (lp *LeafPage[K]) MoveAllTo(recipient *LeafPage[K]) {
	base := recipient.size()
	for i := int32(0); i < lp.size(); i++ {
		recipient.setEntry(base+i, lp.KeyAt(i), lp.ValueAt(i))
	}
	recipient.setSize(base + lp.size())
	recipient.SetNextPageID(lp.NextPageID())
	lp.setSize(0)
}

// MoveFirstToEndOf redistributes this leaf's first entry onto the tail of
// recipient (its left sibling).
func (lp *LeafPage[K]) MoveFirstToEndOf(recipient *LeafPage[K]) {
	k, v := lp.KeyAt(0), lp.ValueAt(0)
	recipient.setEntry(recipient.size(), k, v)
	recipient.setSize(recipient.size() + 1)

	for i := int32(0); i < lp.size()-1; i++ {
		lp.setEntry(i, lp.KeyAt(i+1), lp.ValueAt(i+1))
	}
	lp.setSize(lp.size() - 1)
}

// MoveLastToFrontOf redistributes this leaf's last entry onto the head of
// recipient (its right sibling).
func (lp *LeafPage[K]) MoveLastToFrontOf(recipient *LeafPage[K]) {
	last := lp.size() - 1
	k, v := lp.KeyAt(last), lp.ValueAt(last)

	for i := recipient.size(); i > 0; i-- {
		recipient.setEntry(i, recipient.KeyAt(i-1), recipient.ValueAt(i-1))
	}
	recipient.setEntry(0, k, v)
	recipient.setSize(recipient.size() + 1)
	lp.setSize(last)
}
