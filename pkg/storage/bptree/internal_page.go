package bptree

import (
	"encoding/binary"

	"storemy/pkg/storage/page"
)

const childSize = 4 // page id

// InternalPage is a generic view over a buffer pool frame holding an
// internal node: an array of (key, child page id) pairs. Index 0's key is
// never read; it exists only to keep the array aligned with its children.
type InternalPage[K any] struct {
	header
	kt KeyType[K]
}

func entrySizeInternal[K any](kt KeyType[K]) int32 { return int32(kt.Size) + childSize }

// MaxInternalEntries returns the capacity of an internal page for the given
// key type, leaving room for one extra slot during a transient overflow
// before a split, matching the original's "+1" scratch slot.
func MaxInternalEntries[K any](kt KeyType[K]) int32 {
	cap := (int32(page.Size) - commonHeaderSize) / entrySizeInternal(kt)
	return cap - 1
}

func NewInternalPage[K any](pg *page.Page, kt KeyType[K], pageID, parentID int32) *InternalPage[K] {
	ip := &InternalPage[K]{header: header{pg}, kt: kt}
	ip.setNodeType(typeInternal)
	ip.setPageID(pageID)
	ip.setParentPageID(parentID)
	ip.setMaxSize(MaxInternalEntries(kt))
	ip.setSize(0)
	return ip
}

// OpenInternalPage wraps an already-initialized internal page frame.
func OpenInternalPage[K any](pg *page.Page, kt KeyType[K]) *InternalPage[K] {
	return &InternalPage[K]{header: header{pg}, kt: kt}
}

func (ip *InternalPage[K]) Size() int32    { return ip.size() }
func (ip *InternalPage[K]) MaxSize() int32 { return ip.maxSize() }
func (ip *InternalPage[K]) PageID() int32  { return ip.pageID() }

// MinSize matches the common header's invariant: 2 for the root, otherwise
// half (rounded up) of max size.
func (ip *InternalPage[K]) MinSize() int32 { return minSize(ip.header) }

func (ip *InternalPage[K]) entryOffset(i int32) int32 {
	return commonHeaderSize + i*entrySizeInternal(ip.kt)
}

func (ip *InternalPage[K]) KeyAt(i int32) K {
	off := ip.entryOffset(i)
	return ip.kt.Decode(ip.data()[off : off+int32(ip.kt.Size)])
}

func (ip *InternalPage[K]) SetKeyAt(i int32, k K) {
	off := ip.entryOffset(i)
	ip.kt.Encode(k, ip.data()[off:off+int32(ip.kt.Size)])
}

func (ip *InternalPage[K]) ValueAt(i int32) int32 {
	off := ip.entryOffset(i) + int32(ip.kt.Size)
	return int32(binary.LittleEndian.Uint32(ip.data()[off:]))
}

func (ip *InternalPage[K]) setValueAt(i int32, v int32) {
	off := ip.entryOffset(i) + int32(ip.kt.Size)
	binary.LittleEndian.PutUint32(ip.data()[off:], uint32(v))
}

func (ip *InternalPage[K]) setEntry(i int32, k K, v int32) {
	ip.SetKeyAt(i, k)
	ip.setValueAt(i, v)
}

// ValueIndex returns the index holding childPageID, or -1 if absent.
func (ip *InternalPage[K]) ValueIndex(childPageID int32) int32 {
	for i := int32(0); i < ip.size(); i++ {
		if ip.ValueAt(i) == childPageID {
			return i
		}
	}
	return -1
}

// Lookup returns the child page id to descend into for key, searching from
// index 1 since index 0's key is a sentinel.
func (ip *InternalPage[K]) Lookup(key K) int32 {
	for i := int32(1); i < ip.size(); i++ {
		if ip.kt.Compare(key, ip.KeyAt(i)) < 0 {
			return ip.ValueAt(i - 1)
		}
	}
	return ip.ValueAt(ip.size() - 1)
}

// PopulateNewRoot is called once, when a split propagates all the way past
// the old root and a fresh root must be created above it.
func (ip *InternalPage[K]) PopulateNewRoot(oldChild int32, newKey K, newChild int32) {
	ip.setSize(2)
	ip.setValueAt(0, oldChild)
	ip.setEntry(1, newKey, newChild)
}

// InsertNodeAfter inserts (newKey, newChild) immediately after the entry
// whose value is oldChild. Returns the new size.
func (ip *InternalPage[K]) InsertNodeAfter(oldChild int32, newKey K, newChild int32) int32 {
	idx := ip.ValueIndex(oldChild)
	size := ip.size()
	for j := size; j > idx+1; j-- {
		ip.setEntry(j, ip.KeyAt(j-1), ip.ValueAt(j-1))
	}
	ip.setEntry(idx+1, newKey, newChild)
	ip.setSize(size + 1)
	return ip.size()
}

// MoveHalfTo splits this page's upper half into recipient, which must be a
// freshly initialized empty page. reparent is called once per moved child so
// the caller can fix up the child's parent pointer through the buffer pool.
func (ip *InternalPage[K]) MoveHalfTo(recipient *InternalPage[K], reparent func(childPageID int32)) {
	min := ip.MinSize()
	count := ip.size() - min
	recipient.setSize(count)
	for i := int32(0); i < count; i++ {
		recipient.setEntry(i, ip.KeyAt(min+i), ip.ValueAt(min+i))
		reparent(recipient.ValueAt(i))
	}
	ip.setSize(min)
}

// Remove deletes the entry at index, shifting the remainder left.
func (ip *InternalPage[K]) Remove(index int32) {
	size := ip.size()
	for i := index; i < size-1; i++ {
		ip.setEntry(i, ip.KeyAt(i+1), ip.ValueAt(i+1))
	}
	ip.setSize(size - 1)
}

// RemoveAndReturnOnlyChild empties a size-1 root and returns its sole child,
// which becomes the tree's new root.
func (ip *InternalPage[K]) RemoveAndReturnOnlyChild() int32 {
	child := ip.ValueAt(0)
	ip.setSize(0)
	return child
}

// MoveAllTo merges this page into recipient (recipient << this), emptying
// this page. middleKey is the separator that used to sit between recipient
// and this page in their parent; it is pulled down to replace this page's
// first entry's sentinel key, which is otherwise meaningless. reparent
// fixes up every moved child's parent pointer.
func (ip *InternalPage[K]) MoveAllTo(recipient *InternalPage[K], middleKey K, reparent func(childPageID int32)) {
	base := recipient.size()
	recipient.setEntry(base, middleKey, ip.ValueAt(0))
	reparent(ip.ValueAt(0))
	for i := int32(1); i < ip.size(); i++ {
		recipient.setEntry(base+i, ip.KeyAt(i), ip.ValueAt(i))
		reparent(ip.ValueAt(i))
	}
	recipient.setSize(base + ip.size())
	ip.setSize(0)
}

// MoveFirstToEndOf moves this page's first entry onto the tail of recipient,
// used to redistribute from a right sibling into a deficient left one.
// middleKey is the separator that used to sit between recipient and this
// page, and becomes the key of the moved entry (this page's index-0 key is
// an unused sentinel).
func (ip *InternalPage[K]) MoveFirstToEndOf(recipient *InternalPage[K], middleKey K, reparent func(childPageID int32)) {
	v := ip.ValueAt(0)
	recipient.setEntry(recipient.size(), middleKey, v)
	recipient.setSize(recipient.size() + 1)
	reparent(v)
	ip.Remove(0)
}

// MoveLastToFrontOf moves this page's last entry onto the head of recipient,
// used to redistribute from a left sibling into a deficient right one.
// middleKey is the separator that used to sit between this page and
// recipient; it becomes the key of recipient's old first entry, which
// shifts to index 1 where its key is no longer a sentinel.
func (ip *InternalPage[K]) MoveLastToFrontOf(recipient *InternalPage[K], middleKey K, reparent func(childPageID int32)) {
	last := ip.size() - 1
	v := ip.ValueAt(last)
	for i := recipient.size(); i > 0; i-- {
		recipient.setEntry(i, recipient.KeyAt(i-1), recipient.ValueAt(i-1))
	}
	recipient.setValueAt(0, v)
	recipient.SetKeyAt(1, middleKey)
	recipient.setSize(recipient.size() + 1)
	reparent(v)
	ip.Remove(last)
}
