// Package bptree implements the B+tree index: internal and leaf pages over
// buffer pool frames, a header page mapping index names to root page ids,
// the tree's insert/remove/search operations with latch-crabbing descents,
// and a forward iterator.
//
// A tree is parameterized by a fixed-width key codec and a total-order
// comparator; the leaf value is always a [storemy/pkg/storage/rid.RID].
package bptree

import (
	"encoding/binary"

	"storemy/pkg/storage/page"
)

type nodeType byte

const (
	typeInternal nodeType = 1
	typeLeaf     nodeType = 2
)

// Common header, present on every internal and leaf page:
//
//	0  node type (1)
//	1  size: number of populated entries (4)
//	5  max size: capacity before a split is required (4)
//	9  parent page id, page.InvalidID for the root (4)
//	13 this page's own id (4)
//	17 payload starts here
const commonHeaderSize = 17

type header struct {
	pg *page.Page
}

func (h header) data() []byte { return h.pg.Data[:] }

func (h header) nodeType() nodeType { return nodeType(h.data()[0]) }
func (h header) setNodeType(t nodeType) {
	h.data()[0] = byte(t)
}

func (h header) size() int32 {
	return int32(binary.LittleEndian.Uint32(h.data()[1:]))
}
func (h header) setSize(v int32) {
	binary.LittleEndian.PutUint32(h.data()[1:], uint32(v))
}

func (h header) maxSize() int32 {
	return int32(binary.LittleEndian.Uint32(h.data()[5:]))
}
func (h header) setMaxSize(v int32) {
	binary.LittleEndian.PutUint32(h.data()[5:], uint32(v))
}

func (h header) parentPageID() int32 {
	return int32(binary.LittleEndian.Uint32(h.data()[9:]))
}
func (h header) setParentPageID(v int32) {
	binary.LittleEndian.PutUint32(h.data()[9:], uint32(v))
}

func (h header) pageID() int32 {
	return int32(binary.LittleEndian.Uint32(h.data()[13:]))
}
func (h header) setPageID(v int32) {
	binary.LittleEndian.PutUint32(h.data()[13:], uint32(v))
}

// IsLeafPage reports whether pg holds a leaf node.
func IsLeafPage(pg *page.Page) bool { return header{pg}.nodeType() == typeLeaf }

// IsRootPage reports whether pg has no parent.
func IsRootPage(pg *page.Page) bool { return header{pg}.parentPageID() == page.InvalidID }

// minSize is the fewest entries a non-root node may hold before it must
// coalesce or redistribute with a sibling. The root is exempt: it is only
// required to hold at least 2 entries once it is an internal node, or it
// may be a single partially-empty leaf.
func minSize(h header) int32 {
	if h.parentPageID() == page.InvalidID {
		return 2
	}
	return (h.maxSize() + 1) / 2
}
