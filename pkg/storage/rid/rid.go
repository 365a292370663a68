// Package rid defines the record identifier shared by the table heap, the
// B+tree index and the lock manager.
package rid

import "fmt"

// RID identifies one tuple slot: the page that holds it and its slot number
// within that page's slot directory.
type RID struct {
	PageID  int32
	SlotNum int32
}

// New builds an RID from a page id and slot number.
func New(pageID, slotNum int32) RID {
	return RID{PageID: pageID, SlotNum: slotNum}
}

func (r RID) String() string {
	return fmt.Sprintf("RID(%d,%d)", r.PageID, r.SlotNum)
}
