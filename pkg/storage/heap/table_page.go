// Package heap implements the slotted Table Page and the Table Heap: the
// variable-length tuple storage layer built on top of the buffer pool.
//
// Table page layout (byte offsets):
//
//	0  page id (4)
//	4  prev page id (4)
//	8  next page id (4)
//	12 free-space pointer (4)
//	16 tuple count (4)
//	20 slot directory: (offset int32, size int32) pairs, one per slot
//
// Tuple payloads are packed from the tail of the page backward; the
// free-space pointer marks the start of that region. A slot's size is
// positive for a live tuple, negative for a tombstoned (marked-deleted) one,
// and zero for an empty slot available for reuse.
package heap

import (
	"encoding/binary"
	"fmt"

	"storemy/pkg/concurrency/lock"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/storage/page"
	"storemy/pkg/storage/rid"
)

const (
	headerSize  = 20
	slotSize    = 8
	offPageID   = 0
	offPrevID   = 4
	offNextID   = 8
	offFreeSpc  = 12
	offTupCount = 16
)

// TablePage is a thin, stateless view over a buffer pool frame's bytes.
// Callers fetch the frame from the buffer pool, wrap it in a TablePage, and
// are responsible for unpinning it when done.
type TablePage struct {
	pg *page.Page
}

func NewTablePage(pg *page.Page) *TablePage {
	return &TablePage{pg: pg}
}

func (tp *TablePage) data() []byte { return tp.pg.Data[:] }

// Init writes a fresh header: the free-space pointer starts at page.Size
// (everything is free) and the tuple count at zero.
func (tp *TablePage) Init(pageID, prevPageID, nextPageID int32) {
	binary.LittleEndian.PutUint32(tp.data()[offPageID:], uint32(pageID))
	tp.SetPrevPageID(prevPageID)
	tp.SetNextPageID(nextPageID)
	tp.setFreeSpacePointer(page.Size)
	tp.setTupleCount(0)
}

func (tp *TablePage) PageID() int32 {
	return int32(binary.LittleEndian.Uint32(tp.data()[offPageID:]))
}

func (tp *TablePage) PrevPageID() int32 {
	return int32(binary.LittleEndian.Uint32(tp.data()[offPrevID:]))
}

func (tp *TablePage) NextPageID() int32 {
	return int32(binary.LittleEndian.Uint32(tp.data()[offNextID:]))
}

func (tp *TablePage) SetPrevPageID(id int32) {
	binary.LittleEndian.PutUint32(tp.data()[offPrevID:], uint32(id))
}

func (tp *TablePage) SetNextPageID(id int32) {
	binary.LittleEndian.PutUint32(tp.data()[offNextID:], uint32(id))
}

func (tp *TablePage) freeSpacePointer() int32 {
	return int32(binary.LittleEndian.Uint32(tp.data()[offFreeSpc:]))
}

func (tp *TablePage) setFreeSpacePointer(v int32) {
	binary.LittleEndian.PutUint32(tp.data()[offFreeSpc:], uint32(v))
}

func (tp *TablePage) tupleCount() int32 {
	return int32(binary.LittleEndian.Uint32(tp.data()[offTupCount:]))
}

func (tp *TablePage) setTupleCount(v int32) {
	binary.LittleEndian.PutUint32(tp.data()[offTupCount:], uint32(v))
}

func (tp *TablePage) slotOffset(slot int32) int32 {
	return int32(binary.LittleEndian.Uint32(tp.data()[headerSize+slotSize*slot:]))
}

func (tp *TablePage) slotTupleSize(slot int32) int32 {
	return int32(binary.LittleEndian.Uint32(tp.data()[headerSize+slotSize*slot+4:]))
}

func (tp *TablePage) setSlotOffset(slot, v int32) {
	binary.LittleEndian.PutUint32(tp.data()[headerSize+slotSize*slot:], uint32(v))
}

func (tp *TablePage) setSlotTupleSize(slot, v int32) {
	binary.LittleEndian.PutUint32(tp.data()[headerSize+slotSize*slot+4:], uint32(v))
}

// freeSpaceSize is the number of unused bytes between the end of the slot
// directory and the start of the packed tuple region.
func (tp *TablePage) freeSpaceSize() int32 {
	return tp.freeSpacePointer() - headerSize - tp.tupleCount()*slotSize
}

// InsertTuple reuses the first empty slot if one exists, else appends a new
// one, provided there is room. Requires an exclusive lock on the chosen RID
// before the slot becomes visible.
func (tp *TablePage) InsertTuple(tuple []byte, txn *transaction.Transaction, lm *lock.Manager) (rid.RID, bool) {
	size := int32(len(tuple))
	if size <= 0 {
		panic("heap: cannot insert an empty tuple")
	}
	if tp.freeSpaceSize() < size {
		return rid.RID{}, false
	}

	count := tp.tupleCount()
	var slot int32
	for slot = 0; slot < count; slot++ {
		if tp.slotTupleSize(slot) == 0 {
			break
		}
	}

	if slot == count && tp.freeSpaceSize() < size+slotSize {
		return rid.RID{}, false
	}

	id := rid.New(tp.PageID(), slot)
	if !lm.LockExclusive(txn, id) {
		return rid.RID{}, false
	}

	newFree := tp.freeSpacePointer() - size
	tp.setFreeSpacePointer(newFree)
	copy(tp.data()[newFree:newFree+size], tuple)
	tp.setSlotOffset(slot, newFree)
	tp.setSlotTupleSize(slot, size)

	if slot == count {
		tp.setTupleCount(count + 1)
	}
	return id, true
}

// MarkDelete tombstones the slot (negates its size) after acquiring or
// upgrading to an exclusive lock. Aborts txn on an out-of-range or already
// empty/tombstoned slot.
func (tp *TablePage) MarkDelete(id rid.RID, txn *transaction.Transaction, lm *lock.Manager) bool {
	slot := id.SlotNum
	if slot >= tp.tupleCount() {
		txn.SetState(transaction.Aborted)
		return false
	}

	size := tp.slotTupleSize(slot)
	if size <= 0 {
		txn.SetState(transaction.Aborted)
		return false
	}

	if !tp.acquireExclusive(id, txn, lm) {
		return false
	}

	tp.setSlotTupleSize(slot, -size)
	return true
}

// UpdateTuple replaces the slot's payload in place, shifting the packed
// tuple region to absorb the size delta. old receives a copy of the
// replaced payload. Fails (without touching the page) when the new tuple
// does not fit in the space freed by the old one plus current free space.
func (tp *TablePage) UpdateTuple(id rid.RID, newTuple []byte, txn *transaction.Transaction, lm *lock.Manager) (old []byte, ok bool) {
	slot := id.SlotNum
	if slot >= tp.tupleCount() {
		txn.SetState(transaction.Aborted)
		return nil, false
	}

	oldSize := tp.slotTupleSize(slot)
	if oldSize <= 0 {
		txn.SetState(transaction.Aborted)
		return nil, false
	}

	newSize := int32(len(newTuple))
	if tp.freeSpaceSize() < newSize-oldSize {
		return nil, false
	}
	if !tp.acquireExclusive(id, txn, lm) {
		return nil, false
	}

	oldOffset := tp.slotOffset(slot)
	old = make([]byte, oldSize)
	copy(old, tp.data()[oldOffset:oldOffset+oldSize])

	freeSpacePointer := tp.freeSpacePointer()
	delta := oldSize - newSize
	// shift [freeSpacePointer, oldOffset) right by delta bytes
	copy(tp.data()[freeSpacePointer+delta:oldOffset+delta], tp.data()[freeSpacePointer:oldOffset])
	tp.setFreeSpacePointer(freeSpacePointer + delta)
	copy(tp.data()[oldOffset+delta:oldOffset+delta+newSize], newTuple)
	tp.setSlotTupleSize(slot, newSize)

	for i := int32(0); i < tp.tupleCount(); i++ {
		off := tp.slotOffset(i)
		if tp.slotTupleSize(i) > 0 && off < oldOffset+oldSize {
			tp.setSlotOffset(i, off+delta)
		}
	}
	return old, true
}

// ApplyDelete physically removes a tombstoned slot's bytes (at commit) or an
// inserted slot's bytes (to undo an insert on abort), shifting the packed
// region to close the gap. Requires txn to already hold the exclusive lock.
func (tp *TablePage) ApplyDelete(id rid.RID, txn *transaction.Transaction) {
	slot := id.SlotNum
	if slot >= tp.tupleCount() {
		panic("heap: ApplyDelete on out-of-range slot")
	}
	if !txn.HasExclusive(id) {
		panic("heap: ApplyDelete without an exclusive lock")
	}

	size := tp.slotTupleSize(slot)
	if size < 0 {
		size = -size
	}

	offset := tp.slotOffset(slot)
	freeSpacePointer := tp.freeSpacePointer()
	copy(tp.data()[freeSpacePointer+size:offset+size], tp.data()[freeSpacePointer:offset])
	tp.setFreeSpacePointer(freeSpacePointer + size)
	tp.setSlotTupleSize(slot, 0)
	tp.setSlotOffset(slot, 0)

	for i := int32(0); i < tp.tupleCount(); i++ {
		off := tp.slotOffset(i)
		if tp.slotTupleSize(i) != 0 && off < offset {
			tp.setSlotOffset(i, off+size)
		}
	}
}

// RollbackDelete flips a tombstoned slot's size back to positive, undoing a
// MarkDelete that has not yet been applied.
func (tp *TablePage) RollbackDelete(id rid.RID, txn *transaction.Transaction) {
	slot := id.SlotNum
	size := tp.slotTupleSize(slot)
	if size >= 0 {
		panic("heap: RollbackDelete on a slot that was not marked deleted")
	}
	if !txn.HasExclusive(id) {
		panic("heap: RollbackDelete without an exclusive lock")
	}
	tp.setSlotTupleSize(slot, -size)
}

// GetTuple copies out a live tuple's payload, acquiring a shared lock if txn
// does not already hold one.
func (tp *TablePage) GetTuple(id rid.RID, txn *transaction.Transaction, lm *lock.Manager) ([]byte, bool) {
	slot := id.SlotNum
	if slot >= tp.tupleCount() {
		txn.SetState(transaction.Aborted)
		return nil, false
	}

	size := tp.slotTupleSize(slot)
	if size <= 0 {
		txn.SetState(transaction.Aborted)
		return nil, false
	}

	if !txn.HasExclusive(id) && !txn.HasShared(id) && !lm.LockShared(txn, id) {
		return nil, false
	}

	offset := tp.slotOffset(slot)
	out := make([]byte, size)
	copy(out, tp.data()[offset:offset+size])
	return out, true
}

// GetFirstTupleRID returns the RID of the first live tuple on the page.
func (tp *TablePage) GetFirstTupleRID() (rid.RID, bool) {
	for slot := int32(0); slot < tp.tupleCount(); slot++ {
		if tp.slotTupleSize(slot) > 0 {
			return rid.New(tp.PageID(), slot), true
		}
	}
	return rid.RID{}, false
}

// GetNextTupleRID returns the RID of the next live tuple after cur on the
// same page.
func (tp *TablePage) GetNextTupleRID(cur rid.RID) (rid.RID, bool) {
	for slot := cur.SlotNum + 1; slot < tp.tupleCount(); slot++ {
		if tp.slotTupleSize(slot) > 0 {
			return rid.New(tp.PageID(), slot), true
		}
	}
	return rid.RID{}, false
}

func (tp *TablePage) acquireExclusive(id rid.RID, txn *transaction.Transaction, lm *lock.Manager) bool {
	if txn.HasShared(id) {
		return lm.LockUpgrade(txn, id)
	}
	if txn.HasExclusive(id) {
		return true
	}
	return lm.LockExclusive(txn, id)
}

func (tp *TablePage) String() string {
	return fmt.Sprintf("TablePage{id=%d prev=%d next=%d tuples=%d free=%d}",
		tp.PageID(), tp.PrevPageID(), tp.NextPageID(), tp.tupleCount(), tp.freeSpaceSize())
}
