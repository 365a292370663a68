package heap

import (
	"storemy/pkg/concurrency/lock"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/storage/buffer"
	"storemy/pkg/storage/page"
	"storemy/pkg/storage/rid"
)

// TableHeap is a doubly-linked list of table pages, chained through
// prev_page_id/next_page_id, with a remembered first page id.
type TableHeap struct {
	bpm     *buffer.PoolManager
	locks   *lock.Manager
	firstID int32
}

// NewTableHeap allocates the heap's first, empty page.
func NewTableHeap(bpm *buffer.PoolManager, locks *lock.Manager) (*TableHeap, error) {
	pg, id, err := bpm.NewPage()
	if err != nil {
		return nil, err
	}
	NewTablePage(pg).Init(id, page.InvalidID, page.InvalidID)
	bpm.UnpinPage(id, true)
	return &TableHeap{bpm: bpm, locks: locks, firstID: id}, nil
}

// OpenTableHeap wraps an existing chain whose first page is already firstID.
func OpenTableHeap(bpm *buffer.PoolManager, locks *lock.Manager, firstID int32) *TableHeap {
	return &TableHeap{bpm: bpm, locks: locks, firstID: firstID}
}

func (h *TableHeap) FirstPageID() int32 { return h.firstID }

// InsertTuple walks the page chain from the first page until one accepts the
// tuple; if none do, it allocates a new page, links it at the tail, and
// retries there.
func (h *TableHeap) InsertTuple(tuple []byte, txn *transaction.Transaction) (rid.RID, bool, error) {
	pageID := h.firstID
	var lastID int32 = page.InvalidID

	for pageID != page.InvalidID {
		pg, err := h.bpm.FetchPage(pageID)
		if err != nil {
			return rid.RID{}, false, err
		}
		tp := NewTablePage(pg)
		if id, ok := tp.InsertTuple(tuple, txn, h.locks); ok {
			h.bpm.UnpinPage(pageID, true)
			return id, true, nil
		}
		lastID = pageID
		next := tp.NextPageID()
		h.bpm.UnpinPage(pageID, false)
		pageID = next
	}

	newPg, newID, err := h.bpm.NewPage()
	if err != nil {
		return rid.RID{}, false, err
	}
	newTp := NewTablePage(newPg)
	newTp.Init(newID, lastID, page.InvalidID)

	id, ok := newTp.InsertTuple(tuple, txn, h.locks)
	h.bpm.UnpinPage(newID, true)
	if !ok {
		return rid.RID{}, false, nil
	}

	if lastPg, err := h.bpm.FetchPage(lastID); err == nil {
		NewTablePage(lastPg).SetNextPageID(newID)
		h.bpm.UnpinPage(lastID, true)
	}
	return id, true, nil
}

// MarkDelete dispatches to the page identified by id.PageID.
func (h *TableHeap) MarkDelete(id rid.RID, txn *transaction.Transaction) (bool, error) {
	pg, err := h.bpm.FetchPage(id.PageID)
	if err != nil {
		return false, err
	}
	ok := NewTablePage(pg).MarkDelete(id, txn, h.locks)
	h.bpm.UnpinPage(id.PageID, ok)
	return ok, nil
}

func (h *TableHeap) UpdateTuple(id rid.RID, newTuple []byte, txn *transaction.Transaction) (old []byte, ok bool, err error) {
	pg, err := h.bpm.FetchPage(id.PageID)
	if err != nil {
		return nil, false, err
	}
	old, ok = NewTablePage(pg).UpdateTuple(id, newTuple, txn, h.locks)
	h.bpm.UnpinPage(id.PageID, ok)
	return old, ok, nil
}

func (h *TableHeap) ApplyDelete(id rid.RID, txn *transaction.Transaction) error {
	pg, err := h.bpm.FetchPage(id.PageID)
	if err != nil {
		return err
	}
	NewTablePage(pg).ApplyDelete(id, txn)
	h.bpm.UnpinPage(id.PageID, true)
	return nil
}

func (h *TableHeap) RollbackDelete(id rid.RID, txn *transaction.Transaction) error {
	pg, err := h.bpm.FetchPage(id.PageID)
	if err != nil {
		return err
	}
	NewTablePage(pg).RollbackDelete(id, txn)
	h.bpm.UnpinPage(id.PageID, true)
	return nil
}

func (h *TableHeap) GetTuple(id rid.RID, txn *transaction.Transaction) ([]byte, bool, error) {
	pg, err := h.bpm.FetchPage(id.PageID)
	if err != nil {
		return nil, false, err
	}
	out, ok := NewTablePage(pg).GetTuple(id, txn, h.locks)
	h.bpm.UnpinPage(id.PageID, false)
	return out, ok, nil
}

// Begin returns an iterator positioned at the heap's first live tuple.
func (h *TableHeap) Begin(txn *transaction.Transaction) (*TableIterator, error) {
	it := &TableIterator{heap: h, txn: txn, pageID: h.firstID}
	if err := it.advanceToFirstLive(); err != nil {
		return nil, err
	}
	return it, nil
}

// TableIterator is a cursor advancing across page boundaries; equality is
// by (page id, slot).
type TableIterator struct {
	heap   *TableHeap
	txn    *transaction.Transaction
	pageID int32
	cur    rid.RID
	atEnd  bool
}

func (it *TableIterator) advanceToFirstLive() error {
	for it.pageID != page.InvalidID {
		pg, err := it.heap.bpm.FetchPage(it.pageID)
		if err != nil {
			return err
		}
		tp := NewTablePage(pg)
		id, ok := tp.GetFirstTupleRID()
		next := tp.NextPageID()
		it.heap.bpm.UnpinPage(it.pageID, false)

		if ok {
			it.cur = id
			return nil
		}
		it.pageID = next
	}
	it.atEnd = true
	return nil
}

// IsEnd reports whether the iterator has advanced past the heap's last tuple.
func (it *TableIterator) IsEnd() bool { return it.atEnd }

// Current returns the RID the iterator is positioned at.
func (it *TableIterator) Current() rid.RID { return it.cur }

// Tuple fetches the payload of the tuple the iterator is positioned at.
func (it *TableIterator) Tuple() ([]byte, bool, error) {
	return it.heap.GetTuple(it.cur, it.txn)
}

// Next advances the iterator to the next live tuple, crossing a page
// boundary via next_page_id when the current page is exhausted.
func (it *TableIterator) Next() error {
	if it.atEnd {
		return nil
	}

	pg, err := it.heap.bpm.FetchPage(it.cur.PageID)
	if err != nil {
		return err
	}
	tp := NewTablePage(pg)
	next, ok := tp.GetNextTupleRID(it.cur)
	nextPageID := tp.NextPageID()
	it.heap.bpm.UnpinPage(it.cur.PageID, false)

	if ok {
		it.cur = next
		return nil
	}

	it.pageID = nextPageID
	return it.advanceToFirstLive()
}
