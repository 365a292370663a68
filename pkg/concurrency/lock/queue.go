package lock

import (
	"fmt"
	"slices"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/storage/rid"
)

// WaitQueue is the two-way mapping of pending lock requests: a FIFO queue of
// requests per RID, and a reverse index of RIDs each transaction is waiting
// on (for cleanup and deadlock cycle detection).
type WaitQueue struct {
	ridWaitQueue       map[rid.RID][]*LockRequest
	transactionWaiting map[*transaction.ID][]rid.RID
}

func NewWaitQueue() *WaitQueue {
	return &WaitQueue{
		ridWaitQueue:       make(map[rid.RID][]*LockRequest),
		transactionWaiting: make(map[*transaction.ID][]rid.RID),
	}
}

// Add enqueues tid's lock request for id in FIFO order.
func (wq *WaitQueue) Add(tid *transaction.ID, id rid.RID, lockType LockType) error {
	if wq.alreadyInRIDQueue(tid, id) {
		return fmt.Errorf("transaction %s already queued for %s", tid, id)
	}
	if wq.isInTransactionQueue(tid, id) {
		return fmt.Errorf("transaction %s already waiting on %s", tid, id)
	}

	request := NewLockRequest(tid, lockType)
	wq.ridWaitQueue[id] = append(wq.ridWaitQueue[id], request)
	wq.transactionWaiting[tid] = append(wq.transactionWaiting[tid], id)
	return nil
}

// Remove cancels tid's pending request for id, if any.
func (wq *WaitQueue) Remove(tid *transaction.ID, id rid.RID) {
	updateOrDelete(wq.ridWaitQueue, id, slices.DeleteFunc(slices.Clone(wq.ridWaitQueue[id]), func(r *LockRequest) bool {
		return r.TID == tid
	}))
	updateOrDelete(wq.transactionWaiting, tid, slices.DeleteFunc(slices.Clone(wq.transactionWaiting[tid]), func(r rid.RID) bool {
		return r == id
	}))
}

// RemoveTransaction cancels every pending request tid has queued.
func (wq *WaitQueue) RemoveTransaction(tid *transaction.ID) {
	for _, id := range slices.Clone(wq.transactionWaiting[tid]) {
		wq.Remove(tid, id)
	}
}

// GetRequests returns the FIFO queue of requests waiting on id.
func (wq *WaitQueue) GetRequests(id rid.RID) []*LockRequest {
	return slices.Clone(wq.ridWaitQueue[id])
}

func (wq *WaitQueue) alreadyInRIDQueue(tid *transaction.ID, id rid.RID) bool {
	return slices.ContainsFunc(wq.ridWaitQueue[id], func(r *LockRequest) bool { return r.TID == tid })
}

func (wq *WaitQueue) isInTransactionQueue(tid *transaction.ID, id rid.RID) bool {
	return slices.Contains(wq.transactionWaiting[tid], id)
}
