package lock

import (
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/storage/rid"
	"sync"
	"time"
)

// LockType is the mode a record lock is held in.
type LockType int

const (
	SharedLock LockType = iota
	ExclusiveLock
)

// Lock is one granted (transaction, mode) pair held against a RID.
type Lock struct {
	TID       *transaction.ID
	LockType  LockType
	GrantTime time.Time
}

func NewLock(tid *transaction.ID, lockType LockType) *Lock {
	return &Lock{TID: tid, LockType: lockType, GrantTime: time.Now()}
}

// LockRequest is a pending entry in a RID's wait queue.
type LockRequest struct {
	TID      *transaction.ID
	LockType LockType
}

func NewLockRequest(tid *transaction.ID, lockType LockType) *LockRequest {
	return &LockRequest{TID: tid, LockType: lockType}
}

// Manager is the single public entry point for record-level two-phase
// locking. Callers acquire locks through LockShared/LockExclusive/
// LockUpgrade and release them all at once via UnlockAll, typically at
// commit or abort.
type Manager struct {
	mutex       sync.Mutex
	lockTable   *LockTable
	waitQueue   *WaitQueue
	depGraph    *DependencyGraph
	lockGrantor *LockGrantor
}

func NewManager() *Manager {
	lockTable := NewLockTable()
	waitQueue := NewWaitQueue()
	depGraph := NewDependencyGraph()
	return &Manager{
		lockTable:   lockTable,
		waitQueue:   waitQueue,
		depGraph:    depGraph,
		lockGrantor: NewLockGrantor(lockTable, waitQueue, depGraph),
	}
}

// LockShared acquires a shared lock on id for txn, blocking with exponential
// backoff until granted, deadlocked, or timed out. Returns false on failure;
// the caller (the table page) surfaces that as its own operation failing.
func (m *Manager) LockShared(txn *transaction.Transaction, id rid.RID) bool {
	return m.acquire(txn, id, SharedLock)
}

// LockExclusive acquires an exclusive lock on id for txn, with the same
// blocking semantics as LockShared.
func (m *Manager) LockExclusive(txn *transaction.Transaction, id rid.RID) bool {
	return m.acquire(txn, id, ExclusiveLock)
}

// LockUpgrade upgrades txn's existing shared lock on id to exclusive.
// Fails if txn holds no shared lock on id, or if another transaction also
// holds a lock on it.
func (m *Manager) LockUpgrade(txn *transaction.Transaction, id rid.RID) bool {
	tid := txn.ID()

	m.mutex.Lock()
	if m.lockGrantor.CanUpgradeLock(tid, id) {
		m.lockTable.UpgradeLock(tid, id)
		m.mutex.Unlock()
		txn.AddExclusiveLock(id)
		return true
	}
	m.mutex.Unlock()

	return m.acquire(txn, id, ExclusiveLock)
}

func (m *Manager) acquire(txn *transaction.Transaction, id rid.RID, lockType LockType) bool {
	tid := txn.ID()

	const maxDelay = 50 * time.Millisecond
	const maxRetries = 100
	delay := time.Millisecond
	queued := false

	for attempt := range maxRetries {
		m.mutex.Lock()

		if m.lockTable.HasSufficientLock(tid, id, lockType) {
			m.mutex.Unlock()
			m.recordGrant(txn, id, lockType)
			return true
		}

		if lockType == ExclusiveLock && m.lockTable.HasLockType(tid, id, SharedLock) && m.lockGrantor.CanUpgradeLock(tid, id) {
			m.lockTable.UpgradeLock(tid, id)
			m.mutex.Unlock()
			txn.AddExclusiveLock(id)
			return true
		}

		if m.lockGrantor.CanGrantImmediately(tid, id, lockType) {
			m.lockGrantor.GrantLock(tid, id, lockType)
			m.depGraph.RemoveTransaction(tid)
			m.mutex.Unlock()
			m.recordGrant(txn, id, lockType)
			return true
		}

		if !queued {
			if err := m.waitQueue.Add(tid, id, lockType); err != nil {
				m.mutex.Unlock()
				return false
			}
			m.updateDependencies(tid, id, lockType)
			queued = true
		}

		if m.depGraph.HasCycle() {
			m.waitQueue.Remove(tid, id)
			m.depGraph.RemoveTransaction(tid)
			m.mutex.Unlock()
			return false
		}

		m.mutex.Unlock()
		time.Sleep(backoff(attempt, delay, maxDelay))
	}

	m.mutex.Lock()
	m.waitQueue.Remove(tid, id)
	m.depGraph.RemoveTransaction(tid)
	m.mutex.Unlock()
	return false
}

func (m *Manager) recordGrant(txn *transaction.Transaction, id rid.RID, lockType LockType) {
	if lockType == ExclusiveLock {
		txn.AddExclusiveLock(id)
	} else {
		txn.AddSharedLock(id)
	}
}

// updateDependencies adds wait-for edges from tid to every current holder
// that conflicts with the requested lock type.
func (m *Manager) updateDependencies(tid *transaction.ID, id rid.RID, lockType LockType) {
	for _, l := range m.lockTable.GetRIDLocks(id) {
		if l.TID == tid {
			continue
		}
		if lockType == ExclusiveLock || l.LockType == ExclusiveLock {
			m.depGraph.AddEdge(tid, l.TID)
		}
	}
}

// UnlockAll releases every lock txn holds, typically at commit or abort, and
// wakes any requests that can now be granted.
func (m *Manager) UnlockAll(txn *transaction.Transaction) {
	tid := txn.ID()

	m.mutex.Lock()
	affected := m.lockTable.ReleaseAllLocks(tid)
	m.depGraph.RemoveTransaction(tid)
	m.waitQueue.RemoveTransaction(tid)
	for _, id := range affected {
		m.processWaitQueue(id)
	}
	m.mutex.Unlock()

	for _, id := range affected {
		txn.RemoveLock(id)
	}
}

func (m *Manager) processWaitQueue(id rid.RID) {
	for _, req := range m.waitQueue.GetRequests(id) {
		if m.lockGrantor.CanGrantImmediately(req.TID, id, req.LockType) {
			m.lockGrantor.GrantLock(req.TID, id, req.LockType)
		}
	}
}

func backoff(attempt int, base, max time.Duration) time.Duration {
	factor := min(attempt/5, 5)
	return min(base*time.Duration(1<<uint(factor)), max)
}
