package lock

import (
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/storage/rid"
)

// LockGrantor is the stateless policy for whether a lock request can be
// granted or upgraded immediately, and for performing the actual grant.
type LockGrantor struct {
	lockTable *LockTable
	waitQueue *WaitQueue
	depGraph  *DependencyGraph
}

func NewLockGrantor(lockTable *LockTable, waitQueue *WaitQueue, depGraph *DependencyGraph) *LockGrantor {
	return &LockGrantor{lockTable: lockTable, waitQueue: waitQueue, depGraph: depGraph}
}

// CanGrantImmediately determines if a lock can be granted without waiting.
func (lg *LockGrantor) CanGrantImmediately(tid *transaction.ID, id rid.RID, lockType LockType) bool {
	locks := lg.lockTable.GetRIDLocks(id)
	if len(locks) == 0 {
		return true
	}

	if lockType == ExclusiveLock {
		for _, l := range locks {
			if l.TID != tid {
				return false
			}
		}
		return true
	}

	for _, l := range locks {
		if l.TID != tid && l.LockType == ExclusiveLock {
			return false
		}
	}
	return true
}

func (lg *LockGrantor) GrantLock(tid *transaction.ID, id rid.RID, lockType LockType) {
	lg.lockTable.AddLock(tid, id, lockType)
	lg.waitQueue.Remove(tid, id)
}

// CanUpgradeLock reports whether tid is the sole holder of id and already
// holds a shared lock on it.
func (lg *LockGrantor) CanUpgradeLock(tid *transaction.ID, id rid.RID) bool {
	if !lg.lockTable.HasLockType(tid, id, SharedLock) {
		return false
	}
	for _, l := range lg.lockTable.GetRIDLocks(id) {
		if l.TID != tid {
			return false
		}
	}
	return true
}
