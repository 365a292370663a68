package lock

import (
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/storage/rid"
)

// LockTable is the dual index of record locks: which transactions hold a
// lock on a given RID, and which RIDs a given transaction holds a lock on.
type LockTable struct {
	ridLocks         map[rid.RID][]*Lock
	transactionLocks map[*transaction.ID]map[rid.RID]LockType
}

func NewLockTable() *LockTable {
	return &LockTable{
		ridLocks:         make(map[rid.RID][]*Lock),
		transactionLocks: make(map[*transaction.ID]map[rid.RID]LockType),
	}
}

// HasSufficientLock checks if the transaction already holds a lock on id at
// least as strong as reqLockType.
func (lt *LockTable) HasSufficientLock(tid *transaction.ID, id rid.RID, reqLockType LockType) bool {
	held, exists := lt.transactionLocks[tid][id]
	if !exists {
		return false
	}
	if held == ExclusiveLock {
		return true
	}
	return held == SharedLock && reqLockType == SharedLock
}

func (lt *LockTable) HasLockType(tid *transaction.ID, id rid.RID, lockType LockType) bool {
	held, exists := lt.transactionLocks[tid][id]
	return exists && held == lockType
}

func (lt *LockTable) GetRIDLocks(id rid.RID) []*Lock {
	return lt.ridLocks[id]
}

func (lt *LockTable) AddLock(tid *transaction.ID, id rid.RID, lockType LockType) {
	lt.ridLocks[id] = append(lt.ridLocks[id], NewLock(tid, lockType))

	if lt.transactionLocks[tid] == nil {
		lt.transactionLocks[tid] = make(map[rid.RID]LockType)
	}
	lt.transactionLocks[tid][id] = lockType
}

func (lt *LockTable) IsLocked(id rid.RID) bool {
	return len(lt.ridLocks[id]) > 0
}

func (lt *LockTable) UpgradeLock(tid *transaction.ID, id rid.RID) {
	for _, l := range lt.ridLocks[id] {
		if l.TID == tid {
			l.LockType = ExclusiveLock
			break
		}
	}
	lt.transactionLocks[tid][id] = ExclusiveLock
}

func (lt *LockTable) ReleaseLock(tid *transaction.ID, id rid.RID) {
	if locks, exists := lt.ridLocks[id]; exists {
		updateOrDelete(lt.ridLocks, id, withoutHolder(locks, tid))
	}
	if locked, exists := lt.transactionLocks[tid]; exists {
		delete(locked, id)
		if len(locked) == 0 {
			delete(lt.transactionLocks, tid)
		}
	}
}

// ReleaseAllLocks drops every lock tid holds and returns the affected RIDs.
func (lt *LockTable) ReleaseAllLocks(tid *transaction.ID) []rid.RID {
	locked, exists := lt.transactionLocks[tid]
	if !exists {
		return nil
	}

	affected := make([]rid.RID, 0, len(locked))
	for id := range locked {
		affected = append(affected, id)
	}

	for _, id := range affected {
		updateOrDelete(lt.ridLocks, id, withoutHolder(lt.ridLocks[id], tid))
	}
	delete(lt.transactionLocks, tid)
	return affected
}

func withoutHolder(locks []*Lock, tid *transaction.ID) []*Lock {
	out := make([]*Lock, 0, len(locks))
	for _, l := range locks {
		if l.TID != tid {
			out = append(out, l)
		}
	}
	return out
}
