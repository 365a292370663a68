// Package transaction carries the state a transaction needs in order to
// participate in record-level two-phase locking: an id, a growing/shrinking/
// committed/aborted state, and the sets of RIDs it currently holds shared or
// exclusive locks on.
package transaction

import (
	"fmt"
	"storemy/pkg/storage/rid"
	"sync"
	"sync/atomic"
)

var counter int64

// ID identifies a transaction for the lifetime of the process.
type ID struct {
	id int64
}

// NewID allocates a fresh, process-unique transaction id.
func NewID() *ID {
	return &ID{id: atomic.AddInt64(&counter, 1)}
}

func (tid *ID) Int64() int64 { return tid.id }

func (tid *ID) String() string { return fmt.Sprintf("txn-%d", tid.id) }

func (tid *ID) Equals(other *ID) bool {
	if tid == nil || other == nil {
		return tid == other
	}
	return tid.id == other.id
}

// State is the two-phase-locking lifecycle of a transaction.
type State int

const (
	Growing State = iota
	Shrinking
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Growing:
		return "GROWING"
	case Shrinking:
		return "SHRINKING"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Transaction is a handle passed down through every table-page and table-heap
// operation. It is the unit the lock manager grants locks against.
type Transaction struct {
	id *ID

	mu    sync.RWMutex
	state State

	sharedLocks    map[rid.RID]struct{}
	exclusiveLocks map[rid.RID]struct{}
}

// New begins a transaction in the growing phase.
func New() *Transaction {
	return &Transaction{
		id:             NewID(),
		state:          Growing,
		sharedLocks:    make(map[rid.RID]struct{}),
		exclusiveLocks: make(map[rid.RID]struct{}),
	}
}

func (t *Transaction) ID() *ID { return t.id }

func (t *Transaction) GetState() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// SetState is called by the table page on logic failures (out-of-range slot,
// operating on a tombstoned or empty one) to force the transaction aborted.
func (t *Transaction) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// HasShared reports whether the transaction already holds a shared lock on id.
func (t *Transaction) HasShared(id rid.RID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.sharedLocks[id]
	return ok
}

// HasExclusive reports whether the transaction already holds an exclusive
// lock on id.
func (t *Transaction) HasExclusive(id rid.RID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.exclusiveLocks[id]
	return ok
}

// AddSharedLock records that the lock manager granted id as a shared lock.
func (t *Transaction) AddSharedLock(id rid.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sharedLocks[id] = struct{}{}
}

// AddExclusiveLock records that the lock manager granted or upgraded id to
// an exclusive lock.
func (t *Transaction) AddExclusiveLock(id rid.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sharedLocks, id)
	t.exclusiveLocks[id] = struct{}{}
}

// RemoveLock drops id from both lock sets; called when the lock manager
// releases it.
func (t *Transaction) RemoveLock(id rid.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sharedLocks, id)
	delete(t.exclusiveLocks, id)
}

// SharedLockSet returns a snapshot of every RID this transaction holds a
// shared lock on.
func (t *Transaction) SharedLockSet() map[rid.RID]struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[rid.RID]struct{}, len(t.sharedLocks))
	for r := range t.sharedLocks {
		out[r] = struct{}{}
	}
	return out
}

// ExclusiveLockSet returns a snapshot of every RID this transaction holds an
// exclusive lock on.
func (t *Transaction) ExclusiveLockSet() map[rid.RID]struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[rid.RID]struct{}, len(t.exclusiveLocks))
	for r := range t.exclusiveLocks {
		out[r] = struct{}{}
	}
	return out
}
