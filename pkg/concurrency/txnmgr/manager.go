// Package txnmgr implements transaction commit and abort on top of the lock
// manager, grounded on the original TransactionManager which pairs a
// LockManager with Commit/Abort.
package txnmgr

import (
	"storemy/pkg/concurrency/lock"
	"storemy/pkg/concurrency/transaction"
)

// Manager commits or aborts transactions by releasing their locks. It takes
// no part in durability; write-ahead logging is outside this engine's scope.
type Manager struct {
	locks *lock.Manager
}

func New(locks *lock.Manager) *Manager {
	return &Manager{locks: locks}
}

// Begin returns a fresh transaction in the growing phase.
func (m *Manager) Begin() *transaction.Transaction {
	return transaction.New()
}

// Commit moves txn to the shrinking phase and releases every lock it holds.
func (m *Manager) Commit(txn *transaction.Transaction) {
	txn.SetState(transaction.Shrinking)
	m.locks.UnlockAll(txn)
	txn.SetState(transaction.Committed)
}

// Abort releases every lock txn holds without applying its writes. Callers
// are responsible for rolling back table-page mutations (RollbackDelete,
// deleting inserted tuples) before calling Abort.
func (m *Manager) Abort(txn *transaction.Transaction) {
	txn.SetState(transaction.Shrinking)
	m.locks.UnlockAll(txn)
	txn.SetState(transaction.Aborted)
}
