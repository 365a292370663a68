// Package lock implements record-level Two-Phase Locking (2PL) for the
// storage engine's concurrency control layer.
//
// # Overview
//
// The package enforces the standard 2PL protocol: a transaction acquires all
// the RID locks it needs during the growing phase and releases them all at
// once during commit or abort (the shrinking phase). Locks are never
// released mid-transaction.
//
// Two lock modes are supported:
//
//   - [SharedLock]    — required to read a tuple; compatible with other shared locks.
//   - [ExclusiveLock] — required to write a tuple; incompatible with all other locks.
//
// A transaction holding a shared lock may upgrade it to exclusive
// ([Manager.LockUpgrade]) provided no other transaction holds any lock on
// that RID. Downgrading (exclusive → shared) is never permitted.
//
// # Components
//
// [Manager] is the single public entry point. Callers use [Manager.LockShared],
// [Manager.LockExclusive] and [Manager.LockUpgrade] to acquire locks and
// [Manager.UnlockAll] to release every lock a transaction holds. Internally it
// coordinates four subsystems:
//
//   - [LockTable]       — dual-index tracking which RIDs each transaction holds
//     locks on, and which transactions hold locks on each RID.
//   - [WaitQueue]       — per-RID FIFO queues of pending [LockRequest] entries for
//     transactions that cannot be granted a lock immediately.
//   - [DependencyGraph] — directed wait-for graph used for deadlock detection. An edge
//     A→B means transaction A is waiting for a resource held by B. A cycle in this
//     graph indicates a deadlock.
//   - [LockGrantor]     — stateless logic for evaluating whether a lock can be granted
//     immediately or upgraded, and for performing the actual grant.
//
// # Lock Acquisition Flow
//
//  1. If the transaction already holds a sufficient lock, return true immediately.
//  2. If upgrading S→X is possible (sole holder), perform the upgrade and return true.
//  3. If the lock can be granted without conflict, grant it and return true.
//  4. Otherwise, enqueue the request in the [WaitQueue] and record wait-for edges
//     in the [DependencyGraph].
//  5. Run cycle detection — if a cycle is found, remove the request, clean up the
//     graph, and return false immediately.
//  6. Sleep with exponential backoff and retry from step 2. After the retry limit is
//     exhausted, return false.
//
// # Deadlock Detection
//
// [DependencyGraph.HasCycle] uses depth-first search over the wait-for graph. The
// result is cached and invalidated on every structural change. Detection runs
// inside the manager's mutex, so the graph is checked before the caller blocks.
package lock
