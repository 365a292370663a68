// Package hash implements the extendible hash table used as the buffer
// pool's page table.
//
// Directory doubling on overflow happens only when a bucket's local depth
// equals the global depth; addressing uses the low N bits of the hash, and
// the table is grow-only (Remove never merges buckets back down).
package hash

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultBucketSize = 50

type entry[K comparable, V any] struct {
	key   K
	value V
}

type bucket[K comparable, V any] struct {
	localDepth int
	entries    []entry[K, V]
}

// Table is a generic extendible hash table. All public operations take a
// single mutex, matching the original's single-latch design.
type Table[K comparable, V any] struct {
	mu          sync.Mutex
	globalDepth int
	bucketSize  int
	directory   []*bucket[K, V]
	keyBytes    func(K) []byte
}

// New creates a table with the given per-bucket capacity. keyBytes converts
// a key to the bytes hashed by xxhash; it must be injective enough that
// distinct keys rarely collide (a collision only costs an extra linear scan,
// it is never incorrect).
func New[K comparable, V any](bucketSize int, keyBytes func(K) []byte) *Table[K, V] {
	if bucketSize <= 0 {
		bucketSize = defaultBucketSize
	}
	return &Table[K, V]{
		bucketSize: bucketSize,
		directory:  []*bucket[K, V]{{localDepth: 0}},
		keyBytes:   keyBytes,
	}
}

func (t *Table[K, V]) hashKey(k K) uint64 {
	return xxhash.Sum64(t.keyBytes(k))
}

// lowBits returns the low n bits of h (0 when n <= 0). bucketFor calls it
// with fewer bits for transient null directory slots during incremental growth.
func lowBits(h uint64, n int) int {
	if n <= 0 {
		return 0
	}
	return int(h & ((1 << n) - 1))
}

func (t *Table[K, V]) bucketFor(h uint64) (int, *bucket[K, V]) {
	n := t.globalDepth
	for n >= 0 {
		idx := lowBits(h, n)
		if idx < len(t.directory) && t.directory[idx] != nil {
			return idx, t.directory[idx]
		}
		n--
	}
	return 0, t.directory[0]
}

// GlobalDepth returns the current directory depth.
func (t *Table[K, V]) GlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// LocalDepth returns the local depth of the bucket addressed by directory
// index i, or -1 if i is out of range.
func (t *Table[K, V]) LocalDepth(i int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.directory) || t.directory[i] == nil {
		return -1
	}
	return t.directory[i].localDepth
}

// NumBuckets returns the count of distinct buckets (directory entries may
// alias the same bucket).
func (t *Table[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := make(map[*bucket[K, V]]struct{})
	for _, b := range t.directory {
		if b != nil {
			seen[b] = struct{}{}
		}
	}
	return len(seen)
}

// Find looks up k, returning its value and whether it was present.
func (t *Table[K, V]) Find(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, b := t.bucketFor(t.hashKey(k))
	for _, e := range b.entries {
		if e.key == k {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Remove deletes the first entry matching k. Buckets are never merged;
// the directory only ever grows.
func (t *Table[K, V]) Remove(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, b := t.bucketFor(t.hashKey(k))
	for i, e := range b.entries {
		if e.key == k {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Insert adds (k, v), splitting the owning bucket (and growing the
// directory if necessary) when it overflows.
func (t *Table[K, V]) Insert(k K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(k, v)
}

func (t *Table[K, V]) insertLocked(k K, v V) {
	h := t.hashKey(k)
	idx, b := t.bucketFor(h)

	for i, e := range b.entries {
		if e.key == k {
			b.entries[i].value = v
			return
		}
	}

	b.entries = append(b.entries, entry[K, V]{key: k, value: v})
	if len(b.entries) <= t.bucketSize {
		return
	}
	t.splitBucket(idx)
}

// splitBucket splits the overflowing bucket at directory index idx,
// doubling the directory first if the bucket's local depth has caught up to
// the global depth.
func (t *Table[K, V]) splitBucket(idx int) {
	old := t.directory[idx]

	if old.localDepth == t.globalDepth {
		t.directory = append(t.directory, t.directory...)
		t.globalDepth++
	}

	newLocalDepth := old.localDepth + 1
	newBucket := &bucket[K, V]{localDepth: newLocalDepth}
	old.localDepth = newLocalDepth

	// Re-point every directory slot that aliases old and whose extra bit is
	// set to the freshly split bucket.
	splitBit := 1 << (newLocalDepth - 1)
	for i := range t.directory {
		if t.directory[i] == old && i&splitBit != 0 {
			t.directory[i] = newBucket
		}
	}

	moved := old.entries
	old.entries = nil
	for _, e := range moved {
		h := t.hashKey(e.key)
		_, b := t.bucketFor(h)
		b.entries = append(b.entries, e)
	}

	// A bucket that is still overfull after the split (all entries hashed
	// to one side) must split again recursively.
	if len(old.entries) > t.bucketSize {
		t.splitBucket(t.firstIndexOf(old))
	}
	if len(newBucket.entries) > t.bucketSize {
		t.splitBucket(t.firstIndexOf(newBucket))
	}
}

func (t *Table[K, V]) firstIndexOf(b *bucket[K, V]) int {
	for i, d := range t.directory {
		if d == b {
			return i
		}
	}
	return 0
}
