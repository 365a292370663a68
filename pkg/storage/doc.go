// Package storage is the root of the disk-based storage engine.
//
// Data is organized into fixed-size 4 KB pages read and written as atomic
// units by a single-file disk manager. Higher-level sub-packages build on
// that foundation to provide buffered page access, heap-file tuple storage,
// and an ordered index.
//
// # Sub-packages
//
//   - [storemy/pkg/storage/page]     — the page frame, the fixed-size byte
//     buffer every other layer operates on, and the disk manager that reads
//     and writes whole pages to a single backing file.
//   - [storemy/pkg/storage/hash]     — the extendible hash table used by the
//     buffer pool's page table.
//   - [storemy/pkg/storage/replacer] — the LRU replacement policy used to
//     pick a victim frame when the buffer pool is full.
//   - [storemy/pkg/storage/buffer]   — the buffer pool manager: fetch, pin,
//     unpin, flush and evict pages.
//   - [storemy/pkg/storage/rid]      — the record identifier shared by the
//     heap and the index.
//   - [storemy/pkg/storage/heap]     — the slotted table page and the table
//     heap built on top of it.
//   - [storemy/pkg/storage/bptree]   — the B+tree index.
package storage
