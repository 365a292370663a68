// Package buffer implements the Buffer Pool Manager: a fixed array of
// frames backed by a page table (an extendible hash table), an LRU
// replacer, a free list and a disk manager. Write-ahead logging and
// transaction-commit wiring are intentionally absent.
package buffer

import (
	"sync"

	logerr "storemy/pkg/error"
	"storemy/pkg/storage/hash"
	"storemy/pkg/storage/page"
	"storemy/pkg/storage/replacer"

	"github.com/sirupsen/logrus"
)

// PoolManager owns every frame in the pool. Every resident page has exactly
// one frame, and a frame is in exactly one of {free list, replacer, pinned}.
type PoolManager struct {
	mu sync.Mutex

	poolSize int
	frames   []*page.Page
	pageTbl  *hash.Table[int32, *page.Page]
	lru      *replacer.LRU[*page.Page]
	freeList []*page.Page
	disk     *page.DiskManager
	log      *logrus.Entry
}

// New builds a pool of poolSize frames backed by the disk manager dm. Every
// frame starts on the free list.
func New(poolSize int, dm *page.DiskManager) *PoolManager {
	pm := &PoolManager{
		poolSize: poolSize,
		frames:   make([]*page.Page, poolSize),
		pageTbl:  hash.New[int32, *page.Page](0, int32Bytes),
		lru:      replacer.New[*page.Page](),
		disk:     dm,
		log:      logrus.WithField("component", "buffer_pool"),
	}
	for i := range pm.frames {
		pm.frames[i] = page.New()
		pm.freeList = append(pm.freeList, pm.frames[i])
	}
	return pm
}

func int32Bytes(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// victim obtains a replacement frame: free list first, else the replacer.
// Returns nil if neither yields one (all frames pinned).
func (pm *PoolManager) victim() *page.Page {
	if n := len(pm.freeList); n > 0 {
		f := pm.freeList[n-1]
		pm.freeList = pm.freeList[:n-1]
		return f
	}
	f, ok := pm.lru.Victim()
	if !ok {
		return nil
	}
	return f
}

func (pm *PoolManager) flushLocked(f *page.Page) {
	if !f.Dirty {
		return
	}
	pm.disk.WritePage(f.PageID, f.Data[:])
	f.Dirty = false
}

// FetchPage returns the frame holding pageID, reading it from disk on a
// miss. Returns nil, err when every frame is pinned.
func (pm *PoolManager) FetchPage(pageID int32) (*page.Page, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if f, ok := pm.pageTbl.Find(pageID); ok {
		if f.PinCount == 0 {
			pm.lru.Erase(f)
		}
		f.PinCount++
		return f, nil
	}

	f := pm.victim()
	if f == nil {
		return nil, logerr.New(logerr.ErrCategoryTransient, "BUFFER_POOL_EXHAUSTED",
			"all frames pinned, cannot fetch page")
	}

	pm.flushLocked(f)
	pm.pageTbl.Remove(f.PageID)

	f.Reset(pageID)
	f.PinCount = 1
	pm.disk.ReadPage(pageID, f.Data[:])
	pm.pageTbl.Insert(pageID, f)
	return f, nil
}

// NewPage allocates a fresh page id from the disk manager, zeroes a frame
// for it and installs it in the page table. Returns nil, err when every
// frame is pinned.
func (pm *PoolManager) NewPage() (*page.Page, int32, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	f := pm.victim()
	if f == nil {
		return nil, page.InvalidID, logerr.New(logerr.ErrCategoryTransient, "BUFFER_POOL_EXHAUSTED",
			"all frames pinned, cannot allocate page")
	}

	pm.flushLocked(f)
	pm.pageTbl.Remove(f.PageID)

	pageID := pm.disk.AllocatePage()
	f.Reset(pageID)
	f.PinCount = 1
	pm.pageTbl.Insert(pageID, f)
	return f, pageID, nil
}

// UnpinPage decrements the frame's pin count, handing it to the replacer
// once it reaches zero. Returns false if the page is not resident or its
// pin count is already zero.
func (pm *PoolManager) UnpinPage(pageID int32, isDirty bool) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	f, ok := pm.pageTbl.Find(pageID)
	if !ok || f.PinCount <= 0 {
		return false
	}

	f.PinCount--
	if f.PinCount == 0 {
		pm.lru.Insert(f)
	}
	f.Dirty = f.Dirty || isDirty
	return true
}

// FlushPage writes one resident page through to disk. Returns false if it
// is not resident.
func (pm *PoolManager) FlushPage(pageID int32) bool {
	if pageID == page.InvalidID {
		return false
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	f, ok := pm.pageTbl.Find(pageID)
	if !ok {
		return false
	}
	f.WLatch()
	pm.disk.WritePage(f.PageID, f.Data[:])
	f.Dirty = false
	f.WUnlatch()
	return true
}

// FlushAllPages writes every dirty frame in the pool through to disk.
func (pm *PoolManager) FlushAllPages() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	for _, f := range pm.frames {
		if f.Dirty {
			pm.disk.WritePage(f.PageID, f.Data[:])
			f.Dirty = false
		}
	}
}

// DeletePage removes pageID from the pool and returns its frame to the free
// list, then asks the disk manager to deallocate it. Returns false only
// when the page is resident and still pinned.
func (pm *PoolManager) DeletePage(pageID int32) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if f, ok := pm.pageTbl.Find(pageID); ok {
		if f.PinCount > 0 {
			return false
		}
		pm.pageTbl.Remove(pageID)
		pm.lru.Erase(f)
		f.Reset(page.InvalidID)
		pm.freeList = append(pm.freeList, f)
	}
	pm.disk.DeallocatePage(pageID)
	return true
}

// Close flushes every dirty frame and closes the disk manager.
func (pm *PoolManager) Close() error {
	pm.FlushAllPages()
	return pm.disk.Close()
}
