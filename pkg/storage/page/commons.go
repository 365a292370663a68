package page

import (
	"os"
	"sync"
	"sync/atomic"

	logerr "storemy/pkg/error"

	"github.com/sirupsen/logrus"
)

// DiskManager is the byte-oriented interface to a single backing file.
// Page ids are monotonically increasing and never reused; no free-list
// format exists for reclaiming deallocated pages.
type DiskManager struct {
	mu       sync.Mutex
	file     *os.File
	nextPage atomic.Int64
	log      *logrus.Entry
}

// NewDiskManager opens or creates the backing file at path and seeds the
// page id counter from its current size.
func NewDiskManager(path string) (*DiskManager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, logerr.Wrap(err, "DISK_OPEN_FAILED", "NewDiskManager", "DiskManager")
	}

	dm := &DiskManager{
		file: file,
		log:  logrus.WithField("component", "disk_manager"),
	}

	info, err := file.Stat()
	if err != nil {
		return nil, logerr.Wrap(err, "DISK_STAT_FAILED", "NewDiskManager", "DiskManager")
	}
	dm.nextPage.Store(info.Size() / Size)

	return dm, nil
}

// WritePage seeks to id*Size and writes exactly Size bytes, then flushes.
// I/O errors are logged and swallowed here — callers never observe them.
func (dm *DiskManager) WritePage(id int32, data []byte) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(id) * Size
	if _, err := dm.file.WriteAt(data[:Size], offset); err != nil {
		dm.log.WithError(err).WithField("page_id", id).Error("write page failed")
		return
	}
	if err := dm.file.Sync(); err != nil {
		dm.log.WithError(err).WithField("page_id", id).Error("sync failed")
	}
}

// ReadPage seeks to id*Size and reads Size bytes into out. A short read (the
// file ends mid-page, or the page has never been written) zero-fills the
// remainder instead of failing — callers may still receive a valid blank
// page.
func (dm *DiskManager) ReadPage(id int32, out []byte) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for i := range out[:Size] {
		out[i] = 0
	}

	offset := int64(id) * Size
	n, err := dm.file.ReadAt(out[:Size], offset)
	if err != nil && n == 0 {
		return
	}
	if err != nil {
		dm.log.WithError(err).WithField("page_id", id).Debug("short read, zero-filled remainder")
	}
}

// AllocatePage returns the next monotonically increasing page id.
func (dm *DiskManager) AllocatePage() int32 {
	return int32(dm.nextPage.Add(1) - 1)
}

// DeallocatePage is a no-op placeholder; pages are never reused.
func (dm *DiskManager) DeallocatePage(id int32) {}

// GetFileSize returns the current size of the backing file in bytes.
func (dm *DiskManager) GetFileSize() (int64, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	info, err := dm.file.Stat()
	if err != nil {
		return 0, logerr.Wrap(err, "DISK_STAT_FAILED", "GetFileSize", "DiskManager")
	}
	return info.Size(), nil
}

// Close releases the underlying file handle.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.file.Close()
}
