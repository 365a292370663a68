package bptree

import (
	"encoding/binary"
	"fmt"

	"storemy/pkg/storage/page"
)

// HeaderPage is the page 0 directory mapping an index name to the page id
// of its current root, so a tree can rediscover its root after a restart.
//
// Layout: a 4-byte record count, followed by that many records of
// (name length: 4, name bytes, root page id: 4).
type HeaderPage struct {
	pg *page.Page
}

const headerCountOffset = 0
const headerRecordsOffset = 4

func NewHeaderPage(pg *page.Page) *HeaderPage {
	return &HeaderPage{pg: pg}
}

func (hp *HeaderPage) data() []byte { return hp.pg.Data[:] }

// Init zeroes the record count, producing an empty directory.
func (hp *HeaderPage) Init() {
	binary.LittleEndian.PutUint32(hp.data()[headerCountOffset:], 0)
}

func (hp *HeaderPage) count() int32 {
	return int32(binary.LittleEndian.Uint32(hp.data()[headerCountOffset:]))
}

func (hp *HeaderPage) setCount(n int32) {
	binary.LittleEndian.PutUint32(hp.data()[headerCountOffset:], uint32(n))
}

// recordOffsets walks the records, calling visit with each one's byte
// offset, name and root page id. visit returns false to stop early.
func (hp *HeaderPage) recordOffsets(visit func(off int32, name string, rootID int32) bool) {
	off := int32(headerRecordsOffset)
	data := hp.data()
	for i := int32(0); i < hp.count(); i++ {
		nameLen := int32(binary.LittleEndian.Uint32(data[off:]))
		nameStart := off + 4
		name := string(data[nameStart : nameStart+nameLen])
		idOff := nameStart + nameLen
		rootID := int32(binary.LittleEndian.Uint32(data[idOff:]))
		if !visit(off, name, rootID) {
			return
		}
		off = idOff + 4
	}
}

// GetRootID returns the root page id recorded for indexName.
func (hp *HeaderPage) GetRootID(indexName string) (int32, bool) {
	var found int32
	ok := false
	hp.recordOffsets(func(_ int32, name string, rootID int32) bool {
		if name == indexName {
			found, ok = rootID, true
			return false
		}
		return true
	})
	return found, ok
}

// InsertRecord appends a new (indexName, rootID) record. Returns false if
// the name already has a record (use UpdateRecord instead).
func (hp *HeaderPage) InsertRecord(indexName string, rootID int32) bool {
	if _, exists := hp.GetRootID(indexName); exists {
		return false
	}
	end := int32(headerRecordsOffset)
	hp.recordOffsets(func(off int32, name string, _ int32) bool {
		end = off + 4 + int32(len(name)) + 4
		return true
	})

	data := hp.data()
	binary.LittleEndian.PutUint32(data[end:], uint32(len(indexName)))
	copy(data[end+4:], indexName)
	binary.LittleEndian.PutUint32(data[end+4+int32(len(indexName)):], uint32(rootID))
	hp.setCount(hp.count() + 1)
	return true
}

// UpdateRecord rewrites the root page id for an existing record. Returns
// false if no record exists for indexName.
func (hp *HeaderPage) UpdateRecord(indexName string, rootID int32) bool {
	updated := false
	hp.recordOffsets(func(off int32, name string, _ int32) bool {
		if name != indexName {
			return true
		}
		idOff := off + 4 + int32(len(name))
		binary.LittleEndian.PutUint32(hp.data()[idOff:], uint32(rootID))
		updated = true
		return false
	})
	return updated
}

// Record is one (index name, root page id) entry, used by Records for
// introspection and debugging.
type Record struct {
	Name   string
	RootID int32
}

// Records lists every directory entry, in storage order.
func (hp *HeaderPage) Records() []Record {
	var out []Record
	hp.recordOffsets(func(_ int32, name string, rootID int32) bool {
		out = append(out, Record{Name: name, RootID: rootID})
		return true
	})
	return out
}

func (hp *HeaderPage) String() string {
	return fmt.Sprintf("HeaderPage%v", hp.Records())
}
