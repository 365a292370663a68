package tuple

import (
	"fmt"

	"storemy/pkg/primitives"
)

// TupleRecordID identifies where a tuple lives: the page that holds it and
// its slot number within that page.
type TupleRecordID struct {
	PageID   primitives.PageID
	TupleNum int
}

// NewTupleRecordID creates a record id for a tuple at tupleNum within pageID.
func NewTupleRecordID(pageID primitives.PageID, tupleNum int) *TupleRecordID {
	return &TupleRecordID{
		PageID:   pageID,
		TupleNum: tupleNum,
	}
}

func (r *TupleRecordID) Equals(other *TupleRecordID) bool {
	if other == nil {
		return false
	}
	return r.PageID.Equals(other.PageID) && r.TupleNum == other.TupleNum
}

func (r *TupleRecordID) String() string {
	return fmt.Sprintf("RecordID(page=%s, tuple=%d)", r.PageID.String(), r.TupleNum)
}
