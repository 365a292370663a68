package heap

import (
	"os"
	"testing"

	"storemy/pkg/concurrency/lock"
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/storage/buffer"
	"storemy/pkg/storage/page"
	"storemy/pkg/storage/rid"

	"github.com/stretchr/testify/require"
)

func newTestBPM(t *testing.T) *buffer.PoolManager {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "storemy-*.db")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())

	dm, err := page.NewDiskManager(path)
	require.NoError(t, err)
	bpm := buffer.New(8, dm)
	t.Cleanup(func() { bpm.Close() })
	return bpm
}

func newInitializedPage(t *testing.T, bpm *buffer.PoolManager) (*TablePage, int32) {
	t.Helper()
	pg, id, err := bpm.NewPage()
	require.NoError(t, err)
	tp := NewTablePage(pg)
	tp.Init(id, page.InvalidID, page.InvalidID)
	return tp, id
}

func TestInsertAndGetTuple(t *testing.T) {
	bpm := newTestBPM(t)
	lm := lock.NewManager()
	txn := transaction.New()
	tp, _ := newInitializedPage(t, bpm)

	id, ok := tp.InsertTuple([]byte("hello"), txn, lm)
	require.True(t, ok)

	got, ok := tp.GetTuple(id, txn, lm)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), got)
}

func TestInsertReusesEmptySlot(t *testing.T) {
	bpm := newTestBPM(t)
	lm := lock.NewManager()
	txn := transaction.New()
	tp, pageID := newInitializedPage(t, bpm)

	id1, ok := tp.InsertTuple([]byte("aaa"), txn, lm)
	require.True(t, ok)
	require.True(t, tp.MarkDelete(id1, txn, lm))
	tp.ApplyDelete(id1, txn)

	id2, ok := tp.InsertTuple([]byte("bb"), txn, lm)
	require.True(t, ok)
	require.Equal(t, rid.New(pageID, 0), id2)
}

func TestMarkDeleteThenGetTupleFails(t *testing.T) {
	bpm := newTestBPM(t)
	lm := lock.NewManager()
	txn := transaction.New()
	tp, _ := newInitializedPage(t, bpm)

	id, _ := tp.InsertTuple([]byte("xyz"), txn, lm)
	require.True(t, tp.MarkDelete(id, txn, lm))

	_, ok := tp.GetTuple(id, txn, lm)
	require.False(t, ok)
	require.Equal(t, transaction.Aborted, txn.GetState())
}

func TestRollbackDeleteRestoresTuple(t *testing.T) {
	bpm := newTestBPM(t)
	lm := lock.NewManager()
	txn := transaction.New()
	tp, _ := newInitializedPage(t, bpm)

	id, _ := tp.InsertTuple([]byte("persist"), txn, lm)
	require.True(t, tp.MarkDelete(id, txn, lm))
	tp.RollbackDelete(id, txn)

	got, ok := tp.GetTuple(id, txn, lm)
	require.True(t, ok)
	require.Equal(t, []byte("persist"), got)
}

func TestUpdateTupleShrinkAndGrow(t *testing.T) {
	bpm := newTestBPM(t)
	lm := lock.NewManager()
	txn := transaction.New()
	tp, _ := newInitializedPage(t, bpm)

	id, _ := tp.InsertTuple([]byte("original"), txn, lm)

	old, ok := tp.UpdateTuple(id, []byte("a much longer replacement value"), txn, lm)
	require.True(t, ok)
	require.Equal(t, []byte("original"), old)

	got, ok := tp.GetTuple(id, txn, lm)
	require.True(t, ok)
	require.Equal(t, []byte("a much longer replacement value"), got)

	old2, ok := tp.UpdateTuple(id, []byte("short"), txn, lm)
	require.True(t, ok)
	require.Equal(t, []byte("a much longer replacement value"), old2)

	got2, ok := tp.GetTuple(id, txn, lm)
	require.True(t, ok)
	require.Equal(t, []byte("short"), got2)
}

func TestTupleIterationSkipsTombstonesAndEmptySlots(t *testing.T) {
	bpm := newTestBPM(t)
	lm := lock.NewManager()
	txn := transaction.New()
	tp, _ := newInitializedPage(t, bpm)

	id1, _ := tp.InsertTuple([]byte("a"), txn, lm)
	id2, _ := tp.InsertTuple([]byte("b"), txn, lm)
	_, _ = id2, id1
	id3, _ := tp.InsertTuple([]byte("c"), txn, lm)
	require.True(t, tp.MarkDelete(id2, txn, lm))
	id4, _ := tp.InsertTuple([]byte("d"), txn, lm)
	require.True(t, tp.MarkDelete(id4, txn, lm))
	tp.ApplyDelete(id4, txn)

	first, ok := tp.GetFirstTupleRID()
	require.True(t, ok)
	require.Equal(t, id1, first)

	next, ok := tp.GetNextTupleRID(first)
	require.True(t, ok)
	require.Equal(t, id3, next)

	_, ok = tp.GetNextTupleRID(next)
	require.False(t, ok)
}

func TestMarkDeleteOutOfRangeAbortsTransaction(t *testing.T) {
	bpm := newTestBPM(t)
	lm := lock.NewManager()
	txn := transaction.New()
	tp, pageID := newInitializedPage(t, bpm)

	ok := tp.MarkDelete(rid.New(pageID, 99), txn, lm)
	require.False(t, ok)
	require.Equal(t, transaction.Aborted, txn.GetState())
}
