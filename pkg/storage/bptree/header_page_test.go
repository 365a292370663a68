package bptree

import (
	"testing"

	"storemy/pkg/storage/page"

	"github.com/stretchr/testify/require"
)

func newTestHeaderPage(t *testing.T) *HeaderPage {
	t.Helper()
	pg := page.New()
	pg.Reset(page.HeaderPageID)
	hp := NewHeaderPage(pg)
	hp.Init()
	return hp
}

func TestHeaderPageInsertAndLookup(t *testing.T) {
	hp := newTestHeaderPage(t)

	require.True(t, hp.InsertRecord("by_id", 5))
	require.True(t, hp.InsertRecord("by_name", 9))

	id, ok := hp.GetRootID("by_id")
	require.True(t, ok)
	require.Equal(t, int32(5), id)

	id, ok = hp.GetRootID("by_name")
	require.True(t, ok)
	require.Equal(t, int32(9), id)

	_, ok = hp.GetRootID("missing")
	require.False(t, ok)
}

func TestHeaderPageInsertDuplicateFails(t *testing.T) {
	hp := newTestHeaderPage(t)
	require.True(t, hp.InsertRecord("idx", 1))
	require.False(t, hp.InsertRecord("idx", 2))
}

func TestHeaderPageUpdateRecord(t *testing.T) {
	hp := newTestHeaderPage(t)
	require.False(t, hp.UpdateRecord("idx", 1))

	hp.InsertRecord("idx", 1)
	require.True(t, hp.UpdateRecord("idx", 7))

	id, ok := hp.GetRootID("idx")
	require.True(t, ok)
	require.Equal(t, int32(7), id)
}

func TestHeaderPageRecords(t *testing.T) {
	hp := newTestHeaderPage(t)
	hp.InsertRecord("a", 1)
	hp.InsertRecord("b", 2)

	recs := hp.Records()
	require.Len(t, recs, 2)
	require.Equal(t, Record{Name: "a", RootID: 1}, recs[0])
	require.Equal(t, Record{Name: "b", RootID: 2}, recs[1])
}
