package heap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lttran/corestore/internal/buffer"
	"github.com/lttran/corestore/internal/disk"
	"github.com/lttran/corestore/internal/page"
)

func newPool(t *testing.T, capacity int) *buffer.Pool {
	t.Helper()
	dm, err := disk.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return buffer.NewPool(capacity, 2, dm)
}

func TestTable_InsertAndGetTuple(t *testing.T) {
	pool := newPool(t, 4)
	tbl, err := NewTable(pool)
	require.NoError(t, err)

	rid, err := tbl.Insert([]byte("hello"), page.TupleMetadata{})
	require.NoError(t, err)

	_, data, err := tbl.GetTuple(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

// spec.md §8 scenario 5: insert enough tuples to span three pages,
// iterate, and confirm page-link/slot order plus a total count match and
// that Close succeeds once the iterator is exhausted.
func TestTable_Scenario5_IteratorSpansMultiplePages(t *testing.T) {
	pool := newPool(t, 2)
	tbl, err := NewTable(pool)
	require.NoError(t, err)

	tuple := make([]byte, 500)
	const want = 30
	rids := make([]page.RecordID, 0, want)
	for i := 0; i < want; i++ {
		rid, err := tbl.Insert(tuple, page.TupleMetadata{})
		require.NoError(t, err)
		rids = append(rids, rid)
	}

	pages := map[page.PageID]bool{}
	for _, rid := range rids {
		pages[rid.PageID] = true
	}
	require.GreaterOrEqual(t, len(pages), 3)

	it, err := tbl.Iterator()
	require.NoError(t, err)

	got := make([]page.RecordID, 0, want)
	for {
		rec, err := it.Next()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		got = append(got, rec.RID)
	}
	require.NoError(t, it.Close())

	require.Equal(t, rids, got)
}

func TestTable_IteratorEmptyHeap(t *testing.T) {
	pool := newPool(t, 2)
	tbl, err := NewTable(pool)
	require.NoError(t, err)

	it, err := tbl.Iterator()
	require.NoError(t, err)
	rec, err := it.Next()
	require.NoError(t, err)
	require.Nil(t, rec)
	require.NoError(t, it.Close())
}

// spec.md §8 scenario 6: mark a tuple deleted, flush its page, re-fetch:
// metadata shows deleted=true and the tuple body is unchanged.
func TestTable_Scenario6_DeleteTupleThenFlushThenRefetch(t *testing.T) {
	pool := newPool(t, 4)
	tbl, err := NewTable(pool)
	require.NoError(t, err)

	rid, err := tbl.Insert([]byte("payload"), page.TupleMetadata{})
	require.NoError(t, err)

	require.NoError(t, tbl.DeleteTuple(rid))
	require.NoError(t, tbl.Flush())

	meta, data, err := tbl.GetTuple(rid)
	require.NoError(t, err)
	require.True(t, meta.Deleted)
	require.Equal(t, []byte("payload"), data)
}

func TestTable_OpenTableFindsTail(t *testing.T) {
	pool := newPool(t, 2)
	tbl, err := NewTable(pool)
	require.NoError(t, err)

	tuple := make([]byte, 500)
	for i := 0; i < 20; i++ {
		_, err := tbl.Insert(tuple, page.TupleMetadata{})
		require.NoError(t, err)
	}
	require.NoError(t, tbl.Flush())

	reopened, err := OpenTable(pool, tbl.FirstPageID())
	require.NoError(t, err)
	require.Equal(t, tbl.lastPageID, reopened.lastPageID)
}
