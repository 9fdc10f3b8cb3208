package buffer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lttran/corestore/internal/disk"
	"github.com/lttran/corestore/internal/page"
)

func newPool(t *testing.T, capacity, k int) *Pool {
	t.Helper()
	dm, err := disk.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return NewPool(capacity, k, dm)
}

func TestPool_CreateAndFetchRoundTrips(t *testing.T) {
	p := newPool(t, 4, 2)

	g, err := p.CreatePage()
	require.NoError(t, err)
	pg := g.Page()
	slot, err := pg.InsertTuple([]byte("hello"), page.TupleMetadata{})
	require.NoError(t, err)
	id := g.PageID()
	require.NoError(t, g.Unpin(true))

	g2, err := p.FetchPage(id)
	require.NoError(t, err)
	_, data, err := g2.Page().GetTuple(slot)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
	require.NoError(t, g2.Unpin(false))
}

func TestPool_NoFreeFrameWhenAllPinned(t *testing.T) {
	p := newPool(t, 2, 2)
	g1, err := p.CreatePage()
	require.NoError(t, err)
	g2, err := p.CreatePage()
	require.NoError(t, err)

	_, err = p.CreatePage()
	require.ErrorIs(t, err, ErrNoFreeFrame)

	require.NoError(t, g1.Unpin(false))
	require.NoError(t, g2.Unpin(false))
}

func TestPool_UnpinUnderflow(t *testing.T) {
	p := newPool(t, 2, 2)
	g, err := p.CreatePage()
	require.NoError(t, err)
	require.NoError(t, g.Unpin(false))
	err = g.Unpin(false)
	require.ErrorIs(t, err, ErrPinCountUnderflow)
}

func TestPool_DeletePinnedFails(t *testing.T) {
	p := newPool(t, 2, 2)
	g, err := p.CreatePage()
	require.NoError(t, err)
	err = p.DeletePage(g.PageID())
	require.ErrorIs(t, err, ErrPagePinned)
	require.NoError(t, g.Unpin(false))
}

// spec.md §8 scenario 4: pin page A twice, delete fails with PAGE_PINNED;
// unpin twice, retry succeeds; a subsequent fetch triggers a fresh disk
// read. The page was never written back before deletion, so the disk
// manager returns a zero-filled page.
func TestPool_Scenario4_PinTwiceThenDelete(t *testing.T) {
	p := newPool(t, 3, 2)
	g1, err := p.CreatePage()
	require.NoError(t, err)
	id := g1.PageID()

	g2, err := p.FetchPage(id)
	require.NoError(t, err)

	err = p.DeletePage(id)
	require.ErrorIs(t, err, ErrPagePinned)

	require.NoError(t, g1.Unpin(false))
	require.NoError(t, g2.Unpin(false))

	require.NoError(t, p.DeletePage(id))

	g3, err := p.FetchPage(id)
	require.NoError(t, err)
	require.Equal(t, uint16(0), g3.Page().NumTuples())
	require.NoError(t, g3.Unpin(false))
}

// spec.md §8 scenario 3: N=3 frames, k=2. Create A, B, C (one access
// each) and unpin, then re-fetch A once and unpin. Fetching D must evict B, not A:
// B and C both have a single (infinite k-distance) access, but B's is
// older; A has two accesses and thus a finite k-distance.
func TestPool_Scenario3_LRUKEvictsOldestSingleAccess(t *testing.T) {
	p := newPool(t, 3, 2)

	a, err := p.CreatePage()
	require.NoError(t, err)
	idA := a.PageID()
	require.NoError(t, a.Unpin(false))

	b, err := p.CreatePage()
	require.NoError(t, err)
	idB := b.PageID()
	require.NoError(t, b.Unpin(false))

	c, err := p.CreatePage()
	require.NoError(t, err)
	idC := c.PageID()
	require.NoError(t, c.Unpin(false))

	a2, err := p.FetchPage(idA)
	require.NoError(t, err)
	require.NoError(t, a2.Unpin(false))

	d, err := p.CreatePage()
	require.NoError(t, err)
	require.NoError(t, d.Unpin(false))

	_, stillResidentA := p.pageTable[idA]
	_, evictedB := p.pageTable[idB]
	_, stillResidentC := p.pageTable[idC]
	require.True(t, stillResidentA)
	require.False(t, evictedB)
	require.True(t, stillResidentC)
}

func TestPool_FlushPageWritesDirtyBytes(t *testing.T) {
	p := newPool(t, 2, 2)
	g, err := p.CreatePage()
	require.NoError(t, err)
	id := g.PageID()
	_, err = g.Page().InsertTuple([]byte("x"), page.TupleMetadata{})
	require.NoError(t, err)
	g.MarkDirty()
	require.NoError(t, p.FlushPage(id))
	require.NoError(t, g.Unpin(false))

	raw := make([]byte, page.Size)
	require.NoError(t, p.disk.ReadPage(id, raw))
	require.Equal(t, uint16(1), page.New(raw).NumTuples())

	g2, err := p.FetchPage(id)
	require.NoError(t, err)
	require.Equal(t, uint16(1), g2.Page().NumTuples())
	require.NoError(t, g2.Unpin(false))
}

func TestPool_FlushPageNotResidentSucceedsTrivially(t *testing.T) {
	p := newPool(t, 2, 2)
	require.NoError(t, p.FlushPage(page.PageID(42)))
}

// CreatePage must mark its frame dirty even if the caller never touches
// the page, because AllocatePage can recycle a deallocated id whose
// on-disk bytes were never scrubbed. Otherwise an eviction that follows
// an unpin(dirty=false) would skip the write-back and leave stale bytes
// on disk under the recycled id.
func TestPool_CreatePageIsDirtyEvenWithoutWrites(t *testing.T) {
	dm, err := disk.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	stale, err := dm.AllocatePage()
	require.NoError(t, err)
	garbage := make([]byte, page.Size)
	for i := range garbage {
		garbage[i] = 0xFF
	}
	require.NoError(t, dm.WritePage(stale, garbage))
	require.NoError(t, dm.DeallocatePage(stale))

	p := NewPool(1, 2, dm)

	g, err := p.CreatePage()
	require.NoError(t, err)
	require.Equal(t, stale, g.PageID())
	require.NoError(t, g.Unpin(false))

	// Force eviction of the only frame by creating another page.
	g2, err := p.CreatePage()
	require.NoError(t, err)
	require.NoError(t, g2.Unpin(false))

	raw := make([]byte, page.Size)
	require.NoError(t, dm.ReadPage(stale, raw))
	pg := page.New(raw)
	require.Equal(t, page.InvalidPageID, pg.NextPageID())
	require.Equal(t, uint16(0), pg.NumTuples())
}

func TestPool_FetchNotResidentEvictedToDisk(t *testing.T) {
	p := newPool(t, 1, 2)
	g1, err := p.CreatePage()
	require.NoError(t, err)
	id1 := g1.PageID()
	_, err = g1.Page().InsertTuple([]byte("abc"), page.TupleMetadata{})
	require.NoError(t, err)
	require.NoError(t, g1.Unpin(true))

	g2, err := p.CreatePage()
	require.NoError(t, err)
	id2 := g2.PageID()
	require.NoError(t, g2.Unpin(false))
	require.NotEqual(t, id1, id2)

	g3, err := p.FetchPage(id1)
	require.NoError(t, err)
	require.Equal(t, uint16(1), g3.Page().NumTuples())
	require.NoError(t, g3.Unpin(false))
}
