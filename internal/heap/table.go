// Package heap implements the table heap: an unordered, singly-linked
// chain of pages representing one logical table, plus a forward tuple
// iterator over it. It operates on opaque tuple bytes; tuple encoding
// belongs to a layer above this core.
package heap

import (
	"errors"

	"github.com/lttran/corestore/internal/buffer"
	"github.com/lttran/corestore/internal/page"
)

// Table is a heap file: a chain of pages reachable from firstPageID via
// each page's next_page_id link.
type Table struct {
	pool        *buffer.Pool
	firstPageID page.PageID
	lastPageID  page.PageID
}

// NewTable allocates the first page of a brand new, empty heap.
func NewTable(pool *buffer.Pool) (*Table, error) {
	g, err := pool.CreatePage()
	if err != nil {
		return nil, err
	}
	id := g.PageID()
	if err := g.Unpin(true); err != nil {
		return nil, err
	}
	return &Table{pool: pool, firstPageID: id, lastPageID: id}, nil
}

// OpenTable resumes an existing heap whose first page is already known
// (e.g. recovered from a catalog above this core).
func OpenTable(pool *buffer.Pool, firstPageID page.PageID) (*Table, error) {
	t := &Table{pool: pool, firstPageID: firstPageID, lastPageID: firstPageID}
	id := firstPageID
	for {
		g, err := pool.FetchPage(id)
		if err != nil {
			return nil, err
		}
		next := g.Page().NextPageID()
		if err := g.Unpin(false); err != nil {
			return nil, err
		}
		if next == page.InvalidPageID {
			t.lastPageID = id
			break
		}
		id = next
	}
	return t, nil
}

// FirstPageID returns the id of the heap's first page.
func (t *Table) FirstPageID() page.PageID {
	return t.firstPageID
}

// Insert appends data as a new tuple on the heap's tail page (tracked in
// lastPageID, not found by walking the chain), allocating a fresh tail
// page if the current one reports PAGE_FULL. Earlier pages are not tried.
func (t *Table) Insert(data []byte, meta page.TupleMetadata) (page.RecordID, error) {
	for {
		g, err := t.pool.FetchPageMut(t.lastPageID)
		if err != nil {
			return page.RecordID{}, err
		}

		slot, err := g.Page().InsertTuple(data, meta)
		if err == nil {
			id := t.lastPageID
			if uerr := g.Unpin(true); uerr != nil {
				return page.RecordID{}, uerr
			}
			return page.RecordID{PageID: id, Slot: slot}, nil
		}
		if !errors.Is(err, page.ErrPageFull) {
			_ = g.Unpin(false)
			return page.RecordID{}, err
		}

		// Current tail is full: allocate a new tail page and link it in.
		newGuard, cerr := t.pool.CreatePage()
		if cerr != nil {
			_ = g.Unpin(false)
			return page.RecordID{}, cerr
		}
		newID := newGuard.PageID()
		g.Page().SetNextPageID(newID)
		if uerr := g.Unpin(true); uerr != nil {
			_ = newGuard.Unpin(false)
			return page.RecordID{}, uerr
		}
		if uerr := newGuard.Unpin(true); uerr != nil {
			return page.RecordID{}, uerr
		}
		t.lastPageID = newID
	}
}

// GetTuple fetches the tuple at rid, returning a copy of its bytes: the
// page is unpinned before returning, so the caller must not rely on the
// page-aliased slice page.Page.GetTuple itself would expose.
func (t *Table) GetTuple(rid page.RecordID) (page.TupleMetadata, []byte, error) {
	g, err := t.pool.FetchPage(rid.PageID)
	if err != nil {
		return page.TupleMetadata{}, nil, err
	}
	defer g.Unpin(false)

	meta, data, err := g.Page().GetTuple(rid.Slot)
	if err != nil {
		return page.TupleMetadata{}, nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return meta, out, nil
}

// DeleteTuple marks rid's tuple metadata as deleted in place. It does
// not reclaim the tuple's bytes or slot.
func (t *Table) DeleteTuple(rid page.RecordID) error {
	g, err := t.pool.FetchPageMut(rid.PageID)
	if err != nil {
		return err
	}
	defer g.Unpin(true)

	meta, _, err := g.Page().GetTuple(rid.Slot)
	if err != nil {
		return err
	}
	meta.Deleted = true
	return g.Page().UpdateTupleMetadata(rid.Slot, meta)
}

// Flush writes every page of the heap to disk via the owning pool.
func (t *Table) Flush() error {
	id := t.firstPageID
	for {
		g, err := t.pool.FetchPage(id)
		if err != nil {
			return err
		}
		next := g.Page().NextPageID()
		if uerr := g.Unpin(false); uerr != nil {
			return uerr
		}
		if ferr := t.pool.FlushPage(id); ferr != nil {
			return ferr
		}
		if next == page.InvalidPageID {
			return nil
		}
		id = next
	}
}

// Iterator returns a forward-only cursor over every slot of every page
// in the heap, in page-link order then slot order. It includes deleted
// tuples; callers that want to skip them should check Record.Meta.
func (t *Table) Iterator() (*TupleIterator, error) {
	return newTupleIterator(t.pool, t.firstPageID)
}

