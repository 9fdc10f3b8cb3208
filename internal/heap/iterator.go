package heap

import (
	"github.com/lttran/corestore/internal/buffer"
	"github.com/lttran/corestore/internal/page"
)

// Record is one tuple yielded by a TupleIterator, with its location and
// a private copy of its bytes.
type Record struct {
	RID  page.RecordID
	Meta page.TupleMetadata
	Data []byte
}

// TupleIterator walks every slot of every page in a heap, in page-link
// order then slot order. It pins at most one page at a time: the
// current page is held pinned between Next calls and released as soon
// as the cursor moves past it or Close is called.
//
// A TupleIterator is forward-only and non-restartable.
type TupleIterator struct {
	pool   *buffer.Pool
	guard  *buffer.PageGuard
	nextID page.PageID
	slot   uint16
	numTup uint16
	done   bool
}

func newTupleIterator(pool *buffer.Pool, firstPageID page.PageID) (*TupleIterator, error) {
	it := &TupleIterator{pool: pool, nextID: firstPageID}
	if firstPageID == page.InvalidPageID {
		it.done = true
		return it, nil
	}
	if err := it.loadPage(firstPageID); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *TupleIterator) loadPage(id page.PageID) error {
	g, err := it.pool.FetchPage(id)
	if err != nil {
		return err
	}
	it.guard = g
	it.slot = 0
	it.numTup = g.Page().NumTuples()
	it.nextID = g.Page().NextPageID()
	return nil
}

func (it *TupleIterator) releaseCurrent() error {
	if it.guard == nil {
		return nil
	}
	err := it.guard.Unpin(false)
	it.guard = nil
	return err
}

// Next advances the cursor and returns the next record, or (nil, nil)
// once the heap is exhausted. It includes deleted tuples.
func (it *TupleIterator) Next() (*Record, error) {
	for {
		if it.done {
			return nil, nil
		}
		if it.slot >= it.numTup {
			next := it.nextID
			if err := it.releaseCurrent(); err != nil {
				return nil, err
			}
			if next == page.InvalidPageID {
				it.done = true
				return nil, nil
			}
			if err := it.loadPage(next); err != nil {
				return nil, err
			}
			continue
		}

		meta, data, err := it.guard.Page().GetTuple(it.slot)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		rid := page.RecordID{PageID: it.guard.PageID(), Slot: it.slot}
		it.slot++
		return &Record{RID: rid, Meta: meta, Data: out}, nil
	}
}

// Close releases the currently pinned page, if any. It is safe to call
// multiple times and after the iterator has already been exhausted.
func (it *TupleIterator) Close() error {
	it.done = true
	return it.releaseCurrent()
}
