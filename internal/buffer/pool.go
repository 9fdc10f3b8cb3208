// Package buffer implements the buffer pool: a bounded set of frames
// mediating between the disk manager and in-memory pages, with eviction
// driven by an LRU-K replacer.
package buffer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lttran/corestore/internal/disk"
	"github.com/lttran/corestore/internal/page"
	"github.com/lttran/corestore/internal/replacer"
)

var (
	// ErrNoFreeFrame is returned when every frame is pinned and none can
	// be evicted to make room for a new page.
	ErrNoFreeFrame = errors.New("buffer: no free frame available")

	// ErrPagePinned is returned by DeletePage for a page with pin count > 0.
	ErrPagePinned = errors.New("buffer: page is pinned")

	// ErrPageNotResident is returned for an operation against a page id
	// that is not currently in a frame.
	ErrPageNotResident = errors.New("buffer: page not resident")

	// ErrPinCountUnderflow is returned by PageGuard.Unpin when the page's
	// pin count is already zero or the guard was already released.
	ErrPinCountUnderflow = errors.New("buffer: pin count underflow")
)

// frame holds one page-sized buffer plus its bookkeeping.
type frame struct {
	buf      []byte
	page     *page.Page
	pageID   page.PageID
	pinCount int
	dirty    bool
}

// Pool is a fixed-size buffer pool. A single mutex guards frame
// selection, the page table, and pin-count mutation; I/O happens while
// the lock is held, trading concurrency for a pedagogically simple
// invariant: no two goroutines ever observe a half-evicted frame.
type Pool struct {
	mu        sync.Mutex
	disk      disk.Manager
	replacer  *replacer.LRUK
	frames    []*frame
	freeList  []replacer.FrameID
	pageTable map[page.PageID]replacer.FrameID
}

// NewPool builds a pool of the given frame capacity, using k as the
// LRU-K history depth.
func NewPool(capacity int, k int, diskManager disk.Manager) *Pool {
	if capacity < 1 {
		panic("buffer: capacity must be at least 1")
	}
	p := &Pool{
		disk:      diskManager,
		replacer:  replacer.New(k, capacity),
		frames:    make([]*frame, capacity),
		freeList:  make([]replacer.FrameID, capacity),
		pageTable: make(map[page.PageID]replacer.FrameID, capacity),
	}
	for i := 0; i < capacity; i++ {
		buf := make([]byte, page.Size)
		p.frames[i] = &frame{buf: buf, page: page.New(buf)}
		p.freeList[i] = replacer.FrameID(capacity - 1 - i)
	}
	return p
}

// selectFrameLocked picks a frame to hold a page, evicting if necessary.
// Caller must hold mu. On success the returned frame is reset (not yet
// associated with any pageID in pageTable).
func (p *Pool) selectFrameLocked() (replacer.FrameID, error) {
	if n := len(p.freeList); n > 0 {
		fid := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return fid, nil
	}

	fid, ok := p.replacer.Evict()
	if !ok {
		return 0, ErrNoFreeFrame
	}
	fr := p.frames[fid]
	if fr.dirty {
		if err := p.disk.WritePage(fr.pageID, fr.buf); err != nil {
			// Leave the victim resident and dirty: nothing has been lost,
			// and the caller can retry once the underlying I/O recovers.
			p.replacer.RecordAccess(fid)
			p.replacer.SetEvictable(fid, true)
			return 0, fmt.Errorf("buffer: evict page %d: %w", fr.pageID, err)
		}
		slog.Debug("buffer: flushed evicted page", "pageID", fr.pageID, "frame", fid)
	}
	delete(p.pageTable, fr.pageID)
	fr.dirty = false
	return fid, nil
}

// CreatePage allocates a brand new page on disk and pins it resident in
// a frame, returning a guard over it.
func (p *Pool) CreatePage() (*PageGuard, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := p.disk.AllocatePage()
	if err != nil {
		return nil, err
	}

	fid, err := p.selectFrameLocked()
	if err != nil {
		_ = p.disk.DeallocatePage(id)
		return nil, err
	}

	fr := p.frames[fid]
	fr.pageID = id
	fr.pinCount = 1
	// The freshly Init'd header differs from whatever stale bytes (if
	// any) still sit on disk at this page id, so the frame starts dirty
	// regardless of what the caller does with it.
	fr.dirty = true
	fr.page.Init(page.InvalidPageID)

	p.pageTable[id] = fid
	p.replacer.RecordAccess(fid)
	p.replacer.SetEvictable(fid, false)

	slog.Debug("buffer: created page", "pageID", id, "frame", fid)
	return &PageGuard{pool: p, frameID: fid, pageID: id}, nil
}

// fetch is the shared body of FetchPage/FetchPageMut.
func (p *Pool) fetch(id page.PageID, markDirty bool) (*PageGuard, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fid, ok := p.pageTable[id]; ok {
		fr := p.frames[fid]
		fr.pinCount++
		fr.dirty = fr.dirty || markDirty
		p.replacer.RecordAccess(fid)
		p.replacer.SetEvictable(fid, false)
		slog.Debug("buffer: fetch hit", "pageID", id, "frame", fid)
		return &PageGuard{pool: p, frameID: fid, pageID: id}, nil
	}

	fid, err := p.selectFrameLocked()
	if err != nil {
		return nil, err
	}

	fr := p.frames[fid]
	if err := p.disk.ReadPage(id, fr.buf); err != nil {
		p.freeList = append(p.freeList, fid)
		return nil, err
	}
	fr.pageID = id
	fr.pinCount = 1
	fr.dirty = markDirty

	p.pageTable[id] = fid
	p.replacer.RecordAccess(fid)
	p.replacer.SetEvictable(fid, false)

	slog.Debug("buffer: fetch miss", "pageID", id, "frame", fid)
	return &PageGuard{pool: p, frameID: fid, pageID: id}, nil
}

// FetchPage pins id resident for reading. Callers that will not mutate
// the page's bytes should prefer this over FetchPageMut, which
// eagerly marks the frame dirty.
func (p *Pool) FetchPage(id page.PageID) (*PageGuard, error) {
	return p.fetch(id, false)
}

// FetchPageMut pins id resident for read-write access, marking the frame
// dirty immediately (a future flush will write it back even if the
// caller ends up not changing anything).
func (p *Pool) FetchPageMut(id page.PageID) (*PageGuard, error) {
	return p.fetch(id, true)
}

// unpin decrements id's pin count, making the frame evictable once it
// reaches zero. dirty, if true, marks the frame dirty regardless of its
// previous state; it never clears an existing dirty flag.
func (p *Pool) unpin(id page.PageID, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTable[id]
	if !ok {
		return fmt.Errorf("buffer: unpin page %d: %w", id, ErrPageNotResident)
	}
	fr := p.frames[fid]
	if fr.pinCount == 0 {
		return fmt.Errorf("buffer: unpin page %d: %w", id, ErrPinCountUnderflow)
	}
	fr.dirty = fr.dirty || dirty
	fr.pinCount--
	if fr.pinCount == 0 {
		p.replacer.SetEvictable(fid, true)
	}
	return nil
}

// FlushPage writes a resident page's current bytes to disk regardless
// of its pin count, and clears its dirty flag. It succeeds trivially if
// id is not resident.
func (p *Pool) FlushPage(id page.PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTable[id]
	if !ok {
		return nil
	}
	fr := p.frames[fid]
	if err := p.disk.WritePage(id, fr.buf); err != nil {
		return err
	}
	fr.dirty = false
	return nil
}

// FlushAll flushes every resident page, stopping at the first error.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	ids := make([]page.PageID, 0, len(p.pageTable))
	for id := range p.pageTable {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		if err := p.FlushPage(id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes a page from the pool and the disk manager. It
// fails with ErrPagePinned if the page is currently pinned by anyone.
func (p *Pool) DeletePage(id page.PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.pageTable[id]
	if !ok {
		return p.disk.DeallocatePage(id)
	}
	fr := p.frames[fid]
	if fr.pinCount > 0 {
		return fmt.Errorf("buffer: delete page %d: %w", id, ErrPagePinned)
	}

	if err := p.replacer.Remove(fid); err != nil && !errors.Is(err, replacer.ErrUnknownFrame) {
		return fmt.Errorf("buffer: delete page %d: %w", id, err)
	}
	delete(p.pageTable, id)
	fr.dirty = false
	p.freeList = append(p.freeList, fid)

	return p.disk.DeallocatePage(id)
}
