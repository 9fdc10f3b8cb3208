package buffer

import (
	"github.com/lttran/corestore/internal/page"
	"github.com/lttran/corestore/internal/replacer"
)

// PageGuard is a handle to one pin on a resident page. It is the only
// sanctioned way to reach a frame's page bytes, and the only sanctioned
// way to release the pin: callers must call Unpin exactly once per
// guard they receive from the pool.
//
// A guard's Page() result aliases the frame's buffer directly. It is
// only valid for as long as the guard itself is unreleased; using it
// afterward is undefined, just like touching an unpinned frame that has
// since been evicted and overwritten.
type PageGuard struct {
	pool     *Pool
	frameID  replacer.FrameID
	pageID   page.PageID
	released bool
}

// PageID returns the page this guard pins.
func (g *PageGuard) PageID() page.PageID {
	return g.pageID
}

// Page returns the codec view over this guard's frame. The returned
// pointer must not be retained past Unpin.
func (g *PageGuard) Page() *page.Page {
	g.pool.mu.Lock()
	defer g.pool.mu.Unlock()
	return g.pool.frames[g.frameID].page
}

// MarkDirty flags the underlying frame as needing a future flush.
func (g *PageGuard) MarkDirty() {
	g.pool.mu.Lock()
	defer g.pool.mu.Unlock()
	g.pool.frames[g.frameID].dirty = true
}

// Unpin releases this guard's pin, optionally marking the frame dirty.
// Calling it more than once returns ErrPinCountUnderflow on the second
// and subsequent calls.
func (g *PageGuard) Unpin(dirty bool) error {
	if g.released {
		return ErrPinCountUnderflow
	}
	g.released = true
	return g.pool.unpin(g.pageID, dirty)
}
