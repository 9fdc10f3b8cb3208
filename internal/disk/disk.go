// Package disk implements the assumed disk-manager contract: whole-page
// reads and writes against a single backing file, plus page allocation
// and recycling. Nothing above this package ever does its own file I/O.
package disk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/lttran/corestore/internal/page"
)

// ErrIO wraps any unexpected underlying I/O failure.
var ErrIO = errors.New("disk: i/o error")

// Manager is the disk-manager contract the buffer pool depends on.
type Manager interface {
	ReadPage(id page.PageID, buf []byte) error
	WritePage(id page.PageID, buf []byte) error
	AllocatePage() (page.PageID, error)
	DeallocatePage(id page.PageID) error
	Close() error
}

// FileManager is a Manager backed by a single flat file, one page.Size
// slot per allocated page.PageID. A bitmap tracks which page numbers are
// currently allocated; a deallocated number is recycled by the next
// AllocatePage call instead of growing the file further.
type FileManager struct {
	mu        sync.Mutex
	f         *os.File
	allocated *bitmap
	count     int // size of the dense id space: pages in the file at Open plus those added by AllocatePage
}

// Open opens or creates the backing file at path. The allocation bitmap
// is in-memory only: reopening an existing file starts with every
// existing page number marked free, since persisting free-space
// metadata is outside this core's scope.
func Open(path string) (*FileManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	fm := &FileManager{
		f:         f,
		allocated: newBitmap(),
		count:     int(fi.Size() / page.Size),
	}
	return fm, nil
}

func (m *FileManager) offset(id page.PageID) int64 {
	return int64(id) * page.Size
}

// ReadPage fills buf (which must be page.Size bytes) with the on-disk
// image of id. Reading a page beyond the current file size is not an
// error: buf is zero-filled, matching a never-yet-flushed new page.
func (m *FileManager) ReadPage(id page.PageID, buf []byte) error {
	if len(buf) != page.Size {
		panic("disk: ReadPage buffer must be page.Size bytes")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.f.ReadAt(buf, m.offset(id))
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: read page %d: %v", ErrIO, id, err)
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return nil
}

// WritePage writes buf (page.Size bytes) to id's slot, extending the
// file if necessary.
func (m *FileManager) WritePage(id page.PageID, buf []byte) error {
	if len(buf) != page.Size {
		panic("disk: WritePage buffer must be page.Size bytes")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.f.WriteAt(buf, m.offset(id)); err != nil {
		return fmt.Errorf("%w: write page %d: %v", ErrIO, id, err)
	}
	slog.Debug("disk: wrote page", "pageID", id)
	return nil
}

// AllocatePage returns a recycled free page id if one exists, otherwise
// grows the dense id space by one.
func (m *FileManager) AllocatePage() (page.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := m.allocated.findFirstZero(m.count); n >= 0 {
		m.allocated.set(n)
		return page.PageID(n), nil
	}
	id := page.PageID(m.count)
	m.count++
	m.allocated.set(int(id))
	return id, nil
}

// DeallocatePage marks id as free for recycling by a future
// AllocatePage call. It does not shrink the backing file or scrub the
// page's former contents.
func (m *FileManager) DeallocatePage(id page.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocated.clear(int(id))
	return nil
}

// Close closes the backing file.
func (m *FileManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.f.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrIO, err)
	}
	return nil
}
