// Package page implements the slotted table-page codec: the on-disk byte
// layout of one fixed-size page holding variable-length tuples and their
// metadata. The page knows nothing about disk I/O, buffer replacement, or
// the SQL-level meaning of a tuple's bytes.
package page

import (
	"encoding/binary"
	"errors"
)

const (
	// Size is the fixed page size in bytes, shared by every page.
	Size = 4096

	// HeaderSize is the fixed page header: next_page_id (4) + num_tuples (2)
	// + 2 reserved bytes.
	HeaderSize = 8

	// SlotSize is the fixed size of one slot directory entry: offset (2) +
	// length (2) + metadata (MetadataSize).
	SlotSize = 4 + MetadataSize

	// MetadataSize is the serialized size of TupleMetadata.
	MetadataSize = 4
)

// PageID identifies a page for the lifetime it is resident anywhere in
// the system. It is stable across reads.
type PageID uint32

// InvalidPageID is the sentinel meaning "no such page" (e.g. end of chain).
const InvalidPageID PageID = 0xFFFFFFFF

// RecordID locates a tuple within a heap: the page it lives on and its
// slot index within that page's directory.
type RecordID struct {
	PageID PageID
	Slot   uint16
}

// TupleMetadata is the small fixed-size record that accompanies every
// slot. Only the deleted flag is interpreted by the core; the remaining
// bytes are reserved for a higher layer (e.g. a future MVCC extension)
// and are never read or written by this package beyond round-tripping
// them unchanged.
type TupleMetadata struct {
	Deleted  bool
	Reserved [MetadataSize - 1]byte
}

func encodeMetadata(m TupleMetadata) [MetadataSize]byte {
	var b [MetadataSize]byte
	if m.Deleted {
		b[0] = 1
	}
	copy(b[1:], m.Reserved[:])
	return b
}

func decodeMetadata(b []byte) TupleMetadata {
	var m TupleMetadata
	m.Deleted = b[0] != 0
	copy(m.Reserved[:], b[1:MetadataSize])
	return m
}

var (
	// ErrOutOfBounds is returned when a RecordId's slot exceeds num_tuples.
	ErrOutOfBounds = errors.New("page: slot out of bounds")

	// ErrPageFull is returned when an insert does not fit the current
	// directory/tuple layout.
	ErrPageFull = errors.New("page: insert does not fit")
)

// Page is a codec over a fixed-size buffer owned by a buffer-pool frame.
// It never copies or owns buf; callers are responsible for the buffer's
// lifetime.
type Page struct {
	buf []byte
}

// New wraps an existing page-sized buffer. It does not initialize it;
// call Init for a fresh page or rely on the bytes already being a valid
// page image (e.g. just read from disk).
func New(buf []byte) *Page {
	if len(buf) != Size {
		panic("page: buffer must be exactly Size bytes")
	}
	return &Page{buf: buf}
}

// Init writes a fresh header with num_tuples = 0 and the given next page
// link, and zeroes the reserved header bytes and the rest of the buffer.
func (p *Page) Init(next PageID) {
	for i := range p.buf {
		p.buf[i] = 0
	}
	p.SetNextPageID(next)
	p.setNumTuples(0)
}

func (p *Page) NextPageID() PageID {
	return PageID(binary.LittleEndian.Uint32(p.buf[0:4]))
}

func (p *Page) SetNextPageID(id PageID) {
	binary.LittleEndian.PutUint32(p.buf[0:4], uint32(id))
}

// NumTuples returns the number of slots currently allocated, including
// deleted ones.
func (p *Page) NumTuples() uint16 {
	return binary.LittleEndian.Uint16(p.buf[4:6])
}

func (p *Page) setNumTuples(n uint16) {
	binary.LittleEndian.PutUint16(p.buf[4:6], n)
}

func (p *Page) slotOffset(slot uint16) int {
	return HeaderSize + int(slot)*SlotSize
}

func (p *Page) readSlot(slot uint16) (offset, length uint16, meta TupleMetadata) {
	o := p.slotOffset(slot)
	offset = binary.LittleEndian.Uint16(p.buf[o : o+2])
	length = binary.LittleEndian.Uint16(p.buf[o+2 : o+4])
	meta = decodeMetadata(p.buf[o+4 : o+4+MetadataSize])
	return
}

func (p *Page) writeSlot(slot uint16, offset, length uint16, meta TupleMetadata) {
	o := p.slotOffset(slot)
	binary.LittleEndian.PutUint16(p.buf[o:o+2], offset)
	binary.LittleEndian.PutUint16(p.buf[o+2:o+4], length)
	mb := encodeMetadata(meta)
	copy(p.buf[o+4:o+4+MetadataSize], mb[:])
}

// minTupleOffset returns the smallest tuple-area offset among all
// allocated slots (deleted or not — the core never reclaims tuple
// bytes), or Size if the page has no slots yet.
func (p *Page) minTupleOffset() int {
	min := Size
	n := p.NumTuples()
	for i := uint16(0); i < n; i++ {
		off, _, _ := p.readSlot(i)
		if int(off) < min {
			min = int(off)
		}
	}
	return min
}

// NextTupleOffset returns the offset at which a tuple of length tupleLen
// would be placed if inserted now, or ErrPageFull if it would not fit.
func (p *Page) NextTupleOffset(tupleLen int) (int, error) {
	dirEnd := HeaderSize + (int(p.NumTuples())+1)*SlotSize
	tailStart := p.minTupleOffset() - tupleLen
	if dirEnd > tailStart {
		return 0, ErrPageFull
	}
	return tailStart, nil
}

// GetTuple returns the metadata and tuple bytes for the given slot. The
// returned byte slice aliases the page buffer; callers that outlive the
// current pin must copy it.
func (p *Page) GetTuple(slot uint16) (TupleMetadata, []byte, error) {
	if slot >= p.NumTuples() {
		return TupleMetadata{}, nil, ErrOutOfBounds
	}
	offset, length, meta := p.readSlot(slot)
	return meta, p.buf[offset : offset+length], nil
}

// InsertTuple appends a new slot and writes the tuple bytes, returning
// the new slot index. It never mutates page state on failure.
func (p *Page) InsertTuple(data []byte, meta TupleMetadata) (uint16, error) {
	offset, err := p.NextTupleOffset(len(data))
	if err != nil {
		return 0, err
	}
	copy(p.buf[offset:offset+len(data)], data)
	slot := p.NumTuples()
	p.writeSlot(slot, uint16(offset), uint16(len(data)), meta)
	p.setNumTuples(slot + 1)
	return slot, nil
}

// UpdateTupleMetadata overwrites only the metadata portion of a slot; it
// never moves or resizes the tuple bytes.
func (p *Page) UpdateTupleMetadata(slot uint16, meta TupleMetadata) error {
	if slot >= p.NumTuples() {
		return ErrOutOfBounds
	}
	offset, length, _ := p.readSlot(slot)
	p.writeSlot(slot, offset, length, meta)
	return nil
}

// Bytes returns the page's raw backing buffer (the same slice passed to
// New); callers outside this package should otherwise prefer the typed
// accessors above.
func (p *Page) Bytes() []byte {
	return p.buf
}
