// Package replacer implements the LRU-K frame-replacement policy: pure
// in-memory bookkeeping over a fixed universe of frame identifiers. It
// knows nothing about page identifiers, page content, or I/O — the
// buffer pool translates between the two.
package replacer

import (
	"errors"
	"math"
)

// FrameID is a frame index in the owning buffer pool's fixed-size frame
// array, in [0, capacity).
type FrameID int

// ErrUnknownFrame is returned by Remove for a frame id that has no
// bookkeeping entry: never recorded, or already evicted or removed.
var ErrUnknownFrame = errors.New("replacer: unknown frame")

// ErrNonEvictable is returned by Remove for a frame that is currently
// marked non-evictable.
var ErrNonEvictable = errors.New("replacer: frame is not evictable")

type history struct {
	// timestamps holds at most k entries, most recent first.
	timestamps []uint64
	evictable  bool
}

// LRUK ranks frames by backward k-distance: the interval between now and
// the k-th most recent access, with frames seen fewer than k times
// ranked as having infinite distance (most eligible for eviction),
// broken by earliest known access.
//
// LRUK is not internally synchronized: like the teacher's clockx.Clock,
// it assumes the owning buffer pool already serializes access under its
// own lock.
type LRUK struct {
	k     int
	now   uint64
	state map[FrameID]*history
}

// New creates a replacer tracking history up to depth k for frames in a
// universe sized by the owning pool's capacity (capacity is not enforced
// here; it only affects map pre-sizing).
func New(k int, capacity int) *LRUK {
	if k < 1 {
		k = 1
	}
	return &LRUK{
		k:     k,
		state: make(map[FrameID]*history, capacity),
	}
}

// RecordAccess appends a new access timestamp for frameID, creating its
// bookkeeping entry (evictable=false) on first sight.
func (r *LRUK) RecordAccess(frameID FrameID) {
	r.now++
	h, ok := r.state[frameID]
	if !ok {
		h = &history{}
		r.state[frameID] = h
	}
	h.timestamps = append([]uint64{r.now}, h.timestamps...)
	if len(h.timestamps) > r.k {
		h.timestamps = h.timestamps[:r.k]
	}
}

// SetEvictable adjusts the evictable flag for a known frame. It is a
// no-op for a frame that has never been recorded.
func (r *LRUK) SetEvictable(frameID FrameID, evictable bool) {
	if h, ok := r.state[frameID]; ok {
		h.evictable = evictable
	}
}

// Remove discards a frame's bookkeeping as if it had been evicted. It
// fails with ErrNonEvictable if the frame is currently pinned (not
// evictable), and with ErrUnknownFrame if the frame has no entry.
func (r *LRUK) Remove(frameID FrameID) error {
	h, ok := r.state[frameID]
	if !ok {
		return ErrUnknownFrame
	}
	if !h.evictable {
		return ErrNonEvictable
	}
	delete(r.state, frameID)
	return nil
}

// Size returns the number of frames currently marked evictable.
func (r *LRUK) Size() int {
	n := 0
	for _, h := range r.state {
		if h.evictable {
			n++
		}
	}
	return n
}

// score is the backward k-distance of one frame at the current time,
// ordered so that "more evictable" compares greater: infinite distance
// beats any finite distance, and within the same class a smaller
// tiebreak (earlier access) beats a larger one.
type score struct {
	frame    FrameID
	infinite bool
	distance uint64
	tiebreak uint64
}

// better reports whether a is a preferable eviction victim to b.
func (a score) better(b score) bool {
	if a.infinite != b.infinite {
		return a.infinite
	}
	if a.infinite {
		return a.tiebreak < b.tiebreak
	}
	if a.distance != b.distance {
		return a.distance > b.distance
	}
	return a.tiebreak < b.tiebreak
}

func (r *LRUK) scoreOf(frameID FrameID, h *history) score {
	m := len(h.timestamps)
	tiebreak := h.timestamps[m-1] // earliest recorded access in the window
	if m < r.k {
		return score{frame: frameID, infinite: true, tiebreak: tiebreak}
	}
	return score{frame: frameID, distance: r.now - tiebreak, tiebreak: tiebreak}
}

// Evict returns the frame with the largest backward k-distance among
// evictable frames, breaking ties by the smaller tiebreak key. It
// returns (0, false) if no frame is currently evictable. The winning
// frame's history is discarded, as if it had been removed.
func (r *LRUK) Evict() (FrameID, bool) {
	var best score
	found := false
	for frameID, h := range r.state {
		if !h.evictable {
			continue
		}
		s := r.scoreOf(frameID, h)
		if !found || s.better(best) {
			best = s
			found = true
		}
	}
	if !found {
		return 0, false
	}
	delete(r.state, best.frame)
	return best.frame, true
}

// backwardKDistance exposes the current backward k-distance for
// diagnostics/tests; +Inf is returned for frames with fewer than k
// recorded accesses. Unknown frames also report +Inf.
func (r *LRUK) backwardKDistance(frameID FrameID) float64 {
	h, ok := r.state[frameID]
	if !ok {
		return math.Inf(1)
	}
	s := r.scoreOf(frameID, h)
	if s.infinite {
		return math.Inf(1)
	}
	return float64(s.distance)
}
