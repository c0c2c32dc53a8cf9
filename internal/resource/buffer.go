package resource

import "github.com/jtchitty/legatoDataHub/internal/sample"

// Buffer is the bounded, FIFO-ordered history kept for Observation entries
// (spec §3.1, §4.4). MaxCount and MaxWindow are administrative caps (spec
// §6.3); 0 means uncapped on that axis, but an uncapped buffer is a
// deployment error in production (spec §1 Non-goals: "unbounded buffer
// growth") — callers should always configure at least one cap.
type Buffer struct {
	MaxCount  int
	MaxWindow float64 // seconds; eviction when newest-oldest exceeds this

	entries []*sample.Sample
}

// NewBuffer creates a Buffer with the given caps.
func NewBuffer(maxCount int, maxWindowSeconds float64) *Buffer {
	return &Buffer{MaxCount: maxCount, MaxWindow: maxWindowSeconds}
}

// Append adds s to the buffer (arrival order, not timestamp order — spec
// §3.2: "a later push with an earlier timestamp is still appended"), then
// evicts from the oldest end while the size cap or the window cap is
// exceeded (spec §4.3 step 4).
func (b *Buffer) Append(s *sample.Sample) {
	b.entries = append(b.entries, s)
	b.evict()
}

// Evict re-applies the size and window caps without requiring a new push.
// Used by the periodic sweeper (spec SPEC_FULL.md §3). The window is
// measured from the newest buffered timestamp, not from the wall clock, so
// on a buffer whose MaxCount/MaxWindow have not been lowered since its
// last Append this removes nothing.
func (b *Buffer) Evict() { b.evict() }

func (b *Buffer) evict() {
	for b.MaxCount > 0 && len(b.entries) > b.MaxCount {
		b.entries = b.entries[1:]
	}
	if b.MaxWindow <= 0 || len(b.entries) == 0 {
		return
	}
	newest := b.entries[len(b.entries)-1].Timestamp()
	for len(b.entries) > 0 && newest-b.entries[0].Timestamp() > b.MaxWindow {
		b.entries = b.entries[1:]
	}
}

// Entries returns the buffer's current contents in push order. The
// returned slice is a fresh copy; callers must not retain it across a
// mutation of the buffer.
func (b *Buffer) Entries() []*sample.Sample {
	out := make([]*sample.Sample, len(b.entries))
	copy(out, b.entries)
	return out
}

// Since returns the entries with Timestamp() >= threshold, in push order.
func (b *Buffer) Since(threshold float64) []*sample.Sample {
	var out []*sample.Sample
	for _, s := range b.entries {
		if s.Timestamp() >= threshold {
			out = append(out, s)
		}
	}
	return out
}
