package liveview

import (
	"sync"
	"sync/atomic"
)

// FrameMailbox is the single-slot handoff between the camera-frame
// producer and the render loop. Publish never blocks and never queues:
// a new frame overwrites an unconsumed one, because a preview only ever
// wants the latest frame. Take never blocks either; when the slot is
// empty the renderer redraws the previously uploaded texture.
//
// The slot holds the frame by reference (no copy); the Frame
// immutability contract makes that safe.
type FrameMailbox struct {
	mu    sync.Mutex
	slot  *Frame
	drops atomic.Uint64
	taken atomic.Uint64
}

// Publish puts frame in the slot, overwriting any unconsumed frame.
// Safe for concurrent use; typically called from the camera's delivery
// goroutine. A nil frame is ignored.
func (m *FrameMailbox) Publish(frame *Frame) {
	if frame == nil {
		return
	}
	m.mu.Lock()
	if m.slot != nil {
		m.drops.Add(1)
	}
	m.slot = frame
	m.mu.Unlock()
}

// Take removes and returns the latest published frame, or nil if no
// frame has arrived since the last Take. Called from the render loop
// once per display refresh.
func (m *FrameMailbox) Take() *Frame {
	m.mu.Lock()
	f := m.slot
	m.slot = nil
	m.mu.Unlock()
	if f != nil {
		m.taken.Add(1)
	}
	return f
}

// Drops returns the number of frames overwritten before being consumed.
// The camera cadence frequently outruns a blocked or slow display; a
// growing drop count is normal under load, not an error.
func (m *FrameMailbox) Drops() uint64 {
	return m.drops.Load()
}

// Taken returns the number of frames consumed by Take.
func (m *FrameMailbox) Taken() uint64 {
	return m.taken.Load()
}
