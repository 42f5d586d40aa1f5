// Package hub fans execution-log frames out to live subscribers and keeps a
// bounded backlog of recent frames for late joiners.
package hub

import (
	"sync"
	"time"

	"home_dispatch/internal/models"
)

const DefaultBacklog = 100

// FrameType distinguishes what a frame carries.
type FrameType string

const (
	FrameRecord FrameType = "record" // a persisted execution record
	FrameOutput FrameType = "output" // one line of agent output
)

// Frame is one entry of the live stream.
type Frame struct {
	Seq     uint64                  `json:"seq"`
	Type    FrameType               `json:"type"`
	At      time.Time               `json:"at"`
	Record  *models.ExecutionRecord `json:"record,omitempty"`
	Command string                  `json:"command,omitempty"`
	Line    string                  `json:"line,omitempty"`
}

// Hub is safe for concurrent use. Publishing never blocks: a subscriber whose
// buffer is full misses frames and has its Dropped counter bumped.
type Hub struct {
	mu      sync.Mutex
	seq     uint64
	cap     int
	backlog []Frame // ring, oldest at head
	head    int
	subs    map[*Subscription]struct{}
	now     func() time.Time
}

// New creates a hub retaining up to backlog frames.
func New(backlog int) *Hub {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Hub{
		cap:     backlog,
		backlog: make([]Frame, 0, backlog),
		subs:    make(map[*Subscription]struct{}),
		now:     time.Now,
	}
}

// Subscription receives frames published after it was created.
type Subscription struct {
	C       <-chan Frame
	Backlog []Frame // frames retained at subscribe time, oldest first

	ch      chan Frame
	hub     *Hub
	dropped uint64
	once    sync.Once
}

// Dropped reports how many frames were skipped because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.dropped
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// Subscribe registers a subscriber with the given channel buffer. The
// backlog snapshot and the registration happen atomically, so no frame is
// both in Backlog and on C, and none falls in between.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Frame, buffer)
	s := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	s.Backlog = h.recentLocked()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish stamps and fans out a frame, returning it.
func (h *Hub) Publish(f Frame) Frame {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	f.Seq = h.seq
	if f.At.IsZero() {
		f.At = h.now()
	}

	if len(h.backlog) < h.cap {
		h.backlog = append(h.backlog, f)
	} else {
		h.backlog[h.head] = f
		h.head = (h.head + 1) % h.cap
	}

	for s := range h.subs {
		select {
		case s.ch <- f:
		default:
			s.dropped++
		}
	}
	return f
}

// PublishRecord publishes a record frame.
func (h *Hub) PublishRecord(rec models.ExecutionRecord) Frame {
	return h.Publish(Frame{Type: FrameRecord, Record: &rec, At: rec.OccurredAt})
}

// PublishOutput publishes an agent output line.
func (h *Hub) PublishOutput(command, line string) Frame {
	return h.Publish(Frame{Type: FrameOutput, Command: command, Line: line})
}

// Recent returns the retained frames, oldest first.
func (h *Hub) Recent() []Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recentLocked()
}

func (h *Hub) recentLocked() []Frame {
	out := make([]Frame, 0, len(h.backlog))
	out = append(out, h.backlog[h.head:]...)
	out = append(out, h.backlog[:h.head]...)
	return out
}

// Subscribers returns the number of attached subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
