// Package capture samples a canvas into a live frame stream and records that
// stream through an encoder.
package capture

import (
	"image"
	"sync"
	"sync/atomic"
	"time"
)

// Source is a surface that can be sampled.
type Source interface {
	Width() int
	Height() int
	Snapshot() *image.RGBA
}

// Frame is one sample of the source. Image is owned by the receiver.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Image     *image.RGBA
}

// Stats is a point-in-time view of a stream's counters.
type Stats struct {
	// Captured counts frames handed to at least one subscriber.
	Captured uint64
	// Dropped counts deliveries skipped because a subscriber was full.
	Dropped uint64
	FPS     float64
	Width   int
	Height  int
	Live    bool
}

// Stream samples its source at a fixed rate and fans frames out to
// subscribers. Delivery never blocks: a subscriber whose buffer is full
// misses that frame and the drop is counted.
type Stream struct {
	source Source
	fps    float64

	mu      sync.Mutex
	subs    map[chan Frame]struct{}
	stopped bool

	stop chan struct{}
	done chan struct{}

	seq      atomic.Uint64
	captured atomic.Uint64
	dropped  atomic.Uint64
}

// NewStream starts sampling src at fps frames per second. The first frame is
// taken one interval after the stream starts. fps must be positive.
func NewStream(src Source, fps float64) *Stream {
	if fps <= 0 {
		panic("capture: fps must be positive")
	}
	s := &Stream{
		source: src,
		fps:    fps,
		subs:   make(map[chan Frame]struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// FPS returns the sampling rate.
func (s *Stream) FPS() float64 { return s.fps }

// Width returns the source width.
func (s *Stream) Width() int { return s.source.Width() }

// Height returns the source height.
func (s *Stream) Height() int { return s.source.Height() }

// Subscribe returns a channel receiving frames, buffered to hold buffer
// frames. It is closed when the stream stops or on Unsubscribe.
func (s *Stream) Subscribe(buffer int) <-chan Frame {
	ch := make(chan Frame, buffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		close(ch)
		return ch
	}
	s.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe detaches and closes ch. Unknown channels are ignored.
func (s *Stream) Unsubscribe(ch <-chan Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.subs {
		if c == ch {
			delete(s.subs, c)
			close(c)
			return
		}
	}
}

// Stop ends sampling and closes every subscriber channel. It is idempotent
// and returns once the sampling goroutine has exited.
func (s *Stream) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
	s.mu.Unlock()
	<-s.done
}

// Stats returns the current counters.
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	live := !s.stopped
	s.mu.Unlock()
	return Stats{
		Captured: s.captured.Load(),
		Dropped:  s.dropped.Load(),
		FPS:      s.fps,
		Width:    s.source.Width(),
		Height:   s.source.Height(),
		Live:     live,
	}
}

func (s *Stream) run() {
	defer close(s.done)
	ticker := time.NewTicker(time.Duration(float64(time.Second) / s.fps))
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.closeSubscribers()
			return
		case now := <-ticker.C:
			s.sample(now)
		}
	}
}

func (s *Stream) sample(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return
	}

	img := s.source.Snapshot()
	seq := s.seq.Add(1)
	delivered := false
	first := true
	for ch := range s.subs {
		frame := Frame{Seq: seq, Timestamp: now, Image: img}
		if !first {
			frame.Image = cloneRGBA(img)
		}
		select {
		case ch <- frame:
			delivered = true
			first = false
		default:
			s.dropped.Add(1)
		}
	}
	if delivered {
		s.captured.Add(1)
	}
}

func (s *Stream) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}
