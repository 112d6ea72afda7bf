package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"noise-recorder/internal/blob"
	"noise-recorder/internal/encoder"
)

// frameBuffer is how many captured frames may queue ahead of the encoder.
const frameBuffer = 8

// ErrRecorderState is returned by Start on a recorder that already started.
var ErrRecorderState = errors.New("recorder is not inactive")

// RecorderState mirrors the lifecycle of a media recorder.
type RecorderState int

const (
	Inactive RecorderState = iota
	Recording
	Stopped
)

func (s RecorderState) String() string {
	switch s {
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	default:
		return "inactive"
	}
}

// DataHandler receives the finished recording.
type DataHandler func(*blob.Blob)

// Recorder encodes frames from a Stream between Start and Stop, then delivers
// the whole container once: to every DataHandler, and through Result.
type Recorder struct {
	stream *Stream
	enc    encoder.Encoder
	log    *slog.Logger

	mu       sync.Mutex
	state    RecorderState
	handlers []DataHandler
	stopCh   chan struct{}

	result  *Result
	encoded atomic.Uint64
}

// NewRecorder returns an inactive recorder for stream.
func NewRecorder(stream *Stream, enc encoder.Encoder, log *slog.Logger) *Recorder {
	return &Recorder{
		stream: stream,
		enc:    enc,
		log:    log,
		stopCh: make(chan struct{}),
		result: newResult(),
	}
}

// MimeType is the container type of the recording.
func (r *Recorder) MimeType() string { return r.enc.MimeType() }

// OnDataAvailable registers h. Handlers registered after delivery never run.
func (r *Recorder) OnDataAvailable(h DataHandler) {
	r.mu.Lock()
	r.handlers = append(r.handlers, h)
	r.mu.Unlock()
}

// State returns the current lifecycle state.
func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the single-resolution handle for this recording.
func (r *Recorder) Result() *Result { return r.result }

// FramesEncoded returns the number of frames handed to the encoder.
func (r *Recorder) FramesEncoded() uint64 { return r.encoded.Load() }

// Start begins buffering encoded output. Cancelling ctx finalises the
// recording with ctx's error.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Inactive {
		return fmt.Errorf("%w: %s", ErrRecorderState, r.state)
	}
	if err := r.enc.Begin(r.stream.Width(), r.stream.Height(), r.stream.FPS()); err != nil {
		return fmt.Errorf("begin encoder: %w", err)
	}
	r.state = Recording
	frames := r.stream.Subscribe(frameBuffer)
	go r.run(ctx, frames)

	r.log.Debug("recorder started",
		slog.String("mime_type", r.enc.MimeType()),
		slog.Float64("fps", r.stream.FPS()))
	return nil
}

// Stop asks the recorder to finalise. The recording is delivered
// asynchronously; wait on Result. Stop on an inactive or stopped recorder
// does nothing.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Recording {
		return
	}
	r.state = Stopped
	close(r.stopCh)
}

func (r *Recorder) run(ctx context.Context, frames <-chan Frame) {
	var (
		encErr error
		first  Frame
		seen   bool
	)

	encode := func(f Frame) error {
		if !seen {
			first, seen = f, true
		}
		if err := r.enc.EncodeFrame(f.Image, f.Timestamp.Sub(first.Timestamp)); err != nil {
			return fmt.Errorf("encode frame %d: %w", f.Seq, err)
		}
		r.encoded.Add(1)
		return nil
	}

loop:
	for {
		select {
		case <-r.stopCh:
			// Frames already captured belong to the recording. Unsubscribing
			// closes the channel, so the range ends once the buffer is empty.
			r.stream.Unsubscribe(frames)
			for f := range frames {
				if encErr = encode(f); encErr != nil {
					break
				}
			}
			break loop
		case <-ctx.Done():
			encErr = ctx.Err()
			break loop
		case f, ok := <-frames:
			if !ok {
				break loop
			}
			if encErr = encode(f); encErr != nil {
				break loop
			}
		}
	}

	r.stream.Unsubscribe(frames)
	r.mu.Lock()
	r.state = Stopped
	r.mu.Unlock()

	data, err := r.enc.End()
	if encErr != nil {
		err = encErr
	}
	if err != nil {
		r.log.Error("recording failed", slog.String("error", err.Error()))
		r.result.resolve(nil, err)
		return
	}

	b := blob.New([][]byte{data}, r.enc.MimeType())
	r.log.Info("recording available",
		slog.Int("bytes", b.Size()),
		slog.Uint64("frames", r.encoded.Load()))

	r.mu.Lock()
	handlers := append([]DataHandler(nil), r.handlers...)
	r.mu.Unlock()
	for _, h := range handlers {
		h(b)
	}
	r.result.resolve(b, nil)
}
