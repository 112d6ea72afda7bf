package recording

import (
	"context"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"noise-recorder/internal/blob"
	"noise-recorder/internal/canvas"
	"noise-recorder/internal/capture"
	"noise-recorder/internal/noise"
	"noise-recorder/internal/render"
	"noise-recorder/internal/schedule"
)

// Fixed demo geometry and timing.
const (
	Width          = 640
	Height         = 480
	CaptureFPS     = 15
	RecordDuration = 5000 * time.Millisecond
)

// Options controls how a session records. The zero value is completed by
// DefaultOptions.
type Options struct {
	Width      int
	Height     int
	CaptureFPS float64
	Duration   time.Duration

	// StopRenderOnComplete clears the render loop's capturing flag when the
	// recording is delivered. Off by default: the loop keeps drawing until
	// the session is unloaded.
	StopRenderOnComplete bool
}

// DefaultOptions returns the fixed 640x480, 15 fps, 5 s configuration.
func DefaultOptions() Options {
	return Options{
		Width:      Width,
		Height:     Height,
		CaptureFPS: CaptureFPS,
		Duration:   RecordDuration,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.CaptureFPS <= 0 {
		o.CaptureFPS = d.CaptureFPS
	}
	if o.Duration <= 0 {
		o.Duration = d.Duration
	}
	return o
}

// session is the live machinery behind one SessionState.
type session struct {
	id     SessionID
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	canvas   *canvas.Canvas
	gen      *noise.Generator
	loop     *render.Loop
	stream   *capture.Stream
	recorder *capture.Recorder
	stopTask *schedule.Task

	mu      sync.Mutex
	preview string
	video   *blob.Blob

	// done is closed once the final state has been written.
	done chan struct{}
}

// newSession builds the canvas, generator, render loop, stream and recorder
// for a page load. Nothing runs until start.
func newSession(ctx context.Context, id SessionID, opts Options, sched render.Scheduler, rec func(*capture.Stream) *capture.Recorder, onFrame func(), log *slog.Logger) *session {
	c := canvas.New(opts.Width, opts.Height)
	c.FillRect(0, 0, opts.Width, opts.Height, color.Black)

	gen := noise.NewGenerator(c, nil)
	draw := gen.DrawWhiteNoise
	if onFrame != nil {
		draw = func() {
			gen.DrawWhiteNoise()
			onFrame()
		}
	}

	sctx, cancel := context.WithCancel(ctx)
	stream := capture.NewStream(c, opts.CaptureFPS)
	return &session{
		id:       id,
		log:      log,
		ctx:      sctx,
		cancel:   cancel,
		canvas:   c,
		gen:      gen,
		loop:     render.NewLoop(sched, draw),
		stream:   stream,
		recorder: rec(stream),
		done:     make(chan struct{}),
	}
}

// start begins rendering and recording and arms the stop timer.
func (s *session) start(d time.Duration) error {
	s.loop.Start()
	if err := s.recorder.Start(s.ctx); err != nil {
		s.teardown()
		return err
	}
	s.stopTask = schedule.After(d, s.recorder.Stop)
	return nil
}

// stopNow cancels the timer and stops the recorder immediately.
func (s *session) stopNow() {
	if s.stopTask != nil {
		s.stopTask.Cancel()
	}
	s.recorder.Stop()
}

// teardown stops everything the session started.
func (s *session) teardown() {
	if s.stopTask != nil {
		s.stopTask.Cancel()
	}
	s.loop.Stop()
	s.cancel()
	s.stream.Stop()
}

func (s *session) setResult(preview string, video *blob.Blob) {
	s.mu.Lock()
	s.preview, s.video = preview, video
	s.mu.Unlock()
}

func (s *session) result() (preview string, video *blob.Blob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview, s.video
}
