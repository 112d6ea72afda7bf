package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"noise-recorder/internal/blob"
	"noise-recorder/internal/platform/logger"
)

type fakeSource struct {
	w, h int
}

func (s fakeSource) Width() int  { return s.w }
func (s fakeSource) Height() int { return s.h }
func (s fakeSource) Snapshot() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, s.w, s.h))
}

// fakeEncoder records calls and returns a fixed payload.
type fakeEncoder struct {
	mu         sync.Mutex
	began      bool
	width      int
	height     int
	fps        float64
	timestamps []time.Duration
	ended      int
	beginErr   error
	frameErr   error
	delay      time.Duration
}

func (e *fakeEncoder) Begin(w, h int, fps float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.beginErr != nil {
		return e.beginErr
	}
	e.began, e.width, e.height, e.fps = true, w, h, fps
	return nil
}

func (e *fakeEncoder) EncodeFrame(_ image.Image, ts time.Duration) error {
	time.Sleep(e.delay)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frameErr != nil {
		return e.frameErr
	}
	e.timestamps = append(e.timestamps, ts)
	return nil
}

func (e *fakeEncoder) End() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ended++
	return []byte("encoded"), nil
}

func (e *fakeEncoder) MimeType() string { return "video/mp4" }

func (e *fakeEncoder) frames() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Duration(nil), e.timestamps...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStream_delivers_frames(t *testing.T) {
	s := NewStream(fakeSource{4, 2}, 200)
	defer s.Stop()

	ch := s.Subscribe(4)
	var last uint64
	for i := 0; i < 3; i++ {
		select {
		case f := <-ch:
			if f.Seq <= last {
				t.Fatalf("sequence not increasing: %d after %d", f.Seq, last)
			}
			last = f.Seq
			if f.Image.Rect.Dx() != 4 || f.Image.Rect.Dy() != 2 {
				t.Fatalf("unexpected frame size %v", f.Image.Rect)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no frame delivered")
		}
	}
	st := s.Stats()
	if st.Captured < 3 || !st.Live || st.FPS != 200 || st.Width != 4 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestStream_drops_for_slow_subscriber(t *testing.T) {
	s := NewStream(fakeSource{1, 1}, 500)
	defer s.Stop()

	s.Subscribe(1)
	waitFor(t, func() bool { return s.Stats().Dropped > 0 })
}

func TestStream_Stop_closes_subscribers(t *testing.T) {
	s := NewStream(fakeSource{1, 1}, 100)
	ch := s.Subscribe(1)
	s.Stop()
	s.Stop()

	for range ch {
	}
	if s.Stats().Live {
		t.Error("stopped stream reports live")
	}
	if _, ok := <-s.Subscribe(1); ok {
		t.Error("subscribing to a stopped stream should yield a closed channel")
	}
}

func TestRecorder_delivers_once_after_stop(t *testing.T) {
	s := NewStream(fakeSource{8, 6}, 200)
	defer s.Stop()
	enc := &fakeEncoder{}
	r := NewRecorder(s, enc, logger.Discard())

	var mu sync.Mutex
	var delivered []*blob.Blob
	r.OnDataAvailable(func(b *blob.Blob) {
		mu.Lock()
		delivered = append(delivered, b)
		mu.Unlock()
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.State() != Recording {
		t.Fatalf("state = %v, want recording", r.State())
	}
	if enc.width != 8 || enc.height != 6 || enc.fps != 200 {
		t.Errorf("encoder began with %dx%d@%v", enc.width, enc.height, enc.fps)
	}

	waitFor(t, func() bool { return len(enc.frames()) >= 3 })

	select {
	case <-r.Result().Done():
		t.Fatal("result resolved before stop")
	default:
	}
	mu.Lock()
	if len(delivered) != 0 {
		t.Fatal("data delivered before stop")
	}
	mu.Unlock()

	r.Stop()
	r.Stop()
	b, err := r.Result().Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if string(b.Bytes()) != "encoded" || b.Type() != "video/mp4" {
		t.Errorf("unexpected blob %q %q", b.Bytes(), b.Type())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || delivered[0] != b {
		t.Errorf("expected exactly one delivery of the result blob, got %d", len(delivered))
	}
	if enc.ended != 1 {
		t.Errorf("encoder ended %d times", enc.ended)
	}
	if r.State() != Stopped {
		t.Errorf("state = %v, want stopped", r.State())
	}
	if r.FramesEncoded() != uint64(len(enc.frames())) {
		t.Errorf("FramesEncoded = %d, encoder saw %d", r.FramesEncoded(), len(enc.frames()))
	}
}

func TestRecorder_timestamps_relative_to_first_frame(t *testing.T) {
	s := NewStream(fakeSource{1, 1}, 100)
	defer s.Stop()
	enc := &fakeEncoder{}
	r := NewRecorder(s, enc, logger.Discard())
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(enc.frames()) >= 3 })
	r.Stop()
	r.Result().Wait(context.Background())

	ts := enc.frames()
	if ts[0] != 0 {
		t.Errorf("first timestamp = %v, want 0", ts[0])
	}
	for i := 1; i < len(ts); i++ {
		if ts[i] <= ts[i-1] {
			t.Errorf("timestamp %d (%v) not after %v", i, ts[i], ts[i-1])
		}
	}
}

func TestRecorder_Start_twice(t *testing.T) {
	s := NewStream(fakeSource{1, 1}, 100)
	defer s.Stop()
	r := NewRecorder(s, &fakeEncoder{}, logger.Discard())
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrRecorderState) {
		t.Errorf("second Start = %v, want ErrRecorderState", err)
	}
	r.Stop()
	r.Result().Wait(context.Background())
}

func TestRecorder_Stop_before_Start_is_noop(t *testing.T) {
	s := NewStream(fakeSource{1, 1}, 100)
	defer s.Stop()
	r := NewRecorder(s, &fakeEncoder{}, logger.Discard())
	r.Stop()
	if r.State() != Inactive {
		t.Errorf("state = %v, want inactive", r.State())
	}
}

func TestRecorder_begin_error(t *testing.T) {
	s := NewStream(fakeSource{1, 1}, 100)
	defer s.Stop()
	r := NewRecorder(s, &fakeEncoder{beginErr: errors.New("boom")}, logger.Discard())
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if r.State() != Inactive {
		t.Errorf("state = %v, want inactive", r.State())
	}
}

func TestRecorder_encode_error_resolves_with_error(t *testing.T) {
	s := NewStream(fakeSource{1, 1}, 200)
	defer s.Stop()
	frameErr := errors.New("encoder rejected frame")
	r := NewRecorder(s, &fakeEncoder{frameErr: frameErr}, logger.Discard())

	called := false
	r.OnDataAvailable(func(*blob.Blob) { called = true })
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := r.Result().Wait(ctx); !errors.Is(err, frameErr) {
		t.Errorf("Wait = %v, want wrapped frame error", err)
	}
	if called {
		t.Error("data handler ran for a failed recording")
	}
}

func TestRecorder_context_cancel(t *testing.T) {
	s := NewStream(fakeSource{1, 1}, 100)
	defer s.Stop()
	r := NewRecorder(s, &fakeEncoder{}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if _, err := r.Result().Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}

func TestResult_Wait_honours_context(t *testing.T) {
	res := newResult()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := res.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
	if !res.resolve(nil, nil) {
		t.Error("first resolve should settle")
	}
	if res.resolve(nil, errors.New("late")) {
		t.Error("second resolve must not settle")
	}
	if _, err := res.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v, want nil", err)
	}
}

func TestRecorderState_String(t *testing.T) {
	for s, want := range map[RecorderState]string{Inactive: "inactive", Recording: "recording", Stopped: "stopped"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestRecorder_Stop_encodes_buffered_frames(t *testing.T) {
	s := NewStream(fakeSource{2, 2}, 100)
	defer s.Stop()
	enc := &fakeEncoder{delay: 30 * time.Millisecond}
	r := NewRecorder(s, enc, logger.Discard())

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Let the encoder fall behind so the subscription buffer fills.
	time.Sleep(300 * time.Millisecond)
	r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := r.Result().Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// Captured counts frames that reached the recorder's buffer; the stream
	// has no other subscriber and samples nothing once unsubscribed.
	delivered := s.Stats().Captured
	if delivered == 0 {
		t.Fatal("no frames delivered")
	}
	if got := r.FramesEncoded(); got != delivered {
		t.Errorf("encoded %d of %d delivered frames", got, delivered)
	}
	if got := uint64(len(enc.frames())); got != delivered {
		t.Errorf("encoder saw %d frames, want %d", got, delivered)
	}
}
