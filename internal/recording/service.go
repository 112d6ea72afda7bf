package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"noise-recorder/internal/blob"
	"noise-recorder/internal/capture"
	"noise-recorder/internal/download"
	"noise-recorder/internal/encoder"
	"noise-recorder/internal/platform/metrics"
	"noise-recorder/internal/render"
)

var (
	// ErrNotRecording is returned when stopping a session that already stopped.
	ErrNotRecording = errors.New("session is not recording")

	// ErrNotCompleted is returned when asking for the video of a session
	// that has not completed.
	ErrNotCompleted = errors.New("session has not completed")

	// ErrUnloaded is returned when asking for the video of an unloaded session.
	ErrUnloaded = errors.New("session has been unloaded")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("service closed")
)

// EncoderFactory returns a fresh encoder for each session.
type EncoderFactory func() (encoder.Encoder, error)

// Deps are the collaborators a Service wires into each session.
type Deps struct {
	Registry   *blob.Registry
	Trigger    *download.Trigger
	Scheduler  render.Scheduler
	NewEncoder EncoderFactory
	Log        *slog.Logger
	// Metrics may be nil to disable metric recording (e.g. in tests).
	Metrics *metrics.Metrics
}

// Service runs recording sessions: each Start behaves like one page load of
// the noise demo.
type Service struct {
	repo Repository
	deps Deps
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	live   map[SessionID]*session
	closed bool
}

// NewService returns a Service storing session state in repo.
func NewService(repo Repository, deps Deps, opts Options) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		repo:   repo,
		deps:   deps,
		opts:   opts.withDefaults(),
		ctx:    ctx,
		cancel: cancel,
		live:   make(map[SessionID]*session),
	}
}

// Options returns the effective session options.
func (s *Service) Options() Options { return s.opts }

// Start fills a fresh canvas black, starts the render loop and the recorder,
// and schedules the recorder to stop after the configured duration. When the
// recording arrives the download trigger runs once.
func (s *Service) Start(ctx context.Context) (SessionState, error) {
	if err := ctx.Err(); err != nil {
		return SessionState{}, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SessionState{}, ErrClosed
	}
	s.mu.Unlock()

	enc, err := s.deps.NewEncoder()
	if err != nil {
		return SessionState{}, fmt.Errorf("create encoder: %w", err)
	}

	id := SessionID(uuid.NewString())
	log := s.deps.Log.With(slog.String("session_id", string(id)))

	var onFrame func()
	if s.deps.Metrics != nil {
		onFrame = s.deps.Metrics.IncFramesRendered
	}
	sess := newSession(s.ctx, id, s.opts, s.deps.Scheduler, func(st *capture.Stream) *capture.Recorder {
		return capture.NewRecorder(st, enc, log)
	}, onFrame, log)
	sess.recorder.OnDataAvailable(func(b *blob.Blob) { s.finish(sess, b) })

	state := SessionState{
		ID:          id,
		Status:      StatusRecording,
		MimeType:    enc.MimeType(),
		StartedAt:   time.Now().UTC(),
		RenderState: render.Running.String(),
	}
	if err := s.repo.Create(state); err != nil {
		sess.teardown()
		return SessionState{}, err
	}

	if err := sess.start(s.opts.Duration); err != nil {
		s.markFailed(sess, err)
		close(sess.done)
		return SessionState{}, fmt.Errorf("start recording: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		// Close ran after the first check and cannot see this session.
		go s.watch(sess)
		sess.teardown()
		<-sess.done
		_ = s.repo.Update(id, func(st *SessionState) {
			st.Status = StatusUnloaded
			st.RenderState = render.Stopped.String()
		})
		return SessionState{}, ErrClosed
	}
	s.live[id] = sess
	s.mu.Unlock()
	go s.watch(sess)

	log.Info("session started",
		slog.String("mime_type", state.MimeType),
		slog.Int("width", s.opts.Width),
		slog.Int("height", s.opts.Height),
		slog.Duration("duration", s.opts.Duration))
	return state, nil
}

// finish is the data-available handler: it optionally stops rendering,
// publishes a preview URL, and triggers the download.
func (s *Service) finish(sess *session, b *blob.Blob) {
	if s.opts.StopRenderOnComplete {
		sess.loop.Stop()
	}

	preview := s.deps.Registry.CreateObjectURL(b)
	sess.setResult(preview, b)

	saved, err := s.deps.Trigger.Download(sess.ctx, b)
	now := time.Now().UTC()
	updateErr := s.repo.Update(sess.id, func(st *SessionState) {
		st.StoppedAt = &now
		st.PreviewURL = preview
		if err != nil {
			st.Status = StatusFailed
			st.Error = err.Error()
			return
		}
		st.Status = StatusCompleted
		st.Download = &Download{Filename: saved.Filename, Path: saved.Path, Size: saved.Size}
	})
	if updateErr != nil {
		sess.log.Error("update session failed", slog.String("error", updateErr.Error()))
	}

	if err != nil {
		sess.log.Error("download failed", slog.String("error", err.Error()))
		if s.deps.Metrics != nil {
			s.deps.Metrics.IncRecordingsFailed()
		}
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveRecording(b.Size())
		s.deps.Metrics.IncDownloads()
	}
}

// watch waits for the recording to settle and records the capture counters.
func (s *Service) watch(sess *session) {
	defer close(sess.done)

	_, err := sess.recorder.Result().Wait(context.Background())
	stats := sess.stream.Stats()
	if s.deps.Metrics != nil {
		s.deps.Metrics.AddCapture(stats.Captured, stats.Dropped)
	}
	if err != nil {
		s.markFailed(sess, err)
	}
	_ = s.repo.Update(sess.id, func(st *SessionState) {
		st.FramesCaptured = stats.Captured
		st.FramesDropped = stats.Dropped
		st.FramesEncoded = sess.recorder.FramesEncoded()
	})
}

func (s *Service) markFailed(sess *session, err error) {
	sess.log.Error("recording failed", slog.String("error", err.Error()))
	now := time.Now().UTC()
	_ = s.repo.Update(sess.id, func(st *SessionState) {
		if st.Status == StatusRecording {
			st.Status = StatusFailed
			st.Error = err.Error()
			st.StoppedAt = &now
		}
	})
	if s.deps.Metrics != nil {
		s.deps.Metrics.IncRecordingsFailed()
	}
}

// Get returns the session state with live render counters.
func (s *Service) Get(id SessionID) (SessionState, error) {
	st, ok := s.repo.Get(id)
	if !ok {
		return SessionState{}, ErrSessionNotFound
	}
	if sess := s.lookup(id); sess != nil {
		st.FramesRendered = sess.loop.Frames()
		st.RenderState = sess.loop.State().String()
	}
	return st, nil
}

// List returns all sessions, oldest first.
func (s *Service) List() []SessionState {
	states := s.repo.List()
	for i := range states {
		if sess := s.lookup(states[i].ID); sess != nil {
			states[i].FramesRendered = sess.loop.Frames()
			states[i].RenderState = sess.loop.State().String()
		}
	}
	return states
}

// Stop ends a recording early, cancelling the scheduled stop.
func (s *Service) Stop(id SessionID) error {
	sess := s.lookup(id)
	if sess == nil {
		if _, ok := s.repo.Get(id); ok {
			return ErrNotRecording
		}
		return ErrSessionNotFound
	}
	if sess.recorder.State() != capture.Recording {
		return ErrNotRecording
	}
	sess.stopNow()
	sess.log.Info("recording stopped early")
	return nil
}

// Wait blocks until the session's recording has settled and returns the
// final state.
func (s *Service) Wait(ctx context.Context, id SessionID) (SessionState, error) {
	sess := s.lookup(id)
	if sess != nil {
		select {
		case <-sess.done:
		case <-ctx.Done():
			return SessionState{}, ctx.Err()
		}
	}
	return s.Get(id)
}

// Video returns the finished recording and its download filename.
func (s *Service) Video(id SessionID) (*blob.Blob, string, error) {
	st, ok := s.repo.Get(id)
	if !ok {
		return nil, "", ErrSessionNotFound
	}
	if st.Status == StatusUnloaded {
		return nil, "", ErrUnloaded
	}
	sess := s.lookup(id)
	if st.Status != StatusCompleted || st.Download == nil || sess == nil {
		return nil, "", ErrNotCompleted
	}
	_, video := sess.result()
	if video == nil {
		return nil, "", ErrNotCompleted
	}
	return video, st.Download.Filename, nil
}

// Preview resolves the uuid part of a live object URL.
func (s *Service) Preview(blobID string) (*blob.Blob, bool) {
	return s.deps.Registry.ResolveID(blobID)
}

// Unload tears a session down: the render loop, stream and any unfinished
// recording stop, and the preview URL is revoked.
func (s *Service) Unload(id SessionID) error {
	s.mu.Lock()
	sess, ok := s.live[id]
	delete(s.live, id)
	s.mu.Unlock()
	if !ok {
		if _, exists := s.repo.Get(id); exists {
			return nil
		}
		return ErrSessionNotFound
	}

	sess.teardown()
	<-sess.done
	if preview, _ := sess.result(); preview != "" {
		s.deps.Registry.RevokeObjectURL(preview)
	}

	frames := sess.loop.Frames()
	_ = s.repo.Update(id, func(st *SessionState) {
		st.Status = StatusUnloaded
		st.PreviewURL = ""
		st.RenderState = render.Stopped.String()
		st.FramesRendered = frames
	})
	sess.log.Info("session unloaded", slog.Uint64("frames_rendered", frames))
	return nil
}

// LiveCount returns the number of sessions not yet unloaded.
func (s *Service) LiveCount() int {
	return s.repo.LiveCount()
}

// Close unloads every live session and rejects new ones.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	ids := make([]SessionID, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		_ = s.Unload(id)
	}
	s.cancel()
}

func (s *Service) lookup(id SessionID) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[id]
}
