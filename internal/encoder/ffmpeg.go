package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// stderrLimit caps how much ffmpeg diagnostic output is kept for errors.
const stderrLimit = 4096

// FFmpeg pipes raw RGBA frames into an external ffmpeg process that encodes
// H.264 into a fragmented MP4 on stdout. Frames are treated as constant rate;
// their timestamps are not forwarded.
type FFmpeg struct {
	path string

	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stdout bytes.Buffer
	stderr tailBuffer
	width  int
	height int
	frame  *image.RGBA
}

// NewFFmpeg returns an encoder running the ffmpeg binary at path
// (looked up in PATH when it has no separator). Empty means "ffmpeg".
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path}
}

// MimeType implements Encoder.
func (e *FFmpeg) MimeType() string { return "video/mp4" }

// Args returns the ffmpeg command line for the given geometry.
func (e *FFmpeg) Args(width, height int, fps float64) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"-f", "mp4",
		"pipe:1",
	}
}

// Begin implements Encoder by starting ffmpeg.
func (e *FFmpeg) Begin(width, height int, fps float64) error {
	if e.cmd != nil {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, e.path, e.Args(width, height, fps)...)
	cmd.Stdout = &e.stdout
	cmd.Stderr = &e.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("cannot start ffmpeg: %w", err)
	}

	e.cmd = cmd
	e.cancel = cancel
	e.stdin = stdin
	e.width = width
	e.height = height
	e.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

// EncodeFrame implements Encoder.
func (e *FFmpeg) EncodeFrame(img image.Image, _ time.Duration) error {
	if e.cmd == nil {
		return ErrNotStarted
	}
	pix := e.rawFrame(img)
	if _, err := e.stdin.Write(pix); err != nil {
		e.cancel()
		return fmt.Errorf("write frame to ffmpeg: %w: %s", err, e.stderr.String())
	}
	return nil
}

// End implements Encoder by closing stdin and waiting for ffmpeg to exit.
func (e *FFmpeg) End() ([]byte, error) {
	if e.cmd == nil {
		return nil, ErrNotStarted
	}
	defer e.cancel()
	closeErr := e.stdin.Close()
	waitErr := e.cmd.Wait()
	e.cmd = nil
	if waitErr != nil {
		return nil, fmt.Errorf("ffmpeg exited: %w: %s", waitErr, e.stderr.String())
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close ffmpeg stdin: %w", closeErr)
	}
	return e.stdout.Bytes(), nil
}

// rawFrame returns tightly packed RGBA bytes of exactly width*height*4.
func (e *FFmpeg) rawFrame(img image.Image) []byte {
	if rgba, ok := img.(*image.RGBA); ok &&
		rgba.Rect.Dx() == e.width && rgba.Rect.Dy() == e.height &&
		rgba.Stride == e.width*4 && rgba.Rect.Min == (image.Point{}) {
		return rgba.Pix
	}
	draw.Draw(e.frame, e.frame.Rect, img, img.Bounds().Min, draw.Src)
	return e.frame.Pix
}

// tailBuffer keeps the last stderrLimit bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > stderrLimit {
		t.buf = t.buf[len(t.buf)-stderrLimit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
