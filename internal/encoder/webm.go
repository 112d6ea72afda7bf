package encoder

import (
	"bytes"
	"fmt"
	"image"
	"time"

	"github.com/at-wat/ebml-go/webm"
)

// WebM writes Motion JPEG blocks into a single-track WebM (Matroska) file.
// Block timestamps are in milliseconds, the default Matroska timecode scale.
type WebM struct {
	quality int
	out     *bufferCloser
	track   webm.BlockWriteCloser
}

// bufferCloser lets a bytes.Buffer act as the writer ebml-go closes on finish.
type bufferCloser struct {
	bytes.Buffer
}

func (b *bufferCloser) Close() error { return nil }

// NewWebM returns a WebM encoder using JPEG quality q.
func NewWebM(q int) *WebM {
	return &WebM{quality: normalizeQuality(q)}
}

// MimeType implements Encoder.
func (e *WebM) MimeType() string { return "video/webm" }

// Begin implements Encoder.
func (e *WebM) Begin(width, height int, fps float64) error {
	if e.track != nil {
		return ErrAlreadyStarted
	}
	var frameDur uint64
	if fps > 0 {
		frameDur = uint64(float64(time.Second) / fps)
	}

	out := &bufferCloser{}
	writers, err := webm.NewSimpleBlockWriter(out, []webm.TrackEntry{
		{
			Name:            "Video",
			TrackNumber:     1,
			TrackUID:        1,
			CodecID:         "V_MJPEG",
			TrackType:       1,
			DefaultDuration: frameDur,
			Video: &webm.Video{
				PixelWidth:  uint64(width),
				PixelHeight: uint64(height),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create webm writer: %w", err)
	}
	e.out = out
	e.track = writers[0]
	return nil
}

// EncodeFrame implements Encoder. Every MJPEG frame is a keyframe.
func (e *WebM) EncodeFrame(img image.Image, timestamp time.Duration) error {
	if e.track == nil {
		return ErrNotStarted
	}
	payload, err := encodeJPEG(img, e.quality)
	if err != nil {
		return err
	}
	if _, err := e.track.Write(true, timestamp.Milliseconds(), payload); err != nil {
		return fmt.Errorf("failed to write webm block: %w", err)
	}
	return nil
}

// End implements Encoder.
func (e *WebM) End() ([]byte, error) {
	if e.track == nil {
		return nil, ErrNotStarted
	}
	err := e.track.Close()
	e.track = nil
	if err != nil {
		return nil, fmt.Errorf("failed to finalize webm: %w", err)
	}
	return e.out.Bytes(), nil
}
