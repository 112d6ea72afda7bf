// Package encoder turns a sequence of captured frames into a media container.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"
)

// Encoder kinds accepted by New.
const (
	KindMP4    = "mp4"
	KindWebM   = "webm"
	KindFFmpeg = "ffmpeg"
)

// DefaultJPEGQuality is used for MJPEG samples when Options.Quality is unset.
const DefaultJPEGQuality = 80

var (
	// ErrUnknownEncoder is returned by New for an unsupported kind.
	ErrUnknownEncoder = errors.New("unknown encoder")

	// ErrNotStarted is returned when frames arrive before Begin or after End.
	ErrNotStarted = errors.New("encoder not started")

	// ErrAlreadyStarted is returned when Begin is called twice.
	ErrAlreadyStarted = errors.New("encoder already started")
)

// Encoder produces a complete media file from frames.
type Encoder interface {
	// Begin prepares a container for frames of the given size and nominal rate.
	Begin(width, height int, fps float64) error

	// EncodeFrame appends img, presented at timestamp relative to the first frame.
	EncodeFrame(img image.Image, timestamp time.Duration) error

	// End finalises the container and returns its bytes.
	End() ([]byte, error)

	// MimeType is the container type of the bytes End returns.
	MimeType() string
}

// Options tunes the encoder built by New.
type Options struct {
	// Quality is the JPEG quality (1-100) for MJPEG-based containers.
	Quality int
	// FFmpegPath is the ffmpeg executable used by the ffmpeg encoder.
	FFmpegPath string
}

// New returns an encoder of the given kind.
func New(kind string, opts Options) (Encoder, error) {
	switch kind {
	case KindMP4, "":
		return NewMP4(opts.Quality), nil
	case KindWebM:
		return NewWebM(opts.Quality), nil
	case KindFFmpeg:
		return NewFFmpeg(opts.FFmpegPath), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoder, kind)
	}
}

// Kinds lists the accepted encoder kinds.
func Kinds() []string {
	return []string{KindMP4, KindWebM, KindFFmpeg}
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeQuality(q int) int {
	if q <= 0 || q > 100 {
		return DefaultJPEGQuality
	}
	return q
}
