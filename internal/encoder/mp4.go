package encoder

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mp4"
)

const (
	mp4TrackID   = 1
	mp4TimeScale = 90000
)

// MP4 writes Motion JPEG samples into a fragmented MP4: one init segment
// followed by one moof/mdat fragment per frame.
type MP4 struct {
	quality int
	fps     float64
	out     bytes.Buffer
	started bool
	seq     uint32

	// A sample's duration is only known once the next frame arrives.
	pending    *fmp4.Sample
	pendingDTS uint64
}

// NewMP4 returns a fragmented MP4 encoder using JPEG quality q.
func NewMP4(q int) *MP4 {
	return &MP4{quality: normalizeQuality(q)}
}

// MimeType implements Encoder.
func (e *MP4) MimeType() string { return "video/mp4" }

// Begin implements Encoder by writing the init segment.
func (e *MP4) Begin(width, height int, fps float64) error {
	if e.started {
		return ErrAlreadyStarted
	}
	init := &fmp4.Init{
		Tracks: []*fmp4.InitTrack{
			{
				ID:        mp4TrackID,
				TimeScale: mp4TimeScale,
				Codec: &mp4.CodecMJPEG{
					Width:  width,
					Height: height,
				},
			},
		},
	}
	if err := e.marshal(init); err != nil {
		return fmt.Errorf("failed to marshal init segment: %w", err)
	}
	e.fps = fps
	e.seq = 1
	e.started = true
	return nil
}

// EncodeFrame implements Encoder.
func (e *MP4) EncodeFrame(img image.Image, timestamp time.Duration) error {
	if !e.started {
		return ErrNotStarted
	}
	payload, err := encodeJPEG(img, e.quality)
	if err != nil {
		return err
	}

	dts := toTimescale(timestamp)
	if e.pending != nil {
		if dts <= e.pendingDTS {
			// Timestamps must advance; nudge by one tick.
			dts = e.pendingDTS + 1
		}
		e.pending.Duration = uint32(dts - e.pendingDTS)
		if err := e.flush(); err != nil {
			return err
		}
	}
	e.pending = &fmp4.Sample{Payload: payload}
	e.pendingDTS = dts
	return nil
}

// End implements Encoder. The last frame is held for one nominal frame period.
func (e *MP4) End() ([]byte, error) {
	if !e.started {
		return nil, ErrNotStarted
	}
	e.started = false
	if e.pending != nil {
		e.pending.Duration = e.frameDuration()
		if err := e.flush(); err != nil {
			return nil, err
		}
	}
	return e.out.Bytes(), nil
}

func (e *MP4) flush() error {
	part := &fmp4.Part{
		SequenceNumber: e.seq,
		Tracks: []*fmp4.PartTrack{
			{
				ID:       mp4TrackID,
				BaseTime: e.pendingDTS,
				Samples:  []*fmp4.Sample{e.pending},
			},
		},
	}
	if err := e.marshal(part); err != nil {
		return fmt.Errorf("failed to marshal fragment %d: %w", e.seq, err)
	}
	e.seq++
	e.pending = nil
	return nil
}

func (e *MP4) frameDuration() uint32 {
	if e.fps <= 0 {
		return mp4TimeScale / 30
	}
	return uint32(float64(mp4TimeScale) / e.fps)
}

type marshaler interface {
	Marshal(w io.WriteSeeker) error
}

func (e *MP4) marshal(m marshaler) error {
	var buf seekablebuffer.Buffer
	if err := m.Marshal(&buf); err != nil {
		return err
	}
	e.out.Write(buf.Bytes())
	return nil
}

func toTimescale(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d) * mp4TimeScale / uint64(time.Second)
}
