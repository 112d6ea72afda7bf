package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func solidFrame(w, h int, grey uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, image.NewUniform(color.RGBA{grey, grey, grey, 255}), image.Point{}, draw.Src)
	return img
}

// topLevelBoxes walks the ISO BMFF box headers of an MP4 file.
func topLevelBoxes(t *testing.T, b []byte) []string {
	t.Helper()
	var types []string
	for len(b) >= 8 {
		size := binary.BigEndian.Uint32(b[:4])
		if size < 8 || int(size) > len(b) {
			t.Fatalf("bad box size %d with %d bytes left", size, len(b))
		}
		types = append(types, string(b[4:8]))
		b = b[size:]
	}
	if len(b) != 0 {
		t.Fatalf("%d trailing bytes", len(b))
	}
	return types
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind string
		mime string
	}{
		{"", "video/mp4"},
		{KindMP4, "video/mp4"},
		{KindWebM, "video/webm"},
		{KindFFmpeg, "video/mp4"},
	}
	for _, tt := range tests {
		enc, err := New(tt.kind, Options{})
		if err != nil {
			t.Fatalf("New(%q): %v", tt.kind, err)
		}
		if enc.MimeType() != tt.mime {
			t.Errorf("New(%q).MimeType() = %q, want %q", tt.kind, enc.MimeType(), tt.mime)
		}
	}

	if _, err := New("gif", Options{}); !errors.Is(err, ErrUnknownEncoder) {
		t.Errorf("expected ErrUnknownEncoder, got %v", err)
	}
}

func TestMP4_fragments_per_frame(t *testing.T) {
	enc := NewMP4(0)
	if err := enc.Begin(32, 24, 15); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := enc.Begin(32, 24, 15); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Begin = %v, want ErrAlreadyStarted", err)
	}
	for i := 0; i < 3; i++ {
		ts := time.Duration(i) * time.Second / 15
		if err := enc.EncodeFrame(solidFrame(32, 24, uint8(i*80)), ts); err != nil {
			t.Fatalf("EncodeFrame %d: %v", i, err)
		}
	}
	out, err := enc.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}

	boxes := topLevelBoxes(t, out)
	want := []string{"ftyp", "moov", "moof", "mdat", "moof", "mdat", "moof", "mdat"}
	if len(boxes) != len(want) {
		t.Fatalf("boxes = %v, want %v", boxes, want)
	}
	for i := range want {
		if boxes[i] != want[i] {
			t.Errorf("box %d = %q, want %q", i, boxes[i], want[i])
		}
	}
	// Every mdat holds a JPEG.
	if n := bytes.Count(out, []byte{0xFF, 0xD8, 0xFF}); n < 3 {
		t.Errorf("expected 3 JPEG payloads, found %d SOI markers", n)
	}
}

func TestMP4_empty_recording(t *testing.T) {
	enc := NewMP4(90)
	if err := enc.Begin(8, 8, 15); err != nil {
		t.Fatal(err)
	}
	out, err := enc.End()
	if err != nil {
		t.Fatal(err)
	}
	boxes := topLevelBoxes(t, out)
	if len(boxes) != 2 || boxes[0] != "ftyp" || boxes[1] != "moov" {
		t.Errorf("boxes = %v, want init segment only", boxes)
	}
}

func TestMP4_requires_Begin(t *testing.T) {
	enc := NewMP4(0)
	if err := enc.EncodeFrame(solidFrame(4, 4, 0), 0); !errors.Is(err, ErrNotStarted) {
		t.Errorf("EncodeFrame = %v, want ErrNotStarted", err)
	}
	if _, err := enc.End(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("End = %v, want ErrNotStarted", err)
	}
}

func TestToTimescale(t *testing.T) {
	if got := toTimescale(time.Second); got != mp4TimeScale {
		t.Errorf("1s = %d ticks, want %d", got, mp4TimeScale)
	}
	if got := toTimescale(-time.Second); got != 0 {
		t.Errorf("negative = %d, want 0", got)
	}
	if got := NewMP4(0); got.quality != DefaultJPEGQuality {
		t.Errorf("default quality = %d", got.quality)
	}
}

func TestWebM_header_and_codec(t *testing.T) {
	enc := NewWebM(0)
	if err := enc.Begin(16, 16, 15); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := enc.EncodeFrame(solidFrame(16, 16, 128), time.Duration(i)*66*time.Millisecond); err != nil {
			t.Fatalf("EncodeFrame: %v", err)
		}
	}
	out, err := enc.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if !bytes.HasPrefix(out, []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		t.Errorf("missing EBML magic: % x", out[:min(4, len(out))])
	}
	if !bytes.Contains(out, []byte("webm")) || !bytes.Contains(out, []byte("V_MJPEG")) {
		t.Error("expected webm doctype and V_MJPEG codec id")
	}
	if _, err := enc.End(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("second End = %v, want ErrNotStarted", err)
	}
}

func TestFFmpeg_Args(t *testing.T) {
	args := NewFFmpeg("").Args(640, 480, 15)
	joined := strings.Join(args, " ")
	for _, want := range []string{"-s 640x480", "-r 15", "-pix_fmt rgba", "-f mp4", "pipe:1"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestFFmpeg_missing_binary(t *testing.T) {
	enc := NewFFmpeg("/nonexistent/ffmpeg")
	if err := enc.Begin(8, 8, 15); err == nil {
		t.Fatal("expected start error")
	}
	if err := enc.EncodeFrame(solidFrame(8, 8, 0), 0); !errors.Is(err, ErrNotStarted) {
		t.Errorf("EncodeFrame = %v, want ErrNotStarted", err)
	}
}

func TestFFmpeg_encodes(t *testing.T) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	enc := NewFFmpeg(path)
	if err := enc.Begin(32, 32, 15); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for i := 0; i < 15; i++ {
		if err := enc.EncodeFrame(solidFrame(32, 32, uint8(i*10)), 0); err != nil {
			t.Fatalf("EncodeFrame: %v", err)
		}
	}
	out, err := enc.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if len(out) < 8 || string(out[4:8]) != "ftyp" {
		t.Errorf("output does not start with ftyp")
	}
}

func TestFFmpeg_rawFrame_converts_subimages(t *testing.T) {
	enc := NewFFmpeg("")
	enc.width, enc.height = 2, 2
	enc.frame = image.NewRGBA(image.Rect(0, 0, 2, 2))

	big := solidFrame(4, 4, 50)
	sub := big.SubImage(image.Rect(1, 1, 3, 3))
	pix := enc.rawFrame(sub)
	if len(pix) != 16 || pix[0] != 50 || pix[3] != 255 {
		t.Errorf("unexpected raw frame %v", pix)
	}

	exact := solidFrame(2, 2, 7)
	if got := enc.rawFrame(exact); &got[0] != &exact.Pix[0] {
		t.Error("tightly packed RGBA should pass through without copying")
	}
}
