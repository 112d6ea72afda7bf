package app

import (
	"errors"
	"testing"

	"noise-recorder/internal/encoder"
	"noise-recorder/internal/platform/config"
	"noise-recorder/internal/platform/logger"
	"noise-recorder/internal/recording"
)

func TestNew_rejects_unknown_encoder(t *testing.T) {
	_, err := New(config.Settings{Encoder: "gif"}, "null", logger.Discard(), nil)
	if !errors.Is(err, encoder.ErrUnknownEncoder) {
		t.Errorf("expected ErrUnknownEncoder, got %v", err)
	}
}

func TestNew_wires_defaults(t *testing.T) {
	a, err := New(config.Settings{Encoder: "mp4", DownloadDir: t.TempDir(), StopRenderOnComplete: true}, "http://localhost", logger.Discard(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	opts := a.Service.Options()
	if opts.Width != recording.Width || opts.Height != recording.Height || opts.CaptureFPS != recording.CaptureFPS {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Duration != recording.RecordDuration || !opts.StopRenderOnComplete {
		t.Errorf("unexpected options %+v", opts)
	}
}
