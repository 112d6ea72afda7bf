// Package app wires the recording service from resolved settings.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"noise-recorder/internal/blob"
	"noise-recorder/internal/download"
	"noise-recorder/internal/encoder"
	"noise-recorder/internal/platform/config"
	"noise-recorder/internal/platform/metrics"
	"noise-recorder/internal/recording"
	"noise-recorder/internal/render"
)

// App is a running recording service and the frame scheduler driving it.
type App struct {
	Service   *recording.Service
	Registry  *blob.Registry
	Scheduler *render.FrameScheduler

	cancel context.CancelFunc
	done   chan struct{}
}

// New validates settings, builds the service, and starts the frame
// scheduler. origin prefixes object URLs. m may be nil.
func New(s config.Settings, origin string, log *slog.Logger, m *metrics.Metrics) (*App, error) {
	// Fail fast on a bad encoder name instead of on the first session.
	if _, err := encoder.New(s.Encoder, encoder.Options{FFmpegPath: s.FFmpegPath}); err != nil {
		return nil, fmt.Errorf("RECORDER_ENCODER: %w", err)
	}

	registry := blob.NewRegistry(origin)
	sched := render.NewFrameScheduler(render.DefaultFrameInterval)

	opts := recording.DefaultOptions()
	opts.StopRenderOnComplete = s.StopRenderOnComplete

	svc := recording.NewService(recording.NewInMemoryRepository(), recording.Deps{
		Registry:  registry,
		Trigger:   download.NewTrigger(registry, download.DirSaver{Dir: s.DownloadDir}, log),
		Scheduler: sched,
		NewEncoder: func() (encoder.Encoder, error) {
			return encoder.New(s.Encoder, encoder.Options{FFmpegPath: s.FFmpegPath})
		},
		Log:     log,
		Metrics: m,
	}, opts)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Service:   svc,
		Registry:  registry,
		Scheduler: sched,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(a.done)
		sched.Run(ctx)
	}()
	return a, nil
}

// Close unloads all sessions and stops the frame scheduler.
func (a *App) Close() {
	a.Service.Close()
	a.cancel()
	<-a.done
}
