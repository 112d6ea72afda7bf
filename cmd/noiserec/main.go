// Command noiserec records one noise clip and exits once it is saved.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"noise-recorder/internal/app"
	"noise-recorder/internal/encoder"
	"noise-recorder/internal/platform/config"
	"noise-recorder/internal/platform/logger"
	"noise-recorder/internal/recording"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "noiserec",
		Short:        "Record black-and-white noise to a video file",
		SilenceUsage: true,
	}
	root.AddCommand(newRecordCmd())
	return root
}

func newRecordCmd() *cobra.Command {
	_ = config.Load()
	defaults := config.FromEnv()

	var (
		settings = defaults
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Render noise, record it for five seconds, and save the download",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return record(ctx, cmd, settings)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&settings.DownloadDir, "out", "o", defaults.DownloadDir, "directory the video is saved to")
	f.StringVar(&settings.Encoder, "encoder", defaults.Encoder, fmt.Sprintf("container encoder %v", encoder.Kinds()))
	f.StringVar(&settings.FFmpegPath, "ffmpeg", defaults.FFmpegPath, "ffmpeg binary for the ffmpeg encoder")
	f.BoolVar(&settings.StopRenderOnComplete, "stop-render-on-complete", defaults.StopRenderOnComplete, "stop the render loop when the recording is delivered")
	f.StringVar(&settings.LogLevel, "log-level", defaults.LogLevel, "debug, info, warn or error")
	f.StringVar(&settings.LogFormat, "log-format", "text", "json or text")
	f.DurationVar(&timeout, "timeout", 30*time.Second, "give up if the recording has not been saved by then (0 disables)")
	return cmd
}

func record(ctx context.Context, cmd *cobra.Command, settings config.Settings) error {
	log := logger.NewWithWriter(cmd.ErrOrStderr(), settings.LogLevel, settings.LogFormat)

	a, err := app.New(settings, "null", log, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Service.Start(ctx)
	if err != nil {
		return err
	}
	final, err := a.Service.Wait(ctx, st.ID)
	if err != nil {
		return fmt.Errorf("waiting for recording: %w", err)
	}
	if final.Status != recording.StatusCompleted {
		return fmt.Errorf("recording %s: %s", final.Status, final.Error)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\t%s\n", final.Download.Path, final.Download.Size, final.Download.Filename)
	return nil
}
