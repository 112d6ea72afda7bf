package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noise-recorder/internal/app"
	"noise-recorder/internal/platform/config"
	"noise-recorder/internal/platform/logger"
	"noise-recorder/internal/platform/metrics"
	"noise-recorder/internal/recording"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	settings := config.FromEnv()

	log := logger.New(settings.LogLevel, settings.LogFormat)
	met := metrics.New()

	a, err := app.New(settings, "http://localhost:"+settings.Port, log, met)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	h := recording.NewHandler(a.Service, log, met)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetLiveSessions(a.Service.LiveCount()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	addr := ":" + settings.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", settings.Port,
		"encoder", settings.Encoder,
		"download_dir", settings.DownloadDir,
		"stop_render_on_complete", settings.StopRenderOnComplete,
		"log_level", settings.LogLevel,
	)

	// Behave like the page being opened once.
	if settings.AutostartSession {
		if st, err := a.Service.Start(context.Background()); err != nil {
			log.Error("autostart session failed", "error", err)
		} else {
			log.Info("autostart session", "session_id", st.ID)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	a.Close()

	log.Info("server stopped")
}
