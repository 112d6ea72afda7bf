package recording

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"noise-recorder/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler exposes session HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes mounts the session and blob endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Get("/", h.ListSessions)
		r.Route("/{session_id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.UnloadSession)
			r.Post("/stop", h.StopSession)
			r.Get("/download", h.DownloadVideo)
		})
	})
	r.Get("/blobs/{blob_id}", h.GetBlob)
}

// StartSession handles POST /sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Start(r.Context())
	if err != nil {
		if errors.Is(err, ErrClosed) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		h.log.Error("start session failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.refreshGauge()
	writeJSON(w, http.StatusCreated, st)
}

// ListSessions handles GET /sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.List())
}

// GetSession handles GET /sessions/{session_id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))
	st, err := h.svc.Get(id)
	if err != nil {
		h.writeError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// StopSession handles POST /sessions/{session_id}/stop.
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))
	if err := h.svc.Stop(id); err != nil {
		h.writeError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// UnloadSession handles DELETE /sessions/{session_id}.
func (h *Handler) UnloadSession(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))
	if err := h.svc.Unload(id); err != nil {
		h.writeError(w, id, err)
		return
	}
	h.refreshGauge()
	w.WriteHeader(http.StatusNoContent)
}

// DownloadVideo handles GET /sessions/{session_id}/download, serving the
// recording as an attachment under its timestamped filename.
func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))
	video, filename, err := h.svc.Video(id)
	if err != nil {
		h.writeError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", video.Type())
	w.Header().Set("Content-Length", strconv.Itoa(video.Size()))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := video.NewReader().WriteTo(w); err != nil {
		h.log.Debug("write video failed", slog.String("session_id", string(id)), slog.String("error", err.Error()))
	}
}

// GetBlob handles GET /blobs/{blob_id}, serving a live object URL.
func (h *Handler) GetBlob(w http.ResponseWriter, r *http.Request) {
	b, ok := h.svc.Preview(chi.URLParam(r, "blob_id"))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", b.Type())
	w.Header().Set("Content-Length", strconv.Itoa(b.Size()))
	w.WriteHeader(http.StatusOK)
	b.NewReader().WriteTo(w)
}

func (h *Handler) writeError(w http.ResponseWriter, id SessionID, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, ErrNotRecording), errors.Is(err, ErrNotCompleted):
		h.log.Info("session request conflicts with state",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, ErrUnloaded):
		w.WriteHeader(http.StatusGone)
	default:
		h.log.Error("session request failed",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h *Handler) refreshGauge() {
	if h.metrics != nil {
		h.metrics.SetLiveSessions(h.svc.LiveCount())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
