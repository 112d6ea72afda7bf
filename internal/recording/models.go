package recording

import "time"

// SessionID uniquely identifies one recording session (one "page load").
type SessionID string

// Status is the lifecycle stage of a session.
type Status string

const (
	// StatusRecording means frames are still being encoded.
	StatusRecording Status = "recording"
	// StatusCompleted means the recording was delivered and downloaded.
	StatusCompleted Status = "completed"
	// StatusFailed means encoding or the download failed.
	StatusFailed Status = "failed"
	// StatusUnloaded means the session was torn down.
	StatusUnloaded Status = "unloaded"
)

// Download describes the file saved for a completed session.
type Download struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int    `json:"size"`
}

// SessionState is the externally visible record of a session.
type SessionState struct {
	ID        SessionID  `json:"id"`
	Status    Status     `json:"status"`
	MimeType  string     `json:"mime_type"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`

	// RenderState is "running" while the render loop reschedules itself.
	RenderState    string `json:"render_state"`
	FramesRendered uint64 `json:"frames_rendered"`
	FramesCaptured uint64 `json:"frames_captured"`
	FramesEncoded  uint64 `json:"frames_encoded"`
	FramesDropped  uint64 `json:"frames_dropped"`

	// PreviewURL is the object URL of the finished recording, kept live
	// until the session is unloaded.
	PreviewURL string    `json:"preview_url,omitempty"`
	Download   *Download `json:"download,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// clone returns a deep copy safe to hand out of the repository.
func (s *SessionState) clone() SessionState {
	out := *s
	if s.StoppedAt != nil {
		t := *s.StoppedAt
		out.StoppedAt = &t
	}
	if s.Download != nil {
		d := *s.Download
		out.Download = &d
	}
	return out
}
