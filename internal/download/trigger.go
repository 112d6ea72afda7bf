package download

import (
	"context"
	"log/slog"
	"time"

	"noise-recorder/internal/blob"
)

// Saved describes one completed download.
type Saved struct {
	Filename string
	Path     string
	Size     int
}

// Trigger saves blobs through a transient hidden link.
type Trigger struct {
	registry *blob.Registry
	doc      *Document
	locale   Locale
	now      func() time.Time
	log      *slog.Logger
}

// NewTrigger returns a Trigger using the en-US locale and the wall clock.
func NewTrigger(registry *blob.Registry, saver Saver, log *slog.Logger) *Trigger {
	return &Trigger{
		registry: registry,
		doc:      NewDocument(registry, saver),
		locale:   EnUS,
		now:      time.Now,
		log:      log,
	}
}

// WithClock replaces the time source used for filenames.
func (t *Trigger) WithClock(now func() time.Time) *Trigger {
	t.now = now
	return t
}

// WithLocale replaces the filename locale.
func (t *Trigger) WithLocale(loc Locale) *Trigger {
	t.locale = loc
	return t
}

// Document exposes the trigger's document, mainly for tests.
func (t *Trigger) Document() *Document { return t.doc }

// Download saves b under a timestamped filename. Every call is an
// independent download; the temporary object URL is revoked before return,
// whether or not saving succeeded.
func (t *Trigger) Download(ctx context.Context, b *blob.Blob) (Saved, error) {
	url := t.registry.CreateObjectURL(b)
	defer t.registry.RevokeObjectURL(url)

	a := &Anchor{
		Href:     url,
		Download: Filename(t.now(), t.locale, b.Type()),
		Hidden:   true,
	}
	t.doc.AppendChild(a)
	defer t.doc.RemoveChild(a)

	path, err := t.doc.Click(ctx, a)
	if err != nil {
		return Saved{}, err
	}
	t.log.Info("download saved",
		slog.String("filename", a.Download),
		slog.String("path", path),
		slog.Int("bytes", b.Size()))
	return Saved{Filename: a.Download, Path: path, Size: b.Size()}, nil
}
