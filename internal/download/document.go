package download

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"noise-recorder/internal/blob"
)

// ErrRevoked is returned when a link's object URL no longer resolves.
var ErrRevoked = errors.New("object url revoked or unknown")

// Anchor is a link element with a download attribute.
type Anchor struct {
	Href     string
	Download string
	Hidden   bool
}

// Document is the minimal DOM a download needs: a body that links can be
// appended to and removed from, and link activation that saves the linked
// blob under the link's download name.
type Document struct {
	registry *blob.Registry
	saver    Saver

	mu   sync.Mutex
	body []*Anchor
}

// NewDocument resolves hrefs through registry and saves through saver.
func NewDocument(registry *blob.Registry, saver Saver) *Document {
	return &Document{registry: registry, saver: saver}
}

// AppendChild adds a to the body.
func (d *Document) AppendChild(a *Anchor) {
	d.mu.Lock()
	d.body = append(d.body, a)
	d.mu.Unlock()
}

// RemoveChild removes a from the body if present.
func (d *Document) RemoveChild(a *Anchor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.body {
		if c == a {
			d.body = append(d.body[:i], d.body[i+1:]...)
			return
		}
	}
}

// Children returns the number of elements in the body.
func (d *Document) Children() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.body)
}

// Click activates a and returns where the file was saved.
func (d *Document) Click(ctx context.Context, a *Anchor) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, ok := d.registry.Resolve(a.Href)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRevoked, a.Href)
	}
	return d.saver.Save(ctx, a.Download, b)
}
