// Package blob holds immutable binary payloads and the temporary object URLs
// that reference them.
package blob

import (
	"bytes"
)

// Blob is an immutable byte payload tagged with a MIME type.
type Blob struct {
	data []byte
	typ  string
}

// New concatenates parts into a new Blob. The parts are copied.
func New(parts [][]byte, typ string) *Blob {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	data := make([]byte, 0, n)
	for _, p := range parts {
		data = append(data, p...)
	}
	return &Blob{data: data, typ: typ}
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int { return len(b.data) }

// Type returns the MIME type.
func (b *Blob) Type() string { return b.typ }

// Bytes returns a copy of the payload.
func (b *Blob) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// NewReader returns a reader over the payload without copying it.
func (b *Blob) NewReader() *bytes.Reader {
	return bytes.NewReader(b.data)
}
