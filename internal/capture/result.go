package capture

import (
	"context"
	"sync"

	"noise-recorder/internal/blob"
)

// Result is resolved exactly once with the encoded recording or an error.
type Result struct {
	once sync.Once
	done chan struct{}
	blob *blob.Blob
	err  error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

// resolve reports whether this call settled the result.
func (r *Result) resolve(b *blob.Blob, err error) bool {
	settled := false
	r.once.Do(func() {
		r.blob, r.err = b, err
		close(r.done)
		settled = true
	})
	return settled
}

// Done is closed once the result is settled.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result settles or ctx is done.
func (r *Result) Wait(ctx context.Context) (*blob.Blob, error) {
	select {
	case <-r.done:
		return r.blob, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
