package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"noise-recorder/internal/blob"
)

// Saver persists a downloaded blob under name and returns its location.
type Saver interface {
	Save(ctx context.Context, name string, b *blob.Blob) (string, error)
}

// DirSaver writes downloads into a directory, creating it on demand.
type DirSaver struct {
	Dir string
}

// Save implements Saver. The name is passed through SafeName first; an
// existing file of the same name is replaced.
func (s DirSaver) Save(ctx context.Context, name string, b *blob.Blob) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	safe := SafeName(name)
	if safe == "" || safe == "." || safe == ".." {
		return "", fmt.Errorf("invalid download name %q", name)
	}
	path := filepath.Join(s.Dir, safe)

	// Write to a temp file and rename so a partial download is never visible.
	tmp, err := os.CreateTemp(s.Dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	_, err = io.Copy(tmp, b.NewReader())
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write download: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("finalize download: %w", err)
	}
	return path, nil
}
