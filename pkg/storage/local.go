package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects under a directory served at publicBaseURL
type Local struct {
	root          string
	publicBaseURL string
}

// NewLocal creates a filesystem uploader rooted at dir
func NewLocal(dir, publicBaseURL string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("local storage path is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{root: dir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Upload writes body to root/key and returns its URL. Partial files are
// removed on failure.
func (l *Local) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	clean := filepath.Clean("/" + key)[1:]
	if clean == "" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	dst := filepath.Join(l.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, readerWithContext(ctx, body)); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return l.publicBaseURL + "/" + clean, nil
}

// Delete removes root/key
func (l *Local) Delete(ctx context.Context, key string) error {
	clean := filepath.Clean("/" + key)[1:]
	if clean == "" {
		return fmt.Errorf("invalid object key %q", key)
	}
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
