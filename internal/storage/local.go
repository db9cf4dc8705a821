package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalPublisher copies exports into a directory tree, typically a mounted
// share. Keys become relative paths below the root.
type LocalPublisher struct {
	root string
}

// NewLocalPublisher creates root if needed
func NewLocalPublisher(root string) (*LocalPublisher, error) {
	if root == "" {
		return nil, ErrNotConfigured
	}
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create publish directory: %w", err)
	}
	return &LocalPublisher{root: root}, nil
}

// Root returns the target directory
func (p *LocalPublisher) Root() string {
	return p.root
}

// Publish writes data to root/key. The file appears atomically: data goes
// to a temporary file in the same directory which is then renamed.
func (p *LocalPublisher) Publish(ctx context.Context, key string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	dest := filepath.Join(p.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", key, err)
	}

	return dest, nil
}
