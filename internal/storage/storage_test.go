package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPublisher records published objects and fails on keys in fail
type memPublisher struct {
	mu      sync.Mutex
	objects map[string]string
	fail    map[string]bool
}

func (m *memPublisher) Publish(_ context.Context, key string, data io.Reader) (string, error) {
	if m.fail[key] {
		return "", errors.New("refused")
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string]string)
	}
	m.objects[key] = string(b)
	return "mem://" + key, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		file   string
		want   string
	}{
		{"", "/data/rec1.dat", "rec1.dat"},
		{"lab/2026", "/data/rec1.dat", "lab/2026/rec1.dat"},
		{"lab/", "rec1.jpg", "lab/rec1.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.prefix, tt.file))
		})
	}
}

func TestPublishFiles(t *testing.T) {
	dir := t.TempDir()
	dat := writeFile(t, dir, "rec1.dat", "Subject\n")
	jpg := writeFile(t, dir, "rec1.jpg", "jpeg")

	p := &memPublisher{}
	locs, err := PublishFiles(context.Background(), p, "runs", []string{dat, jpg})
	require.NoError(t, err)

	assert.Equal(t, []string{"mem://runs/rec1.dat", "mem://runs/rec1.jpg"}, locs)
	assert.Equal(t, "Subject\n", p.objects["runs/rec1.dat"])
	assert.Equal(t, "jpeg", p.objects["runs/rec1.jpg"])
}

func TestPublishFilesCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.dat", "ok")
	bad := writeFile(t, dir, "bad.dat", "no")
	missing := filepath.Join(dir, "missing.dat")

	p := &memPublisher{fail: map[string]bool{"bad.dat": true}}
	locs, err := PublishFiles(context.Background(), p, "", []string{bad, missing, good})
	require.Error(t, err)

	// the good file still goes out
	assert.Equal(t, []string{"mem://good.dat"}, locs)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Contains(t, err.Error(), "publish "+bad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPublishFilesNilPublisher(t *testing.T) {
	_, err := PublishFiles(context.Background(), nil, "", []string{"x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPublishFilesCancelled(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "a.dat", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &memPublisher{}
	locs, err := PublishFiles(ctx, p, "", []string{f})
	assert.Empty(t, locs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.objects)
}

func TestLocalPublisher(t *testing.T) {
	root := filepath.Join(t.TempDir(), "share")
	p, err := NewLocalPublisher(root)
	require.NoError(t, err)
	assert.DirExists(t, root)

	loc, err := p.Publish(context.Background(), "lab/rec1.dat", strings.NewReader("intervals"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "lab", "rec1.dat"), loc)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "intervals", string(got))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(root, "lab"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalPublisherOverwrites(t *testing.T) {
	p, err := NewLocalPublisher(t.TempDir())
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), "a.txt", strings.NewReader("first"))
	require.NoError(t, err)
	loc, err := p.Publish(context.Background(), "a.txt", strings.NewReader("second"))
	require.NoError(t, err)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestLocalPublisherErrors(t *testing.T) {
	_, err := NewLocalPublisher("")
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err := NewLocalPublisher(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Publish(ctx, "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(p.Root(), "a.txt"))
}
