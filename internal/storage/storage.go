// Package storage publishes finished exports to a shared location: a local
// or mounted directory, or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
)

// ErrNotConfigured is returned when no publish target is set
var ErrNotConfigured = errors.New("no publish target configured")

// Publisher stores one object and returns where it ended up
type Publisher interface {
	Publish(ctx context.Context, key string, data io.Reader) (location string, err error)
}

// PublishFiles publishes each file under prefix, keyed by its base name.
// A failure does not stop the remaining files; all errors are returned
// together. The locations of the successful uploads are returned in order.
func PublishFiles(ctx context.Context, p Publisher, prefix string, paths []string) ([]string, error) {
	if p == nil {
		return nil, ErrNotConfigured
	}

	var (
		mErr      *multierror.Error
		locations []string
	)
	for _, file := range paths {
		if err := ctx.Err(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("context cancelled: %w", err))
			break
		}

		loc, err := publishFile(ctx, p, Key(prefix, file), file)
		if err != nil {
			mErr = multierror.Append(mErr, err)
			continue
		}
		locations = append(locations, loc)
	}
	return locations, mErr.ErrorOrNil()
}

// Key joins prefix and the file's base name with forward slashes
func Key(prefix, file string) string {
	return path.Join(prefix, filepath.Base(file))
}

func publishFile(ctx context.Context, p Publisher, key, file string) (string, error) {
	f, err := os.Open(file) // #nosec G304 - export paths are built by this program
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	loc, err := p.Publish(ctx, key, f)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", file, err)
	}
	return loc, nil
}
