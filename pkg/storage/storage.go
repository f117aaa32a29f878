// Package storage archives exported files, such as encoded ring snapshots,
// on local disk or in an S3-compatible bucket.
//
// Names are slash separated and relative to the archive root, e.g.
// "synth/0192f1c2-....msgpack". Names must not be absolute or climb out of
// the root with "..".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// ErrInvalidName is returned for names that are empty, absolute or not
// clean.
var ErrInvalidName = errors.New("storage: invalid name")

// Archive stores whole files by name. Implementations are safe for
// concurrent use.
type Archive interface {
	// Put stores data under name, replacing an existing file.
	Put(ctx context.Context, name string, data []byte) error

	// Get returns the content of name. A missing file yields an error
	// matching fs.ErrNotExist.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes name. Deleting a missing file is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || path.Clean(name) != name ||
		name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func notExist(name string) error {
	return fmt.Errorf("storage: %s: %w", name, fs.ErrNotExist)
}
