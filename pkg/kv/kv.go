// Package kv is the small ordered key-value layer used to index ring
// snapshots. Keys are paths of segments, e.g. Key{"snapshot", "synth", id},
// stored as "snapshot/synth/<id>". Scans return entries in key order.
//
// Badger backs on-disk indexes; Memory is used by tests and one-shot
// commands.
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("kv: not found")

	// ErrInvalidKey is returned for an empty key, an empty segment or a
	// segment containing the separator.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Separator joins key segments in the encoded form.
const Separator = '/'

// Key is a path of segments.
type Key []string

func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

// Entry is a key with its value.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is an ordered key-value store.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// DeleteAll removes keys in one transaction.
	DeleteAll(ctx context.Context, keys []Key) error

	// Scan yields the entries below prefix in key order. An empty prefix
	// scans everything.
	Scan(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	Close() error
}

// encode validates k and returns its stored form.
func encode(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, ErrInvalidKey
	}
	for _, seg := range k {
		if seg == "" || strings.IndexByte(seg, Separator) >= 0 {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidKey, seg)
		}
	}
	return []byte(k.String()), nil
}

// scanPrefix returns the encoded prefix of the keys below k, including the
// trailing separator so that "a/b" does not match "a/bc/..".
func scanPrefix(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, nil
	}
	p, err := encode(k)
	if err != nil {
		return nil, err
	}
	return append(p, Separator), nil
}

func decode(b []byte) Key {
	return strings.Split(string(b), string(Separator))
}
