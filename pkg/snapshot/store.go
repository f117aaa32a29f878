package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/rtring/pkg/kv"
	"github.com/haivivi/rtring/pkg/storage"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("snapshot: not found")

// Store indexes records in a kv.Store under {"snapshot", ring, id}, and
// optionally exports them to an archive as "<ring>/<id>.msgpack".
type Store struct {
	kv      kv.Store
	archive storage.Archive
}

// NewStore returns a Store on index. archive may be nil when export is not
// needed.
func NewStore(index kv.Store, archive storage.Archive) *Store {
	return &Store{kv: index, archive: archive}
}

func recordKey(ring, id string) kv.Key { return kv.Key{"snapshot", ring, id} }

// Info summarises a record without its data.
type Info struct {
	ID          string    `json:"id" yaml:"id"`
	Ring        string    `json:"ring" yaml:"ring"`
	TakenAt     time.Time `json:"taken_at" yaml:"taken_at"`
	Capacity    int       `json:"capacity" yaml:"capacity"`
	Readable    int       `json:"readable" yaml:"readable"`
	Invalidated bool      `json:"invalidated" yaml:"invalidated"`
}

// Info returns the summary of r.
func (r *Record) Info() Info {
	return Info{
		ID:          r.ID,
		Ring:        r.Ring,
		TakenAt:     r.TakenAt,
		Capacity:    r.Capacity,
		Readable:    r.Readable(),
		Invalidated: r.Invalidated,
	}
}

// Save stores r.
func (s *Store) Save(ctx context.Context, r Record) error {
	b, err := Encode(r)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, recordKey(r.Ring, r.ID), b); err != nil {
		return fmt.Errorf("snapshot: save %s/%s: %w", r.Ring, r.ID, err)
	}
	slog.Debug("snapshot: saved", "ring", r.Ring, "id", r.ID, "bytes", len(b))
	return nil
}

// Get loads one record.
func (s *Store) Get(ctx context.Context, ring, id string) (Record, error) {
	b, err := s.kv.Get(ctx, recordKey(ring, id))
	if errors.Is(err, kv.ErrNotFound) {
		return Record{}, fmt.Errorf("%w: %s/%s", ErrNotFound, ring, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("snapshot: get %s/%s: %w", ring, id, err)
	}
	return Decode(b)
}

// List returns the records of ring, oldest first. An empty ring lists every
// ring. Entries that fail to decode are skipped.
func (s *Store) List(ctx context.Context, ring string) ([]Info, error) {
	prefix := kv.Key{"snapshot"}
	if ring != "" {
		prefix = append(prefix, ring)
	}
	var out []Info
	for e, err := range s.kv.Scan(ctx, prefix) {
		if err != nil {
			return nil, fmt.Errorf("snapshot: list: %w", err)
		}
		var r Record
		if err := msgpack.Unmarshal(e.Value, &r); err != nil {
			slog.Warn("snapshot: skipping undecodable entry", "key", e.Key.String(), "err", err)
			continue
		}
		out = append(out, r.Info())
	}
	return out, nil
}

// Latest returns the most recent record of ring.
func (s *Store) Latest(ctx context.Context, ring string) (Record, error) {
	infos, err := s.List(ctx, ring)
	if err != nil {
		return Record{}, err
	}
	if len(infos) == 0 {
		return Record{}, fmt.Errorf("%w: no records for %s", ErrNotFound, ring)
	}
	return s.Get(ctx, ring, infos[len(infos)-1].ID)
}

// Delete removes one record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, ring, id string) error {
	return s.kv.Delete(ctx, recordKey(ring, id))
}

// Prune deletes all but the newest keep records of ring and returns how
// many were deleted.
func (s *Store) Prune(ctx context.Context, ring string, keep int) (int, error) {
	infos, err := s.List(ctx, ring)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(infos) <= keep {
		return 0, nil
	}
	old := infos[:len(infos)-keep]
	keys := make([]kv.Key, len(old))
	for i, info := range old {
		keys[i] = recordKey(info.Ring, info.ID)
	}
	if err := s.kv.DeleteAll(ctx, keys); err != nil {
		return 0, fmt.Errorf("snapshot: prune %s: %w", ring, err)
	}
	return len(old), nil
}

// ArchiveName returns the archive file name of a record.
func ArchiveName(ring, id string) string {
	return ring + "/" + id + ".msgpack"
}

// Export copies a stored record to the archive and returns its name.
func (s *Store) Export(ctx context.Context, ring, id string) (string, error) {
	if s.archive == nil {
		return "", errors.New("snapshot: no archive configured")
	}
	b, err := s.kv.Get(ctx, recordKey(ring, id))
	if errors.Is(err, kv.ErrNotFound) {
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, ring, id)
	}
	if err != nil {
		return "", err
	}
	name := ArchiveName(ring, id)
	if err := s.archive.Put(ctx, name, b); err != nil {
		return "", err
	}
	slog.Debug("snapshot: exported", "name", name)
	return name, nil
}

// Import reads an archived record, verifies it and saves it in the index.
func (s *Store) Import(ctx context.Context, name string) (Record, error) {
	if s.archive == nil {
		return Record{}, errors.New("snapshot: no archive configured")
	}
	b, err := s.archive.Get(ctx, name)
	if err != nil {
		return Record{}, err
	}
	r, err := Decode(b)
	if err != nil {
		return Record{}, fmt.Errorf("snapshot: import %s: %w", name, err)
	}
	if err := s.Save(ctx, r); err != nil {
		return Record{}, err
	}
	return r, nil
}
