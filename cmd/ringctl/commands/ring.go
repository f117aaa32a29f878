package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/haivivi/rtring/pkg/cli"
	"github.com/haivivi/rtring/pkg/kv"
	"github.com/haivivi/rtring/pkg/monitor"
	"github.com/haivivi/rtring/pkg/pump"
	"github.com/haivivi/rtring/pkg/ringbuf"
	"github.com/haivivi/rtring/pkg/ringstats"
	"github.com/haivivi/rtring/pkg/rtevent"
	"github.com/haivivi/rtring/pkg/snapshot"
	"github.com/haivivi/rtring/pkg/storage"
)

// ringHandle hides whether a context uses the heap or the stack ring.
type ringHandle struct {
	capacity    int
	setReporter func(ringbuf.Reporter)
	play        func(evs []rtevent.Event, read int) (playResult, error)
	snapshot    func() (ringbuf.Snapshot, error)
	bridge      func(stats *ringstats.Stats) pumpHandle
}

// pumpHandle is a Bridge over the ring of a ringHandle.
type pumpHandle struct {
	source monitor.Source
	run    func(ctx context.Context, cfg pump.Config, sink func(rtevent.Event) error) (pump.Result, error)
}

func newHandle[S ringbuf.State](e *ringbuf.Engine[S]) ringHandle {
	return ringHandle{
		capacity:    e.Cap(),
		setReporter: e.SetReporter,
		play: func(evs []rtevent.Event, read int) (playResult, error) {
			return play(e, evs, read)
		},
		snapshot: e.Snapshot,
		bridge: func(stats *ringstats.Stats) pumpHandle {
			b := pump.NewBridge(e, stats)
			return pumpHandle{
				source: b,
				run: func(ctx context.Context, cfg pump.Config, sink func(rtevent.Event) error) (pump.Result, error) {
					return pump.Run(ctx, b, cfg, sink)
				},
			}
		},
	}
}

// withRing builds the ring described by c and passes it to fn.
func withRing(c *cli.Context, fn func(h ringHandle) error) error {
	if c.Ring.Stack {
		rb := ringbuf.NewStack()
		return fn(newHandle(&rb.Engine))
	}
	rb, err := ringbuf.NewHeap(c.Ring.Capacity)
	if err != nil {
		return fmt.Errorf("create ring of %d bytes: %w", c.Ring.Capacity, err)
	}
	defer rb.DeleteBuffer()
	slog.Debug("ringctl: ring created", "ring", c.Ring.Name, "capacity", rb.Cap())
	return fn(newHandle(&rb.Engine))
}

// openStore opens the snapshot index and archive of c. The caller must
// call the returned close function.
func openStore(ctx context.Context, c *cli.Context) (*snapshot.Store, func() error, error) {
	var index kv.Store
	if c.Snapshot.IndexDir != "" {
		b, err := kv.NewBadger(kv.BadgerOptions{Dir: expandHome(c.Snapshot.IndexDir)})
		if err != nil {
			return nil, nil, err
		}
		index = b
	} else {
		slog.Warn("ringctl: no snapshot index_dir configured, snapshots are kept in memory only")
		index = kv.NewMemory()
	}

	archive, err := openArchive(ctx, c)
	if err != nil {
		index.Close()
		return nil, nil, err
	}
	return snapshot.NewStore(index, archive), index.Close, nil
}

func openArchive(_ context.Context, c *cli.Context) (storage.Archive, error) {
	if s := c.Archive.S3; s != nil && s.Bucket != "" {
		return storage.NewS3(newS3Client(s), s.Bucket, s.Prefix), nil
	}
	if c.Archive.Dir != "" {
		return storage.NewLocal(expandHome(c.Archive.Dir))
	}
	return nil, nil
}

// newS3Client builds a client from the context settings and the standard
// AWS_* credential variables.
func newS3Client(s *cli.S3Settings) *s3.Client {
	opts := s3.Options{
		Region:       s.Region,
		UsePathStyle: s.PathStyle,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
				if id == "" || secret == "" {
					return aws.Credentials{}, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
				}
				return aws.Credentials{
					AccessKeyID:     id,
					SecretAccessKey: secret,
					SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
					Source:          "environment",
				}, nil
			})),
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if s.Endpoint != "" {
		opts.BaseEndpoint = aws.String(s.Endpoint)
	}
	return s3.New(opts)
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
