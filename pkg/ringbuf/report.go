package ringbuf

import (
	"context"
	"errors"
	"log/slog"
)

// Op identifies the engine operation that failed.
type Op uint8

const (
	OpRead Op = iota + 1
	OpWrite
	OpCommit
	OpClear
	OpCreate
	OpDelete
	OpCopy
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpCommit:
		return "commit"
	case OpClear:
		return "clear"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// Failure describes a failed operation. Size is the byte count involved, or
// the number of pending bytes discarded for a rolled back commit.
type Failure struct {
	Op   Op
	Size int
	Err  error
}

// Reporter receives every failure an engine encounters. Report is called
// synchronously from the failing side (possibly a real-time goroutine), so
// implementations should return quickly.
type Reporter interface {
	Report(f Failure)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(f Failure)

// Report calls fn(f).
func (fn ReporterFunc) Report(f Failure) { fn(f) }

// DiscardReporter drops all failures.
var DiscardReporter Reporter = ReporterFunc(func(Failure) {})

// defaultReporter is used by engines that had no reporter set.
var defaultReporter Reporter = LogReporter(nil)

// LogReporter returns a Reporter that logs failures to l, or to
// slog.Default() at report time when l is nil.
//
// Empty reads and rolled back commits are part of normal operation and are
// logged at debug level; everything else is logged as a warning.
func LogReporter(l *slog.Logger) Reporter {
	return ReporterFunc(func(f Failure) {
		logger := l
		if logger == nil {
			logger = slog.Default()
		}
		level := slog.LevelWarn
		if errors.Is(f.Err, ErrEmpty) || errors.Is(f.Err, ErrRolledBack) {
			level = slog.LevelDebug
		}
		ctx := context.Background()
		if !logger.Enabled(ctx, level) {
			return
		}
		logger.LogAttrs(ctx, level, "ringbuf: "+f.Op.String()+" failed",
			slog.Int("size", f.Size),
			slog.String("reason", f.Err.Error()),
		)
	})
}

// MultiReporter fans a failure out to every non-nil reporter.
func MultiReporter(rs ...Reporter) Reporter {
	list := make([]Reporter, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			list = append(list, r)
		}
	}
	return ReporterFunc(func(f Failure) {
		for _, r := range list {
			r.Report(f)
		}
	})
}
