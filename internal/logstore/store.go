// Package logstore implements a time-partitioned, append-only JSON store.
//
// One Store instance owns one directory subtree and one record kind. Every
// (key segments, calendar date) pair maps to a single partition file
// root/segs.../YYYY-MM-DD.json holding a pretty-printed JSON array of
// records in arrival order. Partitions are created lazily on first append
// and deleted whole by the retention sweep once their date is at least
// `lifetime` old.
//
// Appends are read-modify-write and serialized by a per-store mutex;
// cross-process writers to the same tree are not supported.
package logstore

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ayumu837/guildlog/config"
	"github.com/ayumu837/guildlog/internal/errors"
	"github.com/ayumu837/guildlog/internal/logging"
)

// Store is a generic append-only store of one record kind.
type Store[T any] struct {
	mu       sync.Mutex
	name     string
	root     string
	lifetime time.Duration
	log      *slog.Logger
}

// SweepResult holds the outcome of one retention sweep.
type SweepResult struct {
	// Deleted lists the partition files removed, in walk order.
	Deleted []string

	// Skipped counts files whose name did not parse as a partition date.
	Skipped int

	// Errors collects per-file failures; a failed file never aborts
	// the rest of the sweep.
	Errors []error
}

// New creates a store rooted at root. Records older than lifetime
// (compared by calendar date) become eligible for deletion.
func New[T any](name, root string, lifetime time.Duration) *Store[T] {
	return &Store[T]{
		name:     name,
		root:     root,
		lifetime: lifetime,
		log:      logging.Component("logstore").With("store", name),
	}
}

// LifetimeFromDays converts a day count (fractional allowed) to a Duration.
func LifetimeFromDays(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}

// Name returns the store's name, used in logs and sweep reporting.
func (s *Store[T]) Name() string {
	return s.name
}

// Root returns the directory subtree this store owns.
func (s *Store[T]) Root() string {
	return s.root
}

// Append loads the partition for ts's date and the given key segments,
// appends record at the end, and rewrites the file. It returns the path
// written. A corrupt existing partition is a fatal error for the append;
// it is never silently replaced with a fresh list.
func (s *Store[T]) Append(record T, ts time.Time, segs ...string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := Resolve(s.root, ts, segs...)
	if err != nil {
		return "", err
	}

	records, err := s.loadFile(path)
	if err != nil {
		return "", err
	}

	records = append(records, record)

	data, err := Encode(records)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, config.FileMode); err != nil {
		return "", errors.Wrap(err, "write partition")
	}

	return path, nil
}

// Load returns the ordered records of the partition for ts's date and the
// given key segments. An untouched partition yields an empty list.
func (s *Store[T]) Load(ts time.Time, segs ...string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := Resolve(s.root, ts, segs...)
	if err != nil {
		return nil, err
	}

	return s.loadFile(path)
}

// SweepExpired walks every partition file under the store root and deletes
// those whose date is at least `lifetime` before today. A partition dated
// exactly `lifetime` days ago IS deleted. Files whose name does not parse
// as a partition date are skipped with a warning, never deleted.
func (s *Store[T]) SweepExpired(today time.Time) SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result SweepResult

	files, err := ListPartitionFiles(s.root)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return result
	}

	y, m, d := today.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	for _, path := range files {
		date, err := ParsePartitionDate(path)
		if err != nil {
			result.Skipped++
			s.log.Warn("skipping unrecognized file", "path", path, "error", err)
			continue
		}

		if midnight.Sub(date) < s.lifetime {
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, errors.Wrapf(err, "delete %s", path))
			continue
		}

		result.Deleted = append(result.Deleted, path)
	}

	return result
}

// loadFile decodes one partition file. Absent file means empty partition;
// anything else that fails is an error. Callers hold s.mu.
func (s *Store[T]) loadFile(path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read partition")
	}

	return Decode[T](data, path)
}
