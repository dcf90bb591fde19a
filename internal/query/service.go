// Package query provides ad-hoc SQL over the persisted event logs. It
// attaches an in-memory DuckDB instance and reads the partition files
// directly, so queries always see what is on disk, including partitions
// written by an earlier run.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/ayumu837/guildlog/config"
	"github.com/ayumu837/guildlog/internal/errors"
	"github.com/ayumu837/guildlog/internal/logging"
)

// Options configures a query service.
type Options struct {
	// MessageRoot and VoiceRoot are the partition roots of the two logs.
	MessageRoot string
	VoiceRoot   string

	// MemoryLimit is passed to DuckDB, e.g. "1GB". Empty keeps the
	// engine default.
	MemoryLimit string

	// MaxRows caps the result size of ExecuteSQL.
	MaxRows int

	// Timeout bounds each query. Zero means no bound.
	Timeout time.Duration
}

// DefaultOptions returns options with the built-in limits and no roots.
func DefaultOptions() Options {
	return Options{
		MemoryLimit: config.DefaultQueryMemoryLimit,
		MaxRows:     config.DefaultQueryMaxRows,
		Timeout:     config.DefaultQueryTimeoutSec * time.Second,
	}
}

// Service runs SQL against the partition files.
type Service struct {
	mu sync.RWMutex

	opts Options
	db   *sql.DB
	log  *slog.Logger

	stats Stats
}

// Stats holds query counters.
type Stats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// Scope selects which partitions a count query reads. A zero ChannelID
// means every channel of the guild, including the no-channel bucket.
type Scope struct {
	GuildID   int64
	ChannelID int64

	// From and To bound the records by their stored timestamp.
	// Zero values leave the bound open.
	From time.Time
	To   time.Time
}

// UserCount is one user's message total.
type UserCount struct {
	UserID   int64
	Messages int64
}

// ActionCount is one voice action's total.
type ActionCount struct {
	Action string
	Count  int64
}

// New opens an in-memory DuckDB and applies the configured limits.
func New(opts Options) (*Service, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(err, "open duckdb")
	}

	if opts.MemoryLimit != "" {
		if _, err := db.Exec(fmt.Sprintf("SET memory_limit='%s'", opts.MemoryLimit)); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "set memory limit")
		}
	}

	return &Service{
		opts: opts,
		db:   db,
		log:  logging.Component("query"),
	}, nil
}

// Close releases the DuckDB instance.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// UserCounts counts stored messages per user inside the scope, most
// active user first.
func (s *Service) UserCounts(ctx context.Context, scope Scope) ([]UserCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.bound(ctx)
	defer cancel()

	query := `
		SELECT user_id, COUNT(*) AS messages
		FROM read_json_auto($1, format='array')
		WHERE ($2 OR datetime >= $3)
		  AND ($4 OR datetime < $5)
		GROUP BY user_id
		ORDER BY messages DESC, user_id
	`

	pattern := s.pattern(s.opts.MessageRoot, scope)
	if !anyPartitions(pattern) {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, query,
		pattern,
		scope.From.IsZero(), scope.From,
		scope.To.IsZero(), scope.To,
	)
	if err != nil {
		s.stats.Errors++
		return nil, errors.Wrap(err, "query user counts")
	}
	defer rows.Close()

	var results []UserCount
	for rows.Next() {
		var r UserCount
		if err := rows.Scan(&r.UserID, &r.Messages); err != nil {
			s.stats.Errors++
			return nil, errors.Wrap(err, "scan row")
		}
		results = append(results, r)
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))

	return results, rows.Err()
}

// ActionCounts counts stored voice transitions per action inside the
// scope, most frequent action first.
func (s *Service) ActionCounts(ctx context.Context, scope Scope) ([]ActionCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.bound(ctx)
	defer cancel()

	query := `
		SELECT action, COUNT(*) AS transitions
		FROM read_json_auto($1, format='array')
		WHERE ($2 OR datetime >= $3)
		  AND ($4 OR datetime < $5)
		GROUP BY action
		ORDER BY transitions DESC, action
	`

	pattern := s.pattern(s.opts.VoiceRoot, scope)
	if !anyPartitions(pattern) {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, query,
		pattern,
		scope.From.IsZero(), scope.From,
		scope.To.IsZero(), scope.To,
	)
	if err != nil {
		s.stats.Errors++
		return nil, errors.Wrap(err, "query action counts")
	}
	defer rows.Close()

	var results []ActionCount
	for rows.Next() {
		var r ActionCount
		if err := rows.Scan(&r.Action, &r.Count); err != nil {
			s.stats.Errors++
			return nil, errors.Wrap(err, "scan row")
		}
		results = append(results, r)
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))

	return results, rows.Err()
}

// ExecuteSQL runs a raw SQL statement and returns generic row maps,
// capped at the configured row limit. The message and voice partition
// globs are exposed to the statement as the `messages` and `voice`
// views, created lazily on the first call.
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.ensureViews(ctx); err != nil {
		s.log.Debug("partition views unavailable", "error", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.stats.Errors++
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		if s.opts.MaxRows > 0 && len(results) >= s.opts.MaxRows {
			s.log.Warn("result truncated", "max_rows", s.opts.MaxRows)
			break
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))

	return results, rows.Err()
}

// Stats returns a snapshot of the query counters.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// ensureViews creates the messages and voice views over the partition
// globs. Creation fails while a log has no partitions yet; callers retry
// on the next statement.
func (s *Service) ensureViews(ctx context.Context) error {
	for _, v := range []struct {
		name string
		root string
	}{
		{"messages", s.opts.MessageRoot},
		{"voice", s.opts.VoiceRoot},
	} {
		if v.root == "" {
			continue
		}
		glob := filepath.Join(v.root, "*", "*", "*"+config.PartitionExt)
		stmt := fmt.Sprintf(
			"CREATE OR REPLACE VIEW %s AS SELECT * FROM read_json_auto($1, format='array')", v.name)
		if _, err := s.db.ExecContext(ctx, stmt, glob); err != nil {
			return errors.Wrapf(err, "create view %s", v.name)
		}
	}
	return nil
}

// anyPartitions reports whether the glob matches at least one file, so
// an empty store reads as no rows rather than a DuckDB no-files error.
func anyPartitions(pattern string) bool {
	matches, err := filepath.Glob(pattern)
	return err == nil && len(matches) > 0
}

// pattern builds the partition glob for a scope under root.
func (s *Service) pattern(root string, scope Scope) string {
	channel := "*"
	if scope.ChannelID != 0 {
		channel = strconv.FormatInt(scope.ChannelID, 10)
	}
	return filepath.Join(root,
		strconv.FormatInt(scope.GuildID, 10),
		channel,
		"*"+config.PartitionExt)
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}
