// Package archive exports event-log partitions to Parquet for long-term
// storage. Partitions are deleted by the retention sweep; an archive
// taken before the sweep keeps the records queryable afterwards.
package archive

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/ayumu837/guildlog/internal/errors"
	"github.com/ayumu837/guildlog/internal/record"
)

// Options configures the Parquet output.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// CompressionLevel for algorithms that support it (zstd: 1-22)
	CompressionLevel int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default archive options.
func DefaultOptions() Options {
	return Options{
		Compression:      CompressionZstd,
		CompressionLevel: 3,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec. The level is
// honored for zstd; the other codecs are fixed-level.
func getCompression(ct CompressionType, level int) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &zstd.Codec{Level: zstdLevel(level)}
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// zstdLevel maps the numeric config level (1-22, zstd CLI convention)
// onto the encoder's named speed tiers.
func zstdLevel(level int) zstd.Level {
	switch {
	case level <= 0:
		return zstd.DefaultLevel
	case level <= 2:
		return zstd.SpeedFastest
	case level <= 5:
		return zstd.SpeedDefault
	case level <= 9:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// MessageRow represents an archived message in Parquet format.
type MessageRow struct {
	TimestampMs int64 `parquet:"timestamp_ms"`
	MessageID   int64 `parquet:"message_id"`
	UserID      int64 `parquet:"user_id"`
	ChannelID   int64 `parquet:"channel_id"`
	GuildID     int64 `parquet:"guild_id"`
}

// VoiceRow represents an archived voice-state transition in Parquet format.
type VoiceRow struct {
	TimestampMs int64  `parquet:"timestamp_ms"`
	UserID      int64  `parquet:"user_id"`
	Action      string `parquet:"action,zstd"`
	Mute        string `parquet:"mute,zstd"`
	Deaf        string `parquet:"deaf,zstd"`
	Stream      string `parquet:"stream,zstd"`
	Video       string `parquet:"video,zstd"`
	AFK         string `parquet:"afk,zstd"`
	GuildID     int64  `parquet:"guild_id"`
	ChannelID   int64  `parquet:"channel_id"`
}

// MessageToRow converts a Message record to a MessageRow.
func MessageToRow(m *record.Message) MessageRow {
	return MessageRow{
		TimestampMs: m.Timestamp.UnixMilli(),
		MessageID:   m.MessageID,
		UserID:      m.UserID,
		ChannelID:   m.ChannelID,
		GuildID:     m.GuildID,
	}
}

// VoiceToRow converts a VoiceState record to a VoiceRow.
func VoiceToRow(v *record.VoiceState) VoiceRow {
	return VoiceRow{
		TimestampMs: v.Timestamp.UnixMilli(),
		UserID:      v.UserID,
		Action:      string(v.Action),
		Mute:        string(v.Mute),
		Deaf:        string(v.Deaf),
		Stream:      string(v.Stream),
		Video:       string(v.Video),
		AFK:         string(v.AFK),
		GuildID:     v.GuildID,
		ChannelID:   v.ChannelID,
	}
}

// Writer writes archive rows of one record type to a Parquet file.
type Writer[R any] struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[R]
	rowCount int64
	closed   bool
}

// NewWriter creates a Parquet writer at path, creating parent
// directories as needed.
func NewWriter[R any](path string, opts Options) (*Writer[R], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create file")
	}

	writer := parquet.NewGenericWriter[R](f,
		parquet.Compression(getCompression(opts.Compression, opts.CompressionLevel)))

	return &Writer[R]{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends rows to the file.
func (w *Writer[R]) Write(rows []R) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return errors.Wrap(err, "write rows")
	}

	w.rowCount += int64(n)
	return nil
}

// Close flushes and closes the file.
func (w *Writer[R]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return errors.Wrap(err, "close writer")
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *Writer[R]) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *Writer[R]) Path() string {
	return w.path
}
