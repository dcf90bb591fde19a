package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/ayumu837/guildlog/internal/logstore"
	"github.com/ayumu837/guildlog/internal/record"
)

func TestMessageWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.parquet")

	now := time.Now().UnixMilli()
	rows := []MessageRow{
		{TimestampMs: now, MessageID: 100, UserID: 1, ChannelID: 20, GuildID: 30},
		{TimestampMs: now + 1000, MessageID: 101, UserID: 2, ChannelID: 21, GuildID: 30},
	}

	w, err := NewWriter[MessageRow](path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(rows); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if w.RowCount() != 2 {
		t.Errorf("expected 2 rows written, got %d", w.RowCount())
	}

	r, err := NewReader[MessageRow](path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0] != rows[0] || got[1] != rows[1] {
		t.Errorf("round trip mismatch: %+v vs %+v", got, rows)
	}
}

func TestWriterClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.parquet")

	w, err := NewWriter[MessageRow](path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	if err := w.Write([]MessageRow{{MessageID: 1}}); err == nil {
		t.Error("expected error writing to a closed writer")
	}
}

func TestVoiceToRow(t *testing.T) {
	v := record.VoiceState{
		Timestamp: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
		UserID:    1,
		Action:    record.ActionMove,
		Mute:      record.FeatureOn,
		Deaf:      record.FeatureOff,
		Stream:    record.FeatureTrigger,
		Video:     record.FeatureOff,
		AFK:       record.FeatureRelease,
		GuildID:   30,
		ChannelID: 21,
	}

	row := VoiceToRow(&v)
	if row.Action != "move" || row.Mute != "on" || row.Stream != "trigger" || row.AFK != "release" {
		t.Errorf("unexpected row: %+v", row)
	}
	if row.TimestampMs != v.Timestamp.UnixMilli() {
		t.Errorf("timestamp mismatch: %d", row.TimestampMs)
	}
}

func TestExportMessages(t *testing.T) {
	root := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "export.parquet")

	store := logstore.New[record.Message]("messages", root, logstore.LifetimeFromDays(14))

	ts := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	for i := int64(0); i < 3; i++ {
		rec := record.Message{
			Timestamp: ts.Add(time.Duration(i) * time.Minute),
			MessageID: 100 + i,
			UserID:    1,
			ChannelID: 20,
			GuildID:   30,
		}
		if _, err := store.Append(rec, rec.Timestamp, "30", "20"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	n, err := ExportMessages(root, outPath, DefaultOptions())
	if err != nil {
		t.Fatalf("ExportMessages: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows exported, got %d", n)
	}

	r, err := NewReader[MessageRow](outPath)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].MessageID != 100 || rows[0].GuildID != 30 {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
}

func TestExportCorruptPartitionAborts(t *testing.T) {
	root := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "export.parquet")

	dir := filepath.Join(root, "30", "20")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2024-06-10.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := ExportMessages(root, outPath, DefaultOptions()); err == nil {
		t.Fatal("expected error for corrupt partition")
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Error("partial output should have been removed")
	}
}

func TestZstdLevelApplied(t *testing.T) {
	levels := []struct {
		in   int
		want zstd.Level
	}{
		{0, zstd.DefaultLevel},
		{1, zstd.SpeedFastest},
		{3, zstd.SpeedDefault},
		{9, zstd.SpeedBetterCompression},
		{19, zstd.SpeedBestCompression},
	}
	for _, tt := range levels {
		if got := zstdLevel(tt.in); got != tt.want {
			t.Errorf("zstdLevel(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}

	codec, ok := getCompression(CompressionZstd, 19).(*zstd.Codec)
	if !ok {
		t.Fatal("expected a zstd codec")
	}
	if codec.Level != zstd.SpeedBestCompression {
		t.Errorf("configured level not applied: %v", codec.Level)
	}

	// A non-default level still round-trips.
	path := filepath.Join(t.TempDir(), "best.parquet")
	w, err := NewWriter[MessageRow](path, Options{Compression: CompressionZstd, CompressionLevel: 19})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write([]MessageRow{{MessageID: 1, GuildID: 30}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader[MessageRow](path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	rows, err := r.ReadAll()
	if err != nil || len(rows) != 1 || rows[0].MessageID != 1 {
		t.Fatalf("round trip failed: rows=%v err=%v", rows, err)
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		input    string
		expected CompressionType
	}{
		{"snappy", CompressionSnappy},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
		{"gzip", CompressionGzip},
		{"none", CompressionNone},
		{"", CompressionNone},
		{"bogus", CompressionZstd},
	}

	for _, tt := range tests {
		if got := ParseCompressionType(tt.input); got != tt.expected {
			t.Errorf("ParseCompressionType(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
