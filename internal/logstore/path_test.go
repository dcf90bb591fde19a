package logstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayumu837/guildlog/internal/errors"
)

func TestResolve(t *testing.T) {
	tmpDir := t.TempDir()

	date := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)
	path, err := Resolve(tmpDir, date, "30", "20")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	expected := filepath.Join(tmpDir, "30", "20", "2024-06-10.json")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	// Intermediate directories exist, the file itself does not.
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("partition directory not created: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("partition file should not be created by Resolve")
	}
}

func TestResolveUsesTimestampZone(t *testing.T) {
	tmpDir := t.TempDir()

	// 2024-01-01T09:30+09:00 is 2024-01-01 in JST but 2023-12-31 in UTC.
	jst := time.FixedZone("JST", 9*60*60)
	date := time.Date(2024, 1, 1, 0, 30, 0, 0, jst)

	path, err := Resolve(tmpDir, date, "g")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if filepath.Base(path) != "2024-01-01.json" {
		t.Errorf("expected date in the timestamp's zone, got %s", filepath.Base(path))
	}
}

func TestResolveConcurrent(t *testing.T) {
	tmpDir := t.TempDir()
	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, 16)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Resolve(tmpDir, date, "30", "20"); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent resolve failed: %v", err)
	}
}

func TestListPartitionFiles(t *testing.T) {
	tmpDir := t.TempDir()

	paths := []string{
		filepath.Join(tmpDir, "30", "20", "2024-06-10.json"),
		filepath.Join(tmpDir, "30", "21", "2024-06-11.json"),
		filepath.Join(tmpDir, "31", "22", "2024-06-12.json"),
	}
	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("[]"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	// Non-partition files are not listed.
	if err := os.WriteFile(filepath.Join(tmpDir, "30", "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files, err := ListPartitionFiles(tmpDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(files) != 3 {
		t.Errorf("expected 3 files, got %d: %v", len(files), files)
	}
}

func TestListPartitionFilesMissingRoot(t *testing.T) {
	files, err := ListPartitionFiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("expected no error for missing root, got %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty list, got %v", files)
	}
}

func TestParsePartitionDate(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected time.Time
		hasError bool
	}{
		{
			name:     "valid",
			path:     "/data/30/20/2024-06-10.json",
			expected: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "bare filename",
			path:     "2024-01-31.json",
			expected: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{"wrong extension", "/data/2024-06-10.txt", time.Time{}, true},
		{"no date", "/data/notes.json", time.Time{}, true},
		{"short date", "/data/2024-6-1.json", time.Time{}, true},
		{"trailing junk", "/data/2024-06-10_old.json", time.Time{}, true},
		{"impossible date", "/data/2024-13-41.json", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, err := ParsePartitionDate(tt.path)

			if tt.hasError {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, errors.ErrBadPartitionName) {
					t.Errorf("expected bad partition name error, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !date.Equal(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, date)
			}
		})
	}
}
