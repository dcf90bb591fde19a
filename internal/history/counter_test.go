package history

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ayumu837/guildlog/internal/errors"
)

type fakeSource struct {
	members  []Member
	messages map[int64][]ChannelMessage // by channel id
}

func (f *fakeSource) Members(ctx context.Context, guildID int64) ([]Member, error) {
	return f.members, nil
}

func (f *fakeSource) EachMessage(ctx context.Context, channelID int64, after, before time.Time, fn func(ChannelMessage) error) error {
	for _, m := range f.messages[channelID] {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		members: []Member{
			{ID: 1, DisplayName: "alice"},
			{ID: 2, DisplayName: "bob"},
			{ID: 3, DisplayName: "carol"},
			{ID: 9, DisplayName: "botto", Bot: true},
		},
		messages: map[int64][]ChannelMessage{
			20: {
				{AuthorID: 2}, {AuthorID: 2}, {AuthorID: 2},
				{AuthorID: 1},
				{AuthorID: 9, AuthorBot: true}, // bot: not counted
				{AuthorID: 77},                 // left the guild: not counted
			},
			21: {
				{AuthorID: 1}, {AuthorID: 1},
			},
		},
	}
}

func TestCount(t *testing.T) {
	c := NewCounter(newFakeSource(), time.UTC)

	result, err := c.Count(context.Background(), CountRequest{
		GuildID: 30,
		Channels: []Channel{
			{ID: 20, Name: "general"},
			{ID: 21, Name: "random"},
		},
		After:          "2024/01/01",
		Before:         "2024-06-10",
		GuildCreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows (bots excluded), got %d", len(result.Rows))
	}

	// Sorted descending by the first channel's count.
	expected := []struct {
		name   string
		counts []int
	}{
		{"bob", []int{3, 0}},
		{"alice", []int{1, 2}},
		{"carol", []int{0, 0}},
	}

	for i, want := range expected {
		row := result.Rows[i]
		if row.Member.DisplayName != want.name {
			t.Errorf("row %d: expected %s, got %s", i, want.name, row.Member.DisplayName)
			continue
		}
		for j, n := range want.counts {
			if row.Counts[j] != n {
				t.Errorf("row %d (%s): channel %d expected %d, got %d",
					i, want.name, j, n, row.Counts[j])
			}
		}
	}

	// Both selector formats parsed.
	if !result.After.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("after mismatch: %v", result.After)
	}
	if !result.Before.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("before mismatch: %v", result.Before)
	}
}

func TestCountDefaults(t *testing.T) {
	c := NewCounter(newFakeSource(), time.UTC)
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	created := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := c.Count(context.Background(), CountRequest{
		GuildID:        30,
		Channels:       []Channel{{ID: 20, Name: "general"}},
		GuildCreatedAt: created,
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	if !result.Before.Equal(now) {
		t.Errorf("before should default to now, got %v", result.Before)
	}
	if !result.After.Equal(created) {
		t.Errorf("after should default to guild creation, got %v", result.After)
	}
}

func TestCountValidation(t *testing.T) {
	c := NewCounter(newFakeSource(), time.UTC)

	if _, err := c.Count(context.Background(), CountRequest{GuildID: 30}); err == nil {
		t.Error("expected error for empty channel selection")
	}

	_, err := c.Count(context.Background(), CountRequest{
		GuildID:  30,
		Channels: []Channel{{ID: 20, Name: "general"}},
		Before:   "June 10th",
	})
	if !errors.Is(err, errors.ErrBadDate) {
		t.Errorf("expected bad date error, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		input    string
		hasError bool
	}{
		{"2024/06/10", false},
		{"2024-06-10", false},
		{"2024.06.10", true},
		{"yesterday", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input, jst)

			if tt.hasError {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expected := time.Date(2024, 6, 10, 0, 0, 0, 0, jst)
			if !got.Equal(expected) {
				t.Errorf("expected %v, got %v", expected, got)
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	c := NewCounter(newFakeSource(), time.UTC)

	result, err := c.Count(context.Background(), CountRequest{
		GuildID: 30,
		Channels: []Channel{
			{ID: 20, Name: "general"},
			{ID: 21, Name: "random"},
		},
		After:          "2024-01-01",
		Before:         "2024-06-10",
		GuildCreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	var buf strings.Builder
	if err := result.WriteCSV(&buf); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "user,general,random" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "bob,3,0" {
		t.Errorf("unexpected first row: %s", lines[1])
	}
}

func TestFilename(t *testing.T) {
	r := &Result{
		After:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Before: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	}

	if got := r.Filename(); got != "message_history_count_20240101_20240610.csv" {
		t.Errorf("unexpected filename: %s", got)
	}
}

func TestSummary(t *testing.T) {
	c := NewCounter(newFakeSource(), time.UTC)

	result, err := c.Count(context.Background(), CountRequest{
		GuildID:        30,
		Channels:       []Channel{{ID: 20, Name: "general"}},
		After:          "2024-01-01",
		Before:         "2024-06-10",
		GuildCreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	summary := result.Summary()
	for _, want := range []string{"2024-01-01 ~ 2024-06-10", "users: 3", "messages: 4", "p50/p90/p99"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q: %s", want, summary)
		}
	}
}
