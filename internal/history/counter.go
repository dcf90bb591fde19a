// Package history builds per-user message count reports from the
// platform's LIVE event history. It deliberately does not read the
// persisted log store: the report covers the full channel history, which
// is longer-lived than the store's retention window.
//
// The platform connection is an external collaborator reached through the
// Source interface.
package history

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayumu837/guildlog/internal/errors"
	"github.com/ayumu837/guildlog/internal/logging"
)

// Member is one guild member known to the platform.
type Member struct {
	ID          int64
	DisplayName string
	Bot         bool
}

// Channel is one text channel selected for the report.
type Channel struct {
	ID   int64
	Name string
}

// ChannelMessage is the slice of a live history message the counter needs.
type ChannelMessage struct {
	AuthorID  int64
	AuthorBot bool
}

// Source is the live platform history boundary.
type Source interface {
	// Members lists the members of a guild, bots included.
	Members(ctx context.Context, guildID int64) ([]Member, error)

	// EachMessage calls fn for every message sent to the channel inside
	// (after, before), in any order. Returning an error from fn stops
	// the iteration.
	EachMessage(ctx context.Context, channelID int64, after, before time.Time, fn func(ChannelMessage) error) error
}

// Date selector formats accepted by count requests, tried in order.
var dateFormats = []string{"2006/01/02", "2006-01-02"}

// ParseDate parses a report date selector in any accepted format,
// interpreted in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateFormats {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Wrapf(errors.ErrBadDate, "%q", s)
}

// CountRequest selects what to count. The first channel drives row
// ordering in the result. Before defaults to now; After defaults to the
// guild's creation time.
type CountRequest struct {
	GuildID        int64
	Channels       []Channel
	Before         string
	After          string
	GuildCreatedAt time.Time
}

// Row is one member's counts, parallel to Result.Channels.
type Row struct {
	Member Member
	Counts []int
}

// Result is one finished count report.
type Result struct {
	Channels []Channel
	After    time.Time
	Before   time.Time
	Rows     []Row
}

// Counter runs count reports against a Source.
type Counter struct {
	src Source
	loc *time.Location
	now func() time.Time
	log *slog.Logger
}

// NewCounter creates a counter. Date selectors and defaults are
// interpreted in loc.
func NewCounter(src Source, loc *time.Location) *Counter {
	return &Counter{
		src: src,
		loc: loc,
		now: time.Now,
		log: logging.Component("history"),
	}
}

// Count fetches each selected channel's history concurrently and returns
// one row per non-bot guild member (members without messages keep zero
// counts), sorted descending by the first channel's count. Messages from
// bots or from authors no longer in the guild are not counted.
func (c *Counter) Count(ctx context.Context, req CountRequest) (*Result, error) {
	if len(req.Channels) == 0 {
		return nil, errors.NewMissingField("channels")
	}

	before, after, err := c.resolveRange(req)
	if err != nil {
		return nil, err
	}

	members, err := c.src.Members(ctx, req.GuildID)
	if err != nil {
		return nil, errors.Wrap(err, "list members")
	}

	roster := make(map[int64]Member, len(members))
	for _, m := range members {
		if m.Bot {
			continue
		}
		roster[m.ID] = m
	}

	counts := make([]map[int64]int, len(req.Channels))

	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range req.Channels {
		c.log.Debug("fetch history", "channel_id", ch.ID, "channel", ch.Name)

		g.Go(func() error {
			perUser := make(map[int64]int, len(roster))
			err := c.src.EachMessage(gctx, ch.ID, after, before, func(msg ChannelMessage) error {
				if msg.AuthorBot {
					return nil
				}
				if _, ok := roster[msg.AuthorID]; !ok {
					return nil
				}
				perUser[msg.AuthorID]++
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "fetch history of channel %d", ch.ID)
			}
			counts[i] = perUser
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(roster))
	for _, m := range roster {
		row := Row{Member: m, Counts: make([]int, len(req.Channels))}
		for i := range req.Channels {
			row.Counts[i] = counts[i][m.ID]
		}
		rows = append(rows, row)
	}

	// Deterministic order: by first channel's count descending, member
	// id as the tie-break.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Counts[0] != rows[j].Counts[0] {
			return rows[i].Counts[0] > rows[j].Counts[0]
		}
		return rows[i].Member.ID < rows[j].Member.ID
	})

	return &Result{
		Channels: req.Channels,
		After:    after,
		Before:   before,
		Rows:     rows,
	}, nil
}

func (c *Counter) resolveRange(req CountRequest) (before, after time.Time, err error) {
	if req.Before == "" {
		before = c.now().In(c.loc)
	} else {
		before, err = ParseDate(req.Before, c.loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if req.After == "" {
		after = req.GuildCreatedAt.In(c.loc)
	} else {
		after, err = ParseDate(req.After, c.loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	return before, after, nil
}
