package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ayumu837/guildlog/internal/errors"
)

// FileSource serves history from a snapshot directory exported by the
// platform bridge: a members.json roster plus one <channelID>.json dump
// per channel, each a JSON array.
type FileSource struct {
	dir string
}

// NewFileSource creates a source over the snapshot directory.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

type fileMember struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Bot         bool   `json:"bot"`
}

type fileMessage struct {
	Timestamp time.Time `json:"datetime"`
	AuthorID  int64     `json:"user_id"`
	AuthorBot bool      `json:"author_bot"`
}

// Members reads the roster from members.json. The snapshot covers one
// guild, so guildID is not consulted.
func (s *FileSource) Members(ctx context.Context, guildID int64) ([]Member, error) {
	var raw []fileMember
	if err := s.readJSON("members.json", &raw); err != nil {
		return nil, err
	}

	members := make([]Member, len(raw))
	for i, m := range raw {
		members[i] = Member{ID: m.ID, DisplayName: m.DisplayName, Bot: m.Bot}
	}
	return members, nil
}

// EachMessage replays the channel's dump, bounded exclusively by
// (after, before) like the live history.
func (s *FileSource) EachMessage(ctx context.Context, channelID int64, after, before time.Time, fn func(ChannelMessage) error) error {
	var raw []fileMessage
	if err := s.readJSON(strconv.FormatInt(channelID, 10)+".json", &raw); err != nil {
		return err
	}

	for _, m := range raw {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !m.Timestamp.After(after) || !m.Timestamp.Before(before) {
			continue
		}
		if err := fn(ChannelMessage{AuthorID: m.AuthorID, AuthorBot: m.AuthorBot}); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSource) readJSON(name string, v interface{}) error {
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read snapshot %s", name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewCorruptPartition(path, err)
	}
	return nil
}
