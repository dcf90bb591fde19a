package gateway

import (
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ayumu837/guildlog/internal/logging"
	"github.com/ayumu837/guildlog/internal/logstore"
	"github.com/ayumu837/guildlog/internal/record"
)

// Ingestor turns platform events into records and appends them to the
// per-kind stores. Append failures are logged and the event's record is
// dropped; the event loop never dies on a bad event.
type Ingestor struct {
	messages *logstore.Store[record.Message]
	voice    *logstore.Store[record.VoiceState]
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger

	stats stats
}

type stats struct {
	MessagesLogged atomic.Int64
	VoiceLogged    atomic.Int64
	BotsSkipped    atomic.Int64
	Errors         atomic.Int64
}

// IngestStats is a point-in-time snapshot of ingestion counters.
type IngestStats struct {
	MessagesLogged int64
	VoiceLogged    int64
	BotsSkipped    int64
	Errors         int64
}

// NewIngestor creates an ingestor writing message records to messages and
// voice-state records to voice. Record timestamps are taken at event
// arrival in loc.
func NewIngestor(messages *logstore.Store[record.Message], voice *logstore.Store[record.VoiceState], loc *time.Location) *Ingestor {
	return &Ingestor{
		messages: messages,
		voice:    voice,
		loc:      loc,
		now:      time.Now,
		log:      logging.Component("ingest"),
	}
}

// HandleMessage logs one chat message arrival. Messages authored by
// automated accounts are discarded without side effects.
func (g *Ingestor) HandleMessage(ev MessageEvent) {
	if ev.AuthorBot {
		g.stats.BotsSkipped.Add(1)
		g.log.Debug("bot author, not logging",
			"message_id", ev.MessageID, "author_id", ev.AuthorID)
		return
	}

	now := g.now().In(g.loc)
	rec := record.Message{
		Timestamp: now,
		MessageID: ev.MessageID,
		UserID:    ev.AuthorID,
		ChannelID: ev.ChannelID,
		GuildID:   ev.GuildID,
	}

	log := logging.WithPartition(g.log, rec.GuildID, rec.ChannelID)

	path, err := g.messages.Append(rec, now, formatID(rec.GuildID), formatID(rec.ChannelID))
	if err != nil {
		g.stats.Errors.Add(1)
		log.Error("message record dropped", "message_id", ev.MessageID, "error", err)
		return
	}

	g.stats.MessagesLogged.Add(1)
	log.Debug("message logged", "file", path, "message_id", ev.MessageID)
}

// HandleVoiceState classifies one voice-state transition and logs it.
func (g *Ingestor) HandleVoiceState(ev VoiceStateEvent) {
	now := g.now().In(g.loc)
	rec := record.VoiceState{
		Timestamp: now,
		UserID:    ev.UserID,
		Action:    record.ClassifyPresence(ev.Before.Channel, ev.After.Channel),
		Mute:      record.ClassifyFeature(ev.Before.SelfMute, ev.After.SelfMute),
		Deaf:      record.ClassifyFeature(ev.Before.SelfDeaf, ev.After.SelfDeaf),
		Stream:    record.ClassifyFeature(ev.Before.SelfStream, ev.After.SelfStream),
		Video:     record.ClassifyFeature(ev.Before.SelfVideo, ev.After.SelfVideo),
		AFK:       record.ClassifyFeature(ev.Before.AFK, ev.After.AFK),
		GuildID:   ev.GuildID,
		ChannelID: record.ResolveChannelID(ev.Before.Channel, ev.After.Channel),
	}

	log := logging.WithPartition(g.log, rec.GuildID, rec.ChannelID)

	path, err := g.voice.Append(rec, now, formatID(rec.GuildID), formatID(rec.ChannelID))
	if err != nil {
		g.stats.Errors.Add(1)
		log.Error("voice state record dropped", "user_id", ev.UserID, "error", err)
		return
	}

	g.stats.VoiceLogged.Add(1)
	log.Debug("voice state logged",
		"file", path, "user_id", ev.UserID, "action", rec.Action)
}

// Stats returns current ingestion statistics.
func (g *Ingestor) Stats() IngestStats {
	return IngestStats{
		MessagesLogged: g.stats.MessagesLogged.Load(),
		VoiceLogged:    g.stats.VoiceLogged.Load(),
		BotsSkipped:    g.stats.BotsSkipped.Load(),
		Errors:         g.stats.Errors.Load(),
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
