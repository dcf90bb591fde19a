// Package gateway binds the external real-time event source to the log
// stores. The platform client itself lives in another process; events
// reach this one as line-delimited JSON envelopes (see Feed) and are
// turned into records by the Ingestor.
package gateway

import "github.com/ayumu837/guildlog/internal/record"

// MessageEvent is the message-arrival callback payload delivered by the
// event source.
type MessageEvent struct {
	MessageID int64 `json:"message_id"`
	AuthorID  int64 `json:"author_id"`
	AuthorBot bool  `json:"author_bot"`
	ChannelID int64 `json:"channel_id"`
	GuildID   int64 `json:"guild_id"`
}

// VoiceSnapshot is one side of a voice-state transition: the channel the
// user occupies (nil when not connected) and the feature flags.
type VoiceSnapshot struct {
	Channel    *record.ChannelRef `json:"channel,omitempty"`
	SelfMute   bool               `json:"self_mute"`
	SelfDeaf   bool               `json:"self_deaf"`
	SelfStream bool               `json:"self_stream"`
	SelfVideo  bool               `json:"self_video"`
	AFK        bool               `json:"afk"`
}

// VoiceStateEvent is the voice-state-change callback payload. Before and
// After are consistent snapshots of the same user around one event.
type VoiceStateEvent struct {
	UserID  int64         `json:"user_id"`
	GuildID int64         `json:"guild_id"`
	Before  VoiceSnapshot `json:"before"`
	After   VoiceSnapshot `json:"after"`
}

// Handler consumes platform events. Implementations must not panic; a
// failed event is theirs to log and drop.
type Handler interface {
	HandleMessage(ev MessageEvent)
	HandleVoiceState(ev VoiceStateEvent)
}
