// Package record defines the immutable log record kinds and the pure
// classification of voice-state transitions.
//
// Records are fully populated at construction and never mutated afterwards;
// the store only ever appends them to a partition's list.
package record

import "time"

// NoChannelID is the sentinel channel identifier recorded when a voice
// event carries no channel on either side of the transition.
const NoChannelID int64 = -1

// ChannelRef identifies a channel by id, with an optional display name.
type ChannelRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// Action classifies a user's presence transition between voice channels.
type Action string

const (
	ActionUnknown Action = "unknown"
	ActionJoin    Action = "join"
	ActionLeave   Action = "leave"
	ActionMove    Action = "move"
	ActionStay    Action = "stay"
)

// FeatureState classifies one boolean feature flag transition
// (mute, deaf, stream, video, afk).
type FeatureState string

const (
	FeatureOff     FeatureState = "off"
	FeatureTrigger FeatureState = "trigger"
	FeatureOn      FeatureState = "on"
	FeatureRelease FeatureState = "release"
)

// Message is one logged chat message arrival.
type Message struct {
	Timestamp time.Time `json:"datetime"`
	MessageID int64     `json:"message_id"`
	UserID    int64     `json:"user_id"`
	ChannelID int64     `json:"channel_id"`
	GuildID   int64     `json:"guild_id"`
}

// VoiceState is one logged voice-state transition. Action covers presence;
// the five FeatureState fields cover the independent flag transitions.
// ChannelID is the channel relevant to the transition (after's channel when
// present, otherwise before's, otherwise NoChannelID).
type VoiceState struct {
	Timestamp time.Time    `json:"datetime"`
	UserID    int64        `json:"user_id"`
	Action    Action       `json:"action"`
	Mute      FeatureState `json:"mute"`
	Deaf      FeatureState `json:"deaf"`
	Stream    FeatureState `json:"stream"`
	Video     FeatureState `json:"video"`
	AFK       FeatureState `json:"afk"`
	GuildID   int64        `json:"guild_id"`
	ChannelID int64        `json:"channel_id"`
}
