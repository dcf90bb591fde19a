package record

// ClassifyPresence derives the presence Action from the channel a user was
// in before and after one voice-state event. It is total: every input
// combination maps to exactly one Action.
//
//	before=nil  after=set  -> join
//	before=set  after=nil  -> leave
//	before=set  after=set  -> stay (same id) / move (different id)
//	before=nil  after=nil  -> unknown
func ClassifyPresence(before, after *ChannelRef) Action {
	switch {
	case before == nil && after != nil:
		return ActionJoin
	case before != nil && after == nil:
		return ActionLeave
	case before != nil && after != nil:
		if before.ID == after.ID {
			return ActionStay
		}
		return ActionMove
	default:
		return ActionUnknown
	}
}

// ClassifyFeature derives the FeatureState from one boolean flag's
// before/after values.
//
//	false -> true  : trigger
//	true  -> false : release
//	true  -> true  : on
//	false -> false : off
func ClassifyFeature(before, after bool) FeatureState {
	switch {
	case !before && after:
		return FeatureTrigger
	case before && !after:
		return FeatureRelease
	case before && after:
		return FeatureOn
	default:
		return FeatureOff
	}
}

// ResolveChannelID picks the channel id to record for a voice transition:
// after's id when after is present (join, move, stay), before's id when
// only before is present (leave), NoChannelID when neither exists.
func ResolveChannelID(before, after *ChannelRef) int64 {
	if after != nil {
		return after.ID
	}
	if before != nil {
		return before.ID
	}
	return NoChannelID
}
