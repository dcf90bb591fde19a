package record

import "testing"

func TestClassifyPresence(t *testing.T) {
	ch5 := &ChannelRef{ID: 5}
	ch7 := &ChannelRef{ID: 7}
	ch5b := &ChannelRef{ID: 5, Name: "general"}

	tests := []struct {
		name     string
		before   *ChannelRef
		after    *ChannelRef
		expected Action
	}{
		{"join", nil, ch5, ActionJoin},
		{"leave", ch5, nil, ActionLeave},
		{"stay same id", ch5, ch5b, ActionStay},
		{"move different id", ch5, ch7, ActionMove},
		{"unknown both absent", nil, nil, ActionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyPresence(tt.before, tt.after)
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestClassifyFeature(t *testing.T) {
	tests := []struct {
		name     string
		before   bool
		after    bool
		expected FeatureState
	}{
		{"trigger", false, true, FeatureTrigger},
		{"release", true, false, FeatureRelease},
		{"on", true, true, FeatureOn},
		{"off", false, false, FeatureOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyFeature(tt.before, tt.after)
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestResolveChannelID(t *testing.T) {
	tests := []struct {
		name     string
		before   *ChannelRef
		after    *ChannelRef
		expected int64
	}{
		{"after only", nil, &ChannelRef{ID: 5}, 5},
		{"before only", &ChannelRef{ID: 7}, nil, 7},
		{"both prefers after", &ChannelRef{ID: 7}, &ChannelRef{ID: 5}, 5},
		{"neither", nil, nil, NoChannelID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveChannelID(tt.before, tt.after)
			if got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
