package corpus

import (
	"regexp"
	"time"
)

// Tier names a markup tier as entered in ELAN.
type Tier string

const (
	TierLeft  Tier = "LittleLeft"
	TierRight Tier = "LittleRight"
	TierBoth  Tier = "Utterance"
)

// Track identifies which side of a stereo conversation recording a short
// fragment belongs to.
type Track string

const (
	TrackLeft  Track = "l"
	TrackRight Track = "r"
)

// Remix selects a single source channel (1-based) for mono output.
type Remix struct {
	Channel int
}

// Known reports whether t is one of the enumerated tiers.
func (t Tier) Known() bool {
	switch t {
	case TierLeft, TierRight, TierBoth:
		return true
	}
	return false
}

// Short reports whether fragments on t feature a single participant.
func (t Tier) Short() bool {
	return t == TierLeft || t == TierRight
}

// Track returns the recording side for single-participant tiers.
func (t Tier) Track() (Track, bool) {
	switch t {
	case TierLeft:
		return TrackLeft, true
	case TierRight:
		return TrackRight, true
	}
	return "", false
}

// Remix returns the channel remix applied when extracting fragments on t.
func (t Tier) Remix() (Remix, bool) {
	switch t {
	case TierLeft:
		return Remix{Channel: 1}, true
	case TierRight:
		return Remix{Channel: 2}, true
	}
	return Remix{}, false
}

var valuePattern = regexp.MustCompile(`^#?\d+$`)

// ValidValue reports whether v is a well-formed markup value such as "12" or "#3".
func ValidValue(v string) bool {
	return valuePattern.MatchString(v)
}

// Record is one time-aligned annotation read from a markup file.
type Record struct {
	Tier  string
	Value string
	Start time.Duration
	End   time.Duration
	// Aligned is false when either boundary time slot carries no time value.
	Aligned bool
}
