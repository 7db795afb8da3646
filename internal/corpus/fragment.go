package corpus

import "time"

// Fragment holds the columns shared by short and long fragments.
type Fragment struct {
	ID                       string
	Value                    string
	Tier                     Tier
	ConvID                   string
	TransConvID              string
	TransID                  string
	LangCode                 string
	TransLangCode            string
	Role                     Role
	ConvAudioPath            string
	AudioPath                string
	ParticipantIDLeft        string
	ParticipantIDRight       string
	ParticipantIDLeftUnique  string
	ParticipantIDRightUnique string
	Start                    time.Duration
	End                      time.Duration
	Duration                 time.Duration
}

// ShortFragment is a single-participant fragment extracted from one channel.
type ShortFragment struct {
	Fragment
	Track               Track
	Remix               Remix
	ParticipantID       string
	ParticipantIDUnique string
	// Concat is set once the fragment has been placed in its track's
	// concatenated audio.
	Concat *ConcatPlacement
}

// LongFragment spans both participants of a re-enacted exchange.
type LongFragment struct {
	Fragment
}

// ConcatPlacement locates a short fragment inside its concatenated track audio.
type ConcatPlacement struct {
	AudioPath string
	StartRel  time.Duration
	EndRel    time.Duration
}

// TrackKey groups short fragments by conversation and track side.
type TrackKey struct {
	ConvID string
	Track  Track
}

func (k TrackKey) String() string {
	return k.ConvID + string(k.Track)
}
