package deps

import "strings"

// AudioTools lists the FFmpeg binaries used for trimming, concatenation,
// conversion, and inspection.
func AudioTools(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     orDefault(ffmpeg, "ffmpeg"),
			Description: "Required for trimming, concatenation, and FLAC conversion",
			VersionArgs: []string{"-hide_banner", "-version"},
		},
		{
			Name:        "FFprobe",
			Command:     orDefault(ffprobe, "ffprobe"),
			Description: "Required for verifying exported audio",
			VersionArgs: []string{"-hide_banner", "-version"},
		},
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
