// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe on one file. Result.Check compares its first audio
// stream with an AudioSpec; the export stage uses it to confirm converted
// audio has the requested codec, sample rate, and bit depth.
package ffprobe
