package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// ErrMismatch is returned by Check when a file does not have the expected
// audio format.
var ErrMismatch = errors.New("audio format mismatch")

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index            int    `json:"index"`
	CodecName        string `json:"codec_name"`
	CodecType        string `json:"codec_type"`
	Duration         string `json:"duration"`
	SampleRate       string `json:"sample_rate"`
	SampleFmt        string `json:"sample_fmt"`
	BitsPerRawSample string `json:"bits_per_raw_sample"`
	Channels         int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// AudioSpec is the expected format of a converted file. Zero fields are not
// checked.
type AudioSpec struct {
	Codec      string
	SampleRate int
	BitDepth   int
	Channels   int
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// FirstAudio returns the first audio stream.
func (r Result) FirstAudio() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			return stream, true
		}
	}
	return Stream{}, false
}

// Check compares the first audio stream against spec and wraps ErrMismatch
// with the first difference found.
func (r Result) Check(spec AudioSpec) error {
	stream, ok := r.FirstAudio()
	if !ok {
		return fmt.Errorf("%w: no audio stream", ErrMismatch)
	}
	if spec.Codec != "" && !strings.EqualFold(stream.CodecName, spec.Codec) {
		return fmt.Errorf("%w: codec %s, want %s", ErrMismatch, stream.CodecName, spec.Codec)
	}
	if spec.SampleRate > 0 && stream.SampleRateHz() != spec.SampleRate {
		return fmt.Errorf("%w: sample rate %d, want %d", ErrMismatch, stream.SampleRateHz(), spec.SampleRate)
	}
	if spec.BitDepth > 0 && stream.BitDepth() != spec.BitDepth {
		return fmt.Errorf("%w: bit depth %d, want %d", ErrMismatch, stream.BitDepth(), spec.BitDepth)
	}
	if spec.Channels > 0 && stream.Channels != spec.Channels {
		return fmt.Errorf("%w: %d channels, want %d", ErrMismatch, stream.Channels, spec.Channels)
	}
	return nil
}

// SampleRateHz returns the stream sample rate, or 0 when unavailable.
func (s Stream) SampleRateHz() int {
	v, err := strconv.Atoi(strings.TrimSpace(s.SampleRate))
	if err != nil {
		return 0
	}
	return v
}

// BitDepth returns the stream's bits per sample, preferring
// bits_per_raw_sample and falling back to the sample format.
func (s Stream) BitDepth() int {
	if v, err := strconv.Atoi(strings.TrimSpace(s.BitsPerRawSample)); err == nil && v > 0 {
		return v
	}
	switch strings.TrimSuffix(s.SampleFmt, "p") {
	case "u8":
		return 8
	case "s16":
		return 16
	case "s32", "flt":
		return 32
	case "s64", "dbl":
		return 64
	}
	return 0
}
