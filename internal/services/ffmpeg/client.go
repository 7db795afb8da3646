// Package ffmpeg wraps the ffmpeg command line for the audio operations of a
// release build: trimming fragments, concatenating tracks, and converting
// distribution audio.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dral/internal/services"
)

var commandContext = exec.CommandContext

// Client defines the audio operations used by the extraction driver and the
// distribution export.
type Client interface {
	Trim(ctx context.Context, req TrimRequest) error
	Concat(ctx context.Context, inputs []string, output string, sampleRate int) error
	Convert(ctx context.Context, req ConvertRequest) error
}

// TrimRequest cuts [Start, End) from Input into Output.
type TrimRequest struct {
	Input  string
	Output string
	Start  time.Duration
	End    time.Duration
	// Channel selects one 1-based source channel for mono output. Zero keeps
	// every channel.
	Channel int
}

// ConvertRequest re-encodes Input into Output. The codec follows the output
// extension.
type ConvertRequest struct {
	Input      string
	Output     string
	SampleRate int
	BitDepth   int
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI runs ffmpeg as a subprocess.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Trim extracts a time span, optionally remixing to a single channel.
func (c *CLI) Trim(ctx context.Context, req TrimRequest) error {
	if req.Input == "" || req.Output == "" {
		return errors.New("trim: input and output paths required")
	}
	if req.End < req.Start {
		return fmt.Errorf("trim: end %v before start %v", req.End, req.Start)
	}

	args := baseArgs()
	args = append(args,
		"-i", req.Input,
		"-ss", seconds(req.Start),
		"-t", seconds(req.End-req.Start),
	)
	if req.Channel > 0 {
		args = append(args, "-af", fmt.Sprintf("pan=mono|c0=c%d", req.Channel-1))
	}
	args = append(args, "-c:a", "pcm_s16le", req.Output)
	return c.run(ctx, "trim", args)
}

// Concat joins inputs in order into output, resampled to sampleRate.
func (c *CLI) Concat(ctx context.Context, inputs []string, output string, sampleRate int) error {
	if len(inputs) == 0 {
		return errors.New("concat: no inputs")
	}
	if output == "" {
		return errors.New("concat: output path required")
	}

	list, err := os.CreateTemp(filepath.Dir(output), ".concat-*.txt")
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat", "create input list", err)
	}
	defer os.Remove(list.Name())
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			list.Close()
			return fmt.Errorf("concat: resolve %s: %w", in, err)
		}
		if _, err := fmt.Fprintf(list, "file '%s'\n", escapeListPath(abs)); err != nil {
			list.Close()
			return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat", "write input list", err)
		}
	}
	if err := list.Close(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat", "write input list", err)
	}

	args := baseArgs()
	args = append(args, "-f", "concat", "-safe", "0", "-i", list.Name())
	if sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(sampleRate))
	}
	args = append(args, "-c:a", "pcm_s16le", output)
	return c.run(ctx, "concat", args)
}

// Convert resamples and re-encodes an audio file.
func (c *CLI) Convert(ctx context.Context, req ConvertRequest) error {
	if req.Input == "" || req.Output == "" {
		return errors.New("convert: input and output paths required")
	}
	args := baseArgs()
	args = append(args, "-i", req.Input)
	if req.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(req.SampleRate))
	}
	switch req.BitDepth {
	case 0:
	case 16:
		args = append(args, "-sample_fmt", "s16")
	case 24:
		args = append(args, "-sample_fmt", "s32", "-bits_per_raw_sample", "24")
	case 32:
		args = append(args, "-sample_fmt", "s32")
	default:
		return fmt.Errorf("convert: unsupported bit depth %d", req.BitDepth)
	}
	if strings.EqualFold(filepath.Ext(req.Output), ".flac") {
		args = append(args, "-c:a", "flac")
	}
	args = append(args, req.Output)
	return c.run(ctx, "convert", args)
}

func (c *CLI) run(ctx context.Context, operation string, args []string) error {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, strings.TrimSpace(string(output)), err)
	}
	return nil
}

func baseArgs() []string {
	return []string{"-y", "-hide_banner", "-nostdin", "-loglevel", "error"}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func escapeListPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
