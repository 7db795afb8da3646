package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"dral/internal/services"
	"dral/internal/services/ffmpeg"
)

// FakeAudio is an in-process ffmpeg.Client. Trim writes a mono 16-bit WAV of
// the requested length, Concat and Convert write placeholder files. Like
// ffmpeg, Trim and Concat fail when the output directory does not exist.
type FakeAudio struct {
	T testing.TB
	// Fail lists output paths whose operation returns an external tool error.
	Fail map[string]bool
	// Silent lists trim outputs written as digital silence.
	Silent map[string]bool

	mu       sync.Mutex
	concats  map[string][]string
	converts []ffmpeg.ConvertRequest
	trims    int
}

var _ ffmpeg.Client = (*FakeAudio)(nil)

func (f *FakeAudio) Trim(_ context.Context, req ffmpeg.TrimRequest) error {
	if f.Fail[req.Output] {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "trim", "exit status 1", nil)
	}
	if err := outputDirExists(req.Output); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "trim", "output directory missing", err)
	}
	WriteWAV(f.T, req.Output, WAV{
		Channels: 1,
		Seconds:  (req.End - req.Start).Seconds(),
		Silent:   f.Silent[req.Output],
	})
	f.mu.Lock()
	f.trims++
	f.mu.Unlock()
	return nil
}

func (f *FakeAudio) Concat(_ context.Context, inputs []string, output string, _ int) error {
	if f.Fail[output] {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat", "exit status 1", nil)
	}
	if err := outputDirExists(output); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat", "output directory missing", err)
	}
	f.mu.Lock()
	if f.concats == nil {
		f.concats = map[string][]string{}
	}
	f.concats[output] = append([]string(nil), inputs...)
	f.mu.Unlock()
	WriteFile(f.T, output, 64)
	return nil
}

func (f *FakeAudio) Convert(_ context.Context, req ffmpeg.ConvertRequest) error {
	if f.Fail[req.Output] {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "convert", "exit status 1", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(req.Output, []byte("fLaC"), 0o644); err != nil {
		return err
	}
	f.mu.Lock()
	f.converts = append(f.converts, req)
	f.mu.Unlock()
	return nil
}

func outputDirExists(path string) error {
	_, err := os.Stat(filepath.Dir(path))
	return err
}

// ConcatInputs returns the inputs of the concatenation that wrote output.
func (f *FakeAudio) ConcatInputs(output string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.concats[output]
}

// Converts returns every successful conversion request.
func (f *FakeAudio) Converts() []ffmpeg.ConvertRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ffmpeg.ConvertRequest(nil), f.converts...)
}

// Trims returns the number of successful trims.
func (f *FakeAudio) Trims() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trims
}
