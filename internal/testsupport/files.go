package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"dral/internal/corpus"
	"dral/internal/elan"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WAV describes a generated PCM fixture.
type WAV struct {
	SampleRate int
	Channels   int
	Seconds    float64
	// Silent writes zero samples instead of a tone.
	Silent bool
}

// WriteWAV writes a 16-bit PCM file at path. Each channel carries a 440 Hz
// tone at a different amplitude unless Silent is set.
func WriteWAV(t testing.TB, path string, spec WAV) {
	t.Helper()

	if spec.SampleRate == 0 {
		spec.SampleRate = 16000
	}
	if spec.Channels == 0 {
		spec.Channels = 2
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	frames := int(spec.Seconds * float64(spec.SampleRate))
	data := make([]int, frames*spec.Channels)
	if !spec.Silent {
		for i := 0; i < frames; i++ {
			s := math.Sin(2 * math.Pi * 440 * float64(i) / float64(spec.SampleRate))
			for ch := 0; ch < spec.Channels; ch++ {
				amp := 8000.0 / float64(ch+1)
				data[i*spec.Channels+ch] = int(s * amp)
			}
		}
	}

	enc := wav.NewEncoder(f, spec.SampleRate, 16, spec.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: spec.Channels, SampleRate: spec.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
}

// WriteEAF writes records as an ELAN markup file.
func WriteEAF(t testing.TB, path string, records []corpus.Record) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := elan.WriteFile(path, records); err != nil {
		t.Fatalf("write eaf %s: %v", path, err)
	}
}
