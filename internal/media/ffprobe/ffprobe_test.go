package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
)

func TestCheck(t *testing.T) {
	flac := Result{Streams: []Stream{
		{CodecType: "audio", CodecName: "flac", SampleRate: "16000", SampleFmt: "s16", Channels: 1},
	}}
	spec := AudioSpec{Codec: "flac", SampleRate: 16000, BitDepth: 16, Channels: 1}

	tests := []struct {
		name   string
		result Result
		spec   AudioSpec
		ok     bool
	}{
		{name: "match", result: flac, spec: spec, ok: true},
		{name: "zero spec", result: flac, spec: AudioSpec{}, ok: true},
		{name: "wrong rate", result: flac, spec: AudioSpec{SampleRate: 44100}},
		{name: "wrong depth", result: flac, spec: AudioSpec{BitDepth: 24}},
		{name: "wrong codec", result: flac, spec: AudioSpec{Codec: "pcm_s16le"}},
		{name: "wrong channels", result: flac, spec: AudioSpec{Channels: 2}},
		{name: "no audio", result: Result{Streams: []Stream{{CodecType: "video"}}}, spec: spec},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (pre-Go 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Check(tt.spec)
			if tt.ok && err != nil {
				t.Fatalf("Check: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrMismatch) {
				t.Fatalf("expected ErrMismatch, got %v", err)
			}
		})
	}
}

func TestBitDepthFallsBackToSampleFormat(t *testing.T) {
	tests := map[string]int{"s16": 16, "s32p": 32, "u8": 8, "": 0}
	for fmtName, want := range tests {
		if got := (Stream{SampleFmt: fmtName}).BitDepth(); got != want {
			t.Errorf("BitDepth(%q) = %d, want %d", fmtName, got, want)
		}
	}
	if got := (Stream{BitsPerRawSample: "24", SampleFmt: "s32"}).BitDepth(); got != 24 {
		t.Errorf("BitDepth prefers bits_per_raw_sample, got %d", got)
	}
}

func TestSampleRateHz(t *testing.T) {
	if got := (Stream{SampleRate: " 16000 "}).SampleRateHz(); got != 16000 {
		t.Fatalf("SampleRateHz = %d", got)
	}
	if got := (Stream{SampleRate: "n/a"}).SampleRateHz(); got != 0 {
		t.Fatalf("SampleRateHz(n/a) = %d", got)
	}
}

func TestInspectParsesOutput(t *testing.T) {
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})

	result, err := Inspect(context.Background(), "", "EN_001_S_1.flac")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.Format.FormatName != "flac" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if err := result.Check(AudioSpec{Codec: "flac", SampleRate: 16000, BitDepth: 16}); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestInspectRequiresPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Println(`{"streams":[{"index":0,"codec_name":"flac","codec_type":"audio","sample_rate":"16000","sample_fmt":"s16","channels":1}],"format":{"format_name":"flac","duration":"1.5"}}`)
	os.Exit(0)
}
