package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dral/internal/config"
	"dral/internal/corpus"
	"dral/internal/deps"
	"dral/internal/ldc"
	"dral/internal/media/ffprobe"
	"dral/internal/services/ffmpeg"
	"dral/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	audio      *testsupport.FakeAudio
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "dral.toml")
	writeTestConfig(t, configPath, cfg)

	audio := &testsupport.FakeAudio{T: t}
	origAudio, origTools, origProbe := newAudioClient, checkTools, newProbe
	newAudioClient = func(*config.Config) ffmpeg.Client { return audio }
	checkTools = func(context.Context, *config.Config) []deps.Status {
		return []deps.Status{{Name: "FFmpeg", Command: "ffmpeg", Available: true}}
	}
	newProbe = func(*config.Config) ldc.ProbeFunc { return flacProbe }
	t.Cleanup(func() {
		newAudioClient, checkTools, newProbe = origAudio, origTools, origProbe
	})

	return &cliTestEnv{cfg: cfg, audio: audio, configPath: configPath, baseDir: base}
}

func flacProbe(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{Streams: []ffprobe.Stream{{
		CodecType:        "audio",
		CodecName:        "flac",
		SampleRate:       "16000",
		SampleFmt:        "s16",
		BitsPerRawSample: "16",
		Channels:         1,
	}}}, nil
}

// writeInput writes the EN_001/ES_001 conversation pair into the configured
// input root.
func (e *cliTestEnv) writeInput(t *testing.T) {
	t.Helper()
	left, right, both := corpus.TierLeft, corpus.TierRight, corpus.TierBoth
	records := []corpus.Record{
		testsupport.Span(left, "1", 0, 1000),
		testsupport.Span(left, "2", 1500, 3500),
		testsupport.Span(right, "3", 1000, 1400),
		testsupport.Span(right, "4", 2000, 3000),
		testsupport.Span(both, "#1", 0, 4000),
	}
	testsupport.WriteInput(t, e.cfg.Paths.InputRoot, []testsupport.Conversation{
		{ID: "EN_001", Role: corpus.RoleOriginal, Records: records},
		{ID: "ES_001", Role: corpus.RoleReenacted, Records: records},
	})
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
