package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dral/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	workDir := t.TempDir()
	chdirForTest(t, workDir)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(workDir, "raw-data"); cfg.Paths.InputRoot != want {
		t.Fatalf("unexpected input root: got %q want %q", cfg.Paths.InputRoot, want)
	}
	if want := filepath.Join(workDir, "release"); cfg.Paths.OutputRoot != want {
		t.Fatalf("unexpected output root: got %q want %q", cfg.Paths.OutputRoot, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "dral", "logs"); cfg.Paths.LogDir != want {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, want)
	}
	if cfg.Release.Overwrite {
		t.Fatal("expected overwrite disabled by default")
	}
	if cfg.Release.Workers != runtime.NumCPU() {
		t.Fatalf("expected workers to default to CPU count, got %d", cfg.Release.Workers)
	}
	if cfg.Release.ConcatMinDurationMS != 500 {
		t.Fatalf("unexpected concat min duration: %d", cfg.Release.ConcatMinDurationMS)
	}
	if got := strings.Join(cfg.Release.LanguageCodes, ","); got != "EN,ES,JA,BN,FR" {
		t.Fatalf("unexpected language codes: %s", got)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tool binaries: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if cfg.Partition.Version != "8.0" {
		t.Fatalf("unexpected partition version: %q", cfg.Partition.Version)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.LogDir); err != nil || !info.IsDir() {
		t.Fatalf("expected log dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	configPath := filepath.Join(tempDir, "dral.toml")

	type payload struct {
		Paths struct {
			InputRoot  string `toml:"input_root"`
			OutputRoot string `toml:"output_root"`
		} `toml:"paths"`
		Release struct {
			Overwrite     bool     `toml:"overwrite"`
			Workers       int      `toml:"workers"`
			LanguageCodes []string `toml:"language_codes"`
		} `toml:"release"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.InputRoot = "~/corpus/raw"
	custom.Paths.OutputRoot = filepath.Join(tempDir, "out")
	custom.Release.Overwrite = true
	custom.Release.Workers = 3
	custom.Release.LanguageCodes = []string{" en", "es ", "EN"}
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if want := filepath.Join(tempDir, "corpus", "raw"); cfg.Paths.InputRoot != want {
		t.Fatalf("unexpected input root: got %q want %q", cfg.Paths.InputRoot, want)
	}
	if !cfg.Release.Overwrite {
		t.Fatal("expected overwrite from config")
	}
	if cfg.Release.Workers != 3 {
		t.Fatalf("unexpected workers: %d", cfg.Release.Workers)
	}
	if got := strings.Join(cfg.Release.LanguageCodes, ","); got != "EN,ES" {
		t.Fatalf("expected normalized language codes, got %s", got)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadHonoursEnvRoots(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("DRAL_INPUT_ROOT", filepath.Join(tempDir, "in"))
	t.Setenv("DRAL_OUTPUT_ROOT", filepath.Join(tempDir, "out"))

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.InputRoot != filepath.Join(tempDir, "in") {
		t.Fatalf("unexpected input root %q", cfg.Paths.InputRoot)
	}
	if cfg.Paths.OutputRoot != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output root %q", cfg.Paths.OutputRoot)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "same roots",
			mutate: func(c *config.Config) { c.Paths.OutputRoot = c.Paths.InputRoot },
			want:   "must differ",
		},
		{
			name:   "bad language code",
			mutate: func(c *config.Config) { c.Release.LanguageCodes = []string{"ENG"} },
			want:   "two-letter",
		},
		{
			name:   "bad export pair",
			mutate: func(c *config.Config) { c.Export.LanguagePair = []string{"EN"} },
			want:   "exactly two",
		},
		{
			name:   "bad bit depth",
			mutate: func(c *config.Config) { c.Export.BitDepth = 12 },
			want:   "bit_depth",
		},
		{
			name:   "silence threshold",
			mutate: func(c *config.Config) { c.Release.SilenceThreshold = 1.5 },
			want:   "silence_threshold",
		},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (pre-Go 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.InputRoot = "/data/in"
			cfg.Paths.OutputRoot = "/data/out"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	configPath := filepath.Join(tempDir, "dral.toml")
	if err := os.WriteFile(configPath, []byte("[release]\noverwrite_policy = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	target := filepath.Join(tempDir, "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if !cfg.Release.ConcatenateTracks {
		t.Fatal("expected sample to enable track concatenation")
	}
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
