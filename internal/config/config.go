package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputRoot  string `toml:"input_root"`
	OutputRoot string `toml:"output_root"`
	LogDir     string `toml:"log_dir"`
	LedgerPath string `toml:"ledger_path"`
}

// Release contains configuration for building a release.
type Release struct {
	// Overwrite allows writing into a non-empty output directory.
	Overwrite bool `toml:"overwrite"`
	// WarnSilence reports short fragments that are mostly silence.
	WarnSilence bool `toml:"warn_silence"`
	// Workers bounds the number of concurrent audio jobs. Default: number of CPUs.
	Workers int `toml:"workers"`
	// ConcatenateTracks builds one audio file per conversation track from its
	// short fragments.
	ConcatenateTracks bool `toml:"concatenate_tracks"`
	// ConcatMinDurationMS drops shorter fragments (and their translations)
	// from track concatenation. Default: 500
	ConcatMinDurationMS int `toml:"concat_min_duration_ms"`
	// ConcatSampleRate is the sample rate of concatenated track audio. Default: 16000
	ConcatSampleRate int `toml:"concat_sample_rate"`
	// SilenceThreshold is the share of a fragment that must be silent for a
	// warning. Default: 0.95
	SilenceThreshold float64 `toml:"silence_threshold"`
	// LanguageCodes lists the accepted conversation language codes.
	LanguageCodes []string `toml:"language_codes"`
}

// Tools contains external audio tool configuration.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Partition contains configuration for training/test partition assignment.
type Partition struct {
	Version string `toml:"version"`
}

// Export contains configuration for the LDC distribution export.
type Export struct {
	OutputRoot    string   `toml:"output_root"`
	SampleRate    int      `toml:"sample_rate"`
	BitDepth      int      `toml:"bit_depth"`
	LanguagePair  []string `toml:"language_pair"`
	CorpusDirName string   `toml:"corpus_dir_name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the DRAL tooling.
//
// Configuration sections by subsystem:
//   - Paths: input/output roots, log directory, run ledger
//   - Release: overwrite policy, worker count, concatenation and silence checks
//   - Tools: ffmpeg/ffprobe binaries
//   - Partition: partition table version
//   - Export: LDC distribution conversion
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Release   Release   `toml:"release"`
	Tools     Tools     `toml:"tools"`
	Partition Partition `toml:"partition"`
	Export    Export    `toml:"export"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dral/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dral.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the tooling writes bookkeeping
// files to. Release output directories are created by the release run itself
// after its overwrite guard.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if dir := filepath.Dir(c.Paths.LedgerPath); dir != "" && dir != "." {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for trimming and conversion.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpeg); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for media validation.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobe); bin != "" {
		return bin
	}
	return defaultFFprobeBinary
}

// LockPath returns the path of the lock file that serializes release runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "release.lock")
}

// LogPath returns the path of the persistent log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "dral.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
