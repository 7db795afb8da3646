package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRelease()
	c.normalizeTools()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("DRAL_INPUT_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.InputRoot = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("DRAL_OUTPUT_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputRoot = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = defaultLedgerPath
	}

	var err error
	if c.Paths.InputRoot, err = expandPath(strings.TrimSpace(c.Paths.InputRoot)); err != nil {
		return fmt.Errorf("paths.input_root: %w", err)
	}
	if c.Paths.OutputRoot, err = expandPath(strings.TrimSpace(c.Paths.OutputRoot)); err != nil {
		return fmt.Errorf("paths.output_root: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if c.Export.OutputRoot, err = expandPath(strings.TrimSpace(c.Export.OutputRoot)); err != nil {
		return fmt.Errorf("export.output_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeRelease() {
	if c.Release.Workers <= 0 {
		c.Release.Workers = runtime.NumCPU()
	}
	if c.Release.ConcatMinDurationMS < 0 {
		c.Release.ConcatMinDurationMS = 0
	}
	if c.Release.ConcatSampleRate <= 0 {
		c.Release.ConcatSampleRate = defaultConcatSampleRate
	}
	if c.Release.SilenceThreshold <= 0 {
		c.Release.SilenceThreshold = defaultSilenceThreshold
	}
	c.Release.LanguageCodes = normalizeCodes(c.Release.LanguageCodes)
	if len(c.Release.LanguageCodes) == 0 {
		c.Release.LanguageCodes = append([]string(nil), defaultLanguageCodes...)
	}
	c.Partition.Version = strings.TrimSpace(c.Partition.Version)
	if c.Partition.Version == "" {
		c.Partition.Version = defaultPartitionVersion
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
}

func (c *Config) normalizeExport() {
	if c.Export.SampleRate <= 0 {
		c.Export.SampleRate = defaultExportSampleRate
	}
	if c.Export.BitDepth <= 0 {
		c.Export.BitDepth = defaultExportBitDepth
	}
	c.Export.LanguagePair = normalizeCodes(c.Export.LanguagePair)
	c.Export.CorpusDirName = strings.TrimSpace(c.Export.CorpusDirName)
	if c.Export.CorpusDirName == "" {
		c.Export.CorpusDirName = defaultCorpusDirName
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		normalized := strings.ToUpper(strings.TrimSpace(code))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
