package config

import "runtime"

const (
	defaultInputRoot           = "raw-data"
	defaultOutputRoot          = "release"
	defaultExportRoot          = "release-ldc"
	defaultLogDir              = "~/.local/share/dral/logs"
	defaultLedgerPath          = "~/.local/share/dral/ledger.db"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultConcatMinDurationMS = 500
	defaultConcatSampleRate    = 16000
	defaultSilenceThreshold    = 0.95
	defaultPartitionVersion    = "8.0"
	defaultExportSampleRate    = 16000
	defaultExportBitDepth      = 16
	defaultCorpusDirName       = "Dialogs Re-enacted Across Languages"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultLanguageCodes = []string{"EN", "ES", "JA", "BN", "FR"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputRoot:  defaultInputRoot,
			OutputRoot: defaultOutputRoot,
			LogDir:     defaultLogDir,
			LedgerPath: defaultLedgerPath,
		},
		Release: Release{
			Workers:             runtime.NumCPU(),
			ConcatenateTracks:   true,
			ConcatMinDurationMS: defaultConcatMinDurationMS,
			ConcatSampleRate:    defaultConcatSampleRate,
			SilenceThreshold:    defaultSilenceThreshold,
			LanguageCodes:       append([]string(nil), defaultLanguageCodes...),
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Partition: Partition{
			Version: defaultPartitionVersion,
		},
		Export: Export{
			OutputRoot:    defaultExportRoot,
			SampleRate:    defaultExportSampleRate,
			BitDepth:      defaultExportBitDepth,
			LanguagePair:  []string{"EN", "ES"},
			CorpusDirName: defaultCorpusDirName,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
