package config

import (
	"errors"
	"fmt"
	"regexp"
)

var languageCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRelease(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.InputRoot == "" {
		return errors.New("paths.input_root must be set")
	}
	if c.Paths.OutputRoot == "" {
		return errors.New("paths.output_root must be set")
	}
	if c.Paths.InputRoot == c.Paths.OutputRoot {
		return errors.New("paths.output_root must differ from paths.input_root")
	}
	return nil
}

func (c *Config) validateRelease() error {
	if c.Release.Workers <= 0 {
		return errors.New("release.workers must be positive")
	}
	if c.Release.SilenceThreshold > 1 {
		return errors.New("release.silence_threshold must be between 0 and 1")
	}
	for _, code := range c.Release.LanguageCodes {
		if !languageCodePattern.MatchString(code) {
			return fmt.Errorf("release.language_codes: %q is not a two-letter code", code)
		}
	}
	return nil
}

func (c *Config) validateExport() error {
	if len(c.Export.LanguagePair) != 2 {
		return errors.New("export.language_pair must name exactly two language codes")
	}
	if c.Export.LanguagePair[0] == c.Export.LanguagePair[1] {
		return errors.New("export.language_pair must name two different language codes")
	}
	switch c.Export.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("export.bit_depth must be 16, 24, or 32 (got %d)", c.Export.BitDepth)
	}
	return nil
}
