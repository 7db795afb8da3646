// Package config loads, normalizes, and validates DRAL release configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DRAL_INPUT_ROOT. The Config type centralizes every knob the release
// pipeline and CLI need, so input/output roots, the overwrite policy, and the
// external audio tools are discovered in one pass and then handed to each
// stage explicitly.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
