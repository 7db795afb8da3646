// Package services defines shared utilities consumed by the release stages
// and the external audio tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and job targets for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (external tool, validation, configuration, missing input).
//   - Thin abstractions that make command execution of external tools
//     testable.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error reporting, observability) stays uniform across the pipeline.
package services
